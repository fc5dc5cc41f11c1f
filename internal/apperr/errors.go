package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidTitle     = errors.New("invalid title")
	ErrEditorNotFound   = errors.New("editor not found")
	ErrKeywordsDisabled = errors.New("keyword suggestion disabled")
)
