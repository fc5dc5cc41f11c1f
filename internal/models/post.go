// Package models defines the shared domain types for Ansuz.
package models

import "time"

// PostMetadata is a lightweight representation returned by list operations.
type PostMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
