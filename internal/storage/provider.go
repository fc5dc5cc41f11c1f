// Package storage defines the Jekyll project file-system abstraction.
package storage

import "github.com/starford/ansuz/internal/models"

// Provider is the interface for project file operations. All paths are
// relative to the project root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.PostMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Exists reports whether a file exists at path.
	Exists(path string) bool
	// Abs resolves path against the project root, rejecting escapes.
	Abs(path string) (string, error)
}
