// Package storage defines the read-only vault file-system abstraction that
// supplies note files for filter evaluation.
package storage

import "github.com/starford/ansuz/internal/models"

// Provider is the interface for vault file access. Ansuz only reads the
// vault; writes stay with whatever tool owns the notes.
type Provider interface {
	// List returns metadata for every .md file under dir (relative to vault root).
	List(dir string) ([]models.NoteFile, error)
	// Read returns the raw bytes of the file at path (relative to vault root).
	Read(path string) ([]byte, error)
}
