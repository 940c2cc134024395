// Package models defines the domain types for Ansuz.
package models

import "time"

// Note is the metadata view of a note record supplied by a note source.
// Timestamps are unix seconds.
type Note struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Tags       []string `json:"tags,omitempty"`
	CreatedAt  int64    `json:"created_at"`
	ModifiedAt int64    `json:"modified_at"`
}

// NoteWithContent is a Note carrying its full text body, used for
// content-aware filter evaluation.
type NoteWithContent struct {
	Note
	Content string `json:"content"`
}

// NoteFile is the on-disk view of a vault file returned by storage listings.
type NoteFile struct {
	Path       string    `json:"path"`
	Checksum   string    `json:"checksum"`
	ModifiedAt time.Time `json:"modified_at"`
}
