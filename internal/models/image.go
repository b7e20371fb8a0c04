// Package models defines core data structures for image records, queries, and search results.
package models

import "time"

// DefaultDescription is stored when an upload carries no description
// (or one that is only whitespace).
const DefaultDescription = "No description provided."

// ImageRecord is a stored image with its embedding. Records are
// append-only: they are never updated or deleted once inserted.
type ImageRecord struct {
	ID               int64     `json:"id" db:"id"`
	StoredFilename   string    `json:"filename" db:"filename"`
	OriginalFilename string    `json:"original_filename" db:"original_filename"`
	UploadedAt       time.Time `json:"upload_date" db:"upload_date"`
	Description      string    `json:"description" db:"description"`
	Embedding        []float32 `json:"-" db:"-"`
}

// ImageSummary is the metadata view of a record returned by listing,
// with a resolvable path to the stored file and no embedding.
type ImageSummary struct {
	ID               int64     `json:"id"`
	StoredFilename   string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	UploadedAt       time.Time `json:"upload_date"`
	Description      string    `json:"description"`
	Path             string    `json:"path"`
}
