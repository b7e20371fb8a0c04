// Package keyword provides keyword search over image descriptions and filenames.
package keyword

import "context"

// Index defines keyword indexing and search over image metadata.
type Index interface {
	// Add indexes the description and original filename under the record id.
	Add(ctx context.Context, id int64, description, originalFilename string) error
	// Search returns up to limit hits for the query, best first.
	Search(ctx context.Context, query string, limit int) ([]*Result, error)
	// DocCount returns the number of indexed records.
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword search hit.
type Result struct {
	ID    int64
	Score float64
}
