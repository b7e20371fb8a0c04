// Package storage defines the persistence interface for image records.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/miru/internal/models"
)

// ErrNotFound reports a lookup for an id with no record.
var ErrNotFound = errors.New("record not found")

// ErrPersistence reports that the durable store was unreachable or a
// write could not be committed.
var ErrPersistence = errors.New("persistence failure")

// Store defines image record persistence. Records are append-only:
// there are no update or delete operations, and ids are never reused.
type Store interface {
	// Insert appends a record atomically and returns its assigned id.
	// The record's embedding must be set; UploadedAt is set to now when zero.
	Insert(ctx context.Context, rec *models.ImageRecord) (int64, error)

	// ListAll returns all records' metadata (no embeddings) in insertion order.
	ListAll(ctx context.Context) ([]*models.ImageRecord, error)

	// ListWithEmbeddings returns all records with decoded embeddings in
	// insertion order. This is the full-scan input for similarity search.
	ListWithEmbeddings(ctx context.Context) ([]*models.ImageRecord, error)

	// GetByID returns the record with the given id, or ErrNotFound.
	GetByID(ctx context.Context, id int64) (*models.ImageRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	Close() error
}
