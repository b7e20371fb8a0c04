// Package embedding produces vector embeddings for text queries and image files.
package embedding

import "context"

// Embedder produces embeddings for query text and image files. Both
// sides must come from the same model so that text and image vectors
// share one space; mixing model versions silently corrupts ranking.
type Embedder interface {
	// EmbedText returns the embedding for a text query.
	EmbedText(ctx context.Context, text string) ([]float32, error)
	// EmbedImage returns the embedding for the image file at path.
	EmbedImage(ctx context.Context, path string) ([]float32, error)
	// Dimensions returns the fixed output dimension.
	Dimensions() int
	Close() error
}
