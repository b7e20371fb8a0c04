// Package ingest turns uploaded images into persisted, searchable records.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/embedding"
	"github.com/hyperjump/miru/internal/imagefile"
	"github.com/hyperjump/miru/internal/keyword"
	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/storage"
)

// ErrEmbedding reports that the embedding model failed after the image
// file was already stored. The file is not rolled back; it stays as an
// orphan with no record referencing it.
var ErrEmbedding = errors.New("embedding computation failed")

// Result is the structured outcome of AddImage. The pipeline converts
// every failure into a Result; it never propagates an error or panic
// past its boundary.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	ID      int64  `json:"id,omitempty"`
	Path    string `json:"path,omitempty"`

	cause error
}

// Cause returns the underlying error of a failed result, nil on success.
// Callers use it to distinguish rejected input from infrastructure failures.
func (r Result) Cause() error { return r.cause }

// Pipeline validates an incoming image, persists the file, computes
// its embedding, and writes the record. The file is written before the
// row commits: a failure in between leaves an orphan file, never a row
// referencing a missing file.
type Pipeline struct {
	store   storage.Store
	files   *imagefile.Store
	embed   embedding.Embedder
	kwIndex keyword.Index
	logger  *zap.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// WithKeywordIndex enables keyword indexing of descriptions and filenames.
func WithKeywordIndex(idx keyword.Index) PipelineOption {
	return func(p *Pipeline) { p.kwIndex = idx }
}

// NewPipeline creates a pipeline with the given dependencies.
func NewPipeline(store storage.Store, files *imagefile.Store, embed embedding.Embedder, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store: store,
		files: files,
		embed: embed,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AddImage ingests the image at sourcePath uploaded under
// originalFilename. A blank or whitespace-only description is replaced
// by the fixed default. Validation failures persist nothing; embedding
// or insert failures may leave an orphan file.
func (p *Pipeline) AddImage(ctx context.Context, sourcePath, originalFilename, description string) Result {
	if err := imagefile.Validate(sourcePath); err != nil {
		return p.failure(originalFilename, err)
	}

	if strings.TrimSpace(description) == "" {
		description = models.DefaultDescription
	}

	now := time.Now()
	storedFilename := imagefile.StoredFilename(originalFilename, now)
	storedPath, err := p.files.Save(sourcePath, storedFilename)
	if err != nil {
		return p.failure(originalFilename, fmt.Errorf("store image file: %w", err))
	}

	emb, err := p.embed.EmbedImage(ctx, storedPath)
	if err != nil {
		return p.failure(originalFilename, fmt.Errorf("%w: %v", ErrEmbedding, err))
	}

	rec := &models.ImageRecord{
		StoredFilename:   storedFilename,
		OriginalFilename: originalFilename,
		UploadedAt:       now,
		Description:      description,
		Embedding:        emb,
	}
	id, err := p.store.Insert(ctx, rec)
	if err != nil {
		return p.failure(originalFilename, err)
	}

	if p.kwIndex != nil {
		if err := p.kwIndex.Add(ctx, id, description, originalFilename); err != nil && p.logger != nil {
			p.logger.Warn("keyword indexing failed", zap.Int64("id", id), zap.Error(err))
		}
	}
	if _, err := p.files.CreateThumbnail(storedPath, id); err != nil && p.logger != nil {
		p.logger.Debug("thumbnail skipped", zap.Int64("id", id), zap.Error(err))
	}

	if p.logger != nil {
		p.logger.Debug("image ingested",
			zap.Int64("id", id),
			zap.String("filename", storedFilename),
		)
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("Image '%s' added successfully.", originalFilename),
		ID:      id,
		Path:    storedPath,
	}
}

func (p *Pipeline) failure(originalFilename string, err error) Result {
	if p.logger != nil {
		p.logger.Warn("ingestion failed",
			zap.String("original_filename", originalFilename),
			zap.Error(err),
		)
	}
	return Result{Success: false, Error: err.Error(), cause: err}
}
