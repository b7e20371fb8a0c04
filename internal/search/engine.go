// Package search ranks stored images against free-text queries.
package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hyperjump/miru/internal/config"
	"github.com/hyperjump/miru/internal/embedding"
	"github.com/hyperjump/miru/internal/imagefile"
	"github.com/hyperjump/miru/internal/keyword"
	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/storage"
	"github.com/hyperjump/miru/internal/vector"
)

// Engine answers queries by scanning every stored embedding and
// ranking by cosine similarity. The scan is O(N·D) per query; the
// RankEmbedding seam is stable so an index-backed scan could be
// substituted without changing callers.
type Engine struct {
	store   storage.Store
	embed   embedding.Embedder
	files   *imagefile.Store
	kwIndex keyword.Index
	config  *config.SearchConfig
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithKeywordIndex enables the keyword and hybrid search modes.
func WithKeywordIndex(idx keyword.Index) EngineOption {
	return func(e *Engine) { e.kwIndex = idx }
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(store storage.Store, embed embedding.Embedder, files *imagefile.Store, cfg *config.SearchConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		store:  store,
		embed:  embed,
		files:  files,
		config: cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search validates the query, embeds it, and returns the top-k ranked
// results for the requested mode (semantic by default).
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := query.Validate(); err != nil {
		return nil, err
	}

	var (
		results []*models.SearchResult
		err     error
	)
	switch query.Mode {
	case models.ModeKeyword:
		results, err = e.searchKeyword(ctx, query.Query, query.TopK)
	case models.ModeHybrid:
		results, err = e.searchHybrid(ctx, query.Query, query.TopK)
	default:
		results, err = e.searchSemantic(ctx, query.Query, query.TopK)
	}
	if err != nil {
		return nil, err
	}

	return &models.SearchResponse{
		Results:   results,
		Total:     len(results),
		QueryTime: time.Since(startTime).Milliseconds(),
		Query:     query.Query,
		Mode:      query.Mode,
	}, nil
}

func (e *Engine) searchSemantic(ctx context.Context, query string, topK int) ([]*models.SearchResult, error) {
	queryEmbedding, err := e.embed.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	return e.RankEmbedding(ctx, queryEmbedding, topK)
}

// RankEmbedding scores every stored record against queryEmbedding by
// cosine similarity and returns the top-k, best first. Equal scores
// order by ascending id, so repeated calls over an unchanged store
// return identical sequences.
func (e *Engine) RankEmbedding(ctx context.Context, queryEmbedding []float32, topK int) ([]*models.SearchResult, error) {
	recs, err := e.store.ListWithEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan store: %w", err)
	}

	results := make([]*models.SearchResult, 0, len(recs))
	for _, rec := range recs {
		results = append(results, e.toResult(rec, vector.CosineSimilarity(queryEmbedding, rec.Embedding), 0))
	}
	sortResults(results)
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (e *Engine) searchKeyword(ctx context.Context, query string, topK int) ([]*models.SearchResult, error) {
	if e.kwIndex == nil {
		return nil, fmt.Errorf("keyword search not enabled")
	}
	hits, err := e.kwIndex.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	scores := NormalizeKeywordScores(hits)

	results := make([]*models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		rec, err := e.store.GetByID(ctx, hit.ID)
		if err != nil {
			continue
		}
		results = append(results, e.toResult(rec, scores[hit.ID], hit.Score))
	}
	sortResults(results)
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (e *Engine) searchHybrid(ctx context.Context, query string, topK int) ([]*models.SearchResult, error) {
	if e.kwIndex == nil {
		return nil, fmt.Errorf("hybrid search not enabled")
	}
	queryEmbedding, err := e.embed.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	recs, err := e.store.ListWithEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan store: %w", err)
	}
	semanticScores := make(map[int64]float64, len(recs))
	byID := make(map[int64]*models.ImageRecord, len(recs))
	for _, rec := range recs {
		semanticScores[rec.ID] = vector.CosineSimilarity(queryEmbedding, rec.Embedding)
		byID[rec.ID] = rec
	}

	hits, err := e.kwIndex.Search(ctx, query, e.config.TopKCandidates)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	keywordScores := NormalizeKeywordScores(hits)

	fused := Fuse(keywordScores, semanticScores, e.config.KeywordWeight, e.config.SemanticWeight)
	results := make([]*models.SearchResult, 0, len(fused))
	for _, f := range fused {
		rec, ok := byID[f.ID]
		if !ok {
			continue
		}
		results = append(results, e.toResult(rec, f.Score, f.KeywordScore))
	}
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (e *Engine) toResult(rec *models.ImageRecord, score, keywordScore float64) *models.SearchResult {
	return &models.SearchResult{
		ID:               rec.ID,
		StoredFilename:   rec.StoredFilename,
		OriginalFilename: rec.OriginalFilename,
		Description:      rec.Description,
		Similarity:       score,
		KeywordScore:     keywordScore,
		Path:             e.files.Path(rec.StoredFilename),
	}
}

// sortResults orders by score descending, ties by ascending id.
func sortResults(results []*models.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})
}
