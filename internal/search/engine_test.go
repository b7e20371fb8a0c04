package search

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/hyperjump/miru/internal/config"
	"github.com/hyperjump/miru/internal/imagefile"
	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/storage"
)

// presetEmbedder returns a fixed vector per query string.
type presetEmbedder struct {
	vectors map[string][]float32
}

func (p *presetEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	v, ok := p.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no preset vector for %q", text)
	}
	return v, nil
}

func (p *presetEmbedder) EmbedImage(_ context.Context, path string) ([]float32, error) {
	return p.EmbedText(context.Background(), path)
}

func (p *presetEmbedder) Dimensions() int { return 2 }
func (p *presetEmbedder) Close() error    { return nil }

func newTestEngine(t *testing.T, embed *presetEmbedder) (*Engine, storage.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewSQLiteStore(filepath.Join(dir, "images.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	files, err := imagefile.NewStore(filepath.Join(dir, "images"), "")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.SearchConfig{DefaultTopK: 5, TopKCandidates: 50, KeywordWeight: 0.3, SemanticWeight: 0.7}
	return NewEngine(store, embed, files, cfg), store
}

func insertRecord(t *testing.T, store storage.Store, name string, emb []float32) int64 {
	t.Helper()
	rec := &models.ImageRecord{
		StoredFilename:   name,
		OriginalFilename: name,
		Description:      "test image",
		Embedding:        emb,
	}
	id, err := store.Insert(context.Background(), rec)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestSearchRanksBySimilarity(t *testing.T) {
	embed := &presetEmbedder{vectors: map[string][]float32{"query": {1, 0}}}
	engine, store := newTestEngine(t, embed)
	ctx := context.Background()

	id1 := insertRecord(t, store, "a.png", []float32{1, 0})
	insertRecord(t, store, "b.png", []float32{0, 1})
	id3 := insertRecord(t, store, "c.png", []float32{0.9, 0.1})

	resp, err := engine.Search(ctx, &models.SearchQuery{Query: "query", TopK: 3})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.Total != 3 {
		t.Fatalf("total = %d, want 3", resp.Total)
	}
	if resp.Results[0].ID != id1 {
		t.Errorf("best match id = %d, want %d", resp.Results[0].ID, id1)
	}
	if resp.Results[1].ID != id3 {
		t.Errorf("second match id = %d, want %d", resp.Results[1].ID, id3)
	}
	if resp.Results[0].Similarity < resp.Results[1].Similarity ||
		resp.Results[1].Similarity < resp.Results[2].Similarity {
		t.Error("results not in descending similarity order")
	}
}

func TestSearchTopKBounds(t *testing.T) {
	embed := &presetEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	engine, store := newTestEngine(t, embed)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		insertRecord(t, store, fmt.Sprintf("img%d.png", i), []float32{1, float32(i)})
	}

	resp, err := engine.Search(ctx, &models.SearchQuery{Query: "q", TopK: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("got %d results, want 2", len(resp.Results))
	}

	// top_k larger than the store returns everything
	resp, err = engine.Search(ctx, &models.SearchQuery{Query: "q", TopK: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 3 {
		t.Errorf("got %d results, want all 3", len(resp.Results))
	}
}

func TestSearchDefaultTopK(t *testing.T) {
	embed := &presetEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	engine, store := newTestEngine(t, embed)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		insertRecord(t, store, fmt.Sprintf("img%d.png", i), []float32{1, 0})
	}

	resp, err := engine.Search(ctx, &models.SearchQuery{Query: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != models.DefaultTopK {
		t.Errorf("got %d results, want default %d", len(resp.Results), models.DefaultTopK)
	}
}

func TestSearchTieBreakByID(t *testing.T) {
	embed := &presetEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	engine, store := newTestEngine(t, embed)
	ctx := context.Background()

	// identical embeddings produce identical scores
	var ids []int64
	for i := 0; i < 4; i++ {
		ids = append(ids, insertRecord(t, store, fmt.Sprintf("same%d.png", i), []float32{0.5, 0.5}))
	}

	resp, err := engine.Search(ctx, &models.SearchQuery{Query: "q", TopK: 4})
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range resp.Results {
		if r.ID != ids[i] {
			t.Errorf("result[%d].ID = %d, want %d (ascending id on ties)", i, r.ID, ids[i])
		}
	}
}

func TestSearchDeterministic(t *testing.T) {
	embed := &presetEmbedder{vectors: map[string][]float32{"q": {0.6, 0.8}}}
	engine, store := newTestEngine(t, embed)
	ctx := context.Background()

	insertRecord(t, store, "a.png", []float32{0.6, 0.8})
	insertRecord(t, store, "b.png", []float32{0.8, 0.6})
	insertRecord(t, store, "c.png", []float32{0, 0})

	first, err := engine.Search(ctx, &models.SearchQuery{Query: "q", TopK: 3})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := engine.Search(ctx, &models.SearchQuery{Query: "q", TopK: 3})
		if err != nil {
			t.Fatal(err)
		}
		for j := range first.Results {
			if again.Results[j].ID != first.Results[j].ID {
				t.Fatalf("run %d: result order changed", i)
			}
		}
	}
}

func TestSearchZeroVectorScoresZero(t *testing.T) {
	embed := &presetEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	engine, store := newTestEngine(t, embed)
	ctx := context.Background()

	insertRecord(t, store, "zero.png", []float32{0, 0})

	resp, err := engine.Search(ctx, &models.SearchQuery{Query: "q", TopK: 1})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Results[0].Similarity != 0 {
		t.Errorf("zero-vector similarity = %v, want 0", resp.Results[0].Similarity)
	}
}

func TestSearchEmptyStore(t *testing.T) {
	embed := &presetEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	engine, _ := newTestEngine(t, embed)

	resp, err := engine.Search(context.Background(), &models.SearchQuery{Query: "q", TopK: 5})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 0 || len(resp.Results) != 0 {
		t.Errorf("empty store returned %d results", resp.Total)
	}
}

func TestSearchRejectsInvalidQueryBeforeEmbedding(t *testing.T) {
	// no preset vectors: any embedder call would error, so validation
	// failures must short-circuit before embedding
	embed := &presetEmbedder{vectors: map[string][]float32{}}
	engine, _ := newTestEngine(t, embed)
	ctx := context.Background()

	if _, err := engine.Search(ctx, &models.SearchQuery{Query: ""}); err == nil {
		t.Error("expected error for empty query")
	}
	if _, err := engine.Search(ctx, &models.SearchQuery{Query: "  "}); err == nil {
		t.Error("expected error for whitespace query")
	}
	if _, err := engine.Search(ctx, &models.SearchQuery{Query: "ok", TopK: -1}); err == nil {
		t.Error("expected error for negative top_k")
	}
}

func TestSearchKeywordModeWithoutIndex(t *testing.T) {
	embed := &presetEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	engine, _ := newTestEngine(t, embed)

	_, err := engine.Search(context.Background(), &models.SearchQuery{Query: "q", Mode: models.ModeKeyword})
	if err == nil {
		t.Error("expected error when keyword index is not configured")
	}
}
