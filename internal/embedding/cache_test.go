package embedding

import "testing"

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss on empty cache")
	}

	c.Set("a", []float32{1})
	got, ok := c.Get("a")
	if !ok || len(got) != 1 || got[0] != 1 {
		t.Errorf("got %v, %v", got, ok)
	}
}

func TestEmbeddingCache_EvictsOldest(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	// touch "a" so "b" is the eviction candidate
	c.Get("a")
	c.Set("c", []float32{3})

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
}

func TestEmbeddingCache_UpdateExisting(t *testing.T) {
	c := NewEmbeddingCache(2)
	c.Set("a", []float32{1})
	c.Set("a", []float32{9})
	got, _ := c.Get("a")
	if got[0] != 9 {
		t.Errorf("got %v, want updated value", got)
	}
}
