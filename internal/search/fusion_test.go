package search

import (
	"testing"

	"github.com/hyperjump/miru/internal/keyword"
)

func TestNormalizeKeywordScores(t *testing.T) {
	results := []*keyword.Result{
		{ID: 1, Score: 2.0},
		{ID: 2, Score: 1.0},
		{ID: 3, Score: 0.5},
	}
	normalized := NormalizeKeywordScores(results)
	if normalized[1] != 1.0 {
		t.Errorf("top score = %v, want 1.0", normalized[1])
	}
	if normalized[2] != 0.5 {
		t.Errorf("mid score = %v, want 0.5", normalized[2])
	}
	if normalized[3] != 0.25 {
		t.Errorf("low score = %v, want 0.25", normalized[3])
	}
}

func TestNormalizeKeywordScoresEmpty(t *testing.T) {
	normalized := NormalizeKeywordScores(nil)
	if len(normalized) != 0 {
		t.Errorf("got %d entries, want 0", len(normalized))
	}
}

func TestFuse(t *testing.T) {
	keywordScores := map[int64]float64{1: 1.0, 2: 0.5}
	semanticScores := map[int64]float64{2: 1.0, 3: 0.8}

	fused := Fuse(keywordScores, semanticScores, 0.3, 0.7)
	if len(fused) != 3 {
		t.Fatalf("got %d results, want 3", len(fused))
	}

	// id 2 appears in both: 0.3*0.5 + 0.7*1.0 = 0.85
	if fused[0].ID != 2 {
		t.Errorf("top result id = %d, want 2", fused[0].ID)
	}
	if fused[0].Score < 0.84 || fused[0].Score > 0.86 {
		t.Errorf("top score = %v, want ~0.85", fused[0].Score)
	}
	// id 3 semantic only: 0.7*0.8 = 0.56 beats id 1 keyword only 0.3
	if fused[1].ID != 3 {
		t.Errorf("second result id = %d, want 3", fused[1].ID)
	}
	if fused[2].ID != 1 {
		t.Errorf("third result id = %d, want 1", fused[2].ID)
	}
}

func TestFuseTieBreakByID(t *testing.T) {
	semanticScores := map[int64]float64{5: 0.5, 2: 0.5, 9: 0.5}
	fused := Fuse(nil, semanticScores, 0.3, 0.7)

	want := []int64{2, 5, 9}
	for i, f := range fused {
		if f.ID != want[i] {
			t.Errorf("fused[%d].ID = %d, want %d", i, f.ID, want[i])
		}
	}
}
