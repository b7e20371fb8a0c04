package models

import (
	"fmt"
	"strings"
)

// SearchMode selects how results are scored.
type SearchMode string

const (
	// ModeSemantic ranks by cosine similarity between the query embedding
	// and every stored embedding (the default).
	ModeSemantic SearchMode = "semantic"
	// ModeKeyword ranks by keyword match over descriptions and filenames.
	ModeKeyword SearchMode = "keyword"
	// ModeHybrid fuses keyword and semantic scores by configured weights.
	ModeHybrid SearchMode = "hybrid"
)

// DefaultTopK is used when a search does not specify top_k.
const DefaultTopK = 5

// SearchQuery represents a search request.
type SearchQuery struct {
	Query string     `json:"query"`
	TopK  int        `json:"top_k,omitempty"`
	Mode  SearchMode `json:"mode,omitempty"`
}

// Validate checks the query and fills in defaults: TopK defaults to
// DefaultTopK when zero, Mode defaults to ModeSemantic when empty.
// An empty query or a negative TopK is an error.
func (q *SearchQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.TopK < 0 {
		return fmt.Errorf("top_k must be positive, got %d", q.TopK)
	}
	if q.TopK == 0 {
		q.TopK = DefaultTopK
	}
	switch q.Mode {
	case "":
		q.Mode = ModeSemantic
	case ModeSemantic, ModeKeyword, ModeHybrid:
	default:
		return fmt.Errorf("unknown search mode: %s", q.Mode)
	}
	return nil
}
