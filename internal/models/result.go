package models

// SearchResult is a single ranked hit.
type SearchResult struct {
	ID               int64   `json:"id"`
	StoredFilename   string  `json:"filename"`
	OriginalFilename string  `json:"original_filename"`
	Description      string  `json:"description"`
	Similarity       float64 `json:"similarity"`
	KeywordScore     float64 `json:"keyword_score,omitempty"`
	Path             string  `json:"path"`
}

// SearchResponse is the response for a search request. Results are
// ordered by score descending; ties order by ascending id so repeated
// queries over an unchanged store return identical sequences.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
	Mode      SearchMode      `json:"mode"`
}
