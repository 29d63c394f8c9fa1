package models

// SearchResult is a single annotation hit.
type SearchResult struct {
	Annotation *Annotation `json:"annotation"`
	Score      float64     `json:"score"`
	Rank       int         `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
	// AutoFuzzy indicates that fuzzy search was automatically enabled because the
	// initial exact search returned no results.
	AutoFuzzy bool `json:"auto_fuzzy,omitempty"`
}
