package domain

// QueryModality tags which modality led the search query.
// It drives boost-table selection explicitly rather than inferring
// behavior from the input type.
type QueryModality string

const (
	// QueryModalityText is a natural-language text query
	QueryModalityText QueryModality = "text"
	// QueryModalityImage is an uploaded-image query
	QueryModalityImage QueryModality = "image"
)

// ImageQueryPlaceholder stands in for the query string on image searches
const ImageQueryPlaceholder = "[uploaded image]"

// Hit is a raw document returned by the search index: the relevance score
// plus the stored fields exactly as the index holds them. Hits are parsed
// into SearchResults at the service boundary, where the schema is enforced.
type Hit struct {
	Score  float64
	Fields map[string]any
}

// SearchResult pairs a matched pet with its relevance score and a
// human-readable explanation. Request-scoped, never persisted.
type SearchResult struct {
	Pet *PetRecord `json:"pet"`
	// Score is the raw boost-weighted index score, not further normalized
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// SearchResponse is the full response to one search call. It is the sole
// contract surfaced to any UI or API layer.
type SearchResponse struct {
	// Query is the original query text, or ImageQueryPlaceholder for image queries
	Query     string        `json:"query"`
	QueryType QueryModality `json:"query_type"`
	// Results aliases Images for simple callers
	Results []*SearchResult `json:"results"`
	// Listings are PetFinder adoption listings (text-rich results)
	Listings []*SearchResult `json:"listings"`
	// Images are the source-balanced, deduplicated results across all sources
	Images       []*SearchResult `json:"images"`
	TotalHits    int             `json:"total_hits"`
	SearchTimeMs float64         `json:"search_time_ms"`
}

// IndexStats reports corpus-level counts for the homepage
type IndexStats struct {
	TotalPets int64 `json:"total_pets"`
}
