package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
	ScoreField   string // alias for the distance field, e.g. __embedding_score
}

// ListQuery is the input for filtered listing via FT.SEARCH.
type ListQuery struct {
	IndexName    string
	Query        string // FT query string, e.g. "@total_amount:[100 inf]"
	Offset       int
	Limit        int
	ReturnFields []string
	SortBy       string // optional numeric field for deterministic ordering
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64 // KNN: raw distance, ascending = nearer
	Fields map[string]string
}
