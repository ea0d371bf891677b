package models

// RecommendRequest is the body of POST /recommend.
type RecommendRequest struct {
	Query string `json:"query" validate:"required,max=10000"`
	// Explain adds the matched documents and their scores to the response.
	Explain bool `json:"explain,omitempty"`
}

// RecommendMatch is one matched corpus document.
type RecommendMatch struct {
	Rank     int     `json:"rank"`
	Headline string  `json:"headline"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// RecommendResponse carries the categories of the most similar corpus documents,
// most similar first.
type RecommendResponse struct {
	Query      string           `json:"query"`
	Categories []string         `json:"categories"`
	Matches    []RecommendMatch `json:"matches,omitempty"`
	QueryTime  int64            `json:"query_time_ms"`
}

// StatusResponse is the response of GET /status.
type StatusResponse struct {
	Users           int         `json:"users"`
	Articles        int         `json:"articles"`
	IndexedArticles uint64      `json:"indexed_articles"`
	DiskUsageBytes  int64       `json:"disk_usage_bytes"`
	Model           ModelStatus `json:"model"`
}

// ModelStatus describes the loaded recommendation model.
type ModelStatus struct {
	Loaded         bool     `json:"loaded"`
	Source         string   `json:"source"`
	Documents      int      `json:"documents"`
	Categories     []string `json:"categories,omitempty"`
	VocabularySize int      `json:"vocabulary_size"`
	TopK           int      `json:"top_k"`
	BuiltAt        string   `json:"built_at,omitempty"`
	LastError      string   `json:"last_error,omitempty"`
}
