package http

import "github.com/fyrsmithlabs/ragcore/internal/vectorstore"

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse is the response body for GET /v1/status.
type StatusResponse struct {
	Status      string                 `json:"status"`
	Embedding   map[string]interface{} `json:"embedding"`
	VectorStore map[string]interface{} `json:"vectorStore"`
	Advanced    bool                   `json:"advancedEnabled"`
}

// EmbedRequest is the request body for POST /v1/embed. Text and Texts
// may be combined; Text is embedded first.
type EmbedRequest struct {
	Text  string   `json:"text,omitempty"`
	Texts []string `json:"texts,omitempty"`
}

// EmbedResponse is the response body for POST /v1/embed.
type EmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Dimension  int         `json:"dimension"`
	Count      int         `json:"count"`
}

// StoreVectorRequest is the request body for POST /v1/vectors.
type StoreVectorRequest struct {
	ID       string                 `json:"id"`
	Vector   []float32              `json:"vector"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// VectorSearchRequest is the request body for POST /v1/vectors/search.
// When Vector is empty, Text is embedded and used as the query.
type VectorSearchRequest struct {
	Vector    []float32              `json:"vector,omitempty"`
	Text      string                 `json:"text,omitempty"`
	Limit     int                    `json:"limit,omitempty"`
	Threshold float64                `json:"threshold,omitempty"`
	Filter    map[string]interface{} `json:"filter,omitempty"`
}

// VectorSearchResponse is the response body for POST /v1/vectors/search.
type VectorSearchResponse struct {
	Results []vectorstore.SearchResult `json:"results"`
	Count   int                        `json:"count"`
}

// DeleteResponse reports whether a deleted record existed.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// IndexRequest is the request body for POST /v1/documents.
type IndexRequest struct {
	Type     string                 `json:"type"`
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// AnalyzeRequest is the request body for POST /v1/sanitize/analyze.
type AnalyzeRequest struct {
	Text string `json:"text"`
}
