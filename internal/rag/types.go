package rag

import (
	"errors"

	"github.com/fyrsmithlabs/ragcore/internal/reranker"
	"github.com/fyrsmithlabs/ragcore/internal/sanitize"
)

// ErrNilRequest is returned when Retrieve is called without a request.
var ErrNilRequest = errors.New("rag: request is nil")

// Document is a retrieved document.
type Document = reranker.Document

// Request is a retrieval request.
type Request struct {
	Query string `json:"query"`
	// EntityType restricts the search to one entity type.
	EntityType string `json:"entityType,omitempty"`
	// Limit caps the number of documents; zero uses the service default.
	Limit int `json:"limit,omitempty"`
	// Threshold is the minimum similarity; nil uses the service default.
	Threshold *float64 `json:"threshold,omitempty"`
	// Filters are matched against document metadata with MatchFilters.
	Filters map[string]interface{} `json:"filters,omitempty"`
	// Context is caller-supplied context for contextual search.
	Context map[string]interface{} `json:"context,omitempty"`
	// Metadata is copied into the response. An "optimizedQuery" string
	// replaces the query for embedding.
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	RequestID string                 `json:"requestId,omitempty"`

	// Both modes currently run the plain vector search.
	EnableHybridSearch     bool `json:"enableHybridSearch,omitempty"`
	EnableContextualSearch bool `json:"enableContextualSearch,omitempty"`
}

// Response is the result of a retrieval.
type Response struct {
	Answer               string                 `json:"answer"`
	Context              string                 `json:"context"`
	Documents            []Document             `json:"documents"`
	TotalDocuments       int                    `json:"totalDocuments"`
	UsedDocuments        int                    `json:"usedDocuments"`
	RelevanceScores      []float64              `json:"relevanceScores"`
	ConfidenceScore      float64                `json:"confidenceScore"`
	ProcessingTimeMs     int64                  `json:"processingTimeMs"`
	RequestID            string                 `json:"requestId,omitempty"`
	Success              bool                   `json:"success"`
	ErrorMessage         string                 `json:"errorMessage,omitempty"`
	HybridSearchUsed     bool                   `json:"hybridSearchUsed"`
	ContextualSearchUsed bool                   `json:"contextualSearchUsed"`
	OriginalQuery        string                 `json:"originalQuery,omitempty"`
	EntityType           string                 `json:"entityType,omitempty"`
	PII                  *sanitize.Result       `json:"piiDetection,omitempty"`
	Metadata             map[string]interface{} `json:"metadata,omitempty"`
}

// AdvancedRequest extends Request with expansion, re-ranking and context
// optimization controls. Limit bounds each sub-search.
type AdvancedRequest struct {
	Request

	// ExpansionLevel is how many reformulations to ask for; zero uses the
	// service default.
	ExpansionLevel int `json:"expansionLevel,omitempty"`
	// RerankingStrategy is score, semantic, hybrid, diversity or lexical.
	RerankingStrategy string `json:"rerankingStrategy,omitempty"`
	// ContextOptimizationLevel is low, medium or high.
	ContextOptimizationLevel string `json:"contextOptimizationLevel,omitempty"`
	// MaxDocuments caps UsedDocuments. Every re-ranked document is still
	// returned and fed to context optimization.
	MaxDocuments int `json:"maxDocuments,omitempty"`
}

// AdvancedResponse is the result of an advanced retrieval.
type AdvancedResponse struct {
	Response

	Query                    string   `json:"query"`
	ExpandedQueries          []string `json:"expandedQueries"`
	ExpansionLevel           int      `json:"expansionLevel"`
	RerankingStrategy        string   `json:"rerankingStrategy"`
	ContextOptimizationLevel string   `json:"contextOptimizationLevel"`
}
