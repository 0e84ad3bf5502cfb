// Package reranker reorders retrieved documents using a secondary signal.
package reranker

import (
	"context"
	"errors"
	"strings"

	"github.com/fyrsmithlabs/ragcore/internal/logging"
)

// ErrNilContext is returned when a nil context is passed to Rerank.
var ErrNilContext = errors.New("context cannot be nil")

// Document is a retrieved document as seen by the orchestrator.
type Document struct {
	ID         string                 `json:"id"`
	Content    string                 `json:"content"`
	Title      string                 `json:"title,omitempty"`
	Type       string                 `json:"type,omitempty"`
	Score      float64                `json:"score"`
	Similarity float64                `json:"similarity"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Strategy selects a re-ranking algorithm.
type Strategy string

const (
	StrategyScore     Strategy = "score"
	StrategySemantic  Strategy = "semantic"
	StrategyHybrid    Strategy = "hybrid"
	StrategyDiversity Strategy = "diversity"
	StrategyLexical   Strategy = "lexical"
)

// ParseStrategy maps a name to a Strategy. Unknown and empty names fall
// back to StrategyScore.
func ParseStrategy(s string) Strategy {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategySemantic:
		return StrategySemantic
	case StrategyHybrid:
		return StrategyHybrid
	case StrategyDiversity:
		return StrategyDiversity
	case StrategyLexical:
		return StrategyLexical
	default:
		return StrategyScore
	}
}

// Reranker reorders documents for a query.
//
// Implementations return a new slice holding the same documents. The
// input slice and its documents are never modified.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []Document) ([]Document, error)
}

// Embedder is the part of an embedding provider the semantic strategy needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Option configures a reranker built by New.
type Option func(*options)

type options struct {
	logger *logging.Logger
}

// WithLogger sets the logger used to report degraded re-ranking.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New returns the Reranker for strategy. The semantic strategy requires
// an embedder; without one it behaves like StrategyScore.
func New(strategy Strategy, embedder Embedder, opts ...Option) Reranker {
	o := options{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.Named("reranker")

	switch strategy {
	case StrategySemantic:
		if embedder == nil {
			return ScoreReranker{}
		}
		return &SemanticReranker{embedder: embedder, logger: logger}
	case StrategyHybrid:
		return HybridReranker{}
	case StrategyDiversity:
		return DiversityReranker{}
	case StrategyLexical:
		return NewLexicalReranker()
	default:
		return ScoreReranker{}
	}
}

func cloneDocs(docs []Document) []Document {
	out := make([]Document, len(docs))
	copy(out, docs)
	return out
}
