package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragcore/internal/compression"
	"github.com/fyrsmithlabs/ragcore/internal/logging"
	"github.com/fyrsmithlabs/ragcore/internal/reranker"
)

const (
	defaultExpansionLevel = 3
	defaultMaxDocuments   = 10
	defaultPoolSize       = 8
)

// AdvancedService adds query expansion, concurrent multi-query search,
// re-ranking and context optimization to a Service.
type AdvancedService struct {
	base      *Service
	pool      *ants.Pool
	optimizer *compression.Optimizer

	poolSize       int
	mediumDocs     int
	expansionLevel int
	maxDocuments   int
}

// AdvancedOption configures an AdvancedService.
type AdvancedOption func(*AdvancedService)

// WithPoolSize sets how many sub-searches run at once.
func WithPoolSize(n int) AdvancedOption {
	return func(a *AdvancedService) {
		if n > 0 {
			a.poolSize = n
		}
	}
}

// WithExpansionLevel sets the default number of query reformulations.
func WithExpansionLevel(n int) AdvancedOption {
	return func(a *AdvancedService) {
		if n >= 0 {
			a.expansionLevel = n
		}
	}
}

// WithMaxDocuments sets the default cap reported as usedDocuments.
func WithMaxDocuments(n int) AdvancedOption {
	return func(a *AdvancedService) {
		if n > 0 {
			a.maxDocuments = n
		}
	}
}

// WithMediumContextDocs sets how many documents the medium context level
// keeps. Ignored when WithOptimizer is also given.
func WithMediumContextDocs(n int) AdvancedOption {
	return func(a *AdvancedService) {
		if n > 0 {
			a.mediumDocs = n
		}
	}
}

// WithOptimizer replaces the context optimizer.
func WithOptimizer(o *compression.Optimizer) AdvancedOption {
	return func(a *AdvancedService) { a.optimizer = o }
}

// NewAdvancedService wraps base. Call Close to release the worker pool.
func NewAdvancedService(base *Service, opts ...AdvancedOption) (*AdvancedService, error) {
	a := &AdvancedService{
		base:           base,
		poolSize:       defaultPoolSize,
		mediumDocs:     compression.DefaultMediumDocs,
		expansionLevel: defaultExpansionLevel,
		maxDocuments:   defaultMaxDocuments,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.optimizer == nil {
		optimizer, err := compression.NewOptimizer(base.generator,
			compression.WithMediumDocs(a.mediumDocs),
			compression.WithLogger(base.logger))
		if err != nil {
			return nil, err
		}
		a.optimizer = optimizer
	}

	pool, err := ants.NewPool(a.poolSize)
	if err != nil {
		return nil, fmt.Errorf("creating search pool: %w", err)
	}
	a.pool = pool
	return a, nil
}

// Close releases the worker pool.
func (a *AdvancedService) Close() {
	a.pool.Release()
}

// RetrieveAdvanced runs the advanced pipeline. Only a failed answer
// generation makes the response unsuccessful.
func (a *AdvancedService) RetrieveAdvanced(ctx context.Context, req *AdvancedRequest) (*AdvancedResponse, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	start := time.Now()
	logger := a.base.logger

	expansionLevel := req.ExpansionLevel
	if expansionLevel <= 0 {
		expansionLevel = a.expansionLevel
	}
	maxDocuments := req.MaxDocuments
	if maxDocuments <= 0 {
		maxDocuments = a.maxDocuments
	}
	strategy := reranker.ParseStrategy(req.RerankingStrategy)
	level := compression.ParseLevel(req.ContextOptimizationLevel)

	requestID := ensureRequestID(req.RequestID)
	ctx = logging.WithRequestID(ctx, requestID)
	ctx, span := a.base.tracer.Start(ctx, "rag.retrieve_advanced", trace.WithAttributes(
		attribute.String("request_id", requestID),
		attribute.String("strategy", string(strategy)),
		attribute.String("level", string(level)),
	))
	defer span.End()

	logger.Info(ctx, "performing advanced rag",
		zap.Int("expansion_level", expansionLevel),
		zap.String("strategy", string(strategy)),
		zap.String("level", string(level)))

	// Expansion and answer prompts leave the process, so they only ever
	// see the sanitized query.
	pii, err := a.base.sanitizer.Sanitize(ctx, req.Query)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		failure := a.base.failure(ctx, requestID, start, fmt.Errorf("query sanitization failed: %w", err))
		return &AdvancedResponse{Response: *failure, ExpandedQueries: []string{}}, nil
	}
	query := pii.ProcessedText

	queries := a.expand(ctx, query, expansionLevel)
	merged, failed := a.searchAll(ctx, req, queries)

	ranked, err := reranker.New(strategy, a.base.embedder, reranker.WithLogger(logger)).Rerank(ctx, query, merged)
	if err != nil {
		logger.Warn(ctx, "re-ranking failed, using merged order", zap.Error(err))
		ranked = merged
	}
	total := len(ranked)

	passages := make([]compression.Passage, len(ranked))
	for i, d := range ranked {
		passages[i] = compression.Passage{Content: d.Content, Score: d.Score}
	}
	optimized := a.optimizer.Optimize(ctx, passages, level)

	resp := &AdvancedResponse{
		Response: Response{
			Context:              optimized,
			Documents:            ranked,
			TotalDocuments:       total,
			UsedDocuments:        min(total, maxDocuments),
			RelevanceScores:      similarities(ranked),
			ConfidenceScore:      AdvancedConfidence(ranked),
			RequestID:            requestID,
			HybridSearchUsed:     req.EnableHybridSearch,
			ContextualSearchUsed: req.EnableContextualSearch,
			OriginalQuery:        query,
			EntityType:           req.EntityType,
			PII:                  pii,
		},
		Query:                    query,
		ExpandedQueries:          queries,
		ExpansionLevel:           expansionLevel,
		RerankingStrategy:        string(strategy),
		ContextOptimizationLevel: string(level),
	}

	answer, genErr := a.base.generator.Generate(ctx, answerPrompt(query, optimized))
	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	resp.Metadata = map[string]interface{}{
		"timestamp":                time.Now().UnixMilli(),
		"processingTimeMs":         resp.ProcessingTimeMs,
		"expansionLevel":           expansionLevel,
		"rerankingStrategy":        string(strategy),
		"contextOptimizationLevel": string(level),
		"maxDocuments":             maxDocuments,
		"enableHybridSearch":       req.EnableHybridSearch,
		"enableContextualSearch":   req.EnableContextualSearch,
		"failedSearches":           failed,
	}

	if genErr != nil {
		span.SetStatus(codes.Error, genErr.Error())
		logger.Error(ctx, "response generation failed", zap.Error(genErr))
		resp.Success = false
		resp.ErrorMessage = fmt.Sprintf("answer generation failed: %v", genErr)
		return resp, nil
	}
	resp.Answer = answer
	resp.Success = true
	span.SetAttributes(attribute.Int("documents", len(ranked)), attribute.Int("failed_searches", failed))
	return resp, nil
}

// expand asks the generator for up to n reformulations of query. The
// original query is always first; a generator failure leaves it alone.
func (a *AdvancedService) expand(ctx context.Context, query string, n int) []string {
	queries := []string{query}
	if n <= 0 {
		return queries
	}

	prompt := fmt.Sprintf("Generate %d related queries for: '%s'. "+
		"Include synonyms, alternative phrasings, and related concepts. "+
		"Return only the queries, one per line.", n, query)
	out, err := a.base.generator.Generate(ctx, prompt)
	if err != nil {
		a.base.logger.Warn(ctx, "query expansion failed, using original query only", zap.Error(err))
		return queries
	}

	for _, line := range strings.Split(out, "\n") {
		q := strings.TrimSpace(line)
		if q == "" || q == query {
			continue
		}
		queries = append(queries, q)
		if len(queries) == n+1 {
			break
		}
	}
	a.base.logger.Debug(ctx, "expanded queries", zap.Strings("queries", queries))
	return queries
}

// searchAll runs one search per query on the pool and waits for all of
// them. Failed searches are dropped. Documents are deduplicated by id in
// query order, keeping the first occurrence.
func (a *AdvancedService) searchAll(ctx context.Context, req *AdvancedRequest, queries []string) ([]Document, int) {
	results := make([][]Document, len(queries))
	ok := make([]bool, len(queries))
	var wg sync.WaitGroup

	for i, q := range queries {
		sub := a.subRequest(req, q, queries[0])
		task := func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					a.base.logger.Error(ctx, "search panicked", zap.String("query", q), zap.Any("panic", r))
				}
			}()

			resp, err := a.base.Search(ctx, sub)
			if err != nil || !resp.Success {
				msg := ""
				if resp != nil {
					msg = resp.ErrorMessage
				}
				a.base.logger.Warn(ctx, "search failed for query",
					zap.String("query", q), zap.Error(err), zap.String("reason", msg))
				return
			}
			results[i] = resp.Documents
			ok[i] = true
		}

		wg.Add(1)
		if err := a.pool.Submit(task); err != nil {
			wg.Done()
			a.base.logger.Warn(ctx, "search not scheduled", zap.String("query", q), zap.Error(err))
		}
	}
	wg.Wait()

	failed := 0
	seen := make(map[string]bool)
	var merged []Document
	for i, docs := range results {
		if !ok[i] {
			failed++
			continue
		}
		for _, d := range docs {
			if seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			merged = append(merged, d)
		}
	}
	if merged == nil {
		merged = []Document{}
	}
	return merged, failed
}

func (a *AdvancedService) subRequest(req *AdvancedRequest, query, original string) *Request {
	sub := &Request{
		Query:                  query,
		EntityType:             req.EntityType,
		Limit:                  req.Limit,
		Threshold:              req.Threshold,
		Filters:                req.Filters,
		Metadata:               req.Metadata,
		RequestID:              req.RequestID,
		EnableHybridSearch:     req.EnableHybridSearch,
		EnableContextualSearch: req.EnableContextualSearch,
	}
	// An optimized query would replace every reformulation's embedding.
	if query != original && optimizedQuery(req.Metadata) != "" {
		md := make(map[string]interface{}, len(req.Metadata))
		for k, v := range req.Metadata {
			if k != optimizedQueryKey {
				md[k] = v
			}
		}
		sub.Metadata = md
	}
	if len(req.Context) > 0 {
		sub.Context = map[string]interface{}{"userContext": req.Context}
	}
	return sub
}

func similarities(docs []Document) []float64 {
	out := make([]float64, len(docs))
	for i, d := range docs {
		out[i] = d.Similarity
	}
	return out
}
