package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragcore/internal/generator"
	"github.com/fyrsmithlabs/ragcore/internal/logging"
	"github.com/fyrsmithlabs/ragcore/internal/sanitize"
	"github.com/fyrsmithlabs/ragcore/internal/vectorstore"
)

const (
	tracerName = "github.com/fyrsmithlabs/ragcore/internal/rag"

	defaultLimit     = 10
	defaultThreshold = 0.7

	optimizedQueryKey = "optimizedQuery"
	noContextMarker   = "No relevant context found."
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Service is the basic retrieval pipeline.
type Service struct {
	embedder  Embedder
	store     vectorstore.Store
	entities  *vectorstore.EntitySyncStore
	sanitizer sanitize.Sanitizer
	generator generator.Generator
	logger    *logging.Logger
	tracer    trace.Tracer

	defaultLimit     int
	defaultThreshold float64
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaultLimit sets the limit used when a request has none.
func WithDefaultLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

// WithDefaultThreshold sets the threshold used when a request has none.
func WithDefaultThreshold(t float64) Option {
	return func(s *Service) {
		if t >= 0 && t <= 1 {
			s.defaultThreshold = t
		}
	}
}

// WithEntitySync routes Index and Remove through an entity-synchronized
// store so the relational search records follow the vectors.
func WithEntitySync(es *vectorstore.EntitySyncStore) Option {
	return func(s *Service) { s.entities = es }
}

// WithTracerProvider records spans on tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewService wires the basic pipeline. A nil sanitizer disables PII
// handling; a nil generator makes every answer fail.
func NewService(embedder Embedder, store vectorstore.Store, sanitizer sanitize.Sanitizer, gen generator.Generator, opts ...Option) *Service {
	if sanitizer == nil {
		sanitizer = sanitize.Noop{}
	}
	if gen == nil {
		gen = generator.Unavailable("no generator configured")
	}
	s := &Service{
		embedder:         embedder,
		store:            store,
		sanitizer:        sanitizer,
		generator:        gen,
		logger:           logging.NewNop(),
		tracer:           otel.Tracer(tracerName),
		defaultLimit:     defaultLimit,
		defaultThreshold: defaultThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("rag")
	return s
}

// retrieval is the outcome of the search half of the pipeline.
type retrieval struct {
	pii            *sanitize.Result
	embeddingQuery string
	documents      []Document
	limit          int
}

// Retrieve runs the full pipeline and generates an answer.
func (s *Service) Retrieve(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	start := time.Now()
	requestID := ensureRequestID(req.RequestID)
	ctx = logging.WithRequestID(ctx, requestID)

	ctx, span := s.tracer.Start(ctx, "rag.retrieve", trace.WithAttributes(
		attribute.String("request_id", requestID),
		attribute.String("entity_type", req.EntityType),
	))
	defer span.End()

	r, err := s.retrieve(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return s.failure(ctx, requestID, start, err), nil
	}

	contextText := BuildContext(r.documents)
	answer, err := s.generator.Generate(ctx, answerPrompt(r.pii.ProcessedText, contextText))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return s.failure(ctx, requestID, start, fmt.Errorf("answer generation failed: %w", err)), nil
	}

	resp := s.response(req, requestID, r)
	resp.Answer = answer
	resp.Context = contextText
	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	span.SetAttributes(attribute.Int("documents", len(resp.Documents)))

	s.logger.Debug(ctx, "rag query completed",
		zap.Int("documents", resp.TotalDocuments),
		zap.Float64("confidence", resp.ConfidenceScore),
		zap.Int64("processing_time_ms", resp.ProcessingTimeMs))
	return resp, nil
}

// Search runs the pipeline up to document retrieval, without building a
// context or generating an answer.
func (s *Service) Search(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	start := time.Now()
	requestID := ensureRequestID(req.RequestID)
	ctx = logging.WithRequestID(ctx, requestID)

	ctx, span := s.tracer.Start(ctx, "rag.search", trace.WithAttributes(
		attribute.String("request_id", requestID),
	))
	defer span.End()

	r, err := s.retrieve(ctx, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return s.failure(ctx, requestID, start, err), nil
	}
	resp := s.response(req, requestID, r)
	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	return resp, nil
}

func (s *Service) retrieve(ctx context.Context, req *Request) (*retrieval, error) {
	pii, err := s.sanitizer.Sanitize(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("query sanitization failed: %w", err)
	}
	embeddingQuery := s.resolveEmbeddingQuery(ctx, req, pii.ProcessedText)

	s.logger.Debug(ctx, "performing rag query",
		zap.String("entity_type", req.EntityType),
		zap.Bool("pii_detected", pii.PIIDetected),
		zap.String("mode", string(pii.Mode)))

	vector, err := s.embedder.Embed(ctx, embeddingQuery)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	threshold := s.defaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	results, err := s.search(ctx, req, vector, limit, threshold)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	docs := make([]Document, 0, len(results))
	for _, res := range results {
		doc := documentFromResult(res)
		if !MatchFilters(doc.Metadata, req.Filters) {
			continue
		}
		docs = append(docs, doc)
	}

	return &retrieval{pii: pii, embeddingQuery: embeddingQuery, documents: docs, limit: limit}, nil
}

// search picks the store call. Hybrid and contextual modes both run the
// plain vector search until a dedicated implementation exists.
func (s *Service) search(ctx context.Context, req *Request, vector []float32, limit int, threshold float64) ([]vectorstore.SearchResult, error) {
	if req.EnableHybridSearch || req.EnableContextualSearch {
		s.logger.Debug(ctx, "hybrid/contextual search requested, using vector search",
			zap.Bool("hybrid", req.EnableHybridSearch),
			zap.Bool("contextual", req.EnableContextualSearch))
	}
	if req.EntityType != "" {
		return s.store.SearchWithFilter(ctx, vector, map[string]interface{}{"entityType": req.EntityType}, limit, threshold)
	}
	return s.store.Search(ctx, vector, limit, threshold)
}

// resolveEmbeddingQuery prefers a caller-supplied optimized query, which
// is sanitized like the main query. If that sanitization fails the
// optimized query is used as given.
func (s *Service) resolveEmbeddingQuery(ctx context.Context, req *Request, sanitized string) string {
	optimized := optimizedQuery(req.Metadata)
	if optimized == "" {
		return sanitized
	}
	res, err := s.sanitizer.Sanitize(ctx, optimized)
	if err != nil {
		s.logger.Debug(ctx, "unable to sanitize optimized query, using as provided", zap.Error(err))
		return optimized
	}
	return res.ProcessedText
}

func (s *Service) response(req *Request, requestID string, r *retrieval) *Response {
	scores := make([]float64, len(r.documents))
	for i, d := range r.documents {
		scores[i] = d.Similarity
	}

	metadata := make(map[string]interface{}, len(req.Metadata)+3)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["piiDetection"] = map[string]interface{}{
		"detected":                r.pii.PIIDetected,
		"mode":                    string(r.pii.Mode),
		"detectionsCount":         len(r.pii.Detections),
		"encryptedOriginalStored": r.pii.EncryptedOriginal != "",
	}
	metadata["optimizedQueryProvided"] = optimizedQuery(req.Metadata) != ""
	metadata["embeddingQuery"] = r.embeddingQuery

	return &Response{
		Documents:            r.documents,
		TotalDocuments:       len(r.documents),
		UsedDocuments:        min(len(r.documents), r.limit),
		RelevanceScores:      scores,
		ConfidenceScore:      Confidence(r.documents),
		RequestID:            requestID,
		Success:              true,
		HybridSearchUsed:     req.EnableHybridSearch,
		ContextualSearchUsed: req.EnableContextualSearch,
		OriginalQuery:        r.pii.ProcessedText,
		EntityType:           req.EntityType,
		PII:                  r.pii,
		Metadata:             metadata,
	}
}

func (s *Service) failure(ctx context.Context, requestID string, start time.Time, err error) *Response {
	s.logger.Error(ctx, "rag query failed", zap.Error(err))
	return &Response{
		Documents:        []Document{},
		RelevanceScores:  []float64{},
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		RequestID:        requestID,
		Success:          false,
		ErrorMessage:     err.Error(),
	}
}

// Index embeds content and stores it under the entity's vector id.
func (s *Service) Index(ctx context.Context, entityType, entityID, content string, metadata map[string]interface{}) error {
	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("failed to index %s:%s: %w", entityType, entityID, err)
	}

	entity := vectorstore.Entity{Type: entityType, ID: entityID, Content: content, Vector: vector, Metadata: metadata}
	if s.entities != nil {
		if err := s.entities.IndexEntity(ctx, entity); err != nil {
			return fmt.Errorf("failed to index %s:%s: %w", entityType, entityID, err)
		}
	} else {
		if entityType == "" || entityID == "" {
			return fmt.Errorf("%w: entity type and id are required", vectorstore.ErrValidation)
		}
		stored := make(map[string]interface{}, len(metadata)+3)
		for k, v := range metadata {
			stored[k] = v
		}
		stored["entityType"] = entityType
		stored["entityId"] = entityID
		stored["content"] = content
		if err := s.store.Store(ctx, vectorstore.VectorID(entityType, entityID), vector, stored); err != nil {
			return fmt.Errorf("failed to index %s:%s: %w", entityType, entityID, err)
		}
	}

	s.logger.Debug(ctx, "content indexed", zap.String("entity_type", entityType), zap.String("entity_id", entityID))
	return nil
}

// Remove deletes an entity's vector and, with entity sync, its search
// record.
func (s *Service) Remove(ctx context.Context, entityType, entityID string) error {
	if s.entities != nil {
		return s.entities.RemoveEntity(ctx, entityType, entityID)
	}
	if _, err := s.store.Delete(ctx, vectorstore.VectorID(entityType, entityID)); err != nil {
		return fmt.Errorf("failed to remove %s:%s: %w", entityType, entityID, err)
	}
	return nil
}

// Statistics reports store and embedder diagnostics.
func (s *Service) Statistics() map[string]interface{} {
	storeStats := s.store.Stats()
	stats := map[string]interface{}{
		"vectorDatabase": storeStats,
		"totalIndexed":   storeStats["vectorCount"],
	}
	if st, ok := s.embedder.(interface{ Status() map[string]interface{} }); ok {
		stats["embedding"] = st.Status()
	}
	return stats
}

// BuildContext numbers each document's content with its score. With no
// documents it returns a fixed marker instead.
func BuildContext(docs []Document) string {
	if len(docs) == 0 {
		return noContextMarker
	}
	var b strings.Builder
	b.WriteString("Relevant Context:\n\n")
	for i, d := range docs {
		fmt.Fprintf(&b, "%d. %s (Score: %.3f)\n", i+1, d.Content, d.Score)
	}
	return b.String()
}

func answerPrompt(query, contextText string) string {
	return fmt.Sprintf("Based on the following context, answer the question: %s\n\n"+
		"Context:\n%s\n\n"+
		"Provide a comprehensive, accurate answer based on the context provided.", query, contextText)
}

func documentFromResult(res vectorstore.SearchResult) Document {
	md := res.Record.Metadata
	doc := Document{
		ID:         res.Record.ID,
		Content:    stringField(md, "content"),
		Title:      stringField(md, "title"),
		Type:       stringField(md, "entityType"),
		Score:      res.Similarity,
		Similarity: res.Similarity,
		Metadata:   md,
	}
	if doc.Type == "" {
		doc.Type = stringField(md, "type")
	}
	return doc
}

func stringField(md map[string]interface{}, key string) string {
	if s, ok := md[key].(string); ok {
		return s
	}
	return ""
}

func optimizedQuery(md map[string]interface{}) string {
	if s, ok := md[optimizedQueryKey].(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return ""
}

func ensureRequestID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
