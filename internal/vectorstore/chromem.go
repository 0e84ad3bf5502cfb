package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var chromemTracer = otel.Tracer("ragcore.vectorstore.chromem")

const (
	chromemBackend = "chromem"

	vectorField    = "__vector"
	createdAtField = "__created_at"
	updatedAtField = "__updated_at"
	metaPrefix     = "meta_"
)

// routingEmbedding is the constant embedding every chromem document
// carries. chromem is used as a durable document store only; ranking
// happens on the vector stored in metadata.
var routingEmbedding = []float32{1}

// ChromemConfig holds configuration for the durable chromem-go backend.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	// Default: "~/.config/ragcore/vectorstore"
	Path string

	// Compress enables gzip compression for stored documents.
	Compress bool

	// Collection is the chromem collection holding all records.
	// Default: "ragcore_vectors"
	Collection string
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "~/.config/ragcore/vectorstore"
	}
	if c.Collection == "" {
		c.Collection = "ragcore_vectors"
	}
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	return ValidateCollectionName(c.Collection)
}

// ChromemStore is a durable Store on top of chromem-go's persistent DB.
//
// Each record is one chromem document. Its metadata carries the vector as
// comma-delimited text, the timestamps and every metadata entry as a
// JSON-encoded meta_<key> field, so values keep their JSON types across
// restarts. chromem persists each write before returning, so reads in the
// same process always observe prior writes.
type ChromemStore struct {
	db     *chromem.DB
	config ChromemConfig
	path   string
	logger *zap.Logger
	stats  searchStats

	// mu orders writes against searches: a search sizes its chromem query
	// from the collection count and must not race a concurrent delete.
	mu         sync.RWMutex
	collection *chromem.Collection
}

// NewChromemStore opens (or creates) the store at config.Path.
func NewChromemStore(config ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	path, err := expandPath(config.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: expanding path: %v", ErrStorage, err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating directory %s: %v", ErrStorage, path, err)
	}

	db, err := chromem.NewPersistentDB(path, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("%w: opening chromem DB: %v", ErrStorage, err)
	}

	s := &ChromemStore{db: db, config: config, path: path, logger: logger}
	if s.collection, err = s.openCollection(); err != nil {
		return nil, err
	}

	logger.Info("chromem store initialized",
		zap.String("path", path),
		zap.Bool("compress", config.Compress),
		zap.String("collection", config.Collection),
		zap.Int("records", s.collection.Count()))
	return s, nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// noEmbedding stops chromem from falling back to its default OpenAI
// embedder; every document arrives with routingEmbedding.
func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("chromem store does not embed text")
}

func (s *ChromemStore) openCollection() (*chromem.Collection, error) {
	col, err := s.db.GetOrCreateCollection(s.config.Collection, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("%w: opening collection %s: %v", ErrStorage, s.config.Collection, err)
	}
	return col, nil
}

// Store writes the record as a chromem document.
func (s *ChromemStore) Store(ctx context.Context, id string, vector []float32, metadata map[string]interface{}) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Store")
	defer span.End()
	span.SetAttributes(attribute.String("id", id), attribute.Int("dimensions", len(vector)))

	if err := validateRecord(id, vector); err != nil {
		recordOperation(chromemBackend, "store", err)
		return err
	}

	s.mu.Lock()
	err := s.put(ctx, Record{ID: id, Vector: vector, Metadata: metadata})
	n := s.collection.Count()
	s.mu.Unlock()

	recordOperation(chromemBackend, "store", err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	Records.WithLabelValues(chromemBackend).Set(float64(n))
	return nil
}

// put must be called with s.mu held.
func (s *ChromemStore) put(ctx context.Context, rec Record) error {
	now := timeNow()
	rec.CreatedAt, rec.UpdatedAt = now, now
	if existing, err := s.collection.GetByID(ctx, rec.ID); err == nil {
		if prev, err := decodeDocument(existing.ID, existing.Metadata); err == nil {
			rec.CreatedAt = prev.CreatedAt
		}
	}

	meta, err := encodeMetadata(rec)
	if err != nil {
		return err
	}
	doc := chromem.Document{
		ID:        rec.ID,
		Metadata:  meta,
		Embedding: copyVector(routingEmbedding),
		Content:   rec.ID,
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrStorage, rec.ID, err)
	}
	return nil
}

// BatchStore writes every valid record. Invalid records are logged and
// skipped; the first storage failure aborts the batch.
func (s *ChromemStore) BatchStore(ctx context.Context, records []Record) error {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.BatchStore")
	defer span.End()
	span.SetAttributes(attribute.Int("record_count", len(records)))

	s.mu.Lock()
	var err error
	stored := 0
	for _, rec := range records {
		if verr := validateRecord(rec.ID, rec.Vector); verr != nil {
			s.logger.Warn("skipping invalid vector record", zap.String("id", rec.ID), zap.Error(verr))
			continue
		}
		if err = s.put(ctx, rec); err != nil {
			break
		}
		stored++
	}
	n := s.collection.Count()
	s.mu.Unlock()

	recordOperation(chromemBackend, "batch_store", err)
	Records.WithLabelValues(chromemBackend).Set(float64(n))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.Int("stored", stored))
	return nil
}

// Get reads one record.
func (s *ChromemStore) Get(ctx context.Context, id string) (*Record, bool, error) {
	if id == "" {
		return nil, false, nil
	}
	s.mu.RLock()
	doc, err := s.collection.GetByID(ctx, id)
	s.mu.RUnlock()
	if err != nil {
		return nil, false, nil
	}

	rec, err := decodeDocument(doc.ID, doc.Metadata)
	if err != nil {
		return nil, false, err
	}
	return &rec, true, nil
}

// Delete removes one record.
func (s *ChromemStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.BatchDelete(ctx, []string{id})
	return n == 1, err
}

// BatchDelete removes records and returns how many existed.
func (s *ChromemStore) BatchDelete(ctx context.Context, ids []string) (int, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.BatchDelete")
	defer span.End()
	span.SetAttributes(attribute.Int("id_count", len(ids)))

	s.mu.Lock()
	existing := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, err := s.collection.GetByID(ctx, id); err == nil {
			existing = append(existing, id)
		}
	}
	var err error
	if len(existing) > 0 {
		if derr := s.collection.Delete(ctx, nil, nil, existing...); derr != nil {
			err = fmt.Errorf("%w: deleting %d records: %v", ErrStorage, len(existing), derr)
		}
	}
	n := s.collection.Count()
	s.mu.Unlock()

	recordOperation(chromemBackend, "delete", err)
	Records.WithLabelValues(chromemBackend).Set(float64(n))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	return len(existing), nil
}

// Search ranks every record against query.
func (s *ChromemStore) Search(ctx context.Context, query []float32, limit int, threshold float64) ([]SearchResult, error) {
	return s.SearchWithFilter(ctx, query, nil, limit, threshold)
}

// SearchWithFilter enumerates candidates through chromem, prefiltering on
// string and boolean filter values, then re-ranks by cosine similarity.
func (s *ChromemStore) SearchWithFilter(ctx context.Context, query []float32, filter map[string]interface{}, limit int, threshold float64) ([]SearchResult, error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", limit), attribute.Float64("threshold", threshold))

	if err := validateQuery(query); err != nil {
		recordOperation(chromemBackend, "search", err)
		return nil, err
	}
	start := timeNow()

	candidates, err := s.candidates(ctx, filter)
	var results []SearchResult
	if err == nil {
		results = rank(query, candidates, filter, limit, threshold, chromemBackend)
	}

	elapsed := timeNow().Sub(start)
	s.stats.observe(elapsed)
	recordSearch(chromemBackend, elapsed, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("results_count", len(results)))
	s.logger.Debug("chromem search",
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(results)),
		zap.Duration("duration", elapsed))
	return results, nil
}

func (s *ChromemStore) candidates(ctx context.Context, filter map[string]interface{}) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	found, err := s.collection.QueryEmbedding(ctx, routingEmbedding, count, whereClause(filter), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: scanning collection: %v", ErrStorage, err)
	}

	records := make([]Record, 0, len(found))
	for _, r := range found {
		rec, err := decodeDocument(r.ID, r.Metadata)
		if err != nil {
			s.logger.Warn("skipping undecodable record", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// whereClause pushes string and boolean equality down to chromem. Numbers
// are left to MatchesFilter, which compares them by value.
func whereClause(filter map[string]interface{}) map[string]string {
	var where map[string]string
	for key, value := range filter {
		switch value.(type) {
		case string, bool:
			encoded, err := json.Marshal(value)
			if err != nil {
				continue
			}
			if where == nil {
				where = make(map[string]string, len(filter))
			}
			where[metaPrefix+key] = string(encoded)
		}
	}
	return where
}

// Clear drops and recreates the collection.
func (s *ChromemStore) Clear(ctx context.Context) error {
	_, span := chromemTracer.Start(ctx, "ChromemStore.Clear")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.config.Collection); err != nil {
		err = fmt.Errorf("%w: clearing collection: %v", ErrStorage, err)
		recordOperation(chromemBackend, "clear", err)
		return err
	}
	col, err := s.openCollection()
	if err != nil {
		recordOperation(chromemBackend, "clear", err)
		return err
	}
	s.collection = col
	s.stats.reset()
	recordOperation(chromemBackend, "clear", nil)
	Records.WithLabelValues(chromemBackend).Set(0)
	return nil
}

// Stats returns counts and search latency.
func (s *ChromemStore) Stats() map[string]interface{} {
	s.mu.RLock()
	count := s.collection.Count()
	s.mu.RUnlock()

	stats := map[string]interface{}{
		"type":        chromemBackend,
		"vectorCount": count,
		"indexPath":   s.path,
		"collection":  s.config.Collection,
	}
	s.stats.fill(stats)
	return stats
}

// Healthy reports whether the collection is open.
func (s *ChromemStore) Healthy(context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil && s.collection != nil
}

// Type returns "chromem".
func (s *ChromemStore) Type() string { return chromemBackend }

// Close is a no-op: chromem persists every write as it happens.
func (s *ChromemStore) Close() error {
	s.logger.Info("chromem store closed")
	return nil
}

func encodeMetadata(rec Record) (map[string]string, error) {
	meta := make(map[string]string, len(rec.Metadata)+3)
	meta[vectorField] = encodeVector(rec.Vector)
	meta[createdAtField] = rec.CreatedAt.UTC().Format(time.RFC3339Nano)
	meta[updatedAtField] = rec.UpdatedAt.UTC().Format(time.RFC3339Nano)
	for k, v := range rec.Metadata {
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: metadata %q is not serializable: %v", ErrValidation, k, err)
		}
		meta[metaPrefix+k] = string(encoded)
	}
	return meta, nil
}

func decodeDocument(id string, meta map[string]string) (Record, error) {
	rec := Record{ID: id}
	vec, err := decodeVector(meta[vectorField])
	if err != nil {
		return Record{}, fmt.Errorf("%w: record %s: %v", ErrStorage, id, err)
	}
	rec.Vector = vec
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, meta[createdAtField])
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, meta[updatedAtField])

	for k, v := range meta {
		if !strings.HasPrefix(k, metaPrefix) {
			continue
		}
		var value interface{}
		if err := json.Unmarshal([]byte(v), &value); err != nil {
			value = v
		}
		if rec.Metadata == nil {
			rec.Metadata = make(map[string]interface{})
		}
		rec.Metadata[strings.TrimPrefix(k, metaPrefix)] = value
	}
	return rec, nil
}

func encodeVector(v []float32) string {
	var b strings.Builder
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	}
	return b.String()
}

func decodeVector(text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("missing vector")
	}
	parts := strings.Split(text, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

var _ Store = (*ChromemStore)(nil)
