package vectorstore

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

const memoryBackend = "memory"

// MemoryStore keeps records in a map. Point lookups are O(1); searches scan
// every record.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	stats   searchStats
	logger  *zap.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		records: make(map[string]*Record),
		logger:  logger,
	}
}

// Store inserts or replaces a record.
func (s *MemoryStore) Store(_ context.Context, id string, vector []float32, metadata map[string]interface{}) error {
	if err := validateRecord(id, vector); err != nil {
		recordOperation(memoryBackend, "store", err)
		return err
	}

	s.mu.Lock()
	s.put(id, vector, metadata)
	n := len(s.records)
	s.mu.Unlock()

	recordOperation(memoryBackend, "store", nil)
	Records.WithLabelValues(memoryBackend).Set(float64(n))
	return nil
}

// put must be called with s.mu held.
func (s *MemoryStore) put(id string, vector []float32, metadata map[string]interface{}) {
	now := timeNow()
	rec := &Record{
		ID:        id,
		Vector:    copyVector(vector),
		Metadata:  copyMetadata(metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, ok := s.records[id]; ok {
		rec.CreatedAt = existing.CreatedAt
	}
	s.records[id] = rec
}

// BatchStore stores every valid record under one lock. Invalid records are
// logged and skipped.
func (s *MemoryStore) BatchStore(_ context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	start := timeNow()

	s.mu.Lock()
	stored := 0
	for _, rec := range records {
		if err := validateRecord(rec.ID, rec.Vector); err != nil {
			s.logger.Warn("skipping invalid vector record", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		s.put(rec.ID, rec.Vector, rec.Metadata)
		stored++
	}
	n := len(s.records)
	s.mu.Unlock()

	recordOperation(memoryBackend, "batch_store", nil)
	Records.WithLabelValues(memoryBackend).Set(float64(n))
	s.logger.Debug("batch stored vectors",
		zap.Int("requested", len(records)),
		zap.Int("stored", stored),
		zap.Duration("duration", timeNow().Sub(start)))
	return nil
}

// Get returns a copy of the record with id.
func (s *MemoryStore) Get(_ context.Context, id string) (*Record, bool, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	var out Record
	if ok {
		out = copyRecord(*rec)
	}
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	return &out, true, nil
}

// Delete removes a record.
func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	_, ok := s.records[id]
	delete(s.records, id)
	n := len(s.records)
	s.mu.Unlock()

	recordOperation(memoryBackend, "delete", nil)
	Records.WithLabelValues(memoryBackend).Set(float64(n))
	return ok, nil
}

// BatchDelete removes records and returns how many existed.
func (s *MemoryStore) BatchDelete(_ context.Context, ids []string) (int, error) {
	s.mu.Lock()
	deleted := 0
	for _, id := range ids {
		if _, ok := s.records[id]; ok {
			delete(s.records, id)
			deleted++
		}
	}
	n := len(s.records)
	s.mu.Unlock()

	recordOperation(memoryBackend, "batch_delete", nil)
	Records.WithLabelValues(memoryBackend).Set(float64(n))
	return deleted, nil
}

// Search ranks every record against query.
func (s *MemoryStore) Search(ctx context.Context, query []float32, limit int, threshold float64) ([]SearchResult, error) {
	return s.SearchWithFilter(ctx, query, nil, limit, threshold)
}

// SearchWithFilter ranks records whose metadata matches filter.
func (s *MemoryStore) SearchWithFilter(_ context.Context, query []float32, filter map[string]interface{}, limit int, threshold float64) ([]SearchResult, error) {
	if err := validateQuery(query); err != nil {
		recordOperation(memoryBackend, "search", err)
		return nil, err
	}
	start := timeNow()

	s.mu.RLock()
	candidates := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		candidates = append(candidates, *rec)
	}
	results := rank(query, candidates, filter, limit, threshold, memoryBackend)
	for i := range results {
		results[i].Record = copyRecord(results[i].Record)
	}
	s.mu.RUnlock()

	elapsed := timeNow().Sub(start)
	s.stats.observe(elapsed)
	recordSearch(memoryBackend, elapsed, nil)

	s.logger.Debug("memory search",
		zap.Int("results", len(results)),
		zap.Int("limit", limit),
		zap.Float64("threshold", threshold),
		zap.Duration("duration", elapsed))
	return results, nil
}

// Clear removes every record and resets statistics.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.records = make(map[string]*Record)
	s.mu.Unlock()

	s.stats.reset()
	recordOperation(memoryBackend, "clear", nil)
	Records.WithLabelValues(memoryBackend).Set(0)
	return nil
}

// Stats returns counts, latency and an estimated memory footprint.
func (s *MemoryStore) Stats() map[string]interface{} {
	s.mu.RLock()
	var bytes int64
	dims := 0
	for _, rec := range s.records {
		bytes += estimateRecordSize(rec)
		if dims == 0 {
			dims = len(rec.Vector)
		}
	}
	count := len(s.records)
	s.mu.RUnlock()

	stats := map[string]interface{}{
		"type":                      memoryBackend,
		"vectorCount":               count,
		"estimatedMemoryUsageBytes": bytes,
		"estimatedMemoryUsageMB":    float64(bytes) / (1024 * 1024),
	}
	if dims > 0 {
		stats["vectorDimensions"] = dims
	}
	s.stats.fill(stats)
	return stats
}

// estimateRecordSize is a rough per-record footprint: id bytes, four bytes
// per component, fifty per metadata entry and a fixed overhead.
func estimateRecordSize(rec *Record) int64 {
	return int64(len(rec.ID)) + int64(len(rec.Vector))*4 + int64(len(rec.Metadata))*50 + 64
}

// Healthy always reports true.
func (s *MemoryStore) Healthy(context.Context) bool { return true }

// Type returns "memory".
func (s *MemoryStore) Type() string { return memoryBackend }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
