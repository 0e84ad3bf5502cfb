package vectorstore

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var qdrantTracer = otel.Tracer("ragcore.vectorstore.qdrant")

const (
	qdrantBackend = "qdrant"

	payloadID        = "_id"
	payloadCreatedAt = "_created_at"
	payloadUpdatedAt = "_updated_at"

	// maxQdrantLimit caps server-side result sizes.
	maxQdrantLimit = 10000
)

// collectionNamePattern validates collection names.
// Pattern: lowercase letters, numbers, underscores, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateCollectionName validates a collection name.
// Rejects: uppercase, special chars, path traversal, spaces.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match pattern ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// QdrantConfig holds configuration for the Qdrant gRPC backend.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	Host string

	// Port is the Qdrant gRPC port (6334), not the HTTP port.
	Port int

	// Collection holds all records.
	Collection string

	// VectorSize is the dimensionality of stored vectors.
	VectorSize uint64

	// UseTLS enables TLS encryption for the gRPC connection.
	UseTLS bool

	// MaxRetries is the maximum number of retry attempts for transient failures.
	// Default: 3
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled on each retry.
	// Default: 1 second
	RetryBackoff time.Duration

	// MaxMessageSize is the maximum gRPC message size in bytes.
	// Default: 50MB
	MaxMessageSize int

	// CircuitBreakerThreshold is the number of failures before opening circuit.
	// Default: 5
	CircuitBreakerThreshold int
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return ValidateCollectionName(c.Collection)
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Collection == "" {
		c.Collection = "ragcore_vectors"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
	if c.CircuitBreakerThreshold == 0 {
		c.CircuitBreakerThreshold = 5
	}
}

// IsTransientError checks if an error is transient (should retry).
// Returns true for network timeouts and temporary unavailability.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// qdrantClient is the subset of *qdrant.Client the store uses.
type qdrantClient interface {
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, collectionName string) error
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Get(ctx context.Context, request *qdrant.GetPoints) ([]*qdrant.RetrievedPoint, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error)
	Close() error
}

// QdrantStore is a Store backed by a remote Qdrant collection.
//
// Record ids map to deterministic UUID point ids; the original id is kept in
// the payload. Metadata entries are stored as meta_<key> payload fields so
// they cannot collide with bookkeeping fields.
type QdrantStore struct {
	client qdrantClient
	config QdrantConfig
	logger *zap.Logger
	stats  searchStats

	circuitBreaker struct {
		failures int
		lastFail time.Time
		mu       sync.Mutex
	}
}

// NewQdrantStore connects, health-checks and ensures the collection exists.
func NewQdrantStore(config QdrantConfig, logger *zap.Logger) (*QdrantStore, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if !config.UseTLS {
		logger.Warn("qdrant gRPC using plaintext (TLS disabled)")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store, err := newQdrantStoreWithClient(ctx, config, client, logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return store, nil
}

func newQdrantStoreWithClient(ctx context.Context, config QdrantConfig, client qdrantClient, logger *zap.Logger) (*QdrantStore, error) {
	s := &QdrantStore{client: client, config: config, logger: logger}

	if _, err := client.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("%w: health check: %v", ErrConnectionFailed, err)
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}

	logger.Info("qdrant store initialized",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.String("collection", config.Collection),
		zap.Uint64("vector_size", config.VectorSize))
	return s, nil
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	var exists bool
	err := s.retryOperation(ctx, "collection_exists", func() error {
		var err error
		exists, err = s.client.CollectionExists(ctx, s.config.Collection)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: checking collection: %v", ErrStorage, err)
	}
	if exists {
		return nil
	}

	err = s.retryOperation(ctx, "create_collection", func() error {
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.config.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     s.config.VectorSize,
				Distance: qdrant.Distance_Cosine,
			}),
		})
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %s: %v", ErrStorage, s.config.Collection, err)
	}
	return nil
}

// retryOperation retries an operation with exponential backoff.
func (s *QdrantStore) retryOperation(ctx context.Context, operationName string, operation func() error) error {
	backoff := s.config.RetryBackoff

	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		if s.isCircuitOpen() {
			return fmt.Errorf("%s: circuit breaker open", operationName)
		}

		err := operation()
		if err == nil {
			s.resetCircuitBreaker()
			return nil
		}
		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", operationName, err)
		}

		s.recordFailure()
		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", operationName, s.config.MaxRetries, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", operationName, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil
}

func (s *QdrantStore) recordFailure() {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()
	s.circuitBreaker.failures++
	s.circuitBreaker.lastFail = time.Now()
}

func (s *QdrantStore) resetCircuitBreaker() {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()
	s.circuitBreaker.failures = 0
}

func (s *QdrantStore) isCircuitOpen() bool {
	s.circuitBreaker.mu.Lock()
	defer s.circuitBreaker.mu.Unlock()

	if s.circuitBreaker.failures >= s.config.CircuitBreakerThreshold {
		// Half-open after 30 seconds.
		if time.Since(s.circuitBreaker.lastFail) > 30*time.Second {
			s.circuitBreaker.failures = 0
			return false
		}
		return true
	}
	return false
}

// pointID maps a record id to a Qdrant point id. UUIDs are used as-is;
// anything else maps to a name-based UUID so the mapping is stable.
func pointID(id string) *qdrant.PointId {
	if u, err := uuid.Parse(id); err == nil {
		return qdrant.NewIDUUID(u.String())
	}
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String())
}

// Store upserts one record.
func (s *QdrantStore) Store(ctx context.Context, id string, vector []float32, metadata map[string]interface{}) error {
	if err := validateRecord(id, vector); err != nil {
		recordOperation(qdrantBackend, "store", err)
		return err
	}
	err := s.upsert(ctx, []Record{{ID: id, Vector: vector, Metadata: metadata}})
	recordOperation(qdrantBackend, "store", err)
	return err
}

// BatchStore upserts every valid record in one request.
func (s *QdrantStore) BatchStore(ctx context.Context, records []Record) error {
	valid := make([]Record, 0, len(records))
	for _, rec := range records {
		if err := validateRecord(rec.ID, rec.Vector); err != nil {
			s.logger.Warn("skipping invalid vector record", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		valid = append(valid, rec)
	}
	if len(valid) == 0 {
		return nil
	}
	err := s.upsert(ctx, valid)
	recordOperation(qdrantBackend, "batch_store", err)
	return err
}

func (s *QdrantStore) upsert(ctx context.Context, records []Record) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Upsert")
	defer span.End()
	span.SetAttributes(attribute.Int("record_count", len(records)))

	created, err := s.createdTimes(ctx, records)
	if err != nil {
		span.RecordError(err)
		return err
	}

	now := timeNow()
	points := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		createdAt := now
		if t, ok := created[rec.ID]; ok {
			createdAt = t
		}
		payload := make(map[string]*qdrant.Value, len(rec.Metadata)+3)
		payload[payloadID] = stringValue(rec.ID)
		payload[payloadCreatedAt] = stringValue(createdAt.UTC().Format(time.RFC3339Nano))
		payload[payloadUpdatedAt] = stringValue(now.UTC().Format(time.RFC3339Nano))
		for k, v := range rec.Metadata {
			payload[metaPrefix+k] = toQdrantValue(v)
		}
		points[i] = &qdrant.PointStruct{
			Id:      pointID(rec.ID),
			Vectors: qdrant.NewVectors(copyVector(rec.Vector)...),
			Payload: payload,
		}
	}

	err = s.retryOperation(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.config.Collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: upserting %d points: %v", ErrStorage, len(points), err)
	}
	return nil
}

// createdTimes fetches CreatedAt for records that already exist.
func (s *QdrantStore) createdTimes(ctx context.Context, records []Record) (map[string]time.Time, error) {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	existing, err := s.fetch(ctx, ids, false)
	if err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(existing))
	for _, rec := range existing {
		out[rec.ID] = rec.CreatedAt
	}
	return out, nil
}

func (s *QdrantStore) fetch(ctx context.Context, ids []string, withVectors bool) ([]Record, error) {
	pids := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			pids = append(pids, pointID(id))
		}
	}
	if len(pids) == 0 {
		return nil, nil
	}

	var points []*qdrant.RetrievedPoint
	err := s.retryOperation(ctx, "get", func() error {
		var err error
		points, err = s.client.Get(ctx, &qdrant.GetPoints{
			CollectionName: s.config.Collection,
			Ids:            pids,
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(withVectors),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetching points: %v", ErrStorage, err)
	}

	records := make([]Record, 0, len(points))
	for _, p := range points {
		records = append(records, recordFromPayload(p.GetPayload(), denseVector(p.GetVectors())))
	}
	return records, nil
}

// Get fetches one record with its vector.
func (s *QdrantStore) Get(ctx context.Context, id string) (*Record, bool, error) {
	records, err := s.fetch(ctx, []string{id}, true)
	if err != nil || len(records) == 0 {
		return nil, false, err
	}
	return &records[0], true, nil
}

// Delete removes one record.
func (s *QdrantStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.BatchDelete(ctx, []string{id})
	return n == 1, err
}

// BatchDelete removes records and returns how many existed.
func (s *QdrantStore) BatchDelete(ctx context.Context, ids []string) (int, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.BatchDelete")
	defer span.End()

	existing, err := s.fetch(ctx, ids, false)
	if err != nil || len(existing) == 0 {
		recordOperation(qdrantBackend, "delete", err)
		return 0, err
	}

	pids := make([]*qdrant.PointId, len(existing))
	for i, rec := range existing {
		pids[i] = pointID(rec.ID)
	}
	err = s.retryOperation(ctx, "delete", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.config.Collection,
			Wait:           qdrant.PtrOf(true),
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Points{
					Points: &qdrant.PointsIdsList{Ids: pids},
				},
			},
		})
		return err
	})
	recordOperation(qdrantBackend, "delete", err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("%w: deleting points: %v", ErrStorage, err)
	}
	return len(existing), nil
}

// Search ranks every record against query.
func (s *QdrantStore) Search(ctx context.Context, query []float32, limit int, threshold float64) ([]SearchResult, error) {
	return s.SearchWithFilter(ctx, query, nil, limit, threshold)
}

// SearchWithFilter queries Qdrant with keyword, integer and boolean
// conditions pushed down. Filter values Qdrant cannot match exactly are
// checked locally after a widened query.
func (s *QdrantStore) SearchWithFilter(ctx context.Context, query []float32, filter map[string]interface{}, limit int, threshold float64) ([]SearchResult, error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("limit", limit), attribute.Float64("threshold", threshold))

	if err := validateQuery(query); err != nil {
		recordOperation(qdrantBackend, "search", err)
		return nil, err
	}
	if limit <= 0 || uint64(len(query)) != s.config.VectorSize {
		// Every record scores 0 against a vector of another dimension.
		return []SearchResult{}, nil
	}
	start := timeNow()

	cond, complete := qdrantFilter(filter)
	fetch := limit
	if !complete {
		fetch = maxQdrantLimit
	}
	if fetch > maxQdrantLimit {
		fetch = maxQdrantLimit
	}

	req := &qdrant.QueryPoints{
		CollectionName: s.config.Collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          qdrant.PtrOf(uint64(fetch)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
		Filter:         cond,
		Params:         &qdrant.SearchParams{Exact: qdrant.PtrOf(true)},
	}
	if threshold > 0 {
		req.ScoreThreshold = qdrant.PtrOf(float32(threshold))
	}

	var points []*qdrant.ScoredPoint
	err := s.retryOperation(ctx, "search", func() error {
		var err error
		points, err = s.client.Query(ctx, req)
		return err
	})

	elapsed := timeNow().Sub(start)
	s.stats.observe(elapsed)
	recordSearch(qdrantBackend, elapsed, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: searching: %v", ErrStorage, err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		rec := recordFromPayload(p.GetPayload(), denseVector(p.GetVectors()))
		if !MatchesFilter(rec.Metadata, filter) {
			continue
		}
		sim := clampScore(float64(p.GetScore()))
		if sim < threshold {
			continue
		}
		results = append(results, newSearchResult(rec, sim, qdrantBackend))
		if len(results) == limit {
			break
		}
	}
	span.SetAttributes(attribute.Int("results_count", len(results)))
	return results, nil
}

func clampScore(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// qdrantFilter converts an exact-match filter into Must conditions.
// complete is false when some entries could not be expressed.
func qdrantFilter(filter map[string]interface{}) (*qdrant.Filter, bool) {
	if len(filter) == 0 {
		return nil, true
	}
	complete := true
	conditions := make([]*qdrant.Condition, 0, len(filter))
	for key, value := range filter {
		field := metaPrefix + key
		switch v := value.(type) {
		case string:
			conditions = append(conditions, matchCondition(field, &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: v}}))
		case bool:
			conditions = append(conditions, matchCondition(field, &qdrant.Match{MatchValue: &qdrant.Match_Boolean{Boolean: v}}))
		case int:
			conditions = append(conditions, matchCondition(field, &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: int64(v)}}))
		case int64:
			conditions = append(conditions, matchCondition(field, &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: v}}))
		default:
			complete = false
		}
	}
	if len(conditions) == 0 {
		return nil, complete
	}
	return &qdrant.Filter{Must: conditions}, complete
}

func matchCondition(field string, match *qdrant.Match) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{Key: field, Match: match},
		},
	}
}

// Clear drops and recreates the collection.
func (s *QdrantStore) Clear(ctx context.Context) error {
	err := s.retryOperation(ctx, "delete_collection", func() error {
		return s.client.DeleteCollection(ctx, s.config.Collection)
	})
	if err == nil {
		err = s.ensureCollection(ctx)
	} else {
		err = fmt.Errorf("%w: dropping collection: %v", ErrStorage, err)
	}
	recordOperation(qdrantBackend, "clear", err)
	if err != nil {
		return err
	}
	s.stats.reset()
	return nil
}

// Stats returns the exact point count and search latency.
func (s *QdrantStore) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"type":             qdrantBackend,
		"collection":       s.config.Collection,
		"vectorDimensions": int(s.config.VectorSize),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.config.Collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		stats["error"] = "failed to count points"
	} else {
		stats["vectorCount"] = int(count)
		Records.WithLabelValues(qdrantBackend).Set(float64(count))
	}
	s.stats.fill(stats)
	return stats
}

// Healthy runs a Qdrant health check.
func (s *QdrantStore) Healthy(ctx context.Context) bool {
	_, err := s.client.HealthCheck(ctx)
	return err == nil
}

// Type returns "qdrant".
func (s *QdrantStore) Type() string { return qdrantBackend }

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func toQdrantValue(v interface{}) *qdrant.Value {
	switch val := v.(type) {
	case nil:
		return &qdrant.Value{Kind: &qdrant.Value_NullValue{}}
	case string:
		return stringValue(val)
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
	case []interface{}:
		list := make([]*qdrant.Value, len(val))
		for i, e := range val {
			list[i] = toQdrantValue(e)
		}
		return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: list}}}
	case []string:
		list := make([]*qdrant.Value, len(val))
		for i, e := range val {
			list[i] = stringValue(e)
		}
		return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: list}}}
	case map[string]interface{}:
		fields := make(map[string]*qdrant.Value, len(val))
		for k, e := range val {
			fields[k] = toQdrantValue(e)
		}
		return &qdrant.Value{Kind: &qdrant.Value_StructValue{StructValue: &qdrant.Struct{Fields: fields}}}
	}
	switch val := v.(type) {
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
	case int32:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
	}
	if f, ok := toFloat(v); ok {
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: f}}
	}
	return stringValue(fmt.Sprint(v))
}

func fromQdrantValue(v *qdrant.Value) interface{} {
	switch val := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_ListValue:
		values := val.ListValue.GetValues()
		out := make([]interface{}, len(values))
		for i, e := range values {
			out[i] = fromQdrantValue(e)
		}
		return out
	case *qdrant.Value_StructValue:
		fields := val.StructValue.GetFields()
		out := make(map[string]interface{}, len(fields))
		for k, e := range fields {
			out[k] = fromQdrantValue(e)
		}
		return out
	default:
		return nil
	}
}

func recordFromPayload(payload map[string]*qdrant.Value, vector []float32) Record {
	rec := Record{Vector: vector}
	for k, v := range payload {
		switch {
		case k == payloadID:
			rec.ID = v.GetStringValue()
		case k == payloadCreatedAt:
			rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, v.GetStringValue())
		case k == payloadUpdatedAt:
			rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, v.GetStringValue())
		case len(k) > len(metaPrefix) && k[:len(metaPrefix)] == metaPrefix:
			if rec.Metadata == nil {
				rec.Metadata = make(map[string]interface{})
			}
			rec.Metadata[k[len(metaPrefix):]] = fromQdrantValue(v)
		}
	}
	return rec
}

func denseVector(v *qdrant.VectorsOutput) []float32 {
	out := v.GetVector()
	if out == nil {
		return nil
	}
	if d := out.GetDense(); d != nil && len(d.GetData()) > 0 {
		return d.GetData()
	}
	return out.GetData()
}

var _ Store = (*QdrantStore)(nil)
