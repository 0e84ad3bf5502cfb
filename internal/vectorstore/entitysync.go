package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragcore/internal/entityindex"
)

// Entity is an application object made searchable.
type Entity struct {
	Type     string
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]interface{}
}

// VectorID returns the record id used for an entity's vector.
func VectorID(entityType, entityID string) string {
	return entityType + ":" + entityID
}

// EntitySyncStore keeps a vector store and a relational entity index in
// step. Vector writes are not transactional, so a failed index write is
// undone with a compensating vector delete.
type EntitySyncStore struct {
	store  Store
	index  entityindex.Index
	logger *zap.Logger
}

// NewEntitySyncStore wraps store and index.
func NewEntitySyncStore(store Store, index entityindex.Index, logger *zap.Logger) *EntitySyncStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntitySyncStore{store: store, index: index, logger: logger}
}

// Store returns the wrapped vector store.
func (s *EntitySyncStore) Store() Store { return s.store }

// IndexEntity stores the entity's vector and upserts its search record.
func (s *EntitySyncStore) IndexEntity(ctx context.Context, e Entity) (err error) {
	if e.Type == "" || e.ID == "" {
		return fmt.Errorf("%w: entity type and id are required", ErrValidation)
	}
	vectorID := VectorID(e.Type, e.ID)

	metadata := copyMetadata(e.Metadata)
	if metadata == nil {
		metadata = make(map[string]interface{}, 3)
	}
	metadata["entityType"] = e.Type
	metadata["entityId"] = e.ID
	metadata["content"] = e.Content

	if err := s.store.Store(ctx, vectorID, e.Vector, metadata); err != nil {
		return fmt.Errorf("storing vector %s: %w", vectorID, err)
	}

	tx, err := s.index.Begin(ctx)
	if err != nil {
		s.compensate(ctx, vectorID, err)
		return fmt.Errorf("indexing %s: %w", vectorID, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Warn("search record rollback failed", zap.String("vector_id", vectorID), zap.Error(rbErr))
			}
			s.compensate(ctx, vectorID, err)
		}
	}()

	if err = tx.Upsert(ctx, entityindex.SearchRecord{
		EntityType: e.Type,
		EntityID:   e.ID,
		Content:    e.Content,
		VectorID:   vectorID,
		Metadata:   e.Metadata,
		UpdatedAt:  timeNow(),
	}); err != nil {
		return fmt.Errorf("indexing %s: %w", vectorID, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", vectorID, err)
	}

	s.logger.Debug("entity indexed", zap.String("vector_id", vectorID), zap.Int("dimensions", len(e.Vector)))
	return nil
}

func (s *EntitySyncStore) compensate(ctx context.Context, vectorID string, cause error) {
	// The caller's context may already be canceled; the cleanup still runs.
	if _, err := s.store.Delete(context.WithoutCancel(ctx), vectorID); err != nil {
		s.logger.Error("compensating vector delete failed",
			zap.String("vector_id", vectorID),
			zap.NamedError("cause", cause),
			zap.Error(err))
	}
}

// RemoveEntity deletes the entity's vector and then its search record.
// A missing search record is not an error.
func (s *EntitySyncStore) RemoveEntity(ctx context.Context, entityType, entityID string) error {
	vectorID := VectorID(entityType, entityID)
	if _, err := s.store.Delete(ctx, vectorID); err != nil {
		return fmt.Errorf("deleting vector %s: %w", vectorID, err)
	}

	tx, err := s.index.Begin(ctx)
	if err != nil {
		return fmt.Errorf("removing %s: %w", vectorID, err)
	}
	if err := tx.Delete(ctx, entityType, entityID); err != nil {
		_ = tx.Rollback()
		if errors.Is(err, entityindex.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("removing %s: %w", vectorID, err)
	}
	return tx.Commit()
}
