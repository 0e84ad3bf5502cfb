// Package entityindex keeps the relational search records that link an
// application entity to the vector stored for it.
package entityindex

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no search record exists for an entity.
var ErrNotFound = errors.New("search record not found")

// SearchRecord links an entity to its stored vector.
type SearchRecord struct {
	EntityType string
	EntityID   string
	Content    string
	VectorID   string
	Metadata   map[string]interface{}
	UpdatedAt  time.Time
}

// Index stores search records.
type Index interface {
	Begin(ctx context.Context) (Tx, error)
	Get(ctx context.Context, entityType, entityID string) (*SearchRecord, error)
	Close() error
}

// Tx is a unit of work against an Index. Exactly one of Commit or
// Rollback must be called; Rollback after Commit is a no-op.
type Tx interface {
	Upsert(ctx context.Context, rec SearchRecord) error
	Delete(ctx context.Context, entityType, entityID string) error
	Commit() error
	Rollback() error
}
