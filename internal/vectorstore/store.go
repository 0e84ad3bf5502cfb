package vectorstore

import (
	"context"
	"time"
)

// Record is a stored vector with its metadata.
type Record struct {
	ID        string                 `json:"id"`
	Vector    []float32              `json:"vector"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

// SearchResult is one ranked match. Distance is always 1 - Similarity.
type SearchResult struct {
	Record         Record                 `json:"record"`
	Similarity     float64                `json:"similarity"`
	Distance       float64                `json:"distance"`
	SearchMetadata map[string]interface{} `json:"searchMetadata,omitempty"`
}

// Store is the interface for vector storage operations.
//
// Implementations are safe for concurrent use. Stored records are copies:
// mutating a vector or metadata map after Store returns never affects the
// stored record, and records returned by Get or Search are copies too.
type Store interface {
	// Store inserts or replaces a record. Re-storing an existing id keeps
	// its CreatedAt and refreshes UpdatedAt.
	Store(ctx context.Context, id string, vector []float32, metadata map[string]interface{}) error

	// BatchStore stores every valid record and skips invalid ones.
	BatchStore(ctx context.Context, records []Record) error

	// Get returns the record with id, or ok=false when absent.
	Get(ctx context.Context, id string) (*Record, bool, error)

	// Delete removes a record and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// BatchDelete removes records and returns how many existed.
	BatchDelete(ctx context.Context, ids []string) (int, error)

	// Search returns at most limit records with similarity >= threshold,
	// most similar first.
	Search(ctx context.Context, query []float32, limit int, threshold float64) ([]SearchResult, error)

	// SearchWithFilter is Search restricted to records whose metadata
	// matches filter exactly (see MatchesFilter).
	SearchWithFilter(ctx context.Context, query []float32, filter map[string]interface{}, limit int, threshold float64) ([]SearchResult, error)

	// Clear removes every record and resets search statistics.
	Clear(ctx context.Context) error

	// Stats returns a diagnostic snapshot.
	Stats() map[string]interface{}

	// Healthy reports whether the backend can serve requests.
	Healthy(ctx context.Context) bool

	// Type names the backend.
	Type() string

	// Close releases backend resources.
	Close() error
}
