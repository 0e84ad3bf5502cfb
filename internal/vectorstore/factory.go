package vectorstore

import (
	"fmt"

	"go.uber.org/zap"
)

// Config selects and configures a Store backend.
type Config struct {
	// Provider is one of "memory" (default), "chromem" or "qdrant".
	Provider string
	Chromem  ChromemConfig
	Qdrant   QdrantConfig
}

// NewStore builds the configured backend.
func NewStore(cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case "", memoryBackend:
		return NewMemoryStore(logger), nil
	case chromemBackend:
		s, err := NewChromemStore(cfg.Chromem, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case qdrantBackend:
		s, err := NewQdrantStore(cfg.Qdrant, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown vector store provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
