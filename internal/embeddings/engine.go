package embeddings

import "context"

// InferenceEngine runs a transformer model over a prepared batch.
//
// Implementations need not be safe for concurrent use; LocalProvider
// serializes every call.
type InferenceEngine interface {
	Run(ctx context.Context, batch *Batch) (Output, error)
	Close() error
}

// EngineFactory builds the inference engine for a local provider.
type EngineFactory func(cfg LocalConfig) (InferenceEngine, error)
