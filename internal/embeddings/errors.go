package embeddings

import "errors"

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration, including a model
	// artifact that is missing or unreadable at startup.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrProviderUnavailable is returned by every call on a provider that
	// failed to initialize or has been closed.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrFormat indicates the model produced output of an unexpected shape.
	ErrFormat = errors.New("unexpected model output format")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)
