package vectorstore

import "errors"

var (
	// ErrValidation indicates an empty id, vector or query.
	ErrValidation = errors.New("validation error")

	// ErrStorage indicates an I/O failure in a durable backend.
	ErrStorage = errors.New("storage error")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates gRPC connection issues.
	ErrConnectionFailed = errors.New("failed to connect to Qdrant")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")
)
