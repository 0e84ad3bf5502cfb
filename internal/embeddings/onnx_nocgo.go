//go:build !cgo

package embeddings

import "fmt"

// NewONNXEngine is unavailable without cgo.
func NewONNXEngine(_ LocalConfig) (InferenceEngine, error) {
	return nil, fmt.Errorf("%w: onnx engine requires a cgo build", ErrProviderUnavailable)
}
