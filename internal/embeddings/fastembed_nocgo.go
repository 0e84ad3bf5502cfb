//go:build !cgo

package embeddings

import "fmt"

// FastEmbedConfig holds configuration for the FastEmbed provider.
type FastEmbedConfig struct {
	Model     string
	CacheDir  string
	MaxLength int
}

// NewFastEmbedProvider is unavailable without cgo; use the tei or openai
// provider instead.
func NewFastEmbedProvider(_ FastEmbedConfig) (Provider, error) {
	return nil, fmt.Errorf("%w: fastembed requires a cgo build", ErrProviderUnavailable)
}
