package embeddings

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Provider is the interface for embedding providers.
type Provider interface {
	// Embed returns the vector for a single text. It is equivalent to
	// EmbedBatch with one element.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// IsAvailable reports whether the provider can serve calls.
	IsAvailable() bool
	// Status returns a diagnostic snapshot for status endpoints.
	Status() map[string]interface{}
	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is one of "onnx" (default), "fastembed", "tei", "openai".
	Provider string
	// Model is the embedding model name.
	Model string
	// ModelPath is the ONNX model file (onnx only).
	ModelPath string
	// LibraryPath overrides the onnxruntime shared library location.
	LibraryPath string
	// MaxSequenceLength bounds tokenized input (onnx, fastembed).
	MaxSequenceLength int
	// Dimension is the expected vector size. Zero derives it from Model.
	Dimension int
	// UseGPU requests the CUDA execution provider (onnx only).
	UseGPU bool
	// BaseURL is the TEI or OpenAI-compatible endpoint.
	BaseURL string
	// APIKey authenticates against OpenAI-compatible endpoints.
	APIKey string
	// CacheDir is the model cache directory (fastembed only).
	CacheDir string
}

// NewProvider creates an embedding provider based on the configuration.
//
// The onnx provider never fails construction: a missing model is reported
// through IsAvailable and Status so callers can keep serving diagnostics.
func NewProvider(cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dim := cfg.Dimension
	if dim == 0 {
		dim = detectDimensionFromModel(cfg.Model)
	}

	switch cfg.Provider {
	case "onnx", "":
		return NewLocalProvider(LocalConfig{
			ModelName:         cfg.Model,
			ModelPath:         cfg.ModelPath,
			LibraryPath:       cfg.LibraryPath,
			MaxSequenceLength: cfg.MaxSequenceLength,
			Dimension:         dim,
			UseGPU:            cfg.UseGPU,
		}, nil, logger), nil
	case "fastembed":
		p, err := NewFastEmbedProvider(FastEmbedConfig{
			Model:     cfg.Model,
			CacheDir:  cfg.CacheDir,
			MaxLength: cfg.MaxSequenceLength,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "tei":
		p, err := NewTEIProvider(TEIConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: dim,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "openai":
		p, err := NewLangChainProvider(LangChainConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			APIKey:    cfg.APIKey,
			Dimension: dim,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// detectDimensionFromModel returns the embedding dimension for a model name.
// Falls back to 384 if model is unknown.
func detectDimensionFromModel(model string) int {
	if dim, ok := knownModelDimensions[model]; ok {
		return dim
	}
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "text-embedding-3-large"):
		return 3072
	case strings.Contains(lower, "text-embedding"):
		return 1536
	case strings.Contains(lower, "base"):
		return 768
	case strings.Contains(lower, "large"):
		return 1024
	default:
		return 384
	}
}

// knownModelDimensions covers the models shipped with fastembed plus the
// OpenAI defaults.
var knownModelDimensions = map[string]int{
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-small-en":                      384,
	"BAAI/bge-base-en-v1.5":                  768,
	"BAAI/bge-base-en":                       768,
	"BAAI/bge-small-zh-v1.5":                 512,
	"sentence-transformers/all-MiniLM-L6-v2": 384,
	"fast-bge-small-en-v1.5":                 384,
	"fast-bge-small-en":                      384,
	"fast-bge-base-en-v1.5":                  768,
	"fast-bge-base-en":                       768,
	"fast-bge-small-zh-v1.5":                 512,
	"fast-all-MiniLM-L6-v2":                  384,
	"text-embedding-ada-002":                 1536,
	"text-embedding-3-small":                 1536,
	"text-embedding-3-large":                 3072,
}
