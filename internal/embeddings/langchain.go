package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainConfig configures an OpenAI-compatible embeddings endpoint.
type LangChainConfig struct {
	BaseURL   string
	Model     string
	APIKey    string
	Dimension int
}

// LangChainProvider embeds text through a langchaingo embedder.
type LangChainProvider struct {
	embedder  embeddings.Embedder
	model     string
	dimension int
	metrics   *Metrics
}

// NewLangChainProvider connects to an OpenAI-compatible embeddings API.
func NewLangChainProvider(cfg LangChainConfig) (*LangChainProvider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	opts := []openai.Option{openai.WithEmbeddingModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating openai client: %v", ErrInvalidConfig, err)
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("%w: creating embedder: %v", ErrInvalidConfig, err)
	}
	return NewLangChainProviderWithEmbedder(embedder, cfg.Model, cfg.Dimension), nil
}

// NewLangChainProviderWithEmbedder wraps an existing langchaingo embedder.
func NewLangChainProviderWithEmbedder(e embeddings.Embedder, model string, dimension int) *LangChainProvider {
	if dimension == 0 {
		dimension = detectDimensionFromModel(model)
	}
	return &LangChainProvider{
		embedder:  e,
		model:     model,
		dimension: dimension,
		metrics:   NewMetrics(nil),
	}
}

// Embed returns the vector for one text.
func (p *LangChainProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.embed(ctx, []string{text}, "embed")
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one vector per text.
func (p *LangChainProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	return p.embed(ctx, texts, "batch_embed")
}

func (p *LangChainProvider) embed(ctx context.Context, texts []string, op string) ([][]float32, error) {
	start := time.Now()
	vecs, err := p.embedder.EmbedDocuments(ctx, texts)
	if err == nil && len(vecs) != len(texts) {
		err = fmt.Errorf("%w: got %d vectors for %d inputs", ErrFormat, len(vecs), len(texts))
	} else if err != nil {
		err = fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	p.metrics.RecordGeneration(ctx, p.model, op, time.Since(start), len(texts), err)
	if err != nil {
		return nil, err
	}
	return vecs, nil
}

// Dimension returns the configured vector size.
func (p *LangChainProvider) Dimension() int {
	return p.dimension
}

// IsAvailable always reports true; reachability is checked per request.
func (p *LangChainProvider) IsAvailable() bool {
	return true
}

// Status returns a diagnostic snapshot.
func (p *LangChainProvider) Status() map[string]interface{} {
	return map[string]interface{}{
		"provider":           "openai",
		"available":          true,
		"model":              p.model,
		"embeddingDimension": p.dimension,
		"status":             "ready",
	}
}

// Close is a no-op.
func (p *LangChainProvider) Close() error {
	return nil
}
