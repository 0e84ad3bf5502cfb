package embeddings

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LocalConfig configures the local ONNX provider.
type LocalConfig struct {
	// ModelName labels metrics and status output.
	ModelName string
	// ModelPath is the ONNX model file. It must exist at startup.
	ModelPath string
	// LibraryPath overrides onnxruntime library discovery.
	LibraryPath string
	// MaxSequenceLength bounds tokenized input. Defaults to 512.
	MaxSequenceLength int
	// Dimension is the hidden size of the model. Defaults to 384.
	Dimension int
	// UseGPU requests the CUDA execution provider.
	UseGPU bool
	// OutputName is the model output to read. Defaults to last_hidden_state.
	OutputName string
	// OutputRank is 3 for per-token output (default) or 2 for models that
	// pool internally.
	OutputRank int
}

// LocalProvider embeds text with an in-process transformer model.
//
// Tokenization, tensor construction, inference and pooling for a call run
// under a single mutex, so concurrent callers are served one batch at a time.
type LocalProvider struct {
	cfg       LocalConfig
	tokenizer *Tokenizer
	logger    *zap.Logger
	metrics   *Metrics

	mu        sync.Mutex
	engine    InferenceEngine
	available bool
	initErr   error
}

// NewLocalProvider builds a local provider. A nil factory uses
// NewONNXEngine. Initialization failures do not return an error: the
// provider reports unavailable and every call fails with
// ErrProviderUnavailable.
func NewLocalProvider(cfg LocalConfig, factory EngineFactory, logger *zap.Logger) *LocalProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxSequenceLength <= 0 {
		cfg.MaxSequenceLength = DefaultMaxSequenceLength
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 384
	}
	if factory == nil {
		factory = NewONNXEngine
	}

	p := &LocalProvider{
		cfg:       cfg,
		tokenizer: NewTokenizer(cfg.MaxSequenceLength),
		logger:    logger,
		metrics:   NewMetrics(logger),
	}

	if cfg.ModelPath == "" {
		p.initErr = fmt.Errorf("%w: model path is required", ErrInvalidConfig)
	} else if _, err := os.Stat(cfg.ModelPath); err != nil {
		p.initErr = fmt.Errorf("%w: model file %s: %v", ErrInvalidConfig, cfg.ModelPath, err)
	}
	if p.initErr != nil {
		logger.Error("embedding model unavailable", zap.Error(p.initErr))
		return p
	}

	engine, err := factory(cfg)
	if err != nil {
		p.initErr = err
		logger.Error("failed to initialize inference engine",
			zap.String("model_path", cfg.ModelPath),
			zap.Error(err))
		return p
	}

	p.engine = engine
	p.available = true
	logger.Info("local embedding provider ready",
		zap.String("model_path", cfg.ModelPath),
		zap.Int("dimension", cfg.Dimension),
		zap.Int("max_sequence_length", cfg.MaxSequenceLength),
		zap.Bool("use_gpu", cfg.UseGPU))
	return p
}

// Embed returns the vector for one text. It is exactly EmbedBatch([text])[0].
func (p *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.embed(ctx, []string{text}, "embed")
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one vector per text in a single inference call.
// An empty input yields an empty result without running the model.
func (p *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		if !p.IsAvailable() {
			return nil, p.unavailable()
		}
		return [][]float32{}, nil
	}
	return p.embed(ctx, texts, "batch_embed")
}

func (p *LocalProvider) embed(ctx context.Context, texts []string, op string) ([][]float32, error) {
	start := time.Now()
	vecs, err := p.run(ctx, texts)
	p.metrics.RecordGeneration(ctx, p.cfg.ModelName, op, time.Since(start), len(texts), err)
	if err != nil {
		p.logger.Debug("embedding failed", zap.String("operation", op), zap.Int("batch_size", len(texts)), zap.Error(err))
	}
	return vecs, err
}

func (p *LocalProvider) run(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.available {
		return nil, p.unavailable()
	}

	batch, err := BuildBatch(p.tokenizer, texts)
	if err != nil {
		return nil, err
	}
	out, err := p.engine.Run(ctx, batch)
	if err != nil {
		return nil, err
	}
	return Pool(out, batch.BatchSize)
}

func (p *LocalProvider) unavailable() error {
	if p.initErr != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, p.initErr)
	}
	return ErrProviderUnavailable
}

// Dimension returns the configured vector size.
func (p *LocalProvider) Dimension() int {
	return p.cfg.Dimension
}

// IsAvailable reports whether the model loaded and the provider is open.
func (p *LocalProvider) IsAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// Status returns a diagnostic snapshot.
func (p *LocalProvider) Status() map[string]interface{} {
	available := p.IsAvailable()
	status := "not_initialized"
	if available {
		status = "ready"
	}
	return map[string]interface{}{
		"provider":           "onnx",
		"available":          available,
		"modelPath":          p.cfg.ModelPath,
		"embeddingDimension": p.cfg.Dimension,
		"maxSequenceLength":  p.cfg.MaxSequenceLength,
		"useGpu":             p.cfg.UseGPU,
		"status":             status,
	}
}

// Close releases the engine. Later calls fail with ErrProviderUnavailable.
func (p *LocalProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.engine == nil {
		return nil
	}
	err := p.engine.Close()
	p.engine = nil
	p.available = false
	if p.initErr == nil {
		p.initErr = fmt.Errorf("provider closed")
	}
	return err
}
