package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragcore/internal/config"
	"github.com/fyrsmithlabs/ragcore/internal/embeddings"
	"github.com/fyrsmithlabs/ragcore/internal/entityindex"
	"github.com/fyrsmithlabs/ragcore/internal/generator"
	"github.com/fyrsmithlabs/ragcore/internal/logging"
	"github.com/fyrsmithlabs/ragcore/internal/rag"
	"github.com/fyrsmithlabs/ragcore/internal/sanitize"
	"github.com/fyrsmithlabs/ragcore/internal/telemetry"
	"github.com/fyrsmithlabs/ragcore/internal/vectorstore"
)

// overrides replaces externally backed components. Tests use it to run
// commands without a model or an LLM.
type overrides struct {
	embedder  embeddings.Provider
	generator generator.Generator
}

// app holds every wired component for one command invocation.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	telemetry *telemetry.Provider
	embedder  embeddings.Provider
	store     vectorstore.Store
	index     *entityindex.SQLiteIndex
	sanitizer sanitize.Sanitizer
	rag       *rag.Service
	advanced  *rag.AdvancedService
}

// newApp builds config -> logger -> telemetry -> embedder -> store ->
// sanitizer -> generator -> rag services. On error everything built so
// far is closed.
func newApp(ctx context.Context, flags *rootFlags, ov *overrides) (a *app, err error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flags.logLevel != "" {
		if cfg.Logging.Level, err = logging.LevelFromString(flags.logLevel); err != nil {
			return nil, fmt.Errorf("invalid --log-level %q: %w", flags.logLevel, err)
		}
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	a = &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close(ctx)
			a = nil
		}
	}()
	zl := logger.Underlying()

	a.telemetry, err = telemetry.NewProvider(ctx, telemetryConfig(cfg), telemetry.WithLogger(zl))
	if err != nil {
		return a, err
	}

	if ov != nil && ov.embedder != nil {
		a.embedder = ov.embedder
	} else {
		a.embedder, err = embeddings.NewProvider(embeddingsConfig(cfg), zl)
		if err != nil {
			return a, fmt.Errorf("creating embedding provider: %w", err)
		}
	}

	a.store, err = vectorstore.NewStore(storeConfig(cfg), zl)
	if err != nil {
		return a, fmt.Errorf("creating vector store: %w", err)
	}

	ragOpts := []rag.Option{
		rag.WithLogger(logger),
		rag.WithDefaultLimit(cfg.RAG.DefaultLimit),
		rag.WithDefaultThreshold(cfg.RAG.DefaultThreshold),
	}
	if cfg.EntityIndex.Enabled {
		a.index, err = entityindex.OpenSQLite(cfg.EntityIndex.Path)
		if err != nil {
			return a, fmt.Errorf("opening entity index: %w", err)
		}
		ragOpts = append(ragOpts, rag.WithEntitySync(vectorstore.NewEntitySyncStore(a.store, a.index, zl)))
	}

	a.sanitizer = sanitize.Noop{}
	if cfg.PII.Enabled {
		a.sanitizer, err = sanitize.New(sanitizeConfig(cfg), logger)
		if err != nil {
			return a, fmt.Errorf("creating sanitizer: %w", err)
		}
	}

	var gen generator.Generator
	if ov != nil && ov.generator != nil {
		gen = ov.generator
	} else {
		gen, err = generator.New(generatorConfig(cfg))
		if err != nil {
			return a, fmt.Errorf("creating generator: %w", err)
		}
	}

	a.rag = rag.NewService(a.embedder, a.store, a.sanitizer, gen, ragOpts...)
	a.advanced, err = rag.NewAdvancedService(a.rag,
		rag.WithExpansionLevel(cfg.RAG.ExpansionCount),
		rag.WithMaxDocuments(cfg.RAG.MaxDocuments),
		rag.WithMediumContextDocs(cfg.RAG.MediumContextDocs),
		rag.WithPoolSize(cfg.RAG.WorkerPoolSize))
	if err != nil {
		return a, fmt.Errorf("creating advanced rag service: %w", err)
	}

	logger.Debug(ctx, "components initialized",
		zap.String("embeddings", cfg.Embeddings.Provider),
		zap.String("vectorstore", cfg.VectorStore.Provider),
		zap.String("generator", cfg.Generator.Provider),
		zap.Bool("entity_index", cfg.EntityIndex.Enabled),
		zap.Bool("pii", cfg.PII.Enabled))
	return a, nil
}

// Close releases components in reverse construction order.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.advanced != nil {
		a.advanced.Close()
	}
	if a.index != nil {
		errs = append(errs, a.index.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.embedder != nil {
		errs = append(errs, a.embedder.Close())
	}
	if a.telemetry != nil {
		errs = append(errs, a.telemetry.Shutdown(ctx))
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}

func telemetryConfig(cfg *config.Config) *telemetry.Config {
	tc := telemetry.NewDefaultConfig()
	tc.Enabled = cfg.Telemetry.Enabled
	tc.Endpoint = cfg.Telemetry.Endpoint
	tc.ServiceName = cfg.Telemetry.ServiceName
	tc.ServiceVersion = version
	tc.Insecure = cfg.Telemetry.Insecure
	return tc
}

func embeddingsConfig(cfg *config.Config) embeddings.ProviderConfig {
	e := cfg.Embeddings
	return embeddings.ProviderConfig{
		Provider:          e.Provider,
		Model:             e.Model,
		ModelPath:         e.ModelPath,
		LibraryPath:       e.ONNXPath,
		MaxSequenceLength: e.MaxSequenceLength,
		Dimension:         e.Dimension,
		UseGPU:            e.UseGPU,
		BaseURL:           e.BaseURL,
		APIKey:            e.APIKey.Value(),
		CacheDir:          e.CacheDir,
	}
}

func storeConfig(cfg *config.Config) vectorstore.Config {
	v := cfg.VectorStore
	return vectorstore.Config{
		Provider: v.Provider,
		Chromem: vectorstore.ChromemConfig{
			Path:       v.Chromem.Path,
			Compress:   v.Chromem.Compress,
			Collection: v.Chromem.Collection,
		},
		Qdrant: vectorstore.QdrantConfig{
			Host:       v.Qdrant.Host,
			Port:       v.Qdrant.Port,
			Collection: v.Qdrant.Collection,
			UseTLS:     v.Qdrant.UseTLS,
			VectorSize: v.Qdrant.VectorSize,
		},
	}
}

func sanitizeConfig(cfg *config.Config) sanitize.Config {
	p := cfg.PII
	return sanitize.Config{
		Enabled:                p.Enabled,
		Mode:                   sanitize.Mode(p.Mode),
		StoreEncryptedOriginal: p.StoreEncryptedOriginal,
		EncryptionSecret:       p.EncryptionSecret.Value(),
		AuditLogging:           p.AuditLogging,
		DetectCredentials:      p.DetectCredentials,
		AllowlistPath:          p.AllowlistPath,
	}
}

func generatorConfig(cfg *config.Config) generator.Config {
	g := cfg.Generator
	return generator.Config{
		Provider:          g.Provider,
		Model:             g.Model,
		BaseURL:           g.BaseURL,
		APIKey:            g.APIKey.Value(),
		RequestsPerSecond: g.RequestsPerSecond,
		MaxRetries:        g.MaxRetries,
		Timeout:           g.Timeout.Duration(),
	}
}
