// Package config loads ragcore configuration from YAML and environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/ragcore/internal/logging"
)

// ErrInvalidConfig is returned when configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root configuration.
type Config struct {
	Logging     logging.Config    `koanf:"logging"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	EntityIndex EntityIndexConfig `koanf:"entity_index"`
	Generator   GeneratorConfig   `koanf:"generator"`
	PII         PIIConfig         `koanf:"pii"`
	RAG         RAGConfig         `koanf:"rag"`
	Server      ServerConfig      `koanf:"server"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
}

// EmbeddingsConfig selects and configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is one of "onnx", "fastembed", "tei", "openai".
	Provider          string `koanf:"provider"`
	Model             string `koanf:"model"`
	ModelPath         string `koanf:"model_path"`
	ONNXPath          string `koanf:"onnx_path"`
	MaxSequenceLength int    `koanf:"max_sequence_length"`
	Dimension         int    `koanf:"dimension"`
	UseGPU            bool   `koanf:"use_gpu"`
	BaseURL           string `koanf:"base_url"`
	CacheDir          string `koanf:"cache_dir"`
	APIKey            Secret `koanf:"api_key"`
}

// VectorStoreConfig selects the vector store backend.
type VectorStoreConfig struct {
	// Provider is one of "memory", "chromem", "qdrant".
	Provider string        `koanf:"provider"`
	Chromem  ChromemConfig `koanf:"chromem"`
	Qdrant   QdrantConfig  `koanf:"qdrant"`
}

// ChromemConfig configures the durable embedded store.
type ChromemConfig struct {
	Path       string `koanf:"path"`
	Compress   bool   `koanf:"compress"`
	Collection string `koanf:"collection"`
}

// QdrantConfig configures the remote Qdrant store.
type QdrantConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Collection string `koanf:"collection"`
	UseTLS     bool   `koanf:"use_tls"`
	VectorSize uint64 `koanf:"vector_size"`
}

// EntityIndexConfig configures the relational search-record index.
type EntityIndexConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// GeneratorConfig configures the text generation backend.
type GeneratorConfig struct {
	// Provider is one of "anthropic", "openai", "ollama", "none".
	Provider          string   `koanf:"provider"`
	Model             string   `koanf:"model"`
	BaseURL           string   `koanf:"base_url"`
	APIKey            Secret   `koanf:"api_key"`
	RequestsPerSecond float64  `koanf:"requests_per_second"`
	MaxRetries        int      `koanf:"max_retries"`
	Timeout           Duration `koanf:"timeout"`
}

// PIIConfig configures query sanitization.
type PIIConfig struct {
	Enabled                bool   `koanf:"enabled"`
	Mode                   string `koanf:"mode"`
	StoreEncryptedOriginal bool   `koanf:"store_encrypted_original"`
	EncryptionSecret       Secret `koanf:"encryption_secret"`
	DetectCredentials      bool   `koanf:"detect_credentials"`
	AllowlistPath          string `koanf:"allowlist_path"`
	AuditLogging           bool   `koanf:"audit_logging"`
}

// RAGConfig holds retrieval pipeline defaults.
type RAGConfig struct {
	DefaultLimit      int     `koanf:"default_limit"`
	DefaultThreshold  float64 `koanf:"default_threshold"`
	ExpansionCount    int     `koanf:"expansion_count"`
	MaxDocuments      int     `koanf:"max_documents"`
	MediumContextDocs int     `koanf:"medium_context_docs"`
	WorkerPoolSize    int     `koanf:"worker_pool_size"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	HTTPPort        int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// TelemetryConfig configures OTLP export.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
	Insecure    bool   `koanf:"insecure"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Logging: *logging.NewDefaultConfig()}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "onnx"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}
	if cfg.Embeddings.MaxSequenceLength == 0 {
		cfg.Embeddings.MaxSequenceLength = 512
	}
	if cfg.Embeddings.Dimension == 0 {
		cfg.Embeddings.Dimension = 384
	}
	if cfg.Embeddings.BaseURL == "" && cfg.Embeddings.Provider == "tei" {
		cfg.Embeddings.BaseURL = "http://localhost:8080"
	}

	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = "memory"
	}
	if cfg.VectorStore.Chromem.Path == "" {
		cfg.VectorStore.Chromem.Path = "./data/vectorstore"
	}
	if cfg.VectorStore.Chromem.Collection == "" {
		cfg.VectorStore.Chromem.Collection = "ragcore_vectors"
	}
	if cfg.VectorStore.Qdrant.Host == "" {
		cfg.VectorStore.Qdrant.Host = "localhost"
	}
	if cfg.VectorStore.Qdrant.Port == 0 {
		cfg.VectorStore.Qdrant.Port = 6334
	}
	if cfg.VectorStore.Qdrant.Collection == "" {
		cfg.VectorStore.Qdrant.Collection = "ragcore_vectors"
	}
	if cfg.VectorStore.Qdrant.VectorSize == 0 {
		cfg.VectorStore.Qdrant.VectorSize = uint64(cfg.Embeddings.Dimension)
	}

	if cfg.EntityIndex.Path == "" {
		cfg.EntityIndex.Path = "./data/entities.db"
	}

	if cfg.Generator.Provider == "" {
		cfg.Generator.Provider = "none"
	}
	if cfg.Generator.RequestsPerSecond == 0 {
		cfg.Generator.RequestsPerSecond = 2
	}
	if cfg.Generator.MaxRetries == 0 {
		cfg.Generator.MaxRetries = 3
	}
	if cfg.Generator.Timeout == 0 {
		cfg.Generator.Timeout = Duration(60 * time.Second)
	}

	if cfg.PII.Mode == "" {
		cfg.PII.Mode = "PASS_THROUGH"
	}

	if cfg.RAG.DefaultLimit == 0 {
		cfg.RAG.DefaultLimit = 10
	}
	if cfg.RAG.DefaultThreshold == 0 {
		cfg.RAG.DefaultThreshold = 0.7
	}
	if cfg.RAG.ExpansionCount == 0 {
		cfg.RAG.ExpansionCount = 3
	}
	if cfg.RAG.MaxDocuments == 0 {
		cfg.RAG.MaxDocuments = 10
	}
	if cfg.RAG.MediumContextDocs == 0 {
		cfg.RAG.MediumContextDocs = 5
	}

	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 9090
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "ragcore"
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("%w: logging: %v", ErrInvalidConfig, err)
	}

	switch c.Embeddings.Provider {
	case "onnx", "fastembed", "tei", "openai":
	default:
		return fmt.Errorf("%w: unknown embeddings provider %q", ErrInvalidConfig, c.Embeddings.Provider)
	}
	if c.Embeddings.MaxSequenceLength < 2 {
		return fmt.Errorf("%w: embeddings.max_sequence_length must be >= 2", ErrInvalidConfig)
	}
	if c.Embeddings.Dimension <= 0 {
		return fmt.Errorf("%w: embeddings.dimension must be > 0", ErrInvalidConfig)
	}

	switch c.VectorStore.Provider {
	case "memory", "chromem", "qdrant":
	default:
		return fmt.Errorf("%w: unknown vectorstore provider %q", ErrInvalidConfig, c.VectorStore.Provider)
	}
	if c.VectorStore.Qdrant.Port <= 0 || c.VectorStore.Qdrant.Port > 65535 {
		return fmt.Errorf("%w: vectorstore.qdrant.port out of range", ErrInvalidConfig)
	}

	switch c.Generator.Provider {
	case "anthropic", "openai", "ollama", "none":
	default:
		return fmt.Errorf("%w: unknown generator provider %q", ErrInvalidConfig, c.Generator.Provider)
	}
	if c.Generator.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: generator.requests_per_second must be >= 0", ErrInvalidConfig)
	}

	switch c.PII.Mode {
	case "PASS_THROUGH", "DETECT_ONLY", "REDACT":
	default:
		return fmt.Errorf("%w: unknown pii mode %q", ErrInvalidConfig, c.PII.Mode)
	}

	if c.RAG.DefaultThreshold < 0 || c.RAG.DefaultThreshold > 1 {
		return fmt.Errorf("%w: rag.default_threshold must be within [0,1]", ErrInvalidConfig)
	}
	if c.RAG.DefaultLimit <= 0 || c.RAG.MaxDocuments <= 0 {
		return fmt.Errorf("%w: rag limits must be > 0", ErrInvalidConfig)
	}
	if c.RAG.WorkerPoolSize < 0 {
		return fmt.Errorf("%w: rag.worker_pool_size must be >= 0", ErrInvalidConfig)
	}

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("%w: server.http_port out of range", ErrInvalidConfig)
	}
	return nil
}
