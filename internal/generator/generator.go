// Package generator turns prompts into text using a large language model.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrGeneration wraps every generation failure.
var ErrGeneration = errors.New("generation failed")

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Func adapts a function to Generator.
type Func func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Config selects a generator backend.
type Config struct {
	// Provider is "anthropic", "openai", "ollama" or "none".
	Provider          string
	Model             string
	BaseURL           string
	APIKey            string
	RequestsPerSecond float64
	MaxRetries        int
	Timeout           time.Duration
}

// New builds the configured generator.
func New(cfg Config) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "none":
		return Unavailable("no generator configured"), nil
	case "anthropic":
		g, err := NewAnthropicGenerator(AnthropicConfig{
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			RequestsPerSecond: cfg.RequestsPerSecond,
			MaxRetries:        cfg.MaxRetries,
			Timeout:           cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	case "openai":
		opts := []openai.Option{}
		if cfg.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		token := cfg.APIKey
		if token == "" {
			// Local OpenAI-compatible servers accept any token.
			token = "none"
		}
		opts = append(opts, openai.WithToken(token))
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: creating openai client: %v", ErrGeneration, err)
		}
		return NewLangChainGenerator(llm), nil
	case "ollama":
		opts := []ollama.Option{}
		if cfg.Model != "" {
			opts = append(opts, ollama.WithModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: creating ollama client: %v", ErrGeneration, err)
		}
		return NewLangChainGenerator(llm), nil
	default:
		return nil, fmt.Errorf("%w: unknown generator provider %q", ErrGeneration, cfg.Provider)
	}
}

// Unavailable returns a generator that always fails with reason.
func Unavailable(reason string) Generator {
	return Func(func(context.Context, string) (string, error) {
		return "", fmt.Errorf("%w: %s", ErrGeneration, reason)
	})
}

// LangChainGenerator generates through any langchaingo model.
type LangChainGenerator struct {
	model   llms.Model
	options []llms.CallOption
}

// NewLangChainGenerator wraps model. Options apply to every call.
func NewLangChainGenerator(model llms.Model, options ...llms.CallOption) *LangChainGenerator {
	return &LangChainGenerator{model: model, options: options}
}

// Generate sends prompt as a single human message.
func (g *LangChainGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, g.options...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return out, nil
}
