package rag_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragcore/internal/generator"
	"github.com/fyrsmithlabs/ragcore/internal/rag"
	"github.com/fyrsmithlabs/ragcore/internal/sanitize"
	"github.com/fyrsmithlabs/ragcore/internal/vectorstore"
)

var errBroken = errors.New("embedder exploded")

// keywordEmbedder maps topic words onto fixed axes so similarities are
// predictable: cat -> x, dog -> y, fish or pet -> z. Text containing
// "broken" fails.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls []string
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, text)
	e.mu.Unlock()

	lower := strings.ToLower(text)
	if strings.Contains(lower, "broken") {
		return nil, errBroken
	}
	v := []float32{0, 0, 0}
	if strings.Contains(lower, "cat") {
		v[0] = 1
	}
	if strings.Contains(lower, "dog") {
		v[1] = 1
	}
	if strings.Contains(lower, "fish") || strings.Contains(lower, "pet") {
		v[2] = 1
	}
	if v[0] == 0 && v[1] == 0 && v[2] == 0 {
		v = []float32{0.01, 0.01, 0.01}
	}
	return v, nil
}

func (e *keywordEmbedder) Status() map[string]interface{} {
	return map[string]interface{}{"provider": "keyword", "available": true}
}

func (e *keywordEmbedder) seen(text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.calls {
		if c == text {
			return true
		}
	}
	return false
}

// scriptedGenerator answers by prompt kind and records every prompt.
type scriptedGenerator struct {
	mu        sync.Mutex
	prompts   []string
	expansion string
	expandErr error
	optimized string
	optimErr  error
	answer    string
	answerErr error
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	switch {
	case strings.HasPrefix(prompt, "Generate "):
		if g.expandErr != nil {
			return "", g.expandErr
		}
		return g.expansion, nil
	case strings.HasPrefix(prompt, "Optimize this context"):
		if g.optimErr != nil {
			return "", g.optimErr
		}
		return g.optimized, nil
	default:
		if g.answerErr != nil {
			return "", g.answerErr
		}
		return g.answer, nil
	}
}

func (g *scriptedGenerator) answerPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.prompts) - 1; i >= 0; i-- {
		if strings.HasPrefix(g.prompts[i], "Based on the following context") {
			return g.prompts[i]
		}
	}
	return ""
}

func (g *scriptedGenerator) all() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

var _ generator.Generator = (*scriptedGenerator)(nil)

type fixture struct {
	embedder *keywordEmbedder
	store    *vectorstore.MemoryStore
	gen      *scriptedGenerator
	svc      *rag.Service
}

func newFixture(t *testing.T, sanitizer sanitize.Sanitizer, opts ...rag.Option) *fixture {
	t.Helper()
	f := &fixture{
		embedder: &keywordEmbedder{},
		store:    vectorstore.NewMemoryStore(nil),
		gen:      &scriptedGenerator{answer: "generated answer"},
	}
	f.svc = rag.NewService(f.embedder, f.store, sanitizer, f.gen, opts...)
	return f
}

// seed indexes one cat, one dog and one fish document.
func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.svc.Index(ctx, "animal", "cat", "cats purr", map[string]interface{}{"title": "Cats", "price": "$12"}))
	require.NoError(t, f.svc.Index(ctx, "animal", "dog", "dogs bark", map[string]interface{}{"title": "Dogs", "price": "$30"}))
	require.NoError(t, f.svc.Index(ctx, "habitat", "fish", "fish swim", map[string]interface{}{"title": "Fish"}))
}

func threshold(v float64) *float64 { return &v }

func docIDs(docs []rag.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
