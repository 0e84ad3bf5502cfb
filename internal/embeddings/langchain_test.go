package embeddings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 0.5}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func TestLangChainProvider(t *testing.T) {
	fake := &fakeEmbedder{}
	p := NewLangChainProviderWithEmbedder(fake, "text-embedding-3-small", 0)
	assert.Equal(t, 1536, p.Dimension())
	assert.True(t, p.IsAvailable())

	vecs, err := p.EmbedBatch(context.Background(), []string{"ab", "abcd"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2, 0.5}, {4, 0.5}}, vecs)

	vec, err := p.Embed(context.Background(), "abcd")
	require.NoError(t, err)
	assert.Equal(t, vecs[1], vec)

	empty, err := p.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, 2, fake.calls)
}

func TestLangChainProvider_Error(t *testing.T) {
	p := NewLangChainProviderWithEmbedder(&fakeEmbedder{err: errors.New("rate limited")}, "m", 4)
	_, err := p.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Contains(t, err.Error(), "rate limited")
}
