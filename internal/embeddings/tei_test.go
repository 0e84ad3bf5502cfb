package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teiServer(t *testing.T, handler func(inputs []string) (int, interface{})) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		var req teiRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Truncate)

		status, body := handler(req.Inputs)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTEIProvider_EmbedBatch(t *testing.T) {
	srv := teiServer(t, func(inputs []string) (int, interface{}) {
		out := make([][]float32, len(inputs))
		for i, in := range inputs {
			out[i] = []float32{float32(len(in)), 1, 0}
		}
		return http.StatusOK, out
	})

	p, err := NewTEIProvider(TEIConfig{BaseURL: srv.URL, Model: "m", Dimension: 3})
	require.NoError(t, err)

	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "bbb"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 1, 0}, {3, 1, 0}}, vecs)

	vec, err := p.Embed(context.Background(), "bbb")
	require.NoError(t, err)
	assert.Equal(t, vecs[1], vec)
	assert.Equal(t, 3, p.Dimension())
}

func TestTEIProvider_Errors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := teiServer(t, func([]string) (int, interface{}) {
			return http.StatusInternalServerError, map[string]string{"error": "overloaded"}
		})
		p, err := NewTEIProvider(TEIConfig{BaseURL: srv.URL})
		require.NoError(t, err)
		_, err = p.Embed(context.Background(), "x")
		assert.ErrorIs(t, err, ErrEmbeddingFailed)
		assert.Contains(t, err.Error(), "overloaded")
	})

	t.Run("count mismatch", func(t *testing.T) {
		srv := teiServer(t, func([]string) (int, interface{}) {
			return http.StatusOK, [][]float32{{1}}
		})
		p, err := NewTEIProvider(TEIConfig{BaseURL: srv.URL})
		require.NoError(t, err)
		_, err = p.EmbedBatch(context.Background(), []string{"a", "b"})
		assert.ErrorIs(t, err, ErrFormat)
	})
}
