package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromemStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	cfg := ChromemConfig{Path: filepath.Join(t.TempDir(), "vectors"), Collection: "persist_test"}

	s, err := NewChromemStore(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, s.Store(ctx, "doc:1", []float32{0.1, 0.2, 0.3}, map[string]interface{}{
		"entityType": "doc",
		"count":      7,
		"published":  true,
		"tags":       []string{"go", "rag"},
	}))
	require.NoError(t, s.Close())

	reopened, err := NewChromemStore(cfg, nil)
	require.NoError(t, err)
	defer reopened.Close()

	rec, ok, err := reopened.Get(ctx, "doc:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, rec.Vector)
	assert.Equal(t, "doc", rec.Metadata["entityType"])
	assert.Equal(t, float64(7), rec.Metadata["count"])
	assert.Equal(t, true, rec.Metadata["published"])
	assert.Equal(t, []interface{}{"go", "rag"}, rec.Metadata["tags"])

	results, err := reopened.SearchWithFilter(ctx, []float32{0.1, 0.2, 0.3},
		map[string]interface{}{"entityType": "doc", "count": 7}, 5, 0.9)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
}

func TestChromemStore_Stats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors")
	s, err := NewChromemStore(ChromemConfig{Path: path}, nil)
	require.NoError(t, err)

	stats := s.Stats()
	assert.Equal(t, "chromem", stats["type"])
	assert.Equal(t, path, stats["indexPath"])
	assert.Equal(t, "ragcore_vectors", stats["collection"])
	assert.Equal(t, 0, stats["vectorCount"])
}

func TestChromemConfig_RejectsBadCollection(t *testing.T) {
	_, err := NewChromemStore(ChromemConfig{Path: t.TempDir(), Collection: "../escape"}, nil)
	assert.ErrorIs(t, err, ErrInvalidCollectionName)
}

func TestVectorCodec(t *testing.T) {
	v := []float32{1, -0.5, 3.25e-7, 1234.5}
	decoded, err := decodeVector(encodeVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, decoded)

	_, err = decodeVector("")
	assert.Error(t, err)
	_, err = decodeVector("1,abc")
	assert.Error(t, err)
}

func TestWhereClause(t *testing.T) {
	assert.Nil(t, whereClause(nil))
	assert.Nil(t, whereClause(map[string]interface{}{"n": 3}))
	assert.Equal(t, map[string]string{
		"meta_entityType": `"doc"`,
		"meta_published":  "true",
	}, whereClause(map[string]interface{}{"entityType": "doc", "published": true, "n": 3}))
}
