package vectorstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func withClock(t *testing.T, times ...time.Time) {
	t.Helper()
	orig := timeNow
	i := 0
	timeNow = func() time.Time {
		now := times[i]
		if i < len(times)-1 {
			i++
		}
		return now
	}
	t.Cleanup(func() { timeNow = orig })
}

func TestMemoryStore_RestoreKeepsCreatedAt(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	withClock(t, t0, t1)

	s := NewMemoryStore(nil)
	ctx := context.Background()
	require.NoError(t, s.Store(ctx, "x", []float32{1}, map[string]interface{}{"v": 1}))
	require.NoError(t, s.Store(ctx, "x", []float32{2}, map[string]interface{}{"v": 2}))

	rec, ok, err := s.Get(ctx, "x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, t0, rec.CreatedAt)
	assert.Equal(t, t1, rec.UpdatedAt)
	assert.Equal(t, []float32{2}, rec.Vector)
	assert.Equal(t, 2, rec.Metadata["v"])
}

func TestMemoryStore_DefensiveCopies(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()

	vec := []float32{1, 2}
	meta := map[string]interface{}{"tags": []interface{}{"a"}, "nested": map[string]interface{}{"k": "v"}}
	require.NoError(t, s.Store(ctx, "x", vec, meta))

	vec[0] = 99
	meta["tags"].([]interface{})[0] = "mutated"
	meta["nested"].(map[string]interface{})["k"] = "mutated"

	rec, _, err := s.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, float32(1), rec.Vector[0])
	assert.Equal(t, "a", rec.Metadata["tags"].([]interface{})[0])
	assert.Equal(t, "v", rec.Metadata["nested"].(map[string]interface{})["k"])

	rec.Vector[1] = 42
	results, err := s.Search(ctx, []float32{1, 2}, 1, 0)
	require.NoError(t, err)
	results[0].Record.Metadata["extra"] = true

	again, _, err := s.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, float32(2), again.Vector[1])
	assert.NotContains(t, again.Metadata, "extra")
}

func TestMemoryStore_BatchStoreWarnsOnInvalid(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := NewMemoryStore(zap.New(core))

	require.NoError(t, s.BatchStore(context.Background(), []Record{
		{ID: "ok", Vector: []float32{1}},
		{ID: "bad"},
	}))

	assert.Equal(t, 1, logs.FilterMessage("skipping invalid vector record").Len())
	assert.Equal(t, 1, s.Stats()["vectorCount"])
}

func TestMemoryStore_StatsEstimate(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()
	require.NoError(t, s.Store(ctx, "abcd", []float32{1, 2, 3}, map[string]interface{}{"a": 1, "b": 2}))

	stats := s.Stats()
	// 4 id bytes + 3*4 vector bytes + 2*50 metadata + 64 overhead.
	assert.Equal(t, int64(4+12+100+64), stats["estimatedMemoryUsageBytes"])
	assert.Equal(t, 3, stats["vectorDimensions"])
	assert.Equal(t, "memory", stats["type"])
	assert.Equal(t, int64(0), stats["searchCount"])
}

func TestMemoryStore_SearchTiesOrderedByID(t *testing.T) {
	s := NewMemoryStore(nil)
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Store(ctx, id, []float32{1, 0}, nil))
	}

	results, err := s.Search(ctx, []float32{1, 0}, 10, 0)
	require.NoError(t, err)
	got := make([]string, len(results))
	for i, r := range results {
		got[i] = r.Record.ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestSearchStats_Average(t *testing.T) {
	var st searchStats
	st.observe(2 * time.Millisecond)
	st.observe(4 * time.Millisecond)

	m := map[string]interface{}{}
	st.fill(m)
	assert.Equal(t, int64(2), m["searchCount"])
	assert.InDelta(t, 6.0, m["totalSearchTimeMs"], 1e-9)
	assert.InDelta(t, 3.0, m["averageSearchTimeMs"], 1e-9)
}
