package vectorstore

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordOperations(t *testing.T) {
	ctx := context.Background()
	success := OperationsTotal.WithLabelValues(memoryBackend, "store", "success")
	failure := OperationsTotal.WithLabelValues(memoryBackend, "store", "error")
	searches := OperationsTotal.WithLabelValues(memoryBackend, "search", "success")
	beforeOK := testutil.ToFloat64(success)
	beforeErr := testutil.ToFloat64(failure)
	beforeSearch := testutil.ToFloat64(searches)

	s := NewMemoryStore(nil)
	require.NoError(t, s.Store(ctx, "a", []float32{1}, nil))
	require.Error(t, s.Store(ctx, "", []float32{1}, nil))
	_, err := s.Search(ctx, []float32{1}, 1, 0)
	require.NoError(t, err)

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(success))
	assert.Equal(t, beforeErr+1, testutil.ToFloat64(failure))
	assert.Equal(t, beforeSearch+1, testutil.ToFloat64(searches))
	assert.Equal(t, float64(1), testutil.ToFloat64(Records.WithLabelValues(memoryBackend)))
}
