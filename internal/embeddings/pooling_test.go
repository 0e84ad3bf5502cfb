package embeddings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_Rank2(t *testing.T) {
	vecs, err := Pool(Output{Shape: []int64{2, 3}, Data: []float32{1, 2, 3, 4, 5, 6}}, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2, 3}, {4, 5, 6}}, vecs)
}

func TestPool_Rank3IncludesPadding(t *testing.T) {
	// One row, three positions; the last is padding and contributes zeros.
	out := Output{
		Shape: []int64{1, 3, 2},
		Data:  []float32{2, 4, 4, 8, 0, 0},
	}
	vecs, err := Pool(out, 1)
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	assert.InDeltaSlice(t, []float32{2, 4}, vecs[0], 1e-6)
}

func TestPool_Rank4UsesFirstSlice(t *testing.T) {
	// [b=1, s=2, x=2, d=2]; the x=1 slice is noise that must be ignored.
	out := Output{
		Shape: []int64{1, 2, 2, 2},
		Data: []float32{
			1, 1, 99, 99,
			3, 5, 99, 99,
		},
	}
	vecs, err := Pool(out, 1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{2, 3}, vecs[0], 1e-6)
}

func TestPool_Errors(t *testing.T) {
	tests := []struct {
		name  string
		out   Output
		batch int
	}{
		{"rank 1", Output{Shape: []int64{4}, Data: make([]float32, 4)}, 4},
		{"rank 5", Output{Shape: []int64{1, 1, 1, 1, 1}, Data: make([]float32, 1)}, 1},
		{"batch mismatch", Output{Shape: []int64{2, 3}, Data: make([]float32, 6)}, 3},
		{"short data", Output{Shape: []int64{2, 3}, Data: make([]float32, 5)}, 2},
		{"zero dimension", Output{Shape: []int64{1, 0, 3}, Data: nil}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Pool(tt.out, tt.batch)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}
