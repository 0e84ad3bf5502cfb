package embeddings

import "fmt"

// Output is a raw model output tensor.
type Output struct {
	Shape []int64
	Data  []float32
}

// Pool reduces a model output to one vector per batch row.
//
// Supported shapes:
//
//	[b, d]        returned row by row
//	[b, s, d]     mean over s
//	[b, s, x, d]  index 0 of the third axis, then mean over s
//
// The mean divides by s, padding positions included. BuildBatch pads every
// row to the tokenizer's max length, so s is the same for every call.
func Pool(out Output, batchSize int) ([][]float32, error) {
	shape := out.Shape
	if len(shape) < 2 || len(shape) > 4 {
		return nil, fmt.Errorf("%w: unsupported output rank %d", ErrFormat, len(shape))
	}
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("%w: non-positive dimension in shape %v", ErrFormat, shape)
		}
	}
	if int(shape[0]) != batchSize {
		return nil, fmt.Errorf("%w: output batch %d does not match input batch %d", ErrFormat, shape[0], batchSize)
	}

	total := int64(1)
	for _, d := range shape {
		total *= d
	}
	if int64(len(out.Data)) != total {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrFormat, len(out.Data), shape)
	}

	switch len(shape) {
	case 2:
		dim := int(shape[1])
		vecs := make([][]float32, batchSize)
		for b := range vecs {
			vecs[b] = append([]float32(nil), out.Data[b*dim:(b+1)*dim]...)
		}
		return vecs, nil
	case 3:
		return meanPool(out.Data, batchSize, int(shape[1]), 1, int(shape[2])), nil
	default:
		return meanPool(out.Data, batchSize, int(shape[1]), int(shape[2]), int(shape[3])), nil
	}
}

// meanPool averages over the sequence axis of a [b, s, x, d] tensor, reading
// only index 0 of the x axis. Rank-3 input is passed with x = 1.
func meanPool(data []float32, batch, seq, x, dim int) [][]float32 {
	vecs := make([][]float32, batch)
	for b := 0; b < batch; b++ {
		sum := make([]float64, dim)
		for s := 0; s < seq; s++ {
			off := ((b*seq+s)*x + 0) * dim
			for k := 0; k < dim; k++ {
				sum[k] += float64(data[off+k])
			}
		}
		vec := make([]float32, dim)
		for k := range vec {
			vec[k] = float32(sum[k] / float64(seq))
		}
		vecs[b] = vec
	}
	return vecs
}
