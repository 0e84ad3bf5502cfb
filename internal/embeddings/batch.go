package embeddings

// Batch holds the flattened model inputs for a group of texts. Each tensor
// is row-major with shape [BatchSize, SeqLen].
type Batch struct {
	BatchSize     int
	SeqLen        int
	InputIDs      []int64
	AttentionMask []int64
	TokenTypeIDs  []int64
}

// BuildBatch tokenizes texts into rows of exactly tok.MaxLength() IDs.
// The attention mask is 1 for real tokens and 0 for padding, so a text
// produces the same row whichever batch it is part of.
// Returns ErrEmptyInput for a nil or empty slice.
func BuildBatch(tok *Tokenizer, texts []string) (*Batch, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	seqLen := tok.MaxLength()
	n := len(texts) * seqLen
	b := &Batch{
		BatchSize:     len(texts),
		SeqLen:        seqLen,
		InputIDs:      make([]int64, n),
		AttentionMask: make([]int64, n),
		TokenTypeIDs:  make([]int64, n),
	}
	for i, text := range texts {
		row := i * seqLen
		copy(b.InputIDs[row:row+seqLen], tok.Tokenize(text))
		for j := range tok.Encode(text) {
			b.AttentionMask[row+j] = 1
		}
	}
	return b, nil
}

// Shape returns the [batch, sequence] shape shared by all three tensors.
func (b *Batch) Shape() []int64 {
	return []int64{int64(b.BatchSize), int64(b.SeqLen)}
}
