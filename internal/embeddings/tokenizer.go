package embeddings

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// Special token IDs in the BERT uncased vocabulary.
const (
	PadTokenID int64 = 0
	UnkTokenID int64 = 100
	ClsTokenID int64 = 101
	SepTokenID int64 = 102

	// VocabSize is the size of the ID space hashed word pieces land in.
	VocabSize = 30522

	// DefaultMaxSequenceLength is used when no limit is configured.
	DefaultMaxSequenceLength = 512
)

const (
	// maxPieceLength bounds the candidate piece length during decomposition.
	maxPieceLength = 20
	// maxDecomposeAttempts bounds the pieces emitted per word; the
	// remainder of an overlong word collapses to a single unknown token.
	maxDecomposeAttempts = 20
	// reservedIDs covers [PAD], [unusedN], [UNK] and friends. Pieces that
	// hash below it are treated as unknown.
	reservedIDs = 100
)

// Tokenizer is an approximate WordPiece tokenizer. It needs no vocabulary
// file: pieces are mapped into the vocabulary ID space with FNV-1a, so every
// candidate piece hashing above the reserved range is "known".
//
// Tokenizer is stateless and safe for concurrent use.
type Tokenizer struct {
	maxLen int
}

// NewTokenizer returns a tokenizer emitting at most maxLen IDs per text.
// Non-positive maxLen uses DefaultMaxSequenceLength.
func NewTokenizer(maxLen int) *Tokenizer {
	if maxLen <= 1 {
		maxLen = DefaultMaxSequenceLength
	}
	return &Tokenizer{maxLen: maxLen}
}

// MaxLength returns the sequence length limit.
func (t *Tokenizer) MaxLength() int {
	return t.maxLen
}

// Encode returns [CLS] + pieces + [SEP], unpadded. Content is truncated so
// the result never exceeds MaxLength and always ends with [SEP].
func (t *Tokenizer) Encode(text string) []int64 {
	ids := make([]int64, 0, 16)
	ids = append(ids, ClsTokenID)
	for _, word := range segment(normalize(text)) {
		for _, id := range decompose(word) {
			if len(ids) >= t.maxLen-1 {
				return append(ids, SepTokenID)
			}
			ids = append(ids, id)
		}
	}
	return append(ids, SepTokenID)
}

// Tokenize returns Encode(text) padded with [PAD] to exactly MaxLength.
func (t *Tokenizer) Tokenize(text string) []int64 {
	ids := t.Encode(text)
	padded := make([]int64, t.maxLen)
	copy(padded, ids)
	return padded
}

// normalize lowercases, trims, replaces general punctuation and
// non-breaking spaces with a plain space and collapses whitespace runs.
func normalize(text string) string {
	mapped := strings.Map(func(r rune) rune {
		if r == '\u00a0' || (r >= '\u2000' && r <= '\u206f') {
			return ' '
		}
		return r
	}, strings.ToLower(text))
	return strings.Join(strings.Fields(mapped), " ")
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}

// segment splits normalized text into words and single-rune punctuation
// tokens. Quote characters are dropped.
func segment(text string) []string {
	var (
		words []string
		cur   strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case isWordRune(r):
			cur.WriteRune(r)
		case unicode.IsSpace(r):
			flush()
		case r == '\'' || r == '"':
			flush()
		default:
			flush()
			words = append(words, string(r))
		}
	}
	flush()
	return words
}

// lookup hashes a piece into the vocabulary. ok is false for pieces landing
// in the reserved range.
func lookup(piece string) (int64, bool) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(piece))
	id := int64(h.Sum32() % VocabSize)
	return id, id >= reservedIDs
}

// decompose greedily splits a word into the longest known pieces, marking
// continuation pieces with "##". Never returns an empty slice.
func decompose(word string) []int64 {
	runes := []rune(word)
	var ids []int64
	start, attempts := 0, 0

	for start < len(runes) {
		if attempts >= maxDecomposeAttempts {
			ids = append(ids, UnkTokenID)
			break
		}
		attempts++

		matched := false
		end := start + maxPieceLength
		if end > len(runes) {
			end = len(runes)
		}
		for ; end > start; end-- {
			piece := string(runes[start:end])
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := lookup(piece); ok {
				ids = append(ids, id)
				start = end
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		// Fall back to the single rune, then to [UNK].
		ch := string(runes[start])
		if id, ok := lookup("##" + ch); ok {
			ids = append(ids, id)
		} else if id, ok := lookup(ch); ok {
			ids = append(ids, id)
		} else {
			ids = append(ids, UnkTokenID)
		}
		start++
	}

	if len(ids) == 0 {
		return []int64{UnkTokenID}
	}
	return ids
}
