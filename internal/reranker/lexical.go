package reranker

import (
	"context"
	"sort"
	"strings"
)

// LexicalReranker blends the native score with query term overlap. It
// needs no embedder, which makes it the cheap alternative to
// SemanticReranker.
type LexicalReranker struct {
	scoreWeight   float64
	overlapWeight float64
}

// NewLexicalReranker weights score and overlap equally.
func NewLexicalReranker() *LexicalReranker {
	return &LexicalReranker{scoreWeight: 0.5, overlapWeight: 0.5}
}

// Rerank writes the blended value into Similarity on the returned copies.
// A query without usable terms sorts by Score alone.
func (r *LexicalReranker) Rerank(ctx context.Context, query string, docs []Document) ([]Document, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	queryTokens := tokenize(query)
	if len(queryTokens) == 0 {
		return ScoreReranker{}.Rerank(ctx, query, docs)
	}

	out := cloneDocs(docs)
	for i := range out {
		overlap := termOverlap(queryTokens, tokenize(out[i].Content))
		out[i].Similarity = r.scoreWeight*out[i].Score + r.overlapWeight*overlap
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out, nil
}

// tokenize splits text into lowercase terms, dropping stopwords and
// anything shorter than three characters.
func tokenize(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isAlphanumeric(r)
	})

	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len(token) > 2 && !stopwords[token] {
			filtered = append(filtered, token)
		}
	}
	return filtered
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_'
}

var stopwords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true,
	"from": true, "was": true, "are": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "can": true, "this": true, "that": true, "these": true,
	"those": true, "you": true, "she": true, "they": true, "what": true,
	"which": true, "who": true, "when": true, "where": true, "why": true,
	"how": true,
}

// termOverlap is the fraction of distinct query terms present in the
// document, in [0,1].
func termOverlap(queryTokens, docTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	docSet := make(map[string]bool, len(docTokens))
	for _, token := range docTokens {
		docSet[token] = true
	}

	unique := make(map[string]bool, len(queryTokens))
	matched := 0
	for _, token := range queryTokens {
		if unique[token] {
			continue
		}
		unique[token] = true
		if docSet[token] {
			matched++
		}
	}
	return float64(matched) / float64(len(unique))
}
