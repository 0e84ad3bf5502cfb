package reranker

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragcore/internal/logging"
	"github.com/fyrsmithlabs/ragcore/internal/vectorstore"
)

// Hybrid blend weights.
const (
	hybridScoreWeight      = 0.6
	hybridSimilarityWeight = 0.4
)

// ScoreReranker sorts by the store's native score, descending.
type ScoreReranker struct{}

func (ScoreReranker) Rerank(ctx context.Context, _ string, docs []Document) ([]Document, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	out := cloneDocs(docs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// SemanticReranker embeds the query and each document and sorts by the
// cosine similarity between them. Each document costs one embed call.
type SemanticReranker struct {
	embedder Embedder
	logger   *logging.Logger
}

// Rerank overwrites Similarity on the returned copies. A document whose
// embedding fails keeps its previous Similarity. If the query itself
// cannot be embedded the input order is returned unchanged.
func (r *SemanticReranker) Rerank(ctx context.Context, query string, docs []Document) ([]Document, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	out := cloneDocs(docs)
	if len(out) == 0 {
		return out, nil
	}

	queryVec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn(ctx, "semantic re-ranking failed, using original order", zap.Error(err))
		return out, nil
	}

	for i := range out {
		docVec, err := r.embedder.Embed(ctx, out[i].Content)
		if err != nil {
			r.logger.Warn(ctx, "failed to embed document for re-ranking",
				zap.String("document_id", out[i].ID), zap.Error(err))
			continue
		}
		out[i].Similarity = vectorstore.CosineSimilarity(queryVec, docVec)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out, nil
}

// HybridReranker blends native score and similarity into Similarity.
type HybridReranker struct{}

func (HybridReranker) Rerank(ctx context.Context, _ string, docs []Document) ([]Document, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	out := cloneDocs(docs)
	for i := range out {
		out[i].Similarity = hybridScoreWeight*out[i].Score + hybridSimilarityWeight*out[i].Similarity
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	return out, nil
}

// DiversityReranker puts the first document of every distinct Type at the
// head of the list, then the rest in their original order.
type DiversityReranker struct{}

func (DiversityReranker) Rerank(ctx context.Context, _ string, docs []Document) ([]Document, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	out := make([]Document, 0, len(docs))
	seen := make(map[string]bool)
	picked := make([]bool, len(docs))

	for i, d := range docs {
		if seen[d.Type] {
			continue
		}
		seen[d.Type] = true
		picked[i] = true
		out = append(out, d)
	}
	for i, d := range docs {
		if !picked[i] {
			out = append(out, d)
		}
	}
	return out, nil
}
