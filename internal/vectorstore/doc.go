// Package vectorstore stores embedding vectors with metadata and ranks them
// by cosine similarity.
//
// Every backend implements Store with the same exact, brute-force search
// semantics: scan, filter, score, drop results under the threshold, sort
// descending and take the first limit results. Similarity is cosine clamped
// to [0, 1]; zero-norm or mismatched vectors score 0.
//
// Backends:
//
//   - memory: a mutex-guarded map. Volatile.
//   - chromem: a persistent chromem-go collection used as a document store.
//     Vectors travel as delimited text in document metadata and are
//     re-ranked in process, so results match the memory backend exactly
//     and survive restarts.
//   - qdrant: a remote Qdrant collection over gRPC, with retry and a
//     circuit breaker for transient failures.
//
// EntitySyncStore layers the denormalized search-record index from package
// entityindex on top of any Store.
package vectorstore
