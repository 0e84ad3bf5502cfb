// Package rag answers questions from indexed content.
//
// Service runs the basic pipeline: sanitize the query, embed it, search
// the vector store, assemble a numbered context block and ask the text
// generator for an answer. AdvancedService layers query expansion, a
// concurrent fan-out of searches, re-ranking and context optimization on
// top of it.
//
// Pipeline failures never surface as Go errors. They come back as a
// Response with Success=false and ErrorMessage set; stages that can
// degrade (expansion, individual sub-searches, context compression) do so
// silently and the call still succeeds.
package rag
