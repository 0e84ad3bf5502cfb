// Package embeddings turns text into fixed-length vectors.
//
// Providers are selected once at startup through NewProvider:
//
//   - onnx: a local transformer model driven by a built-in approximate
//     WordPiece tokenizer, batched tensor construction and mean pooling.
//     Inference is serialized behind a single mutex.
//   - fastembed: packaged ONNX models via fastembed-go.
//   - tei: a Text Embeddings Inference server over HTTP.
//   - openai: any OpenAI-compatible embeddings endpoint via langchaingo.
//
// The local tokenizer needs no vocabulary file. Word pieces are hashed
// into the BERT ID space, which keeps tokenization deterministic but only
// approximates a trained vocabulary.
package embeddings
