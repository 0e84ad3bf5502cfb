// Package compression shrinks the retrieved context handed to answer
// generation.
//
// Three levels are supported:
//   - low: every passage, joined by blank lines
//   - medium: the highest scoring passages only (five by default)
//   - high: every passage, rewritten by the text generator to remove
//     redundancy; falls back to medium when the generator fails
//
// The optimizer exports OpenTelemetry metrics:
//   - compression.operations_total (counter): operations by level and outcome
//   - compression.duration_seconds (histogram): time spent per operation
//   - compression.ratio (histogram): input length over output length
package compression
