// Package logging provides structured logging for the retrieval core.
//
// The package wraps Zap with:
//   - a Trace level (-2) below Debug for per-token and per-record detail
//   - automatic correlation fields (trace_id, span_id, request.id, entity.type)
//   - field-name and value-pattern redaction
//   - level-aware sampling where errors are never dropped
//
// Create a logger from config and pass it down explicitly, or carry it in
// the context with WithLogger:
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRequestID(ctx, reqID)
//	logger.Info(ctx, "retrieval completed", zap.Int("documents", n))
package logging
