// Package telemetry installs OpenTelemetry trace and metric providers that
// export over OTLP.
//
// The retrieval packages record spans and metrics through the global otel
// providers. NewProvider swaps those globals for exporting SDK providers
// when telemetry is enabled and leaves the no-op defaults otherwise:
//
//	tel, err := telemetry.NewProvider(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
// Telemetry failures never stop the process. An exporter that cannot be
// created marks the provider degraded and the affected signal stays no-op.
//
// Tests use NewTestProvider, which records spans and metrics in memory.
package telemetry
