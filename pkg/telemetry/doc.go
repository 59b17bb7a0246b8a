// Package telemetry provides observability instrumentation for the
// configuration pipeline: structured logging (zerolog), distributed tracing
// (OpenTelemetry) and metrics (Prometheus).
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Component loggers carry a component field and the pipeline identifiers
// (workbook_id, version_id, implementation_id) as structured fields.
package telemetry
