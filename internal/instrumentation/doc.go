// Package instrumentation provides OpenTelemetry metrics, tracing and the
// dispatch audit log for the safegate gateway.
//
// # Metrics
//
// Server/HTTP:
//   - http_requests_total: requests by method, route pattern and status
//   - http_request_duration_seconds: request durations
//   - active_sessions: live browser sessions
//
// Upstream:
//   - upstream_operations_total: dispatched calls by api, operation and status
//   - upstream_operation_duration_seconds: dispatched call durations
//   - dispatch_rejections_total: calls refused before any upstream request
//
// OAuth:
//   - oauth_auth_total: authorization code exchanges by result
//   - oauth_credential_updates_total: client credential replacements
//
// Every recording method accepts a nil *Metrics.
//
// # Tracing
//
// Upstream calls get a client span named upstream.<api>.<operation>.
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: enable metrics and tracing (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces and metrics
//   - OTEL_TRACES_SAMPLER_ARG: sampling rate from 0.0 to 1.0 (default: 0.1)
//   - OTEL_SERVICE_NAME: service name (default: safegate)
//   - AUDIT_LOGGING_ENABLED: write one audit line per dispatched call (default: true)
//
// # Example
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordUpstreamOperation(ctx, instrumentation.APITasks,
//		"list_task_lists", "", instrumentation.StatusSuccess, time.Since(start))
package instrumentation
