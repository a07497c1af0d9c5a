package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrAPI       = "api"
	attrOperation = "operation"
	attrResult    = "result"
	attrResource  = "resource"
	attrKind      = "kind"
)

// Metrics records the gateway's metrics. A nil *Metrics is valid and records
// nothing, so callers never have to check whether instrumentation is enabled.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSessions      metric.Int64UpDownCounter

	// Upstream (Google API or webhook) metrics
	upstreamOperationsTotal   metric.Int64Counter
	upstreamOperationDuration metric.Float64Histogram

	// OAuth and credential metrics
	oauthAuthTotal          metric.Int64Counter
	credentialUpdatesTotal  metric.Int64Counter
	dispatchRejectionsTotal metric.Int64Counter

	detailedLabels bool
}

// NewMetrics creates a Metrics with every instrument registered on meter.
// detailedLabels adds Google resource identifiers to upstream metrics.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.activeSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of live browser sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	m.upstreamOperationsTotal, err = meter.Int64Counter(
		"upstream_operations_total",
		metric.WithDescription("Total number of dispatched upstream operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream_operations_total counter: %w", err)
	}

	m.upstreamOperationDuration, err = meter.Float64Histogram(
		"upstream_operation_duration_seconds",
		metric.WithDescription("Upstream operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream_operation_duration_seconds histogram: %w", err)
	}

	m.oauthAuthTotal, err = meter.Int64Counter(
		"oauth_auth_total",
		metric.WithDescription("Total number of OAuth code exchanges by result"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_auth_total counter: %w", err)
	}

	m.credentialUpdatesTotal, err = meter.Int64Counter(
		"oauth_credential_updates_total",
		metric.WithDescription("Total number of OAuth client credential replacements"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_credential_updates_total counter: %w", err)
	}

	m.dispatchRejectionsTotal, err = meter.Int64Counter(
		"dispatch_rejections_total",
		metric.WithDescription("Total number of API calls rejected before reaching upstream"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch_rejections_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
// path should be a route pattern, not the raw URL path.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)

	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordUpstreamOperation records one upstream call.
//
// Parameters:
//   - api: upstream API (tasks, calendar, searchconsole, sheets, webhook)
//   - operation: operation name (list_task_lists, append_stock, ...)
//   - resource: resource id, only recorded when detailed labels are enabled
//   - status: "success" or "error"
func (m *Metrics) RecordUpstreamOperation(ctx context.Context, api, operation, resource, status string, duration time.Duration) {
	if m == nil || m.upstreamOperationsTotal == nil || m.upstreamOperationDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrAPI, api),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && resource != "" {
		attrs = append(attrs, attribute.String(attrResource, resource))
	}

	m.upstreamOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.upstreamOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOAuthAuth records an authorization code exchange.
// Result should be one of the OAuthResult constants.
func (m *Metrics) RecordOAuthAuth(ctx context.Context, result string) {
	if m == nil || m.oauthAuthTotal == nil {
		return
	}
	m.oauthAuthTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordCredentialUpdate records an attempt to replace the OAuth client credentials.
func (m *Metrics) RecordCredentialUpdate(ctx context.Context, result string) {
	if m == nil || m.credentialUpdatesTotal == nil {
		return
	}
	m.credentialUpdatesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordDispatchRejection records a call refused before any upstream request,
// kind being the error kind (unauthenticated, not_configured, ...).
func (m *Metrics) RecordDispatchRejection(ctx context.Context, api, kind string) {
	if m == nil || m.dispatchRejectionsTotal == nil {
		return
	}
	m.dispatchRejectionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrAPI, api),
		attribute.String(attrKind, kind),
	))
}

// IncrementActiveSessions increments the active sessions counter.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions counter.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, -1)
}
