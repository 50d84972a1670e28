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
	attrOperation = "operation"
	attrProvider  = "provider"
	attrResult    = "result"
	attrTool      = "tool"
	attrDomain    = "user_domain"
)

var (
	fastBuckets = []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0}
	slowBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0}
)

// Metrics records inboxpilot metrics. The zero value and a nil *Metrics are
// both valid and record nothing.
type Metrics struct {
	httpRequests        metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	mailOperations        metric.Int64Counter
	mailOperationDuration metric.Float64Histogram

	tokenRefreshes metric.Int64Counter
	accountLinks   metric.Int64Counter

	toolInvocations metric.Int64Counter
	toolDuration    metric.Float64Histogram

	detailedLabels bool
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{detailedLabels: detailedLabels}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.httpRequests, "http_requests_total", "Total number of HTTP requests", "{request}"},
		{&m.mailOperations, "mail_provider_operations_total", "Total number of mail provider operations", "{operation}"},
		{&m.tokenRefreshes, "oauth_token_refresh_total", "Total number of provider token refresh attempts", "{attempt}"},
		{&m.accountLinks, "account_link_total", "Total number of provider account links", "{attempt}"},
		{&m.toolInvocations, "mcp_tool_invocations_total", "Total number of MCP tool invocations", "{invocation}"},
	}
	for _, c := range counters {
		inst, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("failed to create %s counter: %w", c.name, err)
		}
		*c.dst = inst
	}

	histograms := []struct {
		dst     *metric.Float64Histogram
		name    string
		desc    string
		buckets []float64
	}{
		{&m.httpRequestDuration, "http_request_duration_seconds", "HTTP request duration in seconds", fastBuckets},
		{&m.mailOperationDuration, "mail_provider_operation_duration_seconds", "Mail provider operation duration in seconds", slowBuckets},
		{&m.toolDuration, "mcp_tool_duration_seconds", "MCP tool execution duration in seconds", slowBuckets},
	}
	for _, h := range histograms {
		inst, err := meter.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(h.buckets...),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s histogram: %w", h.name, err)
		}
		*h.dst = inst
	}

	return m, nil
}

// RecordHTTPRequest records one HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordMailOperation records one provider call.
//
// Parameters:
//   - provider: gmail, outlook or yahoo
//   - operation: the mail.Service method in snake case, e.g. "read_email"
//   - status: StatusSuccess or StatusError
func (m *Metrics) RecordMailOperation(ctx context.Context, provider, operation, status string, duration time.Duration) {
	if m == nil || m.mailOperations == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(attrProvider, provider),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.mailOperations.Add(ctx, 1, attrs)
	m.mailOperationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordOAuthTokenRefresh records a refresh attempt. result is one of
// RefreshSuccess, RefreshFailure or RefreshMissing.
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, provider, result string) {
	if m == nil || m.tokenRefreshes == nil {
		return
	}
	m.tokenRefreshes.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrProvider, provider),
		attribute.String(attrResult, result),
	))
}

// RecordAccountLink records a provider account link.
func (m *Metrics) RecordAccountLink(ctx context.Context, provider, result string) {
	if m == nil || m.accountLinks == nil {
		return
	}
	m.accountLinks.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrProvider, provider),
		attribute.String(attrResult, result),
	))
}

// RecordToolInvocation records one MCP tool call. domain is only attached
// when detailed labels are enabled.
func (m *Metrics) RecordToolInvocation(ctx context.Context, tool, status, domain string, duration time.Duration) {
	if m == nil || m.toolInvocations == nil {
		return
	}
	kv := []attribute.KeyValue{
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && domain != "" {
		kv = append(kv, attribute.String(attrDomain, domain))
	}
	attrs := metric.WithAttributes(kv...)
	m.toolInvocations.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}
