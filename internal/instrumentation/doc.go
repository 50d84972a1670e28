// Package instrumentation wires OpenTelemetry metrics and tracing for
// inboxpilot.
//
// # Metrics
//
// HTTP:
//   - http_requests_total: requests by method, path and status
//   - http_request_duration_seconds: request latency
//
// Mail providers:
//   - mail_provider_operations_total: calls by provider, operation and status
//   - mail_provider_operation_duration_seconds: call latency
//
// Credentials:
//   - oauth_token_refresh_total: refresh attempts by provider and result
//   - account_link_total: provider account links by provider and result
//
// Tools:
//   - mcp_tool_invocations_total: tool calls by tool and status
//   - mcp_tool_duration_seconds: tool latency
//
// # Tracing
//
// Spans are created for tool invocations (tool.<name>) and provider calls
// (mail.<provider>.<operation>).
//
// # Configuration
//
// DefaultConfig reads:
//   - INSTRUMENTATION_ENABLED (default: true)
//   - OTEL_SERVICE_NAME (default: inboxpilot)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG (default: 0.1)
//   - METRICS_DETAILED_LABELS (default: false)
//   - AUDIT_LOGGING_ENABLED (default: true), AUDIT_LOGGING_INCLUDE_PII (default: false)
//
// A disabled Provider hands out a Metrics value whose methods are no-ops, so
// callers never nil-check.
package instrumentation
