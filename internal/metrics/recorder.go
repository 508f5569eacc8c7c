package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Dispatch outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeUnknownTool  = "unknown_tool"
	OutcomeUnauthorized = "unauthorized"
	OutcomeInvalidArgs  = "invalid_arguments"
	OutcomeUpstream     = "upstream_error"
	OutcomeTimeout      = "timeout"
	OutcomeInternal     = "internal_error"
)

// Recorder records tool dispatches and session lifecycle events.
type Recorder interface {
	// RecordDispatch records one tool call with its outcome and duration.
	RecordDispatch(ctx context.Context, tool, outcome string, duration time.Duration)
	// SessionOpened increments the active session gauge.
	SessionOpened(ctx context.Context)
	// SessionClosed decrements the active session gauge. Reason is one of
	// "client", "idle", "failed" or "shutdown".
	SessionClosed(ctx context.Context, reason string)
}

type recorder struct {
	dispatchCounter metric.Int64Counter
	dispatchHisto   metric.Float64Histogram
	activeSessions  metric.Int64UpDownCounter
	closedSessions  metric.Int64Counter
}

// NewRecorder creates a Recorder whose instrument names are prefixed with
// namespace.
func NewRecorder(meterProvider metric.MeterProvider, namespace string) (Recorder, error) {
	meter := meterProvider.Meter(namespace)

	dispatchCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_tool_calls_total", namespace),
		metric.WithDescription("Total number of tool calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool call counter: %w", err)
	}

	dispatchHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_tool_call_duration_seconds", namespace),
		metric.WithDescription("Duration of tool calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool call histogram: %w", err)
	}

	activeSessions, err := meter.Int64UpDownCounter(
		fmt.Sprintf("%s_sessions_active", namespace),
		metric.WithDescription("Number of open MCP sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active session gauge: %w", err)
	}

	closedSessions, err := meter.Int64Counter(
		fmt.Sprintf("%s_sessions_closed_total", namespace),
		metric.WithDescription("Total number of closed MCP sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create closed session counter: %w", err)
	}

	return &recorder{
		dispatchCounter: dispatchCounter,
		dispatchHisto:   dispatchHisto,
		activeSessions:  activeSessions,
		closedSessions:  closedSessions,
	}, nil
}

func (r *recorder) RecordDispatch(ctx context.Context, tool, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("outcome", outcome),
	)
	r.dispatchCounter.Add(ctx, 1, attrs)
	r.dispatchHisto.Record(ctx, duration.Seconds(), attrs)
}

func (r *recorder) SessionOpened(ctx context.Context) {
	r.activeSessions.Add(ctx, 1)
}

func (r *recorder) SessionClosed(ctx context.Context, reason string) {
	r.activeSessions.Add(ctx, -1)
	r.closedSessions.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// NoOpRecorder discards everything. It is used when metrics are disabled.
type NoOpRecorder struct{}

func (NoOpRecorder) RecordDispatch(context.Context, string, string, time.Duration) {}

func (NoOpRecorder) SessionOpened(context.Context) {}

func (NoOpRecorder) SessionClosed(context.Context, string) {}
