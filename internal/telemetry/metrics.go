package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments recorded by the tool handlers and the
// dashboard workflow.
type Metrics struct {
	toolCalls     metric.Int64Counter
	toolErrors    metric.Int64Counter
	parseDegraded metric.Int64Counter
	llmLatency    metric.Float64Histogram
}

// NewMetrics creates the instruments on meter. A nil meter uses the global
// provider.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(ScopeName)
	}

	var (
		m   Metrics
		err error
	)
	if m.toolCalls, err = meter.Int64Counter("grafana_ai.tool.calls",
		metric.WithDescription("MCP tool invocations")); err != nil {
		return nil, fmt.Errorf("tool calls counter: %w", err)
	}
	if m.toolErrors, err = meter.Int64Counter("grafana_ai.tool.errors",
		metric.WithDescription("MCP tool invocations that returned an error result")); err != nil {
		return nil, fmt.Errorf("tool errors counter: %w", err)
	}
	if m.parseDegraded, err = meter.Int64Counter("grafana_ai.parse.degraded",
		metric.WithDescription("Dashboard documents that needed repair or fell back to a skeleton")); err != nil {
		return nil, fmt.Errorf("parse degraded counter: %w", err)
	}
	if m.llmLatency, err = meter.Float64Histogram("grafana_ai.llm.duration",
		metric.WithDescription("LLM completion latency"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("llm latency histogram: %w", err)
	}
	return &m, nil
}

func (m *Metrics) RecordToolCall(ctx context.Context, tool string, failed bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("tool", tool))
	m.toolCalls.Add(ctx, 1, attrs)
	if failed {
		m.toolErrors.Add(ctx, 1, attrs)
	}
}

func (m *Metrics) RecordParseDegraded(ctx context.Context, warnings int) {
	if m == nil || warnings == 0 {
		return
	}
	m.parseDegraded.Add(ctx, 1)
}

func (m *Metrics) RecordLLMCall(ctx context.Context, model string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.llmLatency.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("model", model),
		attribute.Bool("error", err != nil),
	))
}
