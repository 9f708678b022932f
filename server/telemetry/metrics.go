package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dogfight/server/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "dogfight/server"

// OTelMetrics は domain.MetricsRecorder をOpenTelemetryのメーターで実装します。
type OTelMetrics struct {
	meter    metric.Meter
	tickTime metric.Float64Histogram

	mu       sync.Mutex
	counters map[string]metric.Int64Counter
}

func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter(meterName)
	tickTime, err := meter.Float64Histogram(
		"room.tick.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Wall time spent in one simulation tick"),
	)
	if err != nil {
		return nil, err
	}
	return &OTelMetrics{
		meter:    meter,
		tickTime: tickTime,
		counters: make(map[string]metric.Int64Counter),
	}, nil
}

var _ domain.MetricsRecorder = (*OTelMetrics)(nil)

func (m *OTelMetrics) RecordTick(ctx context.Context, duration time.Duration) {
	m.tickTime.Record(ctx, float64(duration)/float64(time.Millisecond))
}

func (m *OTelMetrics) IncrementCounter(ctx context.Context, name string, delta int64) {
	c, ok := m.counter(name)
	if !ok {
		return
	}
	c.Add(ctx, delta)
}

func (m *OTelMetrics) counter(name string) (metric.Int64Counter, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[name]; ok {
		return c, true
	}
	c, err := m.meter.Int64Counter(name)
	if err != nil {
		slog.Warn("failed to create counter", "name", name, "err", err)
		return nil, false
	}
	m.counters[name] = c
	return c, true
}
