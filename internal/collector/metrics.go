package collector

import (
	"context"

	"bybit-ticker-bot/internal/logger"
	"bybit-ticker-bot/internal/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type collectorMetrics struct {
	discarded metric.Int64Counter
	faults    metric.Int64Counter
	active    metric.Int64ObservableGauge
}

// newMetrics registers the collector instruments on provider.
func newMetrics(st *State, provider metric.MeterProvider) *collectorMetrics {
	m := &collectorMetrics{}
	meter := provider.Meter(trace.ServiceName + "/collector")
	ctx := context.Background()

	discarded, err := meter.Int64Counter("collector.frames.discarded",
		metric.WithDescription("Inbound stream frames dropped by reason"),
		metric.WithUnit("{frame}"),
	)
	if err == nil {
		m.discarded = discarded
	} else {
		logger.Warn(ctx, "register discarded frame counter", "error", err)
	}

	faults, err := meter.Int64Counter("collector.connection.faults",
		metric.WithDescription("Stream connections lost to transport errors"),
		metric.WithUnit("{event}"),
	)
	if err == nil {
		m.faults = faults
	} else {
		logger.Warn(ctx, "register connection fault counter", "error", err)
	}

	active, err := meter.Int64ObservableGauge("collector.connections.active",
		metric.WithDescription("Open stream connections"),
		metric.WithUnit("{connection}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			st.mu.Lock()
			n := len(st.conns)
			st.mu.Unlock()
			o.Observe(int64(n))
			return nil
		}),
	)
	if err == nil {
		m.active = active
	} else {
		logger.Warn(ctx, "register active connection gauge", "error", err)
	}
	return m
}

func (m *collectorMetrics) discard(reason string) {
	if m == nil || m.discarded == nil {
		return
	}
	m.discarded.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

func (m *collectorMetrics) fault(batchID int) {
	if m == nil || m.faults == nil {
		return
	}
	m.faults.Add(context.Background(), 1, metric.WithAttributes(
		attribute.Int("batch_id", batchID),
	))
}
