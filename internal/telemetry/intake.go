package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// IntakeMetrics counts webhook intake outcomes. A nil receiver is a no-op
// so handlers can run without a meter provider in tests.
type IntakeMetrics struct {
	received     metric.Int64Counter
	deduplicated metric.Int64Counter
	unresolved   metric.Int64Counter
}

func NewIntakeMetrics() (*IntakeMetrics, error) {
	meter := otel.Meter("order-intake")

	received, err := meter.Int64Counter("orders.received",
		metric.WithDescription("Orders persisted for the first time"))
	if err != nil {
		return nil, err
	}

	deduplicated, err := meter.Int64Counter("orders.deduplicated",
		metric.WithDescription("Deliveries dropped as duplicates"))
	if err != nil {
		return nil, err
	}

	unresolved, err := meter.Int64Counter("orders.unresolved",
		metric.WithDescription("Orders stored without a resolved account"))
	if err != nil {
		return nil, err
	}

	return &IntakeMetrics{
		received:     received,
		deduplicated: deduplicated,
		unresolved:   unresolved,
	}, nil
}

func (m *IntakeMetrics) OrderReceived(ctx context.Context, matchMethod string) {
	if m == nil {
		return
	}
	m.received.Add(ctx, 1, metric.WithAttributes(attribute.String("match_method", matchMethod)))
}

func (m *IntakeMetrics) OrderDeduplicated(ctx context.Context) {
	if m == nil {
		return
	}
	m.deduplicated.Add(ctx, 1)
}

func (m *IntakeMetrics) OrderUnresolved(ctx context.Context) {
	if m == nil {
		return
	}
	m.unresolved.Add(ctx, 1)
}
