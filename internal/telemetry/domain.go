package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// OrderMetrics holds the order-domain instruments exported through the
// Prometheus endpoint.
type OrderMetrics struct {
	OrdersCreated   metric.Int64Counter
	OrdersCancelled metric.Int64Counter
	RevenueRecorded metric.Float64Counter
}

func NewOrderMetrics() (*OrderMetrics, error) {
	meter := otel.Meter("sweetshop/orders")

	created, err := meter.Int64Counter("sweetshop.orders.created",
		metric.WithDescription("Orders successfully created"))
	if err != nil {
		return nil, err
	}

	cancelled, err := meter.Int64Counter("sweetshop.orders.cancelled",
		metric.WithDescription("Orders cancelled"))
	if err != nil {
		return nil, err
	}

	revenue, err := meter.Float64Counter("sweetshop.orders.revenue",
		metric.WithDescription("Revenue recorded when orders reach a completed status"))
	if err != nil {
		return nil, err
	}

	return &OrderMetrics{
		OrdersCreated:   created,
		OrdersCancelled: cancelled,
		RevenueRecorded: revenue,
	}, nil
}
