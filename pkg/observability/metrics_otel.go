package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds the domain-level OpenTelemetry instruments for deployments
// that ship metrics to an OTLP collector. HTTP server metrics are not
// duplicated here; the otelhttp handler wrapper records those.
type OTelMetrics struct {
	eventsTracked  metric.Int64Counter
	popularQueries metric.Int64Counter
	statsQueries   metric.Int64Counter
}

// NewOTelMetrics creates the OTel instruments on the global meter provider.
// Call after InitOTel so the instruments bind to the configured provider.
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/linuxapphub/apphub-analytics")

	m := &OTelMetrics{}
	var err error

	m.eventsTracked, err = meter.Int64Counter(
		"apphub.events.tracked",
		metric.WithDescription("Total number of interaction events tracked"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create events counter: %w", err)
	}

	m.popularQueries, err = meter.Int64Counter(
		"apphub.popular.queries",
		metric.WithDescription("Total number of popularity queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create popular queries counter: %w", err)
	}

	m.statsQueries, err = meter.Int64Counter(
		"apphub.stats.queries",
		metric.WithDescription("Total number of stats snapshot queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stats queries counter: %w", err)
	}

	return m, nil
}

// RecordEvent records a tracked interaction event
func (m *OTelMetrics) RecordEvent(ctx context.Context, action string) {
	m.eventsTracked.Add(ctx, 1, metric.WithAttributes(
		attribute.String("apphub.action", action),
	))
}

// RecordPopularQuery records a popularity query
func (m *OTelMetrics) RecordPopularQuery(ctx context.Context, timeframe string) {
	m.popularQueries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("apphub.timeframe", timeframe),
	))
}

// RecordStatsQuery records a stats snapshot query
func (m *OTelMetrics) RecordStatsQuery(ctx context.Context) {
	m.statsQueries.Add(ctx, 1)
}
