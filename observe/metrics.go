package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AuthMetrics records authentication attempt metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type AuthMetrics interface {
	// RecordAttempt records one authentication attempt with its duration
	// and outcome. kind is the credential kind presented ("password",
	// "google", ...), mechanism the boundary it arrived through ("basic",
	// "bearer", "callback").
	RecordAttempt(ctx context.Context, mechanism, kind string, duration time.Duration, err error)
}

// authMetricsImpl is the concrete implementation of AuthMetrics.
type authMetricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	failureCount metric.Int64Counter
	durationHist metric.Float64Histogram
}

// newAuthMetrics creates an AuthMetrics instance with the given meter.
func newAuthMetrics(meter metric.Meter) (*authMetricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"auth.attempts.total",
		metric.WithDescription("Total number of authentication attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	failureCount, err := meter.Int64Counter(
		"auth.attempts.failures",
		metric.WithDescription("Total number of failed authentication attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"auth.attempt.duration_ms",
		metric.WithDescription("Authentication attempt duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &authMetricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		failureCount: failureCount,
		durationHist: durationHist,
	}, nil
}

// RecordAttempt records metrics for an authentication attempt.
func (m *authMetricsImpl) RecordAttempt(ctx context.Context, mechanism, kind string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("auth.mechanism", mechanism),
	}
	if kind != "" {
		attrs = append(attrs, attribute.String("auth.kind", kind))
	}

	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.failureCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// NopAuthMetrics returns an AuthMetrics that records nothing.
func NopAuthMetrics() AuthMetrics {
	return &noopAuthMetrics{}
}

// noopAuthMetrics is an AuthMetrics implementation that does nothing.
type noopAuthMetrics struct{}

func (m *noopAuthMetrics) RecordAttempt(ctx context.Context, mechanism, kind string, duration time.Duration, err error) {
}
