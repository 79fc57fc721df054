package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Instruments holds the domain metrics emitted by the registry, sampler,
// recovery engine and notification dispatcher. A nil *Instruments is valid
// and records nothing.
type Instruments struct {
	probeDuration    metric.Float64Histogram
	probeCount       metric.Int64Counter
	samples          metric.Int64Counter
	sampleErrors     metric.Int64Counter
	alertsRaised     metric.Int64Counter
	alertsResolved   metric.Int64Counter
	recoveryAttempts metric.Int64Counter
	escalations      metric.Int64Counter
	notifyDropped    metric.Int64Counter
}

// NewInstruments creates every domain instrument on meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	var (
		in  Instruments
		err error
	)

	if in.probeDuration, err = meter.Float64Histogram(
		"healthops.probe.duration_ms",
		metric.WithDescription("Health probe duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if in.probeCount, err = meter.Int64Counter(
		"healthops.probe.total",
		metric.WithDescription("Health probes run, by target and resulting status"),
		metric.WithUnit("{probe}"),
	); err != nil {
		return nil, err
	}
	if in.samples, err = meter.Int64Counter(
		"healthops.sampler.samples",
		metric.WithDescription("Resource samples collected"),
		metric.WithUnit("{sample}"),
	); err != nil {
		return nil, err
	}
	if in.sampleErrors, err = meter.Int64Counter(
		"healthops.sampler.errors",
		metric.WithDescription("Resource sample collections that failed"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, err
	}
	if in.alertsRaised, err = meter.Int64Counter(
		"healthops.alerts.raised",
		metric.WithDescription("Resource alerts raised or upgraded"),
		metric.WithUnit("{alert}"),
	); err != nil {
		return nil, err
	}
	if in.alertsResolved, err = meter.Int64Counter(
		"healthops.alerts.resolved",
		metric.WithDescription("Resource alerts resolved"),
		metric.WithUnit("{alert}"),
	); err != nil {
		return nil, err
	}
	if in.recoveryAttempts, err = meter.Int64Counter(
		"healthops.recovery.attempts",
		metric.WithDescription("Recovery attempts, by action and outcome"),
		metric.WithUnit("{attempt}"),
	); err != nil {
		return nil, err
	}
	if in.escalations, err = meter.Int64Counter(
		"healthops.recovery.escalations",
		metric.WithDescription("Recovery actions escalated for manual intervention"),
		metric.WithUnit("{escalation}"),
	); err != nil {
		return nil, err
	}
	if in.notifyDropped, err = meter.Int64Counter(
		"healthops.notify.dropped",
		metric.WithDescription("Notifications not delivered, by reason"),
		metric.WithUnit("{notification}"),
	); err != nil {
		return nil, err
	}

	return &in, nil
}

// NopInstruments returns instruments bound to a no-op meter.
func NopInstruments() *Instruments {
	in, _ := NewInstruments(noop.NewMeterProvider().Meter("noop"))
	return in
}

// RecordProbe records one probe run.
func (in *Instruments) RecordProbe(ctx context.Context, target, status string, d time.Duration) {
	if in == nil {
		return
	}
	in.probeCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target", target),
		attribute.String("status", status),
	))
	in.probeDuration.Record(ctx, float64(d.Microseconds())/1000,
		metric.WithAttributes(attribute.String("target", target)))
}

// RecordSample records one sampler tick; a non-nil err counts as a failure.
func (in *Instruments) RecordSample(ctx context.Context, err error) {
	if in == nil {
		return
	}
	if err != nil {
		in.sampleErrors.Add(ctx, 1)
		return
	}
	in.samples.Add(ctx, 1)
}

// RecordAlert records a raised, upgraded or resolved alert.
func (in *Instruments) RecordAlert(ctx context.Context, category, severity string, resolved bool) {
	if in == nil {
		return
	}
	opt := metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("severity", severity),
	)
	if resolved {
		in.alertsResolved.Add(ctx, 1, opt)
		return
	}
	in.alertsRaised.Add(ctx, 1, opt)
}

// RecordRecovery records one remediation attempt.
func (in *Instruments) RecordRecovery(ctx context.Context, actionID string, succeeded bool) {
	if in == nil {
		return
	}
	outcome := "failure"
	if succeeded {
		outcome = "success"
	}
	in.recoveryAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", actionID),
		attribute.String("outcome", outcome),
	))
}

// RecordEscalation records an escalation for actionID.
func (in *Instruments) RecordEscalation(ctx context.Context, actionID string) {
	if in == nil {
		return
	}
	in.escalations.Add(ctx, 1, metric.WithAttributes(attribute.String("action", actionID)))
}

// RecordNotificationDropped records a notification that was not delivered.
func (in *Instruments) RecordNotificationDropped(ctx context.Context, reason string) {
	if in == nil {
		return
	}
	in.notifyDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
