package observe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newManualMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

// sumValue totals every data point of an int64 sum metric.
func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	found := findMetric(rm, name)
	if found == nil {
		return 0
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", name, found.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordOperation(t *testing.T) {
	reader, mp := newManualMeter(t)
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	op := Operation{Component: "registry", Name: "database"}
	m.RecordOperation(context.Background(), op, 50*time.Millisecond, nil)
	m.RecordOperation(context.Background(), op, 10*time.Millisecond, errors.New("timeout"))

	rm := collect(t, reader)
	if got := sumValue(t, rm, "healthops.op.total"); got != 2 {
		t.Errorf("healthops.op.total = %d, want 2", got)
	}
	if got := sumValue(t, rm, "healthops.op.errors"); got != 1 {
		t.Errorf("healthops.op.errors = %d, want 1", got)
	}

	hist, ok := findMetric(rm, "healthops.op.duration_ms").Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("expected Histogram[float64]")
	}
	dp := hist.DataPoints[0]
	if dp.Count != 2 || dp.Sum < 59 || dp.Sum > 61 {
		t.Errorf("histogram count=%d sum=%f, want 2 and ~60", dp.Count, dp.Sum)
	}

	attrs := dp.Attributes
	if v, ok := attrs.Value("op.component"); !ok || v.AsString() != "registry" {
		t.Errorf("op.component = %v", v)
	}
}

func TestMetrics_ConcurrentRecording(t *testing.T) {
	reader, mp := newManualMeter(t)
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			m.RecordOperation(context.Background(), Operation{Name: "tick"}, time.Millisecond, nil)
		}()
	}
	wg.Wait()

	if got := sumValue(t, collect(t, reader), "healthops.op.total"); got != n {
		t.Errorf("healthops.op.total = %d, want %d", got, n)
	}
}

func TestInstruments_Record(t *testing.T) {
	reader, mp := newManualMeter(t)
	in, err := NewInstruments(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewInstruments() error = %v", err)
	}

	ctx := context.Background()
	in.RecordProbe(ctx, "database", "healthy", 3*time.Millisecond)
	in.RecordProbe(ctx, "cache", "unhealthy", time.Millisecond)
	in.RecordSample(ctx, nil)
	in.RecordSample(ctx, errors.New("collect failed"))
	in.RecordAlert(ctx, "memory", "warning", false)
	in.RecordAlert(ctx, "memory", "warning", true)
	in.RecordRecovery(ctx, "reconnect-cache", false)
	in.RecordEscalation(ctx, "reconnect-cache")
	in.RecordNotificationDropped(ctx, "rate_limited")

	rm := collect(t, reader)
	want := map[string]int64{
		"healthops.probe.total":          2,
		"healthops.sampler.samples":      1,
		"healthops.sampler.errors":       1,
		"healthops.alerts.raised":        1,
		"healthops.alerts.resolved":      1,
		"healthops.recovery.attempts":    1,
		"healthops.recovery.escalations": 1,
		"healthops.notify.dropped":       1,
	}
	for name, n := range want {
		if got := sumValue(t, rm, name); got != n {
			t.Errorf("%s = %d, want %d", name, got, n)
		}
	}
	if findMetric(rm, "healthops.probe.duration_ms") == nil {
		t.Error("healthops.probe.duration_ms not recorded")
	}
}

func TestInstruments_NilSafe(t *testing.T) {
	var in *Instruments
	ctx := context.Background()
	in.RecordProbe(ctx, "database", "healthy", time.Millisecond)
	in.RecordSample(ctx, nil)
	in.RecordAlert(ctx, "cpu", "critical", false)
	in.RecordRecovery(ctx, "a", true)
	in.RecordEscalation(ctx, "a")
	in.RecordNotificationDropped(ctx, "x")

	NopInstruments().RecordSample(ctx, nil)
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}
