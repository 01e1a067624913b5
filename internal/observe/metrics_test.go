package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
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

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

// sumByAttr returns the counter total for data points carrying key=value.
func sumByAttr(t *testing.T, met *metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not an int64 sum", met.Name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func TestRecordRequest(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRequest(ctx, "spelling", "done", 20*time.Millisecond)
	m.RecordRequest(ctx, "spelling", "done", 40*time.Millisecond)

	met := findMetric(collect(t, reader), "typeassist.correction.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 2 {
		t.Fatalf("unexpected data points: %+v", hist.DataPoints)
	}
	if got := hist.DataPoints[0].Sum; got < 0.059 || got > 0.061 {
		t.Errorf("sum = %v, want 0.06", got)
	}
}

func TestRecordBackendCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordBackendCall(ctx, "ok", time.Second)
	m.RecordBackendCall(ctx, "transient", time.Second)
	m.RecordBackendCall(ctx, "transient", 2*time.Second)

	rm := collect(t, reader)
	req := findMetric(rm, "typeassist.backend.requests")
	if req == nil {
		t.Fatal("requests metric not found")
	}
	if got := sumByAttr(t, req, "status", "transient"); got != 2 {
		t.Errorf("transient = %d, want 2", got)
	}
	if got := sumByAttr(t, req, "status", "ok"); got != 1 {
		t.Errorf("ok = %d, want 1", got)
	}
	if findMetric(rm, "typeassist.backend.duration") == nil {
		t.Error("duration metric not found")
	}
}

func TestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCacheLookup(ctx, "chunk", true)
	m.RecordCacheLookup(ctx, "chunk", false)
	m.RecordCacheLookup(ctx, "chunk", false)
	m.RecordEscalation(ctx, "rate_limited")
	m.RecordLocalCorrection(ctx, "adjacent_key")
	m.RecordLocalCorrection(ctx, "adjacent_key")
	m.RecordRetry(ctx)

	rm := collect(t, reader)
	tests := []struct {
		metric, key, value string
		want               int64
	}{
		{"typeassist.cache.lookups", "result", "hit", 1},
		{"typeassist.cache.lookups", "result", "miss", 2},
		{"typeassist.correction.escalations", "result", "rate_limited", 1},
		{"typeassist.correction.local", "category", "adjacent_key", 2},
	}
	for _, tt := range tests {
		met := findMetric(rm, tt.metric)
		if met == nil {
			t.Fatalf("metric %q not found", tt.metric)
		}
		if got := sumByAttr(t, met, tt.key, tt.value); got != tt.want {
			t.Errorf("%s{%s=%s} = %d, want %d", tt.metric, tt.key, tt.value, got, tt.want)
		}
	}

	retries := findMetric(rm, "typeassist.backend.retries")
	if retries == nil {
		t.Fatal("retries metric not found")
	}
	if sum := retries.Data.(metricdata.Sum[int64]); sum.DataPoints[0].Value != 1 {
		t.Errorf("retries = %d, want 1", sum.DataPoints[0].Value)
	}
}

func TestActiveRequestsGauge(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveRequests.Add(ctx, 3)
	m.ActiveRequests.Add(ctx, -1)

	met := findMetric(collect(t, reader), "typeassist.correction.active")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if sum.IsMonotonic {
		t.Error("up-down counter reported as monotonic")
	}
	if got := sum.DataPoints[0].Value; got != 2 {
		t.Errorf("active = %d, want 2", got)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
