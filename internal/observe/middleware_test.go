package observe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/MrWong99/typeassist/internal/api"
	"github.com/MrWong99/typeassist/internal/correction"
	"github.com/MrWong99/typeassist/internal/observe"
)

// newAPIServer serves the /v1 routes of a real orchestrator behind the
// middleware and returns the metrics reader and span exporter.
func newAPIServer(t *testing.T) (http.Handler, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()
	exp := useTracer(t)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	mux := http.NewServeMux()
	api.New(newOrchestrator(t, correction.WithMetrics(m))).Register(mux)
	return observe.Middleware(m)(mux), reader, exp
}

func do(h http.Handler, method, target, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// routeDurations returns the sample count of the HTTP duration histogram per
// route label.
func routeDurations(t *testing.T, reader *sdkmetric.ManualReader) map[string]uint64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := make(map[string]uint64)
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			if met.Name != "typeassist.http.request.duration" {
				continue
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok {
				t.Fatalf("%s is %T, want a histogram", met.Name, met.Data)
			}
			for _, dp := range hist.DataPoints {
				path, _ := dp.Attributes.Value("path")
				out[path.AsString()] += dp.Count
			}
		}
	}
	return out
}

func TestMiddleware_CorrectRouteSpans(t *testing.T) {
	h, _, exp := newAPIServer(t)

	rec := do(h, http.MethodPost, "/v1/correct", `{"text":"teh cat sat","mode":"spelling"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"corrected_text":"the cat sat"`) {
		t.Fatalf("POST /v1/correct = %d %s", rec.Code, rec.Body)
	}

	spans := exp.GetSpans()
	server, ok := spanNamed(spans, "HTTP POST /v1/correct")
	if !ok {
		t.Fatalf("no server span for the route among %d spans", len(spans))
	}
	req, ok := spanNamed(spans, observe.SpanCorrectText)
	if !ok {
		t.Fatal("no correction span")
	}
	if req.Parent.SpanID() != server.SpanContext.SpanID() {
		t.Error("correction span is not a child of the server span")
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != server.SpanContext.TraceID().String() {
		t.Errorf("X-Correlation-ID = %q, want the trace ID %s", got, server.SpanContext.TraceID())
	}
	if got := attrValue(server.Attributes, "http.response.status_code"); got != "200" {
		t.Errorf("status attribute = %q", got)
	}
}

func TestMiddleware_LabelsByRoute(t *testing.T) {
	h, reader, exp := newAPIServer(t)

	for _, w := range []string{"teh", "adn", "recieve"} {
		if rec := do(h, http.MethodGet, "/v1/suggest?word="+w, ""); rec.Code != http.StatusOK {
			t.Fatalf("GET /v1/suggest?word=%s = %d", w, rec.Code)
		}
	}
	do(h, http.MethodGet, "/v1/predict?prefix=th&n=3", "")
	do(h, http.MethodGet, "/v1/stats", "")

	got := routeDurations(t, reader)
	want := map[string]uint64{
		"GET /v1/suggest": 3,
		"GET /v1/predict": 1,
		"GET /v1/stats":   1,
	}
	for route, n := range want {
		if got[route] != n {
			t.Errorf("samples for %q = %d, want %d (all: %v)", route, got[route], n, got)
		}
	}
	if len(got) != len(want) {
		t.Errorf("routes = %v, want only %v", got, want)
	}
	if _, ok := spanNamed(exp.GetSpans(), "HTTP GET /v1/suggest"); !ok {
		t.Error("suggest span not named after its route")
	}
}

func TestMiddleware_CapturesErrorStatus(t *testing.T) {
	h, reader, exp := newAPIServer(t)

	rec := do(h, http.MethodPost, "/v1/words", `{"word":"a{b"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("POST /v1/words = %d, want 400", rec.Code)
	}
	rec = do(h, http.MethodPost, "/v1/correct", `{"text":"   "}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("POST /v1/correct blank = %d, want 422", rec.Code)
	}

	spans := exp.GetSpans()
	words, ok := spanNamed(spans, "HTTP POST /v1/words")
	if !ok {
		t.Fatal("no span for /v1/words")
	}
	if got := attrValue(words.Attributes, "http.response.status_code"); got != "400" {
		t.Errorf("words status attribute = %q, want 400", got)
	}
	correct, _ := spanNamed(spans, "HTTP POST /v1/correct")
	if got := attrValue(correct.Attributes, "http.response.status_code"); got != "422" {
		t.Errorf("correct status attribute = %q, want 422", got)
	}

	if got := routeDurations(t, reader); got["POST /v1/words"] != 1 || got["POST /v1/correct"] != 1 {
		t.Errorf("route samples = %v", got)
	}
}

func TestMiddleware_UnmatchedPathKeepsRawLabel(t *testing.T) {
	h, reader, _ := newAPIServer(t)

	if rec := do(h, http.MethodGet, "/v2/correct", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("GET /v2/correct = %d, want 404", rec.Code)
	}
	if got := routeDurations(t, reader); got["GET /v2/correct"] != 1 {
		t.Errorf("route samples = %v, want the raw path label", got)
	}
}

func TestMiddleware_ContinuesIncomingTrace(t *testing.T) {
	h, _, exp := newAPIServer(t)

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	rec := do(h, http.MethodPost, "/v1/correct", `{"text":"helllo"}`,
		"traceparent", "00-"+traceID+"-00f067aa0ba902b7-01")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != traceID {
		t.Errorf("X-Correlation-ID = %q, want %s", got, traceID)
	}
	if !strings.Contains(rec.Header().Get("traceparent"), traceID) {
		t.Errorf("traceparent response header = %q", rec.Header().Get("traceparent"))
	}
	req, ok := spanNamed(exp.GetSpans(), observe.SpanCorrectText)
	if !ok || req.SpanContext.TraceID().String() != traceID {
		t.Errorf("correction span not part of the incoming trace")
	}
}
