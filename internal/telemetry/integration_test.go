package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// Verifies that requests through the otelmux middleware produce spans
// and that an incoming traceparent header joins the existing trace.
func TestTraceContextPropagation(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("taskpilot-test"))
	r.HandleFunc("/test", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	const traceParent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"

	tests := []struct {
		name        string
		traceParent string
		wantTraceID string
	}{
		{name: "starts a new trace"},
		{
			name:        "joins an incoming trace",
			traceParent: traceParent,
			wantTraceID: "4bf92f3577b34da6a3ce929d0e0e4736",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.traceParent != "" {
				req.Header.Set("traceparent", tt.traceParent)
			}

			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
			}
			if err := tp.ForceFlush(context.Background()); err != nil {
				t.Fatalf("ForceFlush() error = %v", err)
			}

			spans := exporter.GetSpans()
			if len(spans) == 0 {
				t.Fatal("no spans recorded")
			}

			span := spans[0]
			if !span.SpanContext.TraceID().IsValid() {
				t.Error("span has invalid trace ID")
			}
			if tt.wantTraceID != "" && span.SpanContext.TraceID().String() != tt.wantTraceID {
				t.Errorf("trace ID = %s, want %s", span.SpanContext.TraceID(), tt.wantTraceID)
			}
		})
	}
}
