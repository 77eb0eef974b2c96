package telemetry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracer(t *testing.T) {
	tests := []struct {
		name        string
		serviceName string
		endpoint    string
	}{
		{name: "explicit endpoint", serviceName: "calendar-assistant", endpoint: "localhost:4318"},
		{name: "default endpoint", serviceName: "calendar-assistant", endpoint: ""},
		{name: "empty service name", serviceName: "", endpoint: "localhost:4318"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			tp, err := InitTracer(ctx, tt.serviceName, tt.endpoint)
			if err != nil {
				t.Fatalf("InitTracer() error = %v", err)
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			// Nothing listens on the endpoint; only the call itself matters here
			_ = Shutdown(shutdownCtx, tp)
		})
	}
}

func TestShutdownNil(t *testing.T) {
	if err := Shutdown(context.Background(), nil); err != nil {
		t.Errorf("Shutdown(nil) = %v", err)
	}
}

func TestStartClientSpanInjectsTraceparent(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	SetPropagator()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	req, err := http.NewRequest(http.MethodDelete, "http://backend.test/api/calendar/events/42", nil)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	_, span := StartClientSpan(context.Background(), req, "calendar.delete_event")
	if req.Header.Get("traceparent") == "" {
		t.Error("expected traceparent header to be injected")
	}
	EndSpan(span, http.StatusNotFound, errors.New("not found"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "calendar.delete_event" {
		t.Errorf("span name = %q", spans[0].Name)
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status.Code)
	}
}
