package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func testRouter(status int) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Telemetry)
	r.Post("/api/v1/clients/{clientId}/generate/{kind}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {})
	return r
}

func captureLog(t *testing.T, level zerolog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev, prevLevel := log.Logger, zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(level)
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func TestLogger_RouteFields(t *testing.T) {
	buf := captureLog(t, zerolog.DebugLevel)
	w := httptest.NewRecorder()
	testRouter(http.StatusOK).ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/clients/c1/generate/nutrition", nil))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line %q: %v", buf.String(), err)
	}
	want := map[string]interface{}{
		"level":           "info",
		"route":           "/api/v1/clients/{clientId}/generate/{kind}",
		"client_id":       "c1",
		"generation_kind": "nutrition",
		"status":          float64(200),
		"slow":            false,
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("log[%q] = %v, want %v", k, entry[k], v)
		}
	}
	if entry["request_id"] == "" || entry["request_id"] == nil {
		t.Error("request_id missing")
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Error("X-Request-Id header missing")
	}
}

func TestLogger_ProbesAtDebug(t *testing.T) {
	buf := captureLog(t, zerolog.InfoLevel)
	testRouter(http.StatusOK).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))
	if buf.Len() != 0 {
		t.Errorf("health probe logged at info: %s", buf.String())
	}
}

func TestTelemetry_SpanAttributes(t *testing.T) {
	captureLog(t, zerolog.Disabled)
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { tp.Shutdown(context.Background()) })

	testRouter(http.StatusBadGateway).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/v1/clients/c9/generate/summary", nil))

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "POST /api/v1/clients/{clientId}/generate/{kind}" {
		t.Errorf("span name = %q", span.Name())
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if got := attrs["client.id"].AsString(); got != "c9" {
		t.Errorf("client.id = %q, want c9", got)
	}
	if got := attrs["generation.kind"].AsString(); got != "summary" {
		t.Errorf("generation.kind = %q, want summary", got)
	}
	if got := attrs["http.response.status_code"].AsInt64(); got != http.StatusBadGateway {
		t.Errorf("status attribute = %d, want 502", got)
	}
	if span.Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", span.Status().Code)
	}
}
