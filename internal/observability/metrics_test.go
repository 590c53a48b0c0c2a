package observability

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/salesqa/salesqa/internal/config"
)

func TestObserveQuestionCountsByOutcome(t *testing.T) {
	before := testutil.ToFloat64(questionsTotal.WithLabelValues(OutcomeQueryFailed))
	ObserveQuestion(OutcomeQueryFailed)
	ObserveQuestion(OutcomeQueryFailed)
	if got := testutil.ToFloat64(questionsTotal.WithLabelValues(OutcomeQueryFailed)) - before; got != 2 {
		t.Fatalf("questions delta = %v, want 2", got)
	}
}

func TestObserveStageRecordsSample(t *testing.T) {
	ObserveStage("sample", 20*time.Millisecond)
	if count := testutil.CollectAndCount(stageDurationSeconds); count == 0 {
		t.Fatal("expected stage histogram series")
	}
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	router := chi.NewRouter()
	router.Use(MetricsMiddleware)
	router.Get("/v1/history/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/history/{id}", "200"))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/history/a", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/history/b", nil))

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/v1/history/{id}", "200")) - before; got != 2 {
		t.Fatalf("requests delta = %v, want 2", got)
	}
}

func TestSetupTracingWritesSpansToStdoutExporter(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{Profile: config.ProfileTest, Service: config.ServiceConfig{Name: "salesqa-test"}}
	cfg.Observability.TraceStdout = true

	shutdown, err := SetupTracing(cfg, &buf)
	if err != nil {
		t.Fatalf("SetupTracing() error = %v", err)
	}
	ctx, span := Tracer().Start(context.Background(), "pipeline.sample")
	if TraceIDFromSpan(ctx) == "" {
		t.Fatal("expected trace id on span context")
	}
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}
	if !strings.Contains(buf.String(), "pipeline.sample") {
		t.Fatalf("exported spans = %s", buf.String())
	}
}

func TestTraceIDFromSpanWithoutSpan(t *testing.T) {
	if got := TraceIDFromSpan(context.Background()); got != "" {
		t.Fatalf("TraceIDFromSpan() = %q", got)
	}
}
