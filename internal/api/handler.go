package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/salesqa/salesqa/internal/config"
	"github.com/salesqa/salesqa/internal/export"
	"github.com/salesqa/salesqa/internal/history"
	"github.com/salesqa/salesqa/internal/observability"
	"github.com/salesqa/salesqa/internal/pipeline"
	"github.com/salesqa/salesqa/internal/sampler"
	"github.com/salesqa/salesqa/internal/storage"
)

const maxRequestBodyBytes = 64 << 10

type ReadinessCheck func(ctx context.Context) error

type Answerer interface {
	Answer(ctx context.Context, question string) (pipeline.Answer, error)
	GeneratorConfigured() bool
}

type SampleSource interface {
	Samples(ctx context.Context) (sampler.Samples, error)
}

type HistoryStore interface {
	List() []history.Entry
	Get(id string) (history.Entry, error)
	Clear()
}

type ResultArchiver interface {
	Enabled() bool
	Archive(ctx context.Context, entry history.Entry, format export.Format) (storage.ObjectInfo, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Pipeline          Answerer
	Samples           SampleSource
	History           HistoryStore
	Archiver          ResultArchiver
	UI                http.Handler
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(observability.TraceMiddleware)
	router.Use(observability.MetricsMiddleware)
	if deps.Logger != nil {
		router.Use(observability.LoggingMiddleware(deps.Logger))
	}

	router.Get("/v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	router.Get("/v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	router.Method(http.MethodGet, "/v1/metrics", promhttp.Handler())

	router.Get("/v1/samples", func(w http.ResponseWriter, r *http.Request) {
		handleSamples(deps, w, r)
	})
	router.Post("/v1/ask", func(w http.ResponseWriter, r *http.Request) {
		handleAsk(deps, w, r)
	})

	router.Route("/v1/history", func(sub chi.Router) {
		sub.Get("/", func(w http.ResponseWriter, r *http.Request) {
			handleListHistory(deps, w, r)
		})
		sub.Delete("/", func(w http.ResponseWriter, r *http.Request) {
			handleClearHistory(deps, w, r)
		})
		sub.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			handleGetHistory(deps, w, r)
		})
		sub.Get("/{id}/export", func(w http.ResponseWriter, r *http.Request) {
			handleExportHistory(deps, w, r)
		})
		sub.Post("/{id}/archive", func(w http.ResponseWriter, r *http.Request) {
			handleArchiveHistory(deps, w, r)
		})
	})

	if deps.UI != nil {
		router.Method(http.MethodGet, "/*", deps.UI)
	}
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(r.Context(), w, http.StatusNotFound, "NOT_FOUND", "route not found", false, map[string]any{"path": r.URL.Path})
	})
	return router
}

func CheckGeneratorConfigured(answerer Answerer) ReadinessCheck {
	return func(_ context.Context) error {
		if answerer == nil || !answerer.GeneratorConfigured() {
			return errors.New("completion service api key is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// writeJSON encodes before writing the status so an unencodable payload
// becomes a 500 envelope instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(map[string]any{
			"error_code": "ENCODE_FAILED",
			"message":    "failed to encode response",
			"retryable":  false,
			"context":    map[string]any{"details": err.Error()},
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
