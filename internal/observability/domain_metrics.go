package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSucceeded        = "succeeded"
	OutcomeQueryFailed      = "query_failed"
	OutcomeStoreFailed      = "store_failed"
	OutcomeCompletionFailed = "completion_failed"
	OutcomeRejected         = "rejected"
)

var (
	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesqa_questions_total",
			Help: "Total number of questions handled by the pipeline, by outcome.",
		},
		[]string{"outcome"},
	)
	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesqa_stage_duration_seconds",
			Help:    "Pipeline stage latency in seconds.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)
	queryRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "salesqa_query_rows",
			Help:    "Rows returned by successfully executed generated queries.",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 10000},
		},
	)
	archivesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesqa_archives_total",
			Help: "Total number of result archives written to the object store, by format.",
		},
		[]string{"format"},
	)
)

func init() {
	prometheus.MustRegister(questionsTotal, stageDurationSeconds, queryRows, archivesTotal)
}

func ObserveQuestion(outcome string) {
	questionsTotal.WithLabelValues(outcome).Inc()
}

func ObserveStage(stage string, elapsed time.Duration) {
	stageDurationSeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func ObserveQueryRows(rows int) {
	if rows < 0 {
		rows = 0
	}
	queryRows.Observe(float64(rows))
}

func ObserveArchive(format string) {
	archivesTotal.WithLabelValues(format).Inc()
}
