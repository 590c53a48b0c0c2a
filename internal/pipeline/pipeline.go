// Package pipeline answers a natural-language question by sampling the
// tables, prompting the completion service, sanitizing its reply and running
// the result. Only execution failures are recovered; they are recorded in
// history like any other answer.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/salesqa/salesqa/internal/history"
	"github.com/salesqa/salesqa/internal/nl2sql"
	"github.com/salesqa/salesqa/internal/observability"
	"github.com/salesqa/salesqa/internal/prompt"
	"github.com/salesqa/salesqa/internal/query"
	"github.com/salesqa/salesqa/internal/sampler"
)

type SampleSource interface {
	Samples(ctx context.Context) (sampler.Samples, error)
}

type QueryRunner interface {
	Execute(ctx context.Context, sqlText string) query.Outcome
}

type Recorder interface {
	Append(question, sqlText string, outcome query.Outcome) history.Entry
}

type Dependencies struct {
	Logger    *slog.Logger
	Tracer    trace.Tracer
	Samples   SampleSource
	Generator nl2sql.Generator
	Executor  QueryRunner
	History   Recorder
	// Dialect is the engine name written into the prompt.
	Dialect string
}

type Answer struct {
	Entry  history.Entry `json:"entry"`
	Prompt string        `json:"-"`
}

type Service struct {
	logger    *slog.Logger
	tracer    trace.Tracer
	samples   SampleSource
	generator nl2sql.Generator
	executor  QueryRunner
	history   Recorder
	dialect   string
}

func New(deps Dependencies) (*Service, error) {
	if deps.Samples == nil {
		return nil, fmt.Errorf("sample source is required")
	}
	if deps.Executor == nil {
		return nil, fmt.Errorf("query executor is required")
	}
	if deps.History == nil {
		return nil, fmt.Errorf("history recorder is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = observability.Tracer()
	}
	return &Service{
		logger:    logger,
		tracer:    tracer,
		samples:   deps.Samples,
		generator: deps.Generator,
		executor:  deps.Executor,
		history:   deps.History,
		dialect:   deps.Dialect,
	}, nil
}

// GeneratorConfigured reports whether questions can be answered at all.
func (s *Service) GeneratorConfigured() bool {
	return s.generator != nil
}

func (s *Service) Answer(ctx context.Context, question string) (Answer, error) {
	ctx, span := s.tracer.Start(ctx, "pipeline.answer")
	defer span.End()

	if strings.TrimSpace(question) == "" {
		observability.ObserveQuestion(observability.OutcomeRejected)
		span.SetStatus(codes.Error, ErrQuestionRequired.Error())
		return Answer{}, ErrQuestionRequired
	}
	if s.generator == nil {
		observability.ObserveQuestion(observability.OutcomeRejected)
		span.SetStatus(codes.Error, nl2sql.ErrNotConfigured.Error())
		return Answer{}, nl2sql.ErrNotConfigured
	}
	logger := observability.WithTraceID(ctx, s.logger)

	var samples sampler.Samples
	err := s.stage(ctx, "sample", func(ctx context.Context) error {
		var err error
		samples, err = s.samples.Samples(ctx)
		return err
	})
	if err != nil {
		observability.ObserveQuestion(observability.OutcomeStoreFailed)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "sample tables failed", slog.Any("error", err))
		return Answer{}, fmt.Errorf("%w: %w", ErrStoreConnection, err)
	}

	promptText := prompt.Build(question, samples, prompt.Options{Dialect: s.dialect})
	logger.DebugContext(ctx, "prompt built", slog.Int("prompt_bytes", len(promptText)))

	var raw string
	err = s.stage(ctx, "generate", func(ctx context.Context) error {
		var err error
		raw, err = s.generator.Generate(ctx, promptText)
		return err
	})
	if err != nil {
		observability.ObserveQuestion(observability.OutcomeCompletionFailed)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "generate query failed", slog.Any("error", err))
		return Answer{}, fmt.Errorf("%w: %w", ErrCompletion, err)
	}

	sqlText := nl2sql.Sanitize(raw)
	span.SetAttributes(attribute.Int("salesqa.sql_bytes", len(sqlText)))

	var outcome query.Outcome
	_ = s.stage(ctx, "execute", func(ctx context.Context) error {
		outcome = s.executor.Execute(ctx, sqlText)
		return nil
	})

	entry := s.history.Append(question, sqlText, outcome)
	if outcome.Failed() {
		observability.ObserveQuestion(observability.OutcomeQueryFailed)
		span.SetAttributes(attribute.Bool("salesqa.query_failed", true))
		logger.WarnContext(ctx, "generated query failed",
			slog.String("entry_id", entry.ID),
			slog.String("sql", sqlText),
			slog.String("error", outcome.Error),
		)
	} else {
		observability.ObserveQuestion(observability.OutcomeSucceeded)
		observability.ObserveQueryRows(len(outcome.Rows))
		span.SetAttributes(attribute.Int("salesqa.rows", len(outcome.Rows)))
		logger.InfoContext(ctx, "question answered",
			slog.String("entry_id", entry.ID),
			slog.Int("rows", len(outcome.Rows)),
			slog.String("duration", outcome.Duration.String()),
		)
	}
	return Answer{Entry: entry, Prompt: promptText}, nil
}

func (s *Service) stage(ctx context.Context, name string, run func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	start := time.Now()
	err := run(ctx)
	observability.ObserveStage(name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
