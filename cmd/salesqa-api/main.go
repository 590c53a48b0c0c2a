package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/salesqa/salesqa/internal/api"
	"github.com/salesqa/salesqa/internal/api/uistatic"
	"github.com/salesqa/salesqa/internal/config"
	"github.com/salesqa/salesqa/internal/export"
	"github.com/salesqa/salesqa/internal/history"
	"github.com/salesqa/salesqa/internal/nl2sql"
	"github.com/salesqa/salesqa/internal/observability"
	"github.com/salesqa/salesqa/internal/pipeline"
	"github.com/salesqa/salesqa/internal/query"
	"github.com/salesqa/salesqa/internal/sampler"
	"github.com/salesqa/salesqa/internal/storage"
	s3store "github.com/salesqa/salesqa/internal/storage/s3"
	"github.com/salesqa/salesqa/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("salesqa-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	shutdownTracing, err := observability.SetupTracing(cfg, os.Stderr)
	if err != nil {
		logger.Error("failed to set up tracing", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	connector, err := store.New(store.Config{
		Driver:      cfg.Store.Driver,
		DSN:         cfg.Store.DSN,
		PingTimeout: cfg.Store.PingTimeout,
	})
	if err != nil {
		logger.Error("failed to configure store", slog.Any("error", err))
		os.Exit(1)
	}

	tableSampler := sampler.New(connector, sampler.Tables{
		Customer:    cfg.Tables.Customer,
		Sales:       cfg.Tables.Sales,
		Transaction: cfg.Tables.Transaction,
	}, cfg.Tables.SampleRows)

	generator, err := nl2sql.NewGenerator(nl2sql.Config{
		Provider:    cfg.AI.Provider,
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	})
	switch {
	case errors.Is(err, nl2sql.ErrNotConfigured):
		logger.Warn("completion service api key is not set; questions will be rejected")
		generator = nil
	case err != nil:
		logger.Error("failed to initialize query generator", slog.Any("error", err))
		os.Exit(1)
	}

	answers := history.New()
	service, err := pipeline.New(pipeline.Dependencies{
		Logger:    logger,
		Samples:   tableSampler,
		Generator: generator,
		Executor:  query.NewExecutor(connector, query.Options{ReadOnly: cfg.Query.ReadOnly}),
		History:   answers,
		Dialect:   connector.Dialect().Name,
	})
	if err != nil {
		logger.Error("failed to build question pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	readiness := []api.ReadinessCheck{connector.HealthCheck, api.CheckGeneratorConfigured(service)}
	var objectStore storage.ObjectStore
	if cfg.ObjectStore.Enabled {
		s3, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize object store", slog.Any("error", err))
			os.Exit(1)
		}
		objectStore = s3
		readiness = append(readiness, s3.Check)
	}

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger:            logger,
		Readiness:         api.CombineReadinessChecks(readiness...),
		DependencyTimeout: cfg.Store.PingTimeout,
		Pipeline:          service,
		Samples:           tableSampler,
		History:           answers,
		Archiver:          export.NewArchiver(objectStore),
		UI:                uistatic.Handler(),
	})
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("store_driver", cfg.Store.Driver),
			slog.Bool("generator_configured", service.GeneratorConfigured()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
