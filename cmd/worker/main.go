package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lexiscan-ai/lexiscan-backend/internal/bootstrap"
	"github.com/lexiscan-ai/lexiscan-backend/internal/config"
	"github.com/lexiscan-ai/lexiscan-backend/internal/observability/logging"
	"github.com/lexiscan-ai/lexiscan-backend/internal/observability/metrics"
)

const serviceName = "lexiscan-worker"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	eventBudget := time.Duration(cfg.WorkerEventBudget) * time.Second

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeAgreementProcessed(ctx, func(handlerCtx context.Context, agreementID string) error {
		eventCtx, cancel := context.WithTimeout(handlerCtx, eventBudget)
		defer cancel()

		agreement, err := app.Agreements.GetByID(eventCtx, agreementID)
		if err != nil {
			return err
		}
		if agreement.ProcessedAt != nil {
			workerMetrics.ObserveEventLag(*agreement.ProcessedAt)
		}

		// Warms the cache so the first questions fetch is served locally.
		workerMetrics.StartGeneration()
		start := time.Now()
		_, err = app.InsightsUC.Questions(eventCtx, agreementID, agreement.UserID)
		workerMetrics.FinishGeneration(serviceName, err, time.Since(start))
		if err != nil {
			return err
		}

		logger.Info("questions pre-generated", "agreement_id", agreementID)
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
