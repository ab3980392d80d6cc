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

	httpadapter "github.com/lexiscan-ai/lexiscan-backend/internal/adapters/http"
	"github.com/lexiscan-ai/lexiscan-backend/internal/bootstrap"
	"github.com/lexiscan-ai/lexiscan-backend/internal/config"
	"github.com/lexiscan-ai/lexiscan-backend/internal/observability/logging"
	"github.com/lexiscan-ai/lexiscan-backend/internal/observability/metrics"
)

const serviceName = "lexiscan-api"

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

	serverMetrics := metrics.NewHTTPServerMetrics(serviceName)
	router := httpadapter.NewRouter(
		httpadapter.Config{
			ServiceName:    serviceName,
			JWTSecret:      cfg.JWTSecret,
			AllowedOrigins: cfg.AllowedOrigins,
			ChatRateRPS:    cfg.ChatRateRPS,
			ChatRateBurst:  cfg.ChatRateBurst,
		},
		app.ProcessUC,
		app.UploadUC,
		app.ChatUC,
		app.InsightsUC,
		logger,
		serverMetrics,
	)

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "error", err)
	}
}
