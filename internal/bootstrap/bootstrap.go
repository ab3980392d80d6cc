package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lexiscan-ai/lexiscan-backend/internal/config"
	"github.com/lexiscan-ai/lexiscan-backend/internal/core/ports"
	"github.com/lexiscan-ai/lexiscan-backend/internal/core/usecase"
	"github.com/lexiscan-ai/lexiscan-backend/internal/infrastructure/export"
	"github.com/lexiscan-ai/lexiscan-backend/internal/infrastructure/inspect"
	"github.com/lexiscan-ai/lexiscan-backend/internal/infrastructure/memory/zep"
	"github.com/lexiscan-ai/lexiscan-backend/internal/infrastructure/queue/nats"
	"github.com/lexiscan-ai/lexiscan-backend/internal/infrastructure/remote/legalai"
	"github.com/lexiscan-ai/lexiscan-backend/internal/infrastructure/repository/postgres"
	"github.com/lexiscan-ai/lexiscan-backend/internal/infrastructure/resilience"
	"github.com/lexiscan-ai/lexiscan-backend/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue      ports.EventPublisher
	Agreements ports.AgreementRepository
	ProcessUC  ports.AgreementProcessor
	UploadUC   ports.AgreementUploader
	ChatUC     ports.ChatService
	InsightsUC ports.InsightsService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	agreements := postgres.NewAgreementRepository(db)
	chats := postgres.NewChatRepository(db)
	if err := agreements.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)
	engine := legalai.New(cfg.LegalAIURL, executor)
	memory := zep.New(cfg.ZepURL, cfg.ZepAPIKey)
	inspector := inspect.NewPDFInspector()
	exporter := export.NewWorkbookBuilder()

	processUC := usecase.NewProcessAgreementUseCase(agreements, chats, engine, inspector, queue)
	uploadUC := usecase.NewUploadAgreementUseCase(agreements, storage, memory)
	chatUC := usecase.NewChatUseCase(agreements, chats, engine, memory)
	insightsUC := usecase.NewInsightsUseCase(agreements, engine, exporter)

	return &App{
		Config: cfg,

		Queue:      queue,
		Agreements: agreements,
		ProcessUC:  processUC,
		UploadUC:   uploadUC,
		ChatUC:     chatUC,
		InsightsUC: insightsUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
