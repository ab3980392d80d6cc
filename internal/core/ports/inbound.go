package ports

import (
	"context"
	"encoding/json"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
)

// AgreementProcessor is the inbound contract for the document-processing
// pipeline. Process never returns a Go error; failures are folded into the
// result so partial progress stays visible to the caller.
type AgreementProcessor interface {
	Process(ctx context.Context, in domain.ProcessInput) domain.ProcessResult
}

// AgreementUploader is the inbound contract for document intake and the
// lifecycle of the stored original.
type AgreementUploader interface {
	Upload(ctx context.Context, userID, title, description string, file domain.FileUpload) (*domain.Agreement, error)
	Preview(ctx context.Context, agreementID, userID string) (string, error)
	Delete(ctx context.Context, agreementID, userID string) error
}

// ChatService is the inbound contract for RAG-backed conversation.
type ChatService interface {
	Answer(ctx context.Context, agreementID, query, userID string) (json.RawMessage, error)
	Messages(ctx context.Context, agreementID string, limit int, cursor string) (*domain.MessagePage, error)
}

// InsightsService is the inbound read/derive model over stored analyses.
// Every per-agreement read takes the caller's user id and rejects foreign
// agreements.
type InsightsService interface {
	Analysis(ctx context.Context, agreementID, userID string) (*domain.Agreement, error)
	Documents(ctx context.Context, userID string) ([]domain.AgreementListing, error)
	Questions(ctx context.Context, agreementID, userID string) (json.RawMessage, error)
	Report(ctx context.Context, agreementID, userID string) ([]byte, error)
	Rulebook(ctx context.Context, agreementID, userID string) (json.RawMessage, error)
	Export(ctx context.Context, agreementID, userID string) ([]byte, error)
}
