package ports

import (
	"context"
	"encoding/json"
	"io"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
)

// AgreementRepository persists and reads agreement state. Every mutation
// is a single-row commit; step writes also advance the status column so a
// mid-pipeline crash leaves recoverable progress.
type AgreementRepository interface {
	Create(ctx context.Context, agreement *domain.Agreement) error
	GetByID(ctx context.Context, id string) (*domain.Agreement, error)
	ListByUser(ctx context.Context, userID string) ([]domain.AgreementListing, error)
	SaveMasking(ctx context.Context, id string, mapping map[string]string) error
	SaveDocID(ctx context.Context, id, docID string) error
	SaveAnalysis(ctx context.Context, id string, analysis domain.Analysis, mode domain.AnalysisMode) error
	SaveQuestions(ctx context.Context, id string, questions json.RawMessage) error
	SaveRulebook(ctx context.Context, id string, rulebook json.RawMessage) error
	RecordError(ctx context.Context, id, message string) error
	Delete(ctx context.Context, id string) error
}

// ChatRepository persists chat sessions and their append-only message log.
type ChatRepository interface {
	CreateSession(ctx context.Context, session *domain.ChatSession) error
	SessionByAgreement(ctx context.Context, agreementID string) (*domain.ChatSession, error)
	SetSessionDocID(ctx context.Context, sessionID, ragDocID string) error
	AppendMessage(ctx context.Context, message *domain.ChatMessage) error
	// MessagesPage returns up to limit messages newest-first; a non-empty
	// cursor excludes the cursor row and starts after it.
	MessagesPage(ctx context.Context, sessionID string, limit int, cursor string) ([]domain.ChatMessage, error)
}

// AnalysisEngine wraps the external AI/RAG service.
type AnalysisEngine interface {
	MaskDocument(ctx context.Context, file domain.FileUpload, docType domain.DocType) (domain.MaskResult, error)
	UploadMasked(ctx context.Context, fileName, userID string, docType domain.DocType) (string, error)
	RunBatchAnalysis(ctx context.Context, docID, userID string, mode domain.AnalysisMode) (domain.Analysis, error)
	Query(ctx context.Context, query, userID, docID string, payload domain.AnalysisPayload) (json.RawMessage, error)
	GenerateQuestions(ctx context.Context, docID, userID string) (json.RawMessage, error)
	GenerateReport(ctx context.Context, payload domain.AnalysisPayload) ([]byte, error)
	RulebookSources(ctx context.Context, summary json.RawMessage, topK int) (json.RawMessage, error)
}

// MemoryThreads wraps the external conversational-memory service.
type MemoryThreads interface {
	CreateThread(ctx context.Context, userID string) (string, error)
	ThreadContext(ctx context.Context, threadID string) (string, error)
	AppendUserMessage(ctx context.Context, threadID, content string) error
	AppendAssistantMessage(ctx context.Context, threadID, content string) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// AccessURL resolves an opaque storage key to a per-access URL.
	AccessURL(ctx context.Context, key string) (string, error)
}

// EventPublisher publishes/consumes pipeline completion events.
type EventPublisher interface {
	PublishAgreementProcessed(ctx context.Context, agreementID string) error
	SubscribeAgreementProcessed(ctx context.Context, handler func(context.Context, string) error) error
}

// DocumentInspector validates uploaded files before remote work is spent
// on them.
type DocumentInspector interface {
	ValidatePDF(content []byte) error
}

// WorkbookExporter renders a stored analysis as a spreadsheet.
type WorkbookExporter interface {
	AnalysisWorkbook(agreement *domain.Agreement) ([]byte, error)
}
