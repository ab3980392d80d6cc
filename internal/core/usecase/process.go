package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
	"github.com/lexiscan-ai/lexiscan-backend/internal/core/ports"
)

// ProcessAgreementUseCase runs the strictly sequential document pipeline:
// mask, upload to RAG, batch analysis, unmask, persist, chat-session
// bootstrap. Each step's persistence write lands immediately after the
// step succeeds, so a failed run leaves recoverable progress instead of
// rolling back. A rerun resumes from the last persisted step.
type ProcessAgreementUseCase struct {
	agreements ports.AgreementRepository
	chats      ports.ChatRepository
	engine     ports.AnalysisEngine
	inspector  ports.DocumentInspector
	events     ports.EventPublisher

	mu    sync.Mutex
	locks map[string]*agreementLock
}

// agreementLock is a refcounted per-agreement mutex; the entry is removed
// once the last holder releases it so the map does not grow with every
// agreement ever processed.
type agreementLock struct {
	mu   sync.Mutex
	refs int
}

func NewProcessAgreementUseCase(
	agreements ports.AgreementRepository,
	chats ports.ChatRepository,
	engine ports.AnalysisEngine,
	inspector ports.DocumentInspector,
	events ports.EventPublisher,
) *ProcessAgreementUseCase {
	return &ProcessAgreementUseCase{
		agreements: agreements,
		chats:      chats,
		engine:     engine,
		inspector:  inspector,
		events:     events,
		locks:      make(map[string]*agreementLock),
	}
}

func (uc *ProcessAgreementUseCase) Process(ctx context.Context, in domain.ProcessInput) domain.ProcessResult {
	if err := validateProcessInput(in); err != nil {
		return failure(err)
	}

	// Concurrent runs for the same agreement would race on the step
	// writes; serialize them per agreement id.
	unlock := uc.lockAgreement(in.AgreementID)
	defer unlock()

	agreement, err := uc.loadOwnedAgreement(ctx, in.AgreementID, in.UserID)
	if err != nil {
		return failure(err)
	}

	docID := agreement.DocID
	mapping := agreement.MaskingJSON

	// Resume: with both the RAG doc id and the masking mapping already
	// persisted, mask and upload are complete and only analysis remains.
	// The masked file name is not persisted, so a missing doc id forces
	// re-masking even when a mapping exists.
	if docID == "" || len(mapping) == 0 {
		masked, maskErr := uc.mask(ctx, in)
		if maskErr != nil {
			return uc.fail(ctx, in.AgreementID, maskErr)
		}
		mapping = masked.Mapping

		docID, err = uc.uploadMasked(ctx, in, masked.MaskedFileName)
		if err != nil {
			return uc.fail(ctx, in.AgreementID, err)
		}
	}

	analysis, err := uc.analyze(ctx, docID, in)
	if err != nil {
		return uc.fail(ctx, in.AgreementID, err)
	}

	unmasked := unmaskAnalysis(analysis, mapping)

	if err := uc.persistAnalysis(ctx, in.AgreementID, unmasked, in.Mode); err != nil {
		return uc.fail(ctx, in.AgreementID, err)
	}

	if err := uc.ensureChatSession(ctx, agreement, docID, in.File.Name); err != nil {
		return uc.fail(ctx, in.AgreementID, err)
	}

	uc.publishProcessed(ctx, in.AgreementID)

	return domain.ProcessResult{
		Success:  true,
		Message:  "agreement processed successfully",
		DocID:    docID,
		Analysis: &unmasked,
	}
}

func (uc *ProcessAgreementUseCase) loadOwnedAgreement(ctx context.Context, agreementID, userID string) (*domain.Agreement, error) {
	agreement, err := uc.agreements.GetByID(ctx, agreementID)
	if err != nil {
		return nil, fmt.Errorf("fetch agreement: %w", err)
	}
	if agreement.UserID != userID {
		return nil, domain.WrapError(domain.ErrUnauthorized, "fetch agreement", errors.New("agreement belongs to another user"))
	}
	return agreement, nil
}

func (uc *ProcessAgreementUseCase) mask(ctx context.Context, in domain.ProcessInput) (domain.MaskResult, error) {
	if in.DocType == domain.DocTypeElectronic {
		if err := uc.inspector.ValidatePDF(in.File.Content); err != nil {
			return domain.MaskResult{}, domain.WrapError(domain.ErrInvalidInput, "inspect document", err)
		}
	}

	masked, err := uc.engine.MaskDocument(ctx, in.File, in.DocType)
	if err != nil {
		return domain.MaskResult{}, fmt.Errorf("mask document: %w", err)
	}
	if masked.MaskedFileName == "" {
		return domain.MaskResult{}, domain.WrapError(domain.ErrRemoteService, "mask document", errors.New("empty masked file name"))
	}

	if err := uc.agreements.SaveMasking(ctx, in.AgreementID, masked.Mapping); err != nil {
		return domain.MaskResult{}, fmt.Errorf("persist masking mapping: %w", err)
	}
	return masked, nil
}

func (uc *ProcessAgreementUseCase) uploadMasked(ctx context.Context, in domain.ProcessInput, maskedFileName string) (string, error) {
	// The masked output is a clean electronic document regardless of the
	// original scan type.
	docID, err := uc.engine.UploadMasked(ctx, maskedFileName, in.UserID, domain.DocTypeElectronic)
	if err != nil {
		return "", fmt.Errorf("upload masked document: %w", err)
	}
	if docID == "" {
		return "", domain.WrapError(domain.ErrRemoteService, "upload masked document", errors.New("empty doc id"))
	}

	if err := uc.agreements.SaveDocID(ctx, in.AgreementID, docID); err != nil {
		return "", fmt.Errorf("persist doc id: %w", err)
	}
	return docID, nil
}

func (uc *ProcessAgreementUseCase) analyze(ctx context.Context, docID string, in domain.ProcessInput) (domain.Analysis, error) {
	analysis, err := uc.engine.RunBatchAnalysis(ctx, docID, in.UserID, in.Mode)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("run batch analysis: %w", err)
	}
	return analysis, nil
}

func (uc *ProcessAgreementUseCase) persistAnalysis(ctx context.Context, agreementID string, analysis domain.Analysis, mode domain.AnalysisMode) error {
	if err := uc.agreements.SaveAnalysis(ctx, agreementID, analysis, mode); err != nil {
		return fmt.Errorf("persist analysis: %w", err)
	}
	return nil
}

func (uc *ProcessAgreementUseCase) ensureChatSession(ctx context.Context, agreement *domain.Agreement, docID, filename string) error {
	existing, err := uc.chats.SessionByAgreement(ctx, agreement.ID)
	if err == nil {
		if existing.RagDocID == docID {
			return nil
		}
		if err := uc.chats.SetSessionDocID(ctx, existing.ID, docID); err != nil {
			return fmt.Errorf("relink chat session: %w", err)
		}
		return nil
	}
	if !domain.IsKind(err, domain.ErrChatSessionNotFound) {
		return fmt.Errorf("resolve chat session: %w", err)
	}

	session := &domain.ChatSession{
		UserID:      agreement.UserID,
		AgreementID: agreement.ID,
		Title:       filename,
		RagDocID:    docID,
	}
	if err := uc.chats.CreateSession(ctx, session); err != nil {
		return fmt.Errorf("create chat session: %w", err)
	}
	return nil
}

func (uc *ProcessAgreementUseCase) publishProcessed(ctx context.Context, agreementID string) {
	if uc.events == nil {
		return
	}
	if err := uc.events.PublishAgreementProcessed(ctx, agreementID); err != nil {
		slog.Warn("publish_processed_event_failed", "agreement_id", agreementID, "error", err)
	}
}

func (uc *ProcessAgreementUseCase) fail(ctx context.Context, agreementID string, err error) domain.ProcessResult {
	if recordErr := uc.agreements.RecordError(ctx, agreementID, err.Error()); recordErr != nil {
		slog.Warn("record_pipeline_error_failed", "agreement_id", agreementID, "error", recordErr)
	}
	return failure(err)
}

func (uc *ProcessAgreementUseCase) lockAgreement(agreementID string) func() {
	uc.mu.Lock()
	lock, ok := uc.locks[agreementID]
	if !ok {
		lock = &agreementLock{}
		uc.locks[agreementID] = lock
	}
	lock.refs++
	uc.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		uc.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(uc.locks, agreementID)
		}
		uc.mu.Unlock()
	}
}

func validateProcessInput(in domain.ProcessInput) error {
	switch {
	case in.AgreementID == "":
		return domain.WrapError(domain.ErrInvalidInput, "validate input", errors.New("agreement id is required"))
	case in.UserID == "":
		return domain.WrapError(domain.ErrInvalidInput, "validate input", errors.New("user id is required"))
	case len(in.File.Content) == 0:
		return domain.WrapError(domain.ErrInvalidInput, "validate input", errors.New("file is required"))
	case in.DocType != domain.DocTypeScanned && in.DocType != domain.DocTypeElectronic:
		return domain.WrapError(domain.ErrInvalidInput, "validate input", fmt.Errorf("unknown doc type %q", in.DocType))
	case in.Mode != domain.ModeBasic && in.Mode != domain.ModePro:
		return domain.WrapError(domain.ErrInvalidInput, "validate input", fmt.Errorf("unknown analysis mode %q", in.Mode))
	}
	return nil
}

func unmaskAnalysis(analysis domain.Analysis, mapping map[string]string) domain.Analysis {
	return domain.Analysis{
		Summary: domain.UnmaskRaw(analysis.Summary, mapping),
		Clauses: domain.UnmaskRaw(analysis.Clauses, mapping),
		Risks:   domain.UnmaskRaw(analysis.Risks, mapping),
	}
}

func failure(err error) domain.ProcessResult {
	return domain.ProcessResult{Success: false, Message: domain.MostSpecificMessage(err)}
}
