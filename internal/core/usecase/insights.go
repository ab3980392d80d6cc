package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
	"github.com/lexiscan-ai/lexiscan-backend/internal/core/ports"
)

const rulebookTopK = 5

// InsightsUseCase serves reads and lazily derived artifacts (questions,
// report, rulebook, spreadsheet export) over stored analyses.
type InsightsUseCase struct {
	agreements ports.AgreementRepository
	engine     ports.AnalysisEngine
	exporter   ports.WorkbookExporter
}

func NewInsightsUseCase(
	agreements ports.AgreementRepository,
	engine ports.AnalysisEngine,
	exporter ports.WorkbookExporter,
) *InsightsUseCase {
	return &InsightsUseCase{
		agreements: agreements,
		engine:     engine,
		exporter:   exporter,
	}
}

func (uc *InsightsUseCase) Analysis(ctx context.Context, agreementID, userID string) (*domain.Agreement, error) {
	agreement, err := uc.loadAnalyzed(ctx, agreementID, userID)
	if err != nil {
		return nil, err
	}
	return agreement, nil
}

func (uc *InsightsUseCase) Documents(ctx context.Context, userID string) ([]domain.AgreementListing, error) {
	listings, err := uc.agreements.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user agreements: %w", err)
	}
	return listings, nil
}

// Questions returns the cached question set, generating and caching it on
// first access.
func (uc *InsightsUseCase) Questions(ctx context.Context, agreementID, userID string) (json.RawMessage, error) {
	agreement, err := uc.agreements.GetByID(ctx, agreementID)
	if err != nil {
		return nil, fmt.Errorf("fetch agreement: %w", err)
	}
	if agreement.UserID != userID {
		return nil, domain.WrapError(domain.ErrUnauthorized, "access agreement", errors.New("agreement belongs to another user"))
	}
	if len(agreement.QuestionJSON) > 0 {
		return agreement.QuestionJSON, nil
	}
	if agreement.DocID == "" {
		return nil, domain.WrapError(domain.ErrNoAnalysisFound, "generate questions", errors.New("agreement has not been uploaded to rag"))
	}

	questions, err := uc.engine.GenerateQuestions(ctx, agreement.DocID, userID)
	if err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	if err := uc.agreements.SaveQuestions(ctx, agreementID, questions); err != nil {
		return nil, fmt.Errorf("cache questions: %w", err)
	}
	return questions, nil
}

func (uc *InsightsUseCase) Report(ctx context.Context, agreementID, userID string) ([]byte, error) {
	agreement, err := uc.loadAnalyzed(ctx, agreementID, userID)
	if err != nil {
		return nil, err
	}

	pdf, err := uc.engine.GenerateReport(ctx, analysisPayload(agreement))
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	return pdf, nil
}

// Rulebook returns cached supplementary explanations, fetching and caching
// them on first access.
func (uc *InsightsUseCase) Rulebook(ctx context.Context, agreementID, userID string) (json.RawMessage, error) {
	agreement, err := uc.loadAnalyzed(ctx, agreementID, userID)
	if err != nil {
		return nil, err
	}
	if len(agreement.RulebookJSON) > 0 {
		return agreement.RulebookJSON, nil
	}

	sources, err := uc.engine.RulebookSources(ctx, agreement.SummaryJSON, rulebookTopK)
	if err != nil {
		return nil, fmt.Errorf("fetch rulebook sources: %w", err)
	}
	if err := uc.agreements.SaveRulebook(ctx, agreementID, sources); err != nil {
		return nil, fmt.Errorf("cache rulebook: %w", err)
	}
	return sources, nil
}

func (uc *InsightsUseCase) Export(ctx context.Context, agreementID, userID string) ([]byte, error) {
	agreement, err := uc.loadAnalyzed(ctx, agreementID, userID)
	if err != nil {
		return nil, err
	}

	workbook, err := uc.exporter.AnalysisWorkbook(agreement)
	if err != nil {
		return nil, fmt.Errorf("build analysis workbook: %w", err)
	}
	return workbook, nil
}

func (uc *InsightsUseCase) loadAnalyzed(ctx context.Context, agreementID, userID string) (*domain.Agreement, error) {
	agreement, err := uc.agreements.GetByID(ctx, agreementID)
	if err != nil {
		return nil, fmt.Errorf("fetch agreement: %w", err)
	}
	if agreement.UserID != userID {
		return nil, domain.WrapError(domain.ErrUnauthorized, "access agreement", errors.New("agreement belongs to another user"))
	}
	if agreement.DocID == "" || len(agreement.SummaryJSON) == 0 {
		return nil, domain.WrapError(domain.ErrNoAnalysisFound, "load analysis", errors.New("agreement has no stored analysis"))
	}
	return agreement, nil
}

func analysisPayload(agreement *domain.Agreement) domain.AnalysisPayload {
	return domain.AnalysisPayload{
		DocID:        agreement.DocID,
		AnalysisType: agreement.AnalysisMode,
		Summary:      agreement.SummaryJSON,
		Clauses:      agreement.ClausesJSON,
		Risks:        agreement.RisksJSON,
	}
}
