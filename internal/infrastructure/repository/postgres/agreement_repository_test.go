package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
)

func newAgreementRepoWithMock(t *testing.T) (*AgreementRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &AgreementRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newAgreementRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, user_id, title").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrAgreementNotFound) {
		t.Fatalf("expected ErrAgreementNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDDecodesMaskingMapping(t *testing.T) {
	repo, mock, done := newAgreementRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	columns := []string{
		"id", "user_id", "title", "description", "storage_path", "thread_id",
		"doc_id", "masking_json", "summary_json", "clauses_json", "risks_json",
		"rulebook_json", "question_json", "analysis_mode", "status",
		"error_message", "processed_at", "created_at", "updated_at",
	}
	mock.ExpectQuery("SELECT id, user_id, title").
		WithArgs("agr-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			"agr-1", "user-1", "NDA", "", "documents/x.pdf", "thread-1",
			"doc-42", []byte(`{"[PERSON_1]":"John Smith"}`), []byte(`{"k":"v"}`), nil, nil,
			nil, nil, "basic", "analyzed",
			"", now, now, now,
		))

	agreement, err := repo.GetByID(context.Background(), "agr-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if agreement.MaskingJSON["[PERSON_1]"] != "John Smith" {
		t.Fatalf("masking mapping not decoded: %v", agreement.MaskingJSON)
	}
	if agreement.Status != domain.StatusAnalyzed || agreement.AnalysisMode != domain.ModeBasic {
		t.Fatalf("unexpected agreement: %+v", agreement)
	}
	if agreement.ProcessedAt == nil {
		t.Fatalf("processed_at not decoded")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveMaskingAdvancesStatus(t *testing.T) {
	repo, mock, done := newAgreementRepoWithMock(t)
	defer done()

	mapping := map[string]string{"[PERSON_1]": "John Smith"}
	mappingJSON, _ := json.Marshal(mapping)

	mock.ExpectExec("UPDATE agreements").
		WithArgs("agr-1", mappingJSON, string(domain.StatusMasked), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveMasking(context.Background(), "agr-1", mapping); err != nil {
		t.Fatalf("SaveMasking() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveDocIDReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newAgreementRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE agreements").
		WithArgs("missing", "doc-42", string(domain.StatusUploaded), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveDocID(context.Background(), "missing", "doc-42")
	if !domain.IsKind(err, domain.ErrAgreementNotFound) {
		t.Fatalf("expected ErrAgreementNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveAnalysisSetsAnalyzedStatus(t *testing.T) {
	repo, mock, done := newAgreementRepoWithMock(t)
	defer done()

	analysis := domain.Analysis{
		Summary: json.RawMessage(`{"k":"v"}`),
		Clauses: json.RawMessage(`[]`),
		Risks:   json.RawMessage(`[]`),
	}
	mock.ExpectExec("UPDATE agreements").
		WithArgs("agr-1", []byte(analysis.Summary), []byte(analysis.Clauses), []byte(analysis.Risks),
			string(domain.ModePro), string(domain.StatusAnalyzed), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SaveAnalysis(context.Background(), "agr-1", analysis, domain.ModePro); err != nil {
		t.Fatalf("SaveAnalysis() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListByUserOrdersNewestFirst(t *testing.T) {
	repo, mock, done := newAgreementRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, title").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "analysis_mode", "created_at"}).
			AddRow("agr-2", "Lease", "", "pro", now).
			AddRow("agr-1", "NDA", "mutual", "basic", now.Add(-time.Hour)))

	listings, err := repo.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(listings) != 2 || listings[0].ID != "agr-2" {
		t.Fatalf("unexpected listings: %+v", listings)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newAgreementRepoWithMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM agreements").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrAgreementNotFound) {
		t.Fatalf("expected ErrAgreementNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
