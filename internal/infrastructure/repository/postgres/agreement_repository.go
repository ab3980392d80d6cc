package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
)

type AgreementRepository struct {
	db *sql.DB
}

func NewAgreementRepository(db *sql.DB) *AgreementRepository {
	return &AgreementRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *AgreementRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026053101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS agreements (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	description TEXT,
	storage_path TEXT,
	thread_id TEXT,
	doc_id TEXT,
	masking_json JSONB,
	summary_json JSONB,
	clauses_json JSONB,
	risks_json JSONB,
	rulebook_json JSONB,
	question_json JSONB,
	analysis_mode TEXT,
	status TEXT NOT NULL,
	error_message TEXT,
	processed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_agreements_user_created ON agreements(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_agreements_status ON agreements(status);

CREATE TABLE IF NOT EXISTS chat_sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	agreement_id TEXT,
	title TEXT NOT NULL,
	rag_doc_id TEXT,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_chat_sessions_agreement ON chat_sessions(agreement_id) WHERE agreement_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS chat_messages (
	id TEXT PRIMARY KEY,
	chat_session_id TEXT NOT NULL,
	sender TEXT NOT NULL,
	content TEXT NOT NULL,
	metadata JSONB,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_session_created ON chat_messages(chat_session_id, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AgreementRepository) Create(ctx context.Context, agreement *domain.Agreement) error {
	now := time.Now().UTC()
	if agreement.CreatedAt.IsZero() {
		agreement.CreatedAt = now
	}
	agreement.UpdatedAt = now
	if agreement.Status == "" {
		agreement.Status = domain.StatusCreated
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO agreements (
	id, user_id, title, description, storage_path, thread_id, status, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		agreement.ID, agreement.UserID, agreement.Title, agreement.Description,
		agreement.StoragePath, agreement.ThreadID, string(agreement.Status),
		agreement.CreatedAt, agreement.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert agreement: %w", err)
	}
	return nil
}

func (r *AgreementRepository) GetByID(ctx context.Context, id string) (*domain.Agreement, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, title, COALESCE(description, ''), COALESCE(storage_path, ''), COALESCE(thread_id, ''),
	COALESCE(doc_id, ''), masking_json, summary_json, clauses_json, risks_json, rulebook_json, question_json,
	COALESCE(analysis_mode, ''), status, COALESCE(error_message, ''), processed_at, created_at, updated_at
FROM agreements
WHERE id = $1
`, id)

	var agreement domain.Agreement
	var maskingRaw []byte
	var status, mode string
	var processedAt sql.NullTime

	err := row.Scan(
		&agreement.ID, &agreement.UserID, &agreement.Title, &agreement.Description,
		&agreement.StoragePath, &agreement.ThreadID, &agreement.DocID,
		&maskingRaw, &agreement.SummaryJSON, &agreement.ClausesJSON, &agreement.RisksJSON,
		&agreement.RulebookJSON, &agreement.QuestionJSON,
		&mode, &status, &agreement.Error, &processedAt,
		&agreement.CreatedAt, &agreement.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAgreementNotFound, "get agreement", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan agreement: %w", err)
	}

	if len(maskingRaw) > 0 {
		if err := json.Unmarshal(maskingRaw, &agreement.MaskingJSON); err != nil {
			return nil, fmt.Errorf("unmarshal masking mapping: %w", err)
		}
	}
	agreement.Status = domain.AgreementStatus(status)
	agreement.AnalysisMode = domain.AnalysisMode(mode)
	if processedAt.Valid {
		t := processedAt.Time
		agreement.ProcessedAt = &t
	}
	return &agreement, nil
}

func (r *AgreementRepository) ListByUser(ctx context.Context, userID string) ([]domain.AgreementListing, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, COALESCE(description, ''), COALESCE(analysis_mode, ''), created_at
FROM agreements
WHERE user_id = $1
ORDER BY created_at DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list agreements: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AgreementListing, 0)
	for rows.Next() {
		var listing domain.AgreementListing
		var mode string
		if err := rows.Scan(&listing.ID, &listing.Title, &listing.Description, &mode, &listing.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan agreement listing: %w", err)
		}
		listing.AnalysisMode = domain.AnalysisMode(mode)
		out = append(out, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agreement listings: %w", err)
	}
	return out, nil
}

func (r *AgreementRepository) SaveMasking(ctx context.Context, id string, mapping map[string]string) error {
	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("marshal masking mapping: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE agreements
SET masking_json = $2, status = $3, error_message = '', updated_at = $4
WHERE id = $1
`, id, mappingJSON, string(domain.StatusMasked), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save masking mapping: %w", err)
	}
	return requireRow(result, "save masking mapping", id)
}

func (r *AgreementRepository) SaveDocID(ctx context.Context, id, docID string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE agreements
SET doc_id = $2, status = $3, updated_at = $4
WHERE id = $1
`, id, docID, string(domain.StatusUploaded), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save doc id: %w", err)
	}
	return requireRow(result, "save doc id", id)
}

func (r *AgreementRepository) SaveAnalysis(ctx context.Context, id string, analysis domain.Analysis, mode domain.AnalysisMode) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
UPDATE agreements
SET summary_json = $2, clauses_json = $3, risks_json = $4, analysis_mode = $5,
	status = $6, processed_at = $7, error_message = '', updated_at = $7
WHERE id = $1
`, id, []byte(analysis.Summary), []byte(analysis.Clauses), []byte(analysis.Risks),
		string(mode), string(domain.StatusAnalyzed), now)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return requireRow(result, "save analysis", id)
}

func (r *AgreementRepository) SaveQuestions(ctx context.Context, id string, questions json.RawMessage) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE agreements
SET question_json = $2, updated_at = $3
WHERE id = $1
`, id, []byte(questions), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save questions: %w", err)
	}
	return requireRow(result, "save questions", id)
}

func (r *AgreementRepository) SaveRulebook(ctx context.Context, id string, rulebook json.RawMessage) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE agreements
SET rulebook_json = $2, updated_at = $3
WHERE id = $1
`, id, []byte(rulebook), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save rulebook: %w", err)
	}
	return requireRow(result, "save rulebook", id)
}

func (r *AgreementRepository) RecordError(ctx context.Context, id, message string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE agreements
SET error_message = $2, updated_at = $3
WHERE id = $1
`, id, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record error: %w", err)
	}
	return requireRow(result, "record error", id)
}

func (r *AgreementRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM agreements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete agreement: %w", err)
	}
	return requireRow(result, "delete agreement", id)
}

func requireRow(result sql.Result, operation, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrAgreementNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}
