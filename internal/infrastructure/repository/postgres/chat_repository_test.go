package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
)

func newChatRepoWithMock(t *testing.T) (*ChatRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ChatRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestCreateSessionFillsDefaults(t *testing.T) {
	repo, mock, done := newChatRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO chat_sessions").
		WithArgs(sqlmock.AnyArg(), "user-1", "agr-1", "New Chat Session", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	session := &domain.ChatSession{UserID: "user-1", AgreementID: "agr-1"}
	if err := repo.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	if session.ID == "" {
		t.Fatalf("session id not generated")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSessionByAgreementReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newChatRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, user_id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.SessionByAgreement(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrChatSessionNotFound) {
		t.Fatalf("expected ErrChatSessionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetSessionDocIDReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newChatRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE chat_sessions").
		WithArgs("missing", "doc-42").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetSessionDocID(context.Background(), "missing", "doc-42")
	if !domain.IsKind(err, domain.ErrChatSessionNotFound) {
		t.Fatalf("expected ErrChatSessionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMessagesPageWithoutCursor(t *testing.T) {
	repo, mock, done := newChatRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC`).
		WithArgs("sess-1", 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "chat_session_id", "sender", "content", "metadata", "created_at"}).
			AddRow("m5", "sess-1", "ASSISTANT", "fifth", nil, now).
			AddRow("m4", "sess-1", "USER", "fourth", nil, now.Add(-time.Minute)))

	messages, err := repo.MessagesPage(context.Background(), "sess-1", 2, "")
	if err != nil {
		t.Fatalf("MessagesPage() error = %v", err)
	}
	if len(messages) != 2 || messages[0].ID != "m5" || messages[1].ID != "m4" {
		t.Fatalf("unexpected page: %+v", messages)
	}
	if messages[0].Sender != domain.SenderAssistant {
		t.Fatalf("sender not decoded: %+v", messages[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMessagesPageCursorExcludesCursorRow(t *testing.T) {
	repo, mock, done := newChatRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery(`AND \(created_at, id\) <`).
		WithArgs("sess-1", 2, "m4").
		WillReturnRows(sqlmock.NewRows([]string{"id", "chat_session_id", "sender", "content", "metadata", "created_at"}).
			AddRow("m3", "sess-1", "USER", "third", nil, now).
			AddRow("m2", "sess-1", "ASSISTANT", "second", nil, now.Add(-time.Minute)))

	messages, err := repo.MessagesPage(context.Background(), "sess-1", 2, "m4")
	if err != nil {
		t.Fatalf("MessagesPage() error = %v", err)
	}
	if len(messages) != 2 || messages[0].ID != "m3" {
		t.Fatalf("unexpected page: %+v", messages)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMessagesPageZeroLimitShortCircuits(t *testing.T) {
	repo, mock, done := newChatRepoWithMock(t)
	defer done()

	messages, err := repo.MessagesPage(context.Background(), "sess-1", 0, "")
	if err != nil {
		t.Fatalf("MessagesPage() error = %v", err)
	}
	if messages != nil {
		t.Fatalf("expected no query for zero limit, got %+v", messages)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
