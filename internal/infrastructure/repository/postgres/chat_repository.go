package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
)

type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) CreateSession(ctx context.Context, session *domain.ChatSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.Title == "" {
		session.Title = "New Chat Session"
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO chat_sessions (id, user_id, agreement_id, title, rag_doc_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, session.ID, session.UserID, nullableString(session.AgreementID), session.Title,
		nullableString(session.RagDocID), session.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat session: %w", err)
	}
	return nil
}

func (r *ChatRepository) SessionByAgreement(ctx context.Context, agreementID string) (*domain.ChatSession, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, COALESCE(agreement_id, ''), title, COALESCE(rag_doc_id, ''), created_at
FROM chat_sessions
WHERE agreement_id = $1
`, agreementID)

	var session domain.ChatSession
	err := row.Scan(
		&session.ID, &session.UserID, &session.AgreementID,
		&session.Title, &session.RagDocID, &session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrChatSessionNotFound, "get chat session", fmt.Errorf("agreement %s", agreementID))
		}
		return nil, fmt.Errorf("scan chat session: %w", err)
	}
	return &session, nil
}

func (r *ChatRepository) SetSessionDocID(ctx context.Context, sessionID, ragDocID string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE chat_sessions
SET rag_doc_id = $2
WHERE id = $1
`, sessionID, ragDocID)
	if err != nil {
		return fmt.Errorf("set session doc id: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set session doc id rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrChatSessionNotFound, "set session doc id", fmt.Errorf("id %s", sessionID))
	}
	return nil
}

func (r *ChatRepository) AppendMessage(ctx context.Context, message *domain.ChatMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	var metadata []byte
	if len(message.Metadata) > 0 {
		metadata = []byte(message.Metadata)
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO chat_messages (id, chat_session_id, sender, content, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, message.ID, message.ChatSessionID, string(message.Sender), message.Content, metadata, message.CreatedAt)
	if err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

// MessagesPage returns up to limit messages newest-first. A non-empty
// cursor excludes the cursor row itself and continues strictly after it in
// descending order, matching skip-one cursor pagination.
func (r *ChatRepository) MessagesPage(ctx context.Context, sessionID string, limit int, cursor string) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		return nil, nil
	}

	var rows *sql.Rows
	var err error
	if cursor == "" {
		rows, err = r.db.QueryContext(ctx, `
SELECT id, chat_session_id, sender, content, metadata, created_at
FROM chat_messages
WHERE chat_session_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, sessionID, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, `
SELECT id, chat_session_id, sender, content, metadata, created_at
FROM chat_messages
WHERE chat_session_id = $1
  AND (created_at, id) < (SELECT created_at, id FROM chat_messages WHERE id = $3)
ORDER BY created_at DESC, id DESC
LIMIT $2
`, sessionID, limit, cursor)
	}
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ChatMessage, 0, limit)
	for rows.Next() {
		var msg domain.ChatMessage
		var sender string
		var metadata []byte
		if err := rows.Scan(&msg.ID, &msg.ChatSessionID, &sender, &msg.Content, &metadata, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		msg.Sender = domain.MessageSender(sender)
		if len(metadata) > 0 {
			msg.Metadata = metadata
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return out, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
