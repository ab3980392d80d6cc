package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
	"github.com/lexiscan-ai/lexiscan-backend/internal/core/ports"
)

const defaultMessagePageSize = 10

// ChatUseCase answers follow-up questions against a processed agreement.
// The user and assistant turns are appended to two independent sinks (the
// external memory thread and the local chat log); neither write is rolled
// back if the other fails.
type ChatUseCase struct {
	agreements ports.AgreementRepository
	chats      ports.ChatRepository
	engine     ports.AnalysisEngine
	memory     ports.MemoryThreads
}

func NewChatUseCase(
	agreements ports.AgreementRepository,
	chats ports.ChatRepository,
	engine ports.AnalysisEngine,
	memory ports.MemoryThreads,
) *ChatUseCase {
	return &ChatUseCase{
		agreements: agreements,
		chats:      chats,
		engine:     engine,
		memory:     memory,
	}
}

func (uc *ChatUseCase) Answer(ctx context.Context, agreementID, query, userID string) (json.RawMessage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer query", errors.New("query is required"))
	}

	session, err := uc.chats.SessionByAgreement(ctx, agreementID)
	if err != nil {
		return nil, fmt.Errorf("resolve chat session: %w", err)
	}

	agreement, err := uc.agreements.GetByID(ctx, agreementID)
	if err != nil {
		return nil, fmt.Errorf("fetch agreement: %w", err)
	}
	if agreement.UserID != userID {
		return nil, domain.WrapError(domain.ErrUnauthorized, "answer query", errors.New("agreement belongs to another user"))
	}
	if agreement.DocID == "" || len(agreement.SummaryJSON) == 0 {
		return nil, domain.WrapError(domain.ErrNoAnalysisFound, "answer query", errors.New("agreement has no stored analysis"))
	}

	memoryContext, err := uc.memory.ThreadContext(ctx, agreement.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("fetch thread context: %w", err)
	}

	augmented := composeAugmentedQuery(query, memoryContext)

	if err := uc.memory.AppendUserMessage(ctx, agreement.ThreadID, query); err != nil {
		return nil, fmt.Errorf("append user turn to memory: %w", err)
	}
	if err := uc.appendChatMessage(ctx, session.ID, domain.SenderUser, query); err != nil {
		return nil, err
	}

	payload := domain.AnalysisPayload{
		DocID:        agreement.DocID,
		AnalysisType: agreement.AnalysisMode,
		Summary:      agreement.SummaryJSON,
		Clauses:      agreement.ClausesJSON,
		Risks:        agreement.RisksJSON,
	}

	raw, err := uc.engine.Query(ctx, augmented, userID, agreement.DocID, payload)
	if err != nil {
		return nil, fmt.Errorf("query rag service: %w", err)
	}

	answer := extractAnswer(raw)

	if err := uc.memory.AppendAssistantMessage(ctx, agreement.ThreadID, answer); err != nil {
		return nil, fmt.Errorf("append assistant turn to memory: %w", err)
	}
	if err := uc.appendChatMessage(ctx, session.ID, domain.SenderAssistant, answer); err != nil {
		return nil, err
	}

	return raw, nil
}

// Messages returns one chronological page of the agreement's chat history
// using cursor-based pagination over the newest-first message log.
func (uc *ChatUseCase) Messages(ctx context.Context, agreementID string, limit int, cursor string) (*domain.MessagePage, error) {
	if limit <= 0 {
		limit = defaultMessagePageSize
	}

	session, err := uc.chats.SessionByAgreement(ctx, agreementID)
	if err != nil {
		return nil, fmt.Errorf("resolve chat session: %w", err)
	}

	fetched, err := uc.chats.MessagesPage(ctx, session.ID, limit, cursor)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	ordered := make([]domain.ChatMessage, len(fetched))
	for i, msg := range fetched {
		ordered[len(fetched)-1-i] = msg
	}

	page := &domain.MessagePage{
		Messages: ordered,
		HasMore:  len(fetched) == limit,
	}
	if len(ordered) > 0 {
		page.NextCursor = ordered[0].ID
	}
	return page, nil
}

func (uc *ChatUseCase) appendChatMessage(ctx context.Context, sessionID string, sender domain.MessageSender, content string) error {
	msg := &domain.ChatMessage{
		ChatSessionID: sessionID,
		Sender:        sender,
		Content:       content,
	}
	if err := uc.chats.AppendMessage(ctx, msg); err != nil {
		return fmt.Errorf("append %s message: %w", strings.ToLower(string(sender)), err)
	}
	return nil
}

func composeAugmentedQuery(query, memoryContext string) string {
	var b strings.Builder
	b.WriteString("user query: ")
	b.WriteString(query)
	b.WriteString("\nretrieved memory: ")
	b.WriteString(memoryContext)
	return b.String()
}

func extractAnswer(raw json.RawMessage) string {
	var body struct {
		Answer string `json:"answer"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return string(raw)
	}
	if body.Answer == "" {
		return string(raw)
	}
	return body.Answer
}
