package domain

import (
	"encoding/json"
	"time"
)

type AgreementStatus string

const (
	StatusCreated  AgreementStatus = "created"
	StatusMasked   AgreementStatus = "masked"
	StatusUploaded AgreementStatus = "uploaded"
	StatusAnalyzed AgreementStatus = "analyzed"
)

type AnalysisMode string

const (
	ModeBasic AnalysisMode = "basic"
	ModePro   AnalysisMode = "pro"
)

type DocType string

const (
	DocTypeScanned    DocType = "scanned"
	DocTypeElectronic DocType = "electronic"
)

// Agreement is one uploaded document and its analysis state. The status
// only ever moves forward (created -> masked -> uploaded -> analyzed); a
// failed pipeline run leaves the row in its last reached state.
type Agreement struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	StoragePath  string            `json:"storage_path,omitempty"`
	ThreadID     string            `json:"thread_id,omitempty"`
	DocID        string            `json:"doc_id,omitempty"`
	MaskingJSON  map[string]string `json:"-"`
	SummaryJSON  json.RawMessage   `json:"summary_json,omitempty"`
	ClausesJSON  json.RawMessage   `json:"clauses_json,omitempty"`
	RisksJSON    json.RawMessage   `json:"risks_json,omitempty"`
	RulebookJSON json.RawMessage   `json:"rulebook_json,omitempty"`
	QuestionJSON json.RawMessage   `json:"question_json,omitempty"`
	AnalysisMode AnalysisMode      `json:"analysis_mode,omitempty"`
	Status       AgreementStatus   `json:"status"`
	Error        string            `json:"error,omitempty"`
	ProcessedAt  *time.Time        `json:"processed_at,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Analysis holds the unmasked batch-pipeline output for one agreement.
type Analysis struct {
	Summary json.RawMessage `json:"summary"`
	Clauses json.RawMessage `json:"clauses"`
	Risks   json.RawMessage `json:"risks"`
}

// AgreementListing is the reduced projection returned by document lists.
type AgreementListing struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	AnalysisMode AnalysisMode `json:"analysis_mode,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

type MessageSender string

const (
	SenderUser      MessageSender = "USER"
	SenderAssistant MessageSender = "ASSISTANT"
)

// ChatSession is one conversation scoped to an agreement. It is created
// by the processing pipeline right after a successful RAG upload and is
// never deleted by the pipeline.
type ChatSession struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AgreementID string    `json:"agreement_id,omitempty"`
	Title       string    `json:"title"`
	RagDocID    string    `json:"rag_doc_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ChatMessage is one turn in a session. The log is append-only.
type ChatMessage struct {
	ID            string          `json:"id"`
	ChatSessionID string          `json:"chat_session_id"`
	Sender        MessageSender   `json:"sender"`
	Content       string          `json:"content"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// MessagePage is one chronological page of chat history. NextCursor is the
// id of the oldest message in the page, HasMore a full-page heuristic.
type MessagePage struct {
	Messages   []ChatMessage `json:"messages"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}
