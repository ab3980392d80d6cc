package domain

import "encoding/json"

// FileUpload carries one uploaded document through the pipeline.
type FileUpload struct {
	Name     string
	MimeType string
	Content  []byte
}

// ProcessInput is the full request for one pipeline run.
type ProcessInput struct {
	AgreementID string
	UserID      string
	File        FileUpload
	DocType     DocType
	Mode        AnalysisMode
}

// ProcessResult is the pipeline's single success/failure contract. On
// failure Message carries the most specific error available, preferring
// the remote service's own detail.
type ProcessResult struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message,omitempty"`
	DocID    string    `json:"doc_id,omitempty"`
	Analysis *Analysis `json:"analysis,omitempty"`
}

// MaskResult is the masking step's output: the name of the masked copy on
// the remote side plus the token-to-original-value mapping needed to
// unmask anything computed against that copy.
type MaskResult struct {
	MaskedFileName string
	Mapping        map[string]string
}

// AnalysisPayload is the stored-analysis envelope forwarded to the remote
// service by chat queries and report generation.
type AnalysisPayload struct {
	DocID        string          `json:"doc_id"`
	AnalysisType AnalysisMode    `json:"analysis_type"`
	Summary      json.RawMessage `json:"summary"`
	Clauses      json.RawMessage `json:"clauses"`
	Risks        json.RawMessage `json:"risks"`
}
