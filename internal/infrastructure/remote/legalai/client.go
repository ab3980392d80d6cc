package legalai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
	"github.com/lexiscan-ai/lexiscan-backend/internal/infrastructure/resilience"
)

// Per-operation deadlines. Batch analysis is long-running by design; the
// short calls fail fast so the pipeline can surface the error.
const (
	maskTimeout      = 120 * time.Second
	uploadTimeout    = 120 * time.Second
	batchTimeout     = 600 * time.Second
	queryTimeout     = 120 * time.Second
	questionsTimeout = 20 * time.Second
	reportTimeout    = 120 * time.Second
	rulebookTimeout  = 120 * time.Second
)

// Client wraps the external AI/RAG service. Short idempotent calls run
// through the resilience executor; batch analysis and chat queries do not
// (retrying them is a caller concern).
type Client struct {
	baseURL  string
	http     httpDoer
	executor *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     newHTTPClient(),
		executor: executor,
	}
}

func (c *Client) MaskDocument(ctx context.Context, file domain.FileUpload, docType domain.DocType) (domain.MaskResult, error) {
	var response struct {
		MaskedPDFPath string            `json:"masked_pdf_path"`
		Mapping       map[string]string `json:"mapping"`
	}

	err := c.withResilience(ctx, "mask", func(callCtx context.Context) error {
		return c.postMultipart(callCtx, "/mask-pdf", file, map[string]string{
			"doc_type": string(docType),
		}, &response, "mask", maskTimeout)
	})
	if err != nil {
		return domain.MaskResult{}, err
	}

	return domain.MaskResult{
		MaskedFileName: baseName(response.MaskedPDFPath),
		Mapping:        response.Mapping,
	}, nil
}

func (c *Client) UploadMasked(ctx context.Context, fileName, userID string, docType domain.DocType) (string, error) {
	form := url.Values{}
	form.Set("file_name", fileName)
	form.Set("user_id", userID)
	form.Set("doc_type", string(docType))

	var response struct {
		DocID string `json:"doc_id"`
	}
	err := c.withResilience(ctx, "upload", func(callCtx context.Context) error {
		return c.postForm(callCtx, "/upload-rag", form, &response, "upload", uploadTimeout)
	})
	if err != nil {
		return "", err
	}
	return response.DocID, nil
}

func (c *Client) RunBatchAnalysis(ctx context.Context, docID, userID string, mode domain.AnalysisMode) (domain.Analysis, error) {
	form := url.Values{}
	form.Set("doc_id", docID)
	form.Set("user_id", userID)
	form.Set("type", string(mode))

	var response struct {
		Summary json.RawMessage `json:"summary"`
		Clauses json.RawMessage `json:"clauses"`
		Risks   json.RawMessage `json:"risks"`
	}
	if err := c.postForm(ctx, "/batch_pipeline", form, &response, "batch analysis", batchTimeout); err != nil {
		return domain.Analysis{}, wrapRemoteError("batch analysis", err)
	}
	return domain.Analysis{
		Summary: response.Summary,
		Clauses: response.Clauses,
		Risks:   response.Risks,
	}, nil
}

func (c *Client) Query(ctx context.Context, query, userID, docID string, payload domain.AnalysisPayload) (json.RawMessage, error) {
	clausesJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal query payload: %w", err)
	}

	form := url.Values{}
	form.Set("query", query)
	form.Set("user_id", userID)
	form.Set("doc_id", docID)
	form.Set("clauses_json", string(clausesJSON))

	raw, err := c.postFormRaw(ctx, "/query-rag", form, "query", queryTimeout)
	if err != nil {
		return nil, wrapRemoteError("query", err)
	}
	return json.RawMessage(raw), nil
}

func (c *Client) GenerateQuestions(ctx context.Context, docID, userID string) (json.RawMessage, error) {
	form := url.Values{}
	form.Set("doc_id", docID)
	form.Set("user_id", userID)

	var response struct {
		Questions json.RawMessage `json:"questions"`
	}
	err := c.withResilience(ctx, "questions", func(callCtx context.Context) error {
		return c.postForm(callCtx, "/generate-questions", form, &response, "questions", questionsTimeout)
	})
	if err != nil {
		return nil, err
	}
	return response.Questions, nil
}

func (c *Client) GenerateReport(ctx context.Context, payload domain.AnalysisPayload) ([]byte, error) {
	raw, err := c.postJSONRaw(ctx, "/generate-report", payload, "report", reportTimeout)
	if err != nil {
		return nil, wrapRemoteError("report", err)
	}
	return raw, nil
}

func (c *Client) RulebookSources(ctx context.Context, summary json.RawMessage, topK int) (json.RawMessage, error) {
	if topK <= 0 {
		topK = 5
	}
	path := "/view-rulebook-source?top_k=" + strconv.Itoa(topK)
	body := map[string]json.RawMessage{"summary": summary}

	var raw []byte
	err := c.withResilience(ctx, "rulebook", func(callCtx context.Context) error {
		var callErr error
		raw, callErr = c.postJSONBodyRaw(callCtx, path, body, "rulebook", rulebookTimeout)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}

func (c *Client) withResilience(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return wrapRemoteError(operation, fn(ctx))
	}
	err := c.executor.Execute(ctx, "legalai_"+operation, fn, classifyRemoteError)
	return wrapRemoteError(operation, err)
}

// baseName strips the remote filesystem path, which may use either
// separator, down to the file name.
func baseName(path string) string {
	if idx := strings.LastIndexAny(path, `\/`); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
