package legalai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
)

func TestMaskDocumentSendsMultipartAndStripsRemotePath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mask-pdf" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("doc_type"); got != "scanned" {
			t.Errorf("doc_type = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file part missing: %v", err)
		} else {
			defer file.Close()
			if header.Filename != "contract.pdf" {
				t.Errorf("filename = %q", header.Filename)
			}
			content, _ := io.ReadAll(file)
			if string(content) != "%PDF-1.4" {
				t.Errorf("file content = %q", content)
			}
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"masked_pdf_path": `C:\masked\out\masked_contract.pdf`,
			"mapping":         map[string]string{"[PERSON_1]": "John Smith"},
		})
	}))
	defer server.Close()

	client := New(server.URL, nil)
	result, err := client.MaskDocument(context.Background(), domain.FileUpload{
		Name:     "contract.pdf",
		MimeType: "application/pdf",
		Content:  []byte("%PDF-1.4"),
	}, domain.DocTypeScanned)
	if err != nil {
		t.Fatalf("MaskDocument() error = %v", err)
	}

	if result.MaskedFileName != "masked_contract.pdf" {
		t.Fatalf("remote path not stripped: %q", result.MaskedFileName)
	}
	if result.Mapping["[PERSON_1]"] != "John Smith" {
		t.Fatalf("mapping not decoded: %v", result.Mapping)
	}
}

func TestUploadMaskedSendsFormFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload-rag" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostFormValue("file_name") != "masked_contract.pdf" ||
			r.PostFormValue("user_id") != "user-1" ||
			r.PostFormValue("doc_type") != "electronic" {
			t.Errorf("unexpected form: %v", r.PostForm)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"doc_id": "doc-42"})
	}))
	defer server.Close()

	client := New(server.URL, nil)
	docID, err := client.UploadMasked(context.Background(), "masked_contract.pdf", "user-1", domain.DocTypeElectronic)
	if err != nil {
		t.Fatalf("UploadMasked() error = %v", err)
	}
	if docID != "doc-42" {
		t.Fatalf("doc id = %q", docID)
	}
}

func TestRunBatchAnalysisSurfacesRemoteDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "gpu out of memory"})
	}))
	defer server.Close()

	client := New(server.URL, nil)
	_, err := client.RunBatchAnalysis(context.Background(), "doc-42", "user-1", domain.ModeBasic)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("a 500 should map to a temporary failure, got %v", err)
	}
	if got := domain.MostSpecificMessage(err); got != "gpu out of memory" {
		t.Fatalf("remote detail lost: %q", got)
	}
}

func TestQueryForwardsStoredAnalysisAndReturnsRawBody(t *testing.T) {
	rawReply := `{"answer":"12 months","sources":[{"page":3}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query-rag" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		var payload domain.AnalysisPayload
		if err := json.Unmarshal([]byte(r.PostFormValue("clauses_json")), &payload); err != nil {
			t.Errorf("clauses_json not valid json: %v", err)
		}
		if payload.DocID != "doc-42" || payload.AnalysisType != domain.ModePro {
			t.Errorf("unexpected payload: %+v", payload)
		}
		_, _ = w.Write([]byte(rawReply))
	}))
	defer server.Close()

	client := New(server.URL, nil)
	raw, err := client.Query(context.Background(), "what is the term?", "user-1", "doc-42", domain.AnalysisPayload{
		DocID:        "doc-42",
		AnalysisType: domain.ModePro,
		Summary:      json.RawMessage(`{"k":"v"}`),
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if string(raw) != rawReply {
		t.Fatalf("raw body altered: %s", raw)
	}
}

func TestRulebookSourcesSendsTopKAndSummary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/view-rulebook-source" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("top_k") != "5" {
			t.Errorf("top_k = %q", r.URL.Query().Get("top_k"))
		}
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if string(body["summary"]) != `{"k":"v"}` {
			t.Errorf("summary = %s", body["summary"])
		}
		_, _ = w.Write([]byte(`{"results":[{"source":"civil code"}]}`))
	}))
	defer server.Close()

	client := New(server.URL, nil)
	sources, err := client.RulebookSources(context.Background(), json.RawMessage(`{"k":"v"}`), 5)
	if err != nil {
		t.Fatalf("RulebookSources() error = %v", err)
	}
	if string(sources) != `{"results":[{"source":"civil code"}]}` {
		t.Fatalf("unexpected sources: %s", sources)
	}
}

func TestGenerateReportReturnsBinaryBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 report"))
	}))
	defer server.Close()

	client := New(server.URL, nil)
	report, err := client.GenerateReport(context.Background(), domain.AnalysisPayload{DocID: "doc-42"})
	if err != nil {
		t.Fatalf("GenerateReport() error = %v", err)
	}
	if string(report) != "%PDF-1.4 report" {
		t.Fatalf("unexpected report: %q", report)
	}
}

func TestNonRetryableStatusMapsToRemoteServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "unsupported document"})
	}))
	defer server.Close()

	client := New(server.URL, nil)
	_, err := client.UploadMasked(context.Background(), "x.pdf", "user-1", domain.DocTypeElectronic)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrRemoteService) {
		t.Fatalf("expected remote-service kind, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("a 422 must not be temporary")
	}
}

func TestClassifyRemoteErrorStatuses(t *testing.T) {
	retryable := classifyRemoteError(&HTTPStatusError{StatusCode: http.StatusBadGateway})
	if !retryable.Retryable || !retryable.RecordFailure {
		t.Fatalf("502 should be retryable and recorded: %+v", retryable)
	}

	terminal := classifyRemoteError(&HTTPStatusError{StatusCode: http.StatusBadRequest})
	if terminal.Retryable || terminal.RecordFailure {
		t.Fatalf("400 should be terminal and unrecorded: %+v", terminal)
	}

	canceled := classifyRemoteError(context.Canceled)
	if canceled.Retryable || canceled.RecordFailure {
		t.Fatalf("cancellation should not count against the breaker: %+v", canceled)
	}
}
