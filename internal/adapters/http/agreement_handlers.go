package httpadapter

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
)

const maxUploadBytes = 32 << 20

func (rt *Router) processAgreement(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read uploaded file"})
		return
	}
	if len(content) > maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file exceeds upload limit"})
		return
	}

	agreementID := formValue(r, "agreementId", "agreement_id")
	if agreementID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "agreementId is required"})
		return
	}

	docType, err := parseDocType(formValue(r, "docType", "doc_type"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	mode, err := parseAnalysisMode(formValue(r, "analysisMode", "analysis_mode"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	start := time.Now()
	result := rt.processor.Process(r.Context(), domain.ProcessInput{
		AgreementID: agreementID,
		UserID:      userIDFromContext(r.Context()),
		File: domain.FileUpload{
			Name:     header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Content:  content,
		},
		DocType: docType,
		Mode:    mode,
	})
	if rt.metrics != nil {
		rt.metrics.RecordPipelineRun(rt.cfg.ServiceName, string(mode), result.Success, time.Since(start))
	}

	writeJSON(w, http.StatusOK, result)
}

// formValue returns the first non-empty form field among names. The API
// documents camelCase field names; snake_case is kept as an alias.
func formValue(r *http.Request, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(r.FormValue(name)); v != "" {
			return v
		}
	}
	return ""
}

func (rt *Router) getAnalysis(w http.ResponseWriter, r *http.Request) {
	agreement, err := rt.insights.Analysis(r.Context(), chi.URLParam(r, "agreementID"), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"agreement_id":  agreement.ID,
		"summary":       agreement.SummaryJSON,
		"clauses":       agreement.ClausesJSON,
		"risks":         agreement.RisksJSON,
		"analysis_mode": agreement.AnalysisMode,
		"status":        agreement.Status,
		"processed_at":  agreement.ProcessedAt,
	})
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	documents, err := rt.insights.Documents(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": documents})
}

func (rt *Router) getQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := rt.insights.Questions(r.Context(), chi.URLParam(r, "agreementID"), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, questions)
}

func (rt *Router) getReport(w http.ResponseWriter, r *http.Request) {
	agreementID := chi.URLParam(r, "agreementID")
	report, err := rt.insights.Report(r.Context(), agreementID, userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "report_"+agreementID+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report)
}

func (rt *Router) getRulebook(w http.ResponseWriter, r *http.Request) {
	rulebook, err := rt.insights.Rulebook(r.Context(), chi.URLParam(r, "agreementID"), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeRawJSON(w, http.StatusOK, rulebook)
}

func (rt *Router) exportWorkbook(w http.ResponseWriter, r *http.Request) {
	agreementID := chi.URLParam(r, "agreementID")
	workbook, err := rt.insights.Export(r.Context(), agreementID, userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "analysis_"+agreementID+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(workbook)
}

func parseDocType(raw string) (domain.DocType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(domain.DocTypeElectronic):
		return domain.DocTypeElectronic, nil
	case string(domain.DocTypeScanned):
		return domain.DocTypeScanned, nil
	default:
		return "", fmt.Errorf("doc_type must be %q or %q", domain.DocTypeScanned, domain.DocTypeElectronic)
	}
}

func parseAnalysisMode(raw string) (domain.AnalysisMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(domain.ModeBasic):
		return domain.ModeBasic, nil
	case string(domain.ModePro):
		return domain.ModePro, nil
	default:
		return "", fmt.Errorf("analysis_mode must be %q or %q", domain.ModeBasic, domain.ModePro)
	}
}
