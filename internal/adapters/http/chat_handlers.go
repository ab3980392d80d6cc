package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

func (rt *Router) chatQuery(w http.ResponseWriter, r *http.Request) {
	// The documented body field is agreementId; agreement_id stays as an
	// alias.
	var req struct {
		AgreementID      string `json:"agreementId"`
		AgreementIDSnake string `json:"agreement_id"`
		Query            string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	agreementID := strings.TrimSpace(req.AgreementID)
	if agreementID == "" {
		agreementID = strings.TrimSpace(req.AgreementIDSnake)
	}
	if agreementID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "agreementId is required"})
		return
	}

	start := time.Now()
	answer, err := rt.chat.Answer(r.Context(), agreementID, req.Query, userIDFromContext(r.Context()))
	if rt.metrics != nil {
		rt.metrics.RecordChatQuery(rt.cfg.ServiceName, err, time.Since(start))
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeRawJSON(w, http.StatusOK, answer)
}

func (rt *Router) chatMessages(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	page, err := rt.chat.Messages(r.Context(), chi.URLParam(r, "agreementID"), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
