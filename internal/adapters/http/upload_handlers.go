package httpadapter

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
)

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
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

	agreement, err := rt.uploader.Upload(
		r.Context(),
		userIDFromContext(r.Context()),
		r.FormValue("title"),
		r.FormValue("description"),
		domain.FileUpload{
			Name:     header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Content:  content,
		},
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, agreement)
}

func (rt *Router) previewDocument(w http.ResponseWriter, r *http.Request) {
	url, err := rt.uploader.Preview(r.Context(), chi.URLParam(r, "agreementID"), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	err := rt.uploader.Delete(r.Context(), chi.URLParam(r, "agreementID"), userIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
