package httpadapter

import (
	"net/http"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
)

// mapErrorToHTTPStatus is the single error-kind to status table for the
// whole API. Every handler routes its errors through here so the same
// failure never surfaces as two different status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrAgreementNotFound),
		domain.IsKind(err, domain.ErrChatSessionNotFound),
		domain.IsKind(err, domain.ErrNoAnalysisFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
