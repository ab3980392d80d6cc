package legalai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/lexiscan-ai/lexiscan-backend/internal/core/domain"
	"github.com/lexiscan-ai/lexiscan-backend/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx reply from the remote service. Detail
// carries the service's own error field when the body provides one, so
// pipeline failures can surface the most specific message available.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Detail     string
}

func newHTTPStatusError(operation string, statusCode int, status string, body []byte) *HTTPStatusError {
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: statusCode,
		Status:     status,
		Detail:     extractDetail(body),
	}
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "legalai status error"
	}
	if e.Detail == "" {
		return fmt.Sprintf("legalai %s status: %s", e.Operation, e.Status)
	}
	return e.Detail
}

// RemoteDetail exposes the service-provided error text for callers that
// surface the most specific message available.
func (e *HTTPStatusError) RemoteDetail() string {
	if e == nil {
		return ""
	}
	return e.Detail
}

func extractDetail(body []byte) string {
	var parsed struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Detail != "" {
			return parsed.Detail
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(body))
}

func classifyRemoteError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func wrapRemoteError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrRemoteService) || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if resilience.IsCircuitOpen(err) || classifyRemoteError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return domain.WrapError(domain.ErrRemoteService, operation, err)
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
