package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAgreementNotFound   = errors.New("agreement not found")
	ErrChatSessionNotFound = errors.New("chat session not found")
	ErrNoAnalysisFound     = errors.New("no analysis found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRemoteService       = errors.New("remote service failure")
	ErrTemporary           = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// RemoteDetailer is implemented by transport errors that carry the remote
// service's own error detail.
type RemoteDetailer interface {
	RemoteDetail() string
}

// MostSpecificMessage prefers a remote service's own error detail over the
// wrapped error chain text.
func MostSpecificMessage(err error) string {
	if err == nil {
		return ""
	}
	var detailer RemoteDetailer
	if errors.As(err, &detailer) {
		if detail := detailer.RemoteDetail(); detail != "" {
			return detail
		}
	}
	return err.Error()
}
