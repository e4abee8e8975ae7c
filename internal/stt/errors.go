package stt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// StatusError is a non-200 response from the transcription service.
type StatusError struct {
	Code int
	// Body is a bounded excerpt of the response body.
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("stt http %d: %s", e.Code, e.Body)
}

// IsRetryable reports whether a failed transcription call is worth repeating.
// Transport failures, timeouts, 408, 425, 429 and 5xx are transient; everything
// else, including local upload-limit rejections and cancellation, is not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTooLarge) || errors.Is(err, ErrMissingAPIKey) || errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.Code == http.StatusRequestTimeout,
			statusErr.Code == http.StatusTooEarly,
			statusErr.Code == http.StatusTooManyRequests,
			statusErr.Code >= 500:
			return true
		default:
			return false
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
