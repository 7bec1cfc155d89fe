package llms

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/wayfarer-ai/wayfarer/pkg/httpclient"
)

// ErrorCode is a machine-readable classification of a model client failure.
type ErrorCode string

const (
	CodeNetworkError      ErrorCode = "network_error"
	CodeInvalidCredential ErrorCode = "invalid_credential"
	CodeRateLimitExceeded ErrorCode = "rate_limit_exceeded"
	CodeTimeout           ErrorCode = "timeout"
	CodeInvalidRequest    ErrorCode = "invalid_request"
	CodeServerError       ErrorCode = "server_error"
	CodeStreamInterrupted ErrorCode = "stream_interrupted"
)

// ModelError is the single error kind every provider failure is wrapped into.
type ModelError struct {
	Code      ErrorCode
	Provider  ProviderType
	Message   string
	Retryable bool
	Err       error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s [%s]: %v", e.Provider, e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s [%s]", e.Provider, e.Message, e.Code)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status to an error code and retryability.
func classifyStatus(status int) (ErrorCode, bool) {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return CodeInvalidCredential, false
	case status == http.StatusTooManyRequests:
		return CodeRateLimitExceeded, true
	case status == http.StatusRequestTimeout:
		return CodeTimeout, true
	case status >= 500:
		return CodeServerError, true
	default:
		return CodeInvalidRequest, false
	}
}

// wrapTransportError normalizes a failure from the retrying HTTP client into
// one ModelError. By the time this is called the retry budget is spent, but
// the Retryable flag still reports the original classification for callers
// with their own schedulers.
func wrapTransportError(provider ProviderType, status int, err error) *ModelError {
	var retryErr *httpclient.RetryableError
	if errors.As(err, &retryErr) {
		code := CodeNetworkError
		retryable := true
		if retryErr.StatusCode > 0 {
			code, retryable = classifyStatus(retryErr.StatusCode)
		}
		return &ModelError{
			Code:      code,
			Provider:  provider,
			Message:   "request failed after retries",
			Retryable: retryable,
			Err:       err,
		}
	}

	if status > 0 {
		code, retryable := classifyStatus(status)
		return &ModelError{
			Code:      code,
			Provider:  provider,
			Message:   fmt.Sprintf("request rejected with status %d", status),
			Retryable: retryable,
			Err:       err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ModelError{
			Code:      CodeTimeout,
			Provider:  provider,
			Message:   "request timed out",
			Retryable: true,
			Err:       err,
		}
	}

	return &ModelError{
		Code:      CodeNetworkError,
		Provider:  provider,
		Message:   "request failed",
		Retryable: true,
		Err:       err,
	}
}

// streamError wraps a failure observed after content already started flowing.
// Mid-stream failures are terminal and never retried.
func streamError(provider ProviderType, err error) *ModelError {
	return &ModelError{
		Code:      CodeStreamInterrupted,
		Provider:  provider,
		Message:   "stream interrupted",
		Retryable: false,
		Err:       err,
	}
}
