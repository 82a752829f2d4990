package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// ErrorKind classifies a failed generation attempt.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindAuth        ErrorKind = "auth"
	KindRateLimit   ErrorKind = "rate_limit"
	KindMalformed   ErrorKind = "malformed"
	KindUnavailable ErrorKind = "unavailable"
	KindUpstream    ErrorKind = "upstream"
	KindCanceled    ErrorKind = "canceled"
)

// GenerationError is the failure half of a generation result.
type GenerationError struct {
	Kind      ErrorKind
	Provider  string
	Status    int
	Retryable bool
	Err       error
}

func (e *GenerationError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

var (
	errNoChoices      = errors.New("response contained no choices")
	errMalformedReply = errors.New("reply carried no text")
)

// classify wraps err into a *GenerationError. Errors that already carry a
// classification pass through unchanged.
func classify(provider string, err error) *GenerationError {
	if err == nil {
		return nil
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr
	}

	out := &GenerationError{Kind: KindUpstream, Provider: provider, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var statusErr *statusError
	switch {
	case errors.As(err, &apiErr):
		out.Status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		out.Status = reqErr.HTTPStatusCode
	case errors.As(err, &statusErr):
		out.Status = statusErr.code
	}

	var netErr net.Error
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, context.Canceled):
		out.Kind = KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		out.Kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		out.Kind = KindTimeout
	case errors.Is(err, errNoChoices), errors.Is(err, errMalformedReply), errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		out.Kind = KindMalformed
	case out.Status > 0:
		out.Kind = kindForStatus(out.Status)
	}
	out.Retryable = out.Kind == KindTimeout || isRetryableStatus(out.Status)
	return out
}

func kindForStatus(code int) ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return KindTimeout
	case code >= 500:
		return KindUnavailable
	default:
		return KindUpstream
	}
}

// isRetryableStatus reports statuses worth trying again on a later turn.
func isRetryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// statusError is returned by the plain HTTP generator for non-2xx replies.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.code, e.body)
}
