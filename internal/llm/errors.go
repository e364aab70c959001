package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// ErrorKind classifies a failed gateway call.
type ErrorKind string

const (
	KindRateLimited       ErrorKind = "rate_limited"
	KindCreditsExhausted  ErrorKind = "credits_exhausted"
	KindTransportFailure  ErrorKind = "transport_failure"
	KindMalformedResponse ErrorKind = "malformed_response"
)

var (
	// ErrMisconfigured is returned before any network call when no credential is set.
	ErrMisconfigured = errors.New("AI_GATEWAY_API_KEY is not configured")

	ErrRateLimited       = errors.New("rate limited")
	ErrCreditsExhausted  = errors.New("credits exhausted")
	ErrTransportFailure  = errors.New("transport failure")
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// GatewayError is a classified gateway failure. Body holds a truncated
// snapshot of the upstream error body for logging; it is never part of Error().
type GatewayError struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Timeout    bool
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("AI Gateway error: %d", e.StatusCode)
	case e.Timeout:
		return "AI Gateway request timed out"
	case e.Kind == KindMalformedResponse:
		return "AI Gateway returned a malformed response"
	default:
		return "AI Gateway request failed"
	}
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *GatewayError) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *GatewayError) sentinel() error {
	switch e.Kind {
	case KindRateLimited:
		return ErrRateLimited
	case KindCreditsExhausted:
		return ErrCreditsExhausted
	case KindMalformedResponse:
		return ErrMalformedResponse
	default:
		return ErrTransportFailure
	}
}

// Retryable reports whether another attempt could succeed.
func (e *GatewayError) Retryable() bool {
	return e.Kind == KindTransportFailure
}

func fromStatus(status int, err error) *GatewayError {
	gwErr := &GatewayError{StatusCode: status, Err: err}
	switch status {
	case http.StatusTooManyRequests:
		gwErr.Kind = KindRateLimited
	case http.StatusPaymentRequired:
		gwErr.Kind = KindCreditsExhausted
	default:
		gwErr.Kind = KindTransportFailure
	}
	return gwErr
}

// classify maps a go-openai error to a GatewayError.
func classify(err error) *GatewayError {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return fromStatus(apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return fromStatus(reqErr.HTTPStatusCode, err)
	}

	if errors.As(err, new(*json.SyntaxError)) || errors.As(err, new(*json.UnmarshalTypeError)) {
		return &GatewayError{Kind: KindMalformedResponse, Err: err}
	}

	return &GatewayError{
		Kind:    KindTransportFailure,
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}
