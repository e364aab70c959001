package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/capitalize-ai/ai-functions/internal/llm"
	"github.com/capitalize-ai/ai-functions/internal/model"
	"github.com/capitalize-ai/ai-functions/internal/normalize"
	"github.com/capitalize-ai/ai-functions/internal/prompt"
)

// MaxBodyBytes caps the size of a function request body.
const MaxBodyBytes = 1 << 20

const (
	msgRateLimited      = "Rate limit exceeded. Please try again later."
	msgCreditsExhausted = "AI credits exhausted. Please add credits to continue."
	msgUnknown          = "Unknown error"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.ErrorResponse{Error: message})
}

// writeFailure maps err to its status and safe message.
func writeFailure(w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	writeError(w, status, message)
}

// decodeBody decodes a size-limited JSON body into v. Every failure is a
// request-shape error.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &prompt.RequestError{Message: "Request body too large"}
		}
		return &prompt.RequestError{Message: "Invalid JSON body"}
	}
	return nil
}

// statusFor maps an error to the HTTP status and the message returned to the
// caller. Upstream bodies and credentials never reach the message.
func statusFor(err error) (int, string) {
	var gwErr *llm.GatewayError

	switch {
	case errors.Is(err, prompt.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, llm.ErrRateLimited):
		return http.StatusTooManyRequests, msgRateLimited
	case errors.Is(err, llm.ErrCreditsExhausted):
		return http.StatusPaymentRequired, msgCreditsExhausted
	case errors.Is(err, llm.ErrMisconfigured):
		return http.StatusInternalServerError, llm.ErrMisconfigured.Error()
	case errors.Is(err, normalize.ErrEmptyUpstreamResponse):
		return http.StatusInternalServerError, normalize.ErrEmptyUpstreamResponse.Error()
	case errors.As(err, &gwErr):
		return http.StatusInternalServerError, gwErr.Error()
	default:
		return http.StatusInternalServerError, msgUnknown
	}
}
