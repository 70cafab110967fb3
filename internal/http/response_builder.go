// Package http provides HTTP server and handler implementations.
//
// This file implements a small builder for the JSON envelopes the
// automation platform expects: {"data": ...} on success and
// {"errors": [...]} on failure.

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"ledgerbridge/internal/services"
)

// Error messages the automation platform shows to users.
const (
	msgInvalidKey         = "Invalid key"
	msgInvalidData        = "Invalid data"
	msgCannotRetrieve     = "Cannot retrieve transactions"
	msgOptionsUnavailable = "ERROR retrieving YNAB data"
	msgOptionsNoDefault   = "ERROR no default budget"
	statusSkip            = "SKIP"
	contentTypeJSON       = "application/json; charset=utf-8"
)

// APIError is one entry of an error envelope. Status SKIP tells the platform
// not to retry an action.
type APIError struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
}

// JSONResponse provides a fluent API for building envelope responses.
type JSONResponse struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponse {
	return &JSONResponse{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponse) Status(code int) *JSONResponse {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponse) Header(name, value string) *JSONResponse {
	b.headers[name] = value
	return b
}

// Data wraps v in a data envelope.
func (b *JSONResponse) Data(v any) *JSONResponse {
	b.body = map[string]any{"data": v}
	return b
}

// Errors sets an error envelope.
func (b *JSONResponse) Errors(errs ...APIError) *JSONResponse {
	b.body = map[string]any{"errors": errs}
	return b
}

// Raw sets a body that is encoded as is.
func (b *JSONResponse) Raw(v any) *JSONResponse {
	b.body = v
	return b
}

// Write sends the built response. A nil body writes the status only.
func (b *JSONResponse) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Response encoding failed", "error", err)
		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"errors":[{"message":"Internal error"}]}`))
		return
	}
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
}

// ErrorResponse creates an error envelope with a single message.
func ErrorResponse(statusCode int, message string) *JSONResponse {
	return NewJSONResponse().Status(statusCode).Errors(APIError{Message: message})
}

// InvalidKeyError is the response to a missing or wrong service key.
func InvalidKeyError() *JSONResponse {
	return ErrorResponse(http.StatusUnauthorized, msgInvalidKey)
}

// InvalidDataError is the response to a malformed trigger poll.
func InvalidDataError() *JSONResponse {
	return ErrorResponse(http.StatusBadRequest, msgInvalidData)
}

// SkipError rejects an action without retry.
func SkipError(message string) *JSONResponse {
	return NewJSONResponse().
		Status(http.StatusBadRequest).
		Errors(APIError{Status: statusSkip, Message: message})
}

// OptionsError reports an options failure as a single unselectable entry.
// The platform shows it in the dropdown, so the status stays 200.
func OptionsError(label string) *JSONResponse {
	return NewJSONResponse().Data([]services.Option{{Label: label}})
}
