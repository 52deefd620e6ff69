// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps domain errors to status codes in one place.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fincontrol/internal/core"
	"fincontrol/internal/log"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter, r *http.Request) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(data, '\n'))
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorBody{Error: message})
}

// ValidationError creates a 422 response listing the offending fields.
func ValidationError(fields map[string]string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusUnprocessableEntity).
		Body(ErrorBody{Error: "validation failed", Fields: fields})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// DomainError maps an error returned by the ledger, backup or settings
// layers to a response. Write failures are 503: the change may not have
// been persisted and the caller must not assume it was.
func DomainError(err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, core.ErrWriteFailed):
		return ErrorResponse(http.StatusServiceUnavailable, "changes could not be saved")
	case errors.Is(err, core.ErrCorruptData):
		return ErrorResponse(http.StatusInternalServerError, "stored data could not be read, nothing was changed")
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("record not found")
	case errors.Is(err, core.ErrDecode),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidRange),
		errors.Is(err, core.ErrInvalidAmount):
		return BadRequestError(err.Error())
	default:
		return ErrorResponse(http.StatusInternalServerError, "internal error")
	}
}

// writeError logs server-side failures and sends the mapped response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := DomainError(err)
	logger := log.FromContext(r.Context())
	if resp.statusCode >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldError, err, log.FieldStatusCode, resp.statusCode)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", log.FieldError, err, log.FieldStatusCode, resp.statusCode)
	}
	resp.Write(w, r)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w, r)
}
