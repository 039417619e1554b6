package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"bistro/internal/core"
	"bistro/internal/csvio"
	"bistro/internal/insights"
	"bistro/internal/ledger"
	"bistro/internal/services"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeCSV  = "text/csv; charset=utf-8"
)

// ResponseBuilder provides a fluent API for building API responses.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON encodes v as the body. An encoding failure turns the response into
// a 500.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.statusCode = http.StatusInternalServerError
		data = []byte(`{"error":"failed to encode response"}`)
	}
	b.headers["Content-Type"] = contentTypeJSON
	b.body = append(data, '\n')
	return b
}

// Attachment sends data as a download named filename.
func (b *ResponseBuilder) Attachment(filename, contentType string, data []byte) *ResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.headers["Content-Disposition"] = fmt.Sprintf("attachment; filename=%q", filename)
	b.body = data
	return b
}

// CSV is Attachment with the CSV content type.
func (b *ResponseBuilder) CSV(filename string, data []byte) *ResponseBuilder {
	return b.Attachment(filename, contentTypeCSV, data)
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// apiError is the body of every error response.
type apiError struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// ErrorResponse creates a JSON error body with the given status.
func ErrorResponse(statusCode int, message string, details ...string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(apiError{Error: message, Details: details})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrInvalidCovers),
		errors.Is(err, csvio.ErrNoData),
		errors.Is(err, csvio.ErrProfileShape),
		errors.Is(err, services.ErrInvalidBackup):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrNotConfirmed):
		return http.StatusPreconditionRequired
	case errors.Is(err, services.ErrNoAutoBackup):
		return http.StatusNotFound
	case errors.Is(err, insights.ErrMissingAPIKey):
		return http.StatusServiceUnavailable
	case errors.Is(err, insights.ErrAnalysisFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FromError builds the error response for err. Internal errors are not
// echoed back to the client.
func FromError(err error) *ResponseBuilder {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		return InternalServerError("internal error")
	}
	return ErrorResponse(status, err.Error())
}
