package api

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is the error envelope returned to clients. Code doubles as
// the HTTP status of the response; Status is the protocol-level status
// string accompanying it.
type APIError struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError the way it appears on the wire.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Status, e.Code, e.Message)
}

// HTTPStatus returns the HTTP status code the error maps to.
func (e *APIError) HTTPStatus() int {
	return e.Code
}

// Protocol status strings.
const (
	StatusInvalidArgument   = "INVALID_ARGUMENT"
	StatusNotFound          = "NOT_FOUND"
	StatusUnauthenticated   = "UNAUTHENTICATED"
	StatusResourceExhausted = "RESOURCE_EXHAUSTED"
	StatusUnavailable       = "UNAVAILABLE"
	StatusInternal          = "INTERNAL"
)

// NewMalformedRequestError reports a request the gateway could not
// parse or that violates a structural invariant of the content model.
func NewMalformedRequestError(format string, args ...any) *APIError {
	return &APIError{
		Code:    http.StatusBadRequest,
		Status:  StatusInvalidArgument,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewUnsupportedToolShapeError reports a tool declaration whose schema
// cannot be expressed in the backend's function-calling format.
func NewUnsupportedToolShapeError(format string, args ...any) *APIError {
	return &APIError{
		Code:    http.StatusBadRequest,
		Status:  StatusInvalidArgument,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewNotFoundError reports an unknown model or route.
func NewNotFoundError(format string, args ...any) *APIError {
	return &APIError{
		Code:    http.StatusNotFound,
		Status:  StatusNotFound,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewUnauthenticatedError reports missing or invalid credentials.
func NewUnauthenticatedError(format string, args ...any) *APIError {
	return &APIError{
		Code:    http.StatusUnauthorized,
		Status:  StatusUnauthenticated,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewResourceExhaustedError reports a rate limit, propagated from the
// backend or imposed by the gateway itself.
func NewResourceExhaustedError(format string, args ...any) *APIError {
	return &APIError{
		Code:    http.StatusTooManyRequests,
		Status:  StatusResourceExhausted,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewBackendTransportError reports a failure to reach the backend or a
// connection dropped mid-response.
func NewBackendTransportError(format string, args ...any) *APIError {
	return &APIError{
		Code:    http.StatusBadGateway,
		Status:  StatusUnavailable,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewBackendProtocolError reports a backend response the gateway could
// not interpret.
func NewBackendProtocolError(format string, args ...any) *APIError {
	return &APIError{
		Code:    http.StatusBadGateway,
		Status:  StatusInternal,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewServerError reports an unexpected internal failure.
func NewServerError(format string, args ...any) *APIError {
	return &APIError{
		Code:    http.StatusInternalServerError,
		Status:  StatusInternal,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsAPIError extracts an *APIError from err, wrapping unrecognized
// errors as internal server errors so every failure path produces the
// same envelope on the wire.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewServerError("%s", err.Error())
}
