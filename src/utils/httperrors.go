package utils

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// HTTPError defines a custom error structure that includes an HTTP status code and message
type HTTPError struct {
	Code    int    `json:"-"`
	Message string `json:"message"`
}

// Implement the Error() method to satisfy the error interface
func (e *HTTPError) Error() string {
	return e.Message
}

// New creates a new HTTPError instance with a custom status code and message
func NewHTTPError(code int, message string) error {
	return &HTTPError{
		Code:    code,
		Message: message,
	}
}

// BadRequest creates a 400 Bad Request error
func BadRequest(message string) error {
	return NewHTTPError(http.StatusBadRequest, message)
}

// NotFound creates a 404 Not Found error
func NotFound(message string) error {
	return NewHTTPError(http.StatusNotFound, message)
}

// Conflict creates a 409 Conflict error
func Conflict(message string) error {
	return NewHTTPError(http.StatusConflict, message)
}

// UnprocessableEntity creates a 422 error, used for payload validation failures
func UnprocessableEntity(message string) error {
	return NewHTTPError(http.StatusUnprocessableEntity, message)
}

// InternalServerError creates a 500 Internal Server Error
func InternalServerError(message string) error {
	return NewHTTPError(http.StatusInternalServerError, message)
}

// ServiceUnavailable creates a 503 Service Unavailable error
func ServiceUnavailable(message string) error {
	return NewHTTPError(http.StatusServiceUnavailable, message)
}

// ToHTTPError converts a domain error into an HTTPError with the matching status code.
func ToHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, context.DeadlineExceeded):
		return &HTTPError{Code: http.StatusGatewayTimeout, Message: "Request timed out"}
	case errors.Is(err, ErrNotFound):
		return &HTTPError{Code: http.StatusNotFound, Message: err.Error()}
	case errors.Is(err, ErrConflict):
		return &HTTPError{Code: http.StatusConflict, Message: err.Error()}
	case errors.Is(err, ErrInvalidArgument):
		return &HTTPError{Code: http.StatusUnprocessableEntity, Message: err.Error()}
	case errors.Is(err, ErrRateLimited):
		return &HTTPError{Code: http.StatusTooManyRequests, Message: err.Error()}
	case errors.Is(err, ErrUpstreamUnavailable):
		return &HTTPError{Code: http.StatusServiceUnavailable, Message: err.Error()}
	default:
		return &HTTPError{Code: http.StatusInternalServerError, Message: "Internal Server Error"}
	}
}

// WriteError is a helper function to send the error response as JSON
func WriteError(w http.ResponseWriter, err error) {
	httpErr := ToHTTPError(err)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(httpErr.Code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": httpErr.Message})
}
