package provsdk

import (
	"fmt"
	"net/http"

	"github.com/lexorahq/provision/pkg/httpx"
)

const (
	ErrorCodeInvalidRequest   = "invalid_request"
	ErrorCodeValidation       = "validation_error"
	ErrorCodeNotFound         = "not_found"
	ErrorCodeInvalidToken     = "invalid_token"
	ErrorCodeCheckUnavailable = "check_unavailable"
	ErrorCodeMethodNotAllowed = "method_not_allowed"
	ErrorCodeServerError      = "server_error"
)

// APIError is the service's error type. It implements the error interface
// and can be used both by handlers (to write responses) and by the SDK
// client (to represent decoded error responses).
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WriteError writes the error to an HTTP response writer.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, ErrorResponse{Code: e.Code, Message: e.Message})
}

// WithDetail returns a copy with a more specific message. Predefined errors
// stay immutable.
func (e *APIError) WithDetail(message string) *APIError {
	return &APIError{StatusCode: e.StatusCode, Code: e.Code, Message: message}
}

var (
	ErrInvalidJSONBody = &APIError{
		StatusCode: http.StatusBadRequest,
		Code:       ErrorCodeInvalidRequest,
		Message:    "the request body is not valid JSON",
	}

	ErrValidation = &APIError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       ErrorCodeValidation,
		Message:    "the request failed validation",
	}

	ErrRegistrationNotFound = &APIError{
		StatusCode: http.StatusNotFound,
		Code:       ErrorCodeNotFound,
		Message:    "no registration with this id",
	}

	ErrMissingToken = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeInvalidToken,
		Message:    "a bearer access token is required",
	}

	ErrInvalidAccessToken = &APIError{
		StatusCode: http.StatusUnauthorized,
		Code:       ErrorCodeInvalidToken,
		Message:    "the access token is invalid or expired",
	}

	// ErrCheckUnavailable is deliberately vague. A failed orphan check must
	// not reveal whether the account exists.
	ErrCheckUnavailable = &APIError{
		StatusCode: http.StatusServiceUnavailable,
		Code:       ErrorCodeCheckUnavailable,
		Message:    "account verification is temporarily unavailable, try again shortly",
	}

	ErrServerError = &APIError{
		StatusCode: http.StatusInternalServerError,
		Code:       ErrorCodeServerError,
		Message:    "an internal error occurred",
	}
)
