package identity

import (
	"fmt"
	"strings"

	"github.com/lexorahq/provision/internal/provision/domain"
)

// Error is a classified provider failure. Code is always one of the closed
// domain.ErrorCode set; Raw keeps the provider's message for logs only.
type Error struct {
	Code       domain.ErrorCode
	HTTPStatus int
	Raw        string
}

func (e *Error) Error() string {
	return fmt.Sprintf("identity: %s (http %d)", e.Code, e.HTTPStatus)
}

// errorBody is the provider's wire error shape. Older deployments only set
// msg; newer ones carry a stable error_code.
type errorBody struct {
	Code             string `json:"error_code"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (b errorBody) raw() string {
	for _, s := range []string{b.Msg, b.ErrorDescription, b.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// classify maps known provider error signatures onto the closed taxonomy.
// Anything unrecognized becomes unclassified, raw message retained.
func classify(status int, body errorBody) *Error {
	code := domain.ErrCodeUnclassified

	switch body.Code {
	case "user_already_exists", "email_exists":
		code = domain.ErrCodeAlreadyExists
	case "weak_password":
		code = domain.ErrCodeWeakPassword
	case "email_not_confirmed":
		code = domain.ErrCodeNotConfirmed
	case "invalid_credentials":
		code = domain.ErrCodeInvalidCredentials
	}

	// Fallback for providers that only send a human-readable message.
	if code == domain.ErrCodeUnclassified {
		msg := strings.ToLower(body.raw())
		switch {
		case strings.Contains(msg, "already registered"), strings.Contains(msg, "already exists"):
			code = domain.ErrCodeAlreadyExists
		case strings.Contains(msg, "password should be"), strings.Contains(msg, "weak password"):
			code = domain.ErrCodeWeakPassword
		case strings.Contains(msg, "not confirmed"):
			code = domain.ErrCodeNotConfirmed
		case strings.Contains(msg, "invalid login credentials"):
			code = domain.ErrCodeInvalidCredentials
		}
	}

	return &Error{Code: code, HTTPStatus: status, Raw: body.raw()}
}

// networkError wraps transport-level failures (DNS, refused, timeout).
func networkError(err error) *Error {
	return &Error{Code: domain.ErrCodeNetwork, Raw: err.Error()}
}
