package domain

import (
	"strings"

	"github.com/lexorahq/provision/pkg/idx"
)

// Phase is the registration state machine's current state.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseSigningUp            Phase = "signingUp"
	PhaseAwaitingVerification Phase = "awaitingVerification"
	PhaseVerifying            Phase = "verifying"
	PhasePersisting           Phase = "persisting"
	PhaseSucceeded            Phase = "succeeded"
	PhaseFailed               Phase = "failed"
)

// Terminal reports whether the phase holds a final result or error.
func (p Phase) Terminal() bool {
	return p == PhaseSucceeded || p == PhaseFailed
}

// InFlight reports whether an attempt is actively progressing. Awaiting
// verification counts: the poll timer owns the next transition.
func (p Phase) InFlight() bool {
	switch p {
	case PhaseSigningUp, PhaseAwaitingVerification, PhaseVerifying, PhasePersisting:
		return true
	}
	return false
}

// RegistrationPayload is the normalized submission input.
type RegistrationPayload struct {
	CompanyName  string `json:"company_name"`
	CompanyEmail string `json:"company_email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Password     string `json:"-"`
}

// Normalize trims whitespace and lowercases the email fields. Submission
// always works on the normalized form.
func (p RegistrationPayload) Normalize() RegistrationPayload {
	return RegistrationPayload{
		CompanyName:  strings.TrimSpace(p.CompanyName),
		CompanyEmail: strings.ToLower(strings.TrimSpace(p.CompanyEmail)),
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		Email:        strings.ToLower(strings.TrimSpace(p.Email)),
		Password:     p.Password,
	}
}

// ProvisionIDs are the identifiers the atomic create call must return.
// All three are required; partial presence is a backend contract violation.
type ProvisionIDs struct {
	AccountID      string `json:"account_id"`
	UserID         string `json:"user_id"`
	SubscriptionID string `json:"subscription_id"`
}

func (p ProvisionIDs) Complete() bool {
	return p.AccountID != "" && p.UserID != "" && p.SubscriptionID != ""
}

// ErrorCode is the closed classification of registration failures. Handling
// switches over these codes; raw provider messages are kept for logs only.
type ErrorCode string

const (
	ErrCodeAlreadyExists      ErrorCode = "already-exists"
	ErrCodeWeakPassword       ErrorCode = "weak-password"
	ErrCodeNotConfirmed       ErrorCode = "not-confirmed"
	ErrCodeInvalidCredentials ErrorCode = "invalid-credentials"
	ErrCodeNetwork            ErrorCode = "network"
	ErrCodePrecondition       ErrorCode = "precondition-failed"
	ErrCodeContractViolation  ErrorCode = "contract-violation"
	ErrCodeUnclassified       ErrorCode = "unclassified"
)

// RegistrationError is a classified, user-presentable failure. Raw carries
// the unredacted provider/backend message for logs and is never surfaced.
type RegistrationError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Raw     string    `json:"-"`
}

func (e *RegistrationError) Error() string { return string(e.Code) + ": " + e.Message }

// RegistrationState is the read-only snapshot handed to the presentation
// layer.
type RegistrationState struct {
	Phase     Phase                `json:"phase"`
	AttemptID idx.ID               `json:"attempt_id,omitempty"`
	Payload   *RegistrationPayload `json:"payload,omitempty"`
	Error     *RegistrationError   `json:"error,omitempty"`
	Result    *ProvisionIDs        `json:"result,omitempty"`
}
