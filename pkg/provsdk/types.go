package provsdk

// SubmitRegistrationRequest is the body of POST /v1/registrations. The
// company email must match the administrator email; the server rejects the
// registration during persistence otherwise.
type SubmitRegistrationRequest struct {
	CompanyName  string `json:"company_name"`
	CompanyEmail string `json:"company_email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
}

// RegistrationError is the classified failure attached to a failed
// registration. Code is stable and safe to switch on; Message is
// user-presentable.
type RegistrationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ProvisionResult carries the identifiers of a successfully provisioned
// tenant. All three are always present on success.
type ProvisionResult struct {
	AccountID      string `json:"account_id"`
	UserID         string `json:"user_id"`
	SubscriptionID string `json:"subscription_id"`
}

// RegistrationResponse is the snapshot of one registration instance.
// Phase is one of: idle, signingUp, awaitingVerification, verifying,
// persisting, succeeded, failed.
type RegistrationResponse struct {
	ID        string             `json:"id"`
	Phase     string             `json:"phase"`
	AttemptID string             `json:"attempt_id,omitempty"`
	Error     *RegistrationError `json:"error,omitempty"`
	Result    *ProvisionResult   `json:"result,omitempty"`
}

// LoginCheckResponse is the outcome of POST /v1/login/check.
type LoginCheckResponse struct {
	// Status is "ok" when the identity has a valid account linkage and
	// "orphaned" when it does not.
	Status string `json:"status"`

	// AccountID and Role are set only when Status is "ok".
	AccountID string `json:"account_id,omitempty"`
	Role      string `json:"role,omitempty"`

	// OrphanType classifies the orphan when Status is "orphaned": one of
	// no-user-record, null-account-id, deleted-user, deleted-account.
	OrphanType string `json:"orphan_type,omitempty"`

	// CleanupInitiated reports whether the recovery workflow was asked to
	// start deleting the orphaned identity.
	CleanupInitiated bool `json:"cleanup_initiated,omitempty"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database string `json:"database"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// ErrorResponse is the wire shape of every API error. Details carries
// field-specific validation messages when Code is validation_error.
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}
