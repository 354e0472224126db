// Package identity is the client for the external identity provider. The
// provider owns credentials and email confirmation; this service only
// consumes sign-up, sign-in and the current-user lookup.
package identity

import "time"

// Identity is the provider's view of one signed-up human.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`

	// ConfirmedAt is nil until the email is confirmed. The provider sets it
	// exactly once.
	ConfirmedAt *time.Time `json:"email_confirmed_at"`
}

func (i Identity) Confirmed() bool { return i.ConfirmedAt != nil }

// Session is a provider-issued session: an access token plus the identity
// it belongs to.
type Session struct {
	AccessToken string   `json:"access_token"`
	Identity    Identity `json:"user"`
}
