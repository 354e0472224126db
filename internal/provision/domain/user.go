package domain

import "time"

// User is the business record for one identity. The row is keyed by the
// identity provider's id and is only ever created by the atomic
// account-provisioning call, never by detection.
//
// AccountID and Role are nullable: an identity that signed up but never
// completed provisioning has neither.
type User struct {
	ID        string // identity provider id
	Email     string
	FirstName string
	LastName  string
	AccountID *string
	Role      *Role
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) Deleted() bool { return u.DeletedAt != nil }
