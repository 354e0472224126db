package domain

import "time"

// Account is one tenant row. Deletion is a soft-delete timestamp so user
// rows referencing the account keep their foreign key.
type Account struct {
	ID        string
	Name      string
	Email     string
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a Account) Deleted() bool { return a.DeletedAt != nil }
