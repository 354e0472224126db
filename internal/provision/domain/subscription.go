package domain

import "time"

const (
	PlanTrial = "trial"

	SubscriptionActive = "active"
)

// Subscription is the billing row created together with a new account. Every
// fresh account starts on an active trial.
type Subscription struct {
	ID          string
	AccountID   string
	Plan        string
	Status      string
	TrialEndsAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
