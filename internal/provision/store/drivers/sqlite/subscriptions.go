package sqlite

import (
	"context"
	"time"

	"github.com/lexorahq/provision/internal/provision/domain"
)

type subscriptionsRepo struct {
	q queryer
}

func (r *subscriptionsRepo) GetSubscriptionByAccountID(ctx context.Context, accountID string) (domain.Subscription, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, account_id, plan, status, trial_ends_at, created_at, updated_at
		 FROM subscriptions WHERE account_id = ?`, accountID)

	var s domain.Subscription
	err := row.Scan(&s.ID, &s.AccountID, &s.Plan, &s.Status, &s.TrialEndsAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.Subscription{}, mapNotFound(err)
	}
	return s, nil
}

func (r *subscriptionsRepo) CreateSubscription(ctx context.Context, s domain.Subscription) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO subscriptions (id, account_id, plan, status, trial_ends_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.AccountID, s.Plan, s.Status, s.TrialEndsAt, now, now,
	)
	return mapConstraint(err)
}
