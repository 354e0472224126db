package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/lexorahq/provision/internal/provision/domain"
	"github.com/lexorahq/provision/internal/provision/store"
	"github.com/lexorahq/provision/pkg/idx"
)

// CreateAccountWithAdmin creates the account, its owner user and the trial
// subscription in one transaction.
func (s *Store) CreateAccountWithAdmin(ctx context.Context, p store.CreateAccountParams) (domain.ProvisionIDs, error) {
	var ids domain.ProvisionIDs
	err := s.WithTx(ctx, func(tx store.Tx) error {
		created, err := provisionAccount(ctx, tx, p)
		if err != nil {
			return err
		}
		ids = created
		return nil
	})
	if err != nil {
		return domain.ProvisionIDs{}, err
	}
	return ids, nil
}

// CreateAccountWithAdmin on a transaction joins the surrounding transaction.
func (t *txStore) CreateAccountWithAdmin(ctx context.Context, p store.CreateAccountParams) (domain.ProvisionIDs, error) {
	return provisionAccount(ctx, t, p)
}

func provisionAccount(ctx context.Context, s store.Store, p store.CreateAccountParams) (domain.ProvisionIDs, error) {
	if p.IdentityID == "" {
		return domain.ProvisionIDs{}, fmt.Errorf("store: identity id is required")
	}

	trial := p.TrialPeriod
	if trial <= 0 {
		trial = store.DefaultTrialPeriod
	}

	accountID := idx.New().String()
	subscriptionID := idx.New().String()
	ownerRole := domain.RoleOwner

	account := domain.Account{
		ID:    accountID,
		Name:  p.CompanyName,
		Email: p.CompanyEmail,
	}
	if err := s.Accounts().CreateAccount(ctx, account); err != nil {
		return domain.ProvisionIDs{}, fmt.Errorf("create account: %w", err)
	}

	// The user row is keyed by the identity id so detection can join the
	// provider's view of the world onto ours.
	owner := domain.User{
		ID:        p.IdentityID,
		Email:     p.CompanyEmail,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		AccountID: &accountID,
		Role:      &ownerRole,
	}
	if err := s.Users().CreateUser(ctx, owner); err != nil {
		return domain.ProvisionIDs{}, fmt.Errorf("create owner user: %w", err)
	}

	subscription := domain.Subscription{
		ID:          subscriptionID,
		AccountID:   accountID,
		Plan:        domain.PlanTrial,
		Status:      domain.SubscriptionActive,
		TrialEndsAt: time.Now().UTC().Add(trial),
	}
	if err := s.Subscriptions().CreateSubscription(ctx, subscription); err != nil {
		return domain.ProvisionIDs{}, fmt.Errorf("create trial subscription: %w", err)
	}

	return domain.ProvisionIDs{
		AccountID:      accountID,
		UserID:         p.IdentityID,
		SubscriptionID: subscriptionID,
	}, nil
}
