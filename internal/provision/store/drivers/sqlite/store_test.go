package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/lexorahq/provision/internal/provision/domain"
	"github.com/lexorahq/provision/internal/provision/store"
	"github.com/lexorahq/provision/internal/provision/store/drivers/sqlite"
	"github.com/lexorahq/provision/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func TestCreateAccountWithAdmin(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	ids, err := st.CreateAccountWithAdmin(ctx, store.CreateAccountParams{
		IdentityID:    "identity-1",
		CompanyName:   "Acme Translations",
		CompanyEmail:  "owner@acme.example",
		FirstName:     "Ada",
		LastName:      "Lovelace",
		CorrelationID: idx.New(),
	})
	require.NoError(t, err)
	require.True(t, ids.Complete(), "all three identifiers must be returned")
	require.Equal(t, "identity-1", ids.UserID)

	account, err := st.Accounts().GetAccountByID(ctx, ids.AccountID)
	require.NoError(t, err)
	require.Equal(t, "Acme Translations", account.Name)
	require.False(t, account.Deleted())

	user, err := st.Users().GetUserByID(ctx, "identity-1")
	require.NoError(t, err)
	require.NotNil(t, user.AccountID)
	require.Equal(t, ids.AccountID, *user.AccountID)
	require.NotNil(t, user.Role)
	require.Equal(t, domain.RoleOwner, *user.Role)

	sub, err := st.Subscriptions().GetSubscriptionByAccountID(ctx, ids.AccountID)
	require.NoError(t, err)
	require.Equal(t, ids.SubscriptionID, sub.ID)
	require.Equal(t, domain.PlanTrial, sub.Plan)
	require.Equal(t, domain.SubscriptionActive, sub.Status)
	require.WithinDuration(t,
		time.Now().UTC().Add(store.DefaultTrialPeriod), sub.TrialEndsAt, time.Minute)
}

func TestCreateAccountWithAdminIsAtomic(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.CreateAccountWithAdmin(ctx, store.CreateAccountParams{
		IdentityID:   "identity-dup",
		CompanyName:  "First Co",
		CompanyEmail: "first@example.com",
	})
	require.NoError(t, err)

	// Same identity again: the user insert fails, and the already-inserted
	// account and subscription rows must roll back with it.
	_, err = st.CreateAccountWithAdmin(ctx, store.CreateAccountParams{
		IdentityID:   "identity-dup",
		CompanyName:  "Second Co",
		CompanyEmail: "second@example.com",
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	user, err := st.Users().GetUserByID(ctx, "identity-dup")
	require.NoError(t, err)

	account, err := st.Accounts().GetAccountByID(ctx, *user.AccountID)
	require.NoError(t, err)
	require.Equal(t, "First Co", account.Name, "first provisioning must survive unchanged")
}

func TestCreateAccountWithAdminRequiresIdentity(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.CreateAccountWithAdmin(ctx, store.CreateAccountParams{
		CompanyName:  "No Identity Inc",
		CompanyEmail: "noid@example.com",
	})
	require.Error(t, err)
}

func TestSoftDeletedRowsRemainReadable(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	ids, err := st.CreateAccountWithAdmin(ctx, store.CreateAccountParams{
		IdentityID:   "identity-2",
		CompanyName:  "Gone Soon",
		CompanyEmail: "gone@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, st.Accounts().SoftDeleteAccount(ctx, ids.AccountID))
	require.NoError(t, st.Users().SoftDeleteUser(ctx, "identity-2"))

	// Detection needs to observe the tombstones, not a missing row.
	account, err := st.Accounts().GetAccountByID(ctx, ids.AccountID)
	require.NoError(t, err)
	require.True(t, account.Deleted())

	user, err := st.Users().GetUserByID(ctx, "identity-2")
	require.NoError(t, err)
	require.True(t, user.Deleted())

	// Double soft-delete reports not found rather than silently restamping.
	require.ErrorIs(t, st.Accounts().SoftDeleteAccount(ctx, ids.AccountID), store.ErrNotFound)
}

func TestGetUserByIDNotFound(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	_, err := st.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPurgeDeletedBefore(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	ids, err := st.CreateAccountWithAdmin(ctx, store.CreateAccountParams{
		IdentityID:   "identity-3",
		CompanyName:  "Purge Me",
		CompanyEmail: "purge@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, st.Users().SoftDeleteUser(ctx, "identity-3"))
	require.NoError(t, st.Accounts().SoftDeleteAccount(ctx, ids.AccountID))

	// A cutoff in the past purges nothing.
	n, err := st.Users().PurgeDeletedBefore(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	require.Zero(t, n)

	cutoff := time.Now().UTC().Add(time.Hour)

	n, err = st.Users().PurgeDeletedBefore(ctx, cutoff)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = st.Accounts().PurgeDeletedBefore(ctx, cutoff)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = st.Users().GetUserByID(ctx, "identity-3")
	require.ErrorIs(t, err, store.ErrNotFound)
}
