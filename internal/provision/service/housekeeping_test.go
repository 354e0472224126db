package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lexorahq/provision/internal/provision/store"
	"github.com/lexorahq/provision/internal/provision/store/drivers/sqlite"
	"github.com/lexorahq/provision/pkg/idx"
)

func newHousekeepingStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestHousekeepingPurgesExpiredSoftDeletes(t *testing.T) {
	t.Parallel()

	st := newHousekeepingStore(t)
	ctx := context.Background()

	ids, err := st.CreateAccountWithAdmin(ctx, store.CreateAccountParams{
		IdentityID:    "identity-1",
		CompanyName:   "Acme",
		CompanyEmail:  "owner@acme.test",
		FirstName:     "Ada",
		LastName:      "Lovelace",
		CorrelationID: idx.New(),
	})
	require.NoError(t, err)
	require.NoError(t, st.Users().SoftDeleteUser(ctx, ids.UserID))
	require.NoError(t, st.Accounts().SoftDeleteAccount(ctx, ids.AccountID))

	svc := NewHousekeepingService(st, nil, nil, time.Hour)
	svc.Retention = -time.Second // everything soft-deleted is already expired
	svc.sweep()

	_, err = st.Users().GetUserByID(ctx, ids.UserID)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Accounts().GetAccountByID(ctx, ids.AccountID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestHousekeepingKeepsRecentSoftDeletes(t *testing.T) {
	t.Parallel()

	st := newHousekeepingStore(t)
	ctx := context.Background()

	ids, err := st.CreateAccountWithAdmin(ctx, store.CreateAccountParams{
		IdentityID:    "identity-2",
		CompanyName:   "Acme",
		CompanyEmail:  "owner@acme.test",
		FirstName:     "Ada",
		LastName:      "Lovelace",
		CorrelationID: idx.New(),
	})
	require.NoError(t, err)
	require.NoError(t, st.Users().SoftDeleteUser(ctx, ids.UserID))

	svc := NewHousekeepingService(st, nil, nil, time.Hour)
	svc.sweep()

	// Inside the retention window the tombstone must survive: detection
	// still needs it to classify the orphan.
	u, err := st.Users().GetUserByID(ctx, ids.UserID)
	require.NoError(t, err)
	require.True(t, u.Deleted())
}

func TestHousekeepingEvictsFinishedRegistrations(t *testing.T) {
	t.Parallel()

	st := newHousekeepingStore(t)
	reg := NewRegistrationRegistry(nil, nil, nil, nil, RegistrationConfig{})
	reg.Create()
	require.Equal(t, 1, reg.Len())

	svc := NewHousekeepingService(st, reg, nil, time.Hour)
	svc.RegistrationTTL = -time.Second
	svc.sweep()
	require.Equal(t, 0, reg.Len())
}

func TestHousekeepingStartStop(t *testing.T) {
	t.Parallel()

	st := newHousekeepingStore(t)
	svc := NewHousekeepingService(st, nil, nil, 10*time.Millisecond)
	svc.Start()
	time.Sleep(30 * time.Millisecond)
	svc.Stop()
}
