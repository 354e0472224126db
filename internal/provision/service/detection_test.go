package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lexorahq/provision/internal/provision/domain"
	"github.com/lexorahq/provision/internal/provision/store"
	"github.com/lexorahq/provision/pkg/backoffx"
	"github.com/lexorahq/provision/pkg/idx"
)

// stubStore wires stub repos into the Store interface. Everything the
// detection path does not touch panics via the embedded nil interface.
type stubStore struct {
	store.Store
	users    *stubUsers
	accounts *stubAccounts
}

func (s *stubStore) Users() store.Users       { return s.users }
func (s *stubStore) Accounts() store.Accounts { return s.accounts }

type stubUsers struct {
	store.Users
	get   func(ctx context.Context, id string) (domain.User, error)
	calls atomic.Int64
}

func (u *stubUsers) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	u.calls.Add(1)
	return u.get(ctx, id)
}

type stubAccounts struct {
	store.Accounts
	get   func(ctx context.Context, id string) (domain.Account, error)
	calls atomic.Int64
}

func (a *stubAccounts) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	a.calls.Add(1)
	return a.get(ctx, id)
}

// fastBackoff keeps retry tests quick.
var fastBackoff = backoffx.Doubling{Base: time.Millisecond, Cap: time.Millisecond}

func linkedUser(accountID string) domain.User {
	role := domain.RoleOwner
	return domain.User{
		ID:        "identity-1",
		AccountID: &accountID,
		Role:      &role,
	}
}

func TestDetectValidLinkage(t *testing.T) {
	t.Parallel()

	st := &stubStore{
		users: &stubUsers{get: func(context.Context, string) (domain.User, error) {
			return linkedUser("acct-1"), nil
		}},
		accounts: &stubAccounts{get: func(context.Context, string) (domain.Account, error) {
			return domain.Account{ID: "acct-1"}, nil
		}},
	}
	svc := &DetectionService{Store: st, Backoff: fastBackoff}

	det, err := svc.Detect(context.Background(), "identity-1", idx.New())
	require.NoError(t, err)
	require.True(t, det.HasValidAccount)
	require.False(t, det.Orphaned)
	require.Equal(t, "acct-1", det.AccountID)
	require.Equal(t, domain.RoleOwner, det.Role)
	require.Equal(t, 1, det.Metrics.Attempts)
}

func TestDetectClassifiesOrphans(t *testing.T) {
	t.Parallel()

	deletedAt := time.Now().UTC()

	tests := []struct {
		name     string
		users    func(context.Context, string) (domain.User, error)
		accounts func(context.Context, string) (domain.Account, error)
		want     domain.OrphanType
	}{
		{
			name: "missing user row",
			users: func(context.Context, string) (domain.User, error) {
				return domain.User{}, store.ErrNotFound
			},
			want: domain.OrphanNoUserRecord,
		},
		{
			name: "soft deleted user",
			users: func(context.Context, string) (domain.User, error) {
				u := linkedUser("acct-1")
				u.DeletedAt = &deletedAt
				return u, nil
			},
			want: domain.OrphanDeletedUser,
		},
		{
			name: "no account linkage",
			users: func(context.Context, string) (domain.User, error) {
				return domain.User{ID: "identity-1"}, nil
			},
			want: domain.OrphanNullAccountID,
		},
		{
			// Unlinked wins over soft-deleted: the linkage never completed,
			// so the tombstone on the same row does not reclassify it.
			name: "soft deleted user without linkage",
			users: func(context.Context, string) (domain.User, error) {
				return domain.User{ID: "identity-1", DeletedAt: &deletedAt}, nil
			},
			want: domain.OrphanNullAccountID,
		},
		{
			name: "account row gone",
			users: func(context.Context, string) (domain.User, error) {
				return linkedUser("acct-1"), nil
			},
			accounts: func(context.Context, string) (domain.Account, error) {
				return domain.Account{}, store.ErrNotFound
			},
			want: domain.OrphanDeletedAccount,
		},
		{
			name: "account soft deleted",
			users: func(context.Context, string) (domain.User, error) {
				return linkedUser("acct-1"), nil
			},
			accounts: func(context.Context, string) (domain.Account, error) {
				return domain.Account{ID: "acct-1", DeletedAt: &deletedAt}, nil
			},
			want: domain.OrphanDeletedAccount,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			st := &stubStore{
				users:    &stubUsers{get: tc.users},
				accounts: &stubAccounts{get: tc.accounts},
			}
			svc := &DetectionService{Store: st, Backoff: fastBackoff}

			det, err := svc.Detect(context.Background(), "identity-1", idx.New())
			require.NoError(t, err)
			require.True(t, det.Orphaned)
			require.False(t, det.HasValidAccount)
			require.Equal(t, tc.want, det.OrphanType)
			require.Equal(t, 1, det.Metrics.Attempts)

			// The account row is only read when the user row links to one.
			require.EqualValues(t, 1, st.users.calls.Load())
			if tc.accounts != nil {
				require.EqualValues(t, 1, st.accounts.calls.Load())
			} else {
				require.EqualValues(t, 0, st.accounts.calls.Load())
			}
		})
	}
}

func TestDetectFailsClosedAfterExhaustedAttempts(t *testing.T) {
	t.Parallel()

	users := &stubUsers{get: func(context.Context, string) (domain.User, error) {
		return domain.User{}, errors.New("disk i/o error")
	}}
	svc := &DetectionService{
		Store:   &stubStore{users: users},
		Backoff: fastBackoff,
	}

	corrID := idx.New()
	_, err := svc.Detect(context.Background(), "identity-1", corrID)

	var detErr *domain.DetectionError
	require.ErrorAs(t, err, &detErr)
	require.Equal(t, 3, detErr.Metrics.Attempts)
	require.True(t, detErr.Metrics.Errored)
	require.Equal(t, corrID, detErr.CorrelationID)
	require.EqualValues(t, 3, users.calls.Load())
}

func TestDetectRecoversOnRetry(t *testing.T) {
	t.Parallel()

	var n atomic.Int64
	st := &stubStore{
		users: &stubUsers{get: func(context.Context, string) (domain.User, error) {
			if n.Add(1) == 1 {
				return domain.User{}, errors.New("database is locked")
			}
			return domain.User{}, store.ErrNotFound
		}},
	}
	svc := &DetectionService{Store: st, Backoff: fastBackoff}

	det, err := svc.Detect(context.Background(), "identity-1", idx.New())
	require.NoError(t, err)
	require.True(t, det.Orphaned)
	require.Equal(t, 2, det.Metrics.Attempts)
	require.True(t, det.Metrics.Errored)
}

func TestDetectAttemptTimeoutIsSharedAcrossQueries(t *testing.T) {
	t.Parallel()

	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}

	t.Run("user query exceeds budget", func(t *testing.T) {
		t.Parallel()

		st := &stubStore{
			users: &stubUsers{get: func(ctx context.Context, _ string) (domain.User, error) {
				return domain.User{}, slow(ctx)
			}},
		}
		svc := &DetectionService{
			Store:             st,
			PerAttemptTimeout: 10 * time.Millisecond,
			Backoff:           fastBackoff,
		}

		_, err := svc.Detect(context.Background(), "identity-1", idx.New())

		var detErr *domain.DetectionError
		require.ErrorAs(t, err, &detErr)
		require.True(t, detErr.Metrics.TimedOut)
		require.Equal(t, 3, detErr.Metrics.Attempts)
	})

	t.Run("account query inherits remaining budget", func(t *testing.T) {
		t.Parallel()

		accounts := &stubAccounts{get: func(ctx context.Context, _ string) (domain.Account, error) {
			return domain.Account{}, slow(ctx)
		}}
		st := &stubStore{
			users: &stubUsers{get: func(context.Context, string) (domain.User, error) {
				return linkedUser("acct-1"), nil
			}},
			accounts: accounts,
		}
		svc := &DetectionService{
			Store:             st,
			MaxAttempts:       2,
			PerAttemptTimeout: 10 * time.Millisecond,
			Backoff:           fastBackoff,
		}

		_, err := svc.Detect(context.Background(), "identity-1", idx.New())

		var detErr *domain.DetectionError
		require.ErrorAs(t, err, &detErr)
		require.True(t, detErr.Metrics.TimedOut)
		require.EqualValues(t, 2, accounts.calls.Load())
	})
}

func TestDetectStopsWhenCallerCancels(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	users := &stubUsers{get: func(context.Context, string) (domain.User, error) {
		cancel()
		return domain.User{}, errors.New("transient")
	}}
	svc := &DetectionService{
		Store:   &stubStore{users: users},
		Backoff: backoffx.Doubling{Base: time.Minute, Cap: time.Minute},
	}

	_, err := svc.Detect(ctx, "identity-1", idx.New())

	var detErr *domain.DetectionError
	require.ErrorAs(t, err, &detErr)
	require.EqualValues(t, 1, users.calls.Load())
}
