package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lexorahq/provision/internal/provision/domain"
	"github.com/lexorahq/provision/internal/provision/identity"
	"github.com/lexorahq/provision/internal/provision/store"
	"github.com/lexorahq/provision/pkg/idx"
)

type fakeProvider struct {
	signUp  func(email, password string) (identity.Identity, error)
	signIn  func(email, password string) (identity.Session, error)
	getUser func(token string) (identity.Identity, error)

	signUpCalls atomic.Int64
	signInCalls atomic.Int64
}

func (p *fakeProvider) SignUp(_ context.Context, email, password string, _ map[string]any) (identity.Identity, error) {
	p.signUpCalls.Add(1)
	return p.signUp(email, password)
}

func (p *fakeProvider) SignInWithPassword(_ context.Context, email, password string) (identity.Session, error) {
	p.signInCalls.Add(1)
	return p.signIn(email, password)
}

func (p *fakeProvider) GetUser(_ context.Context, token string) (identity.Identity, error) {
	if p.getUser == nil {
		return identity.Identity{}, &identity.Error{Code: domain.ErrCodeUnclassified}
	}
	return p.getUser(token)
}

type fakeCreator struct {
	create func(p store.CreateAccountParams) (domain.ProvisionIDs, error)
	calls  atomic.Int64
}

func (c *fakeCreator) CreateAccountWithAdmin(_ context.Context, p store.CreateAccountParams) (domain.ProvisionIDs, error) {
	c.calls.Add(1)
	return c.create(p)
}

func fullIDs(identityID string) domain.ProvisionIDs {
	return domain.ProvisionIDs{
		AccountID:      "acct-1",
		UserID:         identityID,
		SubscriptionID: "sub-1",
	}
}

func confirmedIdentity(email string) identity.Identity {
	now := time.Now().UTC()
	return identity.Identity{ID: "identity-1", Email: email, ConfirmedAt: &now}
}

func testPayload() domain.RegistrationPayload {
	return domain.RegistrationPayload{
		CompanyName:  "Acme Pty Ltd",
		CompanyEmail: "owner@acme.test",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "Owner@Acme.Test",
		Password:     "correct horse battery staple",
	}
}

func newTestRegistration(provider IdentityProvider, creator AccountCreator) *Registration {
	cfg := RegistrationConfig{
		PollBase:      5 * time.Millisecond,
		PollCap:       20 * time.Millisecond,
		ManualMinWait: time.Hour,
	}
	return NewRegistration(idx.New(), provider, creator, nil, nil, cfg)
}

func waitForPhase(t *testing.T, r *Registration, want domain.Phase) domain.RegistrationState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s := r.State()
		if s.Phase == want {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("phase never reached %s, stuck at %s", want, s.Phase)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestRegistrationHappyPath(t *testing.T) {
	t.Parallel()

	var confirmed atomic.Bool
	provider := &fakeProvider{
		signUp: func(email, _ string) (identity.Identity, error) {
			require.Equal(t, "owner@acme.test", email)
			return identity.Identity{ID: "identity-1", Email: email}, nil
		},
		signIn: func(email, _ string) (identity.Session, error) {
			if !confirmed.Load() {
				confirmed.Store(true)
				return identity.Session{}, &identity.Error{Code: domain.ErrCodeNotConfirmed}
			}
			return identity.Session{AccessToken: "token-1", Identity: confirmedIdentity(email)}, nil
		},
		getUser: func(token string) (identity.Identity, error) {
			require.Equal(t, "token-1", token)
			return confirmedIdentity("owner@acme.test"), nil
		},
	}
	creator := &fakeCreator{create: func(p store.CreateAccountParams) (domain.ProvisionIDs, error) {
		require.Equal(t, "identity-1", p.IdentityID)
		require.Equal(t, "Acme Pty Ltd", p.CompanyName)
		return fullIDs(p.IdentityID), nil
	}}

	r := newTestRegistration(provider, creator)
	snap := r.Submit(testPayload())
	require.Equal(t, domain.PhaseSigningUp, snap.Phase)
	require.False(t, snap.AttemptID.IsZero())

	final := waitForPhase(t, r, domain.PhaseSucceeded)
	require.Nil(t, final.Error)
	require.NotNil(t, final.Result)
	require.True(t, final.Result.Complete())
	require.EqualValues(t, 1, creator.calls.Load())
}

func TestSubmitWhileInFlightIsNoOp(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	provider := &fakeProvider{
		signUp: func(email, _ string) (identity.Identity, error) {
			<-release
			return confirmedIdentity(email), nil
		},
		signIn: func(email, _ string) (identity.Session, error) {
			return identity.Session{AccessToken: "t", Identity: confirmedIdentity(email)}, nil
		},
		getUser: func(string) (identity.Identity, error) {
			return confirmedIdentity("owner@acme.test"), nil
		},
	}
	creator := &fakeCreator{create: func(p store.CreateAccountParams) (domain.ProvisionIDs, error) {
		return fullIDs(p.IdentityID), nil
	}}

	r := newTestRegistration(provider, creator)
	first := r.Submit(testPayload())

	second := r.Submit(testPayload())
	require.Equal(t, first.AttemptID, second.AttemptID)
	require.EqualValues(t, 1, provider.signUpCalls.Load())

	close(release)
	waitForPhase(t, r, domain.PhaseSucceeded)
	require.EqualValues(t, 1, provider.signUpCalls.Load())
}

func TestSignUpConflictResumesExistingIdentity(t *testing.T) {
	t.Parallel()

	t.Run("unconfirmed identity parks in verification wait", func(t *testing.T) {
		t.Parallel()

		provider := &fakeProvider{
			signUp: func(string, string) (identity.Identity, error) {
				return identity.Identity{}, &identity.Error{Code: domain.ErrCodeAlreadyExists}
			},
			signIn: func(string, string) (identity.Session, error) {
				return identity.Session{}, &identity.Error{Code: domain.ErrCodeNotConfirmed}
			},
		}
		creator := &fakeCreator{create: func(p store.CreateAccountParams) (domain.ProvisionIDs, error) {
			return fullIDs(p.IdentityID), nil
		}}

		cfg := RegistrationConfig{PollBase: time.Hour, PollCap: time.Hour, ManualMinWait: time.Hour}
		r := NewRegistration(idx.New(), provider, creator, nil, nil, cfg)
		r.Submit(testPayload())

		waitForPhase(t, r, domain.PhaseAwaitingVerification)
		require.EqualValues(t, 0, creator.calls.Load())
	})

	t.Run("confirmed identity persists straight away", func(t *testing.T) {
		t.Parallel()

		provider := &fakeProvider{
			signUp: func(string, string) (identity.Identity, error) {
				return identity.Identity{}, &identity.Error{Code: domain.ErrCodeAlreadyExists}
			},
			signIn: func(email, _ string) (identity.Session, error) {
				return identity.Session{AccessToken: "t", Identity: confirmedIdentity(email)}, nil
			},
		}
		creator := &fakeCreator{create: func(p store.CreateAccountParams) (domain.ProvisionIDs, error) {
			return fullIDs(p.IdentityID), nil
		}}

		r := newTestRegistration(provider, creator)
		r.Submit(testPayload())

		final := waitForPhase(t, r, domain.PhaseSucceeded)
		require.True(t, final.Result.Complete())
		require.EqualValues(t, 1, creator.calls.Load())
	})
}

func TestWeakPasswordFailsTerminally(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		signUp: func(string, string) (identity.Identity, error) {
			return identity.Identity{}, &identity.Error{
				Code: domain.ErrCodeWeakPassword,
				Raw:  "Password should be at least 8 characters",
			}
		},
	}
	r := newTestRegistration(provider, &fakeCreator{})
	r.Submit(testPayload())

	final := waitForPhase(t, r, domain.PhaseFailed)
	require.NotNil(t, final.Error)
	require.Equal(t, domain.ErrCodeWeakPassword, final.Error.Code)
	require.NotContains(t, final.Error.Message, "Password should be")
}

func TestIncompleteProvisioningIsContractViolation(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		signUp: func(email, _ string) (identity.Identity, error) {
			return confirmedIdentity(email), nil
		},
		signIn: func(email, _ string) (identity.Session, error) {
			return identity.Session{AccessToken: "t", Identity: confirmedIdentity(email)}, nil
		},
		getUser: func(string) (identity.Identity, error) {
			return confirmedIdentity("owner@acme.test"), nil
		},
	}
	creator := &fakeCreator{create: func(p store.CreateAccountParams) (domain.ProvisionIDs, error) {
		ids := fullIDs(p.IdentityID)
		ids.SubscriptionID = ""
		return ids, nil
	}}

	r := newTestRegistration(provider, creator)
	r.Submit(testPayload())

	final := waitForPhase(t, r, domain.PhaseFailed)
	require.Equal(t, domain.ErrCodeContractViolation, final.Error.Code)
	require.Nil(t, final.Result)
}

func TestCompanyEmailMismatchFailsBeforePersisting(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		signUp: func(email, _ string) (identity.Identity, error) {
			return confirmedIdentity(email), nil
		},
		signIn: func(email, _ string) (identity.Session, error) {
			return identity.Session{AccessToken: "t", Identity: confirmedIdentity(email)}, nil
		},
		getUser: func(string) (identity.Identity, error) {
			return confirmedIdentity("someone.else@acme.test"), nil
		},
	}
	creator := &fakeCreator{create: func(p store.CreateAccountParams) (domain.ProvisionIDs, error) {
		return fullIDs(p.IdentityID), nil
	}}

	payload := testPayload()
	payload.CompanyEmail = "billing@acme.test"

	r := newTestRegistration(provider, creator)
	r.Submit(payload)

	final := waitForPhase(t, r, domain.PhaseFailed)
	require.Equal(t, domain.ErrCodePrecondition, final.Error.Code)
	require.EqualValues(t, 0, creator.calls.Load())
}

func TestReset(t *testing.T) {
	t.Parallel()

	t.Run("clears a failed attempt for a fresh submit", func(t *testing.T) {
		t.Parallel()

		provider := &fakeProvider{
			signUp: func(string, string) (identity.Identity, error) {
				return identity.Identity{}, &identity.Error{Code: domain.ErrCodeWeakPassword}
			},
		}
		r := newTestRegistration(provider, &fakeCreator{})
		r.Submit(testPayload())
		waitForPhase(t, r, domain.PhaseFailed)

		snap := r.Reset()
		require.Equal(t, domain.PhaseIdle, snap.Phase)
		require.Nil(t, snap.Error)
		require.True(t, snap.AttemptID.IsZero())

		r.Submit(testPayload())
		waitForPhase(t, r, domain.PhaseFailed)
		require.EqualValues(t, 2, provider.signUpCalls.Load())
	})

	t.Run("refused while persisting", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		provider := &fakeProvider{
			signUp: func(email, _ string) (identity.Identity, error) {
				return confirmedIdentity(email), nil
			},
			signIn: func(email, _ string) (identity.Session, error) {
				return identity.Session{AccessToken: "t", Identity: confirmedIdentity(email)}, nil
			},
			getUser: func(string) (identity.Identity, error) {
				return confirmedIdentity("owner@acme.test"), nil
			},
		}
		creator := &fakeCreator{create: func(p store.CreateAccountParams) (domain.ProvisionIDs, error) {
			<-release
			return fullIDs(p.IdentityID), nil
		}}

		r := newTestRegistration(provider, creator)
		r.Submit(testPayload())
		waitForPhase(t, r, domain.PhasePersisting)

		snap := r.Reset()
		require.Equal(t, domain.PhasePersisting, snap.Phase)

		close(release)
		final := waitForPhase(t, r, domain.PhaseSucceeded)
		require.True(t, final.Result.Complete())
	})
}

func TestManualConfirmationIsThrottled(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		signUp: func(email string, _ string) (identity.Identity, error) {
			return identity.Identity{ID: "identity-1", Email: email}, nil
		},
		signIn: func(string, string) (identity.Session, error) {
			return identity.Session{}, &identity.Error{Code: domain.ErrCodeNotConfirmed}
		},
	}
	cfg := RegistrationConfig{PollBase: time.Hour, PollCap: time.Hour, ManualMinWait: time.Hour}
	r := NewRegistration(idx.New(), provider, &fakeCreator{}, nil, nil, cfg)
	r.Submit(testPayload())
	waitForPhase(t, r, domain.PhaseAwaitingVerification)
	require.EqualValues(t, 0, provider.signInCalls.Load())

	r.ConfirmVerification()
	waitForPhase(t, r, domain.PhaseAwaitingVerification)
	require.EqualValues(t, 1, provider.signInCalls.Load())

	// Second manual check inside the window is absorbed.
	snap := r.ConfirmVerification()
	require.Equal(t, domain.PhaseAwaitingVerification, snap.Phase)
	time.Sleep(20 * time.Millisecond)
	require.EqualValues(t, 1, provider.signInCalls.Load())
}

func TestSupersededPollTickIsDiscarded(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	provider := &fakeProvider{
		signUp: func(email string, _ string) (identity.Identity, error) {
			return identity.Identity{ID: "identity-1", Email: email}, nil
		},
		signIn: func(string, string) (identity.Session, error) {
			<-gate
			return identity.Session{}, &identity.Error{Code: domain.ErrCodeNotConfirmed}
		},
	}
	cfg := RegistrationConfig{PollBase: time.Hour, PollCap: time.Hour, ManualMinWait: time.Hour}
	r := NewRegistration(idx.New(), provider, &fakeCreator{}, nil, nil, cfg)
	r.Submit(testPayload())
	snap := waitForPhase(t, r, domain.PhaseAwaitingVerification)

	// Manual check supersedes the armed poll and blocks inside sign-in.
	r.ConfirmVerification()
	deadline := time.Now().Add(2 * time.Second)
	for provider.signInCalls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("manual check never reached the provider")
		}
		time.Sleep(2 * time.Millisecond)
	}

	// The poll timer armed on submit carried generation 1. Were it to fire
	// now it must abort rather than issue a second concurrent sign-in.
	r.verificationTick(snap.AttemptID, 1)
	require.EqualValues(t, 1, provider.signInCalls.Load())

	close(gate)
	waitForPhase(t, r, domain.PhaseAwaitingVerification)
	require.EqualValues(t, 1, provider.signInCalls.Load())
}

func TestRegistryEviction(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{
		signUp: func(string, string) (identity.Identity, error) {
			return identity.Identity{}, &identity.Error{Code: domain.ErrCodeWeakPassword}
		},
	}
	reg := NewRegistrationRegistry(provider, &fakeCreator{}, nil, nil, RegistrationConfig{})

	finished := reg.Create()
	finished.Submit(testPayload())
	waitForPhase(t, finished, domain.PhaseFailed)

	idle := reg.Create()
	require.Equal(t, 2, reg.Len())

	got, ok := reg.Get(finished.ID)
	require.True(t, ok)
	require.Same(t, finished, got)

	n := reg.EvictFinishedBefore(time.Now().Add(time.Minute))
	require.Equal(t, 2, n)
	require.Equal(t, 0, reg.Len())

	_, ok = reg.Get(idle.ID)
	require.False(t, ok)
}
