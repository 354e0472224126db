package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lexorahq/provision/internal/provision/domain"
	"github.com/lexorahq/provision/internal/provision/identity"
	"github.com/lexorahq/provision/internal/provision/metrics"
	"github.com/lexorahq/provision/internal/provision/store"
	"github.com/lexorahq/provision/pkg/backoffx"
	"github.com/lexorahq/provision/pkg/idx"
	"github.com/lexorahq/provision/pkg/slogx"
)

// IdentityProvider is the slice of the identity client the registration
// flow depends on. *identity.Client satisfies it.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (identity.Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (identity.Session, error)
	GetUser(ctx context.Context, accessToken string) (identity.Identity, error)
}

// AccountCreator is the single store call the persisting phase needs.
// store.Store satisfies it.
type AccountCreator interface {
	CreateAccountWithAdmin(ctx context.Context, p store.CreateAccountParams) (domain.ProvisionIDs, error)
}

// RegistrationConfig tunes the verification poll and the manual re-check
// throttle. Zero values take the defaults.
type RegistrationConfig struct {
	PollBase      time.Duration // first poll delay, default 2s
	PollCap       time.Duration // poll delay ceiling, default 30s
	ManualMinWait time.Duration // min gap between manual re-checks, default 10s
}

func (c RegistrationConfig) pollBase() time.Duration {
	if c.PollBase > 0 {
		return c.PollBase
	}
	return 2 * time.Second
}

func (c RegistrationConfig) pollCap() time.Duration {
	if c.PollCap > 0 {
		return c.PollCap
	}
	return 30 * time.Second
}

func (c RegistrationConfig) manualMinWait() time.Duration {
	if c.ManualMinWait > 0 {
		return c.ManualMinWait
	}
	return 10 * time.Second
}

// Registration is one registration attempt's state machine. All transitions
// are serialized by mu; the poll timer holds at most one pending tick.
type Registration struct {
	ID idx.ID

	provider IdentityProvider
	creator  AccountCreator
	detector *DetectionService
	logger   *slog.Logger
	cfg      RegistrationConfig

	mu            sync.Mutex
	phase         domain.Phase
	attemptID     idx.ID
	payload       domain.RegistrationPayload
	identity      identity.Identity
	lastErr       *domain.RegistrationError
	result        *domain.ProvisionIDs
	pollTimer     *time.Timer
	pollAttempt   int
	tickGen       uint64
	manualLimiter *rate.Limiter
	touchedAt     time.Time
}

// NewRegistration builds an idle instance. Registry-issued id aside, it is
// self-contained; nothing here touches shared state.
func NewRegistration(id idx.ID, provider IdentityProvider, creator AccountCreator, detector *DetectionService, logger *slog.Logger, cfg RegistrationConfig) *Registration {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registration{
		ID:            id,
		provider:      provider,
		creator:       creator,
		detector:      detector,
		logger:        logger.With(slog.String("registration_id", id.String())),
		cfg:           cfg,
		phase:         domain.PhaseIdle,
		manualLimiter: rate.NewLimiter(rate.Every(cfg.manualMinWait()), 1),
		touchedAt:     time.Now().UTC(),
	}
}

// Submit starts a new attempt. While any attempt is in flight or finished
// the call is a no-op and returns the current snapshot; Reset first to try
// again.
func (r *Registration) Submit(payload domain.RegistrationPayload) domain.RegistrationState {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.touchedAt = time.Now().UTC()
	if r.phase != domain.PhaseIdle {
		r.logger.Debug("submit ignored", slog.String("phase", string(r.phase)))
		return r.snapshotLocked()
	}

	r.attemptID = idx.New()
	r.payload = payload.Normalize()
	r.lastErr = nil
	r.result = nil
	r.identity = identity.Identity{}
	r.pollAttempt = 0
	r.setPhaseLocked(domain.PhaseSigningUp)

	go r.runSignUp(r.attemptID, r.payload)
	return r.snapshotLocked()
}

// ConfirmVerification forces an immediate confirmation re-check while in
// awaitingVerification. Manual calls are throttled; absorbed calls log and
// return the unchanged snapshot.
func (r *Registration) ConfirmVerification() domain.RegistrationState {
	r.mu.Lock()

	r.touchedAt = time.Now().UTC()
	if r.phase != domain.PhaseAwaitingVerification {
		defer r.mu.Unlock()
		return r.snapshotLocked()
	}
	if !r.manualLimiter.Allow() {
		r.logger.Debug("manual confirmation check throttled")
		defer r.mu.Unlock()
		return r.snapshotLocked()
	}
	if r.pollTimer != nil {
		// Stop may report the timer already fired; bumping the generation
		// below invalidates that in-flight tick either way.
		r.pollTimer.Stop()
		r.pollTimer = nil
	}
	r.tickGen++
	gen := r.tickGen
	attemptID := r.attemptID
	snap := r.snapshotLocked()
	r.mu.Unlock()

	go r.verificationTick(attemptID, gen)
	return snap
}

// Reset returns the machine to idle so a fresh Submit can run. It refuses
// while sign-up, an active check or persistence is executing; a pending
// verification wait may be abandoned.
func (r *Registration) Reset() domain.RegistrationState {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.touchedAt = time.Now().UTC()
	switch r.phase {
	case domain.PhaseSigningUp, domain.PhaseVerifying, domain.PhasePersisting:
		r.logger.Debug("reset refused", slog.String("phase", string(r.phase)))
		return r.snapshotLocked()
	}

	if r.pollTimer != nil {
		r.pollTimer.Stop()
		r.pollTimer = nil
	}
	r.attemptID = ""
	r.payload = domain.RegistrationPayload{}
	r.identity = identity.Identity{}
	r.lastErr = nil
	r.result = nil
	r.pollAttempt = 0
	r.setPhaseLocked(domain.PhaseIdle)
	return r.snapshotLocked()
}

// State returns the current snapshot.
func (r *Registration) State() domain.RegistrationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Finished reports whether the instance is idle or terminal and has not
// been touched since cutoff. Used by housekeeping eviction.
func (r *Registration) Finished(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (r.phase == domain.PhaseIdle || r.phase.Terminal()) && r.touchedAt.Before(cutoff)
}

// teardown stops the poll timer. Safe to call at any time.
func (r *Registration) teardown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pollTimer != nil {
		r.pollTimer.Stop()
		r.pollTimer = nil
	}
}

func (r *Registration) snapshotLocked() domain.RegistrationState {
	s := domain.RegistrationState{
		Phase:     r.phase,
		AttemptID: r.attemptID,
		Error:     r.lastErr,
		Result:    r.result,
	}
	if r.phase.InFlight() || r.phase.Terminal() {
		p := r.payload
		s.Payload = &p
	}
	return s
}

func (r *Registration) setPhaseLocked(phase domain.Phase) {
	r.phase = phase
	metrics.RegistrationTransitions.WithLabelValues(string(phase)).Inc()
}

// opCtx builds the context for async work: a fresh root carrying the
// instance logger and the attempt id as correlation id.
func (r *Registration) opCtx(attemptID idx.ID) context.Context {
	ctx := slogx.WithContext(context.Background(), r.logger)
	return slogx.WithCorrelationID(ctx, attemptID)
}

func (r *Registration) runSignUp(attemptID idx.ID, payload domain.RegistrationPayload) {
	ctx := r.opCtx(attemptID)
	log := r.logger.With(slog.String("corr_id", attemptID.String()))

	id, err := r.provider.SignUp(ctx, payload.Email, payload.Password, map[string]any{
		"first_name":   payload.FirstName,
		"last_name":    payload.LastName,
		"company_name": payload.CompanyName,
	})
	if err != nil {
		regErr := asRegistrationError(err)
		if regErr.Code == domain.ErrCodeAlreadyExists {
			// The identity may be a leftover from an interrupted run. Try to
			// resume it with the submitted credentials.
			log.Info("identity already exists, attempting resume")
			r.resumeExisting(ctx, attemptID, payload)
			return
		}
		r.fail(attemptID, regErr)
		return
	}

	r.mu.Lock()
	if r.phase != domain.PhaseSigningUp || r.attemptID != attemptID {
		r.mu.Unlock()
		return
	}
	r.identity = id
	if id.Confirmed() {
		// Auto-confirm deployments skip the verification wait entirely.
		r.setPhaseLocked(domain.PhaseVerifying)
		r.tickGen++
		gen := r.tickGen
		r.mu.Unlock()
		go r.verificationTick(attemptID, gen)
		return
	}
	r.setPhaseLocked(domain.PhaseAwaitingVerification)
	r.schedulePollLocked(attemptID)
	r.mu.Unlock()

	log.Info("sign-up accepted, awaiting email verification",
		slog.String("identity_id", id.ID),
	)
}

// resumeExisting handles sign-up against an email the provider already
// knows. A successful password sign-in adopts the identity; a pending
// confirmation parks the machine in the verification wait.
func (r *Registration) resumeExisting(ctx context.Context, attemptID idx.ID, payload domain.RegistrationPayload) {
	session, err := r.provider.SignInWithPassword(ctx, payload.Email, payload.Password)
	if err != nil {
		regErr := asRegistrationError(err)
		if regErr.Code == domain.ErrCodeNotConfirmed {
			r.mu.Lock()
			if r.phase != domain.PhaseSigningUp || r.attemptID != attemptID {
				r.mu.Unlock()
				return
			}
			r.setPhaseLocked(domain.PhaseAwaitingVerification)
			r.schedulePollLocked(attemptID)
			r.mu.Unlock()
			return
		}
		r.fail(attemptID, regErr)
		return
	}

	r.mu.Lock()
	if r.phase != domain.PhaseSigningUp || r.attemptID != attemptID {
		r.mu.Unlock()
		return
	}
	r.identity = session.Identity
	r.setPhaseLocked(domain.PhasePersisting)
	r.mu.Unlock()

	r.persist(ctx, attemptID)
}

// schedulePollLocked arms the single poll slot. Delays double from the
// base up to the cap; an already armed timer is replaced, never stacked.
func (r *Registration) schedulePollLocked(attemptID idx.ID) {
	if r.pollTimer != nil {
		r.pollTimer.Stop()
	}
	r.pollAttempt++
	r.tickGen++
	gen := r.tickGen
	delay := (backoffx.Doubling{Base: r.cfg.pollBase(), Cap: r.cfg.pollCap()}).Delay(r.pollAttempt)
	r.pollTimer = time.AfterFunc(delay, func() { r.verificationTick(attemptID, gen) })
}

// verificationTick runs one confirmation check. It signs in with the
// submitted credentials and reads the identity back; only a confirmed
// identity advances to persistence. gen fences ticks superseded while they
// were waiting to run, so the provider never sees two checks for one wait.
func (r *Registration) verificationTick(attemptID idx.ID, gen uint64) {
	r.mu.Lock()
	if gen != r.tickGen || r.attemptID != attemptID {
		r.mu.Unlock()
		return
	}
	if r.phase != domain.PhaseAwaitingVerification && r.phase != domain.PhaseVerifying {
		r.mu.Unlock()
		return
	}
	r.pollTimer = nil
	r.setPhaseLocked(domain.PhaseVerifying)
	payload := r.payload
	r.mu.Unlock()

	ctx := r.opCtx(attemptID)
	log := r.logger.With(slog.String("corr_id", attemptID.String()))

	session, err := r.provider.SignInWithPassword(ctx, payload.Email, payload.Password)
	if err != nil {
		regErr := asRegistrationError(err)
		switch regErr.Code {
		case domain.ErrCodeNotConfirmed:
			r.rescheduleWait(attemptID)
		case domain.ErrCodeNetwork:
			log.Warn("confirmation check unreachable, retrying", slog.String("error", regErr.Raw))
			r.rescheduleWait(attemptID)
		default:
			r.fail(attemptID, regErr)
		}
		return
	}

	id, err := r.provider.GetUser(ctx, session.AccessToken)
	if err != nil {
		log.Warn("identity read-back failed, retrying", slog.Any("error", err))
		r.rescheduleWait(attemptID)
		return
	}
	if !id.Confirmed() {
		r.rescheduleWait(attemptID)
		return
	}

	r.mu.Lock()
	if r.phase != domain.PhaseVerifying || r.attemptID != attemptID {
		r.mu.Unlock()
		return
	}
	r.identity = id
	r.setPhaseLocked(domain.PhasePersisting)
	r.mu.Unlock()

	r.persist(ctx, attemptID)
}

func (r *Registration) rescheduleWait(attemptID idx.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != domain.PhaseVerifying || r.attemptID != attemptID {
		return
	}
	r.setPhaseLocked(domain.PhaseAwaitingVerification)
	r.schedulePollLocked(attemptID)
}

// persist runs the atomic account creation exactly once per attempt and
// finishes the machine.
func (r *Registration) persist(ctx context.Context, attemptID idx.ID) {
	log := r.logger.With(slog.String("corr_id", attemptID.String()))

	r.mu.Lock()
	if r.phase != domain.PhasePersisting || r.attemptID != attemptID {
		r.mu.Unlock()
		return
	}
	payload := r.payload
	identityID := r.identity.ID
	r.mu.Unlock()

	if payload.CompanyEmail != payload.Email {
		r.fail(attemptID, &domain.RegistrationError{
			Code:    domain.ErrCodePrecondition,
			Message: "company email must match the administrator email",
		})
		return
	}
	if identityID == "" {
		r.fail(attemptID, &domain.RegistrationError{
			Code:    domain.ErrCodeContractViolation,
			Message: "identity provider returned no identity id",
		})
		return
	}

	ids, err := r.creator.CreateAccountWithAdmin(ctx, store.CreateAccountParams{
		IdentityID:    identityID,
		CompanyName:   payload.CompanyName,
		CompanyEmail:  payload.CompanyEmail,
		FirstName:     payload.FirstName,
		LastName:      payload.LastName,
		CorrelationID: attemptID,
	})
	if err != nil {
		r.fail(attemptID, asRegistrationError(err))
		return
	}
	if !ids.Complete() {
		r.fail(attemptID, &domain.RegistrationError{
			Code:    domain.ErrCodeContractViolation,
			Message: "provisioning returned incomplete identifiers",
			Raw:     "account=" + ids.AccountID + " user=" + ids.UserID + " subscription=" + ids.SubscriptionID,
		})
		return
	}

	// Consistency probe, best effort. A bad outcome is logged and never
	// fails the registration: the rows were just committed.
	if r.detector != nil {
		det, derr := r.detector.Detect(ctx, identityID, attemptID)
		switch {
		case derr != nil:
			log.Warn("post-provision consistency check failed", slog.Any("error", derr))
		case det.Orphaned:
			log.Error("identity still orphaned after provisioning",
				slog.String("orphan_type", string(det.OrphanType)),
			)
		}
	}

	r.mu.Lock()
	if r.phase != domain.PhasePersisting || r.attemptID != attemptID {
		r.mu.Unlock()
		return
	}
	r.result = &ids
	r.setPhaseLocked(domain.PhaseSucceeded)
	r.mu.Unlock()

	log.Info("registration succeeded",
		slog.String("account_id", ids.AccountID),
		slog.String("subscription_id", ids.SubscriptionID),
	)
}

func (r *Registration) fail(attemptID idx.ID, regErr *domain.RegistrationError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attemptID != attemptID || r.phase.Terminal() || r.phase == domain.PhaseIdle {
		return
	}
	if r.pollTimer != nil {
		r.pollTimer.Stop()
		r.pollTimer = nil
	}
	r.lastErr = regErr
	r.setPhaseLocked(domain.PhaseFailed)
	metrics.RegistrationFailures.WithLabelValues(string(regErr.Code)).Inc()

	r.logger.Warn("registration failed",
		slog.String("corr_id", attemptID.String()),
		slog.String("code", string(regErr.Code)),
		slog.String("raw", regErr.Raw),
	)
}

// asRegistrationError maps any error onto the closed taxonomy. Provider
// errors carry their classification; everything else is unclassified with
// the raw message kept for logs.
func asRegistrationError(err error) *domain.RegistrationError {
	var regErr *domain.RegistrationError
	if errors.As(err, &regErr) {
		return regErr
	}

	var provErr *identity.Error
	if errors.As(err, &provErr) {
		return &domain.RegistrationError{
			Code:    provErr.Code,
			Message: userMessage(provErr.Code),
			Raw:     provErr.Raw,
		}
	}

	return &domain.RegistrationError{
		Code:    domain.ErrCodeUnclassified,
		Message: userMessage(domain.ErrCodeUnclassified),
		Raw:     err.Error(),
	}
}

func userMessage(code domain.ErrorCode) string {
	switch code {
	case domain.ErrCodeAlreadyExists:
		return "an account with this email already exists"
	case domain.ErrCodeWeakPassword:
		return "the password does not meet the minimum requirements"
	case domain.ErrCodeNotConfirmed:
		return "the email address has not been verified yet"
	case domain.ErrCodeInvalidCredentials:
		return "the email or password is incorrect"
	case domain.ErrCodeNetwork:
		return "the identity service could not be reached"
	case domain.ErrCodePrecondition:
		return "the submitted details failed a consistency check"
	case domain.ErrCodeContractViolation:
		return "account setup returned an inconsistent result"
	default:
		return "registration failed, please try again"
	}
}
