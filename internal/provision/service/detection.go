package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lexorahq/provision/internal/provision/domain"
	"github.com/lexorahq/provision/internal/provision/metrics"
	"github.com/lexorahq/provision/internal/provision/store"
	"github.com/lexorahq/provision/pkg/backoffx"
	"github.com/lexorahq/provision/pkg/idx"
	"github.com/lexorahq/provision/pkg/slogx"
)

const (
	DefaultDetectionAttempts = 3
	DefaultAttemptTimeout    = 200 * time.Millisecond

	// slowDetectionThreshold is the p95 target. Slower successful runs log a
	// warning, never an error.
	slowDetectionThreshold = 200 * time.Millisecond
)

// DefaultDetectionBackoff is the Gaussian jitter applied before the second
// and third attempts. The spread hides the retry cadence from anyone timing
// login responses.
var DefaultDetectionBackoff = backoffx.Gaussian{
	Slots: []backoffx.Slot{
		{Mean: 100 * time.Millisecond, StdDev: 50 * time.Millisecond},
		{Mean: 300 * time.Millisecond, StdDev: 150 * time.Millisecond},
	},
}

// DetectionService decides whether an identity has a valid, non-deleted
// account linkage. It is fail-closed: when every budgeted attempt fails it
// returns *domain.DetectionError, never a default "not orphaned".
type DetectionService struct {
	Store store.Store

	MaxAttempts       int               // default DefaultDetectionAttempts
	PerAttemptTimeout time.Duration     // default DefaultAttemptTimeout
	Backoff           backoffx.Strategy // default DefaultDetectionBackoff
}

func (s *DetectionService) maxAttempts() int {
	if s.MaxAttempts > 0 {
		return s.MaxAttempts
	}
	return DefaultDetectionAttempts
}

func (s *DetectionService) attemptTimeout() time.Duration {
	if s.PerAttemptTimeout > 0 {
		return s.PerAttemptTimeout
	}
	return DefaultAttemptTimeout
}

func (s *DetectionService) backoff() backoffx.Strategy {
	if s.Backoff != nil {
		return s.Backoff
	}
	return DefaultDetectionBackoff
}

// Detect runs the orphan check for one identity. Every call re-reads both
// the user and the account row: a linkage that was valid at the previous
// login may have been deleted since.
func (s *DetectionService) Detect(ctx context.Context, identityID string, correlationID idx.ID) (domain.Detection, error) {
	log := slogx.FromContext(ctx).With("corr_id", correlationID.String())

	m := domain.DetectionMetrics{
		StartedAt:     time.Now().UTC(),
		CorrelationID: correlationID,
	}

	for attempt := 1; attempt <= s.maxAttempts(); attempt++ {
		if attempt > 1 {
			if err := backoffx.Sleep(ctx, s.backoff().Delay(attempt-1)); err != nil {
				// Caller gave up mid-backoff. Still a failed detection.
				break
			}
		}

		m.Attempts = attempt

		det, err := s.attempt(ctx, identityID)
		if err == nil {
			m.FinishedAt = time.Now().UTC()
			det.Metrics = m
			s.observeSuccess(log, det)
			return det, nil
		}

		if errors.Is(err, context.DeadlineExceeded) {
			m.TimedOut = true
		} else {
			m.Errored = true
		}

		log.Warn("detection attempt failed",
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
	}

	m.FinishedAt = time.Now().UTC()
	metrics.DetectionsTotal.WithLabelValues("failed").Inc()
	metrics.DetectionAttempts.Observe(float64(m.Attempts))
	metrics.DetectionDuration.Observe(m.Duration().Seconds())

	log.Error("detection failed, denying access",
		slog.Int("attempts", m.Attempts),
		slog.Bool("timed_out", m.TimedOut),
	)

	return domain.Detection{}, &domain.DetectionError{Metrics: m, CorrelationID: correlationID}
}

// attempt performs one budgeted check: user row, then (only when linked)
// the account row under the same deadline.
func (s *DetectionService) attempt(ctx context.Context, identityID string) (domain.Detection, error) {
	actx, cancel := context.WithTimeout(ctx, s.attemptTimeout())
	defer cancel()

	user, err := s.Store.Users().GetUserByID(actx, identityID)
	if errors.Is(err, store.ErrNotFound) {
		// A missing row is a determination, not a failure.
		return orphaned(domain.OrphanNoUserRecord), nil
	}
	if err != nil {
		return domain.Detection{}, err
	}

	// Linkage before liveness: a row that is both unlinked and soft-deleted
	// classifies as null-account-id.
	if user.AccountID == nil || user.Role == nil {
		// Account and role are written together by the atomic create call;
		// either missing means the linkage never completed.
		return orphaned(domain.OrphanNullAccountID), nil
	}
	if user.Deleted() {
		return orphaned(domain.OrphanDeletedUser), nil
	}

	account, err := s.Store.Accounts().GetAccountByID(actx, *user.AccountID)
	if errors.Is(err, store.ErrNotFound) {
		return orphaned(domain.OrphanDeletedAccount), nil
	}
	if err != nil {
		return domain.Detection{}, err
	}
	if account.Deleted() {
		return orphaned(domain.OrphanDeletedAccount), nil
	}

	return domain.Detection{
		HasValidAccount: true,
		AccountID:       account.ID,
		Role:            *user.Role,
	}, nil
}

func (s *DetectionService) observeSuccess(log *slog.Logger, det domain.Detection) {
	outcome := "valid"
	if det.Orphaned {
		outcome = "orphaned"
		metrics.OrphansTotal.WithLabelValues(string(det.OrphanType)).Inc()
	}
	metrics.DetectionsTotal.WithLabelValues(outcome).Inc()
	metrics.DetectionAttempts.Observe(float64(det.Metrics.Attempts))
	metrics.DetectionDuration.Observe(det.Metrics.Duration().Seconds())

	if d := det.Metrics.Duration(); d > slowDetectionThreshold {
		log.Warn("slow detection",
			slog.Duration("duration", d),
			slog.Int("attempts", det.Metrics.Attempts),
		)
	}
}

func orphaned(t domain.OrphanType) domain.Detection {
	return domain.Detection{Orphaned: true, OrphanType: t}
}
