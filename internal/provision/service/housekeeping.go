package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexorahq/provision/internal/provision/store"
)

// HousekeepingService periodically purges soft-deleted rows past their
// retention window and evicts finished registration instances, keeping both
// the database and the in-memory registry bounded.
type HousekeepingService struct {
	Store    store.Store
	Registry *RegistrationRegistry
	Logger   *slog.Logger

	Interval        time.Duration // default 1 hour
	Retention       time.Duration // soft-delete retention, default 30 days
	RegistrationTTL time.Duration // finished-registration lifetime, default 1 hour

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewHousekeepingService(st store.Store, registry *RegistrationRegistry, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HousekeepingService{
		Store:           st,
		Registry:        registry,
		Logger:          logger,
		Interval:        interval,
		Retention:       30 * 24 * time.Hour,
		RegistrationTTL: 1 * time.Hour,
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut it
// down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep ends.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep runs every task independently; one failure never stops the others.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()
	now := time.Now().UTC()

	cutoff := now.Add(-s.Retention)
	if n, err := s.Store.Users().PurgeDeletedBefore(ctx, cutoff); err != nil {
		s.Logger.Error("failed to purge deleted users", "error", err)
	} else if n > 0 {
		s.Logger.Info("purged deleted users", "count", n)
	}

	if n, err := s.Store.Accounts().PurgeDeletedBefore(ctx, cutoff); err != nil {
		s.Logger.Error("failed to purge deleted accounts", "error", err)
	} else if n > 0 {
		s.Logger.Info("purged deleted accounts", "count", n)
	}

	if s.Registry != nil {
		if n := s.Registry.EvictFinishedBefore(now.Add(-s.RegistrationTTL)); n > 0 {
			s.Logger.Info("evicted finished registrations", "count", n)
		}
	}
}
