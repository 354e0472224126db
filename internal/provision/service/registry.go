package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lexorahq/provision/pkg/idx"
)

// RegistrationRegistry issues and tracks registration instances. Each
// instance is addressed by a server-issued ULID; housekeeping evicts
// finished ones.
type RegistrationRegistry struct {
	provider IdentityProvider
	creator  AccountCreator
	detector *DetectionService
	logger   *slog.Logger
	cfg      RegistrationConfig

	mu      sync.Mutex
	entries map[idx.ID]*Registration
}

func NewRegistrationRegistry(provider IdentityProvider, creator AccountCreator, detector *DetectionService, logger *slog.Logger, cfg RegistrationConfig) *RegistrationRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegistrationRegistry{
		provider: provider,
		creator:  creator,
		detector: detector,
		logger:   logger,
		cfg:      cfg,
		entries:  make(map[idx.ID]*Registration),
	}
}

// Create issues a fresh idle instance.
func (g *RegistrationRegistry) Create() *Registration {
	r := NewRegistration(idx.New(), g.provider, g.creator, g.detector, g.logger, g.cfg)

	g.mu.Lock()
	g.entries[r.ID] = r
	g.mu.Unlock()
	return r
}

func (g *RegistrationRegistry) Get(id idx.ID) (*Registration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.entries[id]
	return r, ok
}

func (g *RegistrationRegistry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// EvictFinishedBefore drops idle and terminal instances untouched since
// cutoff, stopping their timers. Returns how many were removed.
func (g *RegistrationRegistry) EvictFinishedBefore(cutoff time.Time) int {
	g.mu.Lock()
	var evicted []*Registration
	for id, r := range g.entries {
		if r.Finished(cutoff) {
			evicted = append(evicted, r)
			delete(g.entries, id)
		}
	}
	g.mu.Unlock()

	for _, r := range evicted {
		r.teardown()
	}
	return len(evicted)
}

// Teardown stops every instance's pending timer. Called on shutdown.
func (g *RegistrationRegistry) Teardown() {
	g.mu.Lock()
	all := make([]*Registration, 0, len(g.entries))
	for _, r := range g.entries {
		all = append(all, r)
	}
	g.mu.Unlock()

	for _, r := range all {
		r.teardown()
	}
}
