package domain

import (
	"fmt"
	"time"

	"github.com/lexorahq/provision/pkg/idx"
)

// OrphanType classifies why an identity has no usable account linkage.
// It is derived on every check and never cached.
type OrphanType string

const (
	OrphanNoUserRecord   OrphanType = "no-user-record"
	OrphanNullAccountID  OrphanType = "null-account-id"
	OrphanDeletedUser    OrphanType = "deleted-user"
	OrphanDeletedAccount OrphanType = "deleted-account"
)

// DetectionMetrics is the ephemeral per-call record of one detection run.
type DetectionMetrics struct {
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Attempts      int       `json:"attempts"`
	TimedOut      bool      `json:"timed_out"`
	Errored       bool      `json:"errored"`
	CorrelationID idx.ID    `json:"correlation_id"`
}

func (m DetectionMetrics) Duration() time.Duration {
	return m.FinishedAt.Sub(m.StartedAt)
}

// Detection is the outcome of a successful orphan check. A determination of
// "orphaned" is a success; only exhausted retries are a failure.
type Detection struct {
	Orphaned        bool
	HasValidAccount bool
	OrphanType      OrphanType // empty when not orphaned
	AccountID       string     // set only when HasValidAccount
	Role            Role       // set only when HasValidAccount
	Metrics         DetectionMetrics
}

// DetectionError reports that every budgeted attempt failed. Callers must
// treat it as "deny access", never as "not orphaned".
type DetectionError struct {
	Metrics       DetectionMetrics
	CorrelationID idx.ID
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf(
		"detection failed after %d attempts (timed_out=%t, corr_id=%s)",
		e.Metrics.Attempts, e.Metrics.TimedOut, e.CorrelationID,
	)
}
