package store

import (
	"context"
	"errors"
	"time"

	"github.com/lexorahq/provision/internal/provision/domain"
	"github.com/lexorahq/provision/pkg/idx"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// DefaultTrialPeriod is how long a freshly provisioned account's trial
// subscription runs.
const DefaultTrialPeriod = 14 * 24 * time.Hour

// CreateAccountParams is the input to the atomic provisioning call.
// CorrelationID is carried into logs and the created rows' audit trail.
type CreateAccountParams struct {
	IdentityID    string
	CompanyName   string
	CompanyEmail  string
	FirstName     string
	LastName      string
	CorrelationID idx.ID
	TrialPeriod   time.Duration // zero uses DefaultTrialPeriod
}

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. Sub-repositories keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	Accounts() Accounts
	Subscriptions() Subscriptions

	// CreateAccountWithAdmin atomically creates the tenant account, its owner
	// user row (keyed by the identity id) and the trial subscription. Either
	// all three rows exist afterwards or none do.
	CreateAccountWithAdmin(ctx context.Context, p CreateAccountParams) (domain.ProvisionIDs, error)

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns the user keyed by identity id. Soft-deleted rows
	// are returned with DeletedAt set; ErrNotFound only when the row is
	// absent. Detection depends on seeing deleted rows.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// CreateUser inserts a user row. Production code only reaches this via
	// CreateAccountWithAdmin; it is exposed for fixtures and backfills.
	CreateUser(ctx context.Context, u domain.User) error

	// SoftDeleteUser stamps deleted_at and bumps updated_at.
	SoftDeleteUser(ctx context.Context, userID string) error

	// PurgeDeletedBefore hard-deletes rows soft-deleted before the cutoff.
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Accounts interface {
	// GetAccountByID returns the account, soft-deleted or not; ErrNotFound
	// only when the row is absent.
	GetAccountByID(ctx context.Context, id string) (domain.Account, error)

	// CreateAccount inserts an account row (id is provided by app via ULID).
	CreateAccount(ctx context.Context, a domain.Account) error

	// SoftDeleteAccount stamps deleted_at and bumps updated_at.
	SoftDeleteAccount(ctx context.Context, accountID string) error

	// PurgeDeletedBefore hard-deletes rows soft-deleted before the cutoff.
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Subscriptions interface {
	// GetSubscriptionByAccountID returns the account's subscription row.
	GetSubscriptionByAccountID(ctx context.Context, accountID string) (domain.Subscription, error)

	// CreateSubscription inserts a subscription row.
	CreateSubscription(ctx context.Context, s domain.Subscription) error
}
