package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lexorahq/provision/internal/provision/domain"
)

type accountsRepo struct {
	q queryer
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, name, email, deleted_at, created_at, updated_at FROM accounts WHERE id = ?`, id)

	var (
		a         domain.Account
		deletedAt sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Name, &a.Email, &deletedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}

	a.DeletedAt = mapNullTimePtr(deletedAt)
	return a, nil
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	now := time.Now().UTC()
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO accounts (id, name, email, deleted_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Email, mapOptionalTime(a.DeletedAt), now, now,
	)
	return mapConstraint(err)
}

func (r *accountsRepo) SoftDeleteAccount(ctx context.Context, accountID string) error {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx,
		`UPDATE accounts SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, now, accountID)
	if err != nil {
		return err
	}
	return mapNotFound(requireRowAffected(res))
}

func (r *accountsRepo) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM accounts WHERE deleted_at IS NOT NULL AND deleted_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
