package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lexorahq/provision/internal/provision/domain"
)

type usersRepo struct {
	q queryer
}

const userColumns = `id, email, first_name, last_name, account_id, role, deleted_at, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().UTC()

	var role sql.NullString
	if u.Role != nil {
		role = sql.NullString{String: string(*u.Role), Valid: true}
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, email, first_name, last_name, account_id, role, deleted_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FirstName, u.LastName,
		mapOptionalString(u.AccountID), role,
		mapOptionalTime(u.DeletedAt), now, now,
	)
	return mapConstraint(err)
}

func (r *usersRepo) SoftDeleteUser(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, now, userID)
	if err != nil {
		return err
	}
	return mapNotFound(requireRowAffected(res))
}

func (r *usersRepo) PurgeDeletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM users WHERE deleted_at IS NOT NULL AND deleted_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (domain.User, error) {
	var (
		u         domain.User
		accountID sql.NullString
		role      sql.NullString
		deletedAt sql.NullTime
	)

	err := s.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName,
		&accountID, &role, &deletedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}

	u.AccountID = mapNullStringPtr(accountID)
	u.DeletedAt = mapNullTimePtr(deletedAt)
	if role.Valid {
		parsed, err := domain.ParseRole(role.String)
		if err != nil {
			return domain.User{}, err
		}
		u.Role = &parsed
	}

	return u, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
