package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/chiremba/chiremba-api/internal/user/entity"
)

const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, name, role, status,
		password_reset_token, password_reset_expires, created_at, updated_at`

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts a new user row. The caller assigns the ID.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (id, email, password_hash, name, role, status,
		password_reset_token, password_reset_expires, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :name, :role, :status,
		:password_reset_token, :password_reset_expires, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, q, u); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByID fetches a full user row or ErrNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

// GetByEmail returns a user matched by (normalized) email or ErrNotFound.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

// List returns users ordered by creation time, optionally filtered by role.
func (r *UserRepo) List(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	var (
		rows []*entity.User
		err  error
	)
	if role == "" {
		err = r.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	} else {
		err = r.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users WHERE role=$1 ORDER BY created_at`, role)
	}
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return rows, nil
}

// CountByRole counts accounts holding role.
func (r *UserRepo) CountByRole(ctx context.Context, role entity.Role) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE role=$1`, role); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// ResetToPending clears the password, marks the account pending and stores a fresh setup token.
func (r *UserRepo) ResetToPending(ctx context.Context, id, token string, expires time.Time) error {
	const q = `UPDATE users SET password_hash=NULL, status='pending',
		password_reset_token=$2, password_reset_expires=$3, updated_at=NOW() WHERE id=$1`
	return r.execOne(ctx, q, id, token, expires)
}

// ConsumeResetToken sets the password and activates the account owning token, provided the
// token has not expired at now. The token is cleared in the same statement, so it can be
// consumed only once. Returns ErrNotFound if no row matched.
func (r *UserRepo) ConsumeResetToken(ctx context.Context, token, passwordHash string, now time.Time) (*entity.User, error) {
	q := `UPDATE users SET password_hash=$2, status='active',
		password_reset_token=NULL, password_reset_expires=NULL, updated_at=NOW()
		WHERE password_reset_token=$1 AND password_reset_expires > $3
		RETURNING ` + userColumns
	return r.getOne(ctx, q, token, passwordHash, now)
}

// UpdateRole changes the role and returns the updated row. Demoting the only
// admin fails with ErrLastAdmin.
func (r *UserRepo) UpdateRole(ctx context.Context, id string, role entity.Role) (*entity.User, error) {
	var out *entity.User
	err := r.withAdminLock(ctx, id, role, func(tx *sqlx.Tx) error {
		var row entity.User
		q := `UPDATE users SET role=$2, updated_at=NOW() WHERE id=$1 RETURNING ` + userColumns
		if err := tx.GetContext(ctx, &row, q, id, role); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("update role: %w", err)
		}
		out = &row
		return nil
	})
	return out, err
}

// Delete removes the user row. Deleting the only admin fails with ErrLastAdmin.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	return r.withAdminLock(ctx, id, "", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// withAdminLock runs fn in a transaction holding row locks on every admin, so
// concurrent demotions and deletions see each other's result. It refuses to
// let id leave the admin role (next is empty for deletion) when id is the
// last admin.
func (r *UserRepo) withAdminLock(ctx context.Context, id string, next entity.Role, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var admins []string
	if err = tx.SelectContext(ctx, &admins, `SELECT id FROM users WHERE role='admin' FOR UPDATE`); err != nil {
		return fmt.Errorf("lock admins: %w", err)
	}
	if next != entity.RoleAdmin && len(admins) <= 1 && slices.Contains(admins, id) {
		return ErrLastAdmin
	}
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, q string, args ...any) (*entity.User, error) {
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &row, nil
}

func (r *UserRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
