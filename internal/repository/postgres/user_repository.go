package postgres

import (
	"context"
	"database/sql"
	"errors"

	apperrors "dict-relay-bot/internal/common/errors"
	domain "dict-relay-bot/internal/domain/user"
)

// UserRepository provides CRUD operations for users in Postgres.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository { return &UserRepository{db: db} }

const userColumns = `id, COALESCE(username, ''), COALESCE(first_name, ''), COALESCE(last_name, ''), COALESCE(thread_id, 0), is_banned, joined_at`

// Upsert inserts the user or refreshes display fields by ID. The ON CONFLICT
// clause leaves is_banned and thread_id untouched, so re-registration never
// resets a ban or drops a thread mapping, atomically with concurrent writes.
func (r *UserRepository) Upsert(ctx context.Context, id int64, p domain.Profile) (*domain.User, error) {
	const q = `
	INSERT INTO users (id, username, first_name, last_name)
	VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''))
	ON CONFLICT (id) DO UPDATE SET
		username = EXCLUDED.username,
		first_name = EXCLUDED.first_name,
		last_name = EXCLUDED.last_name
	RETURNING ` + userColumns

	row := r.db.QueryRowContext(ctx, q, id, p.Username, p.FirstName, p.LastName)
	u, err := scanUser(row)
	if err != nil {
		return nil, apperrors.NewDatabaseError("upsert user", err)
	}
	return u, nil
}

// GetByID returns a user by Telegram ID, or nil when unknown.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get user", err)
	}
	return u, nil
}

// GetByThreadID resolves a discussion thread to its user, or nil when the
// thread is unmapped.
func (r *UserRepository) GetByThreadID(ctx context.Context, threadID int64) (*domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE thread_id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, threadID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get user by thread", err)
	}
	return u, nil
}

// SetThreadID records the discussion thread assigned to the user.
func (r *UserRepository) SetThreadID(ctx context.Context, id, threadID int64) (bool, error) {
	const q = `UPDATE users SET thread_id = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, threadID)
	if err != nil {
		return false, apperrors.NewDatabaseError("set thread id", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SetBanned flips the ban flag for the user.
func (r *UserRepository) SetBanned(ctx context.Context, id int64, banned bool) (bool, error) {
	const q = `UPDATE users SET is_banned = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id, banned)
	if err != nil {
		return false, apperrors.NewDatabaseError("set banned", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// List returns all users, most recently joined first.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY joined_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list users", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.ThreadID, &u.IsBanned, &u.JoinedAt); err != nil {
			return nil, apperrors.NewDatabaseError("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list users", err)
	}
	return users, nil
}

// Count returns total and banned user counts.
func (r *UserRepository) Count(ctx context.Context) (total, banned int, err error) {
	const q = `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_banned) FROM users`
	if err := r.db.QueryRowContext(ctx, q).Scan(&total, &banned); err != nil {
		return 0, 0, apperrors.NewDatabaseError("count users", err)
	}
	return total, banned, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.ThreadID, &u.IsBanned, &u.JoinedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
