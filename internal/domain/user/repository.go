package user

import "context"

// Repository defines persistence operations for the User aggregate.
type Repository interface {
	// Upsert inserts the user or refreshes display fields on conflict.
	// Existing ban state and thread assignment are carried forward; the
	// write must be a single conditional statement so a concurrent ban is
	// never lost to a read-modify-write race.
	Upsert(ctx context.Context, id int64, p Profile) (*User, error)

	// GetByID returns nil when the user is unknown.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByThreadID resolves a discussion thread back to its user.
	// Returns nil when no user maps to the thread.
	GetByThreadID(ctx context.Context, threadID int64) (*User, error)

	// SetThreadID records the thread assigned to the user. Reports whether
	// a row was affected.
	SetThreadID(ctx context.Context, id, threadID int64) (bool, error)

	// SetBanned flips the ban flag. Reports whether a row was affected.
	SetBanned(ctx context.Context, id int64, banned bool) (bool, error)

	// List returns all users, most recently joined first.
	List(ctx context.Context) ([]User, error)

	// Count returns total and banned user counts.
	Count(ctx context.Context) (total, banned int, err error)
}
