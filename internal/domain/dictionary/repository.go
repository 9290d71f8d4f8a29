package dictionary

import "context"

// Repository defines persistence operations for dictionary entries.
// Implementations normalize the term (lowercase, trimmed) on every
// operation, so "Buzz" and " buzz " address the same entry.
type Repository interface {
	// Add stores a new pair. Returns an ENTRY_ALREADY_EXISTS error when
	// the normalized term collides with an existing one.
	Add(ctx context.Context, term, translation string) error

	// Lookup returns the translation for a normalized exact match.
	// Returns an ENTRY_NOT_FOUND error when the term is unknown.
	Lookup(ctx context.Context, term string) (string, error)

	// Delete removes a pair. Reports whether a row was affected.
	Delete(ctx context.Context, term string) (bool, error)

	// List returns all entries ordered lexicographically by term.
	List(ctx context.Context) ([]Entry, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)
}
