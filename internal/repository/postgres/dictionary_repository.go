package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/lib/pq"

	apperrors "dict-relay-bot/internal/common/errors"
	domain "dict-relay-bot/internal/domain/dictionary"
)

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

// DictionaryRepository stores term → translation pairs in Postgres.
// Terms are normalized (lowercase, trimmed) on every operation.
type DictionaryRepository struct {
	db *sql.DB
}

func NewDictionaryRepository(db *sql.DB) *DictionaryRepository {
	return &DictionaryRepository{db: db}
}

// Normalize maps a raw term to its storage form.
func Normalize(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// Add stores a new pair. A normalized-term collision yields ENTRY_ALREADY_EXISTS.
func (r *DictionaryRepository) Add(ctx context.Context, term, translation string) error {
	const q = `INSERT INTO dictionary (term, translation) VALUES ($1, $2)`
	normalized := Normalize(term)
	_, err := r.db.ExecContext(ctx, q, normalized, strings.TrimSpace(translation))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return apperrors.NewEntryExistsError(normalized)
		}
		return apperrors.NewDatabaseError("add dictionary entry", err)
	}
	return nil
}

// Lookup returns the translation for a normalized exact match.
func (r *DictionaryRepository) Lookup(ctx context.Context, term string) (string, error) {
	const q = `SELECT translation FROM dictionary WHERE term = $1`
	normalized := Normalize(term)
	var translation string
	err := r.db.QueryRowContext(ctx, q, normalized).Scan(&translation)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.NewEntryNotFoundError(normalized)
	}
	if err != nil {
		return "", apperrors.NewDatabaseError("lookup dictionary entry", err)
	}
	return translation, nil
}

// Delete removes a pair by normalized term.
func (r *DictionaryRepository) Delete(ctx context.Context, term string) (bool, error) {
	const q = `DELETE FROM dictionary WHERE term = $1`
	res, err := r.db.ExecContext(ctx, q, Normalize(term))
	if err != nil {
		return false, apperrors.NewDatabaseError("delete dictionary entry", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// List returns all entries ordered by term.
func (r *DictionaryRepository) List(ctx context.Context) ([]domain.Entry, error) {
	const q = `SELECT id, term, translation, created_at FROM dictionary ORDER BY term`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list dictionary", err)
	}
	defer rows.Close()

	var entries []domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.Term, &e.Translation, &e.CreatedAt); err != nil {
			return nil, apperrors.NewDatabaseError("scan dictionary entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list dictionary", err)
	}
	return entries, nil
}

// Count returns the number of stored entries.
func (r *DictionaryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dictionary`).Scan(&n); err != nil {
		return 0, apperrors.NewDatabaseError("count dictionary", err)
	}
	return n, nil
}
