package postgres

import (
	"context"
	"database/sql"
	"strings"

	apperrors "dict-relay-bot/internal/common/errors"
)

// SuggestionRepository appends user-submitted dictionary candidates.
type SuggestionRepository struct {
	db *sql.DB
}

func NewSuggestionRepository(db *sql.DB) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

// Add appends a suggestion for the operator's inbox.
func (r *SuggestionRepository) Add(ctx context.Context, userID int64, term, translation string) error {
	const q = `INSERT INTO suggestions (user_id, term, translation) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, q, userID, strings.TrimSpace(term), strings.TrimSpace(translation))
	if err != nil {
		return apperrors.NewDatabaseError("add suggestion", err)
	}
	return nil
}
