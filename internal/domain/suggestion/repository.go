package suggestion

import "context"

// Repository defines persistence for the operator's suggestion inbox.
type Repository interface {
	// Add appends a suggestion. Sides are trimmed but otherwise stored as
	// submitted; normalization happens only if the pair is promoted into
	// the dictionary.
	Add(ctx context.Context, userID int64, term, translation string) error
}
