package suggestion

import "time"

// Suggestion is a user-submitted candidate dictionary pair awaiting
// operator approval. Append-only: never updated or deleted by the bot.
type Suggestion struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Term        string    `json:"term"`
	Translation string    `json:"translation"`
	CreatedAt   time.Time `json:"created_at"`
}
