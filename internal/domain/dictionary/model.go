package dictionary

import "time"

// Entry is a single term → translation pair.
// Term is stored normalized: lowercased and trimmed of surrounding
// whitespace, unique across the table.
type Entry struct {
	ID          int64     `json:"id"`
	Term        string    `json:"term"`
	Translation string    `json:"translation"`
	CreatedAt   time.Time `json:"created_at"`
}
