package relay

import "strings"

const pairSeparator = " - "

// ParsePair extracts a "term - translation" pair from a message or an
// /add command. Both sides are trimmed and must be non-empty; the literal
// " - " separator (space, hyphen, space) is required.
func ParsePair(text string) (term, translation string, ok bool) {
	text = strings.TrimPrefix(text, "/add ")

	if !strings.Contains(text, pairSeparator) {
		return "", "", false
	}
	parts := strings.SplitN(text, pairSeparator, 2)
	term = strings.TrimSpace(parts[0])
	translation = strings.TrimSpace(parts[1])
	if term == "" || translation == "" {
		return "", "", false
	}
	return term, translation, true
}
