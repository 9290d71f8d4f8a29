package telegram

import (
	"fmt"
	"strings"

	domain "dict-relay-bot/internal/domain/user"
)

// FormatUserInfo renders the user card posted into a fresh discussion
// thread and into operator notifications.
func FormatUserInfo(u *domain.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 **Користувач:** %s\n", u.DisplayName())
	fmt.Fprintf(&b, "🆔 **ID:** `%d`\n", u.ID)
	if u.Username != "" {
		fmt.Fprintf(&b, "📝 **Username:** @%s\n", u.Username)
	}
	if u.FirstName != "" {
		fmt.Fprintf(&b, "👋 **Ім'я:** %s\n", u.FirstName)
	}
	if u.LastName != "" {
		fmt.Fprintf(&b, "👋 **Прізвище:** %s\n", u.LastName)
	}
	return b.String()
}

// ThreadName labels a user's discussion thread in the operator group.
func ThreadName(u *domain.User) string {
	return fmt.Sprintf("%s (%d)", u.DisplayName(), u.ID)
}
