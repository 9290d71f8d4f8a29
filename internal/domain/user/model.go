package user

import (
	"strconv"
	"time"
)

// User mirrors a Telegram identity engaged with the bot.
// ID is the Telegram user ID. ThreadID is the forum topic assigned to the
// user inside the operator group; zero means no thread yet.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	ThreadID  int64     `json:"thread_id,omitempty"`
	IsBanned  bool      `json:"is_banned"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Profile carries the mutable display fields taken from an incoming update.
// Ban state and thread assignment are never part of a profile write.
type Profile struct {
	Username  string
	FirstName string
	LastName  string
}

// DisplayName returns a human-readable name for threads and notifications.
func (u *User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	default:
		return "User " + strconv.FormatInt(u.ID, 10)
	}
}
