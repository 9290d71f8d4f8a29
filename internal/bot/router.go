package bot

import (
	"context"
	"strings"
	"time"

	"dict-relay-bot/internal/common/logger"
	tg "dict-relay-bot/internal/platform/telegram"
	"dict-relay-bot/internal/service/access"
	"dict-relay-bot/internal/service/admin"
	"dict-relay-bot/internal/service/relay"
)

const bannedReply = "❌ Ви заблоковані і не можете користуватися ботом."

// adminCommands are the commands owned by the admin console.
var adminCommands = map[string]bool{
	"admin":     true,
	"add":       true,
	"delete":    true,
	"ban":       true,
	"unban":     true,
	"broadcast": true,
	"list":      true,
}

// Transport is the subset of the Telegram client the router needs.
type Transport interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]tg.Update, error)
	SendMessage(ctx context.Context, chatID int64, text string, opts *tg.SendOptions) error
}

// Router drives the long-poll loop and dispatches each update to the relay
// engine or the admin console. No single failed update may stop the loop.
type Router struct {
	transport   Transport
	relay       *relay.Service
	admin       *admin.Service
	access      *access.Service
	groupID     int64
	pollTimeout int
}

func NewRouter(transport Transport, relaySvc *relay.Service, adminSvc *admin.Service, accessSvc *access.Service, groupID int64, pollTimeout int) *Router {
	return &Router{
		transport:   transport,
		relay:       relaySvc,
		admin:       adminSvc,
		access:      accessSvc,
		groupID:     groupID,
		pollTimeout: pollTimeout,
	}
}

// Run polls for updates until the context is canceled.
func (r *Router) Run(ctx context.Context) {
	logger.Info().Msg("Update loop started")
	var offset int64

	for {
		updates, err := r.transport.GetUpdates(ctx, offset, r.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info().Msg("Update loop stopped")
				return
			}
			logger.Error().Err(err).Msg("getUpdates failed")
			select {
			case <-time.After(3 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		for i := range updates {
			u := &updates[i]
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			r.dispatch(ctx, u)
		}
	}
}

func (r *Router) dispatch(ctx context.Context, u *tg.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Int64("update_id", u.UpdateID).Msg("Handler panicked")
		}
	}()

	if u.CallbackQuery != nil {
		r.admin.HandleCallback(ctx, u.CallbackQuery)
		return
	}

	msg := u.Message
	if msg == nil || msg.From == nil || msg.From.IsBot {
		return
	}

	isPrivate := msg.Chat.Type == "private"

	// Ban gate: every inbound private event stops here for a banned sender.
	// The operator bypasses the gate entirely.
	if isPrivate && !r.access.IsAdmin(msg.From.ID) && r.access.IsBanned(ctx, msg.From.ID) {
		if err := r.transport.SendMessage(ctx, msg.Chat.ID, bannedReply, nil); err != nil {
			logger.Error().Err(err).Int64("user_id", msg.From.ID).Msg("Failed to send ban notice")
		}
		return
	}

	if cmd, _, ok := parseCommand(msg.Text); ok {
		switch {
		case cmd == "start":
			if isPrivate {
				r.relay.HandleStart(ctx, msg)
			}
			return
		case cmd == "help":
			if err := r.transport.SendMessage(ctx, msg.Chat.ID, relay.WelcomeMessage, nil); err != nil {
				logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("Failed to send help")
			}
			return
		case adminCommands[cmd]:
			_, args, _ := parseCommand(msg.Text)
			r.admin.HandleCommand(ctx, msg, cmd, args)
			return
		}
		// Unknown commands fall through and travel as plain messages.
	}

	switch {
	case isPrivate:
		r.relay.HandlePrivateMessage(ctx, msg)
	case msg.Chat.ID == r.groupID && r.access.IsAdmin(msg.From.ID):
		r.relay.HandleOperatorReply(ctx, msg)
	}
}

// parseCommand splits "/cmd@bot args" into a lowercase command and the rest.
func parseCommand(text string) (command, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	rest := text[1:]
	if rest == "" {
		return "", "", false
	}
	command = rest
	if i := strings.IndexAny(rest, " \n"); i >= 0 {
		command = rest[:i]
		args = strings.TrimSpace(rest[i+1:])
	}
	if i := strings.Index(command, "@"); i >= 0 {
		command = command[:i]
	}
	return strings.ToLower(command), args, command != ""
}
