package relay

import (
	"context"
	"fmt"
	"strings"

	apperrors "dict-relay-bot/internal/common/errors"
	"dict-relay-bot/internal/common/logger"
	dictdomain "dict-relay-bot/internal/domain/dictionary"
	sdomain "dict-relay-bot/internal/domain/suggestion"
	udomain "dict-relay-bot/internal/domain/user"
	tg "dict-relay-bot/internal/platform/telegram"
	"dict-relay-bot/internal/service/directory"
)

// WelcomeMessage greets users on /start and /help.
const WelcomeMessage = `✒️Привітик!! Мене звати Ономатопейка. Я — база, що допоможе тобі з перекладом звуків.

1️⃣ Надішліть англійську ономатопею, а я відповім українською.
2️⃣ Ви можете доповнити базу. Просто напишіть англійську й українську версії. Я передам адміну, а він додась.
3️⃣ Ви можете зв'язатися з адміністратором. Не лише з приводу доповнення бази, але й просто щоб побазікати.`

const (
	suggestionAck  = "✅ Дякую! Ваша пропозиція передана адміністратору."
	userPrefix     = "💬 **Повідомлення від користувача:**\n\n"
	operatorPrefix = "💬 **Відповідь від адміністратора:**"
	deliveredNote  = "✅ Повідомлення надіслано користувачу"
)

// Transport is the subset of the Telegram client the relay needs.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts *tg.SendOptions) error
	ForwardMessage(ctx context.Context, chatID, fromChatID, messageID, threadID int64) error
}

// Service is the routing engine. Each inbound private message is classified
// once — suggestion, dictionary query, or plain relay — and dispatched;
// operator posts inside discussion threads travel the reverse direction.
// Transport failures are logged and never propagate.
type Service struct {
	users       udomain.Repository
	dict        dictdomain.Repository
	suggestions sdomain.Repository
	directory   *directory.Service
	transport   Transport
	groupID     int64
	adminID     int64
}

func NewService(
	users udomain.Repository,
	dict dictdomain.Repository,
	suggestions sdomain.Repository,
	dir *directory.Service,
	transport Transport,
	groupID, adminID int64,
) *Service {
	return &Service{
		users:       users,
		dict:        dict,
		suggestions: suggestions,
		directory:   dir,
		transport:   transport,
		groupID:     groupID,
		adminID:     adminID,
	}
}

// HandleStart registers the user (first contact creates the discussion
// thread) and replies with the welcome text.
func (s *Service) HandleStart(ctx context.Context, msg *tg.Message) {
	u := s.ensureUser(ctx, msg)
	if u != nil {
		s.directory.EnsureThread(ctx, u)
	}
	s.reply(ctx, msg.Chat.ID, WelcomeMessage, nil)
}

// HandlePrivateMessage classifies and routes one inbound user message.
// First match wins; each branch is terminal.
func (s *Service) HandlePrivateMessage(ctx context.Context, msg *tg.Message) {
	u := s.ensureUser(ctx, msg)
	if u == nil {
		return
	}
	threadID, hasThread := s.directory.EnsureThread(ctx, u)

	if msg.IsText() {
		if term, translation, ok := ParsePair(msg.Text); ok {
			s.handleSuggestion(ctx, u, term, translation)
			return
		}
		if s.handleLookup(ctx, msg, threadID, hasThread) {
			return
		}
	}

	s.forwardToThread(ctx, msg, threadID, hasThread)
}

// HandleOperatorReply forwards an operator post inside a discussion thread
// to the mapped user. Posts in unmapped threads are dropped without error.
func (s *Service) HandleOperatorReply(ctx context.Context, msg *tg.Message) {
	threadID := msg.MessageThreadID
	if threadID == 0 {
		return
	}

	u, err := s.users.GetByThreadID(ctx, threadID)
	if err != nil {
		logger.Error().Err(err).Int64("thread_id", threadID).Msg("Failed to resolve thread")
		return
	}
	if u == nil {
		logger.Debug().Int64("thread_id", threadID).Msg("Operator post in unmapped thread dropped")
		return
	}

	var deliverErr error
	if msg.IsText() {
		deliverErr = s.transport.SendMessage(ctx, u.ID,
			operatorPrefix+"\n\n"+msg.Text,
			&tg.SendOptions{ParseMode: "Markdown"})
	} else {
		deliverErr = s.transport.SendMessage(ctx, u.ID, operatorPrefix, &tg.SendOptions{ParseMode: "Markdown"})
		if deliverErr == nil {
			deliverErr = s.transport.ForwardMessage(ctx, u.ID, msg.Chat.ID, msg.MessageID, 0)
		}
	}

	// The operator is the accountable party: delivery failures are surfaced
	// back into the thread, not just logged.
	if deliverErr != nil {
		logger.Error().Err(deliverErr).Int64("user_id", u.ID).Msg("Failed to deliver operator reply")
		s.reply(ctx, s.groupID, fmt.Sprintf("❌ Помилка надсилання: %v", deliverErr), &tg.SendOptions{ThreadID: threadID})
		return
	}
	s.reply(ctx, s.groupID, deliveredNote, &tg.SendOptions{ThreadID: threadID})
}

// ensureUser upserts the sender's record. On storage failure the relay
// degrades to a transient in-memory record so the message still gets
// classified; thread-dependent steps will simply find no thread.
func (s *Service) ensureUser(ctx context.Context, msg *tg.Message) *udomain.User {
	if msg.From == nil {
		return nil
	}
	u, err := s.users.Upsert(ctx, msg.From.ID, udomain.Profile{
		Username:  msg.From.Username,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
	})
	if err != nil {
		logger.Error().Err(err).Int64("user_id", msg.From.ID).Msg("Failed to upsert user")
		return &udomain.User{
			ID:        msg.From.ID,
			Username:  msg.From.Username,
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
		}
	}
	return u
}

func (s *Service) handleSuggestion(ctx context.Context, u *udomain.User, term, translation string) {
	if err := s.suggestions.Add(ctx, u.ID, term, translation); err != nil {
		logger.Error().Err(err).Int64("user_id", u.ID).Msg("Failed to store suggestion")
	}

	notice := fmt.Sprintf(
		"💡 **Нова пропозиція від користувача:**\n\n👤 %s (`%d`)\n📝 **Пропозиція:** %s - %s\n\nЩоб додати: `/add %s - %s`",
		u.DisplayName(), u.ID, term, translation, term, translation,
	)
	if err := s.transport.SendMessage(ctx, s.adminID, notice, &tg.SendOptions{ParseMode: "Markdown"}); err != nil {
		logger.Error().Err(err).Int64("user_id", u.ID).Msg("Failed to notify admin about suggestion")
	}

	s.reply(ctx, u.ID, suggestionAck, nil)
	logger.Info().Int64("user_id", u.ID).Str("term", term).Msg("Suggestion received")
}

// handleLookup answers the first token that has a dictionary hit. Remaining
// tokens are never checked; a message with two known words reports only the
// first.
func (s *Service) handleLookup(ctx context.Context, msg *tg.Message, threadID int64, hasThread bool) bool {
	for _, token := range strings.Fields(strings.ToLower(msg.Text)) {
		translation, err := s.dict.Lookup(ctx, token)
		if err != nil {
			if appErr, ok := apperrors.AsAppError(err); !ok || !appErr.IsNotFound() {
				logger.Error().Err(err).Str("token", token).Msg("Dictionary lookup failed")
			}
			continue
		}

		s.reply(ctx, msg.Chat.ID, fmt.Sprintf("🔊 %s → %s", token, translation), nil)
		if hasThread {
			note := fmt.Sprintf("💬 Користувач знайшов переклад:\n%s → %s", token, translation)
			if err := s.transport.SendMessage(ctx, s.groupID, note, &tg.SendOptions{ThreadID: threadID}); err != nil {
				logger.Error().Err(err).Int64("thread_id", threadID).Msg("Failed to mirror lookup into thread")
			}
		}
		return true
	}
	return false
}

func (s *Service) forwardToThread(ctx context.Context, msg *tg.Message, threadID int64, hasThread bool) {
	if !hasThread {
		return
	}

	if msg.IsText() {
		err := s.transport.SendMessage(ctx, s.groupID, userPrefix+msg.Text,
			&tg.SendOptions{ThreadID: threadID, ParseMode: "Markdown"})
		if err != nil {
			logger.Error().Err(err).Int64("thread_id", threadID).Msg("Failed to relay text into thread")
		}
		return
	}

	// Media travels as two calls: a text announcement, then a native
	// forward. The pair is not atomic; a failed forward leaves the
	// announcement in place and is logged as its own event.
	if err := s.transport.SendMessage(ctx, s.groupID, userPrefix,
		&tg.SendOptions{ThreadID: threadID, ParseMode: "Markdown"}); err != nil {
		logger.Error().Err(err).Int64("thread_id", threadID).Msg("Failed to announce media in thread")
		return
	}
	if err := s.transport.ForwardMessage(ctx, s.groupID, msg.Chat.ID, msg.MessageID, threadID); err != nil {
		logger.Error().Err(err).Int64("thread_id", threadID).Msg("Failed to forward media into thread")
	}
}

func (s *Service) reply(ctx context.Context, chatID int64, text string, opts *tg.SendOptions) {
	if err := s.transport.SendMessage(ctx, chatID, text, opts); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}
