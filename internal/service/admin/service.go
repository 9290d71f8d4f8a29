package admin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	apperrors "dict-relay-bot/internal/common/errors"
	"dict-relay-bot/internal/common/logger"
	dictdomain "dict-relay-bot/internal/domain/dictionary"
	udomain "dict-relay-bot/internal/domain/user"
	tg "dict-relay-bot/internal/platform/telegram"
	"dict-relay-bot/internal/service/access"
	"dict-relay-bot/internal/service/relay"
)

const (
	accessDenied     = "❌ У вас немає прав доступу до цієї команди."
	listChunkSize    = 50
	menuEntriesLimit = 20
	menuUsersLimit   = 10
)

// Transport is the subset of the Telegram client the admin console needs.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts *tg.SendOptions) error
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *tg.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

// Service is the operator control surface: slash commands plus the
// inline-keyboard menu. It is a thin consumer of the other components.
type Service struct {
	users     udomain.Repository
	dict      dictdomain.Repository
	access    *access.Service
	transport Transport
}

func NewService(users udomain.Repository, dict dictdomain.Repository, acc *access.Service, transport Transport) *Service {
	return &Service{users: users, dict: dict, access: acc, transport: transport}
}

// HandleCommand dispatches an admin slash command. Non-admin senders get a
// fixed denial reply for every command handled here.
func (s *Service) HandleCommand(ctx context.Context, msg *tg.Message, command, args string) {
	if msg.From == nil {
		return
	}
	if !s.access.IsAdmin(msg.From.ID) {
		s.reply(ctx, msg.Chat.ID, accessDenied, nil)
		return
	}

	switch command {
	case "admin":
		s.sendMainMenu(ctx, msg.Chat.ID)
	case "add":
		s.handleAdd(ctx, msg)
	case "delete":
		s.handleDelete(ctx, msg.Chat.ID, args)
	case "ban":
		s.handleBan(ctx, msg.Chat.ID, args)
	case "unban":
		s.handleUnban(ctx, msg.Chat.ID, args)
	case "broadcast":
		s.handleBroadcast(ctx, msg.Chat.ID, args)
	case "list":
		s.handleList(ctx, msg.Chat.ID)
	}
}

func (s *Service) handleAdd(ctx context.Context, msg *tg.Message) {
	term, translation, ok := relay.ParsePair(msg.Text)
	if !ok {
		s.reply(ctx, msg.Chat.ID, "❌ Неправильний формат. Використовуйте:\n`/add english - українська`",
			&tg.SendOptions{ParseMode: "Markdown"})
		return
	}

	if err := s.dict.Add(ctx, term, translation); err != nil {
		if appErr, isApp := apperrors.AsAppError(err); isApp && appErr.IsConflict() {
			s.reply(ctx, msg.Chat.ID,
				fmt.Sprintf("❌ Помилка додавання. Можливо, '%s' вже існує в базі.", term), nil)
			return
		}
		logger.Error().Err(err).Str("term", term).Msg("Failed to add dictionary entry")
		s.reply(ctx, msg.Chat.ID, "❌ Помилка додавання.", nil)
		return
	}
	s.reply(ctx, msg.Chat.ID, fmt.Sprintf("✅ Додано: %s → %s", term, translation), nil)
}

func (s *Service) handleDelete(ctx context.Context, chatID int64, args string) {
	term := strings.TrimSpace(args)
	if term == "" || strings.ContainsAny(term, " \t") {
		s.reply(ctx, chatID, "❌ Неправильний формат. Використовуйте:\n`/delete english_word`",
			&tg.SendOptions{ParseMode: "Markdown"})
		return
	}

	deleted, err := s.dict.Delete(ctx, term)
	if err != nil {
		logger.Error().Err(err).Str("term", term).Msg("Failed to delete dictionary entry")
		s.reply(ctx, chatID, "❌ Помилка видалення.", nil)
		return
	}
	if !deleted {
		s.reply(ctx, chatID, fmt.Sprintf("❌ '%s' не знайдено в базі.", term), nil)
		return
	}
	s.reply(ctx, chatID, fmt.Sprintf("✅ Видалено: %s", term), nil)
}

func (s *Service) handleBan(ctx context.Context, chatID int64, args string) {
	userID, ok := parseUserID(args)
	if !ok {
		s.reply(ctx, chatID, "❌ Неправильний формат. Використовуйте:\n`/ban user_id`",
			&tg.SendOptions{ParseMode: "Markdown"})
		return
	}

	err := s.access.Ban(ctx, userID)
	switch {
	case err == nil:
		s.reply(ctx, chatID, fmt.Sprintf("✅ Користувач %d заблокований.", userID), nil)
	case isValidation(err):
		s.reply(ctx, chatID, "❌ Неможливо заблокувати адміністратора.", nil)
	case isNotFound(err):
		s.reply(ctx, chatID, fmt.Sprintf("❌ Користувач %d не знайдений.", userID), nil)
	default:
		logger.Error().Err(err).Int64("user_id", userID).Msg("Ban failed")
		s.reply(ctx, chatID, "❌ Помилка блокування.", nil)
	}
}

func (s *Service) handleUnban(ctx context.Context, chatID int64, args string) {
	userID, ok := parseUserID(args)
	if !ok {
		s.reply(ctx, chatID, "❌ Неправильний формат. Використовуйте:\n`/unban user_id`",
			&tg.SendOptions{ParseMode: "Markdown"})
		return
	}

	err := s.access.Unban(ctx, userID)
	switch {
	case err == nil:
		s.reply(ctx, chatID, fmt.Sprintf("✅ Користувач %d розблокований.", userID), nil)
	case isNotFound(err):
		s.reply(ctx, chatID, fmt.Sprintf("❌ Користувач %d не знайдений.", userID), nil)
	default:
		logger.Error().Err(err).Int64("user_id", userID).Msg("Unban failed")
		s.reply(ctx, chatID, "❌ Помилка розблокування.", nil)
	}
}

func (s *Service) handleBroadcast(ctx context.Context, chatID int64, args string) {
	text := strings.TrimSpace(args)
	if text == "" {
		s.reply(ctx, chatID, "❌ Неправильний формат. Використовуйте:\n`/broadcast повідомлення`",
			&tg.SendOptions{ParseMode: "Markdown"})
		return
	}

	users, err := s.users.List(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list users for broadcast")
		s.reply(ctx, chatID, "❌ Помилка підготовки розсилки.", nil)
		return
	}
	active := 0
	for _, u := range users {
		if !u.IsBanned {
			active++
		}
	}
	if active == 0 {
		s.reply(ctx, chatID, "❌ Немає активних користувачів для розсилки.", nil)
		return
	}

	markup := &tg.InlineKeyboardMarkup{InlineKeyboard: [][]tg.InlineKeyboardButton{
		{{Text: "✅ Так, надіслати", CallbackData: callbackConfirmBroadcast + text}},
		{{Text: "❌ Скасувати", CallbackData: callbackCancelBroadcast}},
	}}
	s.reply(ctx, chatID, fmt.Sprintf(
		"📢 **Підтвердження розсилки**\n\nПовідомлення буде надіслано %d користувачам:\n\n_%s_\n\nПродовжити?",
		active, text,
	), &tg.SendOptions{ParseMode: "Markdown", ReplyMarkup: markup})
}

func (s *Service) handleList(ctx context.Context, chatID int64) {
	entries, err := s.dict.List(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list dictionary")
		s.reply(ctx, chatID, "❌ Помилка отримання бази.", nil)
		return
	}
	if len(entries) == 0 {
		s.reply(ctx, chatID, "📝 База ономатопей порожня.", nil)
		return
	}

	// Chunked output to stay under the message length limit.
	chunks := (len(entries) + listChunkSize - 1) / listChunkSize
	for i := 0; i < chunks; i++ {
		var b strings.Builder
		fmt.Fprintf(&b, "📝 **База ономатопей (частина %d/%d):**\n\n", i+1, chunks)
		for _, e := range entries[i*listChunkSize : min(len(entries), (i+1)*listChunkSize)] {
			fmt.Fprintf(&b, "• %s → %s\n", e.Term, e.Translation)
		}
		s.reply(ctx, chatID, b.String(), &tg.SendOptions{ParseMode: "Markdown"})
	}
}

func (s *Service) reply(ctx context.Context, chatID int64, text string, opts *tg.SendOptions) {
	if err := s.transport.SendMessage(ctx, chatID, text, opts); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send admin reply")
	}
}

func parseUserID(args string) (int64, bool) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func isNotFound(err error) bool {
	appErr, ok := apperrors.AsAppError(err)
	return ok && appErr.IsNotFound()
}

func isValidation(err error) bool {
	appErr, ok := apperrors.AsAppError(err)
	return ok && appErr.Code == apperrors.ErrCodeValidation
}
