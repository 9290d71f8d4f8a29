package admin

import (
	"context"
	"fmt"
	"strings"

	"dict-relay-bot/internal/common/logger"
	tg "dict-relay-bot/internal/platform/telegram"
)

// Callback tokens of the inline admin menu.
const (
	callbackMain             = "admin_main"
	callbackDictionary       = "admin_onomatopoeia"
	callbackUsers            = "admin_users"
	callbackBroadcast        = "admin_broadcast"
	callbackStats            = "admin_stats"
	callbackShowAllEntries   = "show_all_onomatopoeia"
	callbackShowAllUsers     = "show_all_users"
	callbackShowBannedUsers  = "show_banned_users"
	callbackAddInstructions  = "add_instructions"
	callbackDelInstructions  = "delete_instructions"
	callbackBanInstructions  = "ban_instructions"
	callbackConfirmBroadcast = "confirm_broadcast:"
	callbackCancelBroadcast  = "cancel_broadcast"
)

func mainMenuMarkup() *tg.InlineKeyboardMarkup {
	return &tg.InlineKeyboardMarkup{InlineKeyboard: [][]tg.InlineKeyboardButton{
		{{Text: "📝 Управління ономатопеями", CallbackData: callbackDictionary}},
		{{Text: "👥 Управління користувачами", CallbackData: callbackUsers}},
		{{Text: "📢 Розсилка", CallbackData: callbackBroadcast}},
		{{Text: "📊 Статистика", CallbackData: callbackStats}},
	}}
}

func backRow(target string) []tg.InlineKeyboardButton {
	return []tg.InlineKeyboardButton{{Text: "🔙 Назад", CallbackData: target}}
}

const mainMenuText = "🔧 **Панель адміністратора**\n\nОберіть опцію:"

func (s *Service) sendMainMenu(ctx context.Context, chatID int64) {
	s.reply(ctx, chatID, mainMenuText, &tg.SendOptions{ParseMode: "Markdown", ReplyMarkup: mainMenuMarkup()})
}

// HandleCallback dispatches an inline-keyboard press from the admin menu.
func (s *Service) HandleCallback(ctx context.Context, q *tg.CallbackQuery) {
	if err := s.transport.AnswerCallbackQuery(ctx, q.ID); err != nil {
		logger.Debug().Err(err).Msg("Failed to answer callback query")
	}
	if q.Message == nil {
		return
	}
	chatID := q.Message.Chat.ID
	messageID := q.Message.MessageID

	if !s.access.IsAdmin(q.From.ID) {
		s.edit(ctx, chatID, messageID, "❌ У вас немає прав доступу.", nil)
		return
	}

	data := q.Data
	switch {
	case data == callbackMain:
		s.edit(ctx, chatID, messageID, mainMenuText, mainMenuMarkup())

	case data == callbackDictionary:
		markup := &tg.InlineKeyboardMarkup{InlineKeyboard: [][]tg.InlineKeyboardButton{
			{{Text: "📝 Показати всі", CallbackData: callbackShowAllEntries}},
			{{Text: "➕ Як додати", CallbackData: callbackAddInstructions}},
			{{Text: "🗑 Як видалити", CallbackData: callbackDelInstructions}},
			backRow(callbackMain),
		}}
		s.edit(ctx, chatID, messageID, "📝 **Управління ономатопеями**\n\nОберіть дію:", markup)

	case data == callbackUsers:
		s.showUsersPanel(ctx, chatID, messageID)

	case data == callbackBroadcast:
		markup := &tg.InlineKeyboardMarkup{InlineKeyboard: [][]tg.InlineKeyboardButton{
			backRow(callbackMain),
		}}
		s.edit(ctx, chatID, messageID,
			"📢 **Розсилка повідомлень**\n\nВикористовуйте команду:\n`/broadcast повідомлення`", markup)

	case data == callbackStats:
		s.showStatsPanel(ctx, chatID, messageID)

	case data == callbackShowAllEntries:
		s.showEntriesPanel(ctx, chatID, messageID)

	case data == callbackShowAllUsers:
		s.showUsersList(ctx, chatID, messageID, false)

	case data == callbackShowBannedUsers:
		s.showUsersList(ctx, chatID, messageID, true)

	case data == callbackAddInstructions:
		markup := &tg.InlineKeyboardMarkup{InlineKeyboard: [][]tg.InlineKeyboardButton{backRow(callbackDictionary)}}
		s.edit(ctx, chatID, messageID, "➕ Щоб додати пару, надішліть:\n`/add english - українська`", markup)

	case data == callbackDelInstructions:
		markup := &tg.InlineKeyboardMarkup{InlineKeyboard: [][]tg.InlineKeyboardButton{backRow(callbackDictionary)}}
		s.edit(ctx, chatID, messageID, "🗑 Щоб видалити пару, надішліть:\n`/delete english_word`", markup)

	case data == callbackBanInstructions:
		markup := &tg.InlineKeyboardMarkup{InlineKeyboard: [][]tg.InlineKeyboardButton{backRow(callbackUsers)}}
		s.edit(ctx, chatID, messageID, "🚫 Щоб заблокувати користувача, надішліть:\n`/ban user_id`", markup)

	case strings.HasPrefix(data, callbackConfirmBroadcast):
		text := strings.TrimPrefix(data, callbackConfirmBroadcast)
		sent, failed := s.Broadcast(ctx, text)
		s.edit(ctx, chatID, messageID,
			fmt.Sprintf("✅ **Розсилка завершена**\n\n📤 Надіслано: %d\n❌ Помилок: %d", sent, failed), nil)

	case data == callbackCancelBroadcast:
		s.edit(ctx, chatID, messageID, "❌ Розсилка скасована.", nil)
	}
}

func (s *Service) showUsersPanel(ctx context.Context, chatID, messageID int64) {
	total, banned, err := s.users.Count(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to count users")
		s.edit(ctx, chatID, messageID, "❌ Помилка отримання статистики.", nil)
		return
	}
	markup := &tg.InlineKeyboardMarkup{InlineKeyboard: [][]tg.InlineKeyboardButton{
		{{Text: "👥 Показати всіх", CallbackData: callbackShowAllUsers}},
		{{Text: "🚫 Заблоковані", CallbackData: callbackShowBannedUsers}},
		{{Text: "ℹ️ Як заблокувати", CallbackData: callbackBanInstructions}},
		backRow(callbackMain),
	}}
	s.edit(ctx, chatID, messageID, fmt.Sprintf(
		"👥 **Управління користувачами**\n\n📊 **Статистика:**\n• Всього: %d\n• Активних: %d\n• Заблокованих: %d\n\nОберіть дію:",
		total, total-banned, banned,
	), markup)
}

func (s *Service) showStatsPanel(ctx context.Context, chatID, messageID int64) {
	total, banned, err := s.users.Count(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to count users")
		s.edit(ctx, chatID, messageID, "❌ Помилка отримання статистики.", nil)
		return
	}
	entries, err := s.dict.Count(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to count dictionary entries")
		s.edit(ctx, chatID, messageID, "❌ Помилка отримання статистики.", nil)
		return
	}
	markup := &tg.InlineKeyboardMarkup{InlineKeyboard: [][]tg.InlineKeyboardButton{backRow(callbackMain)}}
	s.edit(ctx, chatID, messageID, fmt.Sprintf(
		"📊 **Статистика бота**\n\n👥 **Користувачі:**\n• Всього: %d\n• Активних: %d\n• Заблокованих: %d\n\n📝 **База ономатопей:**\n• Всього записів: %d\n",
		total, total-banned, banned, entries,
	), markup)
}

func (s *Service) showEntriesPanel(ctx context.Context, chatID, messageID int64) {
	entries, err := s.dict.List(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list dictionary")
		s.edit(ctx, chatID, messageID, "❌ Помилка отримання бази.", nil)
		return
	}
	if len(entries) == 0 {
		s.edit(ctx, chatID, messageID, "📝 База ономатопей порожня.", nil)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📝 **База ономатопей (перші %d):**\n\n", menuEntriesLimit)
	for i, e := range entries[:min(len(entries), menuEntriesLimit)] {
		fmt.Fprintf(&b, "%d. %s → %s\n", i+1, e.Term, e.Translation)
	}
	if len(entries) > menuEntriesLimit {
		fmt.Fprintf(&b, "\n... та ще %d записів", len(entries)-menuEntriesLimit)
	}

	markup := &tg.InlineKeyboardMarkup{InlineKeyboard: [][]tg.InlineKeyboardButton{backRow(callbackDictionary)}}
	s.edit(ctx, chatID, messageID, b.String(), markup)
}

func (s *Service) showUsersList(ctx context.Context, chatID, messageID int64, bannedOnly bool) {
	users, err := s.users.List(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to list users")
		s.edit(ctx, chatID, messageID, "❌ Помилка отримання користувачів.", nil)
		return
	}
	if bannedOnly {
		filtered := users[:0]
		for _, u := range users {
			if u.IsBanned {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	if len(users) == 0 {
		s.edit(ctx, chatID, messageID, "👥 Немає користувачів.", &tg.InlineKeyboardMarkup{
			InlineKeyboard: [][]tg.InlineKeyboardButton{backRow(callbackUsers)},
		})
		return
	}

	var b strings.Builder
	if bannedOnly {
		fmt.Fprintf(&b, "🚫 **Заблоковані користувачі (перші %d):**\n\n", menuUsersLimit)
	} else {
		fmt.Fprintf(&b, "👥 **Користувачі (перші %d):**\n\n", menuUsersLimit)
	}
	for i, u := range users[:min(len(users), menuUsersLimit)] {
		status := "✅"
		if u.IsBanned {
			status = "🚫"
		}
		fmt.Fprintf(&b, "%d. %s %s (ID: %d)\n", i+1, status, u.DisplayName(), u.ID)
	}
	if len(users) > menuUsersLimit {
		fmt.Fprintf(&b, "\n... та ще %d користувачів", len(users)-menuUsersLimit)
	}

	markup := &tg.InlineKeyboardMarkup{InlineKeyboard: [][]tg.InlineKeyboardButton{backRow(callbackUsers)}}
	s.edit(ctx, chatID, messageID, b.String(), markup)
}

func (s *Service) edit(ctx context.Context, chatID, messageID int64, text string, markup *tg.InlineKeyboardMarkup) {
	if err := s.transport.EditMessageText(ctx, chatID, messageID, text, markup); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to edit menu message")
	}
}
