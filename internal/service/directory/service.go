package directory

import (
	"context"
	"fmt"

	"dict-relay-bot/internal/common/logger"
	domain "dict-relay-bot/internal/domain/user"
	tg "dict-relay-bot/internal/platform/telegram"
	tgutils "dict-relay-bot/internal/utils/telegram"
)

// Transport is the subset of the Telegram client the directory needs.
type Transport interface {
	CreateForumTopic(ctx context.Context, chatID int64, name string) (int64, error)
	SendMessage(ctx context.Context, chatID int64, text string, opts *tg.SendOptions) error
}

// Service owns the user ⇄ discussion-thread mapping. It is the sole writer
// of thread assignments.
type Service struct {
	users     domain.Repository
	transport Transport
	groupID   int64
	adminID   int64
}

func NewService(users domain.Repository, transport Transport, groupID, adminID int64) *Service {
	return &Service{users: users, transport: transport, groupID: groupID, adminID: adminID}
}

// EnsureThread returns the discussion thread for the user, lazily creating
// one on first contact. The whole operation is best effort: when topic
// creation fails the relay proceeds threadless, and a failure of any
// follow-up notification keeps the mapping (no rollback).
func (s *Service) EnsureThread(ctx context.Context, u *domain.User) (int64, bool) {
	if u.ThreadID != 0 {
		return u.ThreadID, true
	}

	threadID, err := s.transport.CreateForumTopic(ctx, s.groupID, tgutils.ThreadName(u))
	if err != nil {
		logger.Error().Err(err).Int64("user_id", u.ID).Msg("Failed to create discussion thread")
		return 0, false
	}

	if ok, err := s.users.SetThreadID(ctx, u.ID, threadID); err != nil || !ok {
		// The topic exists but the mapping did not stick; operator replies
		// in it will be dropped until the next successful assignment.
		logger.Error().Err(err).
			Int64("user_id", u.ID).
			Int64("thread_id", threadID).
			Msg("Failed to persist thread mapping")
	}
	u.ThreadID = threadID

	// Second transport call: post the user card into the fresh thread.
	card := fmt.Sprintf("🆕 **Новий користувач**\n\n%s", tgutils.FormatUserInfo(u))
	if err := s.transport.SendMessage(ctx, s.groupID, card, &tg.SendOptions{ThreadID: threadID, ParseMode: "Markdown"}); err != nil {
		logger.Error().Err(err).Int64("thread_id", threadID).Msg("Failed to post user card into thread")
	}

	s.notifyAdmin(ctx, u, threadID)

	logger.Info().Int64("user_id", u.ID).Int64("thread_id", threadID).Msg("Discussion thread created")
	return threadID, true
}

func (s *Service) notifyAdmin(ctx context.Context, u *domain.User, threadID int64) {
	text := fmt.Sprintf("🆕 Новий користувач приєднався:\n%s\n🧵 Thread ID: %d", tgutils.FormatUserInfo(u), threadID)
	if err := s.transport.SendMessage(ctx, s.adminID, text, &tg.SendOptions{ParseMode: "Markdown"}); err != nil {
		logger.Error().Err(err).Int64("user_id", u.ID).Msg("Failed to notify admin about new user")
	}
}
