package admin

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"dict-relay-bot/internal/common/logger"
	tg "dict-relay-bot/internal/platform/telegram"
)

const broadcastPrefix = "📢 **Повідомлення від адміністратора:**\n\n"

// Broadcast fans the message out to every non-banned user concurrently.
// Every recipient gets exactly one attempt; a slow or failing recipient
// never blocks or aborts the others. Returns independent success and
// failure counts once all attempts finish.
func (s *Service) Broadcast(ctx context.Context, text string) (sent, failed int64) {
	users, err := s.users.List(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Broadcast aborted: cannot list users")
		return 0, 0
	}

	runID := uuid.NewString()
	var wg sync.WaitGroup
	var sentCount, failedCount int64

	for _, u := range users {
		if u.IsBanned {
			continue
		}
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			err := s.transport.SendMessage(ctx, userID, broadcastPrefix+text, &tg.SendOptions{ParseMode: "Markdown"})
			if err != nil {
				atomic.AddInt64(&failedCount, 1)
				logger.Error().Err(err).
					Str("run_id", runID).
					Int64("user_id", userID).
					Msg("Broadcast delivery failed")
				return
			}
			atomic.AddInt64(&sentCount, 1)
		}(u.ID)
	}
	wg.Wait()

	logger.Info().
		Str("run_id", runID).
		Int64("sent", sentCount).
		Int64("failed", failedCount).
		Msg("Broadcast finished")
	return sentCount, failedCount
}
