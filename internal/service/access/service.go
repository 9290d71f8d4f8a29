package access

import (
	"context"

	apperrors "dict-relay-bot/internal/common/errors"
	"dict-relay-bot/internal/common/logger"
	domain "dict-relay-bot/internal/domain/user"
)

// Service enforces the ban list. It is the sole writer of the ban flag.
type Service struct {
	users   domain.Repository
	adminID int64
}

func NewService(users domain.Repository, adminID int64) *Service {
	return &Service{users: users, adminID: adminID}
}

// IsAdmin reports whether the id is the fixed operator account.
func (s *Service) IsAdmin(userID int64) bool {
	return userID == s.adminID
}

// IsBanned reports whether inbound processing must stop for this user.
// The operator is never banned. Unknown users and storage failures resolve
// to "not banned": the gate fails open so a storage hiccup cannot lock
// everyone out.
func (s *Service) IsBanned(ctx context.Context, userID int64) bool {
	if s.IsAdmin(userID) {
		return false
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Int64("user_id", userID).Msg("Ban check failed")
		return false
	}
	return u != nil && u.IsBanned
}

// Ban blocks a user. Banning the operator is rejected unconditionally.
func (s *Service) Ban(ctx context.Context, userID int64) error {
	if s.IsAdmin(userID) {
		return apperrors.New(apperrors.ErrCodeValidation, "cannot ban the administrator").
			WithDetail("user_id", userID)
	}
	ok, err := s.users.SetBanned(ctx, userID, true)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewUserNotFoundError(userID)
	}
	logger.Info().Int64("user_id", userID).Msg("User banned")
	return nil
}

// Unban lifts a ban.
func (s *Service) Unban(ctx context.Context, userID int64) error {
	ok, err := s.users.SetBanned(ctx, userID, false)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewUserNotFoundError(userID)
	}
	logger.Info().Int64("user_id", userID).Msg("User unbanned")
	return nil
}
