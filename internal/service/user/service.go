package user

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	apperrors "brashlens-backend/internal/common/errors"
	"brashlens-backend/internal/common/logger"
	domain "brashlens-backend/internal/domain/user"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Service orchestrates user access with repository and cache.
// Lookups return (nil, nil) for a missing user.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
	log   zerolog.Logger
}

// NewService wires the store. cache may be nil.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{repo: repo, cache: cache, log: logger.Component("user_service")}
}

// CreateUser registers a new account. A taken telegram_id is a CONFLICT.
func (s *Service) CreateUser(ctx context.Context, in domain.Create) (*domain.User, error) {
	if err := in.Validate(); err != nil {
		return nil, apperrors.NewValidationError("user", err.Error())
	}

	existing, err := s.repo.GetByTelegramID(ctx, in.TelegramID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get user by telegram_id", err)
	}
	if existing != nil {
		return nil, conflict(in.TelegramID)
	}

	u := &domain.User{
		TelegramID: in.TelegramID,
		Username:   in.Username,
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   in.LastName,
		Role:       in.Role,
		Language:   in.Language,
		IsActive:   true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		// Lost the race against a concurrent registration.
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, conflict(in.TelegramID)
		}
		return nil, apperrors.NewDatabaseError("create user", err)
	}

	s.log.Info().
		Int64("telegram_id", u.TelegramID).
		Int64("user_id", u.ID).
		Str("role", u.Role.String()).
		Msg("User created")
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get user by id", err)
	}
	return u, nil
}

// GetByTelegramID reads through the user cache.
// The cache version is taken before the database read; an invalidation in
// between makes the later Set a no-op.
func (s *Service) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	cacheable := false
	var version int64
	if s.cache != nil {
		u, err := s.cache.Get(ctx, telegramID)
		if err != nil {
			s.log.Warn().Err(err).Int64("telegram_id", telegramID).Msg("User cache read failed")
		} else if u != nil {
			return u, nil
		} else if version, err = s.cache.Version(ctx, telegramID); err != nil {
			s.log.Warn().Err(err).Int64("telegram_id", telegramID).Msg("User cache version read failed")
		} else {
			cacheable = true
		}
	}

	u, err := s.repo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get user by telegram_id", err)
	}
	if u == nil {
		return nil, nil
	}

	if cacheable {
		if err := s.cache.Set(ctx, u, version); err != nil {
			s.log.Warn().Err(err).Int64("telegram_id", telegramID).Msg("User cache write failed")
		}
	}
	return u, nil
}

// UpdateUser applies the present fields. Returns nil when the user does not exist.
func (s *Service) UpdateUser(ctx context.Context, id int64, upd domain.Update) (*domain.User, error) {
	if err := upd.Validate(); err != nil {
		return nil, apperrors.NewValidationError("user", err.Error())
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get user by id", err)
	}
	if u == nil {
		return nil, nil
	}

	if !upd.Apply(u) {
		return u, nil
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, apperrors.NewDatabaseError("update user", err)
	}
	s.invalidate(ctx, u)
	return u, nil
}

// ListByRole returns active users with the role. An empty role yields an empty list.
// limit must be within 1..MaxListLimit; callers apply DefaultListLimit themselves.
func (s *Service) ListByRole(ctx context.Context, role string, offset, limit int) ([]domain.User, error) {
	if offset < 0 {
		return nil, apperrors.NewValidationError("skip", "must be non-negative")
	}
	if limit < 1 || limit > MaxListLimit {
		return nil, apperrors.NewValidationError("limit", "must be between 1 and 1000")
	}
	if strings.TrimSpace(role) == "" {
		return []domain.User{}, nil
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return nil, apperrors.NewValidationError("role", err.Error())
	}

	users, err := s.repo.ListByRole(ctx, r, offset, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list users by role", err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// DeactivateUser soft-deletes the account. Returns false when it does not exist.
func (s *Service) DeactivateUser(ctx context.Context, id int64) (bool, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, apperrors.NewDatabaseError("get user by id", err)
	}
	if u == nil {
		return false, nil
	}

	ok, err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		return false, apperrors.NewDatabaseError("deactivate user", err)
	}
	if ok {
		s.invalidate(ctx, u)
		s.log.Info().Int64("user_id", id).Msg("User deactivated")
	}
	return ok, nil
}

// GetOrCreateUser returns the existing account or registers a new one.
func (s *Service) GetOrCreateUser(ctx context.Context, in domain.Create) (*domain.User, bool, error) {
	u, err := s.GetByTelegramID(ctx, in.TelegramID)
	if err != nil {
		return nil, false, err
	}
	if u != nil {
		return u, false, nil
	}

	u, err = s.CreateUser(ctx, in)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeConflict) {
			u, getErr := s.GetByTelegramID(ctx, in.TelegramID)
			if getErr == nil && u != nil {
				return u, false, nil
			}
		}
		return nil, false, err
	}
	return u, true, nil
}

// DeleteByTelegramID removes the account and everything it owns in one transaction.
// Returns false, nil when there is nothing to delete.
func (s *Service) DeleteByTelegramID(ctx context.Context, telegramID int64) (bool, error) {
	u, err := s.repo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return false, apperrors.NewDatabaseError("get user by telegram_id", err)
	}
	if u == nil {
		return false, nil
	}

	if err := s.repo.DeleteCascade(ctx, u); err != nil {
		s.log.Error().Err(err).
			Int64("telegram_id", telegramID).
			Int64("user_id", u.ID).
			Msg("User deletion rolled back")
		return false, apperrors.NewTransactionError("delete user", err).
			WithDetail("telegram_id", telegramID)
	}

	s.invalidate(ctx, u)
	s.log.Info().Int64("telegram_id", telegramID).Msg("User deleted")
	return true, nil
}

func (s *Service) invalidate(ctx context.Context, u *domain.User) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, u); err != nil {
		s.log.Warn().Err(err).Int64("telegram_id", u.TelegramID).Msg("User cache invalidation failed")
	}
}

func conflict(telegramID int64) *apperrors.AppError {
	return apperrors.NewConflictError("user", "telegram_id already registered").
		WithDetail("telegram_id", telegramID)
}
