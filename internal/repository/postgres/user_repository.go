package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	domain "brashlens-backend/internal/domain/user"
)

// DependentRemover deletes rows owned by a user. It runs inside the deletion transaction,
// so it must use tx and nothing else.
type DependentRemover interface {
	RemoveForUser(ctx context.Context, tx *gorm.DB, telegramID int64) error
}

// NoopRemover is used when no module owns rows keyed by the user.
type NoopRemover struct{}

func (NoopRemover) RemoveForUser(context.Context, *gorm.DB, int64) error { return nil }

// UserRepository provides CRUD operations for users in Postgres.
type UserRepository struct {
	db      *gorm.DB
	remover DependentRemover
}

var _ domain.Repository = (*UserRepository)(nil)

func NewUserRepository(db *gorm.DB, remover DependentRemover) *UserRepository {
	if remover == nil {
		remover = NoopRemover{}
	}
	return &UserRepository{db: db, remover: remover}
}

// Create inserts a new user. A taken telegram_id yields domain.ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if u.Language == "" {
		u.Language = domain.DefaultLanguage
	}
	err := r.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrDuplicate
	}
	return err
}

// GetByID returns a user by internal id. Returns nil if not found.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetByTelegramID returns a user by Telegram ID. Returns nil if not found.
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).Take(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Update writes the mutable profile columns only; role and telegram_id are never part of the statement.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	now := time.Now().UTC()
	u.UpdatedAt = &now
	return r.db.WithContext(ctx).
		Model(&domain.User{ID: u.ID}).
		Updates(map[string]interface{}{
			"first_name": u.FirstName,
			"last_name":  u.LastName,
			"language":   u.Language,
			"updated_at": now,
		}).Error
}

// ListByRole returns active users with the role ordered by id.
func (r *UserRepository) ListByRole(ctx context.Context, role domain.Role, offset, limit int) ([]domain.User, error) {
	if offset < 0 {
		offset = 0
	}
	var users []domain.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", role, true).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// SetActive flips is_active. Returns false when no row matched.
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteCascade removes dependents and the user row in one transaction.
func (r *UserRepository) DeleteCascade(ctx context.Context, u *domain.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.remover.RemoveForUser(ctx, tx, u.TelegramID); err != nil {
			return fmt.Errorf("remove dependents of %d: %w", u.TelegramID, err)
		}
		res := tx.Where("id = ?", u.ID).Delete(&domain.User{})
		if res.Error != nil {
			return fmt.Errorf("delete user %d: %w", u.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("delete user %d: %w", u.ID, gorm.ErrRecordNotFound)
		}
		return nil
	})
}
