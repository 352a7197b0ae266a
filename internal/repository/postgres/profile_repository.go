package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"brashlens-backend/internal/domain/profile"
)

// ProfileRepository stores photographer profiles and their settings.
// It also removes them when the owning user is deleted.
type ProfileRepository struct {
	db *gorm.DB
}

var _ DependentRemover = (*ProfileRepository)(nil)

func NewProfileRepository(db *gorm.DB) *ProfileRepository { return &ProfileRepository{db: db} }

// Create inserts the profile and, when present, its settings.
func (r *ProfileRepository) Create(ctx context.Context, p *profile.PhotographerProfile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// GetByTelegramID returns the profile with settings preloaded. Returns nil if not found.
func (r *ProfileRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*profile.PhotographerProfile, error) {
	var p profile.PhotographerProfile
	err := r.db.WithContext(ctx).
		Preload("Settings").
		Where("telegram_id = ?", telegramID).
		Take(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// RemoveForUser deletes the profile owned by telegramID and its settings.
// A user without a profile is not an error.
func (r *ProfileRepository) RemoveForUser(ctx context.Context, tx *gorm.DB, telegramID int64) error {
	var p profile.PhotographerProfile
	err := tx.WithContext(ctx).Where("telegram_id = ?", telegramID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find profile: %w", err)
	}

	if err := tx.WithContext(ctx).Where("profile_id = ?", p.ID).Delete(&profile.Settings{}).Error; err != nil {
		return fmt.Errorf("delete profile settings: %w", err)
	}
	if err := tx.WithContext(ctx).Where("id = ?", p.ID).Delete(&profile.PhotographerProfile{}).Error; err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}
