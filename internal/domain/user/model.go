package user

import (
	"fmt"
	"strings"
	"time"

	"brashlens-backend/internal/common/validation"
)

// Role is the closed set of account roles.
type Role string

const (
	RolePhotographer Role = "photographer"
	RoleClient       Role = "client"
	RoleAdmin        Role = "admin"
)

// ParseRole accepts exactly the three known roles.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RolePhotographer, RoleClient, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Selectable reports whether a user may pick the role at registration.
func (r Role) Selectable() bool {
	return r == RolePhotographer || r == RoleClient
}

func (r Role) String() string { return string(r) }

const (
	LanguageRU = "ru"
	LanguageEN = "en"

	DefaultLanguage = LanguageRU
)

// NormalizeLanguage maps a Telegram language_code to a supported interface language.
func NormalizeLanguage(code string) string {
	switch strings.ToLower(code) {
	case LanguageRU, LanguageEN:
		return strings.ToLower(code)
	}
	return DefaultLanguage
}

// ValidLanguage reports whether lang is one of the supported interface languages.
func ValidLanguage(lang string) bool {
	return lang == LanguageRU || lang == LanguageEN
}

// User is an account mirrored from a Telegram identity.
// ID is assigned by the store; TelegramID is the external id and never changes.
type User struct {
	ID         int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	TelegramID int64      `json:"telegram_id" gorm:"uniqueIndex:ix_users_telegram_id;not null"`
	Username   *string    `json:"username" gorm:"size:255;index:ix_users_username"`
	FirstName  string     `json:"first_name" gorm:"size:255;not null"`
	LastName   *string    `json:"last_name" gorm:"size:255"`
	Role       Role       `json:"role" gorm:"type:varchar(16);not null;index:ix_users_role;index:ix_users_role_is_active,priority:1"`
	Language   string     `json:"language" gorm:"size:5;not null;default:ru"`
	IsActive   bool       `json:"is_active" gorm:"not null;default:true;index:ix_users_role_is_active,priority:2"`
	CreatedAt  time.Time  `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt  *time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}

func (User) TableName() string { return "users" }

// Create is the registration payload. Role is limited to selectable roles.
type Create struct {
	TelegramID int64   `json:"telegram_id" binding:"required,gt=0" example:"123456789"`
	Username   *string `json:"username" binding:"omitempty,max=255" example:"photographer_user"`
	FirstName  string  `json:"first_name" binding:"required,min=1,max=255" example:"Ivan"`
	LastName   *string `json:"last_name" binding:"omitempty,max=255" example:"Petrov"`
	Language   string  `json:"language" binding:"omitempty,oneof=ru en" example:"ru"`
	Role       Role    `json:"role" binding:"required,oneof=photographer client" example:"photographer"`
}

// Validate mirrors the binding rules for callers that do not go through gin.
func (c *Create) Validate() error {
	if err := validation.ValidateTelegramID(c.TelegramID); err != nil {
		return err
	}
	if err := validation.ValidateFirstName(c.FirstName); err != nil {
		return err
	}
	if err := validation.ValidateUsername(c.Username); err != nil {
		return err
	}
	if err := validation.ValidateLastName(c.LastName); err != nil {
		return err
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if !ValidLanguage(c.Language) {
		return fmt.Errorf("language must be ru or en")
	}
	if !c.Role.Selectable() {
		return fmt.Errorf("role must be photographer or client")
	}
	return nil
}

// Update carries the mutable profile fields. Role and TelegramID are absent on purpose:
// they are fixed at creation.
type Update struct {
	FirstName *string `json:"first_name" binding:"omitempty,min=1,max=255"`
	LastName  *string `json:"last_name" binding:"omitempty,max=255"`
	Language  *string `json:"language" binding:"omitempty,oneof=ru en"`
}

func (u *Update) Validate() error {
	if u.FirstName != nil {
		if err := validation.ValidateFirstName(*u.FirstName); err != nil {
			return err
		}
	}
	if err := validation.ValidateLastName(u.LastName); err != nil {
		return err
	}
	if u.Language != nil && !ValidLanguage(*u.Language) {
		return fmt.Errorf("language must be ru or en")
	}
	return nil
}

// Apply copies present fields onto the user. It reports whether anything changed.
func (u *Update) Apply(dst *User) bool {
	changed := false
	if u.FirstName != nil && *u.FirstName != dst.FirstName {
		dst.FirstName = *u.FirstName
		changed = true
	}
	if u.LastName != nil && (dst.LastName == nil || *dst.LastName != *u.LastName) {
		v := *u.LastName
		dst.LastName = &v
		changed = true
	}
	if u.Language != nil && *u.Language != dst.Language {
		dst.Language = *u.Language
		changed = true
	}
	return changed
}
