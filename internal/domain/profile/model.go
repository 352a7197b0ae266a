package profile

import "time"

// PhotographerProfile is the public card of a photographer, owned by the user with the
// same Telegram ID. It is removed together with the account.
type PhotographerProfile struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	TelegramID  int64     `json:"telegram_id" gorm:"uniqueIndex:ix_photographer_profiles_telegram_id;not null"`
	DisplayName string    `json:"display_name" gorm:"size:255;not null"`
	City        string    `json:"city" gorm:"size:255"`
	Currency    string    `json:"currency" gorm:"size:3;not null;default:RUB"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Settings *Settings `json:"settings,omitempty" gorm:"foreignKey:ProfileID"`
}

func (PhotographerProfile) TableName() string { return "photographer_profiles" }

// Settings holds per-profile preferences.
type Settings struct {
	ID                   int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	ProfileID            int64  `json:"profile_id" gorm:"uniqueIndex:ix_profile_settings_profile_id;not null"`
	NotificationsEnabled bool   `json:"notifications_enabled" gorm:"not null;default:true"`
	Timezone             string `json:"timezone" gorm:"size:64;not null;default:Europe/Moscow"`
}

func (Settings) TableName() string { return "profile_settings" }
