package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// Максимальные длины совпадают с размерами колонок
	MaxNameLength     = 255
	MaxUsernameLength = 255
	MaxMessageLength  = 255
)

// ValidateTelegramID проверяет внешний идентификатор Telegram
func ValidateTelegramID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("telegram_id must be positive")
	}
	return nil
}

// ValidateFirstName проверяет имя: обязательно, 1..255 символов после trim
func ValidateFirstName(firstName string) error {
	return requiredLength("first_name", firstName, MaxNameLength)
}

// ValidateLastName проверяет фамилию; nil означает, что поле не передано
func ValidateLastName(lastName *string) error {
	if lastName == nil {
		return nil
	}
	return maxLength("last_name", *lastName, MaxNameLength)
}

// ValidateUsername проверяет Telegram username; nil допустим
func ValidateUsername(username *string) error {
	if username == nil {
		return nil
	}
	return maxLength("username", strings.TrimPrefix(*username, "@"), MaxUsernameLength)
}

// ValidateMessage проверяет текст тестовой записи
func ValidateMessage(message string) error {
	return requiredLength("message", message, MaxMessageLength)
}

func requiredLength(field, value string, max int) error {
	value = strings.TrimSpace(value)
	if value == "" || utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%s must be 1..%d characters", field, max)
	}
	return nil
}

func maxLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%s cannot exceed %d characters", field, max)
	}
	return nil
}
