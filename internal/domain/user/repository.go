package user

import (
	"context"
	"errors"
)

// ErrDuplicate is returned by Create when the external id is already taken.
var ErrDuplicate = errors.New("user with this telegram_id already exists")

// Repository defines persistence operations for the User aggregate.
// Lookups return (nil, nil) when the user does not exist.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*User, error)
	Update(ctx context.Context, u *User) error
	ListByRole(ctx context.Context, role Role, offset, limit int) ([]User, error)
	// SetActive returns false when no row matched.
	SetActive(ctx context.Context, id int64, active bool) (bool, error)
	// DeleteCascade removes the user and its dependents in one transaction.
	DeleteCascade(ctx context.Context, u *User) error
}

// Cache is the optional read-through cache in front of GetByTelegramID.
// Invalidate bumps the entry version; Set with an older version is a no-op,
// so a read that raced a write cannot put the old row back.
type Cache interface {
	Get(ctx context.Context, telegramID int64) (*User, error)
	Version(ctx context.Context, telegramID int64) (int64, error)
	Set(ctx context.Context, u *User, version int64) error
	Invalidate(ctx context.Context, u *User) error
}
