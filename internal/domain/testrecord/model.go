package testrecord

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TestConnection is a throwaway row used to check that the database is writable.
type TestConnection struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Message   string    `json:"message" gorm:"size:255;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
}

func (TestConnection) TableName() string { return "test_connections" }

// Repository stores test connection rows.
type Repository interface {
	Create(ctx context.Context, message string) (*TestConnection, error)
	// List returns all rows, newest first.
	List(ctx context.Context) ([]TestConnection, error)
}
