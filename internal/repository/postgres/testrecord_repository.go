package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"brashlens-backend/internal/domain/testrecord"
)

type TestRecordRepository struct {
	db *gorm.DB
}

var _ testrecord.Repository = (*TestRecordRepository)(nil)

func NewTestRecordRepository(db *gorm.DB) *TestRecordRepository {
	return &TestRecordRepository{db: db}
}

func (r *TestRecordRepository) Create(ctx context.Context, message string) (*testrecord.TestConnection, error) {
	rec := &testrecord.TestConnection{ID: uuid.New(), Message: message}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *TestRecordRepository) List(ctx context.Context) ([]testrecord.TestConnection, error) {
	var recs []testrecord.TestConnection
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}
