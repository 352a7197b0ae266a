package user

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "brashlens-backend/internal/common/errors"
	domain "brashlens-backend/internal/domain/user"
)

// MockRepository is a mock implementation of domain.Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockRepository) ListByRole(ctx context.Context, role domain.Role, offset, limit int) ([]domain.User, error) {
	args := m.Called(ctx, role, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockRepository) SetActive(ctx context.Context, id int64, active bool) (bool, error) {
	args := m.Called(ctx, id, active)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) DeleteCascade(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

// MockCache is a mock implementation of domain.Cache.
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, telegramID int64) (*domain.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockCache) Version(ctx context.Context, telegramID int64) (int64, error) {
	args := m.Called(ctx, telegramID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, u *domain.User, version int64) error {
	args := m.Called(ctx, u, version)
	return args.Error(0)
}

func (m *MockCache) Invalidate(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func strPtr(s string) *string { return &s }

func TestService_CreateUser(t *testing.T) {
	tests := []struct {
		name      string
		input     domain.Create
		setupMock func(*MockRepository)
		wantCode  apperrors.ErrorCode
	}{
		{
			name:  "success defaults language",
			input: domain.Create{TelegramID: 42, FirstName: "Anna", Role: domain.RoleClient},
			setupMock: func(repo *MockRepository) {
				repo.On("GetByTelegramID", mock.Anything, int64(42)).Return(nil, nil)
				repo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
					return u.TelegramID == 42 && u.Language == domain.LanguageRU && u.IsActive
				})).Run(func(args mock.Arguments) {
					args.Get(1).(*domain.User).ID = 1
				}).Return(nil)
			},
		},
		{
			name:  "existing telegram id",
			input: domain.Create{TelegramID: 7, FirstName: "Ivan", Role: domain.RoleClient},
			setupMock: func(repo *MockRepository) {
				repo.On("GetByTelegramID", mock.Anything, int64(7)).Return(&domain.User{ID: 1, TelegramID: 7}, nil)
			},
			wantCode: apperrors.ErrCodeConflict,
		},
		{
			name:  "unique violation from store",
			input: domain.Create{TelegramID: 8, FirstName: "Ivan", Role: domain.RolePhotographer},
			setupMock: func(repo *MockRepository) {
				repo.On("GetByTelegramID", mock.Anything, int64(8)).Return(nil, nil)
				repo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrDuplicate)
			},
			wantCode: apperrors.ErrCodeConflict,
		},
		{
			name:      "admin is not selectable",
			input:     domain.Create{TelegramID: 9, FirstName: "Root", Role: domain.RoleAdmin},
			setupMock: func(repo *MockRepository) {},
			wantCode:  apperrors.ErrCodeValidation,
		},
		{
			name:  "store failure",
			input: domain.Create{TelegramID: 10, FirstName: "Ivan", Role: domain.RoleClient},
			setupMock: func(repo *MockRepository) {
				repo.On("GetByTelegramID", mock.Anything, int64(10)).Return(nil, errors.New("connection refused"))
			},
			wantCode: apperrors.ErrCodeDatabaseError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMock(repo)
			svc := NewService(repo, nil)

			u, err := svc.CreateUser(context.Background(), tt.input)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, apperrors.HasCode(err, tt.wantCode), "got %v", err)
				assert.Nil(t, u)
			} else {
				require.NoError(t, err)
				require.NotNil(t, u)
				assert.Equal(t, int64(1), u.ID)
				assert.Equal(t, tt.input.Role, u.Role)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_GetByTelegramID_ReadThrough(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	cache := new(MockCache)
	stored := &domain.User{ID: 3, TelegramID: 42, Role: domain.RoleClient}

	cache.On("Get", ctx, int64(42)).Return(nil, nil).Once()
	cache.On("Version", ctx, int64(42)).Return(int64(3), nil).Once()
	repo.On("GetByTelegramID", ctx, int64(42)).Return(stored, nil).Once()
	cache.On("Set", ctx, stored, int64(3)).Return(nil).Once()

	svc := NewService(repo, cache)
	u, err := svc.GetByTelegramID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, stored, u)

	cache.On("Get", ctx, int64(42)).Return(stored, nil).Once()
	u, err = svc.GetByTelegramID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, stored, u)

	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestService_GetByTelegramID_CacheFailureIsSoft(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	cache := new(MockCache)

	cache.On("Get", ctx, int64(5)).Return(nil, errors.New("redis down"))
	repo.On("GetByTelegramID", ctx, int64(5)).Return(nil, nil)

	u, err := NewService(repo, cache).GetByTelegramID(ctx, 5)
	assert.NoError(t, err)
	assert.Nil(t, u)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_GetByTelegramID_VersionFailureSkipsSet(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	cache := new(MockCache)
	stored := &domain.User{ID: 3, TelegramID: 6}

	cache.On("Get", ctx, int64(6)).Return(nil, nil)
	cache.On("Version", ctx, int64(6)).Return(int64(0), errors.New("redis down"))
	repo.On("GetByTelegramID", ctx, int64(6)).Return(stored, nil)

	u, err := NewService(repo, cache).GetByTelegramID(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, stored, u)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_UpdateUser_IgnoresRole(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	cache := new(MockCache)
	stored := &domain.User{ID: 1, TelegramID: 42, FirstName: "Anna", Role: domain.RoleClient, Language: "ru"}

	repo.On("GetByID", ctx, int64(1)).Return(stored, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.FirstName == "Anya" && u.Role == domain.RoleClient && u.TelegramID == 42
	})).Return(nil)
	cache.On("Invalidate", ctx, mock.Anything).Return(errors.New("redis down"))

	u, err := NewService(repo, cache).UpdateUser(ctx, 1, domain.Update{FirstName: strPtr("Anya")})
	require.NoError(t, err)
	assert.Equal(t, "Anya", u.FirstName)
	assert.Equal(t, domain.RoleClient, u.Role)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestService_UpdateUser_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("GetByID", ctx, int64(99)).Return(nil, nil)

	u, err := NewService(repo, nil).UpdateUser(ctx, 99, domain.Update{Language: strPtr("en")})
	assert.NoError(t, err)
	assert.Nil(t, u)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestService_UpdateUser_InvalidLanguage(t *testing.T) {
	_, err := NewService(new(MockRepository), nil).UpdateUser(context.Background(), 1, domain.Update{Language: strPtr("de")})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestService_ListByRole(t *testing.T) {
	ctx := context.Background()

	t.Run("empty role returns empty list", func(t *testing.T) {
		repo := new(MockRepository)
		users, err := NewService(repo, nil).ListByRole(ctx, "", 0, 10)
		require.NoError(t, err)
		assert.Empty(t, users)
		assert.NotNil(t, users)
		repo.AssertNotCalled(t, "ListByRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := NewService(new(MockRepository), nil).ListByRole(ctx, "wizard", 0, 10)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
	})

	t.Run("default limit", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListByRole", ctx, domain.RolePhotographer, 0, DefaultListLimit).Return([]domain.User{{ID: 1}}, nil)
		users, err := NewService(repo, nil).ListByRole(ctx, "photographer", 0, DefaultListLimit)
		require.NoError(t, err)
		assert.Len(t, users, 1)
		repo.AssertExpectations(t)
	})

	t.Run("limit out of range", func(t *testing.T) {
		for _, limit := range []int{0, -5, 1001} {
			_, err := NewService(new(MockRepository), nil).ListByRole(ctx, "client", 0, limit)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation), "limit=%d", limit)
		}
	})
}

func TestService_DeactivateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByID", ctx, int64(5)).Return(nil, nil)
		ok, err := NewService(repo, nil).DeactivateUser(ctx, 5)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("existing", func(t *testing.T) {
		repo := new(MockRepository)
		cache := new(MockCache)
		u := &domain.User{ID: 5, TelegramID: 55, IsActive: true}
		repo.On("GetByID", ctx, int64(5)).Return(u, nil)
		repo.On("SetActive", ctx, int64(5), false).Return(true, nil)
		cache.On("Invalidate", ctx, u).Return(nil)

		ok, err := NewService(repo, cache).DeactivateUser(ctx, 5)
		require.NoError(t, err)
		assert.True(t, ok)
		cache.AssertExpectations(t)
	})
}

func TestService_GetOrCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("existing", func(t *testing.T) {
		repo := new(MockRepository)
		u := &domain.User{ID: 1, TelegramID: 42}
		repo.On("GetByTelegramID", ctx, int64(42)).Return(u, nil)

		got, created, err := NewService(repo, nil).GetOrCreateUser(ctx, domain.Create{TelegramID: 42, FirstName: "A", Role: domain.RoleClient})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, u, got)
	})

	t.Run("new", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByTelegramID", ctx, int64(43)).Return(nil, nil)
		repo.On("Create", ctx, mock.Anything).Return(nil)

		got, created, err := NewService(repo, nil).GetOrCreateUser(ctx, domain.Create{TelegramID: 43, FirstName: "B", Role: domain.RolePhotographer})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, int64(43), got.TelegramID)
	})
}

func TestService_DeleteByTelegramID(t *testing.T) {
	ctx := context.Background()

	t.Run("absent user performs no writes", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByTelegramID", ctx, int64(404)).Return(nil, nil)

		ok, err := NewService(repo, nil).DeleteByTelegramID(ctx, 404)
		require.NoError(t, err)
		assert.False(t, ok)
		repo.AssertNotCalled(t, "DeleteCascade", mock.Anything, mock.Anything)
	})

	t.Run("success invalidates cache", func(t *testing.T) {
		repo := new(MockRepository)
		cache := new(MockCache)
		u := &domain.User{ID: 1, TelegramID: 42}
		repo.On("GetByTelegramID", ctx, int64(42)).Return(u, nil)
		repo.On("DeleteCascade", ctx, u).Return(nil)
		cache.On("Invalidate", ctx, u).Return(nil)

		ok, err := NewService(repo, cache).DeleteByTelegramID(ctx, 42)
		require.NoError(t, err)
		assert.True(t, ok)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("rollback surfaces transaction failure", func(t *testing.T) {
		repo := new(MockRepository)
		u := &domain.User{ID: 1, TelegramID: 42}
		repo.On("GetByTelegramID", ctx, int64(42)).Return(u, nil)
		repo.On("DeleteCascade", ctx, u).Return(errors.New("deadlock detected"))

		ok, err := NewService(repo, nil).DeleteByTelegramID(ctx, 42)
		assert.False(t, ok)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTransactionFailed))
	})
}
