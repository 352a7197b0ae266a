package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	rcache "brashlens-backend/internal/cache/redis"
	"brashlens-backend/internal/common/cache"
	"brashlens-backend/internal/domain/profile"
	"brashlens-backend/internal/domain/testrecord"
	domain "brashlens-backend/internal/domain/user"
	"brashlens-backend/internal/metrics"
	rplatform "brashlens-backend/internal/platform/redis"
	"brashlens-backend/internal/repository/postgres"
	"brashlens-backend/internal/service/tasks"
	usersvc "brashlens-backend/internal/service/user"
)

const testBotToken = "123456:TEST-TOKEN"

type fakeDB struct {
	err error
}

func (f fakeDB) HealthCheck(context.Context) error { return f.err }

func (f fakeDB) Version(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "PostgreSQL 16.0", nil
}

type testEnv struct {
	router *gin.Engine
	mr     *miniredis.Miniredis
}

func newTestEnv(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.User{}, &profile.PhotographerProfile{},
		&profile.Settings{}, &testrecord.TestConnection{}))

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	registry := tasks.NewRegistry()
	tasks.RegisterBuiltins(registry)

	users := usersvc.NewService(
		postgres.NewUserRepository(db, postgres.NewProfileRepository(db)),
		rcache.NewUserCache(rplatform.Wrap(rdb), time.Minute),
	)

	opts := Options{
		BotToken:    testBotToken,
		Users:       users,
		DB:          fakeDB{},
		Cache:       cache.NewCacheService(rdb, 0),
		Tasks:       tasks.NewDispatcher(rdb, registry, time.Hour),
		TestRecords: postgres.NewTestRecordRepository(db),
		Metrics:     metrics.New(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	return &testEnv{router: NewRouter(opts), mr: mr}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, w, &resp)
	assert.False(t, resp.Success)
	return resp.Error.Code
}

func registration(telegramID int64, role string) map[string]interface{} {
	return map[string]interface{}{
		"telegram_id": telegramID,
		"first_name":  "Ivan",
		"role":        role,
	}
}

// signInitData builds Mini App init data signed with the bot token.
func signInitData(t *testing.T, token string, userID int64) string {
	t.Helper()
	user, err := json.Marshal(map[string]interface{}{"id": userID, "first_name": "Ivan"})
	require.NoError(t, err)

	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	values.Set("user", string(user))

	pairs := make([]string, 0, len(values))
	for k := range values {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	sort.Strings(pairs)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(token))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))
	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}

func TestUsers_CreateAndConflict(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/v1/users", registration(42, "photographer"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var u domain.User
	decode(t, w, &u)
	assert.Equal(t, int64(42), u.TelegramID)
	assert.Equal(t, domain.RolePhotographer, u.Role)
	assert.Equal(t, domain.LanguageRU, u.Language)
	assert.True(t, u.IsActive)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = env.do(t, http.MethodPost, "/api/v1/users", registration(42, "client"))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, w))
}

func TestUsers_CreateValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"admin role is not selectable", registration(1, "admin")},
		{"unknown role", registration(1, "wizard")},
		{"missing telegram id", map[string]interface{}{"first_name": "Ivan", "role": "client"}},
		{"bad language", map[string]interface{}{"telegram_id": 1, "first_name": "Ivan", "role": "client", "language": "de"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/users", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
		})
	}
}

func TestUsers_GetUpdateDeactivate(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/v1/users", registration(7, "client"))
	require.Equal(t, http.StatusCreated, w.Code)
	var created domain.User
	decode(t, w, &created)
	path := "/api/v1/users/" + strconv.FormatInt(created.ID, 10)

	w = env.do(t, http.MethodGet, "/api/v1/users/999", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "USER_NOT_FOUND", errorCode(t, w))

	w = env.do(t, http.MethodGet, "/api/v1/users/abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPatch, path, map[string]interface{}{"first_name": "Petr", "language": "en", "role": "admin"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated domain.User
	decode(t, w, &updated)
	assert.Equal(t, "Petr", updated.FirstName)
	assert.Equal(t, domain.LanguageEN, updated.Language)
	assert.Equal(t, domain.RoleClient, updated.Role)
	assert.NotNil(t, updated.UpdatedAt)

	w = env.do(t, http.MethodPatch, "/api/v1/users/999", map[string]interface{}{"first_name": "Petr"})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.User
	decode(t, w, &got)
	assert.False(t, got.IsActive)

	w = env.do(t, http.MethodDelete, "/api/v1/users/999", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUsers_ListByRole(t *testing.T) {
	env := newTestEnv(t, nil)
	for i := int64(1); i <= 3; i++ {
		require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/users", registration(100+i, "photographer")).Code)
	}
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/users", registration(200, "client")).Code)

	var users []domain.User
	w := env.do(t, http.MethodGet, "/api/v1/users?role=photographer&skip=1&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &users)
	require.Len(t, users, 2)
	assert.Equal(t, int64(102), users[0].TelegramID)

	w = env.do(t, http.MethodGet, "/api/v1/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/v1/users?role=photographer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &users)
	assert.Len(t, users, 3)

	for _, limit := range []string{"0", "-5", "5000"} {
		w = env.do(t, http.MethodGet, "/api/v1/users?role=photographer&limit="+limit, nil)
		require.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
		assert.Contains(t, w.Body.String(), `"code":"VALIDATION_ERROR"`)
	}

	w = env.do(t, http.MethodGet, "/api/v1/users?role=photographer&skip=x", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUsers_DeleteByTelegramID(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/users", registration(42, "photographer")).Code)

	// Прогреваем кэш, удаление должно его сбросить
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/users/me?telegram_id=42", nil).Code)

	w := env.do(t, http.MethodDelete, "/api/v1/users/telegram/42", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/v1/users/me?telegram_id=42", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/users/telegram/42", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUsers_Me(t *testing.T) {
	env := newTestEnv(t, nil)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/users", registration(555, "client")).Code)

	w := env.do(t, http.MethodGet, "/api/v1/users/me", nil, "X-Telegram-Init-Data", signInitData(t, testBotToken, 555))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var u domain.User
	decode(t, w, &u)
	assert.Equal(t, int64(555), u.TelegramID)

	w = env.do(t, http.MethodGet, "/api/v1/users/me", nil, "X-Telegram-Init-Data", signInitData(t, "999:OTHER", 555))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	w = env.do(t, http.MethodGet, "/api/v1/users/me", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/users/me?telegram_id=-5", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/users/me?telegram_id=556", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var h HealthResponse
	decode(t, w, &h)
	assert.Equal(t, "ok", h.Status)

	w = env.do(t, http.MethodGet, "/api/v1/health/db", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var db HealthDBResponse
	decode(t, w, &db)
	assert.Equal(t, "connected", db.Database)
	require.NotNil(t, db.Version)
	assert.Equal(t, "PostgreSQL 16.0", *db.Version)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/live", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/ready", nil).Code)
}

func TestHealth_DependenciesDown(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.DB = fakeDB{err: errors.New("connection refused")} })

	w := env.do(t, http.MethodGet, "/health/db", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var db HealthDBResponse
	decode(t, w, &db)
	assert.Equal(t, "error", db.Status)
	assert.Equal(t, "disconnected", db.Database)
	require.NotNil(t, db.Error)
	assert.Contains(t, *db.Error, "connection refused")

	env.mr.Close()
	w = env.do(t, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var ready ReadyResponse
	decode(t, w, &ready)
	assert.Equal(t, "unavailable", ready.Postgres)
	assert.Equal(t, "unavailable", ready.Redis)
}

func TestCache_Endpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/v1/cache/test", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"redis":"ok"}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/v1/cache", map[string]interface{}{"key": "greeting", "value": "hello"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"saved"}`, w.Body.String())
	assert.Equal(t, time.Hour, env.mr.TTL("kv:greeting"))

	w = env.do(t, http.MethodGet, "/api/v1/cache/greeting", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"key":"greeting","value":"hello"}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/v1/cache", map[string]interface{}{"key": "short", "value": 1, "ttl": 10})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 10*time.Second, env.mr.TTL("kv:short"))

	w = env.do(t, http.MethodGet, "/api/v1/cache/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}

func TestCache_TTLUpperBound(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/v1/cache", map[string]interface{}{"key": "month", "value": 1, "ttl": 2592000})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 30*24*time.Hour, env.mr.TTL("kv:month"))

	for _, ttl := range []int64{2592001, 9223372037} {
		w = env.do(t, http.MethodPost, "/api/v1/cache", map[string]interface{}{"key": "forever", "value": 1, "ttl": ttl})
		require.Equal(t, http.StatusBadRequest, w.Code, "ttl=%d", ttl)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	}
	assert.False(t, env.mr.Exists("kv:forever"))
}

func TestCache_CannotOverwriteUserCache(t *testing.T) {
	env := newTestEnv(t, nil)
	forged := map[string]interface{}{
		"id": 1, "telegram_id": 4242, "first_name": "Forged", "role": "admin", "language": "ru", "is_active": true,
	}

	// Пользователя нет в базе: запись в кэш не должна его создать
	w := env.do(t, http.MethodPost, "/api/v1/cache", map[string]interface{}{"key": "user:tg:4242", "value": forged})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/v1/users/me?telegram_id=4242", nil)
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())

	// Существующему пользователю нельзя подменить роль
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/v1/users", registration(4243, "client")).Code)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/users/me?telegram_id=4243", nil).Code)

	forged["telegram_id"] = 4243
	w = env.do(t, http.MethodPost, "/api/v1/cache", map[string]interface{}{"key": "user:tg:4243", "value": forged})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/users/me?telegram_id=4243", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var u domain.User
	decode(t, w, &u)
	assert.Equal(t, domain.RoleClient, u.Role)
	assert.NotEqual(t, "Forged", u.FirstName)

	// Через /cache виден только собственный ключ
	w = env.do(t, http.MethodGet, "/api/v1/cache/user:tg:4243", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Forged")
}

func TestCache_RedisDown(t *testing.T) {
	env := newTestEnv(t, nil)
	env.mr.Close()

	w := env.do(t, http.MethodGet, "/api/v1/cache/test", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"redis":"error"}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/v1/cache", map[string]interface{}{"key": "k", "value": "v"})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "CACHE_ERROR", errorCode(t, w))

	w = env.do(t, http.MethodGet, "/api/v1/cache/k", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTasks_Endpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/v1/tasks/test", map[string]interface{}{"message": "hi"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var submitted TaskSubmittedResponse
	decode(t, w, &submitted)
	require.NotEmpty(t, submitted.TaskID)

	w = env.do(t, http.MethodGet, "/api/v1/tasks/status/"+submitted.TaskID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]interface{}
	decode(t, w, &status)
	assert.Equal(t, "PENDING", status["status"])
	assert.Equal(t, submitted.TaskID, status["task_id"])

	w = env.do(t, http.MethodPost, "/api/v1/tasks/add", map[string]interface{}{"a": 2, "b": 3})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/tasks/add", map[string]interface{}{"a": 2})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/tasks/test", map[string]interface{}{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/tasks/status/unknown-id", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &status)
	assert.Equal(t, "PENDING", status["status"])

	env.mr.Close()
	w = env.do(t, http.MethodPost, "/api/v1/tasks/test", map[string]interface{}{"message": "hi"})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "TASK_QUEUE_ERROR", errorCode(t, w))
}

func TestTestRecords(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, msg := range []string{"first", "second"} {
		w := env.do(t, http.MethodPost, "/api/v1/test/db", map[string]interface{}{"message": msg})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var rec TestRecordResponse
		decode(t, w, &rec)
		assert.Equal(t, "ok", rec.Status)
		assert.NotEmpty(t, rec.ID)
	}

	w := env.do(t, http.MethodPost, "/api/v1/test/db", map[string]interface{}{"message": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/test/db", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list TestRecordsResponse
	decode(t, w, &list)
	assert.Equal(t, 2, list.Count)
	assert.Len(t, list.Records, 2)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.RateLimitEnabled = true
		o.RateLimitPerMinute = 2
	})

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/health", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/health", nil).Code)

	w := env.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "TOO_MANY_REQUESTS", errorCode(t, w))

	// Пробы вне /api/v1 не ограничиваются
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodGet, "/health", nil)

	w := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `brashlens_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
