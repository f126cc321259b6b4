package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/taskboard-dev/taskboard/backend/internal/config"
	"github.com/taskboard-dev/taskboard/backend/internal/domain"
	"github.com/taskboard-dev/taskboard/backend/internal/token"
	"golang.org/x/crypto/bcrypt"
)

func normalizeStatsKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

type testEnv struct {
	cfg     *config.Config
	handler *Handler
	store   *fakeStore
	pub     *fakePublisher
	redis   *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.Expiration = 3600
	cfg.RabbitMQ.PublishTimeout = 1
	cfg.Redis.OperationExpiration = 10
	cfg.OTP.Expiration = 900

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store := newFakeStore()
	pub := &fakePublisher{}

	h, err := NewHandler(cfg, store, pub, rdb)
	require.NoError(t, err)
	h.RegisterRoutes()

	return &testEnv{
		cfg:     cfg,
		handler: h,
		store:   store,
		pub:     pub,
		redis:   mr,
	}
}

// createUser 直接往存储中插入一个用户并返回它。
func (e *testEnv) createUser(t *testing.T, name, email, password string, role domain.Role) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	require.NoError(t, e.store.CreateUser(user))
	return user
}

func (e *testEnv) tokenFor(t *testing.T, user *domain.User) string {
	t.Helper()

	ss, err := token.Issue(e.cfg.JWT.Secret, time.Duration(e.cfg.JWT.Expiration)*time.Second, user)
	require.NoError(t, err)
	return ss
}

func (e *testEnv) request(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	e.handler.Mux.ServeHTTP(rec, req)
	return rec
}

// envelope 与 Response 一致，但 Data 保留原始 JSON 以便按需解码。
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) envelope {
	t.Helper()

	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Data)
	require.NoError(t, json.Unmarshal(env.Data, v))
	return env
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, "body: %s", rec.Body.String())
}
