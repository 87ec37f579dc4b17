package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/exam-bank/backend/internal/auth"
	"github.com/ayush/exam-bank/backend/internal/metrics"
	"github.com/ayush/exam-bank/backend/internal/models"
	"github.com/ayush/exam-bank/backend/internal/store"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

const origin = "http://localhost:5173"

type testApp struct {
	srv      *httptest.Server
	client   *http.Client
	users    *store.MemoryStore
	sessions *auth.SessionStore
}

func newTestApp(t *testing.T, csrf bool, db Pinger) *testApp {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	users := store.NewMemoryStore()
	sessions := auth.NewSessionStore()
	reg := prometheus.NewRegistry()
	hasher := auth.NewArgon2Hasher(auth.Argon2Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	svc := auth.NewService(users, sessions, hasher, auth.WithLogger(log), auth.WithMetrics(metrics.New(reg, sessions.Len)))

	if db == nil {
		db = users
	}
	srv := httptest.NewServer(NewRouter(Deps{
		Auth:           auth.NewHandler(svc, auth.CookieOptions{}, log),
		Sessions:       sessions,
		Log:            log,
		AllowedOrigins: []string{origin},
		CSRF:           csrf,
		DB:             db,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testApp{srv: srv, client: &http.Client{Jar: jar}, users: users, sessions: sessions}
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func (a *testApp) do(t *testing.T, method, path string, body any, header ...string) (int, envelope, string) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	resp, err := a.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	_ = json.Unmarshal(raw, &env)
	return resp.StatusCode, env, string(raw)
}

func alice() models.RegisterRequest {
	return models.RegisterRequest{Username: "alice", Password: "longenough1", RealName: "Alice A", Role: models.RoleStudent}
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t, false, nil)

	// register, then register again
	status, env, _ := app.do(t, http.MethodPost, "/auth/register", alice())
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	status, env, _ = app.do(t, http.MethodPost, "/auth/register", alice())
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, env.Success)

	// unknown user, whatever the password
	for _, pw := range []string{"longenough1", "", "x"} {
		status, env, _ = app.do(t, http.MethodPost, "/auth/login", models.LoginRequest{Username: "ghost", Password: pw})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, "invalid username or password", env.Message)
	}

	// me before login
	status, _, _ = app.do(t, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// login
	status, env, raw := app.do(t, http.MethodPost, "/auth/login", models.LoginRequest{Username: "alice", Password: "longenough1"})
	require.Equal(t, http.StatusOK, status)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &fields))
	for _, k := range []string{"id", "username", "role", "realName", "lastLogin", "lastLoginIp"} {
		assert.Contains(t, fields, k)
	}
	assert.Len(t, fields, 6)
	assert.NotContains(t, strings.ToLower(raw), "password")
	assert.Equal(t, 1, app.sessions.Len())

	var loggedIn models.Profile
	require.NoError(t, json.Unmarshal(env.Data, &loggedIn))
	require.NotNil(t, loggedIn.LastLoginIP)
	assert.Equal(t, "127.0.0.1", *loggedIn.LastLoginIP)

	// me with the session cookie
	status, env, _ = app.do(t, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, status)
	var me models.Profile
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, loggedIn.ID, me.ID)
	assert.Equal(t, loggedIn.Username, me.Username)
	assert.Equal(t, loggedIn.Role, me.Role)
	assert.Equal(t, loggedIn.RealName, me.RealName)
	assert.Equal(t, *loggedIn.LastLoginIP, *me.LastLoginIP)

	// logout, then me again with the same cookie
	u := app.srv.URL + "/auth/me"
	req, err := http.NewRequest(http.MethodGet, u, nil)
	require.NoError(t, err)
	cookies := app.client.Jar.Cookies(req.URL)
	require.Len(t, cookies, 1)
	stale := cookies[0]

	status, env, _ = app.do(t, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "logged out", env.Message)
	assert.Equal(t, 0, app.sessions.Len())

	req.AddCookie(stale)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	status, _, _ = app.do(t, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRegister_ShortPasswordCreatesNothing(t *testing.T) {
	app := newTestApp(t, false, nil)
	req := alice()
	req.Password = "1234567"

	status, env, _ := app.do(t, http.MethodPost, "/auth/register", req)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, env.Errors, "password")
	_, err := app.users.GetUserByUsername(context.Background(), "alice")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLogoutRequiresSession(t *testing.T) {
	app := newTestApp(t, false, nil)

	status, env, _ := app.do(t, http.MethodPost, "/auth/logout", nil)

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Unauthorized", env.Message)
}

func TestCSRFProtection(t *testing.T) {
	app := newTestApp(t, true, nil)

	status, env, _ := app.do(t, http.MethodPost, "/auth/register", alice())
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "CSRF validation failed: missing origin", env.Message)

	status, _, _ = app.do(t, http.MethodPost, "/auth/register", alice(), "Origin", "https://evil.example")
	assert.Equal(t, http.StatusForbidden, status)

	status, _, _ = app.do(t, http.MethodPost, "/auth/register", alice(), "Origin", origin)
	assert.Equal(t, http.StatusOK, status)

	status, _, _ = app.do(t, http.MethodPost, "/auth/login",
		models.LoginRequest{Username: "alice", Password: "longenough1"}, "Referer", origin+"/login")
	assert.Equal(t, http.StatusOK, status)

	// safe methods are not checked
	status, _, _ = app.do(t, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestCORSPreflight(t *testing.T) {
	app := newTestApp(t, false, nil)

	req, err := http.NewRequest(http.MethodOptions, app.srv.URL+"/auth/login", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	resp, err := app.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, origin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		app := newTestApp(t, false, nil)
		resp, err := http.Get(app.srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("database down", func(t *testing.T) {
		app := newTestApp(t, false, pingFunc(func(context.Context) error { return errors.New("refused") }))
		resp, err := http.Get(app.srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.JSONEq(t, `{"status":"unavailable"}`, string(body))
	})
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, false, nil)
	_, _, _ = app.do(t, http.MethodPost, "/auth/register", alice())

	resp, err := http.Get(app.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `exambank_auth_registrations_total{result="success"} 1`)
	assert.Contains(t, string(body), "exambank_auth_active_sessions 0")
}
