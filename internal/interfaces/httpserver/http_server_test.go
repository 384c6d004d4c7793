package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle-server/internal/config"
	"github.com/huddlehq/huddle-server/internal/domain/user"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/handlers"
)

type stubUsers struct {
	user.Service
}

func (stubUsers) EnsureUser(_ context.Context, identity user.Identity) (*user.User, error) {
	return &user.User{ID: "usr_" + identity.Subject, DisplayName: identity.Subject}, nil
}

func newTestServer(t *testing.T, checks map[string]ReadinessCheck) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		ServiceName:       "huddle",
		ServiceVersion:    "test",
		Environment:       "test",
		CORSOrigins:       []string{"*"},
		AdminScope:        "admin",
		FileMaxBytes:      1 << 20,
		RealtimeKeepAlive: 0,
	}
	srv, err := New(cfg, zerolog.Nop(), handlers.Services{Users: stubUsers{}}, Options{Checks: checks})
	require.NoError(t, err)
	return srv.Handler()
}

func TestPublicRoutes(t *testing.T) {
	h := newTestServer(t, map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"not_ready","checks":{"database":"ok","redis":"connection refused"}}`, w.Body.String())

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "huddle_http_requests_total")
}

func TestProtectedRoutesNeedCaller(t *testing.T) {
	h := newTestServer(t, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	req.Header.Set("X-User-ID", "grace")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"usr_grace"`)
}
