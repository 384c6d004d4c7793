package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle-server/internal/domain/user"
	"github.com/huddlehq/huddle-server/internal/infrastructure/auth"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
	"github.com/huddlehq/huddle-server/pkg/testhelpers"
)

type usersStub struct {
	user.Service
	EnsureUserFunc func(ctx context.Context, identity user.Identity) (*user.User, error)
}

func (s *usersStub) EnsureUser(ctx context.Context, identity user.Identity) (*user.User, error) {
	return s.EnsureUserFunc(ctx, identity)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDGeneratesAndPropagates(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())

	var fromCtx string
	engine.GET("/", func(c *gin.Context) {
		fromCtx = platformerrors.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, w.Header().Get("X-Request-Id"))
	assert.Equal(t, w.Header().Get("X-Request-Id"), fromCtx)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-123")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-Id"))
	assert.Equal(t, "req-123", fromCtx)
}

func TestAuthenticateDevHeader(t *testing.T) {
	var seen user.Identity
	users := &usersStub{EnsureUserFunc: func(_ context.Context, identity user.Identity) (*user.User, error) {
		seen = identity
		return &user.User{ID: "usr_1", DisplayName: identity.Username}, nil
	}}

	engine := gin.New()
	engine.Use(Authenticate(nil), EnsureUser(users, zerolog.Nop()))
	engine.GET("/me", func(c *gin.Context) {
		u, ok := CurrentUser(c)
		require.True(t, ok)
		c.String(http.StatusOK, u.ID)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-User-ID", "alice")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "usr_1", w.Body.String())
	assert.Equal(t, "alice", seen.Subject)
}

func TestAuthenticateBearerToken(t *testing.T) {
	issuer := testhelpers.NewIssuer(t, "huddle")
	validator := auth.NewValidatorWithKeyfunc(issuer.URL, "huddle", issuer.Keyfunc, zerolog.Nop())

	engine := gin.New()
	engine.Use(Authenticate(validator))
	engine.GET("/whoami", func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)
		require.True(t, ok)
		c.String(http.StatusOK, p.Subject)
	})

	tests := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{name: "missing", status: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "header", header: "Bearer " + issuer.Token(t, "sub-9", nil), status: http.StatusOK},
		{name: "query", query: "?access_token=" + issuer.Token(t, "sub-9", nil), status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "sub-9", w.Body.String())
			}
		})
	}
}

func TestRequireScope(t *testing.T) {
	build := func(enabled bool, scopes ...string) *gin.Engine {
		engine := gin.New()
		engine.Use(func(c *gin.Context) {
			c.Set(principalContextKey, &auth.Principal{Subject: "s", Scopes: scopes})
		})
		engine.Use(RequireScope("admin", enabled))
		engine.POST("/admin", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		return engine
	}

	tests := []struct {
		name   string
		engine *gin.Engine
		status int
	}{
		{name: "auth disabled", engine: build(false), status: http.StatusNoContent},
		{name: "missing scope", engine: build(true, "member"), status: http.StatusForbidden},
		{name: "has scope", engine: build(true, "ADMIN"), status: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin", nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

type countingLimiter struct {
	allowed int
	keys    []string
}

func (l *countingLimiter) Allow(key string) bool {
	l.keys = append(l.keys, key)
	if l.allowed == 0 {
		return false
	}
	l.allowed--
	return true
}

func TestRateLimitKeysByUser(t *testing.T) {
	limiter := &countingLimiter{allowed: 1}
	engine := gin.New()
	engine.Use(func(c *gin.Context) { SetCurrentUser(c, &user.User{ID: "usr_7"}) })
	engine.Use(RateLimit(limiter))
	engine.POST("/ai", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ai", nil))
		assert.Equal(t, want, w.Code)
	}
	assert.Equal(t, []string{"user:usr_7", "user:usr_7"}, limiter.keys)
}

func TestCORSPreflight(t *testing.T) {
	engine := gin.New()
	engine.Use(CORSMiddleware([]string{"https://app.example.com"}))
	engine.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
