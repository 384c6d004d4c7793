package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle-server/internal/domain/user"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/handlers"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

func TestUserHandler_UpdateMe(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCalled bool
	}{
		{name: "valid", body: `{"display_name":"Ada","preferred_language":"pt_BR"}`, wantStatus: http.StatusOK, wantCalled: true},
		{name: "unsupported language", body: `{"preferred_language":"xx"}`, wantStatus: http.StatusBadRequest},
		{name: "empty display name", body: `{"display_name":""}`, wantStatus: http.StatusBadRequest},
		{name: "malformed", body: `{`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &MockUserService{UpdateProfileFunc: func(_ context.Context, id string, update user.ProfileUpdate) (*user.User, error) {
				called = true
				assert.Equal(t, testUser.ID, id)
				return &user.User{ID: id, DisplayName: *update.DisplayName}, nil
			}}
			h := handlers.NewUserHandler(svc, zerolog.Nop())
			router := newRouter(http.MethodPatch, "/v1/users/me", h.UpdateMe)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPatch, "/v1/users/me", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalled, called)
		})
	}
}

func TestUserHandler_GetNotFound(t *testing.T) {
	svc := &MockUserService{GetFunc: func(ctx context.Context, id string) (*user.User, error) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "user not found", nil, "test")
	}}
	h := handlers.NewUserHandler(svc, zerolog.Nop())
	router := newRouter(http.MethodGet, "/v1/users/:id", h.Get)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/users/usr_x", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	var body platformerrors.HTTPErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not_found_error", body.Error.Type)
	assert.Equal(t, "user not found", body.Error.Message)
}

func TestUserHandler_Search(t *testing.T) {
	svc := &MockUserService{SearchFunc: func(_ context.Context, term string, limit int) ([]*user.User, error) {
		assert.Equal(t, "ad", term)
		assert.Equal(t, 5, limit)
		return nil, nil
	}}
	h := handlers.NewUserHandler(svc, zerolog.Nop())
	router := newRouter(http.MethodGet, "/v1/users", h.Search)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/users?q=ad&limit=5", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}
