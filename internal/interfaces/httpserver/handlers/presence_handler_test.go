package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle-server/internal/domain/presence"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/handlers"
)

func TestPresenceHandler_Get(t *testing.T) {
	var ids []string
	svc := &MockPresenceService{GetFunc: func(_ context.Context, userIDs []string) ([]*presence.Presence, error) {
		ids = userIDs
		out := make([]*presence.Presence, 0, len(userIDs))
		for _, id := range userIDs {
			out = append(out, presence.Offline(id))
		}
		return out, nil
	}}
	h := handlers.NewPresenceHandler(svc, zerolog.Nop())
	router := newRouter(http.MethodGet, "/v1/presence", h.Get)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/presence?user_ids=usr_1,usr_2&user_ids=usr_3", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"usr_1", "usr_2", "usr_3"}, ids)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/presence", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	many := strings.TrimSuffix(strings.Repeat("usr_x,", presence.MaxLookup+1), ",")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/presence?user_ids="+many, nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPresenceHandler_SetStatus(t *testing.T) {
	svc := &MockPresenceService{SetStatusFunc: func(_ context.Context, userID string, status presence.Status, text *string) (*presence.Presence, error) {
		require.NotNil(t, text)
		return &presence.Presence{UserID: userID, Status: status, StatusText: *text}, nil
	}}
	h := handlers.NewPresenceHandler(svc, zerolog.Nop())
	router := newRouter(http.MethodPut, "/v1/presence", h.SetStatus)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/v1/presence", bytes.NewBufferString(`{"status":"dnd","status_text":"focus"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"dnd"`)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/v1/presence", bytes.NewBufferString(`{"status":"busy"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
