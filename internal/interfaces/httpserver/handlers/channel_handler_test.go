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

	"github.com/huddlehq/huddle-server/internal/domain/channel"
	"github.com/huddlehq/huddle-server/internal/domain/query"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/handlers"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

func TestChannelHandler_Create(t *testing.T) {
	svc := &MockChannelService{CreateFunc: func(_ context.Context, userID string, params channel.CreateParams) (*channel.Channel, error) {
		assert.Equal(t, testUser.ID, userID)
		return &channel.Channel{ID: "chn_1", Name: params.Name, IsPrivate: params.IsPrivate, CreatedBy: userID}, nil
	}}
	h := handlers.NewChannelHandler(svc, zerolog.Nop())
	router := newRouter(http.MethodPost, "/v1/channels", h.Create)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/channels", bytes.NewBufferString(`{"name":"general","is_private":true}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var got channel.Channel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "chn_1", got.ID)
	assert.True(t, got.IsPrivate)
}

func TestChannelHandler_CreateRequiresName(t *testing.T) {
	h := handlers.NewChannelHandler(&MockChannelService{}, zerolog.Nop())
	router := newRouter(http.MethodPost, "/v1/channels", h.Create)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/channels", bytes.NewBufferString(`{"topic":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "name: failed required")
}

func TestChannelHandler_ListPagination(t *testing.T) {
	var seen query.Pagination
	var filter channel.ListFilter
	svc := &MockChannelService{ListFunc: func(_ context.Context, f channel.ListFilter, p query.Pagination) (query.Page[*channel.Channel], error) {
		seen, filter = p, f
		return query.Page[*channel.Channel]{Data: []*channel.Channel{{ID: "chn_2"}}, HasMore: true, NextCursor: "chn_2"}, nil
	}}
	h := handlers.NewChannelHandler(svc, zerolog.Nop())
	router := newRouter(http.MethodGet, "/v1/channels", h.List)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/channels?limit=1&cursor=chn_1&order=asc&joined=true", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, query.Pagination{Limit: 1, Cursor: "chn_1", Order: query.OrderAsc}, seen)
	assert.True(t, filter.OnlyJoined)
	assert.Equal(t, testUser.ID, filter.UserID)

	var body struct {
		Data       []channel.Channel `json:"data"`
		HasMore    bool              `json:"has_more"`
		NextCursor string            `json:"next_cursor"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.True(t, body.HasMore)
	assert.Equal(t, "chn_2", body.NextCursor)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/channels?limit=500", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChannelHandler_UpdateArchives(t *testing.T) {
	archived := false
	svc := &MockChannelService{
		SetArchivedFunc: func(_ context.Context, _, id string, value bool) (*channel.Channel, error) {
			archived = value
			return &channel.Channel{ID: id}, nil
		},
	}
	h := handlers.NewChannelHandler(svc, zerolog.Nop())
	router := newRouter(http.MethodPatch, "/v1/channels/:id", h.Update)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/v1/channels/chn_1", bytes.NewBufferString(`{"archived":true}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, archived)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/v1/channels/chn_1", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChannelHandler_AddMemberDefaultsRole(t *testing.T) {
	svc := &MockChannelService{AddMemberFunc: func(_ context.Context, actorID, id, memberID string, role channel.Role) (*channel.Member, error) {
		assert.Equal(t, channel.RoleMember, role)
		return &channel.Member{ChannelID: id, UserID: memberID, Role: role}, nil
	}}
	h := handlers.NewChannelHandler(svc, zerolog.Nop())
	router := newRouter(http.MethodPost, "/v1/channels/:id/members", h.AddMember)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/channels/chn_1/members", bytes.NewBufferString(`{"user_id":"usr_2"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/channels/chn_1/members", bytes.NewBufferString(`{"user_id":"usr_2","role":"root"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChannelHandler_LeaveConflict(t *testing.T) {
	svc := &MockChannelService{LeaveFunc: func(ctx context.Context, _, _ string) error {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "the last owner cannot leave", nil, "test")
	}}
	h := handlers.NewChannelHandler(svc, zerolog.Nop())
	router := newRouter(http.MethodPost, "/v1/channels/:id/leave", h.Leave)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/channels/chn_1/leave", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}
