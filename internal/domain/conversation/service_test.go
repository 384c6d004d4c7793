package conversation_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/content/contenttest"
	"github.com/huddlehq/huddle-server/internal/domain/conversation"
	"github.com/huddlehq/huddle-server/internal/domain/file"
	"github.com/huddlehq/huddle-server/internal/domain/query"
	"github.com/huddlehq/huddle-server/internal/domain/user"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

type memoryRepository struct {
	mu            sync.Mutex
	conversations map[string]*conversation.Conversation
	participants  map[string]map[string]*conversation.Participant
	messages      map[string]*conversation.Message
	comments      map[string]*conversation.Comment
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		conversations: map[string]*conversation.Conversation{},
		participants:  map[string]map[string]*conversation.Participant{},
		messages:      map[string]*conversation.Message{},
		comments:      map[string]*conversation.Comment{},
	}
}

func errOf(ctx context.Context, t platformerrors.ErrorType) error {
	return platformerrors.NewError(ctx, platformerrors.LayerRepository, t, string(t), nil, "test")
}

func (r *memoryRepository) Create(ctx context.Context, c *conversation.Conversation, participants []*conversation.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.DirectKey != nil {
		for _, existing := range r.conversations {
			if existing.DirectKey != nil && *existing.DirectKey == *c.DirectKey {
				return errOf(ctx, platformerrors.ErrorTypeConflict)
			}
		}
	}
	copied := *c
	r.conversations[c.ID] = &copied
	r.participants[c.ID] = map[string]*conversation.Participant{}
	for _, p := range participants {
		r.participants[c.ID][p.UserID] = p
	}
	return nil
}

func (r *memoryRepository) FindByID(ctx context.Context, id string) (*conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, errOf(ctx, platformerrors.ErrorTypeNotFound)
	}
	copied := *c
	return &copied, nil
}

func (r *memoryRepository) FindByDirectKey(ctx context.Context, key string) (*conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conversations {
		if c.DirectKey != nil && *c.DirectKey == key {
			copied := *c
			return &copied, nil
		}
	}
	return nil, errOf(ctx, platformerrors.ErrorTypeNotFound)
}

func (r *memoryRepository) ListForUser(_ context.Context, userID string, p query.Pagination) ([]*conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*conversation.Conversation
	for id, c := range r.conversations {
		if _, ok := r.participants[id][userID]; ok {
			copied := *c
			out = append(out, &copied)
		}
	}
	activity := func(c *conversation.Conversation) time.Time {
		if c.LastMessageAt != nil {
			return *c.LastMessageAt
		}
		return c.CreatedAt
	}
	sort.Slice(out, func(i, j int) bool { return activity(out[i]).After(activity(out[j])) })
	return out, nil
}

func (r *memoryRepository) ListParticipants(_ context.Context, ids []string) ([]*conversation.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*conversation.Participant
	for _, id := range ids {
		for _, p := range r.participants[id] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepository) GetParticipant(ctx context.Context, conversationID, userID string) (*conversation.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[conversationID][userID]
	if !ok {
		return nil, errOf(ctx, platformerrors.ErrorTypeNotFound)
	}
	return p, nil
}

func (r *memoryRepository) AddParticipant(_ context.Context, p *conversation.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[p.ConversationID][p.UserID] = p
	return nil
}

func (r *memoryRepository) RemoveParticipant(_ context.Context, conversationID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.participants[conversationID], userID)
	return nil
}

func (r *memoryRepository) MarkRead(_ context.Context, conversationID, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.participants[conversationID][userID].LastReadAt = &at
	return nil
}

func (r *memoryRepository) CreateMessage(_ context.Context, m *conversation.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *m
	r.messages[m.ID] = &copied
	at := m.CreatedAt
	r.conversations[m.ConversationID].LastMessageAt = &at
	return nil
}

func (r *memoryRepository) FindMessage(ctx context.Context, id string) (*conversation.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, errOf(ctx, platformerrors.ErrorTypeNotFound)
	}
	copied := *m
	return &copied, nil
}

func (r *memoryRepository) ListMessages(_ context.Context, conversationID string, p query.Pagination) ([]*conversation.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*conversation.Message
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			copied := *m
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memoryRepository) UpdateMessage(ctx context.Context, id, text string, editedAt time.Time) (*conversation.Message, error) {
	r.mu.Lock()
	r.messages[id].Content = text
	r.messages[id].EditedAt = &editedAt
	r.mu.Unlock()
	return r.FindMessage(ctx, id)
}

func (r *memoryRepository) DeleteMessage(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, id)
	return nil
}

func (r *memoryRepository) CreateComment(_ context.Context, c *conversation.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *c
	r.comments[c.ID] = &copied
	r.messages[c.MessageID].ThreadCommentCount++
	return nil
}

func (r *memoryRepository) FindComment(ctx context.Context, id string) (*conversation.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, errOf(ctx, platformerrors.ErrorTypeNotFound)
	}
	copied := *c
	return &copied, nil
}

func (r *memoryRepository) ListComments(_ context.Context, messageID string, _ query.Pagination) ([]*conversation.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*conversation.Comment
	for _, c := range r.comments {
		if c.MessageID == messageID {
			copied := *c
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepository) ListCommentIDs(_ context.Context, messageID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, c := range r.comments {
		if c.MessageID == messageID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memoryRepository) UpdateComment(ctx context.Context, id, text string, editedAt time.Time) (*conversation.Comment, error) {
	r.mu.Lock()
	r.comments[id].Content = text
	r.comments[id].EditedAt = &editedAt
	r.mu.Unlock()
	return r.FindComment(ctx, id)
}

func (r *memoryRepository) DeleteComment(_ context.Context, c *conversation.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.comments, c.ID)
	r.messages[c.MessageID].ThreadCommentCount--
	return nil
}

type directory map[string]bool

func (d directory) GetMany(_ context.Context, ids []string) ([]*user.User, error) {
	var out []*user.User
	for _, id := range ids {
		if d[id] {
			out = append(out, &user.User{ID: id})
		}
	}
	return out, nil
}

type noFiles struct{}

func (noFiles) CheckAttachable(context.Context, string, []string) error { return nil }
func (noFiles) Attach(context.Context, string, content.Target, []string) ([]*file.Attachment, error) {
	return []*file.Attachment{}, nil
}
func (noFiles) ListForTargets(context.Context, []content.Target) (map[content.Target][]*file.Attachment, error) {
	return map[content.Target][]*file.Attachment{}, nil
}

func newService() (conversation.Service, *memoryRepository, *contenttest.Resolver) {
	repo := newMemoryRepository()
	users := directory{}
	for i := 0; i < 60; i++ {
		users[fmt.Sprintf("usr_%d", i)] = true
	}
	cleaner := contenttest.NewResolver()
	return conversation.NewService(repo, users, noFiles{}, cleaner, nil, zerolog.Nop()), repo, cleaner
}

func TestDirectConversationIsReused(t *testing.T) {
	svc, repo, _ := newService()
	ctx := context.Background()

	first, created, err := svc.Create(ctx, "usr_1", conversation.CreateConversationParams{UserIDs: []string{"usr_2"}, Title: "ignored"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Empty(t, first.Title)
	assert.Len(t, first.Participants, 2)

	second, created, err := svc.Create(ctx, "usr_2", conversation.CreateConversationParams{UserIDs: []string{"usr_1", "usr_1"}})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.conversations, 1)
}

func TestCreateConversationValidation(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	many := make([]string, 0, 51)
	for i := 1; i <= 51; i++ {
		many = append(many, fmt.Sprintf("usr_%d", i))
	}

	tests := []struct {
		name     string
		params   conversation.CreateConversationParams
		wantType platformerrors.ErrorType
	}{
		{name: "direct with self", params: conversation.CreateConversationParams{UserIDs: []string{"usr_0"}}, wantType: platformerrors.ErrorTypeValidation},
		{name: "direct with two", params: conversation.CreateConversationParams{UserIDs: []string{"usr_1", "usr_2"}}, wantType: platformerrors.ErrorTypeValidation},
		{name: "group too small", params: conversation.CreateConversationParams{IsGroup: true, UserIDs: []string{"usr_1"}}, wantType: platformerrors.ErrorTypeValidation},
		{name: "group too large", params: conversation.CreateConversationParams{IsGroup: true, UserIDs: many}, wantType: platformerrors.ErrorTypeValidation},
		{name: "unknown user", params: conversation.CreateConversationParams{UserIDs: []string{"usr_ghost"}}, wantType: platformerrors.ErrorTypeNotFound},
		{name: "group", params: conversation.CreateConversationParams{IsGroup: true, Title: "Launch", UserIDs: []string{"usr_1", "usr_2"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, err := svc.Create(ctx, "usr_0", tt.params)
			if tt.wantType != "" {
				require.Error(t, err)
				assert.True(t, platformerrors.IsErrorType(err, tt.wantType), err.Error())
				return
			}
			require.NoError(t, err)
			assert.True(t, c.IsGroup)
			assert.Equal(t, "Launch", c.Title)
			assert.Len(t, c.Participants, 3)
		})
	}
}

func TestParticipantsOnly(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	c, _, err := svc.Create(ctx, "usr_1", conversation.CreateConversationParams{UserIDs: []string{"usr_2"}})
	require.NoError(t, err)

	_, err = svc.CreateMessage(ctx, c.ID, conversation.CreateParams{UserID: "usr_3", Content: "hi"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	_, err = svc.ListMessages(ctx, "usr_3", c.ID, query.Pagination{})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	_, err = svc.AddParticipant(ctx, "usr_1", c.ID, "usr_3")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))
	err = svc.Leave(ctx, "usr_1", c.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))

	m, err := svc.CreateMessage(ctx, c.ID, conversation.CreateParams{UserID: "usr_2", Content: "hello"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, "usr_1", c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageAt)
	assert.Equal(t, m.CreatedAt, *got.LastMessageAt)

	err = svc.DeleteMessage(ctx, "usr_1", m.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))
}

func TestGroupMembershipChanges(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	c, _, err := svc.Create(ctx, "usr_1", conversation.CreateConversationParams{IsGroup: true, UserIDs: []string{"usr_2", "usr_3"}})
	require.NoError(t, err)

	p, err := svc.AddParticipant(ctx, "usr_2", c.ID, "usr_4")
	require.NoError(t, err)
	assert.Equal(t, "usr_4", p.UserID)

	_, err = svc.AddParticipant(ctx, "usr_9", c.ID, "usr_5")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	require.NoError(t, svc.Leave(ctx, "usr_3", c.ID))
	_, err = svc.Get(ctx, "usr_3", c.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestMessageThreads(t *testing.T) {
	svc, repo, cleaner := newService()
	ctx := context.Background()

	c, _, err := svc.Create(ctx, "usr_1", conversation.CreateConversationParams{UserIDs: []string{"usr_2"}})
	require.NoError(t, err)
	m, err := svc.CreateMessage(ctx, c.ID, conversation.CreateParams{UserID: "usr_1", Content: "question"})
	require.NoError(t, err)

	reply, err := svc.CreateComment(ctx, m.ID, conversation.CreateParams{UserID: "usr_2", Content: "answer"})
	require.NoError(t, err)
	assert.Equal(t, c.ID, reply.ConversationID)
	assert.Equal(t, 1, repo.messages[m.ID].ThreadCommentCount)

	page, err := svc.ListComments(ctx, "usr_1", m.ID, query.Pagination{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)

	require.NoError(t, svc.DeleteMessage(ctx, "usr_1", m.ID))
	assert.ElementsMatch(t, []content.Target{m.Target(), reply.Target()}, cleaner.Deleted)
}
