package handlers_test

import (
	"context"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huddlehq/huddle-server/internal/domain/assistant"
	"github.com/huddlehq/huddle-server/internal/domain/channel"
	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/conversation"
	"github.com/huddlehq/huddle-server/internal/domain/embedding"
	"github.com/huddlehq/huddle-server/internal/domain/file"
	"github.com/huddlehq/huddle-server/internal/domain/post"
	"github.com/huddlehq/huddle-server/internal/domain/presence"
	"github.com/huddlehq/huddle-server/internal/domain/query"
	"github.com/huddlehq/huddle-server/internal/domain/reaction"
	"github.com/huddlehq/huddle-server/internal/domain/realtime"
	"github.com/huddlehq/huddle-server/internal/domain/sweep"
	"github.com/huddlehq/huddle-server/internal/domain/translation"
	"github.com/huddlehq/huddle-server/internal/domain/user"
	"github.com/huddlehq/huddle-server/internal/domain/voice"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/middlewares"
	"github.com/huddlehq/huddle-server/internal/interfaces/httpserver/requests"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := requests.RegisterValidators(); err != nil {
		panic(err)
	}
}

var testUser = &user.User{ID: "usr_me", DisplayName: "Me", PreferredLanguage: "en"}

// newRouter mounts handler behind a stub that signs testUser in.
func newRouter(method, path string, handler gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Handle(method, path, func(c *gin.Context) {
		middlewares.SetCurrentUser(c, testUser)
		c.Next()
	}, handler)
	return engine
}

// The mocks embed the service interface; only the methods a test sets are implemented.

type MockUserService struct {
	user.Service
	GetFunc           func(ctx context.Context, id string) (*user.User, error)
	UpdateProfileFunc func(ctx context.Context, id string, update user.ProfileUpdate) (*user.User, error)
	SearchFunc        func(ctx context.Context, term string, limit int) ([]*user.User, error)
}

func (m *MockUserService) Get(ctx context.Context, id string) (*user.User, error) {
	return m.GetFunc(ctx, id)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, id string, update user.ProfileUpdate) (*user.User, error) {
	return m.UpdateProfileFunc(ctx, id, update)
}

func (m *MockUserService) Search(ctx context.Context, term string, limit int) ([]*user.User, error) {
	return m.SearchFunc(ctx, term, limit)
}

type MockChannelService struct {
	channel.Service
	CreateFunc      func(ctx context.Context, userID string, params channel.CreateParams) (*channel.Channel, error)
	ListFunc        func(ctx context.Context, filter channel.ListFilter, p query.Pagination) (query.Page[*channel.Channel], error)
	UpdateFunc      func(ctx context.Context, userID, id string, update channel.Update) (*channel.Channel, error)
	SetArchivedFunc func(ctx context.Context, userID, id string, archived bool) (*channel.Channel, error)
	AddMemberFunc   func(ctx context.Context, actorID, id, memberID string, role channel.Role) (*channel.Member, error)
	LeaveFunc       func(ctx context.Context, userID, id string) error
}

func (m *MockChannelService) Create(ctx context.Context, userID string, params channel.CreateParams) (*channel.Channel, error) {
	return m.CreateFunc(ctx, userID, params)
}

func (m *MockChannelService) List(ctx context.Context, filter channel.ListFilter, p query.Pagination) (query.Page[*channel.Channel], error) {
	return m.ListFunc(ctx, filter, p)
}

func (m *MockChannelService) Update(ctx context.Context, userID, id string, update channel.Update) (*channel.Channel, error) {
	return m.UpdateFunc(ctx, userID, id, update)
}

func (m *MockChannelService) SetArchived(ctx context.Context, userID, id string, archived bool) (*channel.Channel, error) {
	return m.SetArchivedFunc(ctx, userID, id, archived)
}

func (m *MockChannelService) AddMember(ctx context.Context, actorID, id, memberID string, role channel.Role) (*channel.Member, error) {
	return m.AddMemberFunc(ctx, actorID, id, memberID, role)
}

func (m *MockChannelService) Leave(ctx context.Context, userID, id string) error {
	return m.LeaveFunc(ctx, userID, id)
}

type MockPostService struct {
	post.Service
	CreatePostFunc    func(ctx context.Context, channelID string, params post.CreateParams) (*post.Post, error)
	ListCommentsFunc  func(ctx context.Context, userID, postID string, p query.Pagination) (query.Page[*post.Comment], error)
	DeleteCommentFunc func(ctx context.Context, userID, id string) error
}

func (m *MockPostService) CreatePost(ctx context.Context, channelID string, params post.CreateParams) (*post.Post, error) {
	return m.CreatePostFunc(ctx, channelID, params)
}

func (m *MockPostService) ListComments(ctx context.Context, userID, postID string, p query.Pagination) (query.Page[*post.Comment], error) {
	return m.ListCommentsFunc(ctx, userID, postID, p)
}

func (m *MockPostService) DeleteComment(ctx context.Context, userID, id string) error {
	return m.DeleteCommentFunc(ctx, userID, id)
}

type MockConversationService struct {
	conversation.Service
	CreateFunc        func(ctx context.Context, userID string, params conversation.CreateConversationParams) (*conversation.Conversation, bool, error)
	CreateMessageFunc func(ctx context.Context, conversationID string, params conversation.CreateParams) (*conversation.Message, error)
}

func (m *MockConversationService) Create(ctx context.Context, userID string, params conversation.CreateConversationParams) (*conversation.Conversation, bool, error) {
	return m.CreateFunc(ctx, userID, params)
}

func (m *MockConversationService) CreateMessage(ctx context.Context, conversationID string, params conversation.CreateParams) (*conversation.Message, error) {
	return m.CreateMessageFunc(ctx, conversationID, params)
}

type MockFileService struct {
	file.Service
	UploadFunc  func(ctx context.Context, params file.UploadParams) (*file.File, error)
	OpenFunc    func(ctx context.Context, userID, id string) (io.ReadCloser, *file.File, error)
	PresignFunc func(ctx context.Context, userID, id string) (string, time.Time, error)
}

func (m *MockFileService) Upload(ctx context.Context, params file.UploadParams) (*file.File, error) {
	return m.UploadFunc(ctx, params)
}

func (m *MockFileService) Open(ctx context.Context, userID, id string) (io.ReadCloser, *file.File, error) {
	return m.OpenFunc(ctx, userID, id)
}

func (m *MockFileService) Presign(ctx context.Context, userID, id string) (string, time.Time, error) {
	return m.PresignFunc(ctx, userID, id)
}

type MockReactionService struct {
	reaction.Service
	ToggleFunc func(ctx context.Context, userID string, target content.Target, emoji string) (*reaction.ToggleResult, error)
	AddFunc    func(ctx context.Context, userID string, target content.Target, emoji string) ([]reaction.Summary, error)
	RemoveFunc func(ctx context.Context, userID string, target content.Target, emoji string) ([]reaction.Summary, error)
}

func (m *MockReactionService) Toggle(ctx context.Context, userID string, target content.Target, emoji string) (*reaction.ToggleResult, error) {
	return m.ToggleFunc(ctx, userID, target, emoji)
}

func (m *MockReactionService) Add(ctx context.Context, userID string, target content.Target, emoji string) ([]reaction.Summary, error) {
	return m.AddFunc(ctx, userID, target, emoji)
}

func (m *MockReactionService) Remove(ctx context.Context, userID string, target content.Target, emoji string) ([]reaction.Summary, error) {
	return m.RemoveFunc(ctx, userID, target, emoji)
}

type MockTranslationService struct {
	translation.Service
	TranslateFunc func(ctx context.Context, userID string, target content.Target, lang string) (*translation.Translation, error)
}

func (m *MockTranslationService) Translate(ctx context.Context, userID string, target content.Target, lang string) (*translation.Translation, error) {
	return m.TranslateFunc(ctx, userID, target, lang)
}

type MockAssistantService struct {
	RespondFunc   func(ctx context.Context, userID string, params assistant.RespondParams) (*assistant.Reply, error)
	SummarizeFunc func(ctx context.Context, userID string, params assistant.SummarizeParams) (*assistant.Summary, error)
}

func (m *MockAssistantService) Respond(ctx context.Context, userID string, params assistant.RespondParams) (*assistant.Reply, error) {
	return m.RespondFunc(ctx, userID, params)
}

func (m *MockAssistantService) Summarize(ctx context.Context, userID string, params assistant.SummarizeParams) (*assistant.Summary, error) {
	return m.SummarizeFunc(ctx, userID, params)
}

type MockEmbeddingService struct {
	embedding.Service
	SearchFunc func(ctx context.Context, userID string, params embedding.SearchParams) ([]embedding.Match, error)
}

func (m *MockEmbeddingService) Search(ctx context.Context, userID string, params embedding.SearchParams) ([]embedding.Match, error) {
	return m.SearchFunc(ctx, userID, params)
}

type MockVoiceService struct {
	voice.Service
	CloneVoiceFunc func(ctx context.Context, userID, name string, samples []voice.Sample) (*user.User, error)
	OpenFunc       func(ctx context.Context, userID, id string) (io.ReadCloser, *voice.Recording, error)
}

func (m *MockVoiceService) CloneVoice(ctx context.Context, userID, name string, samples []voice.Sample) (*user.User, error) {
	return m.CloneVoiceFunc(ctx, userID, name, samples)
}

func (m *MockVoiceService) Open(ctx context.Context, userID, id string) (io.ReadCloser, *voice.Recording, error) {
	return m.OpenFunc(ctx, userID, id)
}

type MockPresenceService struct {
	presence.Service
	GetFunc       func(ctx context.Context, userIDs []string) ([]*presence.Presence, error)
	SetStatusFunc func(ctx context.Context, userID string, status presence.Status, statusText *string) (*presence.Presence, error)
}

func (m *MockPresenceService) Get(ctx context.Context, userIDs []string) ([]*presence.Presence, error) {
	return m.GetFunc(ctx, userIDs)
}

func (m *MockPresenceService) SetStatus(ctx context.Context, userID string, status presence.Status, statusText *string) (*presence.Presence, error) {
	return m.SetStatusFunc(ctx, userID, status, statusText)
}

type MockRealtimeService struct {
	SubscribeFunc func(ctx context.Context, userID string, topics []string) (realtime.Subscription, error)
}

func (m *MockRealtimeService) Subscribe(ctx context.Context, userID string, topics []string) (realtime.Subscription, error) {
	return m.SubscribeFunc(ctx, userID, topics)
}

type fakeSubscription struct {
	events chan realtime.Event
	closed bool
}

func (s *fakeSubscription) ID() string                     { return "sub_1" }
func (s *fakeSubscription) Events() <-chan realtime.Event { return s.events }
func (s *fakeSubscription) Close() error {
	s.closed = true
	return nil
}

type MockSweepRunner struct {
	RunFunc func(ctx context.Context, name string) (*sweep.Report, error)
	names   []string
}

func (m *MockSweepRunner) Run(ctx context.Context, name string) (*sweep.Report, error) {
	return m.RunFunc(ctx, name)
}

func (m *MockSweepRunner) Names() []string { return m.names }
