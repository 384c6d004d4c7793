package assistant

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/config"
	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/conversation"
	"github.com/huddlehq/huddle-server/internal/domain/embedding"
	"github.com/huddlehq/huddle-server/internal/domain/post"
	"github.com/huddlehq/huddle-server/internal/domain/user"
	"github.com/huddlehq/huddle-server/internal/utils/platformerrors"
)

// PostWriter stores replies in channels.
type PostWriter interface {
	CreatePost(ctx context.Context, channelID string, params post.CreateParams) (*post.Post, error)
	CreateComment(ctx context.Context, postID string, params post.CreateParams) (*post.Comment, error)
}

// MessageWriter stores replies in conversations.
type MessageWriter interface {
	CreateMessage(ctx context.Context, conversationID string, params conversation.CreateParams) (*conversation.Message, error)
	CreateComment(ctx context.Context, messageID string, params conversation.CreateParams) (*conversation.Comment, error)
}

// Searcher finds semantically related content inside one scope.
type Searcher interface {
	Related(ctx context.Context, scope content.Scope, text string, limit int) ([]embedding.Match, error)
}

// Directory resolves author names for transcripts.
type Directory interface {
	GetMany(ctx context.Context, ids []string) ([]*user.User, error)
}

// Limiter throttles requests per principal.
type Limiter interface {
	Allow(key string) bool
}

// Sanitizer redacts user text before it reaches the logs.
type Sanitizer interface {
	SanitizePrompt(input string) string
	SanitizeResponse(response string) string
}

// Service answers prompts and summarizes threads with a language model.
type Service interface {
	Respond(ctx context.Context, userID string, params RespondParams) (*Reply, error)
	Summarize(ctx context.Context, userID string, params SummarizeParams) (*Summary, error)
}

type service struct {
	cfg       *config.Config
	model     ChatModel
	resolver  content.Resolver
	searcher  Searcher
	posts     PostWriter
	messages  MessageWriter
	directory Directory
	limiter   Limiter
	sanitizer Sanitizer
	log       zerolog.Logger
}

// Deps groups the collaborators of the assistant.
type Deps struct {
	Model     ChatModel
	Resolver  content.Resolver
	Searcher  Searcher
	Posts     PostWriter
	Messages  MessageWriter
	Directory Directory
	Limiter   Limiter
	Sanitizer Sanitizer
}

// NewService wires the assistant. Model, Searcher, Limiter and Sanitizer may be nil.
func NewService(cfg *config.Config, deps Deps, log zerolog.Logger) Service {
	return &service{
		cfg:       cfg,
		model:     deps.Model,
		resolver:  deps.Resolver,
		searcher:  deps.Searcher,
		posts:     deps.Posts,
		messages:  deps.Messages,
		directory: deps.Directory,
		limiter:   deps.Limiter,
		sanitizer: deps.Sanitizer,
		log:       log.With().Str("component", "assistant-service").Logger(),
	}
}

func (s *service) Respond(ctx context.Context, userID string, params RespondParams) (*Reply, error) {
	prompt := strings.TrimSpace(params.Prompt)
	if prompt == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "prompt is required", nil, "f1a6c3e8-5b0d-4d72-9e4a-2c8f6b1d0a93")
	}
	if utf8.RuneCountInString(prompt) > MaxPromptLength {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "prompt is too long", nil, "8d3b0f5a-2e7c-4b19-a6d4-e9c1f7a2b058")
	}
	if err := s.ready(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.checkWrite(ctx, params.Scope, userID); err != nil {
		return nil, err
	}
	parent, err := s.parent(ctx, params.Scope, params.ParentID)
	if err != nil {
		return nil, err
	}

	history, err := s.resolver.Recent(ctx, params.Scope, parent, s.cfg.ChatHistoryLimit)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load history")
	}
	names := s.names(ctx, history)

	messages := []ChatMessage{{Role: RoleSystem, Content: respondPrompt(s.cfg.AssistantName)}}
	if related := relatedBlock(s.related(ctx, params.Scope, prompt), history); related != "" {
		messages = append(messages, ChatMessage{Role: RoleSystem, Content: related})
	}
	for _, item := range history {
		if item.AuthorID == s.cfg.AssistantUserID {
			messages = append(messages, ChatMessage{Role: RoleAssistant, Content: item.Text})
			continue
		}
		messages = append(messages, ChatMessage{Role: RoleUser, Content: nameOf(item.AuthorID, names) + ": " + item.Text})
	}
	messages = append(messages, ChatMessage{Role: RoleUser, Content: nameOf(userID, names) + ": " + prompt})

	answer, err := s.complete(ctx, userID, messages)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(answer) > post.MaxContentLength {
		answer = string([]rune(answer)[:post.MaxContentLength])
	}
	return s.store(ctx, userID, params, answer)
}

func (s *service) Summarize(ctx context.Context, userID string, params SummarizeParams) (*Summary, error) {
	if err := s.ready(ctx, userID); err != nil {
		return nil, err
	}
	ok, err := s.resolver.CanRead(ctx, params.Scope, userID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "check read access")
	}
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "scope not found", nil, "2a7e4c1f-9b6d-4f38-8c05-d3f0a8e6b914")
	}
	parent, err := s.parent(ctx, params.Scope, params.ParentID)
	if err != nil {
		return nil, err
	}

	items, err := s.resolver.Recent(ctx, params.Scope, parent, s.cfg.ChatHistoryLimit)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "load history")
	}
	var texts []content.Item
	for _, item := range items {
		if strings.TrimSpace(item.Text) != "" {
			texts = append(texts, item)
		}
	}
	if len(texts) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "nothing to summarize", nil, "b5f2d9a6-3c0e-4a84-9f17-6e1b8d4c2a70")
	}

	messages := []ChatMessage{
		{Role: RoleSystem, Content: summarizePrompt(s.cfg.AssistantName)},
		{Role: RoleUser, Content: transcript(texts, s.names(ctx, texts))},
	}
	text, err := s.complete(ctx, userID, messages)
	if err != nil {
		return nil, err
	}
	return &Summary{Scope: params.Scope, ParentID: params.ParentID, Text: text, Messages: len(texts)}, nil
}

func (s *service) ready(ctx context.Context, userID string) error {
	if s.model == nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotImplemented, "language model is not configured", nil, "6c1d8f3b-0a5e-4e27-b9d2-4f7a0c3e8b61")
	}
	if s.limiter != nil && !s.limiter.Allow(userID) {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeRateLimited, "too many assistant requests", nil, "d0e7a4c9-6f2b-4d53-a1e8-9b3c5f0d7e26")
	}
	return nil
}

// checkWrite hides scopes the caller cannot see and forbids replies where they cannot post.
func (s *service) checkWrite(ctx context.Context, scope content.Scope, userID string) error {
	member, err := s.resolver.IsMember(ctx, scope, userID)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "check membership")
	}
	if member {
		return nil
	}
	readable, err := s.resolver.CanRead(ctx, scope, userID)
	if err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "check read access")
	}
	if readable {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, "join the channel to ask the assistant", nil, "3f8c5a0e-7d2b-4b96-8e41-a6d9f2c0b375")
	}
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "scope not found", nil, "9a4e1b7d-c3f0-4c68-b2a5-0e8d6f3c1b49")
}

// parent resolves the thread root, which must be a top level post or message of scope.
func (s *service) parent(ctx context.Context, scope content.Scope, parentID string) (*content.Target, error) {
	if parentID == "" {
		return nil, nil
	}
	target := content.Target{Type: content.TargetPost, ID: parentID}
	if scope.Type == content.ScopeConversation {
		target.Type = content.TargetMessage
	}
	item, err := s.resolver.Resolve(ctx, target)
	if err != nil {
		if platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "thread not found", err, "e6b3f0a8-1d5c-4e92-a7f4-c0b9d2e5a817")
		}
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "resolve thread")
	}
	if item.Scope != scope {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "thread not found", nil, "47c0d9e2-8a6f-4b13-9d5e-b1f4a7c3e086")
	}
	return &target, nil
}

func (s *service) related(ctx context.Context, scope content.Scope, prompt string) []embedding.Match {
	if s.searcher == nil || s.cfg.ChatContextMatches <= 0 {
		return nil
	}
	matches, err := s.searcher.Related(ctx, scope, prompt, s.cfg.ChatContextMatches)
	if err != nil {
		// Context enrichment is optional.
		s.log.Debug().Err(err).Msg("related content lookup failed")
		return nil
	}
	return matches
}

func (s *service) names(ctx context.Context, items []content.Item) map[string]string {
	names := map[string]string{}
	if s.directory == nil {
		return names
	}
	ids := make([]string, 0, len(items))
	seen := map[string]bool{}
	for _, item := range items {
		if !seen[item.AuthorID] {
			seen[item.AuthorID] = true
			ids = append(ids, item.AuthorID)
		}
	}
	users, err := s.directory.GetMany(ctx, ids)
	if err != nil {
		s.log.Debug().Err(err).Msg("load author names")
		return names
	}
	for _, u := range users {
		names[u.ID] = u.DisplayName
	}
	return names
}

func (s *service) complete(ctx context.Context, userID string, messages []ChatMessage) (string, error) {
	last := messages[len(messages)-1].Content
	s.log.Debug().Str("user_id", userID).Int("messages", len(messages)).Str("prompt", s.sanitizePrompt(last)).Msg("assistant request")

	answer, err := s.model.Complete(ctx, messages)
	if err != nil {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "language model failed", err, "c8a5f2d0-4b9e-4f71-8d36-7e0c3b6a9f14")
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal, "empty completion", nil, "1d6b3e9a-f0c7-4a25-b8e2-5c9f1a4d7b03")
	}
	if s.sanitizer != nil {
		s.log.Debug().Str("user_id", userID).Str("completion", s.sanitizer.SanitizeResponse(answer)).Msg("assistant response")
	}
	return answer, nil
}

func (s *service) sanitizePrompt(text string) string {
	if s.sanitizer == nil {
		return "[REDACTED]"
	}
	return s.sanitizer.SanitizePrompt(text)
}

func (s *service) store(ctx context.Context, userID string, params RespondParams, answer string) (*Reply, error) {
	metadata := map[string]any{"assistant": true, "requested_by": userID}
	reply := &Reply{Scope: params.Scope, ParentID: params.ParentID, AuthorID: s.cfg.AssistantUserID, Text: answer}

	switch {
	case params.Scope.Type == content.ScopeChannel && params.ParentID == "":
		p, err := s.posts.CreatePost(ctx, params.Scope.ID, post.CreateParams{UserID: s.cfg.AssistantUserID, Content: answer, Metadata: metadata, System: true})
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "store assistant post")
		}
		reply.Target, reply.CreatedAt = p.Target(), p.CreatedAt
	case params.Scope.Type == content.ScopeChannel:
		c, err := s.posts.CreateComment(ctx, params.ParentID, post.CreateParams{UserID: s.cfg.AssistantUserID, Content: answer, Metadata: metadata, System: true})
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "store assistant comment")
		}
		reply.Target, reply.CreatedAt = c.Target(), c.CreatedAt
	case params.ParentID == "":
		m, err := s.messages.CreateMessage(ctx, params.Scope.ID, conversation.CreateParams{UserID: s.cfg.AssistantUserID, Content: answer, Metadata: metadata, System: true})
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "store assistant message")
		}
		reply.Target, reply.CreatedAt = m.Target(), m.CreatedAt
	default:
		c, err := s.messages.CreateComment(ctx, params.ParentID, conversation.CreateParams{UserID: s.cfg.AssistantUserID, Content: answer, Metadata: metadata, System: true})
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "store assistant comment")
		}
		reply.Target, reply.CreatedAt = c.Target(), c.CreatedAt
	}
	s.log.Info().Str("user_id", userID).Str("target", reply.Target.String()).Msg("assistant replied")
	return reply, nil
}
