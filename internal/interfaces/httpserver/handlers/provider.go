package handlers

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/domain/assistant"
	"github.com/huddlehq/huddle-server/internal/domain/channel"
	"github.com/huddlehq/huddle-server/internal/domain/conversation"
	"github.com/huddlehq/huddle-server/internal/domain/embedding"
	"github.com/huddlehq/huddle-server/internal/domain/file"
	"github.com/huddlehq/huddle-server/internal/domain/post"
	"github.com/huddlehq/huddle-server/internal/domain/presence"
	"github.com/huddlehq/huddle-server/internal/domain/reaction"
	"github.com/huddlehq/huddle-server/internal/domain/realtime"
	"github.com/huddlehq/huddle-server/internal/domain/translation"
	"github.com/huddlehq/huddle-server/internal/domain/user"
	"github.com/huddlehq/huddle-server/internal/domain/voice"
)

// Services groups the domain services the handlers depend on.
type Services struct {
	Users         user.Service
	Channels      channel.Service
	Posts         post.Service
	Conversations conversation.Service
	Files         file.Service
	Reactions     reaction.Service
	Translations  translation.Service
	Assistant     assistant.Service
	Embeddings    embedding.Service
	Voice         voice.Service
	Presence      presence.Service
	Realtime      realtime.Service
	Sweeps        SweepRunner
}

// Limits are request size and streaming settings taken from configuration.
type Limits struct {
	FileMaxBytes        int64
	VoiceSampleMaxBytes int64
	RealtimeKeepAlive   time.Duration
}

// Provider wires all HTTP handlers for dependency injection.
type Provider struct {
	User         *UserHandler
	Channel      *ChannelHandler
	Post         *PostHandler
	Conversation *ConversationHandler
	File         *FileHandler
	Reaction     *ReactionHandler
	Translation  *TranslationHandler
	Assistant    *AssistantHandler
	Voice        *VoiceHandler
	Presence     *PresenceHandler
	Realtime     *RealtimeHandler
	Sweep        *SweepHandler
}

// NewProvider constructs the handler provider with domain services.
func NewProvider(services Services, limits Limits, log zerolog.Logger) *Provider {
	p := &Provider{
		User:         NewUserHandler(services.Users, log),
		Channel:      NewChannelHandler(services.Channels, log),
		Post:         NewPostHandler(services.Posts, log),
		Conversation: NewConversationHandler(services.Conversations, log),
		File:         NewFileHandler(services.Files, limits.FileMaxBytes, log),
		Reaction:     NewReactionHandler(services.Reactions, log),
		Translation:  NewTranslationHandler(services.Translations, log),
		Assistant:    NewAssistantHandler(services.Assistant, services.Embeddings, log),
		Voice:        NewVoiceHandler(services.Voice, limits.VoiceSampleMaxBytes, log),
		Presence:     NewPresenceHandler(services.Presence, log),
		Realtime:     NewRealtimeHandler(services.Realtime, limits.RealtimeKeepAlive, log),
	}
	if services.Sweeps != nil {
		p.Sweep = NewSweepHandler(services.Sweeps, log)
	}
	return p
}
