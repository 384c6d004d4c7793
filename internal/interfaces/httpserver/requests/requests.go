package requests

import "github.com/huddlehq/huddle-server/internal/domain/content"

type UpdateMeRequest struct {
	DisplayName       *string `json:"display_name" binding:"omitempty,min=1,max=80"`
	AvatarFileID      *string `json:"avatar_file_id" binding:"omitempty,max=64"`
	PreferredLanguage *string `json:"preferred_language" binding:"omitempty,language"`
}

type SearchUsersQuery struct {
	Query string `form:"q" binding:"max=100"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type CreateChannelRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=80"`
	Topic     string `json:"topic" binding:"max=250"`
	IsPrivate bool   `json:"is_private"`
}

type ListChannelsQuery struct {
	PaginationQuery
	Joined          bool `form:"joined"`
	IncludeArchived bool `form:"include_archived"`
}

type UpdateChannelRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=80"`
	Topic     *string `json:"topic" binding:"omitempty,max=250"`
	IsPrivate *bool   `json:"is_private"`
	Archived  *bool   `json:"archived"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"omitempty,oneof=owner admin member"`
}

type UpdateMemberRequest struct {
	Role string `json:"role" binding:"required,oneof=owner admin member"`
}

// CreateContentRequest creates a post, message or thread comment.
type CreateContentRequest struct {
	Content  string         `json:"content" binding:"max=8000"`
	FileIDs  []string       `json:"file_ids" binding:"max=10,dive,required"`
	Metadata map[string]any `json:"metadata"`
}

type UpdateContentRequest struct {
	Content string `json:"content" binding:"required,max=8000"`
}

type CreateConversationRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1,max=50,dive,required"`
	Title   string   `json:"title" binding:"max=120"`
	IsGroup bool     `json:"is_group"`
}

type AddParticipantRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// TargetURI binds the /:target_type/:target_id path segments.
type TargetURI struct {
	TargetType string `uri:"target_type" binding:"required,target_type"`
	TargetID   string `uri:"target_id" binding:"required"`
}

func (u TargetURI) Target() content.Target {
	return content.Target{Type: content.TargetType(u.TargetType), ID: u.TargetID}
}

type ReactionRequest struct {
	Emoji  string `json:"emoji" binding:"required,emoji"`
	Action string `json:"action" binding:"omitempty,oneof=toggle add"`
}

type TranslateRequest struct {
	TargetType string `json:"target_type" binding:"required,target_type"`
	TargetID   string `json:"target_id" binding:"required"`
	Language   string `json:"language" binding:"required,language"`
}

func (r TranslateRequest) Target() content.Target {
	return content.Target{Type: content.TargetType(r.TargetType), ID: r.TargetID}
}

type SpeechRequest struct {
	TargetType string `json:"target_type" binding:"required,target_type"`
	TargetID   string `json:"target_id" binding:"required"`
	Language   string `json:"language" binding:"omitempty,language"`
}

func (r SpeechRequest) Target() content.Target {
	return content.Target{Type: content.TargetType(r.TargetType), ID: r.TargetID}
}

// ScopeRequest names the channel or conversation an assistant call works in.
type ScopeRequest struct {
	ScopeType string `json:"scope_type" binding:"required,oneof=channel conversation"`
	ScopeID   string `json:"scope_id" binding:"required"`
	ParentID  string `json:"parent_id"`
}

func (r ScopeRequest) Scope() content.Scope {
	return content.Scope{Type: content.ScopeType(r.ScopeType), ID: r.ScopeID}
}

type RespondRequest struct {
	ScopeRequest
	Prompt string `json:"prompt" binding:"required,max=4000"`
}

type SummarizeRequest struct {
	ScopeRequest
}

type SearchQuery struct {
	Query         string  `form:"q" binding:"required,max=1000"`
	Limit         int     `form:"limit" binding:"omitempty,min=1,max=50"`
	MinSimilarity float64 `form:"min_similarity" binding:"omitempty,min=0,max=1"`
	ScopeType     string  `form:"scope_type" binding:"omitempty,oneof=channel conversation,required_with=ScopeID"`
	ScopeID       string  `form:"scope_id" binding:"required_with=ScopeType"`
}

// Scope returns the optional search scope.
func (q SearchQuery) Scope() *content.Scope {
	if q.ScopeType == "" {
		return nil
	}
	return &content.Scope{Type: content.ScopeType(q.ScopeType), ID: q.ScopeID}
}

type SetPresenceRequest struct {
	Status     string  `json:"status" binding:"required,oneof=online away dnd offline"`
	StatusText *string `json:"status_text" binding:"omitempty,max=100"`
}

type RealtimeQuery struct {
	Topics string `form:"topics" binding:"required"`
}
