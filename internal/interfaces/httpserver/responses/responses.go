// Package responses holds HTTP response envelopes shared by handlers.
package responses

import (
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/query"
)

// ListResponse is the envelope of every paginated listing.
type ListResponse[T any] struct {
	Data       []T    `json:"data"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// FromPage converts a domain page.
func FromPage[T any](page query.Page[T]) ListResponse[T] {
	data := page.Data
	if data == nil {
		data = []T{}
	}
	return ListResponse[T]{Data: data, HasMore: page.HasMore, NextCursor: page.NextCursor}
}

// DataResponse wraps a non paginated collection.
type DataResponse[T any] struct {
	Data []T `json:"data"`
}

// NewDataResponse wraps items, never returning a null array.
func NewDataResponse[T any](items []T) DataResponse[T] {
	if items == nil {
		items = []T{}
	}
	return DataResponse[T]{Data: items}
}

// ConversationResponse reports whether a direct conversation was created or reused.
type ConversationResponse struct {
	Conversation any  `json:"conversation"`
	Created      bool `json:"created"`
}

// PresignResponse is a signed download URL.
type PresignResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service,omitempty"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}
