package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// ChangeType mirrors the row level change that produced an event.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
	// ChangeResync tells a subscriber it missed events and should refetch.
	ChangeResync ChangeType = "RESYNC"
)

// Event is one entry of the change feed.
type Event struct {
	ID              string          `json:"id"`
	Topic           string          `json:"topic"`
	Table           string          `json:"table"`
	Type            ChangeType      `json:"type"`
	Record          json.RawMessage `json:"record,omitempty"`
	OldRecord       json.RawMessage `json:"old_record,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`
}

// Topic prefixes accepted by subscriptions.
const (
	TopicChannelPrefix      = "channel:"
	TopicConversationPrefix = "conversation:"
	TopicUserPrefix         = "user:"
)

// UserTopic returns the personal topic of a user.
func UserTopic(userID string) string {
	return TopicUserPrefix + userID
}

// SplitTopic returns the prefix kind ("channel", "conversation", "user") and the id.
func SplitTopic(topic string) (string, string, bool) {
	kind, id, ok := strings.Cut(topic, ":")
	if !ok || id == "" {
		return "", "", false
	}
	switch kind {
	case "channel", "conversation", "user":
		return kind, id, true
	default:
		return "", "", false
	}
}

// Publisher emits change events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscription delivers events for a fixed set of topics until closed.
type Subscription interface {
	ID() string
	Events() <-chan Event
	Close() error
}

// Broker fans events out to subscribers.
type Broker interface {
	Publisher
	Subscribe(ctx context.Context, topics []string) (Subscription, error)
}
