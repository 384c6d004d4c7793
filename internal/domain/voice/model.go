package voice

import (
	"context"
	"io"
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/file"
)

// Status of a speech recording.
type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

const (
	MinSamples = 1
	MaxSamples = 5
)

// Recording is synthesized speech of one piece of content in one voice and language.
type Recording struct {
	ID          string             `json:"id"`
	TargetType  content.TargetType `json:"target_type"`
	TargetID    string             `json:"target_id"`
	VoiceID     string             `json:"voice_id"`
	Language    string             `json:"language,omitempty"`
	StorageKey  *string            `json:"-"`
	MimeType    string             `json:"mime_type,omitempty"`
	Status      Status             `json:"status"`
	Error       string             `json:"error,omitempty"`
	Attempts    int                `json:"attempts"`
	RequestedBy string             `json:"requested_by,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func (r *Recording) Target() content.Target {
	return content.Target{Type: r.TargetType, ID: r.TargetID}
}

// SpeechKey is the object key the audio of a recording is stored under.
func SpeechKey(targetID, recordingID string) string {
	return file.SpeechPrefix + targetID + "/" + recordingID + ".mp3"
}

// Sample is one audio clip used to clone a voice.
type Sample struct {
	Name string
	Body io.Reader
}

// Clip is a validated sample as sent to the provider.
type Clip struct {
	Name     string
	MimeType string
	Data     []byte
}

// Speech is synthesized audio.
type Speech struct {
	Audio    []byte
	MimeType string
}

// Cloner creates and removes custom voices at the provider.
type Cloner interface {
	Clone(ctx context.Context, name string, clips []Clip) (string, error)
	Delete(ctx context.Context, voiceID string) error
}

// Synthesizer turns text into speech in the given voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, voiceID, text, language string) (*Speech, error)
	DefaultVoice() string
}

// Candidate is recent content whose author has a cloned voice but no recording yet.
type Candidate struct {
	Item    content.Item
	VoiceID string
}

// BackfillParams bounds one backfill run.
type BackfillParams struct {
	BatchSize     int
	Concurrency   int
	RatePerSecond float64
	Lookback      time.Duration
	MaxAttempts   int
}

// BackfillReport summarizes one backfill run.
type BackfillReport struct {
	Created   int `json:"created"`
	Processed int `json:"processed"`
	Ready     int `json:"ready"`
	Failed    int `json:"failed"`
}
