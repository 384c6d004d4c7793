package file

import (
	"io"
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/content"
)

// Storage key prefixes owned by the service. The orphan sweep only looks under these.
const (
	UploadsPrefix = "uploads/"
	SpeechPrefix  = "tts/"
)

// File is an uploaded object.
type File struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Bucket     string    `json:"bucket,omitempty"`
	StorageKey string    `json:"-"`
	Name       string    `json:"name"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	Sha256     string    `json:"sha256"`
	CreatedAt  time.Time `json:"created_at"`
}

// Attachment links a file to a piece of content.
type Attachment struct {
	ID         string             `json:"id"`
	FileID     string             `json:"file_id"`
	TargetType content.TargetType `json:"target_type"`
	TargetID   string             `json:"target_id"`
	CreatedAt  time.Time          `json:"created_at"`
	File       *File              `json:"file,omitempty"`
}

// Target returns the content the attachment hangs off.
func (a *Attachment) Target() content.Target {
	return content.Target{Type: a.TargetType, ID: a.TargetID}
}

// UploadParams describes an incoming upload.
type UploadParams struct {
	OwnerID string
	Name    string
	Body    io.Reader
}

// Object is an entry of a storage listing.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// OrphanReport summarizes one orphan sweep.
type OrphanReport struct {
	ScannedObjects int `json:"scanned_objects"`
	DeletedObjects int `json:"deleted_objects"`
	DeletedFiles   int `json:"deleted_files"`
	Failures       int `json:"failures"`
}
