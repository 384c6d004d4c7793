package entities

import (
	"time"

	"github.com/huddlehq/huddle-server/internal/domain/content"
	"github.com/huddlehq/huddle-server/internal/domain/file"
)

// File is a row of files.
type File struct {
	ID         string `gorm:"primaryKey"`
	OwnerID    string `gorm:"not null;index"`
	Bucket     string `gorm:"not null;default:''"`
	StorageKey string `gorm:"uniqueIndex;not null"`
	Name       string `gorm:"not null;default:''"`
	MimeType   string `gorm:"not null"`
	Size       int64  `gorm:"not null"`
	Sha256     string `gorm:"not null"`
	CreatedAt  time.Time
}

func (File) TableName() string {
	return "files"
}

func (f *File) EtoD() *file.File {
	return &file.File{
		ID:         f.ID,
		OwnerID:    f.OwnerID,
		Bucket:     f.Bucket,
		StorageKey: f.StorageKey,
		Name:       f.Name,
		MimeType:   f.MimeType,
		Size:       f.Size,
		Sha256:     f.Sha256,
		CreatedAt:  f.CreatedAt,
	}
}

func FileDtoE(f *file.File) *File {
	return &File{
		ID:         f.ID,
		OwnerID:    f.OwnerID,
		Bucket:     f.Bucket,
		StorageKey: f.StorageKey,
		Name:       f.Name,
		MimeType:   f.MimeType,
		Size:       f.Size,
		Sha256:     f.Sha256,
		CreatedAt:  f.CreatedAt,
	}
}

// FileAttachment is a row of file_attachments.
type FileAttachment struct {
	ID         string `gorm:"primaryKey"`
	FileID     string `gorm:"not null"`
	TargetType string `gorm:"not null"`
	TargetID   string `gorm:"not null"`
	CreatedAt  time.Time
	File       *File `gorm:"foreignKey:FileID"`
}

func (FileAttachment) TableName() string {
	return "file_attachments"
}

func (a *FileAttachment) EtoD() *file.Attachment {
	out := &file.Attachment{
		ID:         a.ID,
		FileID:     a.FileID,
		TargetType: content.TargetType(a.TargetType),
		TargetID:   a.TargetID,
		CreatedAt:  a.CreatedAt,
	}
	if a.File != nil {
		out.File = a.File.EtoD()
	}
	return out
}

func FileAttachmentDtoE(a *file.Attachment) *FileAttachment {
	return &FileAttachment{
		ID:         a.ID,
		FileID:     a.FileID,
		TargetType: string(a.TargetType),
		TargetID:   a.TargetID,
		CreatedAt:  a.CreatedAt,
	}
}
