package core

import (
	"io"

	"github.com/pkg/errors"
)

// Upload policies. Images cover logos, banners and payment receipts;
// documents cover assignment attachments and submissions.
var (
	ImagePolicy = FilePolicy{
		MaxSize:      5 << 20, // 5MB
		ContentTypes: []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "application/pdf"},
	}
	DocumentPolicy = FilePolicy{
		MaxSize: 10 << 20, // 10MB
		ContentTypes: []string{
			"image/jpeg", "image/jpg", "image/png", "application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/zip",
		},
	}

	ErrFileTooLarge = errors.New("file exceeds the maximum allowed size")
	ErrFileType     = errors.New("file type not allowed")
	ErrFileNotFound = errors.New("file not found")
)

type (
	FilePolicy struct {
		MaxSize      int64
		ContentTypes []string
	}

	// FileUpload is an inbound file as received by a handler.
	FileUpload struct {
		Filename    string
		ContentType string
		Size        int64
		Content     io.Reader
	}

	// FileStorage persists uploaded binary content under a size/type policy
	// and returns the stored path.
	FileStorage interface {
		Save(bucket, filename, contentType string, size int64, content io.Reader, policy FilePolicy) (string, error)
		Remove(path string) error
	}
)

func (p FilePolicy) Allows(contentType string, size int64) error {
	if size > p.MaxSize {
		return ErrFileTooLarge
	}
	for _, ct := range p.ContentTypes {
		if ct == contentType {
			return nil
		}
	}
	return ErrFileType
}
