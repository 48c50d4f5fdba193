/*
Package media describes uploadable media files and the media records the API returns.

It validates a file against its kind before upload (MIME prefix and size limit)
and picks the upload endpoint from the file's MIME type.
*/
package media

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"blogclient/internal/pkg/errs"
)

// Kind is the media kind of an upload.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindNone  Kind = "none"
)

const (
	// MaxImageSizeMB is the largest accepted image, in megabytes.
	MaxImageSizeMB = 10

	// MaxVideoSizeMB is the largest accepted video, in megabytes.
	MaxVideoSizeMB = 100
)

// File is a file to upload, held in memory.
type File struct {
	// Field is the multipart field name; "file" when empty.
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// FieldName returns the multipart field the file is sent under.
func (f *File) FieldName() string {
	if f.Field == "" {
		return "file"
	}
	return f.Field
}

// Size returns the file size in bytes.
func (f *File) Size() int64 {
	return int64(len(f.Data))
}

// MimeType returns the declared content type, sniffing the data when none was given.
func (f *File) MimeType() string {
	if f.ContentType != "" {
		return strings.ToLower(f.ContentType)
	}
	return http.DetectContentType(f.Data)
}

// Kind derives the media kind from the MIME type.
func (f *File) Kind() Kind {
	mimeType := f.MimeType()
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	default:
		return KindNone
	}
}

// Media is the record the API returns for an uploaded file.
type Media struct {
	URL      string  `json:"url"`
	Type     Kind    `json:"type"`
	Format   string  `json:"format,omitempty"`
	Size     int64   `json:"size,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	PublicID string  `json:"publicId,omitempty"`
}

// UploadPath returns the API path for uploading a file of kind k.
func UploadPath(k Kind) string {
	switch k {
	case KindImage:
		return "/media/upload-image"
	case KindVideo:
		return "/media/upload-video"
	default:
		return "/media/upload-blog-media"
	}
}

// MaxSize returns the size limit in bytes for kind k.
func MaxSize(k Kind) int64 {
	if k == KindVideo {
		return MaxVideoSizeMB << 20
	}
	return MaxImageSizeMB << 20
}

// Validate checks f against the expected kind. An empty expected kind accepts
// images and videos alike.
func Validate(f *File, expected Kind) *errs.CustomError {
	if f == nil || f.Size() == 0 {
		return errs.Validation(map[string]string{"file": "Please choose a file to upload"})
	}

	kind := f.Kind()

	if expected != "" && kind != expected {
		return errs.NewError(errs.ErrFileTypeInvalid, expected)
	}

	if kind == KindNone {
		return errs.NewError(errs.ErrFileTypeInvalid, "image or video")
	}

	if f.Size() > MaxSize(kind) {
		return errs.NewError(errs.ErrFileSizeTooLarge, MaxSize(kind)>>20)
	}

	if ext := strings.ToLower(filepath.Ext(f.Name)); ext == "" {
		return errs.Validation(map[string]string{"file": fmt.Sprintf("File %q has no extension", f.Name)})
	}

	return nil
}
