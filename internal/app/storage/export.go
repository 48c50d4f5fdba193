package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"blogclient/internal/apiclient"
	"blogclient/internal/app/blog"
	"blogclient/internal/app/user"
	"blogclient/internal/pkg/errs"
	"blogclient/internal/pkg/logx"
	"blogclient/internal/pkg/randx"
)

// DefaultLinkTTL is how long an export download link stays valid.
const DefaultLinkTTL = 24 * time.Hour

// PostLister reads the posts of the signed-in user.
type PostLister interface {
	MyPosts(ctx context.Context, token string) (*apiclient.BlogList, *errs.CustomError)
}

// Document is the exported JSON.
type Document struct {
	ExportedAt time.Time    `json:"exportedAt"`
	Author     user.UserRef `json:"author"`
	Posts      []blog.Blog  `json:"posts"`
}

// Export describes an uploaded export.
type Export struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Posts     int       `json:"posts"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Exporter uploads post exports. A nil storage service disables it.
type Exporter struct {
	storage StorageService
	api     PostLister
	linkTTL time.Duration
	now     func() time.Time
}

// NewExporter returns an exporter writing to storage. storage may be nil.
func NewExporter(storage StorageService, api PostLister, linkTTL time.Duration) *Exporter {
	if linkTTL <= 0 {
		linkTTL = DefaultLinkTTL
	}
	return &Exporter{storage: storage, api: api, linkTTL: linkTTL, now: time.Now}
}

// Enabled reports whether exports can be made.
func (e *Exporter) Enabled() bool {
	return e != nil && e.storage != nil
}

// Export uploads every post of owner, drafts included, and returns a download link.
func (e *Exporter) Export(ctx context.Context, token string, owner *user.User) (*Export, *errs.CustomError) {
	if !e.Enabled() {
		return nil, errs.NewError(errs.ErrExportDisabled)
	}
	if token == "" || owner == nil {
		return nil, errs.NewError(errs.ErrLoginRequired)
	}

	list, apiErr := e.api.MyPosts(ctx, token)
	if apiErr != nil {
		return nil, apiErr
	}

	now := e.now().UTC()
	doc := Document{ExportedAt: now, Author: owner.Ref(), Posts: list.Blogs}

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errs.NewError(errs.ErrUnknown, err)
	}

	key := fmt.Sprintf("exports/%s/%s-%s.json", owner.ID, now.Format("20060102T150405Z"), randx.RequestID()[:8])

	if err := e.storage.Upload(ctx, key, "application/json", bytes.NewReader(body)); err != nil {
		return nil, uploadFailed(err)
	}

	link, err := e.storage.PresignDownload(ctx, key, e.linkTTL)
	if err != nil {
		if delErr := e.storage.Delete(ctx, key); delErr != nil {
			logx.Warn("Failed to remove unreachable export", "key", key, "error", delErr.Error())
		}
		return nil, uploadFailed(err)
	}

	logx.Info("Posts exported", "key", key, "posts", len(list.Blogs))

	return &Export{Key: key, URL: link, Posts: len(list.Blogs), ExpiresAt: now.Add(e.linkTTL)}, nil
}

func uploadFailed(err error) *errs.CustomError {
	return errs.NewError(errs.ErrStorageFailed).WithMessage("Export upload failed. Please try again.").WithCause(err)
}
