package drafts

import (
	"context"
	"errors"

	"blogclient/internal/app/blog"
	"blogclient/internal/pkg/errs"
	"blogclient/internal/pkg/logx"
)

// BlogWriter creates and updates posts on the API.
type BlogWriter interface {
	CreateBlog(ctx context.Context, token string, in blog.PostInput) (*blog.Blog, *errs.CustomError)
	UpdateBlog(ctx context.Context, token, id string, in blog.PostInput) (*blog.Blog, *errs.CustomError)
}

// Publish validates draft id, sends it to the API as a published post (as an
// update when the draft edits an existing post) and deletes it on success.
func (s *Store) Publish(ctx context.Context, api BlogWriter, token, ownerID, id string) (*blog.Blog, *errs.CustomError) {
	d, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, StorageError(err)
	}

	in := d.Post
	in.Status = blog.StatusPublished
	in.Normalize()

	if verr := in.Validate(); verr != nil {
		return nil, verr
	}

	var (
		published *blog.Blog
		apiErr    *errs.CustomError
	)
	if d.BlogID != "" {
		published, apiErr = api.UpdateBlog(ctx, token, d.BlogID, in)
	} else {
		published, apiErr = api.CreateBlog(ctx, token, in)
	}
	if apiErr != nil {
		return nil, apiErr
	}

	if err := s.Delete(ctx, ownerID, id); err != nil {
		// The post is live; a leftover draft is harmless.
		logx.Warn("Published draft could not be deleted", "draft_id", id, "error", err.Error())
	}

	return published, nil
}

// StorageError maps a drafts error to the client error contract.
func StorageError(err error) *errs.CustomError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return errs.NewError(errs.ErrNotFound).WithMessage("Draft not found")
	case errors.Is(err, ErrConflict):
		return errs.NewError(errs.ErrDraftConflict)
	default:
		logx.Error(err, "Drafts storage failed")
		return errs.NewError(errs.ErrStorageFailed).WithCause(err)
	}
}
