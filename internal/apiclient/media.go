package apiclient

import (
	"context"
	"net/http"

	"blogclient/internal/app/media"
	"blogclient/internal/pkg/errs"
)

// UploadMedia validates f against expected and uploads it to the endpoint of
// its kind. An empty expected kind accepts images and videos.
func (c *Client) UploadMedia(ctx context.Context, token string, f *media.File, expected media.Kind) (*media.Media, *errs.CustomError) {
	if err := media.Validate(f, expected); err != nil {
		return nil, err
	}

	file := *f
	file.Field = "file"

	body, err := c.DoRaw(ctx, Request{
		Method:  http.MethodPost,
		Path:    media.UploadPath(file.Kind()),
		Token:   token,
		Form:    NewForm().AddFile(&file),
		Failure: errs.ErrUploadFailed,
	})
	if err != nil {
		return nil, err
	}

	var m media.Media
	if err := decodeAt(body, &m, "media", "data.media", "data"); err != nil {
		return nil, err
	}

	if m.URL == "" {
		return nil, errs.NewError(errs.ErrMalformedResponse)
	}

	return &m, nil
}
