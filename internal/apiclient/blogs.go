package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"blogclient/internal/app/blog"
	"blogclient/internal/pkg/errs"
)

// Pagination is the paging block of a list response.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// BlogList is one page of posts.
type BlogList struct {
	Blogs      []blog.Blog `json:"blogs"`
	Pagination Pagination  `json:"pagination"`
}

// ListBlogs returns published posts matching q.
func (c *Client) ListBlogs(ctx context.Context, token string, q blog.ListQuery) (*BlogList, *errs.CustomError) {
	return c.blogList(ctx, Request{Path: "/blogs", Query: q.Values(), Token: token})
}

// MyPosts returns every post of the token's owner, drafts included.
func (c *Client) MyPosts(ctx context.Context, token string) (*BlogList, *errs.CustomError) {
	return c.blogList(ctx, Request{Path: "/blogs/my-posts", Token: token})
}

// UserBlogs returns the published posts of userID.
func (c *Client) UserBlogs(ctx context.Context, token, userID string) (*BlogList, *errs.CustomError) {
	return c.blogList(ctx, Request{Path: "/blogs/user/" + url.PathEscape(userID), Token: token})
}

func (c *Client) blogList(ctx context.Context, r Request) (*BlogList, *errs.CustomError) {
	body, err := c.DoRaw(ctx, r)
	if err != nil {
		return nil, err
	}

	doc, parseErr := parseJSON(body)
	if parseErr != nil {
		return nil, errs.NewError(errs.ErrMalformedResponse).WithCause(parseErr)
	}

	out := &BlogList{}

	if err := decodeDoc(doc, &out.Blogs, "data.blogs", "blogs", "data"); err != nil {
		return nil, err
	}

	if pagination, ok := at(doc, "data.pagination", "pagination"); ok {
		_ = json.Unmarshal(pagination.Bytes(), &out.Pagination)
	}

	if out.Blogs == nil {
		out.Blogs = []blog.Blog{}
	}

	return out, nil
}

// GetBlog fetches one post.
func (c *Client) GetBlog(ctx context.Context, token, id string) (*blog.Blog, *errs.CustomError) {
	return c.blogItem(ctx, Request{Path: "/blogs/" + url.PathEscape(id), Token: token})
}

// CreateBlog publishes or saves a new post.
func (c *Client) CreateBlog(ctx context.Context, token string, in blog.PostInput) (*blog.Blog, *errs.CustomError) {
	return c.blogItem(ctx, Request{Method: http.MethodPost, Path: "/blogs", Token: token, JSON: in})
}

// UpdateBlog replaces the editable fields of post id.
func (c *Client) UpdateBlog(ctx context.Context, token, id string, in blog.PostInput) (*blog.Blog, *errs.CustomError) {
	return c.blogItem(ctx, Request{Method: http.MethodPut, Path: "/blogs/" + url.PathEscape(id), Token: token, JSON: in})
}

func (c *Client) blogItem(ctx context.Context, r Request) (*blog.Blog, *errs.CustomError) {
	body, err := c.DoRaw(ctx, r)
	if err != nil {
		return nil, err
	}

	var b blog.Blog
	if err := decodeAt(body, &b, "blog", "data.blog", "data"); err != nil {
		return nil, err
	}

	return &b, nil
}

// DeleteBlog removes post id.
func (c *Client) DeleteBlog(ctx context.Context, token, id string) *errs.CustomError {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: "/blogs/" + url.PathEscape(id), Token: token}, nil)
}

// ToggleLike flips the like of the token's owner on post id and returns the
// resulting state as reported by the API. The like count is taken from a
// "likes" number or list when the API sends one.
func (c *Client) ToggleLike(ctx context.Context, token, id string) (blog.LikeResult, *errs.CustomError) {
	res := blog.LikeResult{Count: -1}

	body, err := c.DoRaw(ctx, Request{Method: http.MethodPost, Path: "/blogs/" + url.PathEscape(id) + "/like", Token: token})
	if err != nil {
		return res, err
	}

	doc, parseErr := parseJSON(bytes.TrimSpace(body))
	if parseErr != nil {
		return res, errs.NewError(errs.ErrMalformedResponse).WithCause(parseErr)
	}
	if data, ok := at(doc, "data"); ok {
		doc = data
	}

	liked, ok := doc.S("isLiked").Data().(bool)
	if !ok {
		return res, errs.NewError(errs.ErrMalformedResponse)
	}
	res.Liked = liked

	switch likes := doc.S("likes").Data().(type) {
	case json.Number:
		if n, err := likes.Int64(); err == nil && n >= 0 {
			res.Count = int(n)
		}
	case []any:
		res.Count = len(likes)
	}

	return res, nil
}

// AddComment posts a comment on post id.
func (c *Client) AddComment(ctx context.Context, token, id, content string) (*blog.Comment, *errs.CustomError) {
	content, validationErr := blog.ValidateComment(content)
	if validationErr != nil {
		return nil, validationErr
	}

	body, err := c.DoRaw(ctx, Request{
		Method: http.MethodPost,
		Path:   "/blogs/" + url.PathEscape(id) + "/comments",
		Token:  token,
		JSON:   map[string]string{"content": content},
	})
	if err != nil {
		return nil, err
	}

	var comment blog.Comment
	if err := decodeAt(body, &comment, "comment", "data.comment", "data"); err != nil {
		return nil, err
	}

	return &comment, nil
}
