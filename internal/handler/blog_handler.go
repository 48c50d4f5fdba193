package handler

import (
	"net/http"
	"strconv"

	"blogclient/internal/apiclient"
	"blogclient/internal/app/blog"
	"blogclient/internal/app/optimistic"
	"blogclient/internal/pkg/errs"
	"blogclient/internal/pkg/req"
	"blogclient/internal/pkg/resp"
)

// BlogView is a post with what the viewer sees of it.
type BlogView struct {
	*blog.Blog
	Like      optimistic.LikeState `json:"like"`
	ReadTime  int                  `json:"readTime"`
	WordCount int                  `json:"wordCount"`
	CanEdit   bool                 `json:"canEdit"`
}

type CommentInput struct {
	Content string `json:"content"`
}

func (deps *AppDeps) blogView(b *blog.Blog, viewerID string) BlogView {
	return BlogView{
		Blog:      b,
		Like:      deps.Likes.Observe(b, viewerID),
		ReadTime:  blog.ReadTime(b.Content),
		WordCount: blog.WordCount(b.Content),
		CanEdit:   b.IsAuthoredBy(viewerID),
	}
}

func (deps *AppDeps) listView(list *apiclient.BlogList, viewerID string) map[string]any {
	views := make([]BlogView, 0, len(list.Blogs))
	for i := range list.Blogs {
		views = append(views, deps.blogView(&list.Blogs[i], viewerID))
	}

	return map[string]any{
		"blogs":      views,
		"pagination": list.Pagination,
	}
}

// HandleHome lists posts, filtered by the category, search, author, page and limit query parameters.
func HandleHome(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer := deps.viewer(r)
		values := r.URL.Query()

		q := blog.ListQuery{
			Category: values.Get("category"),
			Search:   values.Get("search"),
			Author:   values.Get("author"),
		}
		q.Page, _ = strconv.Atoi(values.Get("page"))
		q.Limit, _ = strconv.Atoi(values.Get("limit"))

		list, err := deps.API.ListBlogs(r.Context(), viewer.Token, q)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, deps.listView(list, viewer.UserID()))
	}
}

// HandleBlog shows one post with its comments.
func HandleBlog(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := objectID(w, r)
		if !ok {
			return
		}

		viewer := deps.viewer(r)
		b, err := deps.API.GetBlog(r.Context(), viewer.Token, id)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, deps.blogView(b, viewer.UserID()))
	}
}

// HandleMyPosts lists the viewer's posts, drafts included.
func HandleMyPosts(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer := deps.viewer(r)

		list, err := deps.API.MyPosts(r.Context(), viewer.Token)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, deps.listView(list, viewer.UserID()))
	}
}

// HandleCreatePage returns the post form's choices.
func HandleCreatePage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"categories": blog.Categories,
			"maxTags":    blog.MaxTags,
		})
	}
}

// HandleCreate validates and creates a post, then redirects to it.
func HandleCreate(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input blog.PostInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		input.Normalize()
		if customErr := input.Validate(); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		viewer := deps.viewer(r)
		b, err := deps.API.CreateBlog(r.Context(), viewer.Token, input)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondRedirect(w, r, "/blog/"+b.ID, "Post created", deps.blogView(b, viewer.UserID()))
	}
}

// ownedBlog loads post {id} and checks that the viewer wrote it.
func (deps *AppDeps) ownedBlog(w http.ResponseWriter, r *http.Request) (*blog.Blog, bool) {
	id, ok := objectID(w, r)
	if !ok {
		return nil, false
	}

	viewer := deps.viewer(r)
	b, err := deps.API.GetBlog(r.Context(), viewer.Token, id)
	if err != nil {
		resp.RespondError(w, r, err)
		return nil, false
	}

	if !b.IsAuthoredBy(viewer.UserID()) {
		resp.RespondError(w, r, errs.NewError(errs.ErrRejected).
			WithMessage("You can only edit your own posts").
			WithStatus(http.StatusForbidden))
		return nil, false
	}

	return b, true
}

// HandleEditPage returns an owned post as a filled-in form.
func HandleEditPage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := deps.ownedBlog(w, r)
		if !ok {
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"id": b.ID,
			"post": blog.PostInput{
				Title:        b.Title,
				Content:      b.Content,
				Excerpt:      b.Excerpt,
				Category:     b.Category,
				Tags:         b.Tags,
				Status:       b.Status,
				Media:        b.Media,
				MediaGallery: b.MediaGallery,
			},
			"categories": blog.Categories,
		})
	}
}

// HandleUpdate validates and saves an owned post.
func HandleUpdate(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := objectID(w, r)
		if !ok {
			return
		}

		var input blog.PostInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		input.Normalize()
		if customErr := input.Validate(); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		viewer := deps.viewer(r)
		b, err := deps.API.UpdateBlog(r.Context(), viewer.Token, id, input)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondRedirect(w, r, "/blog/"+b.ID, "Post updated", deps.blogView(b, viewer.UserID()))
	}
}

// HandleDelete deletes an owned post.
func HandleDelete(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := objectID(w, r)
		if !ok {
			return
		}

		viewer := deps.viewer(r)

		if err := deps.API.DeleteBlog(r.Context(), viewer.Token, id); err != nil {
			resp.RespondError(w, r, err)
			return
		}
		deps.Likes.Forget(viewer.UserID(), id)

		resp.RespondRedirect(w, r, "/my-posts", "Post deleted", nil)
	}
}

// HandleLike toggles the viewer's like on post {id}. The response always
// carries the visible like state, rolled back when the API refused.
func HandleLike(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := objectID(w, r)
		if !ok {
			return
		}

		viewer := deps.viewer(r)

		b := &blog.Blog{ID: id}
		if !deps.Likes.Known(viewer.UserID(), id) {
			fetched, err := deps.API.GetBlog(r.Context(), viewer.Token, id)
			if err != nil {
				resp.RespondError(w, r, err)
				return
			}
			b = fetched
		}

		out := deps.Likes.Toggle(r.Context(), b)
		if !out.OK() {
			resp.RespondErrorData(w, r, out.Err, out.Value)
			return
		}

		resp.RespondSuccess(w, r, out.Value)
	}
}

// HandleComment adds a comment to post {id}.
func HandleComment(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := objectID(w, r)
		if !ok {
			return
		}

		viewer := deps.viewer(r)
		if !viewer.IsAuthenticated() {
			resp.RespondError(w, r, errs.NewError(errs.ErrLoginRequired))
			return
		}

		var input CommentInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		c, err := deps.API.AddComment(r.Context(), viewer.Token, id, input.Content)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondJSON(w, r, http.StatusCreated, resp.JSONResponse{
			Success: true,
			Message: "Comment added",
			Data:    c,
		})
	}
}
