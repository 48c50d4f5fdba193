package handler

import (
	"net/http"

	"blogclient/internal/app/blog"
	"blogclient/internal/app/drafts"
	"blogclient/internal/pkg/errs"
	"blogclient/internal/pkg/randx"
	"blogclient/internal/pkg/req"
	"blogclient/internal/pkg/resp"

	"github.com/go-chi/chi/v5"
)

type DraftInput struct {
	BlogID string         `json:"blogId"`
	Post   blog.PostInput `json:"post"`
}

// withDrafts answers 503 when no drafts database is open.
func withDrafts(deps *AppDeps, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Drafts == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageFailed).
				WithMessage("Drafts are not available").
				WithStatus(http.StatusServiceUnavailable))
			return
		}
		next(w, r)
	}
}

// HandleListDrafts lists the viewer's drafts, newest first.
func HandleListDrafts(deps *AppDeps) http.HandlerFunc {
	return withDrafts(deps, func(w http.ResponseWriter, r *http.Request) {
		list, err := deps.Drafts.List(r.Context(), deps.viewer(r).UserID())
		if err != nil {
			resp.RespondError(w, r, drafts.StorageError(err))
			return
		}

		resp.RespondSuccess(w, r, map[string]any{"drafts": list})
	})
}

// HandleGetDraft returns draft {draftID}.
func HandleGetDraft(deps *AppDeps) http.HandlerFunc {
	return withDrafts(deps, func(w http.ResponseWriter, r *http.Request) {
		d, err := deps.Drafts.Get(r.Context(), deps.viewer(r).UserID(), chi.URLParam(r, "draftID"))
		if err != nil {
			resp.RespondError(w, r, drafts.StorageError(err))
			return
		}

		resp.RespondSuccess(w, r, d)
	})
}

// HandleSaveDraft creates a draft, or updates draft {draftID} when the route has one.
// Drafts are not validated; publishing is.
func HandleSaveDraft(deps *AppDeps) http.HandlerFunc {
	return withDrafts(deps, func(w http.ResponseWriter, r *http.Request) {
		var input DraftInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.BlogID != "" && !randx.IsValidObjectID(input.BlogID) {
			resp.RespondError(w, r, errs.Validation(map[string]string{"blogId": "Unknown post"}))
			return
		}

		d, err := deps.Drafts.Save(r.Context(), drafts.Draft{
			ID:      chi.URLParam(r, "draftID"),
			OwnerID: deps.viewer(r).UserID(),
			BlogID:  input.BlogID,
			Post:    input.Post,
		})
		if err != nil {
			resp.RespondError(w, r, drafts.StorageError(err))
			return
		}

		resp.RespondSuccess(w, r, d)
	})
}

// HandleDeleteDraft removes draft {draftID}.
func HandleDeleteDraft(deps *AppDeps) http.HandlerFunc {
	return withDrafts(deps, func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Drafts.Delete(r.Context(), deps.viewer(r).UserID(), chi.URLParam(r, "draftID")); err != nil {
			resp.RespondError(w, r, drafts.StorageError(err))
			return
		}

		resp.RespondRedirect(w, r, "/drafts", "Draft deleted", nil)
	})
}

// HandlePublishDraft publishes draft {draftID} and redirects to the post.
func HandlePublishDraft(deps *AppDeps) http.HandlerFunc {
	return withDrafts(deps, func(w http.ResponseWriter, r *http.Request) {
		viewer := deps.viewer(r)

		b, customErr := deps.Drafts.Publish(r.Context(), deps.API, viewer.Token, viewer.UserID(), chi.URLParam(r, "draftID"))
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondRedirect(w, r, "/blog/"+b.ID, "Post published", deps.blogView(b, viewer.UserID()))
	})
}

// HandleExport uploads the viewer's posts to the export bucket and returns a download link.
func HandleExport(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewer := deps.viewer(r)

		export, customErr := deps.Exporter.Export(r.Context(), viewer.Token, viewer.User)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, export)
	}
}
