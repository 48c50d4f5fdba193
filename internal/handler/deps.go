package handler

import (
	"net/http"

	"blogclient/internal/apiclient"
	"blogclient/internal/app/drafts"
	"blogclient/internal/app/guard"
	"blogclient/internal/app/optimistic"
	"blogclient/internal/app/session"
	"blogclient/internal/app/storage"
	"blogclient/internal/configs"
	"blogclient/internal/pkg/errs"
	"blogclient/internal/pkg/randx"
	"blogclient/internal/pkg/resp"

	"github.com/go-chi/chi/v5"
)

// AppDeps is everything the views need. Drafts and Exporter may be nil.
type AppDeps struct {
	Config   *configs.AppConfig
	API      *apiclient.Client
	Session  *session.Store
	Likes    *optimistic.Likes
	Follows  *optimistic.Follows
	Drafts   *drafts.Store
	Exporter *storage.Exporter
}

// NewAppDeps wires the toggles to api and sessions.
func NewAppDeps(cfg *configs.AppConfig, api *apiclient.Client, sessions *session.Store) *AppDeps {
	return &AppDeps{
		Config:  cfg,
		API:     api,
		Session: sessions,
		Likes:   optimistic.NewLikes(api, sessions),
		Follows: optimistic.NewFollows(api, sessions),
	}
}

// viewer returns the snapshot the guard decided on, or a fresh one on unguarded routes.
func (deps *AppDeps) viewer(r *http.Request) session.Session {
	if s, ok := guard.SessionFrom(r); ok {
		return s
	}
	return deps.Session.Snapshot()
}

// objectID reads the {id} URL parameter, rejecting anything that is not an API object id.
func objectID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !randx.IsValidObjectID(id) {
		resp.RespondError(w, r, errs.NewError(errs.ErrNotFound))
		return "", false
	}
	return id, true
}

// respondResult writes a session store result: the error envelope on failure,
// otherwise data with the result's notice and redirect.
func respondResult(w http.ResponseWriter, r *http.Request, res session.Result, data any) {
	if !res.Success {
		resp.RespondError(w, r, res.Err)
		return
	}

	if res.Redirect != "" || res.Notice != "" {
		resp.RespondRedirect(w, r, res.Redirect, res.Notice, data)
		return
	}

	resp.RespondSuccess(w, r, data)
}
