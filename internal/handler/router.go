package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"blogclient/internal/app/guard"
	"blogclient/internal/app/live"
	"blogclient/internal/app/session"
	"blogclient/internal/pkg/limiter"
	"blogclient/internal/pkg/logx"
	"blogclient/internal/pkg/resp"
)

const (
	MutationRate  = 2
	MutationBurst = 10
)

// Router sets up the view server's routing table (chi.Router). It applies
// logging, CORS and panic recovery to every route, gates views with the session
// guards and rate limits the mutation routes per client. The returned stop
// function ends the rate limiter's background cleanup and the live session hub.
func Router(deps *AppDeps) (http.Handler, func()) {
	mutations := limiter.New(rate.Limit(MutationRate), MutationBurst, nil)

	hub := live.NewHub(deps.Session, func(s session.Session) any { return sessionView(s) })
	go hub.Run()

	stop := func() {
		mutations.Stop()
		hub.Stop()
		<-hub.Done()
	}

	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]string{
			"status":  "ok",
			"service": "blogctl view server",
			"api":     deps.API.BaseURL(),
		})
	})

	r.Get("/session", HandleSession(deps))
	r.Get("/session/live", HandleSessionLive(hub, newUpgrader(deps)))
	r.Post("/session/refresh", HandleRefreshSession(deps))
	r.Delete("/session/error", HandleClearError(deps))
	r.Post("/logout", HandleLogout(deps))

	r.Group(func(public chi.Router) {
		public.Use(guard.Middleware(guard.Public, deps.Session))

		public.Get("/", HandleHome(deps))
		public.Get("/blog/{id}", HandleBlog(deps))
		public.Get("/author/{id}", HandleAuthor(deps))
		public.Get("/author/{id}/followers", HandleFollowers(deps))
		public.Get("/author/{id}/following", HandleFollowing(deps))
	})

	// The toggles answer anonymous actors with a login redirect themselves.
	r.Group(func(mutation chi.Router) {
		mutation.Use(mutations.Middleware)

		mutation.Post("/blog/{id}/like", HandleLike(deps))
		mutation.Post("/blog/{id}/comments", HandleComment(deps))
		mutation.Post("/author/{id}/follow", HandleFollow(deps))
	})

	r.Group(func(anon chi.Router) {
		anon.Use(guard.Middleware(guard.RequiresAnonymous, deps.Session))

		anon.Get("/login", HandleLoginPage(deps))
		anon.Post("/login", HandleLogin(deps))
		anon.Get("/signup", HandleSignupPage(deps))
		anon.Post("/signup", HandleSignup(deps))
	})

	r.Group(func(protected chi.Router) {
		protected.Use(guard.Middleware(guard.RequiresAuth, deps.Session))

		protected.Get("/profile", HandleProfile(deps))
		protected.Get("/profile/edit", HandleProfileEditPage(deps))
		protected.Post("/profile/edit", HandleProfileUpdate(deps))

		protected.Get("/create", HandleCreatePage(deps))
		protected.Post("/create", HandleCreate(deps))
		protected.Get("/my-posts", HandleMyPosts(deps))
		protected.Get("/edit/{id}", HandleEditPage(deps))
		protected.Post("/edit/{id}", HandleUpdate(deps))
		protected.Delete("/edit/{id}", HandleDelete(deps))

		protected.Post("/media/upload", HandleUpload(deps))

		protected.Route("/drafts", func(d chi.Router) {
			d.Get("/", HandleListDrafts(deps))
			d.Post("/", HandleSaveDraft(deps))
			d.Get("/{draftID}", HandleGetDraft(deps))
			d.Put("/{draftID}", HandleSaveDraft(deps))
			d.Delete("/{draftID}", HandleDeleteDraft(deps))
			d.Post("/{draftID}/publish", HandlePublishDraft(deps))
		})

		protected.Post("/export", HandleExport(deps))
	})

	return r, stop
}
