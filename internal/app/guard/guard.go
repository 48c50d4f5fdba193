/*
Package guard gates views on the session state.

Decide is a pure function of the capability a view requires, a session
snapshot and the requested path. Middleware applies it to chi routes: a
protected view answers 202 with a loading state while the identity is still
being resolved, never its content and never a redirect; once resolved it
either renders or redirects to the login page with the requested path kept
for the return trip. A token whose profile fetch failed is retried before the
decision is made.
*/
package guard

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"blogclient/internal/app/session"
	"blogclient/internal/pkg/resp"
)

// Capability is what a view requires of the session.
type Capability int

const (
	// Public views render for everyone.
	Public Capability = iota
	// RequiresAuth views render only for an authenticated session.
	RequiresAuth
	// RequiresAnonymous views render only when nobody is logged in.
	RequiresAnonymous
)

// Outcome is what a guarded view does.
type Outcome int

const (
	Render Outcome = iota
	Loading
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	default:
		return "render"
	}
}

const (
	LoginPath = "/login"
	HomePath  = "/"
)

// Decision is the outcome of a guard and, for redirects, where to go.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Decide gates a view requiring c, requested at requested, for session s.
func Decide(c Capability, s session.Session, requested string) Decision {
	switch c {
	case RequiresAuth:
		switch s.State() {
		case session.Authenticating:
			return Decision{Outcome: Loading}
		case session.Anonymous:
			return Decision{Outcome: Redirect, Location: LoginURL(requested)}
		default:
			return Decision{Outcome: Render}
		}

	case RequiresAnonymous:
		if s.State() == session.Authenticated {
			return Decision{Outcome: Redirect, Location: HomePath}
		}
		return Decision{Outcome: Render}

	default:
		return Decision{Outcome: Render}
	}
}

// LoginURL returns the login path carrying from as the return destination.
func LoginURL(from string) string {
	from = SafeReturn(from)
	if from == HomePath || strings.HasPrefix(from, LoginPath) {
		return LoginPath
	}
	return LoginPath + "?from=" + url.QueryEscape(from)
}

// SafeReturn returns from when it is a local path, "/" otherwise.
// Absolute URLs, scheme-relative paths and backslash tricks are rejected.
func SafeReturn(from string) string {
	if from == "" || !strings.HasPrefix(from, "/") ||
		strings.HasPrefix(from, "//") || strings.HasPrefix(from, "/\\") {
		return HomePath
	}

	u, err := url.Parse(from)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return HomePath
	}

	return from
}

// Identity exposes the current session to the middleware.
type Identity interface {
	Snapshot() session.Session
}

// Refresher is an Identity that can retry resolving a held token. The
// middleware retries before deciding whenever the snapshot NeedsProfile.
type Refresher interface {
	Identity
	Refresh(ctx context.Context) session.Result
}

type contextKey string

const sessionKey contextKey = "guard_session"

// Middleware gates every route it wraps with c.
func Middleware(c Capability, sessions Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := sessions.Snapshot()
			if rf, ok := sessions.(Refresher); ok && snap.NeedsProfile() {
				rf.Refresh(r.Context())
				snap = sessions.Snapshot()
			}

			d := Decide(c, snap, r.URL.RequestURI())

			switch d.Outcome {
			case Loading:
				resp.RespondJSON(w, r, http.StatusAccepted, resp.JSONResponse{
					Success: true,
					Message: "loading",
					Data:    map[string]string{"state": "loading"},
				})

			case Redirect:
				w.Header().Set("Location", d.Location)
				resp.RespondJSON(w, r, http.StatusSeeOther, resp.JSONResponse{
					Success:  true,
					Message:  "redirect",
					Redirect: d.Location,
				})

			default:
				ctx := context.WithValue(r.Context(), sessionKey, snap)
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

// SessionFrom returns the snapshot the guard decided on, and whether one is present.
func SessionFrom(r *http.Request) (session.Session, bool) {
	s, ok := r.Context().Value(sessionKey).(session.Session)
	return s, ok
}
