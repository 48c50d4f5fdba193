/*
Package handler provides the view server's HTTP handlers: session views (login,
signup, logout), post and author views, the like and follow toggles, media
uploads, local drafts and post export.
*/
package handler

import (
	"net/http"

	"blogclient/internal/app/guard"
	"blogclient/internal/app/media"
	"blogclient/internal/app/session"
	"blogclient/internal/app/user"
	"blogclient/internal/pkg/errs"
	"blogclient/internal/pkg/req"
	"blogclient/internal/pkg/resp"
)

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionView is the public form of a session snapshot.
type SessionView struct {
	State   string     `json:"state"`
	User    *user.User `json:"user,omitempty"`
	Loading bool       `json:"loading"`
	Pending bool       `json:"pending"`
	Error   string     `json:"error,omitempty"`
}

func sessionView(s session.Session) SessionView {
	return SessionView{
		State:   s.State().String(),
		User:    s.User,
		Loading: s.Loading,
		Pending: s.Pending,
		Error:   s.Error,
	}
}

// HandleSession returns the current session.
func HandleSession(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, sessionView(deps.Session.Snapshot()))
	}
}

// HandleClearError dismisses the session's error message.
func HandleClearError(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Session.ClearError()
		resp.RespondSuccess(w, r, sessionView(deps.Session.Snapshot()))
	}
}

// HandleRefreshSession retries resolving the held token, e.g. after a failed
// profile fetch at boot, and returns the resulting session.
func HandleRefreshSession(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if res := deps.Session.Refresh(r.Context()); !res.Success {
			resp.RespondErrorData(w, r, res.Err, sessionView(deps.Session.Snapshot()))
			return
		}
		resp.RespondSuccess(w, r, sessionView(deps.Session.Snapshot()))
	}
}

// HandleLoginPage returns the login view model: where a successful login will go.
func HandleLoginPage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"from":  guard.SafeReturn(r.URL.Query().Get("from")),
			"error": deps.Session.Snapshot().Error,
		})
	}
}

// HandleLogin logs in and redirects to the page the user was sent away from.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input LoginInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		res := deps.Session.Login(r.Context(), input.Email, input.Password)
		if !res.Success {
			resp.RespondError(w, r, res.Err)
			return
		}

		resp.RespondRedirect(w, r, guard.SafeReturn(r.URL.Query().Get("from")), "Login successful", sessionView(deps.Session.Snapshot()))
	}
}

// HandleSignupPage returns the signup view model.
func HandleSignupPage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"maxAvatarSizeMB": media.MaxImageSizeMB,
			"error":           deps.Session.Snapshot().Error,
		})
	}
}

// HandleSignup creates an account from a JSON body, or from a multipart form
// when an avatar is attached. It never logs the user in.
func HandleSignup(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input user.SignupInput

		if req.IsMultipart(r) {
			if customErr := req.SetupMultipart(w, r); customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}

			input = user.SignupInput{
				Username:        r.FormValue("username"),
				Email:           r.FormValue("email"),
				FullName:        r.FormValue("fullName"),
				Password:        r.FormValue("password"),
				ConfirmPassword: r.FormValue("confirmPassword"),
				Bio:             r.FormValue("bio"),
			}

			avatar, customErr := uploadedFile(r, "avatar")
			if customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
			input.Avatar = avatar
		} else if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		respondResult(w, r, deps.Session.Signup(r.Context(), input), nil)
	}
}

// HandleLogout ends the session. It always succeeds.
func HandleLogout(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := deps.Session.Logout(r.Context())
		resp.RespondRedirect(w, r, res.Redirect, "Logged out", nil)
	}
}

// uploadedFile reads the optional file field of a parsed multipart form.
func uploadedFile(r *http.Request, field string) (*media.File, *errs.CustomError) {
	f, customErr := req.FormFile(r, field)
	if customErr != nil {
		return nil, customErr
	}
	if f == nil {
		return nil, nil
	}

	return &media.File{Field: field, Name: f.Name, ContentType: f.ContentType, Data: f.Data}, nil
}
