package handler

import (
	"encoding/json"
	"net/http"

	"blogclient/internal/app/optimistic"
	"blogclient/internal/app/user"
	"blogclient/internal/pkg/errs"
	"blogclient/internal/pkg/req"
	"blogclient/internal/pkg/resp"
)

// AuthorView is an author profile as the viewer sees it.
type AuthorView struct {
	*user.User
	Follow optimistic.FollowState `json:"follow"`
	IsSelf bool                   `json:"isSelf"`
}

func (deps *AppDeps) authorView(u *user.User, viewerID string) AuthorView {
	u.Email = ""
	return AuthorView{
		User:   u,
		Follow: deps.Follows.Observe(u, viewerID),
		IsSelf: viewerID != "" && u.ID == viewerID,
	}
}

// HandleProfile refreshes and shows the viewer's own profile with their posts.
func HandleProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if res := deps.Session.FetchProfile(r.Context()); !res.Success {
			resp.RespondError(w, r, res.Err)
			return
		}

		snap := deps.Session.Snapshot()
		list, err := deps.API.MyPosts(r.Context(), snap.Token)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"user":  snap.User,
			"posts": deps.listView(list, snap.UserID())["blogs"],
		})
	}
}

// HandleProfileEditPage returns the viewer's profile as a filled-in form.
func HandleProfileEditPage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{"user": deps.viewer(r).User})
	}
}

// HandleProfileUpdate saves profile changes from a JSON body, or from a
// multipart form when a new avatar is attached.
func HandleProfileUpdate(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input user.ProfileUpdate

		if req.IsMultipart(r) {
			if customErr := req.SetupMultipart(w, r); customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}

			var customErr *errs.CustomError
			if input, customErr = profileFromForm(r); customErr != nil {
				resp.RespondError(w, r, customErr)
				return
			}
		} else if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		res := deps.Session.UpdateProfile(r.Context(), input)
		if res.Success && res.Redirect == "" {
			res.Redirect = "/profile"
			res.Notice = "Profile updated"
		}

		respondResult(w, r, res, map[string]any{"user": deps.Session.Snapshot().User})
	}
}

func profileFromForm(r *http.Request) (user.ProfileUpdate, *errs.CustomError) {
	var p user.ProfileUpdate

	if _, ok := r.MultipartForm.Value["fullName"]; ok {
		v := r.FormValue("fullName")
		p.FullName = &v
	}
	if _, ok := r.MultipartForm.Value["bio"]; ok {
		v := r.FormValue("bio")
		p.Bio = &v
	}

	if raw := r.FormValue("socialLinks"); raw != "" {
		var links user.SocialLinks
		if err := json.Unmarshal([]byte(raw), &links); err != nil {
			return p, errs.Validation(map[string]string{"socialLinks": "Social links must be a JSON object"})
		}
		p.SocialLinks = &links
	}

	if raw := r.FormValue("notificationPreferences"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.NotificationPreferences); err != nil {
			return p, errs.Validation(map[string]string{"notificationPreferences": "Notification preferences must be a JSON object"})
		}
	}

	avatar, customErr := uploadedFile(r, "avatar")
	if customErr != nil {
		return p, customErr
	}
	p.Avatar = avatar

	return p, nil
}

// HandleAuthor shows an author's profile and posts.
func HandleAuthor(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := objectID(w, r)
		if !ok {
			return
		}

		viewer := deps.viewer(r)
		author, err := deps.API.GetUser(r.Context(), viewer.Token, id)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		list, err := deps.API.UserBlogs(r.Context(), viewer.Token, id)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, map[string]any{
			"author": deps.authorView(author, viewer.UserID()),
			"posts":  deps.listView(list, viewer.UserID())["blogs"],
		})
	}
}

// HandleFollowers lists who follows author {id}.
func HandleFollowers(deps *AppDeps) http.HandlerFunc {
	return handleConnections(deps, func(u *user.User) []user.UserRef { return u.Followers })
}

// HandleFollowing lists whom author {id} follows.
func HandleFollowing(deps *AppDeps) http.HandlerFunc {
	return handleConnections(deps, func(u *user.User) []user.UserRef { return u.Following })
}

func handleConnections(deps *AppDeps, pick func(*user.User) []user.UserRef) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := objectID(w, r)
		if !ok {
			return
		}

		viewer := deps.viewer(r)
		author, err := deps.API.GetUser(r.Context(), viewer.Token, id)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		users := pick(author)
		if users == nil {
			users = []user.UserRef{}
		}

		resp.RespondSuccess(w, r, map[string]any{
			"author": deps.authorView(author, viewer.UserID()),
			"users":  users,
		})
	}
}

// HandleFollow follows or unfollows author {id}. Like HandleLike, the
// response carries the visible state, rolled back on failure.
func HandleFollow(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := objectID(w, r)
		if !ok {
			return
		}

		viewer := deps.viewer(r)

		author := &user.User{ID: id}
		if !deps.Follows.Known(viewer.UserID(), id) {
			fetched, err := deps.API.GetUser(r.Context(), viewer.Token, id)
			if err != nil {
				resp.RespondError(w, r, err)
				return
			}
			author = fetched
		}

		out := deps.Follows.Toggle(r.Context(), author)
		if !out.OK() {
			resp.RespondErrorData(w, r, out.Err, out.Value)
			return
		}

		resp.RespondSuccess(w, r, out.Value)
	}
}
