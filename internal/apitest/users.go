package apitest

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"blogclient/internal/app/user"
	"blogclient/internal/pkg/auth/jwt"
)

// currentLocked returns the account of the request's bearer token. Callers hold s.mu.
func (s *Server) currentLocked(r *http.Request) *account {
	claims := jwt.ClaimsFromContext(r)
	if claims == nil {
		return nil
	}
	return s.accounts[claims.ID]
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[s.byEmail[strings.ToLower(in.Email)]]
	if !ok || a.password != in.Password {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": s.TokenFor(a.user.ID),
		"user":  a.user,
	})
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	in := map[string]string{}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid form")
			return
		}
		for key, values := range r.MultipartForm.Value {
			in[key] = values[0]
		}
	} else if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var problems []map[string]string
	if _, taken := s.byEmail[strings.ToLower(in["email"])]; taken {
		problems = append(problems, map[string]string{"msg": "Email already registered"})
	}
	for _, a := range s.accounts {
		if strings.EqualFold(a.user.Username, in["username"]) {
			problems = append(problems, map[string]string{"msg": "Username already taken"})
			break
		}
	}
	if len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": problems})
		return
	}

	a := s.addUserLocked(in["username"], strings.ToLower(in["email"]), in["password"], in["fullName"])
	a.user.Bio = in["bio"]

	if r.MultipartForm != nil {
		if files := r.MultipartForm.File["avatar"]; len(files) > 0 {
			a.user.Avatar = user.Avatar{URL: "https://cdn.test/avatars/" + files[0].Filename}
		}
	}

	writeMessage(w, http.StatusCreated, "User registered successfully")
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.currentLocked(r)
	if a == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}

	writeJSON(w, http.StatusOK, a.user)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	var (
		in     user.ProfileUpdate
		avatar string
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeMessage(w, http.StatusBadRequest, "Invalid form")
			return
		}
		if v, ok := r.MultipartForm.Value["fullName"]; ok {
			in.FullName = &v[0]
		}
		if v, ok := r.MultipartForm.Value["bio"]; ok {
			in.Bio = &v[0]
		}
		if v, ok := r.MultipartForm.Value["socialLinks"]; ok {
			in.SocialLinks = &user.SocialLinks{}
			if err := json.Unmarshal([]byte(v[0]), in.SocialLinks); err != nil {
				writeMessage(w, http.StatusBadRequest, "Invalid social links")
				return
			}
		}
		if files := r.MultipartForm.File["avatar"]; len(files) > 0 {
			avatar = "https://cdn.test/avatars/" + files[0].Filename
		}
	} else if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.currentLocked(r)
	if a == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}

	if in.FullName != nil {
		a.user.FullName = *in.FullName
	}
	if in.Bio != nil {
		a.user.Bio = *in.Bio
	}
	if in.SocialLinks != nil {
		a.user.SocialLinks = *in.SocialLinks
	}
	if in.NotificationPreferences != nil {
		a.user.NotificationPreferences = in.NotificationPreferences
	}
	if avatar != "" {
		a.user.Avatar = user.Avatar{URL: avatar}
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": a.user})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := jwt.BearerToken(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentLocked(r) == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}

	s.revoked[token] = true
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (s *Server) follow(w http.ResponseWriter, r *http.Request) {
	s.setFollow(w, r, true)
}

func (s *Server) unfollow(w http.ResponseWriter, r *http.Request) {
	s.setFollow(w, r, false)
}

func (s *Server) setFollow(w http.ResponseWriter, r *http.Request, follow bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	me := s.currentLocked(r)
	if me == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}

	target, ok := s.accounts[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "User not found"})
		return
	}

	if target.user.ID == me.user.ID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "You cannot follow yourself"})
		return
	}

	following := user.ContainsRef(me.user.Following, target.user.ID)

	switch {
	case follow && following:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "You are already following this user"})
		return
	case !follow && !following:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "You are not following this user"})
		return
	case follow:
		me.user.Following = append(me.user.Following, target.user.Ref())
		target.user.Followers = append(target.user.Followers, me.user.Ref())
	default:
		me.user.Following = user.WithoutRef(me.user.Following, target.user.ID)
		target.user.Followers = user.WithoutRef(target.user.Followers, me.user.ID)
	}

	writeMessage(w, http.StatusOK, "Success")
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[chi.URLParam(r, "id")]
	if !ok {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}

	public := *a.user.Clone()
	public.Email = ""

	writeJSON(w, http.StatusOK, public)
}
