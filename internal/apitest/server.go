/*
Package apitest runs an in-memory blog API for tests.

The fake serves the same routes and response shapes as the real API under
/api/v1, issues HS256 bearer tokens, and lets tests inject failures: the next
call to a route can be answered with a given status and body, held until the
test releases it, or the whole server can go offline so calls fail at the
transport level.
*/
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"blogclient/internal/app/blog"
	"blogclient/internal/app/user"
	"blogclient/internal/pkg/auth/jwt"
	"blogclient/internal/pkg/randx"
)

const (
	// Prefix is the path prefix the API is mounted under.
	Prefix = "/api/v1"

	tokenTTL = time.Hour
)

type account struct {
	user     user.User
	password string
}

type failure struct {
	status int
	body   string
}

// Gate holds one request to a route until Release is called.
type Gate struct {
	arrived chan struct{}
	release chan struct{}
	once    sync.Once
}

// Arrived is closed once the held request reached the server.
func (g *Gate) Arrived() <-chan struct{} {
	return g.arrived
}

// Release lets the held request proceed.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}

// Server is the fake API.
type Server struct {
	*httptest.Server

	secret string

	mu       sync.Mutex
	accounts map[string]*account
	byEmail  map[string]string
	blogs    map[string]*blog.Blog
	order    []string
	revoked  map[string]bool
	failures map[string][]failure
	gates    map[string][]*Gate
	calls    map[string]int
	offline  bool
}

// New starts a fake API and stops it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		secret:   "apitest-secret",
		accounts: make(map[string]*account),
		byEmail:  make(map[string]string),
		blogs:    make(map[string]*blog.Blog),
		revoked:  make(map[string]bool),
		failures: make(map[string][]failure),
		gates:    make(map[string][]*Gate),
		calls:    make(map[string]int),
	}

	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)

	return s
}

// BaseURL is the API base URL to configure clients with.
func (s *Server) BaseURL() string {
	return s.URL + Prefix
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Route(Prefix, func(r chi.Router) {
		r.Use(jwt.IdentityExtractorMiddleware(s.secret, s.isRevoked))

		s.handle(r, http.MethodPost, "/users/login", s.login)
		s.handle(r, http.MethodPost, "/users/signup", s.signup)
		s.handle(r, http.MethodGet, "/users/me", s.me)
		s.handle(r, http.MethodPut, "/users/profile", s.updateProfile)
		s.handle(r, http.MethodPost, "/users/logout", s.logout)
		s.handle(r, http.MethodPost, "/users/follow/{id}", s.follow)
		s.handle(r, http.MethodPost, "/users/unfollow/{id}", s.unfollow)
		s.handle(r, http.MethodGet, "/users/id/{id}", s.getUser)

		s.handle(r, http.MethodGet, "/blogs", s.listBlogs)
		s.handle(r, http.MethodGet, "/blogs/my-posts", s.myPosts)
		s.handle(r, http.MethodGet, "/blogs/user/{id}", s.userBlogs)
		s.handle(r, http.MethodGet, "/blogs/{id}", s.getBlog)
		s.handle(r, http.MethodPost, "/blogs", s.createBlog)
		s.handle(r, http.MethodPut, "/blogs/{id}", s.updateBlog)
		s.handle(r, http.MethodDelete, "/blogs/{id}", s.deleteBlog)
		s.handle(r, http.MethodPost, "/blogs/{id}/like", s.toggleLike)
		s.handle(r, http.MethodPost, "/blogs/{id}/comments", s.addComment)

		s.handle(r, http.MethodPost, "/media/upload-image", s.upload)
		s.handle(r, http.MethodPost, "/media/upload-video", s.upload)
		s.handle(r, http.MethodPost, "/media/upload-blog-media", s.upload)
	})

	return r
}

// handle registers h under "METHOD pattern", the key used by FailNext, Hold and Calls.
func (s *Server) handle(r chi.Router, method, pattern string, h http.HandlerFunc) {
	route := method + " " + pattern

	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		s.calls[route]++
		offline := s.offline

		var fail *failure
		if queue := s.failures[route]; len(queue) > 0 {
			fail = &queue[0]
			s.failures[route] = queue[1:]
		}

		var gate *Gate
		if queue := s.gates[route]; len(queue) > 0 {
			gate = queue[0]
			s.gates[route] = queue[1:]
		}
		s.mu.Unlock()

		if offline {
			dropConnection(w)
			return
		}

		if gate != nil {
			close(gate.arrived)
			select {
			case <-gate.release:
			case <-req.Context().Done():
				return
			}
		}

		if fail != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(fail.status)
			_, _ = w.Write([]byte(fail.body))
			return
		}

		h(w, req)
	}))
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic("apitest: response writer does not support hijacking")
	}

	conn, _, err := hj.Hijack()
	if err != nil {
		panic(err)
	}
	_ = conn.Close()
}

// FailNext answers the next call to route ("POST /blogs/{id}/like") with status and body.
func (s *Server) FailNext(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures[route] = append(s.failures[route], failure{status: status, body: body})
}

// Hold blocks the next call to route until the returned gate is released.
func (s *Server) Hold(route string) *Gate {
	g := &Gate{arrived: make(chan struct{}), release: make(chan struct{})}

	s.mu.Lock()
	s.gates[route] = append(s.gates[route], g)
	s.mu.Unlock()

	return g
}

// SetOffline makes every call fail at the transport level while offline is true.
func (s *Server) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.offline = offline
}

// Calls returns how many requests reached route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls[route]
}

// AddUser registers an account and returns its profile.
func (s *Server) AddUser(username, email, password string) user.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addUserLocked(username, email, password, username).user
}

func (s *Server) addUserLocked(username, email, password, fullName string) *account {
	id := mustObjectID()

	a := &account{
		user: user.User{
			ID:        id,
			Username:  username,
			Email:     email,
			FullName:  fullName,
			Followers: []user.UserRef{},
			Following: []user.UserRef{},
		},
		password: password,
	}

	s.accounts[id] = a
	s.byEmail[email] = id

	return a
}

// AddBlog stores a published post by authorID liked by likers.
func (s *Server) AddBlog(authorID, title string, likers ...string) blog.Blog {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := &blog.Blog{
		ID:        mustObjectID(),
		Title:     title,
		Content:   "<p>" + title + "</p>",
		Excerpt:   title,
		Category:  "Technology",
		Tags:      []string{},
		Status:    blog.StatusPublished,
		Author:    s.refLocked(authorID),
		Likes:     []user.UserRef{},
		Comments:  []blog.Comment{},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	for _, id := range likers {
		b.Likes = append(b.Likes, user.UserRef{ID: id})
	}

	s.blogs[b.ID] = b
	s.order = append(s.order, b.ID)

	return *b
}

// User returns the stored profile of id.
func (s *Server) User(id string) (user.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return user.User{}, false
	}
	return *a.user.Clone(), true
}

// Blog returns the stored post id.
func (s *Server) Blog(id string) (blog.Blog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blogs[id]
	if !ok {
		return blog.Blog{}, false
	}
	return *b, true
}

// TokenFor issues a valid token for userID.
func (s *Server) TokenFor(userID string) string {
	token, err := jwt.GenerateToken(userID, s.secret, tokenTTL)
	if err != nil {
		panic(err)
	}
	return token
}

// Revoke invalidates token as a server-side logout would.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revoked[token] = true
}

func (s *Server) isRevoked(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.revoked[token]
}

func (s *Server) refLocked(id string) user.UserRef {
	if a, ok := s.accounts[id]; ok {
		return a.user.Ref()
	}
	return user.UserRef{ID: id}
}

func mustObjectID() string {
	id, err := randx.ObjectID()
	if err != nil {
		panic(err)
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
