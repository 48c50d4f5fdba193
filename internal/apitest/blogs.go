package apitest

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"blogclient/internal/app/blog"
	"blogclient/internal/app/media"
	"blogclient/internal/app/user"
)

// viewLocked copies b with IsLiked computed for viewer.
func viewLocked(b *blog.Blog, viewer *account) blog.Blog {
	out := *b
	if viewer != nil {
		out.IsLiked = b.LikedBy(viewer.user.ID)
	}
	return out
}

func (s *Server) listBlogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := atoiDefault(q.Get("page"), 1), atoiDefault(q.Get("limit"), 10)

	s.mu.Lock()
	defer s.mu.Unlock()

	viewer := s.currentLocked(r)

	matched := []blog.Blog{}
	for i := len(s.order) - 1; i >= 0; i-- {
		b, ok := s.blogs[s.order[i]]
		if !ok || b.Status != blog.StatusPublished {
			continue
		}
		if c := q.Get("category"); c != "" && b.Category != c {
			continue
		}
		if a := q.Get("author"); a != "" && b.Author.ID != a {
			continue
		}
		if term := strings.ToLower(q.Get("search")); term != "" &&
			!strings.Contains(strings.ToLower(b.Title), term) &&
			!strings.Contains(strings.ToLower(b.Content), term) {
			continue
		}
		matched = append(matched, viewLocked(b, viewer))
	}

	total := len(matched)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"blogs": matched[start:end],
			"pagination": map[string]int{
				"page":  page,
				"limit": limit,
				"total": total,
				"pages": (total + limit - 1) / limit,
			},
		},
	})
}

func (s *Server) myPosts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	me := s.currentLocked(r)
	if me == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"blogs": s.byAuthorLocked(me.user.ID, me, true)})
}

func (s *Server) userBlogs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"blogs": s.byAuthorLocked(chi.URLParam(r, "id"), s.currentLocked(r), false),
	})
}

func (s *Server) byAuthorLocked(authorID string, viewer *account, drafts bool) []blog.Blog {
	out := []blog.Blog{}
	for i := len(s.order) - 1; i >= 0; i-- {
		b, ok := s.blogs[s.order[i]]
		if !ok || b.Author.ID != authorID || (!drafts && b.Status != blog.StatusPublished) {
			continue
		}
		out = append(out, viewLocked(b, viewer))
	}
	return out
}

func (s *Server) getBlog(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.blogs[chi.URLParam(r, "id")]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Blog not found")
		return
	}

	b.Views++
	writeJSON(w, http.StatusOK, viewLocked(b, s.currentLocked(r)))
}

func (s *Server) createBlog(w http.ResponseWriter, r *http.Request) {
	var in blog.PostInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	me := s.currentLocked(r)
	if me == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}

	if in.Title == "" || in.Content == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []map[string]string{{"msg": "Title and content are required"}}})
		return
	}

	now := time.Now().UTC()
	b := &blog.Blog{
		ID:           mustObjectID(),
		Author:       me.user.Ref(),
		Likes:        []user.UserRef{},
		Comments:     []blog.Comment{},
		CreatedAt:    now,
		UpdatedAt:    now,
		Title:        in.Title,
		Content:      in.Content,
		Excerpt:      in.Excerpt,
		Category:     in.Category,
		Tags:         in.Tags,
		Status:       in.Status,
		Media:        in.Media,
		MediaGallery: in.MediaGallery,
	}

	s.blogs[b.ID] = b
	s.order = append(s.order, b.ID)

	writeJSON(w, http.StatusCreated, map[string]any{"blog": b})
}

func (s *Server) updateBlog(w http.ResponseWriter, r *http.Request) {
	var in blog.PostInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, me, ok := s.ownedLocked(w, r)
	if !ok {
		return
	}

	b.Title, b.Content, b.Excerpt = in.Title, in.Content, in.Excerpt
	b.Category, b.Tags, b.Status = in.Category, in.Tags, in.Status
	b.Media, b.MediaGallery = in.Media, in.MediaGallery
	b.UpdatedAt = time.Now().UTC()

	writeJSON(w, http.StatusOK, map[string]any{"blog": viewLocked(b, me)})
}

func (s *Server) deleteBlog(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, _, ok := s.ownedLocked(w, r)
	if !ok {
		return
	}

	delete(s.blogs, b.ID)
	writeMessage(w, http.StatusOK, "Blog deleted successfully")
}

// ownedLocked resolves the {id} post and checks the caller wrote it.
func (s *Server) ownedLocked(w http.ResponseWriter, r *http.Request) (*blog.Blog, *account, bool) {
	me := s.currentLocked(r)
	if me == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
		return nil, nil, false
	}

	b, ok := s.blogs[chi.URLParam(r, "id")]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Blog not found")
		return nil, nil, false
	}

	if !b.IsAuthoredBy(me.user.ID) {
		writeMessage(w, http.StatusForbidden, "Not authorized to modify this blog")
		return nil, nil, false
	}

	return b, me, true
}

func (s *Server) toggleLike(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	me := s.currentLocked(r)
	if me == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}

	b, ok := s.blogs[chi.URLParam(r, "id")]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Blog not found")
		return
	}

	liked := !b.LikedBy(me.user.ID)
	if liked {
		b.Likes = append(b.Likes, me.user.Ref())
	} else {
		b.Likes = user.WithoutRef(b.Likes, me.user.ID)
	}

	writeJSON(w, http.StatusOK, map[string]any{"isLiked": liked, "likes": len(b.Likes)})
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	me := s.currentLocked(r)
	if me == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}

	b, ok := s.blogs[chi.URLParam(r, "id")]
	if !ok {
		writeMessage(w, http.StatusNotFound, "Blog not found")
		return
	}

	comment := blog.Comment{
		ID:        mustObjectID(),
		Content:   in.Content,
		User:      me.user.Ref(),
		CreatedAt: time.Now().UTC(),
	}
	b.Comments = append(b.Comments, comment)

	writeJSON(w, http.StatusCreated, map[string]any{"comment": comment})
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	me := s.currentLocked(r)
	s.mu.Unlock()

	if me == nil {
		writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid form"})
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file uploaded"})
		return
	}

	header := files[0]
	kind := media.KindImage
	if strings.HasPrefix(header.Header.Get("Content-Type"), "video/") {
		kind = media.KindVideo
	}

	if strings.HasSuffix(r.URL.Path, "/upload-image") && kind != media.KindImage {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Only image files are allowed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"media": media.Media{
			URL:    "https://cdn.test/media/" + header.Filename,
			Type:   kind,
			Format: strings.TrimPrefix(filepath.Ext(header.Filename), "."),
			Size:   header.Size,
		},
	})
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
