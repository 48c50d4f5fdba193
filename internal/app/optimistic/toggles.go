package optimistic

import (
	"context"
	"sync"

	"blogclient/internal/app/blog"
	"blogclient/internal/app/session"
	"blogclient/internal/app/user"
	"blogclient/internal/pkg/errs"
)

// Identity exposes the current session to toggles.
type Identity interface {
	Snapshot() session.Session
}

// FollowRecorder is an Identity that also records who the user follows.
type FollowRecorder interface {
	Identity
	SetFollowing(target user.UserRef, following bool)
}

// LikeAPI is the like endpoint.
type LikeAPI interface {
	ToggleLike(ctx context.Context, token, blogID string) (blog.LikeResult, *errs.CustomError)
}

// FollowAPI is the follow endpoints.
type FollowAPI interface {
	Follow(ctx context.Context, token, userID string) *errs.CustomError
	Unfollow(ctx context.Context, token, userID string) *errs.CustomError
}

// maxTracked bounds how many entities a toggle remembers for one viewer.
const maxTracked = 1024

// viewKey scopes tracked state to the user who sees it.
type viewKey struct {
	Viewer string
	ID     string
}

// scope keys a tracker by viewer. Switching viewer drops every settled entry
// of the previous one, and a full tracker drops all settled entries.
type scope[V any] struct {
	mu      sync.Mutex
	viewer  string
	tracker *Tracker[viewKey, V]
}

func newScope[V any]() *scope[V] {
	return &scope[V]{tracker: NewTracker[viewKey, V]()}
}

func (s *scope[V]) key(viewerID, id string) viewKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case viewerID != s.viewer:
		s.tracker.Prune(func(k viewKey) bool { return k.Viewer == viewerID })
		s.viewer = viewerID
	case s.tracker.Len() >= maxTracked:
		s.tracker.Prune(func(viewKey) bool { return false })
	}

	return viewKey{Viewer: viewerID, ID: id}
}

// state returns the tracked value of key, seeding it with derive() when unknown.
func (s *scope[V]) state(key viewKey, derive func() V) V {
	if v, ok := s.tracker.Get(key); ok {
		return v
	}
	v := derive()
	s.tracker.Seed(key, v)
	return v
}

func (s *scope[V]) observe(key viewKey, v V) V {
	s.tracker.Seed(key, v)
	v, _ = s.tracker.Get(key)
	return v
}

func (s *scope[V]) known(key viewKey) bool {
	_, ok := s.tracker.Get(key)
	return ok
}

func loginRequired[V any](current V) Outcome[V] {
	err := errs.NewError(errs.ErrLoginRequired)
	return Outcome[V]{Value: current, Err: err, Redirect: err.Redirect}
}

// LikeState is what a post card shows about likes.
type LikeState struct {
	Liked bool `json:"liked"`
	Count int  `json:"count"`
}

// LikeStateOf derives the like state of b as seen by viewerID.
func LikeStateOf(b *blog.Blog, viewerID string) LikeState {
	return LikeState{
		Liked: b.IsLiked || b.LikedBy(viewerID),
		Count: len(b.Likes),
	}
}

// Likes toggles likes on posts.
type Likes struct {
	api     LikeAPI
	session Identity
	scope   *scope[LikeState]
}

// NewLikes returns a like toggle backed by api.
func NewLikes(api LikeAPI, session Identity) *Likes {
	return &Likes{api: api, session: session, scope: newScope[LikeState]()}
}

// State returns the like state of b as seen by viewerID, seeding it from b
// when the post is not tracked for that viewer yet.
func (l *Likes) State(b *blog.Blog, viewerID string) LikeState {
	return l.scope.state(l.scope.key(viewerID, b.ID), func() LikeState { return LikeStateOf(b, viewerID) })
}

// Known reports whether the like state of blogID is tracked for viewerID.
func (l *Likes) Known(viewerID, blogID string) bool {
	return l.scope.known(l.scope.key(viewerID, blogID))
}

// Observe records the like state of a freshly fetched post.
func (l *Likes) Observe(b *blog.Blog, viewerID string) LikeState {
	return l.scope.observe(l.scope.key(viewerID, b.ID), LikeStateOf(b, viewerID))
}

// Forget drops the tracked state of blogID, e.g. once the post is deleted.
func (l *Likes) Forget(viewerID, blogID string) {
	l.scope.tracker.Forget(viewKey{Viewer: viewerID, ID: blogID})
}

// Toggle flips the viewer's like on b. Anonymous viewers are sent to login and
// nothing changes. The token and viewer are read from the session on every call.
func (l *Likes) Toggle(ctx context.Context, b *blog.Blog) Outcome[LikeState] {
	snap := l.session.Snapshot()
	if !snap.IsAuthenticated() {
		return loginRequired(l.State(b, ""))
	}

	key := l.scope.key(snap.UserID(), b.ID)
	current := l.State(b, snap.UserID())

	return l.scope.tracker.Mutate(ctx, key, current,
		func(v LikeState) LikeState {
			if v.Liked {
				return LikeState{Liked: false, Count: max(v.Count-1, 0)}
			}
			return LikeState{Liked: true, Count: v.Count + 1}
		},
		func(ctx context.Context, next LikeState) (LikeState, *errs.CustomError) {
			res, err := l.api.ToggleLike(ctx, snap.Token, b.ID)
			if err != nil {
				return next, err
			}
			return reconcileLike(next, res), nil
		},
	)
}

// reconcileLike corrects next with what the API reported. A reported count is
// authoritative; otherwise the count follows the reported flag.
func reconcileLike(next LikeState, res blog.LikeResult) LikeState {
	switch {
	case res.Count >= 0:
		return LikeState{Liked: res.Liked, Count: res.Count}
	case res.Liked == next.Liked:
		return next
	case res.Liked:
		return LikeState{Liked: true, Count: next.Count + 1}
	default:
		return LikeState{Liked: false, Count: max(next.Count-1, 0)}
	}
}

// FollowState is what an author card shows about following.
type FollowState struct {
	Following bool `json:"following"`
	Followers int  `json:"followers"`
}

// FollowStateOf derives the follow state of author as seen by viewerID.
func FollowStateOf(author *user.User, viewerID string) FollowState {
	return FollowState{
		Following: viewerID != "" && author.IsFollowedBy(viewerID),
		Followers: len(author.Followers),
	}
}

// Follows toggles following authors.
type Follows struct {
	api     FollowAPI
	session FollowRecorder
	scope   *scope[FollowState]
}

// NewFollows returns a follow toggle backed by api.
func NewFollows(api FollowAPI, session FollowRecorder) *Follows {
	return &Follows{api: api, session: session, scope: newScope[FollowState]()}
}

// State returns the follow state of author as seen by viewerID.
func (f *Follows) State(author *user.User, viewerID string) FollowState {
	return f.scope.state(f.scope.key(viewerID, author.ID), func() FollowState { return FollowStateOf(author, viewerID) })
}

// Known reports whether the follow state of authorID is tracked for viewerID.
func (f *Follows) Known(viewerID, authorID string) bool {
	return f.scope.known(f.scope.key(viewerID, authorID))
}

// Observe records the follow state of a freshly fetched author.
func (f *Follows) Observe(author *user.User, viewerID string) FollowState {
	return f.scope.observe(f.scope.key(viewerID, author.ID), FollowStateOf(author, viewerID))
}

// Toggle follows or unfollows author. Anonymous viewers are sent to login and
// nothing changes. On success the session's following list is updated.
func (f *Follows) Toggle(ctx context.Context, author *user.User) Outcome[FollowState] {
	snap := f.session.Snapshot()
	if !snap.IsAuthenticated() {
		return loginRequired(f.State(author, ""))
	}

	viewerID := snap.UserID()
	if author.ID == viewerID {
		return Outcome[FollowState]{
			Value: f.State(author, viewerID),
			Err:   errs.Validation(map[string]string{"author": "You cannot follow yourself"}),
		}
	}

	key := f.scope.key(viewerID, author.ID)
	current := f.State(author, viewerID)

	out := f.scope.tracker.Mutate(ctx, key, current,
		func(v FollowState) FollowState {
			if v.Following {
				return FollowState{Following: false, Followers: max(v.Followers-1, 0)}
			}
			return FollowState{Following: true, Followers: v.Followers + 1}
		},
		func(ctx context.Context, next FollowState) (FollowState, *errs.CustomError) {
			var err *errs.CustomError
			if next.Following {
				err = f.api.Follow(ctx, snap.Token, author.ID)
			} else {
				err = f.api.Unfollow(ctx, snap.Token, author.ID)
			}
			return next, err
		},
	)

	if out.OK() && !out.Stale {
		f.session.SetFollowing(author.Ref(), out.Value.Following)
	}

	return out
}
