package optimistic

import (
	"context"
	"net/http"
	"testing"

	"blogclient/internal/apiclient"
	"blogclient/internal/apitest"
	"blogclient/internal/app/blog"
	"blogclient/internal/app/session"
	"blogclient/internal/app/user"
	"blogclient/internal/pkg/errs"
)

type fixture struct {
	api    *apitest.Server
	client *apiclient.Client
	store  *session.Store
	ada    user.User
	bob    user.User
}

func newFixture(t *testing.T, loggedIn bool) *fixture {
	t.Helper()

	api := apitest.New(t)
	f := &fixture{
		api: api,
		ada: api.AddUser("ada", "ada@example.com", "secret1"),
		bob: api.AddUser("bob", "bob@example.com", "secret1"),
	}

	c, err := apiclient.New(api.BaseURL())
	if err != nil {
		t.Fatalf("failed to create client: %s", err)
	}
	f.client = c
	f.store = session.NewStore(c, nil)

	if loggedIn {
		if res := f.store.Login(context.Background(), "ada@example.com", "secret1"); !res.Success {
			t.Fatalf("unexpected login failure: %v", res.Err)
		}
	}

	return f
}

func TestAnonymousLikeDoesNothing(t *testing.T) {
	f := newFixture(t, false)
	post := f.api.AddBlog(f.bob.ID, "Hello", "a", "b", "c")

	likes := NewLikes(f.client, f.store)
	out := likes.Toggle(context.Background(), &post)

	if out.Err == nil || out.Err.Code != errs.ErrLoginRequired {
		t.Fatalf("expected a login required error, got %v", out.Err)
	}
	if got, want := out.Redirect, "/login"; got != want {
		t.Fatalf("unexpected redirect: got %s want %s", got, want)
	}
	if got, want := out.Value, (LikeState{Liked: false, Count: 3}); got != want {
		t.Fatalf("unexpected like state: got %+v want %+v", got, want)
	}
	if got := f.api.Calls("POST /blogs/{id}/like"); got != 0 {
		t.Fatalf("anonymous likes must not reach the API, got %d calls", got)
	}
}

func TestLikeNetworkFailureRollsBack(t *testing.T) {
	f := newFixture(t, true)
	post := f.api.AddBlog(f.bob.ID, "Hello", "a", "b", "c")

	likes := NewLikes(f.client, f.store)
	before := likes.State(&post, f.ada.ID)

	f.api.SetOffline(true)
	out := likes.Toggle(context.Background(), &post)
	f.api.SetOffline(false)

	if out.OK() || out.Err.Code != errs.ErrNetwork {
		t.Fatalf("expected a network error, got %v", out.Err)
	}
	if out.Value != before {
		t.Fatalf("unexpected like state after rollback: got %+v want %+v", out.Value, before)
	}
	if got := likes.State(&post, f.ada.ID); got != before {
		t.Fatalf("unexpected stored like state: got %+v want %+v", got, before)
	}
}

func TestLikeSucceedsAndReconciles(t *testing.T) {
	f := newFixture(t, true)
	post := f.api.AddBlog(f.bob.ID, "Hello", "a")

	likes := NewLikes(f.client, f.store)

	out := likes.Toggle(context.Background(), &post)
	if !out.OK() {
		t.Fatalf("unexpected like failure: %v", out.Err)
	}
	if got, want := out.Value, (LikeState{Liked: true, Count: 2}); got != want {
		t.Fatalf("unexpected like state: got %+v want %+v", got, want)
	}
}

func TestReconcileLike(t *testing.T) {
	testCases := []struct {
		Name     string
		Next     LikeState
		Result   blog.LikeResult
		Expected LikeState
	}{
		{
			Name:     "flag agrees",
			Next:     LikeState{Liked: true, Count: 3},
			Result:   blog.LikeResult{Liked: true, Count: -1},
			Expected: LikeState{Liked: true, Count: 3},
		},
		{
			Name:     "flag says unliked",
			Next:     LikeState{Liked: true, Count: 3},
			Result:   blog.LikeResult{Liked: false, Count: -1},
			Expected: LikeState{Liked: false, Count: 2},
		},
		{
			Name:     "flag says liked",
			Next:     LikeState{Liked: false, Count: 0},
			Result:   blog.LikeResult{Liked: true, Count: -1},
			Expected: LikeState{Liked: true, Count: 1},
		},
		{
			Name:     "reported count wins",
			Next:     LikeState{Liked: true, Count: 3},
			Result:   blog.LikeResult{Liked: true, Count: 7},
			Expected: LikeState{Liked: true, Count: 7},
		},
		{
			Name:     "reported zero count",
			Next:     LikeState{Liked: true, Count: 2},
			Result:   blog.LikeResult{Liked: false, Count: 0},
			Expected: LikeState{Liked: false, Count: 0},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			if got := reconcileLike(tc.Next, tc.Result); got != tc.Expected {
				t.Fatalf("unexpected reconciled state: got %+v want %+v", got, tc.Expected)
			}
		})
	}
}

func TestLikeAfterLoginUsesViewerState(t *testing.T) {
	f := newFixture(t, false)
	post := f.api.AddBlog(f.bob.ID, "Hello", f.ada.ID)

	likes := NewLikes(f.client, f.store)
	if got, want := likes.Observe(&post, ""), (LikeState{Liked: false, Count: 1}); got != want {
		t.Fatalf("unexpected anonymous state: got %+v want %+v", got, want)
	}

	if res := f.store.Login(context.Background(), "ada@example.com", "secret1"); !res.Success {
		t.Fatalf("unexpected login failure: %v", res.Err)
	}

	if !likes.Known("", post.ID) {
		t.Fatalf("expected the anonymous state to stay tracked until another viewer reads")
	}
	if got, want := likes.State(&post, f.ada.ID), (LikeState{Liked: true, Count: 1}); got != want {
		t.Fatalf("unexpected state for ada: got %+v want %+v", got, want)
	}

	out := likes.Toggle(context.Background(), &post)
	if !out.OK() {
		t.Fatalf("unexpected like failure: %v", out.Err)
	}
	if got, want := out.Value, (LikeState{Liked: false, Count: 0}); got != want {
		t.Fatalf("unexpected like state: got %+v want %+v", got, want)
	}

	stored, _ := f.api.Blog(post.ID)
	if stored.LikedBy(f.ada.ID) {
		t.Fatalf("expected the API to record the unlike")
	}
	if likes.Known("", post.ID) {
		t.Fatalf("expected the anonymous state to be evicted after the viewer changed")
	}
}

func TestLikeCountFollowsServer(t *testing.T) {
	f := newFixture(t, true)
	post := f.api.AddBlog(f.bob.ID, "Hello", "x", "y")

	// A copy read before the other likes arrived.
	stale := post
	stale.Likes = nil

	likes := NewLikes(f.client, f.store)
	out := likes.Toggle(context.Background(), &stale)
	if !out.OK() {
		t.Fatalf("unexpected like failure: %v", out.Err)
	}
	if got, want := out.Value, (LikeState{Liked: true, Count: 3}); got != want {
		t.Fatalf("unexpected like state: got %+v want %+v", got, want)
	}
}

func TestLikeForgetDropsState(t *testing.T) {
	f := newFixture(t, true)
	post := f.api.AddBlog(f.bob.ID, "Hello")

	likes := NewLikes(f.client, f.store)
	likes.State(&post, f.ada.ID)
	likes.Forget(f.ada.ID, post.ID)

	if likes.Known(f.ada.ID, post.ID) {
		t.Fatalf("expected the forgotten post to be untracked")
	}
}

func TestFollowAfterLoginUsesViewerState(t *testing.T) {
	f := newFixture(t, false)
	bob, _ := f.api.User(f.bob.ID)

	follows := NewFollows(f.client, f.store)
	follows.Observe(&bob, "")

	if res := f.store.Login(context.Background(), "ada@example.com", "secret1"); !res.Success {
		t.Fatalf("unexpected login failure: %v", res.Err)
	}

	out := follows.Toggle(context.Background(), &bob)
	if !out.OK() {
		t.Fatalf("unexpected follow failure: %v", out.Err)
	}
	if got, want := out.Value, (FollowState{Following: true, Followers: 1}); got != want {
		t.Fatalf("unexpected follow state: got %+v want %+v", got, want)
	}
	if follows.Known("", bob.ID) {
		t.Fatalf("expected the anonymous state to be evicted after the viewer changed")
	}
}

func TestFollowServerErrorReverts(t *testing.T) {
	f := newFixture(t, true)
	bob, _ := f.api.User(f.bob.ID)

	follows := NewFollows(f.client, f.store)
	before := follows.State(&bob, f.ada.ID)

	f.api.FailNext("POST /users/follow/{id}", http.StatusInternalServerError, `{"error":"Server error"}`)
	out := follows.Toggle(context.Background(), &bob)

	if out.OK() {
		t.Fatalf("expected the follow to fail")
	}
	if got, want := out.Err.Message, "Server error"; got != want {
		t.Fatalf("unexpected message: got %q want %q", got, want)
	}
	if out.Value != before || out.Value.Following || out.Value.Followers != 0 {
		t.Fatalf("unexpected follow state after rollback: %+v", out.Value)
	}
	if f.store.Snapshot().User.IsFollowing(bob.ID) {
		t.Fatalf("a failed follow must not change the session")
	}
}

func TestFollowUpdatesSession(t *testing.T) {
	f := newFixture(t, true)
	bob, _ := f.api.User(f.bob.ID)

	follows := NewFollows(f.client, f.store)

	out := follows.Toggle(context.Background(), &bob)
	if !out.OK() {
		t.Fatalf("unexpected follow failure: %v", out.Err)
	}
	if got, want := out.Value, (FollowState{Following: true, Followers: 1}); got != want {
		t.Fatalf("unexpected follow state: got %+v want %+v", got, want)
	}
	if !f.store.Snapshot().User.IsFollowing(bob.ID) {
		t.Fatalf("expected the session to record the follow")
	}

	stored, _ := f.api.User(bob.ID)
	if !stored.IsFollowedBy(f.ada.ID) {
		t.Fatalf("expected the API to record the follow")
	}

	out = follows.Toggle(context.Background(), &bob)
	if !out.OK() || out.Value.Following || out.Value.Followers != 0 {
		t.Fatalf("unexpected unfollow outcome: %+v", out)
	}
	if f.store.Snapshot().User.IsFollowing(bob.ID) {
		t.Fatalf("expected the session to record the unfollow")
	}
}

func TestFollowSelfIsRejected(t *testing.T) {
	f := newFixture(t, true)
	ada, _ := f.api.User(f.ada.ID)

	out := NewFollows(f.client, f.store).Toggle(context.Background(), &ada)
	if out.Err == nil || out.Err.Kind != errs.KindValidation {
		t.Fatalf("expected a validation error, got %v", out.Err)
	}
	if got := f.api.Calls("POST /users/follow/{id}"); got != 0 {
		t.Fatalf("self follows must not reach the API, got %d calls", got)
	}
}
