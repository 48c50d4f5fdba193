package session

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"blogclient/internal/apiclient"
	"blogclient/internal/apitest"
	"blogclient/internal/app/user"
	"blogclient/internal/pkg/auth/jwt"
	"blogclient/internal/pkg/errs"
)

func newStore(t *testing.T, api *apitest.Server, tokens TokenStore) *Store {
	t.Helper()

	c, err := apiclient.New(api.BaseURL())
	if err != nil {
		t.Fatalf("failed to create client: %s", err)
	}
	return NewStore(c, tokens)
}

func assertAnonymous(t *testing.T, s *Store) {
	t.Helper()

	snap := s.Snapshot()
	if snap.Token != "" || snap.User != nil || snap.State() != Anonymous {
		t.Fatalf("expected an anonymous session, got %+v", snap)
	}
}

func TestLoginFetchLogout(t *testing.T) {
	testCases := []struct {
		Description string
		Break       func(api *apitest.Server)
	}{
		{Description: "server logout succeeds", Break: func(*apitest.Server) {}},
		{Description: "server logout fails", Break: func(api *apitest.Server) {
			api.FailNext("POST /users/logout", http.StatusInternalServerError, `{"message":"boom"}`)
		}},
		{Description: "server unreachable", Break: func(api *apitest.Server) { api.SetOffline(true) }},
	}

	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			api := apitest.New(t)
			api.AddUser("ada", "ada@example.com", "secret1")
			tokens := &MemoryTokenStore{}
			s := newStore(t, api, tokens)
			ctx := context.Background()

			if res := s.Login(ctx, "ada@example.com", "secret1"); !res.Success {
				t.Fatalf("unexpected login failure: %v", res.Err)
			}
			if got, want := s.Snapshot().State(), Authenticated; got != want {
				t.Fatalf("unexpected state: got %v want %v", got, want)
			}
			if persisted, _ := tokens.Load(ctx); persisted == "" {
				t.Fatalf("expected the token to be persisted")
			}

			if res := s.FetchProfile(ctx); !res.Success {
				t.Fatalf("unexpected profile failure: %v", res.Err)
			}

			tc.Break(api)

			res := s.Logout(ctx)
			if !res.Success {
				t.Fatalf("logout must never fail, got %v", res.Err)
			}
			if got, want := res.Redirect, "/"; got != want {
				t.Fatalf("unexpected redirect: got %q want %q", got, want)
			}

			assertAnonymous(t, s)
			if persisted, _ := tokens.Load(ctx); persisted != "" {
				t.Fatalf("expected the persisted token to be deleted")
			}
		})
	}
}

func TestLoginFailureStaysAnonymous(t *testing.T) {
	api := apitest.New(t)
	api.AddUser("ada", "ada@example.com", "secret1")
	s := newStore(t, api, nil)

	res := s.Login(context.Background(), "ada@example.com", "wrong")
	if res.Success || res.Err == nil {
		t.Fatalf("expected login to fail")
	}
	if got, want := s.Snapshot().Error, "Invalid email or password"; got != want {
		t.Fatalf("unexpected session error: got %q want %q", got, want)
	}
	assertAnonymous(t, s)

	s.ClearError()
	if got := s.Snapshot().Error; got != "" {
		t.Fatalf("expected the error to be cleared, got %q", got)
	}
}

func TestStaleLoginFailureLeavesNoError(t *testing.T) {
	api := apitest.New(t)
	api.AddUser("ada", "ada@example.com", "secret1")
	s := newStore(t, api, nil)
	gate := api.Hold("POST /users/login")

	done := make(chan Result, 1)
	go func() { done <- s.Login(context.Background(), "ada@example.com", "wrong1") }()
	<-gate.Arrived()

	s.Logout(context.Background())
	gate.Release()

	res := <-done
	if res.Success || res.Err == nil {
		t.Fatalf("expected login to fail")
	}
	if got := s.Snapshot().Error; got != "" {
		t.Fatalf("a stale failure must not be recorded, got %q", got)
	}
	assertAnonymous(t, s)
}

// slowTokenStore blocks Save until release is closed.
type slowTokenStore struct {
	MemoryTokenStore
	saving  chan struct{}
	release chan struct{}
}

func (s *slowTokenStore) Save(ctx context.Context, token string) error {
	s.saving <- struct{}{}
	<-s.release
	return s.MemoryTokenStore.Save(ctx, token)
}

func TestLoginPersistsOutsideTheLock(t *testing.T) {
	api := apitest.New(t)
	api.AddUser("ada", "ada@example.com", "secret1")
	tokens := &slowTokenStore{saving: make(chan struct{}), release: make(chan struct{})}
	s := newStore(t, api, tokens)

	done := make(chan Result, 1)
	go func() { done <- s.Login(context.Background(), "ada@example.com", "secret1") }()
	<-tokens.saving

	read := make(chan Session, 1)
	go func() { read <- s.Snapshot() }()

	select {
	case snap := <-read:
		if got, want := snap.State(), Authenticated; got != want {
			t.Fatalf("unexpected state while persisting: got %v want %v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Snapshot blocked while the token was being persisted")
	}

	logout := make(chan Result, 1)
	go func() { logout <- s.Logout(context.Background()) }()

	close(tokens.release)
	if res := <-done; !res.Success {
		t.Fatalf("unexpected login failure: %v", res.Err)
	}
	<-logout

	if persisted, _ := tokens.Load(context.Background()); persisted != "" {
		t.Fatalf("expected the logout to win over the earlier save, got %q", persisted)
	}
}

func TestLoginValidationSkipsNetwork(t *testing.T) {
	api := apitest.New(t)
	s := newStore(t, api, nil)

	res := s.Login(context.Background(), "not-an-email", "")
	if res.Err == nil || res.Err.Kind != errs.KindValidation {
		t.Fatalf("expected a validation error, got %v", res.Err)
	}
	if len(res.Err.Fields) != 2 {
		t.Fatalf("unexpected fields: %v", res.Err.Fields)
	}
	if got := api.Calls("POST /users/login"); got != 0 {
		t.Fatalf("validation failures must not reach the API, got %d calls", got)
	}
}

func TestSignupJoinsServerErrors(t *testing.T) {
	api := apitest.New(t)
	s := newStore(t, api, nil)

	api.FailNext("POST /users/signup", http.StatusBadRequest, `{"errors":[{"msg":"Email taken"},{"msg":"Username taken"}]}`)

	res := s.Signup(context.Background(), user.SignupInput{
		Username: "grace", Email: "grace@example.com", FullName: "Grace Hopper",
		Password: "secret1", ConfirmPassword: "secret1",
	})
	if res.Success {
		t.Fatalf("expected signup to fail")
	}
	for _, fragment := range []string{"Email taken", "Username taken"} {
		if !strings.Contains(res.Err.Message, fragment) {
			t.Fatalf("expected %q in %q", fragment, res.Err.Message)
		}
	}
	if got, want := res.Err.Message, "Email taken, Username taken"; got != want {
		t.Fatalf("unexpected message: got %q want %q", got, want)
	}
}

func TestSignupDoesNotAuthenticate(t *testing.T) {
	api := apitest.New(t)
	s := newStore(t, api, nil)

	res := s.Signup(context.Background(), user.SignupInput{
		Username: "grace", Email: "grace@example.com", FullName: "Grace Hopper",
		Password: "secret1", ConfirmPassword: "secret1",
	})
	if !res.Success {
		t.Fatalf("unexpected signup failure: %v", res.Err)
	}
	if res.Redirect != "/login" || res.Notice != SignupNotice {
		t.Fatalf("unexpected result: %+v", res)
	}
	assertAnonymous(t, s)
}

func TestFetchProfileUnauthorizedClearsSession(t *testing.T) {
	api := apitest.New(t)
	ada := api.AddUser("ada", "ada@example.com", "secret1")
	token := api.TokenFor(ada.ID)
	api.Revoke(token)

	tokens := &MemoryTokenStore{}
	_ = tokens.Save(context.Background(), token)

	s := newStore(t, api, tokens)

	res := s.Boot(context.Background())
	if res.Err == nil || res.Err.Kind != errs.KindUnauthorized {
		t.Fatalf("expected an unauthorized error, got %v", res.Err)
	}
	if got, want := res.Redirect, "/login"; got != want {
		t.Fatalf("unexpected redirect: got %s want %s", got, want)
	}

	assertAnonymous(t, s)
	if persisted, _ := tokens.Load(context.Background()); persisted != "" {
		t.Fatalf("expected the persisted token to be deleted")
	}
}

func TestFetchProfileFailureKeepsToken(t *testing.T) {
	api := apitest.New(t)
	ada := api.AddUser("ada", "ada@example.com", "secret1")
	tokens := &MemoryTokenStore{}
	_ = tokens.Save(context.Background(), api.TokenFor(ada.ID))

	s := newStore(t, api, tokens)
	api.FailNext("GET /users/me", http.StatusInternalServerError, `{"message":"db down"}`)

	if res := s.Boot(context.Background()); res.Success {
		t.Fatalf("expected boot to fail")
	}

	snap := s.Snapshot()
	if snap.Token == "" || snap.User != nil || snap.Loading {
		t.Fatalf("unexpected session after failed fetch: %+v", snap)
	}
	if got, want := snap.State(), Anonymous; got != want {
		t.Fatalf("unexpected state: got %v want %v", got, want)
	}
	if got, want := snap.Error, "db down"; got != want {
		t.Fatalf("unexpected error: got %q want %q", got, want)
	}

	if res := s.FetchProfile(context.Background()); !res.Success {
		t.Fatalf("unexpected retry failure: %v", res.Err)
	}
	if got, want := s.Snapshot().State(), Authenticated; got != want {
		t.Fatalf("unexpected state after retry: got %v want %v", got, want)
	}
}

func TestStaleProfileAfterLogoutIsDiscarded(t *testing.T) {
	api := apitest.New(t)
	ada := api.AddUser("ada", "ada@example.com", "secret1")
	tokens := &MemoryTokenStore{}
	_ = tokens.Save(context.Background(), api.TokenFor(ada.ID))

	s := newStore(t, api, tokens)
	gate := api.Hold("GET /users/me")

	booted := make(chan Result, 1)
	go func() { booted <- s.Boot(context.Background()) }()

	<-gate.Arrived()

	snap := s.Snapshot()
	if got, want := snap.State(), Authenticating; got != want {
		t.Fatalf("unexpected state during fetch: got %v want %v", got, want)
	}

	s.Logout(context.Background())
	gate.Release()

	res := <-booted
	if res.Success || res.Err.Kind != errs.KindCanceled {
		t.Fatalf("expected the stale fetch to be discarded, got %+v", res)
	}
	assertAnonymous(t, s)
}

func TestResolvedWaitsForProfile(t *testing.T) {
	api := apitest.New(t)
	ada := api.AddUser("ada", "ada@example.com", "secret1")
	tokens := &MemoryTokenStore{}
	_ = tokens.Save(context.Background(), api.TokenFor(ada.ID))

	s := newStore(t, api, tokens)
	gate := api.Hold("GET /users/me")

	go s.Boot(context.Background())
	<-gate.Arrived()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := s.Resolved(ctx); err == nil {
		t.Fatalf("expected Resolved to block while the profile is loading")
	}

	gate.Release()

	snap, err := s.Resolved(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got, want := snap.UserID(), ada.ID; got != want {
		t.Fatalf("unexpected user: got %s want %s", got, want)
	}
}

func TestRefresh(t *testing.T) {
	testCases := []struct {
		Description   string
		Persisted     bool
		BootFailures  int
		Expected      bool
		ExpectedCalls int
	}{
		{Description: "no token", Persisted: false, Expected: false, ExpectedCalls: 0},
		{Description: "already resolved", Persisted: true, Expected: true, ExpectedCalls: 1},
		{Description: "retries a failed boot", Persisted: true, BootFailures: 1, Expected: true, ExpectedCalls: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			api := apitest.New(t)
			ada := api.AddUser("ada", "ada@example.com", "secret1")
			tokens := &MemoryTokenStore{}
			if tc.Persisted {
				_ = tokens.Save(context.Background(), api.TokenFor(ada.ID))
			}
			for i := 0; i < tc.BootFailures; i++ {
				api.FailNext("GET /users/me", http.StatusInternalServerError, `{"message":"db down"}`)
			}

			s := newStore(t, api, tokens)
			s.Boot(context.Background())

			if got := s.Refresh(context.Background()).Success; got != tc.Expected {
				t.Fatalf("unexpected refresh outcome: got %v want %v", got, tc.Expected)
			}
			if got, want := api.Calls("GET /users/me"), tc.ExpectedCalls; got != want {
				t.Fatalf("unexpected profile fetches: got %d want %d", got, want)
			}
		})
	}
}

func TestRefreshAwaitsFetchInFlight(t *testing.T) {
	api := apitest.New(t)
	ada := api.AddUser("ada", "ada@example.com", "secret1")
	tokens := &MemoryTokenStore{}
	_ = tokens.Save(context.Background(), api.TokenFor(ada.ID))

	s := newStore(t, api, tokens)
	gate := api.Hold("GET /users/me")

	go s.Boot(context.Background())
	<-gate.Arrived()

	refreshed := make(chan Result, 1)
	go func() { refreshed <- s.Refresh(context.Background()) }()

	gate.Release()

	if res := <-refreshed; !res.Success {
		t.Fatalf("unexpected refresh failure: %v", res.Err)
	}
	if got, want := api.Calls("GET /users/me"), 1; got != want {
		t.Fatalf("unexpected profile fetches: got %d want %d", got, want)
	}
}

func TestBootDiscardsExpiredToken(t *testing.T) {
	api := apitest.New(t)
	expired, err := jwt.GenerateToken("u1", "any-secret", -time.Hour)
	if err != nil {
		t.Fatalf("failed to generate token: %s", err)
	}

	tokens := &MemoryTokenStore{}
	_ = tokens.Save(context.Background(), expired)

	s := newStore(t, api, tokens)
	if res := s.Boot(context.Background()); !res.Success {
		t.Fatalf("unexpected boot failure: %v", res.Err)
	}

	assertAnonymous(t, s)
	if got := api.Calls("GET /users/me"); got != 0 {
		t.Fatalf("expired tokens must not be sent, got %d calls", got)
	}
}

func TestUpdateProfileKeepsTokenAndUserPaired(t *testing.T) {
	api := apitest.New(t)
	api.AddUser("ada", "ada@example.com", "secret1")
	s := newStore(t, api, nil)
	ctx := context.Background()

	if res := s.Login(ctx, "ada@example.com", "secret1"); !res.Success {
		t.Fatalf("unexpected login failure: %v", res.Err)
	}
	token := s.Token()

	bio := "Analyst"
	if res := s.UpdateProfile(ctx, user.ProfileUpdate{Bio: &bio}); !res.Success {
		t.Fatalf("unexpected update failure: %v", res.Err)
	}
	snap := s.Snapshot()
	if snap.Token != token || snap.User == nil || snap.User.Bio != bio {
		t.Fatalf("unexpected session after update: %+v", snap)
	}

	api.FailNext("PUT /users/profile", http.StatusBadRequest, `{"message":"Bio rejected"}`)
	other := "Other"
	if res := s.UpdateProfile(ctx, user.ProfileUpdate{Bio: &other}); res.Success {
		t.Fatalf("expected update to fail")
	}
	snap = s.Snapshot()
	if snap.Token != token || snap.User == nil || snap.User.Bio != bio {
		t.Fatalf("a rejected update must leave the session untouched: %+v", snap)
	}

	api.Revoke(token)
	res := s.UpdateProfile(ctx, user.ProfileUpdate{Bio: &other})
	if res.Err == nil || res.Err.Kind != errs.KindUnauthorized {
		t.Fatalf("expected an unauthorized error, got %v", res.Err)
	}
	snap = s.Snapshot()
	if (snap.Token == "") != (snap.User == nil) {
		t.Fatalf("token and user must be cleared together: %+v", snap)
	}
	assertAnonymous(t, s)
}

func TestUnauthorizedForStaleTokenIsIgnored(t *testing.T) {
	api := apitest.New(t)
	api.AddUser("ada", "ada@example.com", "secret1")
	s := newStore(t, api, nil)

	if res := s.Login(context.Background(), "ada@example.com", "secret1"); !res.Success {
		t.Fatalf("unexpected login failure: %v", res.Err)
	}

	s.handleUnauthorized("some-older-token")

	if got, want := s.Snapshot().State(), Authenticated; got != want {
		t.Fatalf("unexpected state: got %v want %v", got, want)
	}
}

func TestSetFollowing(t *testing.T) {
	api := apitest.New(t)
	api.AddUser("ada", "ada@example.com", "secret1")
	s := newStore(t, api, nil)

	s.SetFollowing(user.UserRef{ID: "x"}, true)
	assertAnonymous(t, s)

	if res := s.Login(context.Background(), "ada@example.com", "secret1"); !res.Success {
		t.Fatalf("unexpected login failure: %v", res.Err)
	}

	s.SetFollowing(user.UserRef{ID: "x"}, true)
	s.SetFollowing(user.UserRef{ID: "x"}, true)
	if got := s.Snapshot().User.Following; len(got) != 1 {
		t.Fatalf("unexpected following: %+v", got)
	}

	s.SetFollowing(user.UserRef{ID: "x"}, false)
	if got := s.Snapshot().User.Following; len(got) != 0 {
		t.Fatalf("unexpected following: %+v", got)
	}
}

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	store := &FileTokenStore{Path: path}
	ctx := context.Background()

	if got, err := store.Load(ctx); err != nil || got != "" {
		t.Fatalf("unexpected load of missing file: %q, %v", got, err)
	}

	if err := store.Save(ctx, "tok"); err != nil {
		t.Fatalf("failed to save: %s", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat token file: %s", err)
	}
	if got, want := info.Mode().Perm(), os.FileMode(0o600); got != want {
		t.Fatalf("unexpected permissions: got %v want %v", got, want)
	}

	if got, _ := store.Load(ctx); got != "tok" {
		t.Fatalf("unexpected token: %q", got)
	}

	if err := store.Delete(ctx); err != nil {
		t.Fatalf("failed to delete: %s", err)
	}
	if err := store.Delete(ctx); err != nil {
		t.Fatalf("deleting a missing token must succeed: %s", err)
	}
}

func TestRedisTokenStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client, err := NewRedisClient(addr, os.Getenv("REDIS_PASSWORD"))
	if err != nil {
		t.Fatalf("failed to connect: %s", err)
	}
	defer client.Close()

	store := NewRedisTokenStore(client, "test-"+t.Name(), time.Minute)
	ctx := context.Background()

	if err := store.Save(ctx, "tok"); err != nil {
		t.Fatalf("failed to save: %s", err)
	}
	if got, _ := store.Load(ctx); got != "tok" {
		t.Fatalf("unexpected token: %q", got)
	}
	if err := store.Delete(ctx); err != nil {
		t.Fatalf("failed to delete: %s", err)
	}
	if got, _ := store.Load(ctx); got != "" {
		t.Fatalf("expected no token after delete, got %q", got)
	}
}
