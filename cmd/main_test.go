package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"blogclient/internal/apitest"
	"blogclient/internal/app/optimistic"
	"blogclient/internal/app/user"
	"blogclient/internal/pkg/errs"
)

type cli struct {
	api     *apitest.Server
	envFile string
	ada     user.User
	bob     user.User
}

func newCLI(t *testing.T) *cli {
	t.Helper()

	api := apitest.New(t)
	dir := t.TempDir()

	for _, key := range []string{
		"REQUEST_TIMEOUT", "PORT", "ALLOWED_ORIGINS", "REDIS_ADDR", "REDIS_PASSWORD",
		"S3_BUCKET_NAME", "S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_REGION",
		"BLOGCTL_PASSWORD",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("API_BASE_URL", api.BaseURL())
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("TOKEN_STORE", "file")
	t.Setenv("TOKEN_FILE", filepath.Join(dir, "token"))
	t.Setenv("DRAFTS_DSN", "sqlite://"+filepath.Join(dir, "drafts.db"))

	return &cli{
		api:     api,
		envFile: filepath.Join(dir, "missing.env"),
		ada:     api.AddUser("ada", "ada@example.com", "secret1"),
		bob:     api.AddUser("bob", "bob@example.com", "secret2"),
	}
}

// run executes one blogctl invocation and returns what it printed.
func (c *cli) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(append([]string{"--env-file", c.envFile}, args...))
	root.SetOut(&out)
	root.SetErr(io.Discard)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) login(t *testing.T) {
	t.Helper()
	if _, err := c.run(t, "login", "--email", "ada@example.com", "--password", "secret1"); err != nil {
		t.Fatalf("unexpected login failure: %s", err)
	}
}

func errCode(err error) int {
	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		return customErr.Code
	}
	return 0
}

func TestLoginWhoamiLogout(t *testing.T) {
	c := newCLI(t)

	out, err := c.run(t, "login", "--email", "ada@example.com", "--password", "secret1")
	if err != nil {
		t.Fatalf("unexpected login failure: %s", err)
	}
	if !strings.HasPrefix(out, "Logged in as ada") {
		t.Fatalf("unexpected login output: %q", out)
	}

	out, err = c.run(t, "whoami")
	if err != nil {
		t.Fatalf("unexpected whoami failure: %s", err)
	}
	var u user.User
	if err := json.Unmarshal([]byte(out), &u); err != nil {
		t.Fatalf("failed to decode %q: %s", out, err)
	}
	if got, want := u.ID, c.ada.ID; got != want {
		t.Fatalf("unexpected user: got %s want %s", got, want)
	}

	if out, err = c.run(t, "logout"); err != nil || out != "Logged out\n" {
		t.Fatalf("unexpected logout outcome: %q, %v", out, err)
	}

	if _, err = c.run(t, "whoami"); errCode(err) != errs.ErrLoginRequired {
		t.Fatalf("expected a login required error after logout, got %v", err)
	}
}

func TestLoginFailure(t *testing.T) {
	testCases := []struct {
		Description  string
		Args         []string
		ExpectedCode int
	}{
		{Description: "wrong password", Args: []string{"login", "--email", "ada@example.com", "--password", "wrong1"}, ExpectedCode: errs.ErrLoginFailed},
		{Description: "invalid email", Args: []string{"login", "--email", "ada", "--password", "secret1"}, ExpectedCode: errs.ErrInvalidParams},
		{Description: "missing email flag", Args: []string{"login", "--password", "secret1"}, ExpectedCode: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			c := newCLI(t)

			_, err := c.run(t, tc.Args...)
			if err == nil {
				t.Fatalf("expected the command to fail")
			}
			if got, want := errCode(err), tc.ExpectedCode; got != want {
				t.Fatalf("unexpected error code: got %d want %d (%v)", got, want, err)
			}
		})
	}
}

func TestToggleCommands(t *testing.T) {
	c := newCLI(t)
	post := c.api.AddBlog(c.bob.ID, "Hello")
	c.login(t)

	out, err := c.run(t, "like", post.ID)
	if err != nil {
		t.Fatalf("unexpected like failure: %s", err)
	}
	var like optimistic.LikeState
	if err := json.Unmarshal([]byte(out), &like); err != nil {
		t.Fatalf("failed to decode %q: %s", out, err)
	}
	if got, want := like, (optimistic.LikeState{Liked: true, Count: 1}); got != want {
		t.Fatalf("unexpected like state: got %+v want %+v", got, want)
	}

	out, err = c.run(t, "follow", c.bob.ID)
	if err != nil {
		t.Fatalf("unexpected follow failure: %s", err)
	}
	var follow optimistic.FollowState
	if err := json.Unmarshal([]byte(out), &follow); err != nil {
		t.Fatalf("failed to decode %q: %s", out, err)
	}
	if got, want := follow, (optimistic.FollowState{Following: true, Followers: 1}); got != want {
		t.Fatalf("unexpected follow state: got %+v want %+v", got, want)
	}

	if stored, _ := c.api.User(c.bob.ID); !stored.IsFollowedBy(c.ada.ID) {
		t.Fatalf("expected the API to record the follow")
	}
}

func TestCommandsRequireLogin(t *testing.T) {
	testCases := []struct {
		Description string
		Args        func(postID string) []string
	}{
		{Description: "whoami", Args: func(string) []string { return []string{"whoami"} }},
		{Description: "my posts", Args: func(string) []string { return []string{"posts", "--mine"} }},
		{Description: "drafts list", Args: func(string) []string { return []string{"drafts", "list"} }},
		{Description: "export", Args: func(string) []string { return []string{"export"} }},
		{Description: "like", Args: func(id string) []string { return []string{"like", id} }},
	}

	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			c := newCLI(t)
			post := c.api.AddBlog(c.bob.ID, "Hello")

			_, err := c.run(t, tc.Args(post.ID)...)
			if got, want := errCode(err), errs.ErrLoginRequired; got != want {
				t.Fatalf("unexpected error code: got %d want %d (%v)", got, want, err)
			}
			if got := c.api.Calls("POST /blogs/{id}/like"); got != 0 {
				t.Fatalf("anonymous commands must not mutate, got %d like calls", got)
			}
		})
	}
}

func TestDraftsCommands(t *testing.T) {
	c := newCLI(t)
	c.login(t)

	out, err := c.run(t, "drafts", "save", "--title", "Half done", "--tags", "go,cli")
	if err != nil {
		t.Fatalf("unexpected save failure: %s", err)
	}
	var saved struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &saved); err != nil || saved.ID == "" {
		t.Fatalf("unexpected save output %q: %v", out, err)
	}

	out, err = c.run(t, "drafts", "list")
	if err != nil {
		t.Fatalf("unexpected list failure: %s", err)
	}
	if !strings.Contains(out, "Half done") {
		t.Fatalf("expected the saved draft in %q", out)
	}

	if out, err = c.run(t, "drafts", "delete", saved.ID); err != nil || out != "Draft deleted\n" {
		t.Fatalf("unexpected delete outcome: %q, %v", out, err)
	}
}

func TestExportWithoutBucket(t *testing.T) {
	c := newCLI(t)
	c.login(t)

	_, err := c.run(t, "export")
	if got, want := errCode(err), errs.ErrExportDisabled; got != want {
		t.Fatalf("unexpected error code: got %d want %d (%v)", got, want, err)
	}
}

func TestArgumentValidation(t *testing.T) {
	testCases := []struct {
		Description string
		Args        []string
	}{
		{Description: "like without id", Args: []string{"like"}},
		{Description: "follow with two ids", Args: []string{"follow", "a", "b"}},
		{Description: "whoami with argument", Args: []string{"whoami", "ada"}},
		{Description: "unknown command", Args: []string{"publish-all"}},
	}

	for _, tc := range testCases {
		t.Run(tc.Description, func(t *testing.T) {
			c := newCLI(t)

			if _, err := c.run(t, tc.Args...); err == nil {
				t.Fatalf("expected %v to be rejected", tc.Args)
			}
			if got := c.api.Calls("POST /users/login"); got != 0 {
				t.Fatalf("rejected commands must not reach the API, got %d calls", got)
			}
		})
	}
}
