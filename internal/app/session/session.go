/*
Package session holds the client's single source of truth for who is logged in.

A Store owns the Session and is its only writer. Readers take value snapshots.
Every mutation that awaits the API records the store's epoch before the call
and applies its outcome only if the epoch is unchanged afterwards, so a
response that arrives after a logout (or after a 401 cleared the session) is
discarded instead of resurrecting the old identity.
*/
package session

import (
	"blogclient/internal/app/user"
	"blogclient/internal/pkg/errs"
)

// State is the coarse lifecycle position of a Session.
type State int

const (
	// Anonymous: no token, or the token could not be resolved to a user.
	Anonymous State = iota
	// Authenticating: a token is present and the profile fetch is in flight.
	Authenticating
	// Authenticated: token and user are both present.
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Session is a read-only snapshot of the store.
type Session struct {
	User  *user.User
	Token string

	// Loading is true while the identity behind Token is being resolved.
	Loading bool

	// Pending is true while any other session operation awaits the API.
	Pending bool

	// Error is the message of the last failed operation, if any.
	Error string
}

// IsAuthenticated reports whether both the user and the token are present.
func (s Session) IsAuthenticated() bool {
	return s.User != nil && s.Token != ""
}

// State derives the lifecycle state of s.
func (s Session) State() State {
	switch {
	case s.Token == "":
		return Anonymous
	case s.User != nil:
		return Authenticated
	case s.Loading:
		return Authenticating
	default:
		return Anonymous
	}
}

// NeedsProfile reports whether a token is held whose user is neither known
// nor being fetched, as after a failed profile fetch.
func (s Session) NeedsProfile() bool {
	return s.Token != "" && s.User == nil && !s.Loading
}

// UserID returns the id of the logged-in user, or "".
func (s Session) UserID() string {
	if s.User == nil {
		return ""
	}
	return s.User.ID
}

// Result is the outcome of a store operation. Operations never panic and
// never return a bare error.
type Result struct {
	Success bool
	Err     *errs.CustomError

	// Notice is a message to show on success, if any.
	Notice string

	// Redirect is where the caller should navigate next, if anywhere.
	Redirect string
}

func ok() Result {
	return Result{Success: true}
}

func failed(err *errs.CustomError) Result {
	return Result{Err: err, Redirect: err.Redirect}
}
