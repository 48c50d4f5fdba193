package session

import (
	"context"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"blogclient/internal/apiclient"
	"blogclient/internal/app/user"
	"blogclient/internal/pkg/auth/jwt"
	"blogclient/internal/pkg/errs"
	"blogclient/internal/pkg/logx"
)

// SignupNotice is shown after a successful registration.
const SignupNotice = "Account created successfully! Please log in to continue."

// API is the part of the blog API the store depends on.
type API interface {
	Login(ctx context.Context, email, password string) (*apiclient.LoginResponse, *errs.CustomError)
	Signup(ctx context.Context, in user.SignupInput) *errs.CustomError
	Me(ctx context.Context, token string) (*user.User, *errs.CustomError)
	UpdateProfile(ctx context.Context, token string, p user.ProfileUpdate) (*apiclient.ProfileResponse, *errs.CustomError)
	Logout(ctx context.Context, token string) *errs.CustomError
	OnUnauthorized(h apiclient.UnauthorizedHandler)
}

// Store owns the Session. It is safe for concurrent use.
type Store struct {
	api    API
	tokens TokenStore
	log    zerolog.Logger
	now    func() time.Time

	// persistMu orders writes to tokens.
	persistMu sync.Mutex

	mu       sync.Mutex
	sess     Session
	epoch    uint64
	pending  int
	fetchSeq uint64
	changed  chan struct{}
}

// NewStore creates an anonymous store. Call Boot to restore a persisted session.
// The store registers itself as api's unauthorized handler.
func NewStore(api API, tokens TokenStore) *Store {
	if tokens == nil {
		tokens = &MemoryTokenStore{}
	}

	s := &Store{
		api:     api,
		tokens:  tokens,
		log:     logx.For("session"),
		now:     time.Now,
		changed: make(chan struct{}),
	}

	api.OnUnauthorized(s.handleUnauthorized)

	return s
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Session {
	out := s.sess
	out.User = s.sess.User.Clone()
	out.Pending = s.pending > 0
	return out
}

// Token returns the current token, or "".
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sess.Token
}

// Changed returns a channel closed on the next session change.
func (s *Store) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.changed
}

// Resolved waits until no identity resolution is in flight and returns the session.
func (s *Store) Resolved(ctx context.Context) (Session, error) {
	for {
		s.mu.Lock()
		if !s.sess.Loading {
			out := s.snapshotLocked()
			s.mu.Unlock()
			return out, nil
		}
		ch := s.changed
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return Session{}, ctx.Err()
		}
	}
}

// notifyLocked wakes every waiter of Changed.
func (s *Store) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// clearLocked drops token and user together and starts a new epoch.
func (s *Store) clearLocked() {
	s.sess.User = nil
	s.sess.Token = ""
	s.sess.Loading = false
	s.epoch++
	s.notifyLocked()
}

func (s *Store) beginPending() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending++
	s.notifyLocked()
	return s.epoch
}

func (s *Store) endPendingLocked() {
	s.pending--
	s.notifyLocked()
}

// failLocked records err as the session error. Canceled and stale
// operations leave no trace.
func (s *Store) failLocked(err *errs.CustomError) {
	if err.Kind != errs.KindCanceled {
		s.sess.Error = err.Message
	}
	s.notifyLocked()
}

func staleResult() Result {
	return failed(errs.NewError(errs.ErrRequestCanceled).WithMessage("The session changed while the request was in flight."))
}

// Boot restores a persisted token and resolves its user.
// Tokens that are already expired are discarded without calling the API.
func (s *Store) Boot(ctx context.Context) Result {
	token, err := s.tokens.Load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load persisted token")
		return failed(errs.NewError(errs.ErrStorageFailed).WithCause(err))
	}

	if token == "" {
		return ok()
	}

	if jwt.Expired(token, s.now()) {
		s.log.Info().Msg("Persisted token has expired, starting anonymous")
		s.deletePersisted(ctx)
		return ok()
	}

	s.mu.Lock()
	if s.sess.Token == "" {
		s.sess.Token = token
		s.epoch++
		s.notifyLocked()
	}
	s.mu.Unlock()

	return s.FetchProfile(ctx)
}

// Login exchanges credentials for a session.
func (s *Store) Login(ctx context.Context, email, password string) Result {
	if verr := validateCredentials(email, password); verr != nil {
		return failed(verr)
	}

	if s.Snapshot().IsAuthenticated() {
		return failed(errs.NewError(errs.ErrAlreadyLoggedIn))
	}

	epoch := s.beginPending()
	res, err := s.api.Login(ctx, email, password)

	s.mu.Lock()

	if s.epoch != epoch {
		s.endPendingLocked()
		s.mu.Unlock()
		if err != nil {
			return failed(err)
		}
		return staleResult()
	}

	if err != nil {
		s.failLocked(err)
		s.endPendingLocked()
		s.mu.Unlock()
		return failed(err)
	}

	s.sess.Token = res.Token
	s.sess.User = res.User.Clone()
	s.sess.Loading = false
	s.sess.Error = ""
	s.epoch++
	committed := s.epoch
	s.endPendingLocked()
	s.mu.Unlock()

	s.log.Info().Str("user_id", res.User.ID).Msg("Logged in")

	s.persist(ctx, committed, res.Token)

	return ok()
}

func validateCredentials(email, password string) *errs.CustomError {
	fields := map[string]string{}

	email = strings.TrimSpace(email)
	if email == "" {
		fields["email"] = "Email is required"
	} else if _, err := mail.ParseAddress(email); err != nil {
		fields["email"] = "Please enter a valid email address"
	}

	if password == "" {
		fields["password"] = "Password is required"
	}

	return errs.Validation(fields)
}

// Signup registers an account. It never authenticates: on success the caller
// is sent to the login page.
func (s *Store) Signup(ctx context.Context, in user.SignupInput) Result {
	if verr := in.Validate(); verr != nil {
		return failed(verr)
	}

	s.beginPending()
	err := s.api.Signup(ctx, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.endPendingLocked()

	if err != nil {
		s.failLocked(err)
		return failed(err)
	}

	s.sess.Error = ""

	return Result{Success: true, Notice: SignupNotice, Redirect: "/login"}
}

// Logout ends the session. Local state is always cleared; the server call is best effort.
func (s *Store) Logout(ctx context.Context) Result {
	s.mu.Lock()
	token := s.sess.Token
	s.clearLocked()
	s.sess.Error = ""
	s.mu.Unlock()

	s.deletePersisted(ctx)

	if token != "" {
		if err := s.api.Logout(ctx, token); err != nil {
			s.log.Debug().Err(err).Msg("Server-side logout failed, local session cleared anyway")
		}
	}

	return Result{Success: true, Redirect: "/"}
}

// FetchProfile resolves the user behind the current token. A 401 clears the
// session; other failures are recorded and leave the token in place for a retry.
func (s *Store) FetchProfile(ctx context.Context) Result {
	s.mu.Lock()
	token := s.sess.Token
	if token == "" {
		s.mu.Unlock()
		return failed(errs.NewError(errs.ErrLoginRequired))
	}
	epoch := s.epoch
	s.fetchSeq++
	seq := s.fetchSeq
	s.sess.Loading = true
	s.sess.Error = ""
	s.notifyLocked()
	s.mu.Unlock()

	u, err := s.api.Me(ctx, token)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Only the newest fetch ends the loading phase.
	if s.fetchSeq == seq && s.sess.Loading {
		s.sess.Loading = false
		s.notifyLocked()
	}

	if s.epoch != epoch {
		if err != nil && err.Kind == errs.KindUnauthorized {
			return failed(err)
		}
		return staleResult()
	}

	if s.fetchSeq != seq {
		return staleResult()
	}

	if err != nil {
		s.failLocked(err)
		return failed(err)
	}

	s.sess.User = u
	s.notifyLocked()

	return ok()
}

// Refresh resolves the user behind a held token. A fetch already in flight is
// awaited rather than repeated, and a resolved session is returned as is.
func (s *Store) Refresh(ctx context.Context) Result {
	snap := s.Snapshot()

	switch {
	case snap.Token == "":
		return failed(errs.NewError(errs.ErrLoginRequired))
	case snap.User != nil:
		return ok()
	case snap.Loading:
		resolved, err := s.Resolved(ctx)
		if err != nil {
			return failed(errs.NewError(errs.ErrRequestCanceled).WithCause(err))
		}
		if resolved.IsAuthenticated() {
			return ok()
		}
		if resolved.Token == "" {
			return failed(errs.NewError(errs.ErrUnauthorized))
		}
		return failed(errs.NewError(errs.ErrProfileFetchFailed).WithMessage(resolved.Error))
	}

	return s.FetchProfile(ctx)
}

// UpdateProfile applies p and replaces the user with the API's representation.
// When the API rotates the token, token and user are swapped together.
func (s *Store) UpdateProfile(ctx context.Context, p user.ProfileUpdate) Result {
	if verr := p.Validate(); verr != nil {
		return failed(verr)
	}

	snap := s.Snapshot()
	if !snap.IsAuthenticated() {
		return failed(errs.NewError(errs.ErrLoginRequired))
	}

	epoch := s.beginPending()
	res, err := s.api.UpdateProfile(ctx, snap.Token, p)

	s.mu.Lock()

	if s.epoch != epoch {
		s.endPendingLocked()
		s.mu.Unlock()
		if err != nil && err.Kind == errs.KindUnauthorized {
			return failed(err)
		}
		return staleResult()
	}

	if err != nil {
		s.failLocked(err)
		s.endPendingLocked()
		s.mu.Unlock()
		return failed(err)
	}

	rotated := res.Token != "" && res.Token != s.sess.Token
	if rotated {
		s.sess.Token = res.Token
		s.epoch++
	}
	committed := s.epoch

	s.sess.User = res.User
	s.sess.Error = ""
	s.endPendingLocked()
	s.mu.Unlock()

	if rotated {
		s.persist(ctx, committed, res.Token)
	}

	return ok()
}

// SetFollowing records on the current user that it now follows (or no longer
// follows) target. It is a no-op when no user is logged in.
func (s *Store) SetFollowing(target user.UserRef, following bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.sess.User
	if u == nil || target.ID == "" || target.ID == u.ID {
		return
	}

	next := u.Clone()
	next.Following = user.WithoutRef(next.Following, target.ID)
	if following {
		next.Following = append(next.Following, target)
	}

	s.sess.User = next
	s.notifyLocked()
}

// ClearError drops the recorded error.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess.Error != "" {
		s.sess.Error = ""
		s.notifyLocked()
	}
}

// handleUnauthorized clears the session when the API rejected its current
// token. Rejections of a token that is no longer current are ignored.
func (s *Store) handleUnauthorized(token string) {
	s.mu.Lock()
	if token == "" || s.sess.Token != token {
		s.mu.Unlock()
		return
	}
	s.clearLocked()
	s.mu.Unlock()

	s.log.Info().Msg("Token rejected by the API, session cleared")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.deletePersisted(ctx)
}

// persist saves token unless the session has left epoch since.
func (s *Store) persist(ctx context.Context, epoch uint64, token string) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	current := s.epoch == epoch
	s.mu.Unlock()

	if !current {
		s.log.Debug().Msg("Session changed before the token was persisted, skipping")
		return
	}

	if err := s.tokens.Save(ctx, token); err != nil {
		s.log.Warn().Err(err).Msg("Failed to persist token, the session will not survive a restart")
	}
}

func (s *Store) deletePersisted(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if err := s.tokens.Delete(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to delete persisted token")
	}
}
