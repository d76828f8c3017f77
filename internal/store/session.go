package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/flasheng/internal/errs"
	"github.com/and161185/flasheng/internal/model"
	"github.com/and161185/flasheng/internal/notify"
	"github.com/and161185/flasheng/internal/tokenstore"
	"github.com/and161185/flasheng/internal/validate"
)

// SessionState is what session subscribers observe.
type SessionState struct {
	Session model.Session
	Active  bool
	Checked bool
}

// Session holds the authenticated identity and the persisted bearer token.
type Session struct {
	api    API
	tokens tokenstore.Store
	v      *validate.Validator
	notify notify.Notifier
	log    *zap.Logger

	mu      sync.RWMutex
	cur     model.Session
	active  bool
	checked bool

	subs  subscribers[SessionState]
	ended subscribers[context.Context]
}

// NewSession creates an empty, unchecked session store.
func NewSession(api API, tokens tokenstore.Store, v *validate.Validator, n notify.Notifier, log *zap.Logger) *Session {
	if n == nil {
		n = notify.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{api: api, tokens: tokens, v: v, notify: n, log: log.Named("session")}
}

// Token returns the stored bearer token; it satisfies transport.TokenSource.
func (s *Session) Token(ctx context.Context) (string, error) { return s.tokens.Load(ctx) }

// Current returns the active session, if any.
func (s *Session) Current() (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur, s.active
}

// Checked reports whether at least one CheckSession has completed.
func (s *Session) Checked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checked
}

// Authenticated reports whether a session is active.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Admin reports whether the active session is an administrator.
func (s *Session) Admin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active && s.cur.IsAdmin
}

// State returns a snapshot for views.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionState{Session: s.cur, Active: s.active, Checked: s.checked}
}

// Subscribe registers fn for every session change.
func (s *Session) Subscribe(fn func(SessionState)) (unsubscribe func()) { return s.subs.add(fn) }

// OnEnd registers fn to run whenever the session ends (logout or rejected token).
func (s *Session) OnEnd(fn func(ctx context.Context)) (unsubscribe func()) { return s.ended.add(fn) }

func (s *Session) set(sess model.Session, active bool) {
	s.mu.Lock()
	s.cur, s.active, s.checked = sess, active, true
	st := SessionState{Session: s.cur, Active: s.active, Checked: true}
	s.mu.Unlock()
	s.subs.emit(st)
}

// CheckSession restores the session from the stored token. It never fails:
// any problem leaves the store without a session and the token cleared.
// Without a stored token no request is made.
func (s *Session) CheckSession(ctx context.Context) (model.Session, bool) {
	if _, err := s.tokens.Load(ctx); err != nil {
		if !errors.Is(err, errs.ErrNoToken) {
			s.log.Warn("token store unreadable", zap.Error(err))
		}
		s.set(model.Session{}, false)
		return model.Session{}, false
	}

	var resp model.AuthResponse
	if err := s.api.JSON(ctx, http.MethodGet, "/auth/check", nil, nil, &resp); err != nil {
		s.log.Info("session check failed", zap.Error(err))
		if cerr := s.tokens.Clear(ctx); cerr != nil {
			s.log.Warn("clear token", zap.Error(cerr))
		}
		s.set(model.Session{}, false)
		return model.Session{}, false
	}

	sess := resp.Session()
	s.set(sess, true)
	return sess, true
}

// Login validates the credentials, authenticates and stores the token.
func (s *Session) Login(ctx context.Context, c model.Credentials) (model.Session, error) {
	c, err := s.v.Login(c)
	if err != nil {
		return model.Session{}, err
	}
	var resp model.AuthResponse
	if err := s.api.JSON(ctx, http.MethodPost, "/auth/login", nil, c, &resp); err != nil {
		s.notify.Error(errs.Message(err, "Login failed"))
		return model.Session{}, fmt.Errorf("login: %w", err)
	}
	if err := s.establish(ctx, resp); err != nil {
		s.notify.Error("Login failed")
		return model.Session{}, fmt.Errorf("login: %w", err)
	}
	s.notify.Success("Logged in successfully")
	return resp.Session(), nil
}

// Signup validates the registration form, creates the account and logs in.
func (s *Session) Signup(ctx context.Context, r model.SignupRequest) (model.Session, error) {
	r, err := s.v.Signup(r)
	if err != nil {
		return model.Session{}, err
	}
	var resp model.AuthResponse
	if err := s.api.JSON(ctx, http.MethodPost, "/auth/register", nil, r, &resp); err != nil {
		s.notify.Error(errs.Message(err, "Registration failed"))
		return model.Session{}, fmt.Errorf("signup: %w", err)
	}
	if err := s.establish(ctx, resp); err != nil {
		s.notify.Error("Registration failed")
		return model.Session{}, fmt.Errorf("signup: %w", err)
	}
	s.notify.Success("Account created successfully")
	return resp.Session(), nil
}

func (s *Session) establish(ctx context.Context, resp model.AuthResponse) error {
	if resp.Token == "" {
		return errors.New("response carries no token")
	}
	if err := s.tokens.Save(ctx, resp.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	s.set(resp.Session(), true)
	return nil
}

// Logout tells the API (best effort) and then drops the local session.
func (s *Session) Logout(ctx context.Context) {
	if err := s.api.JSON(ctx, http.MethodPost, "/auth/logout", nil, nil, nil); err != nil {
		s.log.Debug("logout call failed", zap.Error(err))
	}
	s.Invalidate(ctx)
	s.notify.Success("Logged out successfully")
}

// Invalidate clears the token and session without any network call and
// runs the OnEnd hooks. It is safe to call repeatedly.
func (s *Session) Invalidate(ctx context.Context) {
	if err := s.tokens.Clear(ctx); err != nil {
		s.log.Warn("clear token", zap.Error(err))
	}
	s.set(model.Session{}, false)
	s.ended.emit(ctx)
}

// UpdateProfile edits the current user and refreshes the session.
func (s *Session) UpdateProfile(ctx context.Context, p model.ProfilePatch) (model.Session, error) {
	cur, ok := s.Current()
	if !ok {
		return model.Session{}, errs.ErrNoSession
	}
	p, err := s.v.ProfilePatch(p)
	if err != nil {
		return model.Session{}, err
	}
	path := "/users/" + strconv.FormatInt(cur.ID, 10)
	if err := s.api.JSON(ctx, http.MethodPut, path, nil, p, nil); err != nil {
		s.notify.Error(errs.Message(err, "Profile update failed"))
		return model.Session{}, fmt.Errorf("update profile: %w", err)
	}
	sess, _ := s.CheckSession(ctx)
	s.notify.Success("Profile updated successfully")
	return sess, nil
}
