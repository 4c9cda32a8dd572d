// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

// Package client holds the HRDesk API client and the client-side session
// state machine used by the CLI and front ends.
package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"

	"github.com/hrdesk/hrdesk/internal/auth"
)

// State is the client session state.
type State int

// Session states. A session starts Unknown, moves to Resolving while the
// stored token is inspected, and settles in Authenticated or Anonymous.
const (
	StateUnknown State = iota
	StateResolving
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateResolving:
		return "resolving"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "invalid"
	}
}

// Snapshot is an immutable view of the session.
type Snapshot struct {
	State  State
	Claims *auth.Claims
}

// LoginAPI performs the server side of a login.
type LoginAPI interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock overrides the time source used for local expiry checks.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

const subscriberBuffer = 16

// Session tracks whether the local user is logged in.
//
// Tokens are checked locally only for shape and expiry; the server remains
// the authority and a 401 from any protected call ends the session.
type Session struct {
	api    LoginAPI
	store  TokenStore
	now    func() time.Time
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	token     string
	claims    *auth.Claims
	resolving chan struct{}
	loggingIn bool
	// epoch advances on every Logout; in-flight work started under an
	// older epoch must not publish its result.
	epoch     uint64
	subs      map[chan Snapshot]struct{}
	closed    bool
}

// NewSession creates a Session in StateUnknown.
func NewSession(api LoginAPI, store TokenStore, opts ...SessionOption) (*Session, error) {
	if api == nil {
		return nil, oops.Code("CLIENT_SESSION_INVALID").Errorf("login api is required")
	}
	if store == nil {
		return nil, oops.Code("CLIENT_SESSION_INVALID").Errorf("token store is required")
	}
	s := &Session{
		api:    api,
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
		state:  StateUnknown,
		subs:   make(map[chan Snapshot]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Snapshot returns the current state and claims.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// State returns the current state.
func (s *Session) State() State {
	return s.Snapshot().State
}

// Token returns the current token, or "" when not authenticated.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Resolve inspects the stored token once. Concurrent callers share the same
// in-flight resolution. After the first resolution it returns the current state.
func (s *Session) Resolve(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	switch {
	case s.resolving != nil:
		done := s.resolving
		s.mu.Unlock()
		select {
		case <-done:
			return s.Snapshot(), nil
		case <-ctx.Done():
			return Snapshot{}, oops.Code("CLIENT_RESOLVE_CANCELED").Wrap(ctx.Err())
		}
	case s.loggingIn:
		s.mu.Unlock()
		return Snapshot{}, ErrBusy
	case s.state != StateUnknown:
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}

	done := make(chan struct{})
	s.resolving = done
	epoch := s.epoch
	s.setStateLocked(StateResolving, "", nil)
	s.mu.Unlock()

	token, claims := s.loadStoredToken(ctx)

	s.mu.Lock()
	switch {
	case s.epoch != epoch:
		// Logged out meanwhile; the store is already cleared.
		s.setStateLocked(StateAnonymous, "", nil)
	case claims != nil:
		s.setStateLocked(StateAuthenticated, token, claims)
	default:
		s.setStateLocked(StateAnonymous, "", nil)
	}
	s.resolving = nil
	close(done)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	return snap, nil
}

// loadStoredToken returns the stored token and its claims when it is usable.
// Anything unusable is discarded from the store.
func (s *Session) loadStoredToken(ctx context.Context) (string, *auth.Claims) {
	token, err := s.store.Load(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "stored session unreadable; discarding", "error", err)
		s.discardStored(ctx)
		return "", nil
	}
	if token == "" {
		return "", nil
	}
	claims, err := s.inspect(token)
	if err != nil {
		s.logger.InfoContext(ctx, "stored session unusable; discarding", "reason", err.Error())
		s.discardStored(ctx)
		return "", nil
	}
	return token, claims
}

// Login authenticates with the server and persists the token. It fails with
// ErrBusy while another login or a resolution is in flight. Any failure
// leaves the session Anonymous.
func (s *Session) Login(ctx context.Context, username, password string) (Snapshot, error) {
	s.mu.Lock()
	if s.loggingIn || s.resolving != nil {
		s.mu.Unlock()
		return Snapshot{}, ErrBusy
	}
	s.loggingIn = true
	epoch := s.epoch
	s.mu.Unlock()

	token, claims, err := s.login(ctx, username, password)

	s.mu.Lock()
	s.loggingIn = false
	if err == nil && s.epoch != epoch {
		err = oops.Code("CLIENT_LOGIN_ABANDONED").Wrap(ErrLoggedOut)
		s.setStateLocked(StateAnonymous, "", nil)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		// The token was saved after Logout cleared the store.
		s.discardStored(ctx)
		return snap, err
	}
	defer s.mu.Unlock()
	if err != nil {
		s.setStateLocked(StateAnonymous, "", nil)
		return s.snapshotLocked(), err
	}
	s.setStateLocked(StateAuthenticated, token, claims)
	return s.snapshotLocked(), nil
}

func (s *Session) login(ctx context.Context, username, password string) (string, *auth.Claims, error) {
	result, err := s.api.Login(ctx, username, password)
	if err != nil {
		s.discardStored(ctx)
		return "", nil, err
	}
	claims, err := s.inspect(result.Token)
	if err != nil {
		s.discardStored(ctx)
		return "", nil, oops.Code("CLIENT_LOGIN_FAILED").With("reason", "unusable token").Wrap(err)
	}
	if err := s.store.Save(ctx, result.Token); err != nil {
		return "", nil, oops.Code("CLIENT_LOGIN_FAILED").With("operation", "persist token").Wrap(err)
	}
	return result.Token, claims, nil
}

// Logout forgets the token unconditionally. A login or resolution still in
// flight finishes Anonymous.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.epoch++
	s.setStateLocked(StateAnonymous, "", nil)
	s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		return oops.Code("CLIENT_LOGOUT_FAILED").Wrap(err)
	}
	return nil
}

// Do runs a protected API call with the current token. A locally expired
// token or an ErrUnauthorized result ends the session.
func (s *Session) Do(ctx context.Context, call func(ctx context.Context, token string) error) error {
	s.mu.Lock()
	if s.state != StateAuthenticated {
		s.mu.Unlock()
		return ErrNotAuthenticated
	}
	token := s.token
	if exp := s.claims.ExpiresAt; exp == nil || !s.now().Before(exp.Time) {
		s.setStateLocked(StateAnonymous, "", nil)
		s.mu.Unlock()
		s.discardStored(ctx)
		return oops.Code("CLIENT_SESSION_EXPIRED").Wrap(ErrUnauthorized)
	}
	s.mu.Unlock()

	err := call(ctx, token)
	if errors.Is(err, ErrUnauthorized) {
		s.mu.Lock()
		// A concurrent login may already have replaced the token.
		stale := s.token == token
		if stale {
			s.setStateLocked(StateAnonymous, "", nil)
		}
		s.mu.Unlock()
		if stale {
			s.logger.InfoContext(ctx, "server rejected session; logged out")
			s.discardStored(ctx)
		}
	}
	return err
}

// Subscribe returns a channel of state changes and a function that
// unsubscribes and closes it. Slow subscribers miss intermediate states.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)
	s.mu.Lock()
	if s.closed {
		close(ch)
		s.mu.Unlock()
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

// Close closes every subscriber channel.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
}

// Decide applies policy to the current state.
func (s *Session) Decide(policy *RoutePolicy, path string) RouteDecision {
	return policy.Decide(s.State(), path)
}

// inspect decodes the token without verifying its signature and checks
// that it names a subject and has not expired.
func (s *Session) inspect(token string) (*auth.Claims, error) {
	claims := &auth.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, oops.Code("CLIENT_TOKEN_MALFORMED").Wrap(err)
	}
	if claims.Subject == "" {
		return nil, oops.Code("CLIENT_TOKEN_MALFORMED").Errorf("token has no subject")
	}
	if claims.ExpiresAt == nil || !s.now().Before(claims.ExpiresAt.Time) {
		return nil, oops.Code("CLIENT_TOKEN_EXPIRED").Errorf("token expired")
	}
	return claims, nil
}

func (s *Session) discardStored(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "best-effort session discard failed", "operation", "clear_token", "error", err)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{State: s.state, Claims: s.claims}
}

func (s *Session) setStateLocked(state State, token string, claims *auth.Claims) {
	changed := s.state != state || s.token != token
	s.state = state
	s.token = token
	s.claims = claims
	if !changed {
		return
	}
	snap := s.snapshotLocked()
	for ch := range s.subs {
		select {
		case ch <- snap:
		default:
			s.logger.Debug("session subscriber full; dropping update", "state", state.String())
		}
	}
}
