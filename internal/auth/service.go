// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hrdesk/hrdesk/internal/identity"
)

var tracer = otel.Tracer("hrdesk/auth")

// CredentialStore is the subset of identity.Store the login path needs.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*identity.Identity, error)
	Rehash(ctx context.Context, id, passwordHash string) error
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	User      identity.Profile `json:"user"`
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for login events.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Service verifies credentials and issues session tokens.
type Service struct {
	store     CredentialStore
	hasher    PasswordHasher
	tokens    *TokenManager
	logger    *slog.Logger
	dummyHash string
}

// NewService creates a login Service. A dummy hash is computed with the
// hasher's own parameters so unknown usernames cost the same as known ones.
func NewService(store CredentialStore, hasher PasswordHasher, tokens *TokenManager, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("credential store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("token manager is required")
	}

	dummy, err := hasher.Hash(ulid.Make().String())
	if err != nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").With("operation", "dummy_hash").Wrap(err)
	}

	s := &Service{
		store:     store,
		hasher:    hasher,
		tokens:    tokens,
		logger:    slog.Default(),
		dummyHash: dummy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Tokens returns the token manager used to issue session tokens.
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// Login verifies the credentials and issues a session token.
//
// Unknown usernames and wrong passwords fail with the same error and message.
// Disabled accounts are reported only after the password has been verified.
func (s *Service) Login(ctx context.Context, username, password string) (result *LoginResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.login",
		trace.WithAttributes(attribute.String("auth.username", identity.NormalizeUsername(username))),
	)
	outcome := OutcomeError
	defer func() {
		RecordLoginAttempt(outcome)
		span.SetAttributes(attribute.String("auth.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}()

	if strings.TrimSpace(username) == "" || password == "" {
		outcome = OutcomeMissingCredentials
		return nil, oops.Code(CodeMissingCredentials).Public(MsgMissingCredentials).Wrap(ErrMissingCredentials)
	}

	ident, lookupErr := s.store.FindByUsername(ctx, username)
	if lookupErr != nil && !errors.Is(lookupErr, identity.ErrNotFound) {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "lookup").Wrap(lookupErr)
	}

	digest := s.dummyHash
	if ident != nil {
		digest = ident.PasswordHash
	}
	match, verifyErr := s.hasher.Verify(password, digest)

	if ident == nil {
		outcome = OutcomeInvalidCredentials
		return nil, invalidCredentials()
	}
	if verifyErr != nil {
		// A corrupt stored digest must not be distinguishable from a wrong password.
		s.logger.ErrorContext(ctx, "stored password hash could not be verified",
			"identity_id", ident.ID,
			"error", verifyErr,
		)
		outcome = OutcomeInvalidCredentials
		return nil, invalidCredentials()
	}
	if !ident.IsActive {
		outcome = OutcomeAccountDisabled
		return nil, oops.Code(CodeAccountDisabled).
			With("identity_id", ident.ID).
			Public(MsgAccountDisabled).
			Wrap(ErrAccountDisabled)
	}
	if !match {
		outcome = OutcomeInvalidCredentials
		return nil, invalidCredentials()
	}

	if s.hasher.NeedsUpgrade(ident.PasswordHash) {
		s.upgradeHash(ctx, ident.ID, password)
	}

	token, expiresAt, err := s.tokens.Issue(IdentityClaims{
		ID:       ident.ID,
		Username: ident.Username,
		FullName: ident.FullName,
		Role:     ident.Role,
	}, 0)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "issue_token").Wrap(err)
	}

	outcome = OutcomeSuccess
	span.SetAttributes(attribute.String("auth.identity_id", ident.ID))
	s.logger.InfoContext(ctx, "login succeeded",
		"identity_id", ident.ID,
		"username", ident.Username,
		"role", string(ident.Role),
	)

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      ident.Profile(),
	}, nil
}

func (s *Service) upgradeHash(ctx context.Context, id, password string) {
	newHash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.store.Rehash(ctx, id, newHash)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort password hash upgrade failed",
			"identity_id", id,
			"operation", "rehash",
			"error", err,
		)
		return
	}
	s.logger.InfoContext(ctx, "password hash upgraded", "identity_id", id)
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Public(MsgInvalidCredentials).Wrap(ErrInvalidCredentials)
}
