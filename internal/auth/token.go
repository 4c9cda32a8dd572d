// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/hrdesk/hrdesk/internal/identity"
)

// Token defaults.
const (
	DefaultTokenTTL    = 8 * time.Hour
	DefaultTokenIssuer = "hrdesk"
	MinSecretLength    = 32
)

// IdentityClaims are the identity facts embedded in a session token.
type IdentityClaims struct {
	ID       string
	Username string
	FullName string
	Role     identity.Role
}

// Claims is the decoded payload of a session token.
type Claims struct {
	Username string        `json:"username"`
	FullName string        `json:"name"`
	Role     identity.Role `json:"role"`
	jwt.RegisteredClaims
}

// IdentityID returns the subject claim.
func (c *Claims) IdentityID() string {
	return c.Subject
}

// IsAdmin reports whether the token carries the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == identity.RoleAdmin
}

// TokenConfig configures a TokenManager.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// TokenOption configures optional TokenManager behavior.
type TokenOption func(*TokenManager)

// WithTokenClock overrides the clock used for issuing and validating tokens.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) {
		m.now = now
	}
}

// TokenManager issues and validates HS256 session tokens.
// It holds no per-token state; validation never touches the credential store.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenManager creates a TokenManager. The secret must be at least
// MinSecretLength bytes. Zero TTL and empty issuer fall back to defaults.
func NewTokenManager(cfg TokenConfig, opts ...TokenOption) (*TokenManager, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, oops.Code("AUTH_TOKEN_CONFIG_INVALID").
			With("secret_length", len(cfg.Secret)).
			With("min_length", MinSecretLength).
			Errorf("token secret is too short")
	}
	if cfg.TTL < 0 {
		return nil, oops.Code("AUTH_TOKEN_CONFIG_INVALID").
			With("ttl", cfg.TTL.String()).
			Errorf("token ttl must not be negative")
	}

	m := &TokenManager{
		secret: append([]byte(nil), cfg.Secret...),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    time.Now,
	}
	if m.ttl == 0 {
		m.ttl = DefaultTokenTTL
	}
	if m.issuer == "" {
		m.issuer = DefaultTokenIssuer
	}
	for _, opt := range opts {
		opt(m)
	}

	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	)
	return m, nil
}

// TTL returns the default token lifetime.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for the identity. A non-positive ttl uses the configured default.
func (m *TokenManager) Issue(subject IdentityClaims, ttl time.Duration) (string, time.Time, error) {
	if subject.ID == "" {
		return "", time.Time{}, oops.Code("AUTH_TOKEN_ISSUE_FAILED").Errorf("token subject is required")
	}
	if ttl <= 0 {
		ttl = m.ttl
	}

	// JWT NumericDate has second precision.
	issuedAt := m.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)

	claims := &Claims{
		Username: subject.Username,
		FullName: subject.FullName,
		Role:     subject.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        ulid.Make().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, oops.Code("AUTH_TOKEN_ISSUE_FAILED").With("subject", subject.ID).Wrap(err)
	}
	return signed, expiresAt, nil
}

// Validate verifies the token signature and expiry and returns its claims.
//
// The signature is checked before any claim, so ErrTokenExpired is only
// returned for tokens this manager actually signed.
func (m *TokenManager) Validate(token string) (*Claims, error) {
	if token == "" {
		RecordTokenValidation(TokenMissing)
		return nil, oops.Code(CodeTokenMissing).Public(MsgTokenMissing).Wrap(ErrTokenMissing)
	}

	claims := &Claims{}
	_, err := m.parser.ParseWithClaims(token, claims, m.keyFunc)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		RecordTokenValidation(TokenExpired)
		return nil, oops.Code(CodeTokenExpired).
			With("subject", claims.Subject).
			Public(MsgTokenExpired).
			Wrap(ErrTokenExpired)
	default:
		RecordTokenValidation(TokenInvalid)
		return nil, oops.Code(CodeTokenInvalid).
			With("reason", err.Error()).
			Public(MsgTokenInvalid).
			Wrap(ErrTokenInvalid)
	}

	if claims.Subject == "" {
		RecordTokenValidation(TokenInvalid)
		return nil, oops.Code(CodeTokenInvalid).
			With("reason", "missing subject").
			Public(MsgTokenInvalid).
			Wrap(ErrTokenInvalid)
	}

	RecordTokenValidation(TokenValid)
	return claims, nil
}

func (m *TokenManager) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, oops.Errorf("unexpected signing method %v", t.Header["alg"])
	}
	return m.secret, nil
}
