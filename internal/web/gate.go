// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/samber/oops"

	"github.com/hrdesk/hrdesk/internal/auth"
	"github.com/hrdesk/hrdesk/internal/identity"
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// ProfileLookup reads the current state of an identity.
type ProfileLookup interface {
	Get(ctx context.Context, id string) (*identity.Profile, error)
}

// Gate holds the middleware that protects API routes.
type Gate struct {
	tokens TokenValidator
	lookup ProfileLookup
	logger *slog.Logger
}

// NewGate creates a Gate.
func NewGate(tokens TokenValidator, lookup ProfileLookup, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{tokens: tokens, lookup: lookup, logger: logger}
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate rejects requests without a valid, unexpired bearer token and
// attaches the token claims to the request context.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := g.tokens.Validate(bearerToken(r))
		if err != nil {
			writeError(w, r, g.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// RequireRole rejects authenticated requests whose token lacks role.
// It must run after Authenticate.
func (g *Gate) RequireRole(role identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, r, g.logger, oops.Code(auth.CodeTokenMissing).Public(auth.MsgTokenMissing).Wrap(auth.ErrTokenMissing))
				return
			}
			if claims.Role != role {
				writeError(w, r, g.logger, oops.Code(auth.CodeForbidden).
					With("identity_id", claims.IdentityID()).
					With("required_role", string(role)).
					Public(auth.MsgForbidden).
					Wrap(auth.ErrForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireActive re-reads the caller's identity and rejects tokens whose
// account has since been deleted or deactivated, or whose role no longer
// matches the stored one. It must run after Authenticate.
func (g *Gate) RequireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.ClaimsFromContext(r.Context())
		if !ok {
			writeError(w, r, g.logger, oops.Code(auth.CodeTokenMissing).Public(auth.MsgTokenMissing).Wrap(auth.ErrTokenMissing))
			return
		}
		profile, err := g.lookup.Get(r.Context(), claims.IdentityID())
		switch {
		case errors.Is(err, identity.ErrNotFound):
			writeError(w, r, g.logger, inactive(claims.IdentityID()))
			return
		case err != nil:
			writeError(w, r, g.logger, err)
			return
		case !profile.IsActive:
			writeError(w, r, g.logger, inactive(claims.IdentityID()))
			return
		case profile.Role != claims.Role:
			writeError(w, r, g.logger, oops.Code(auth.CodeForbidden).
				With("identity_id", claims.IdentityID()).
				With("token_role", string(claims.Role)).
				With("stored_role", string(profile.Role)).
				Public(auth.MsgForbidden).
				Wrap(auth.ErrForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func inactive(id string) error {
	return oops.Code(auth.CodeAccountInactive).
		With("identity_id", id).
		Public(auth.MsgAccountInactive).
		Wrap(auth.ErrAccountInactive)
}
