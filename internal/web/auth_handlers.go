// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/oops"

	"github.com/hrdesk/hrdesk/internal/auth"
	"github.com/hrdesk/hrdesk/internal/identity"
)

// Authenticator performs the login flow.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*auth.LoginResult, error)
}

// LoginRequest is the POST /api/auth/login body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the POST /api/auth/login success body.
type LoginResponse struct {
	Message string `json:"message"`
	*auth.LoginResult
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Message: "Login successful", LoginResult: result})
}

// me returns the caller's current profile. A deleted or deactivated account
// is reported as inactive so clients drop the session.
func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, r, h.logger, oops.Code(auth.CodeTokenMissing).Public(auth.MsgTokenMissing).Wrap(auth.ErrTokenMissing))
		return
	}

	profile, err := h.users.Get(r.Context(), claims.IdentityID())
	if errors.Is(err, identity.ErrNotFound) || (err == nil && !profile.IsActive) {
		writeError(w, r, h.logger, inactive(claims.IdentityID()))
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
