// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/oops"

	"github.com/hrdesk/hrdesk/internal/auth"
	"github.com/hrdesk/hrdesk/internal/identity"
)

// UserStore is the credential store surface used by the user management API.
type UserStore interface {
	ProfileLookup
	Create(ctx context.Context, params identity.CreateParams) (*identity.Profile, error)
	UpdateProfile(ctx context.Context, id string, update identity.ProfileUpdate) (bool, error)
	SetActive(ctx context.Context, id string, active bool) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	ListAll(ctx context.Context) ([]identity.Profile, error)
}

// CreateUserRequest is the POST /api/users body.
type CreateUserRequest struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateUserRequest is the PUT /api/users/{id} body. Absent fields are left
// unchanged; an empty password also means "keep the current password".
type UpdateUserRequest struct {
	FullName *string `json:"fullName"`
	Username *string `json:"username"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

// SetStatusRequest is the PATCH /api/users/{id}/status body.
type SetStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

// selfChange rejects an admin action that would lock the caller out of
// their own account.
func selfChange(r *http.Request, id, msg string) error {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || claims.IdentityID() != id {
		return nil
	}
	return oops.Code(CodeSelfChange).
		With("identity_id", id).
		Public(msg).
		Wrap(identity.ErrInvalid)
}

func (h *handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.users.ListAll(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if profiles == nil {
		profiles = []identity.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *handlers) getUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *handlers) createUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	profile, err := h.users.Create(r.Context(), identity.CreateParams{
		FullName: req.FullName,
		Username: req.Username,
		Password: req.Password,
		Role:     identity.Role(req.Role),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedBody{Message: "User created", ID: profile.ID})
}

func (h *handlers) updateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	update := identity.ProfileUpdate{
		FullName: req.FullName,
		Username: req.Username,
	}
	if req.Role != nil {
		role := identity.Role(*req.Role)
		if identity.ValidateRole(role) == nil && role != identity.RoleAdmin {
			if err := selfChange(r, id, "You cannot remove your own admin role"); err != nil {
				writeError(w, r, h.logger, err)
				return
			}
		}
		update.Role = &role
	}
	if req.Password != nil && *req.Password != "" {
		update.Password = req.Password
	}

	changed, err := h.users.UpdateProfile(r.Context(), id, update)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if !changed {
		writeNotChanged(w, id)
		return
	}
	writeJSON(w, http.StatusOK, MessageBody{Message: "User updated", Changes: 1})
}

func (h *handlers) setUserStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req SetStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.IsActive == nil {
		writeError(w, r, h.logger, oops.Code(CodeRequestInvalid).
			Public("isActive is required").
			Wrap(errBadRequest))
		return
	}
	if !*req.IsActive {
		if err := selfChange(r, id, "You cannot deactivate your own account"); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	changed, err := h.users.SetActive(r.Context(), id, *req.IsActive)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if !changed {
		writeNotChanged(w, id)
		return
	}
	writeJSON(w, http.StatusOK, MessageBody{Message: "Status updated", Changes: 1})
}

func (h *handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := selfChange(r, id, "You cannot delete your own account"); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	changed, err := h.users.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if !changed {
		writeNotChanged(w, id)
		return
	}
	writeJSON(w, http.StatusOK, MessageBody{Message: "User deleted", Changes: 1})
}
