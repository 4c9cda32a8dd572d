// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package identity

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role is a coarse authorization tier.
type Role string

// Known roles.
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// IDPrefix is prepended to every identity ID.
const IDPrefix = "USER-"

// Identity is a stored user account, including its password hash.
type Identity struct {
	ID           string
	FullName     string
	Username     string
	PasswordHash string `json:"-"`
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile is the non-secret view of an Identity.
type Profile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// Profile returns the identity without its password hash.
func (i *Identity) Profile() Profile {
	return Profile{
		ID:        i.ID,
		FullName:  i.FullName,
		Username:  i.Username,
		Role:      i.Role,
		IsActive:  i.IsActive,
		CreatedAt: i.CreatedAt,
	}
}

// IsAdmin reports whether the identity holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// NewID generates a fresh identity ID.
func NewID() string {
	return IDPrefix + ulid.Make().String()
}

// NewIdentity creates an active Identity with a new ID.
// The username is normalized; fullName is trimmed.
func NewIdentity(fullName, username, passwordHash string, role Role, now time.Time) (*Identity, error) {
	fullName = strings.TrimSpace(fullName)
	username = NormalizeUsername(username)

	if err := ValidateFullName(fullName); err != nil {
		return nil, err
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateRole(role); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code(CodeInvalidPassword).
			Public("password is required").
			Wrap(ErrInvalid)
	}

	now = now.UTC()
	return &Identity{
		ID:           NewID(),
		FullName:     fullName,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ProfileUpdate describes a partial profile change. Nil fields are left as is.
type ProfileUpdate struct {
	FullName *string
	Username *string
	Role     *Role
	Password *string
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.FullName == nil && u.Username == nil && u.Role == nil && u.Password == nil
}

// Changes is the validated, storage-ready form of a ProfileUpdate.
// PasswordHash replaces Password.
type Changes struct {
	FullName     *string
	Username     *string
	Role         *Role
	PasswordHash *string
	UpdatedAt    time.Time
}

// Apply copies the set fields onto ident.
func (c Changes) Apply(ident *Identity) {
	if c.FullName != nil {
		ident.FullName = *c.FullName
	}
	if c.Username != nil {
		ident.Username = *c.Username
	}
	if c.Role != nil {
		ident.Role = *c.Role
	}
	if c.PasswordHash != nil {
		ident.PasswordHash = *c.PasswordHash
	}
	ident.UpdatedAt = c.UpdatedAt
}
