// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package identity

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samber/oops"
)

// Field limits.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MaxFullNameLength = 100
	MaxPasswordLength = 128
)

// usernameRegex matches usernames that:
// - Start with a letter
// - Contain only letters, numbers, underscores, and dots
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.]*$`)

// NormalizeUsername trims and lowercases a username. All writes and lookups
// go through it so matching is case-insensitive.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateUsername validates an already-normalized username.
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code(CodeInvalidUsername).
			Public("username is required").
			Wrap(ErrInvalid)
	}
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return oops.Code(CodeInvalidUsername).
			With("min", MinUsernameLength).
			With("max", MaxUsernameLength).
			Public("username must be between 3 and 30 characters").
			Wrap(ErrInvalid)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code(CodeInvalidUsername).
			Public("username must start with a letter and contain only letters, numbers, underscores, and dots").
			Wrap(ErrInvalid)
	}
	return nil
}

// ValidateFullName validates a trimmed display name.
func ValidateFullName(fullName string) error {
	if fullName == "" {
		return oops.Code(CodeInvalidFullName).
			Public("full name is required").
			Wrap(ErrInvalid)
	}
	if utf8.RuneCountInString(fullName) > MaxFullNameLength {
		return oops.Code(CodeInvalidFullName).
			With("max", MaxFullNameLength).
			Public("full name must be at most 100 characters").
			Wrap(ErrInvalid)
	}
	return nil
}

// ValidateRole rejects roles outside the closed set.
func ValidateRole(role Role) error {
	switch role {
	case RoleAdmin, RoleUser:
		return nil
	default:
		return oops.Code(CodeInvalidRole).
			With("role", string(role)).
			Public("role must be 'admin' or 'user'").
			Wrap(ErrInvalid)
	}
}

// ValidatePassword checks a raw password before hashing.
func ValidatePassword(password string) error {
	if password == "" {
		return oops.Code(CodeInvalidPassword).
			Public("password is required").
			Wrap(ErrInvalid)
	}
	if len(password) > MaxPasswordLength {
		return oops.Code(CodeInvalidPassword).
			With("max", MaxPasswordLength).
			Public("password must be at most 128 bytes").
			Wrap(ErrInvalid)
	}
	return nil
}
