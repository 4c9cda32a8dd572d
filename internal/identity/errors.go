// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package identity

import "errors"

// Sentinel errors. Repository and Store errors wrap one of these so callers
// can classify failures with errors.Is regardless of the oops code attached.
var (
	// ErrNotFound is returned when a requested identity does not exist.
	ErrNotFound = errors.New("identity not found")

	// ErrDuplicateUsername is returned when a create or update would give two
	// identities the same username.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrInvalid is returned when input fails validation.
	ErrInvalid = errors.New("invalid identity input")
)

// Error codes attached to identity errors.
const (
	CodeNotFound          = "IDENTITY_NOT_FOUND"
	CodeDuplicateUsername = "IDENTITY_DUPLICATE_USERNAME"
	CodeInvalidUsername   = "IDENTITY_INVALID_USERNAME"
	CodeInvalidFullName   = "IDENTITY_INVALID_FULL_NAME"
	CodeInvalidRole       = "IDENTITY_INVALID_ROLE"
	CodeInvalidPassword   = "IDENTITY_INVALID_PASSWORD"
)
