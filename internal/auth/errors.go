// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package auth

import "errors"

// Sentinel errors. Callers classify with errors.Is; the HTTP layer maps each
// to a status code and uses the attached public message for the response body.
var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrAccountInactive    = errors.New("account is no longer active")
	ErrTokenMissing       = errors.New("session token missing")
	ErrTokenInvalid       = errors.New("session token invalid")
	ErrTokenExpired       = errors.New("session token expired")
	ErrForbidden          = errors.New("insufficient role")
)

// Error codes attached with oops.Code.
const (
	CodeMissingCredentials = "AUTH_MISSING_CREDENTIALS"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeAccountDisabled    = "AUTH_ACCOUNT_DISABLED"
	CodeAccountInactive    = "AUTH_ACCOUNT_INACTIVE"
	CodeTokenMissing       = "AUTH_TOKEN_MISSING"
	CodeTokenInvalid       = "AUTH_TOKEN_INVALID"
	CodeTokenExpired       = "AUTH_TOKEN_EXPIRED"
	CodeForbidden          = "AUTH_FORBIDDEN"
)

// Public messages shown to clients.
const (
	MsgMissingCredentials = "Username and password are required"
	MsgInvalidCredentials = "Invalid username or password"
	MsgAccountDisabled    = "Account is disabled. Contact an administrator."
	MsgAccountInactive    = "Account is no longer active"
	MsgTokenMissing       = "Authentication required"
	MsgTokenInvalid       = "Invalid session token"
	MsgTokenExpired       = "Session expired. Please log in again."
	MsgForbidden          = "Administrator access required"
)
