// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

// Package auth verifies credentials and manages session tokens for HRDesk.
//
// # Components
//
//   - Argon2idHasher - argon2id password hashing with legacy bcrypt verification
//   - TokenManager - HS256 session tokens with a fixed lifetime
//   - Service - the login flow: lookup, verify, status check, token issue
//
// Tokens are stateless. Validation checks only the signature, issuer and
// expiry; callers that need a fresh account status re-read the identity.
//
// All failures wrap one of the sentinel errors in errors.go and carry an
// oops code plus a public message suitable for API responses.
package auth
