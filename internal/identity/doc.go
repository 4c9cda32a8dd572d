// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

// Package identity owns the account records that back HRDesk logins.
//
// # Records
//
// An Identity carries the password hash and must never leave the server
// process. Every read path that faces a caller returns a Profile instead,
// which is the same record with the hash stripped.
//
// # Store
//
// Store coordinates validation, hashing, and persistence on top of a
// Repository. Repositories enforce username uniqueness atomically and report
// violations as ErrDuplicateUsername; Store never checks for duplicates with
// a separate read.
//
// Usernames are case-insensitive. They are lowercased before every write and
// every lookup.
package identity
