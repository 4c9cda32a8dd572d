// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package identity

import (
	"context"
	"time"
)

// Repository persists identities.
//
// Implementations must enforce username uniqueness atomically: Create and
// Update return an error wrapping ErrDuplicateUsername and leave the stored
// data untouched when the username is taken.
type Repository interface {
	// Create stores a new identity.
	Create(ctx context.Context, ident *Identity) error

	// GetByID retrieves an identity by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*Identity, error)

	// GetByUsername retrieves an identity by normalized username.
	// Returns ErrNotFound if absent.
	GetByUsername(ctx context.Context, username string) (*Identity, error)

	// Update applies changes to the identity with the given ID.
	// Returns false when no identity has that ID.
	Update(ctx context.Context, id string, changes Changes) (bool, error)

	// SetActive sets the active flag. Returns false when no identity has that ID.
	SetActive(ctx context.Context, id string, active bool, at time.Time) (bool, error)

	// Delete removes an identity. Returns false when no identity has that ID.
	Delete(ctx context.Context, id string) (bool, error)

	// List returns every identity, newest created first.
	List(ctx context.Context) ([]*Identity, error)

	// IsEmpty reports whether no identity has ever been stored or all
	// have been removed.
	IsEmpty(ctx context.Context) (bool, error)
}

// Hasher turns raw passwords into storable digests.
type Hasher interface {
	Hash(password string) (string, error)
}
