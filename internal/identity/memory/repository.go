// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

// Package memory provides an in-process identity.Repository.
// Data is lost when the process exits.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/hrdesk/hrdesk/internal/identity"
)

// Repository implements identity.Repository with a mutex-guarded map.
type Repository struct {
	mu         sync.RWMutex
	byID       map[string]*identity.Identity
	byUsername map[string]string // username -> id
}

// NewRepository creates an empty Repository.
func NewRepository() *Repository {
	return &Repository{
		byID:       make(map[string]*identity.Identity),
		byUsername: make(map[string]string),
	}
}

// Create stores a copy of ident.
func (r *Repository) Create(_ context.Context, ident *identity.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byUsername[ident.Username]; taken {
		return duplicate(ident.Username)
	}
	if _, exists := r.byID[ident.ID]; exists {
		return oops.Code("IDENTITY_CREATE_FAILED").
			With("id", ident.ID).
			Errorf("identity id already exists")
	}

	stored := *ident
	r.byID[stored.ID] = &stored
	r.byUsername[stored.Username] = stored.ID
	return nil
}

// GetByID returns a copy of the identity.
func (r *Repository) GetByID(_ context.Context, id string) (*identity.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ident, ok := r.byID[id]
	if !ok {
		return nil, notFound("id", id)
	}
	out := *ident
	return &out, nil
}

// GetByUsername returns a copy of the identity.
func (r *Repository) GetByUsername(_ context.Context, username string) (*identity.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, notFound("username", username)
	}
	out := *r.byID[id]
	return &out, nil
}

// Update applies changes atomically.
func (r *Repository) Update(_ context.Context, id string, changes identity.Changes) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ident, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	oldUsername := ident.Username
	if changes.Username != nil && *changes.Username != oldUsername {
		if _, taken := r.byUsername[*changes.Username]; taken {
			return false, duplicate(*changes.Username)
		}
	}

	changes.Apply(ident)
	if ident.Username != oldUsername {
		delete(r.byUsername, oldUsername)
		r.byUsername[ident.Username] = ident.ID
	}
	return true, nil
}

// SetActive sets the active flag.
func (r *Repository) SetActive(_ context.Context, id string, active bool, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ident, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	ident.IsActive = active
	ident.UpdatedAt = at
	return true, nil
}

// Delete removes the identity.
func (r *Repository) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ident, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	delete(r.byUsername, ident.Username)
	delete(r.byID, id)
	return true, nil
}

// List returns copies of all identities, newest created first.
func (r *Repository) List(_ context.Context) ([]*identity.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*identity.Identity, 0, len(r.byID))
	for _, ident := range r.byID {
		c := *ident
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			// ULID ids sort by creation time within the same instant.
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// IsEmpty reports whether the repository holds no identities.
func (r *Repository) IsEmpty(_ context.Context) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID) == 0, nil
}

// Len returns the number of stored identities.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func notFound(key, value string) error {
	return oops.Code(identity.CodeNotFound).
		With(key, value).
		Wrap(identity.ErrNotFound)
}

func duplicate(username string) error {
	return oops.Code(identity.CodeDuplicateUsername).
		With("username", username).
		Public("username already exists").
		Wrap(identity.ErrDuplicateUsername)
}

var _ identity.Repository = (*Repository)(nil)
