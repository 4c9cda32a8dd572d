// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"
)

// CreateParams holds the input for Store.Create.
type CreateParams struct {
	FullName string
	Username string
	Password string
	Role     Role
}

// Store is the credential store: validation and hashing over a Repository.
type Store struct {
	repo   Repository
	hasher Hasher
	logger *slog.Logger
	now    func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for store events.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a Store.
func NewStore(repo Repository, hasher Hasher, opts ...StoreOption) (*Store, error) {
	if repo == nil {
		return nil, oops.Code("IDENTITY_STORE_INVALID").Errorf("identity repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("IDENTITY_STORE_INVALID").Errorf("password hasher is required")
	}
	s := &Store{
		repo:   repo,
		hasher: hasher,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create validates the input, hashes the password, and stores a new active
// identity. An empty role defaults to RoleUser.
func (s *Store) Create(ctx context.Context, params CreateParams) (*Profile, error) {
	fullName := strings.TrimSpace(params.FullName)
	username := NormalizeUsername(params.Username)
	role := params.Role
	if role == "" {
		role = RoleUser
	}

	// Validate everything before paying for a hash.
	if err := ValidateFullName(fullName); err != nil {
		return nil, err
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateRole(role); err != nil {
		return nil, err
	}
	if err := ValidatePassword(params.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, oops.Code("IDENTITY_CREATE_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	ident, err := NewIdentity(fullName, username, hash, role, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, ident); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "identity created",
		"id", ident.ID,
		"username", ident.Username,
		"role", string(ident.Role),
	)
	profile := ident.Profile()
	return &profile, nil
}

// FindByUsername returns the full identity, including the password hash.
// Only the login path should call it.
func (s *Store) FindByUsername(ctx context.Context, username string) (*Identity, error) {
	username = NormalizeUsername(username)
	if username == "" {
		return nil, oops.Code(CodeNotFound).Wrap(ErrNotFound)
	}
	return s.repo.GetByUsername(ctx, username)
}

// Get returns the profile for id.
func (s *Store) Get(ctx context.Context, id string) (*Profile, error) {
	ident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := ident.Profile()
	return &profile, nil
}

// UpdateProfile applies a partial update. A new password is re-hashed.
// Returns false when id does not exist.
func (s *Store) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (bool, error) {
	if update.Empty() {
		return false, oops.Code("IDENTITY_EMPTY_UPDATE").
			Public("No fields to update").
			Wrap(ErrInvalid)
	}

	changes := Changes{UpdatedAt: s.now().UTC()}
	if update.FullName != nil {
		fullName := strings.TrimSpace(*update.FullName)
		if err := ValidateFullName(fullName); err != nil {
			return false, err
		}
		changes.FullName = &fullName
	}
	if update.Username != nil {
		username := NormalizeUsername(*update.Username)
		if err := ValidateUsername(username); err != nil {
			return false, err
		}
		changes.Username = &username
	}
	if update.Role != nil {
		if err := ValidateRole(*update.Role); err != nil {
			return false, err
		}
		role := *update.Role
		changes.Role = &role
	}
	if update.Password != nil {
		if err := ValidatePassword(*update.Password); err != nil {
			return false, err
		}
		hash, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return false, oops.Code("IDENTITY_UPDATE_FAILED").
				With("operation", "hash password").
				With("id", id).
				Wrap(err)
		}
		changes.PasswordHash = &hash
	}

	changed, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		return false, err
	}
	if changed {
		s.logger.InfoContext(ctx, "identity updated",
			"id", id,
			"password_changed", changes.PasswordHash != nil,
		)
	}
	return changed, nil
}

// SetActive toggles whether the identity may log in.
func (s *Store) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	changed, err := s.repo.SetActive(ctx, id, active, s.now().UTC())
	if err != nil {
		return false, err
	}
	if changed {
		s.logger.InfoContext(ctx, "identity status changed", "id", id, "active", active)
	}
	return changed, nil
}

// Delete removes the identity.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	changed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if changed {
		s.logger.InfoContext(ctx, "identity deleted", "id", id)
	}
	return changed, nil
}

// ListAll returns every profile, newest created first.
func (s *Store) ListAll(ctx context.Context) ([]Profile, error) {
	idents, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(idents))
	for _, ident := range idents {
		profiles = append(profiles, ident.Profile())
	}
	return profiles, nil
}

// Rehash replaces the stored password hash without touching other fields.
func (s *Store) Rehash(ctx context.Context, id, passwordHash string) error {
	changed, err := s.repo.Update(ctx, id, Changes{
		PasswordHash: &passwordHash,
		UpdatedAt:    s.now().UTC(),
	})
	if err != nil {
		return err
	}
	if !changed {
		return oops.Code(CodeNotFound).With("id", id).Wrap(ErrNotFound)
	}
	return nil
}

// Bootstrap admin defaults.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminFullName = "System Administrator"
	DefaultAdminPassword = "admin"
)

// BootstrapAdmin describes the initial administrator.
type BootstrapAdmin struct {
	Username string
	FullName string
	Password string
}

func (b BootstrapAdmin) withDefaults() BootstrapAdmin {
	if b.Username == "" {
		b.Username = DefaultAdminUsername
	}
	if b.FullName == "" {
		b.FullName = DefaultAdminFullName
	}
	if b.Password == "" {
		b.Password = DefaultAdminPassword
	}
	return b
}

// EnsureBootstrapAdmin creates the initial admin on an empty store. Once any
// account exists it does nothing, so a demoted or deleted bootstrap admin is
// never recreated. It returns true only when it created the record.
func (s *Store) EnsureBootstrapAdmin(ctx context.Context, admin BootstrapAdmin) (bool, error) {
	admin = admin.withDefaults()

	empty, err := s.repo.IsEmpty(ctx)
	if err != nil {
		return false, oops.Code("IDENTITY_BOOTSTRAP_FAILED").
			With("operation", "check for existing accounts").
			Wrap(err)
	}
	if !empty {
		return false, nil
	}

	_, err = s.Create(ctx, CreateParams{
		FullName: admin.FullName,
		Username: admin.Username,
		Password: admin.Password,
		Role:     RoleAdmin,
	})
	if errors.Is(err, ErrDuplicateUsername) {
		// Another process may have bootstrapped concurrently.
		existing, getErr := s.repo.GetByUsername(ctx, NormalizeUsername(admin.Username))
		if getErr == nil && existing.IsAdmin() {
			return false, nil
		}
		return false, oops.Code("IDENTITY_BOOTSTRAP_FAILED").
			With("username", admin.Username).
			Wrapf(err, "bootstrap username is taken by a non-admin account")
	}
	if err != nil {
		return false, err
	}

	if admin.Password == DefaultAdminPassword {
		s.logger.WarnContext(ctx, "bootstrap admin created with the default password; change it immediately",
			"username", admin.Username)
	}
	return true, nil
}
