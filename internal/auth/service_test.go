// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/hrdesk/hrdesk/internal/auth"
	"github.com/hrdesk/hrdesk/internal/identity"
	"github.com/hrdesk/hrdesk/internal/identity/memory"
	"github.com/hrdesk/hrdesk/pkg/errutil"
)

type loginFixture struct {
	repo    *memory.Repository
	store   *identity.Store
	hasher  *auth.Argon2idHasher
	tokens  *auth.TokenManager
	service *auth.Service
	logs    *bytes.Buffer
}

func fastHasher(t *testing.T) *auth.Argon2idHasher {
	t.Helper()
	h, err := auth.NewArgon2idHasherWithParams(auth.Argon2Params{
		Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32,
	})
	require.NoError(t, err)
	return h
}

func newLoginFixture(t *testing.T, wrap func(auth.CredentialStore) auth.CredentialStore) *loginFixture {
	t.Helper()
	f := &loginFixture{
		repo:   memory.NewRepository(),
		hasher: fastHasher(t),
		logs:   &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(f.logs, nil))

	var err error
	f.store, err = identity.NewStore(f.repo, f.hasher, identity.WithLogger(logger))
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	f.tokens = newTokenManager(t, clock)

	var creds auth.CredentialStore = f.store
	if wrap != nil {
		creds = wrap(creds)
	}
	f.service, err = auth.NewService(creds, f.hasher, f.tokens, auth.WithLogger(logger))
	require.NoError(t, err)
	return f
}

func (f *loginFixture) createUser(t *testing.T, fullName, username, password string, role identity.Role) *identity.Profile {
	t.Helper()
	p, err := f.store.Create(context.Background(), identity.CreateParams{
		FullName: fullName, Username: username, Password: password, Role: role,
	})
	require.NoError(t, err)
	return p
}

func TestNewService_RequiresDependencies(t *testing.T) {
	hasher := fastHasher(t)
	tokens := newTokenManager(t, &fakeClock{now: time.Now()})
	store, err := identity.NewStore(memory.NewRepository(), hasher)
	require.NoError(t, err)

	_, err = auth.NewService(nil, hasher, tokens)
	errutil.AssertErrorCode(t, err, "AUTH_SERVICE_INVALID")
	_, err = auth.NewService(store, nil, tokens)
	errutil.AssertErrorCode(t, err, "AUTH_SERVICE_INVALID")
	_, err = auth.NewService(store, hasher, nil)
	errutil.AssertErrorCode(t, err, "AUTH_SERVICE_INVALID")
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	f := newLoginFixture(t, nil)
	created := f.createUser(t, "Alice Example", "alice", "secret123", identity.RoleUser)

	t.Run("correct credentials issue a token", func(t *testing.T) {
		result, err := f.service.Login(ctx, "alice", "secret123")
		require.NoError(t, err)
		assert.Equal(t, *created, result.User)

		claims, err := f.tokens.Validate(result.Token)
		require.NoError(t, err)
		assert.Equal(t, created.ID, claims.IdentityID())
		assert.Equal(t, "Alice Example", claims.FullName)
		assert.Equal(t, identity.RoleUser, claims.Role)
		assert.Equal(t, claims.ExpiresAt.Time.UTC(), result.ExpiresAt)
	})

	t.Run("username is case-insensitive", func(t *testing.T) {
		_, err := f.service.Login(ctx, "  ALICE ", "secret123")
		require.NoError(t, err)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.service.Login(ctx, "alice", "wrong")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		errutil.AssertErrorCode(t, err, auth.CodeInvalidCredentials)
	})

	t.Run("unknown user looks exactly like a wrong password", func(t *testing.T) {
		_, unknownErr := f.service.Login(ctx, "mallory", "secret123")
		_, wrongErr := f.service.Login(ctx, "alice", "nope")
		require.Error(t, unknownErr)
		assert.ErrorIs(t, unknownErr, auth.ErrInvalidCredentials)
		assert.Equal(t,
			oops.GetPublic(wrongErr, "x"),
			oops.GetPublic(unknownErr, "y"))
		assert.Equal(t, auth.MsgInvalidCredentials, oops.GetPublic(unknownErr, ""))
	})

	t.Run("missing fields", func(t *testing.T) {
		for _, tc := range []struct{ username, password string }{
			{"", "secret123"},
			{"   ", "secret123"},
			{"alice", ""},
			{"", ""},
		} {
			_, err := f.service.Login(ctx, tc.username, tc.password)
			require.Error(t, err)
			assert.ErrorIs(t, err, auth.ErrMissingCredentials)
			errutil.AssertErrorCode(t, err, auth.CodeMissingCredentials)
		}
	})

	t.Run("the raw password never reaches the logs", func(t *testing.T) {
		assert.NotContains(t, f.logs.String(), "secret123")
	})
}

func TestService_LoginDisabledAccount(t *testing.T) {
	ctx := context.Background()
	f := newLoginFixture(t, nil)
	bob := f.createUser(t, "Bob", "bob", "secret123", identity.RoleUser)

	changed, err := f.store.SetActive(ctx, bob.ID, false)
	require.NoError(t, err)
	require.True(t, changed)

	_, err = f.service.Login(ctx, "bob", "secret123")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrAccountDisabled)
	errutil.AssertErrorCode(t, err, auth.CodeAccountDisabled)
	assert.Equal(t, auth.MsgAccountDisabled, oops.GetPublic(err, ""))

	changed, err = f.store.SetActive(ctx, bob.ID, true)
	require.NoError(t, err)
	require.True(t, changed)

	_, err = f.service.Login(ctx, "bob", "secret123")
	assert.NoError(t, err)
}

func TestService_LoginAdminToken(t *testing.T) {
	f := newLoginFixture(t, nil)
	created, err := f.store.EnsureBootstrapAdmin(context.Background(), identity.BootstrapAdmin{})
	require.NoError(t, err)
	require.True(t, created)

	result, err := f.service.Login(context.Background(), "admin", identity.DefaultAdminPassword)
	require.NoError(t, err)
	assert.Equal(t, identity.RoleAdmin, result.User.Role)
	assert.Equal(t, identity.DefaultAdminFullName, result.User.FullName)

	claims, err := f.tokens.Validate(result.Token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin())
}

func seedLegacyUser(t *testing.T, f *loginFixture, username, password string) *identity.Identity {
	t.Helper()
	legacy, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	ident, err := identity.NewIdentity("Legacy "+username, username, string(legacy), identity.RoleUser, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.repo.Create(context.Background(), ident))
	return ident
}

func TestService_LoginUpgradesLegacyHash(t *testing.T) {
	ctx := context.Background()
	f := newLoginFixture(t, nil)
	legacy := seedLegacyUser(t, f, "carol", "hunter22")

	_, err := f.service.Login(ctx, "carol", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	stored, err := f.repo.GetByID(ctx, legacy.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2a$"), "failed login must not rehash")

	_, err = f.service.Login(ctx, "carol", "hunter22")
	require.NoError(t, err)

	stored, err = f.repo.GetByID(ctx, legacy.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"))

	_, err = f.service.Login(ctx, "carol", "hunter22")
	assert.NoError(t, err, "upgraded hash still verifies")
}

type failingRehashStore struct {
	auth.CredentialStore
}

func (failingRehashStore) Rehash(context.Context, string, string) error {
	return errors.New("disk full")
}

func TestService_LoginRehashFailureIsBestEffort(t *testing.T) {
	f := newLoginFixture(t, func(s auth.CredentialStore) auth.CredentialStore {
		return failingRehashStore{CredentialStore: s}
	})
	seedLegacyUser(t, f, "dave", "hunter22")

	result, err := f.service.Login(context.Background(), "dave", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	logs := f.logs.String()
	assert.Contains(t, logs, "best-effort")
	assert.Contains(t, logs, "operation=rehash")
	assert.Contains(t, logs, "disk full")
}

type brokenLookupStore struct {
	auth.CredentialStore
}

func (brokenLookupStore) FindByUsername(context.Context, string) (*identity.Identity, error) {
	return nil, oops.Code("IDENTITY_GET_FAILED").Errorf("connection reset")
}

func TestService_LoginStoreFailure(t *testing.T) {
	f := newLoginFixture(t, func(s auth.CredentialStore) auth.CredentialStore {
		return brokenLookupStore{CredentialStore: s}
	})

	_, err := f.service.Login(context.Background(), "alice", "secret123")
	require.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
	errutil.AssertErrorContext(t, err, "operation", "lookup")
}

func TestService_LoginCorruptHash(t *testing.T) {
	ctx := context.Background()
	f := newLoginFixture(t, nil)
	ident, err := identity.NewIdentity("Eve", "eve", "$argon2id$garbage", identity.RoleUser, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.repo.Create(ctx, ident))

	_, err = f.service.Login(ctx, "eve", "whatever")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.Contains(t, f.logs.String(), "stored password hash could not be verified")
}
