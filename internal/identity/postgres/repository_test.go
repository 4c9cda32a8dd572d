// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdesk/hrdesk/internal/identity"
	"github.com/hrdesk/hrdesk/pkg/errutil"
)

var userColumns = []string{
	"id", "full_name", "username", "password_hash", "role", "is_active", "created_at", "updated_at",
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		mock.Close()
	})
	return mock
}

func sampleIdentity() *identity.Identity {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &identity.Identity{
		ID:           "USER-01HZY3Q4V8J6M8Z2K4T5R7W9XA",
		FullName:     "Alice Example",
		Username:     "alice",
		PasswordHash: "$argon2id$hash",
		Role:         identity.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestRepository_Create(t *testing.T) {
	ident := sampleIdentity()

	t.Run("inserts row", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(ident.ID, ident.FullName, ident.Username, ident.PasswordHash,
				"user", true, ident.CreatedAt, ident.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := NewRepository(mock).Create(context.Background(), ident)
		require.NoError(t, err)
	})

	t.Run("unique violation becomes duplicate username", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_username_key"})

		err := NewRepository(mock).Create(context.Background(), ident)
		require.Error(t, err)
		assert.ErrorIs(t, err, identity.ErrDuplicateUsername)
		errutil.AssertErrorCode(t, err, identity.CodeDuplicateUsername)
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("connection refused"))

		err := NewRepository(mock).Create(context.Background(), ident)
		require.Error(t, err)
		assert.NotErrorIs(t, err, identity.ErrDuplicateUsername)
		errutil.AssertErrorCode(t, err, "IDENTITY_CREATE_FAILED")
	})
}

func TestRepository_GetByUsername(t *testing.T) {
	ident := sampleIdentity()

	t.Run("returns identity", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows(userColumns).AddRow(
				ident.ID, ident.FullName, ident.Username, ident.PasswordHash,
				"user", true, ident.CreatedAt, ident.UpdatedAt))

		got, err := NewRepository(mock).GetByUsername(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, ident, got)
	})

	t.Run("missing row is not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE username = \$1`).
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		_, err := NewRepository(mock).GetByUsername(context.Background(), "ghost")
		require.Error(t, err)
		assert.ErrorIs(t, err, identity.ErrNotFound)
		errutil.AssertErrorContext(t, err, "username", "ghost")
	})
}

func TestRepository_GetByID(t *testing.T) {
	t.Run("query failure is wrapped", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
			WithArgs("USER-1").
			WillReturnError(errors.New("timeout"))

		_, err := NewRepository(mock).GetByID(context.Background(), "USER-1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, identity.ErrNotFound)
		errutil.AssertErrorCode(t, err, "IDENTITY_GET_FAILED")
	})
}

func TestRepository_Update(t *testing.T) {
	at := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	fullName := "Alice Updated"
	username := "alice2"
	role := identity.RoleAdmin
	roleStr := "admin"

	t.Run("reports changed row", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE users SET`).
			WithArgs("USER-1", &fullName, &username, &roleStr, (*string)(nil), at).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		changed, err := NewRepository(mock).Update(context.Background(), "USER-1", identity.Changes{
			FullName:  &fullName,
			Username:  &username,
			Role:      &role,
			UpdatedAt: at,
		})
		require.NoError(t, err)
		assert.True(t, changed)
	})

	t.Run("unknown id reports unchanged", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE users SET`).
			WithArgs("USER-404", &fullName, (*string)(nil), (*string)(nil), (*string)(nil), at).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		changed, err := NewRepository(mock).Update(context.Background(), "USER-404", identity.Changes{
			FullName:  &fullName,
			UpdatedAt: at,
		})
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("username collision is duplicate", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE users SET`).
			WithArgs("USER-1", (*string)(nil), &username, (*string)(nil), (*string)(nil), at).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

		changed, err := NewRepository(mock).Update(context.Background(), "USER-1", identity.Changes{
			Username:  &username,
			UpdatedAt: at,
		})
		require.Error(t, err)
		assert.False(t, changed)
		assert.ErrorIs(t, err, identity.ErrDuplicateUsername)
	})
}

func TestRepository_SetActiveAndDelete(t *testing.T) {
	at := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	t.Run("set active", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE users SET is_active`).
			WithArgs("USER-1", false, at).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		changed, err := NewRepository(mock).SetActive(context.Background(), "USER-1", false, at)
		require.NoError(t, err)
		assert.True(t, changed)
	})

	t.Run("delete missing row", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
			WithArgs("USER-404").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		changed, err := NewRepository(mock).Delete(context.Background(), "USER-404")
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("delete error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
			WithArgs("USER-1").
			WillReturnError(errors.New("connection reset"))

		_, err := NewRepository(mock).Delete(context.Background(), "USER-1")
		errutil.AssertErrorCode(t, err, "IDENTITY_DELETE_FAILED")
	})
}

func TestRepository_List(t *testing.T) {
	older := sampleIdentity()
	newer := sampleIdentity()
	newer.ID = "USER-01HZY3Q4V8J6M8Z2K4T5R7W9XB"
	newer.Username = "bob"
	newer.CreatedAt = older.CreatedAt.Add(time.Hour)

	mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM users ORDER BY created_at DESC`).
		WillReturnRows(pgxmock.NewRows(userColumns).
			AddRow(newer.ID, newer.FullName, newer.Username, newer.PasswordHash, "user", true, newer.CreatedAt, newer.UpdatedAt).
			AddRow(older.ID, older.FullName, older.Username, older.PasswordHash, "user", true, older.CreatedAt, older.UpdatedAt))

	got, err := NewRepository(mock).List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "bob", got[0].Username)
	assert.Equal(t, "alice", got[1].Username)
}

func TestRepository_IsEmpty(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT NOT EXISTS`).
		WillReturnRows(pgxmock.NewRows([]string{"empty"}).AddRow(false))

	empty, err := NewRepository(mock).IsEmpty(context.Background())
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestRepository_IsEmptyQueryError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT NOT EXISTS`).WillReturnError(errors.New("connection reset"))

	_, err := NewRepository(mock).IsEmpty(context.Background())
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "IDENTITY_GET_FAILED")
}
