// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

// Package postgres implements identity.Repository on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/hrdesk/hrdesk/internal/identity"
)

// poolIface is the subset of *pgxpool.Pool the repository uses.
// pgxmock.PgxPoolIface satisfies it in tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectColumns = `id, full_name, username, password_hash, role, is_active, created_at, updated_at`

// Repository implements identity.Repository using PostgreSQL.
type Repository struct {
	pool poolIface
}

// NewRepository creates a new Repository.
func NewRepository(pool poolIface) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new identity. The unique index on username turns a
// concurrent duplicate into ErrDuplicateUsername.
func (r *Repository) Create(ctx context.Context, ident *identity.Identity) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (
			id, full_name, username, password_hash, role,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		ident.ID,
		ident.FullName,
		ident.Username,
		ident.PasswordHash,
		string(ident.Role),
		ident.IsActive,
		ident.CreatedAt,
		ident.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return duplicate(ident.Username)
	}
	if err != nil {
		return oops.Code("IDENTITY_CREATE_FAILED").
			With("operation", "insert user").
			With("username", ident.Username).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an identity by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*identity.Identity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM users WHERE id = $1`, id)

	ident, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(identity.CodeNotFound).
			With("id", id).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_GET_FAILED").
			With("operation", "get user by id").
			With("id", id).
			Wrap(err)
	}
	return ident, nil
}

// GetByUsername retrieves an identity by normalized username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*identity.Identity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM users WHERE username = $1`, username)

	ident, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(identity.CodeNotFound).
			With("username", username).
			Wrap(identity.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("IDENTITY_GET_FAILED").
			With("operation", "get user by username").
			With("username", username).
			Wrap(err)
	}
	return ident, nil
}

// Update applies changes in a single statement. Unset fields keep their
// stored value.
func (r *Repository) Update(ctx context.Context, id string, changes identity.Changes) (bool, error) {
	var role *string
	if changes.Role != nil {
		s := string(*changes.Role)
		role = &s
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET
			full_name     = COALESCE($2, full_name),
			username      = COALESCE($3, username),
			role          = COALESCE($4, role),
			password_hash = COALESCE($5, password_hash),
			updated_at    = $6
		WHERE id = $1
	`,
		id,
		changes.FullName,
		changes.Username,
		role,
		changes.PasswordHash,
		changes.UpdatedAt,
	)
	if isUniqueViolation(err) {
		var username string
		if changes.Username != nil {
			username = *changes.Username
		}
		return false, duplicate(username)
	}
	if err != nil {
		return false, oops.Code("IDENTITY_UPDATE_FAILED").
			With("operation", "update user").
			With("id", id).
			Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetActive sets the active flag.
func (r *Repository) SetActive(ctx context.Context, id string, active bool, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_active = $2, updated_at = $3 WHERE id = $1`,
		id, active, at)
	if err != nil {
		return false, oops.Code("IDENTITY_UPDATE_FAILED").
			With("operation", "set user active").
			With("id", id).
			Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

// Delete removes an identity.
func (r *Repository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, oops.Code("IDENTITY_DELETE_FAILED").
			With("operation", "delete user").
			With("id", id).
			Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

// List returns all identities, newest created first.
func (r *Repository) List(ctx context.Context) ([]*identity.Identity, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, oops.Code("IDENTITY_LIST_FAILED").
			With("operation", "list users").
			Wrap(err)
	}
	defer rows.Close()

	var idents []*identity.Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, oops.Code("IDENTITY_LIST_FAILED").
				With("operation", "scan user row").
				Wrap(err)
		}
		idents = append(idents, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("IDENTITY_LIST_FAILED").
			With("operation", "iterate users").
			Wrap(err)
	}
	return idents, nil
}

// IsEmpty reports whether the users table has no rows.
func (r *Repository) IsEmpty(ctx context.Context) (bool, error) {
	var empty bool
	err := r.pool.QueryRow(ctx, `SELECT NOT EXISTS(SELECT 1 FROM users)`).Scan(&empty)
	if err != nil {
		return false, oops.Code("IDENTITY_GET_FAILED").
			With("operation", "check users empty").
			Wrap(err)
	}
	return empty, nil
}

func scanIdentity(row pgx.Row) (*identity.Identity, error) {
	var (
		ident identity.Identity
		role  string
	)
	err := row.Scan(
		&ident.ID,
		&ident.FullName,
		&ident.Username,
		&ident.PasswordHash,
		&role,
		&ident.IsActive,
		&ident.CreatedAt,
		&ident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ident.Role = identity.Role(role)
	return &ident, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func duplicate(username string) error {
	return oops.Code(identity.CodeDuplicateUsername).
		With("username", username).
		Public("username already exists").
		Wrap(identity.ErrDuplicateUsername)
}

var _ identity.Repository = (*Repository)(nil)
