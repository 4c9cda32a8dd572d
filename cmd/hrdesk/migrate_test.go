// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdesk/hrdesk/internal/store"
	"github.com/hrdesk/hrdesk/pkg/errutil"
)

type fakeMigrator struct {
	calls   []string
	steps   int
	forced  int
	version uint
	dirty   bool
	status  store.Status
	err     error
	closed  bool
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.err
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	return f.err
}

func (f *fakeMigrator) Steps(n int) error {
	f.calls = append(f.calls, "steps")
	f.steps = n
	return f.err
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	return f.version, f.dirty, f.err
}

func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.forced = v
	return f.err
}

func (f *fakeMigrator) Status() (store.Status, error) {
	return f.status, f.err
}

func (f *fakeMigrator) Close() error {
	f.closed = true
	return nil
}

func runMigrate(t *testing.T, m *fakeMigrator, args ...string) (string, string, error) {
	t.Helper()
	var gotURL string
	cmd := newMigrateCmd(&MigrateDeps{MigratorFactory: func(url string) (Migrator, error) {
		gotURL = url
		return m, nil
	}})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), gotURL, err
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantVersion int
		wantErr     bool
	}{
		{name: "valid integer", input: "3", wantVersion: 3},
		{name: "zero is valid", input: "0", wantVersion: 0},
		{name: "non-numeric returns error", input: "abc", wantErr: true},
		{name: "trailing chars are ignored", input: "3abc", wantVersion: 3},
		{name: "negative is valid", input: "-1", wantVersion: -1},
		{name: "empty string returns error", input: "", wantErr: true},
		{name: "whitespace only returns error", input: "   ", wantErr: true},
		{name: "leading whitespace is handled", input: "  42", wantVersion: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, err := parseForceVersion(tt.input)

			if tt.wantErr {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				assert.Equal(t, 0, version)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVersion, version)
		})
	}
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	isolate(t)
	m := &fakeMigrator{}

	_, _, err := runMigrate(t, m, "up")

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	assert.Empty(t, m.calls)
}

func TestMigrate_Up(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/hrdesk")
	m := &fakeMigrator{}

	out, url, err := runMigrate(t, m)

	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost:5432/hrdesk", url)
	assert.Equal(t, []string{"up"}, m.calls)
	assert.True(t, m.closed)
	assert.Contains(t, out, "Migrations completed successfully")
}

func TestMigrate_UpFailureIsWrapped(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/hrdesk")
	m := &fakeMigrator{err: errors.New("boom")}

	_, _, err := runMigrate(t, m, "up")

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MIGRATION_FAILED")
	assert.True(t, m.closed)
}

func TestMigrate_HRDeskDatabaseURLWins(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "postgres://generic/db")
	t.Setenv("HRDESK_DATABASE_URL", "postgres://specific/db")

	_, url, err := runMigrate(t, &fakeMigrator{}, "up")

	require.NoError(t, err)
	assert.Equal(t, "postgres://specific/db", url)
}

func TestMigrate_DownRequiresConfirmation(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/hrdesk")
	m := &fakeMigrator{}

	_, _, err := runMigrate(t, m, "down")

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIRMATION_REQUIRED")
	assert.Empty(t, m.calls)
}

func TestMigrate_Down(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantCalls []string
		wantSteps int
	}{
		{name: "all", args: []string{"down", "--yes"}, wantCalls: []string{"down"}},
		{name: "steps", args: []string{"down", "--yes", "--steps", "2"}, wantCalls: []string{"steps"}, wantSteps: -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv("DATABASE_URL", "postgres://localhost:5432/hrdesk")
			m := &fakeMigrator{}

			out, _, err := runMigrate(t, m, tt.args...)

			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, m.calls)
			assert.Equal(t, tt.wantSteps, m.steps)
			assert.Contains(t, out, "Rollback completed")
		})
	}
}

func TestMigrate_Status(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/hrdesk")
	m := &fakeMigrator{status: store.Status{Current: 1, Applied: []uint{1}, Pending: []uint{2}}}

	out, _, err := runMigrate(t, m, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 1")
	assert.Contains(t, out, "applied")
	assert.Contains(t, out, "pending")
	assert.NotContains(t, out, "up to date")
}

func TestMigrate_StatusUpToDate(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/hrdesk")
	m := &fakeMigrator{status: store.Status{Current: 1, Applied: []uint{1}}}

	out, _, err := runMigrate(t, m, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "Schema is up to date")
}

func TestMigrate_Version(t *testing.T) {
	tests := []struct {
		name  string
		dirty bool
		want  string
	}{
		{name: "clean", want: "3\n"},
		{name: "dirty", dirty: true, want: "3 (dirty)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv("DATABASE_URL", "postgres://localhost:5432/hrdesk")

			out, _, err := runMigrate(t, &fakeMigrator{version: 3, dirty: tt.dirty}, "version")

			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestMigrate_Force(t *testing.T) {
	isolate(t)
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/hrdesk")
	m := &fakeMigrator{}

	out, _, err := runMigrate(t, m, "force", "1")

	require.NoError(t, err)
	assert.Equal(t, 1, m.forced)
	assert.Contains(t, out, "Forced schema version to 1")
}

func TestMigrationLabel_FallsBackToNumber(t *testing.T) {
	assert.Equal(t, "000999", migrationLabel(999))
}
