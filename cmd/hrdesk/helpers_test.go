// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrdesk/hrdesk/internal/auth"
	"github.com/hrdesk/hrdesk/internal/identity"
	"github.com/hrdesk/hrdesk/internal/identity/memory"
	"github.com/hrdesk/hrdesk/internal/web"
)

const (
	testAdminPassword = "admin-pass-1"
	testSecret        = "0123456789abcdef0123456789abcdef"
)

// isolate resets CLI globals and points config and session lookup at
// temporary directories. It returns the session file path.
func isolate(t *testing.T) string {
	t.Helper()
	configFile = ""
	t.Cleanup(func() { configFile = "" })

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	state := t.TempDir()
	t.Setenv("XDG_STATE_HOME", state)
	for _, name := range []string{
		"DATABASE_URL", "HRDESK_DATABASE_URL", "HRDESK_STORE", "HRDESK_SERVER_URL",
		"HRDESK_SESSION_FILE", "HRDESK_TOKEN_SECRET", "HRDESK_ADMIN_PASSWORD",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("HRDESK_LOG_LEVEL", "error")
	return filepath.Join(state, "hrdesk", "session.yaml")
}

// runRoot executes the root command with args and returns combined output.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func fastHasher(t *testing.T) *auth.Argon2idHasher {
	t.Helper()
	hasher, err := auth.NewArgon2idHasherWithParams(auth.Argon2Params{
		Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32,
	})
	require.NoError(t, err)
	return hasher
}

// startAPI serves a real API over an in-memory store and returns its URL.
func startAPI(t *testing.T) (string, *identity.Store) {
	t.Helper()
	hasher := fastHasher(t)
	users, err := identity.NewStore(memory.NewRepository(), hasher)
	require.NoError(t, err)
	_, err = users.EnsureBootstrapAdmin(context.Background(), identity.BootstrapAdmin{Password: testAdminPassword})
	require.NoError(t, err)

	tokens, err := auth.NewTokenManager(auth.TokenConfig{Secret: []byte(testSecret)})
	require.NoError(t, err)
	svc, err := auth.NewService(users, hasher, tokens)
	require.NoError(t, err)
	handler, err := web.NewRouter(web.RouterConfig{Auth: svc, Tokens: tokens, Users: users})
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL, users
}
