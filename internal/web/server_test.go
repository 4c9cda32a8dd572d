// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package web_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdesk/hrdesk/internal/web"
)

func TestServer_StartStop(t *testing.T) {
	env := newTestEnv(t)
	srv := web.NewServer("127.0.0.1:0", env.handler, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Empty(t, srv.Addr())

	errCh, err := srv.Start()
	require.NoError(t, err)
	require.NotEmpty(t, srv.Addr())

	_, err = srv.Start()
	assert.Error(t, err, "second start must fail")

	transport := &http.Transport{}
	client := &http.Client{Transport: transport, Timeout: 5 * time.Second}
	defer transport.CloseIdleConnections()

	resp, err := client.Get("http://" + srv.Addr() + "/api/users")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, srv.Stop(ctx), "stop is idempotent")

	_, open := <-errCh
	assert.False(t, open, "error channel closes on graceful stop")
}

func TestServer_ListenFailure(t *testing.T) {
	srv := web.NewServer("256.0.0.1:99999", http.NotFoundHandler(), nil)
	_, err := srv.Start()
	assert.Error(t, err)

	// A failed start leaves the server startable.
	assert.NoError(t, srv.Stop(context.Background()))
}
