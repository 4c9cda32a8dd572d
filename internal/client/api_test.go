// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdesk/hrdesk/internal/client"
	"github.com/hrdesk/hrdesk/internal/identity"
	"github.com/hrdesk/hrdesk/pkg/errutil"
)

func ptr[T any](v T) *T { return &v }

func TestNewAPIClient(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"http", "http://localhost:8080", false},
		{"https with trailing slash", "https://hr.example.com/", false},
		{"relative", "/api", true},
		{"no scheme", "localhost:8080", true},
		{"ftp", "ftp://example.com", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := client.NewAPIClient(tt.baseURL)
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, "CLIENT_CONFIG_INVALID")
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestAPIClientLogin(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	t.Run("success returns token and profile", func(t *testing.T) {
		res, err := srv.api.Login(ctx, "ADMIN", adminPassword)
		require.NoError(t, err)
		assert.Equal(t, "Login successful", res.Message)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, identity.DefaultAdminUsername, res.User.Username)
		assert.Equal(t, identity.RoleAdmin, res.User.Role)
		assert.True(t, srv.clock.Now().Add(srv.tokens.TTL()).Equal(res.ExpiresAt), res.ExpiresAt)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		_, err := srv.api.Login(ctx, identity.DefaultAdminUsername, "nope")
		require.Error(t, err)
		assert.ErrorIs(t, err, client.ErrUnauthorized)

		var apiErr *client.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
		assert.Equal(t, "AUTH_INVALID_CREDENTIALS", apiErr.Code)
		assert.Equal(t, "Invalid username or password", apiErr.Message)
	})

	t.Run("missing fields are invalid input", func(t *testing.T) {
		_, err := srv.api.Login(ctx, "", "")
		assert.ErrorIs(t, err, client.ErrInvalidInput)
	})
}

func TestAPIClientUserLifecycle(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	token := srv.adminToken(t)

	id, err := srv.api.CreateUser(ctx, token, client.CreateUserInput{
		FullName: "Bob Builder",
		Username: "bob",
		Password: "bob-pass-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := srv.api.GetUser(ctx, token, id)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)
	assert.Equal(t, identity.RoleUser, got.Role)
	assert.True(t, got.IsActive)

	_, err = srv.api.CreateUser(ctx, token, client.CreateUserInput{FullName: "Bob Again", Username: "BOB", Password: "x"})
	assert.ErrorIs(t, err, client.ErrConflict)

	changes, err := srv.api.UpdateUser(ctx, token, id, client.UpdateUserInput{FullName: ptr("Robert Builder")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), changes)

	users, err := srv.api.ListUsers(ctx, token)
	require.NoError(t, err)
	require.Len(t, users, 2)

	changes, err = srv.api.SetUserActive(ctx, token, id, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changes)

	_, err = srv.api.Login(ctx, "bob", "bob-pass-1")
	require.Error(t, err)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "AUTH_ACCOUNT_DISABLED", apiErr.Code)

	changes, err = srv.api.DeleteUser(ctx, token, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changes)

	_, err = srv.api.GetUser(ctx, token, id)
	assert.ErrorIs(t, err, client.ErrNotFound)

	_, err = srv.api.DeleteUser(ctx, token, id)
	assert.ErrorIs(t, err, client.ErrNotFound)
}

func TestAPIClientAuthorization(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	admin := srv.adminToken(t)

	_, err := srv.api.CreateUser(ctx, admin, client.CreateUserInput{FullName: "Carol", Username: "carol", Password: "carol-pass"})
	require.NoError(t, err)
	res, err := srv.api.Login(ctx, "carol", "carol-pass")
	require.NoError(t, err)

	me, err := srv.api.Me(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "carol", me.Username)

	_, err = srv.api.ListUsers(ctx, res.Token)
	assert.ErrorIs(t, err, client.ErrForbidden)

	_, err = srv.api.ListUsers(ctx, "")
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	_, err = srv.api.Me(ctx, "garbage")
	assert.ErrorIs(t, err, client.ErrUnauthorized)
}

func TestAPIClientNonEnvelopeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	api, err := client.NewAPIClient(srv.URL, client.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	_, err = api.Me(context.Background(), "token")
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrServer)

	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Empty(t, apiErr.Code)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestAPIErrorUnwrap(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, client.ErrInvalidInput},
		{http.StatusUnauthorized, client.ErrUnauthorized},
		{http.StatusForbidden, client.ErrForbidden},
		{http.StatusNotFound, client.ErrNotFound},
		{http.StatusConflict, client.ErrConflict},
		{http.StatusInternalServerError, client.ErrServer},
		{http.StatusServiceUnavailable, client.ErrServer},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := &client.APIError{Status: tt.status, Message: "x"}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.NoError(t, (&client.APIError{Status: http.StatusTeapot}).Unwrap())
	assert.Equal(t, "api error 401 AUTH_TOKEN_MISSING: Authentication required",
		(&client.APIError{Status: 401, Code: "AUTH_TOKEN_MISSING", Message: "Authentication required"}).Error())
}
