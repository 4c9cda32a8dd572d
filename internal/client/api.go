// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/hrdesk/hrdesk/internal/identity"
)

const defaultHTTPTimeout = 15 * time.Second

// LoginResult is the decoded POST /api/auth/login response.
type LoginResult struct {
	Message   string           `json:"message"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
	User      identity.Profile `json:"user"`
}

// CreateUserInput is the body of POST /api/users.
type CreateUserInput struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// UpdateUserInput is the body of PUT /api/users/{id}. Nil fields are not sent.
type UpdateUserInput struct {
	FullName *string `json:"fullName,omitempty"`
	Username *string `json:"username,omitempty"`
	Role     *string `json:"role,omitempty"`
	Password *string `json:"password,omitempty"`
}

type mutationResult struct {
	Message string `json:"message"`
	Changes int64  `json:"changes"`
	ID      string `json:"id"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIOption configures an APIClient.
type APIOption func(*APIClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) APIOption {
	return func(a *APIClient) {
		if c != nil {
			a.http = c
		}
	}
}

// APIClient calls the HRDesk JSON API.
type APIClient struct {
	base *url.URL
	http *http.Client
}

// NewAPIClient creates a client for the server at baseURL (for example
// "http://localhost:8080").
func NewAPIClient(baseURL string, opts ...APIOption) (*APIClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, oops.Code("CLIENT_CONFIG_INVALID").With("base_url", baseURL).Wrap(err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, oops.Code("CLIENT_CONFIG_INVALID").
			With("base_url", baseURL).
			Errorf("server URL must be absolute http(s)")
	}
	a := &APIClient{base: u, http: &http.Client{Timeout: defaultHTTPTimeout}}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Login exchanges credentials for a session token.
func (a *APIClient) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"username": username, "password": password}
	if err := a.do(ctx, http.MethodPost, "/api/auth/login", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the profile of the token's owner.
func (a *APIClient) Me(ctx context.Context, token string) (*identity.Profile, error) {
	var out identity.Profile
	if err := a.do(ctx, http.MethodGet, "/api/auth/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsers returns every user, newest first.
func (a *APIClient) ListUsers(ctx context.Context, token string) ([]identity.Profile, error) {
	var out []identity.Profile
	if err := a.do(ctx, http.MethodGet, "/api/users", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUser returns one user.
func (a *APIClient) GetUser(ctx context.Context, token, id string) (*identity.Profile, error) {
	var out identity.Profile
	if err := a.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(id), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUser creates a user and returns its id.
func (a *APIClient) CreateUser(ctx context.Context, token string, in CreateUserInput) (string, error) {
	var out mutationResult
	if err := a.do(ctx, http.MethodPost, "/api/users", token, in, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// UpdateUser applies a partial update and returns the number of changed records.
func (a *APIClient) UpdateUser(ctx context.Context, token, id string, in UpdateUserInput) (int64, error) {
	var out mutationResult
	if err := a.do(ctx, http.MethodPut, "/api/users/"+url.PathEscape(id), token, in, &out); err != nil {
		return 0, err
	}
	return out.Changes, nil
}

// SetUserActive activates or deactivates a user.
func (a *APIClient) SetUserActive(ctx context.Context, token, id string, active bool) (int64, error) {
	var out mutationResult
	body := map[string]bool{"isActive": active}
	if err := a.do(ctx, http.MethodPatch, "/api/users/"+url.PathEscape(id)+"/status", token, body, &out); err != nil {
		return 0, err
	}
	return out.Changes, nil
}

// DeleteUser removes a user.
func (a *APIClient) DeleteUser(ctx context.Context, token, id string) (int64, error) {
	var out mutationResult
	if err := a.do(ctx, http.MethodDelete, "/api/users/"+url.PathEscape(id), token, nil, &out); err != nil {
		return 0, err
	}
	return out.Changes, nil
}

func (a *APIClient) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return oops.Code("CLIENT_ENCODE_FAILED").With("path", path).Wrap(err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.base.String()+path, body)
	if err != nil {
		return oops.Code("CLIENT_REQUEST_FAILED").With("path", path).Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return oops.Code("CLIENT_REQUEST_FAILED").With("method", method).With("path", path).Wrap(err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return oops.Code("CLIENT_DECODE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var env errorEnvelope
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &env) == nil && env.Error.Code != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	}
	return apiErr
}
