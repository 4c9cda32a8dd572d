// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package web

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/hrdesk/hrdesk/internal/auth"
	"github.com/hrdesk/hrdesk/internal/identity"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "validation keeps its specific code",
			err:        oops.Code(identity.CodeInvalidUsername).Public("Username is invalid").Wrap(identity.ErrInvalid),
			wantStatus: http.StatusBadRequest,
			wantCode:   identity.CodeInvalidUsername,
			wantMsg:    "Username is invalid",
		},
		{
			name:       "bare sentinel uses class defaults",
			err:        identity.ErrDuplicateUsername,
			wantStatus: http.StatusConflict,
			wantCode:   identity.CodeDuplicateUsername,
			wantMsg:    "Username is already taken",
		},
		{
			name:       "disabled account is forbidden",
			err:        oops.Code(auth.CodeAccountDisabled).Public(auth.MsgAccountDisabled).Wrap(auth.ErrAccountDisabled),
			wantStatus: http.StatusForbidden,
			wantCode:   auth.CodeAccountDisabled,
			wantMsg:    auth.MsgAccountDisabled,
		},
		{
			name:       "inactive account is unauthorized",
			err:        inactive("USER-1"),
			wantStatus: http.StatusUnauthorized,
			wantCode:   auth.CodeAccountInactive,
			wantMsg:    auth.MsgAccountInactive,
		},
		{
			name:       "internal errors hide their text",
			err:        oops.Code("IDENTITY_LIST_FAILED").Errorf("pq: connection refused to 10.0.0.7"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeInternal,
			wantMsg:    msgInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, detail := classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, detail.Code)
			assert.Equal(t, tt.wantMsg, detail.Message)
		})
	}
}

func TestWriteError_LogsInternalErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	writeError(rec, req, logger, errors.New("database exploded"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "exploded")
	assert.Contains(t, buf.String(), "database exploded")
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer   abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		assert.Equal(t, tt.want, bearerToken(req), tt.header)
	}
}
