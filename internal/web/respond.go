// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/hrdesk/hrdesk/internal/auth"
	"github.com/hrdesk/hrdesk/internal/identity"
	"github.com/hrdesk/hrdesk/pkg/errutil"
)

// Error codes produced by the HTTP layer itself.
const (
	CodeRequestInvalid = "REQUEST_INVALID"
	CodeInternal       = "INTERNAL_ERROR"
	CodeRouteNotFound  = "ROUTE_NOT_FOUND"
	CodeMethodInvalid  = "METHOD_NOT_ALLOWED"
	CodeSelfChange     = "USER_SELF_CHANGE"
)

const msgInternal = "Internal server error"

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error   ErrorDetail `json:"error"`
	Changes *int64      `json:"changes,omitempty"`
}

// ErrorDetail carries a stable code and a client-safe message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MessageBody is returned by mutating endpoints.
type MessageBody struct {
	Message string `json:"message"`
	Changes int64  `json:"changes"`
}

// CreatedBody is returned by POST /api/users.
type CreatedBody struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// errorClass maps a sentinel to its HTTP status and fallback code/message.
type errorClass struct {
	sentinel error
	status   int
	code     string
	message  string
}

var errorClasses = []errorClass{
	{identity.ErrInvalid, http.StatusBadRequest, "VALIDATION_FAILED", "Invalid request"},
	{auth.ErrMissingCredentials, http.StatusBadRequest, auth.CodeMissingCredentials, auth.MsgMissingCredentials},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, auth.CodeInvalidCredentials, auth.MsgInvalidCredentials},
	{auth.ErrTokenMissing, http.StatusUnauthorized, auth.CodeTokenMissing, auth.MsgTokenMissing},
	{auth.ErrTokenInvalid, http.StatusUnauthorized, auth.CodeTokenInvalid, auth.MsgTokenInvalid},
	{auth.ErrTokenExpired, http.StatusUnauthorized, auth.CodeTokenExpired, auth.MsgTokenExpired},
	{auth.ErrAccountInactive, http.StatusUnauthorized, auth.CodeAccountInactive, auth.MsgAccountInactive},
	{auth.ErrAccountDisabled, http.StatusForbidden, auth.CodeAccountDisabled, auth.MsgAccountDisabled},
	{auth.ErrForbidden, http.StatusForbidden, auth.CodeForbidden, auth.MsgForbidden},
	{identity.ErrDuplicateUsername, http.StatusConflict, identity.CodeDuplicateUsername, "Username is already taken"},
	{identity.ErrNotFound, http.StatusNotFound, identity.CodeNotFound, "User not found"},
	{errBadRequest, http.StatusBadRequest, CodeRequestInvalid, "Malformed request body"},
}

var errBadRequest = errors.New("bad request")

// classify returns the status, code and public message for err.
// Unclassified errors are internal and never expose their text.
func classify(err error) (int, ErrorDetail) {
	for _, c := range errorClasses {
		if !errors.Is(err, c.sentinel) {
			continue
		}
		code := errutil.Code(err)
		if code == "" {
			code = c.code
		}
		return c.status, ErrorDetail{Code: code, Message: oops.GetPublic(err, c.message)}
	}
	return http.StatusInternalServerError, ErrorDetail{Code: CodeInternal, Message: msgInternal}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect mid-write
	json.NewEncoder(w).Encode(body)
}

// writeError writes the error envelope for err. Internal errors are logged
// with full detail; client errors are logged at debug.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, detail := classify(err)
	if status >= http.StatusInternalServerError {
		errutil.LogError(r.Context(), logger, "request failed", err)
	} else {
		logger.DebugContext(r.Context(), "request rejected",
			"status", status,
			"code", detail.Code,
			"path", r.URL.Path,
		)
	}
	if errors.Is(err, auth.ErrTokenExpired) {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="token expired"`)
	} else if status == http.StatusUnauthorized && !errors.Is(err, auth.ErrInvalidCredentials) {
		w.Header().Set("WWW-Authenticate", `Bearer`)
	}
	writeJSON(w, status, ErrorBody{Error: detail})
}

// writeNotChanged writes the 404 envelope for a mutation that matched no row.
func writeNotChanged(w http.ResponseWriter, id string) {
	zero := int64(0)
	err := oops.Code(identity.CodeNotFound).With("id", id).Wrap(identity.ErrNotFound)
	_, detail := classify(err)
	writeJSON(w, http.StatusNotFound, ErrorBody{Error: detail, Changes: &zero})
}

func badRequest(err error, msg string) error {
	return oops.Code(CodeRequestInvalid).Public(msg).Wrapf(errBadRequest, "%v", err)
}

// decodeJSON decodes a single JSON value from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return badRequest(err, "Malformed request body")
	}
	if dec.More() {
		return badRequest(errors.New("trailing data"), "Malformed request body")
	}
	return nil
}

const maxBodyBytes = 64 << 10
