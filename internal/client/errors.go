// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. APIError unwraps to one of these based on the response status.
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrInvalidInput     = errors.New("invalid input")
	ErrServer           = errors.New("server error")
	ErrBusy             = errors.New("another login or session resolution is in progress")
	ErrNotAuthenticated = errors.New("not logged in")
	ErrLoggedOut        = errors.New("logged out while the request was in flight")
)

// APIError is a decoded error envelope from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// Unwrap maps the HTTP status to a sentinel so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusConflict:
		return ErrConflict
	case e.Status == http.StatusBadRequest:
		return ErrInvalidInput
	case e.Status >= http.StatusInternalServerError:
		return ErrServer
	}
	return nil
}
