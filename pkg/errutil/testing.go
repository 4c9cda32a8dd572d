// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package errutil

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode asserts that err carries the given oops code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	_, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T: %v", err, err)
	assert.Equal(t, code, Code(err), "error: %v", err)
}

// AssertCoded asserts both the sentinel and the code, which is how the
// credential and session errors are classified.
func AssertCoded(t *testing.T, err error, sentinel error, code string) {
	t.Helper()
	AssertErrorCode(t, err, code)
	assert.True(t, errors.Is(err, sentinel), "expected %v in chain of %v", sentinel, err)
}

// AssertErrorContext asserts that err is an oops error with the given context key/value.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	ctx := oopsErr.Context()
	require.Contains(t, ctx, key)
	assert.Equal(t, value, ctx[key])
}

// AssertPublicMessage asserts the client-facing message attached with oops.Public.
func AssertPublicMessage(t *testing.T, err error, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, msg, oops.GetPublic(err, ""))
}
