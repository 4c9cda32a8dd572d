// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package client_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdesk/hrdesk/internal/client"
	"github.com/hrdesk/hrdesk/pkg/errutil"
)

func TestRoutePolicyDecide(t *testing.T) {
	policy, err := client.NewRoutePolicy(client.DefaultRoutePolicyConfig())
	require.NoError(t, err)

	tests := []struct {
		name  string
		state client.State
		path  string
		want  client.RouteDecision
	}{
		{"unknown waits on protected", client.StateUnknown, "/dashboard", client.Wait},
		{"unknown waits on public", client.StateUnknown, "/login", client.Wait},
		{"resolving waits", client.StateResolving, "/employees", client.Wait},
		{"anonymous redirected from dashboard", client.StateAnonymous, "/dashboard", client.RedirectLogin},
		{"anonymous redirected from nested route", client.StateAnonymous, "/employees/42/edit", client.RedirectLogin},
		{"anonymous redirected from users", client.StateAnonymous, "/users", client.RedirectLogin},
		{"anonymous may view login", client.StateAnonymous, "/login", client.Allow},
		{"anonymous may view public page", client.StateAnonymous, "/about", client.Allow},
		{"anonymous prefix lookalike is public", client.StateAnonymous, "/dashboards", client.Allow},
		{"authenticated sent home from login", client.StateAuthenticated, "/login", client.RedirectHome},
		{"authenticated allowed on protected", client.StateAuthenticated, "/salary", client.Allow},
		{"authenticated allowed on public", client.StateAuthenticated, "/about", client.Allow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Decide(tt.state, tt.path))
		})
	}
}

func TestRoutePolicyAccessors(t *testing.T) {
	policy, err := client.NewRoutePolicy(client.DefaultRoutePolicyConfig())
	require.NoError(t, err)
	assert.Equal(t, "/login", policy.LoginRoute())
	assert.Equal(t, "/dashboard", policy.HomeRoute())
	assert.True(t, policy.Protected("/settings/branches"))
	assert.False(t, policy.Protected("/"))
}

func TestNewRoutePolicyInvalid(t *testing.T) {
	_, err := client.NewRoutePolicy(client.RoutePolicyConfig{HomeRoute: "/home"})
	errutil.AssertErrorCode(t, err, "CLIENT_ROUTES_INVALID")

	_, err = client.NewRoutePolicy(client.RoutePolicyConfig{
		LoginRoute: "/login",
		HomeRoute:  "/home",
		Protected:  []string{"/broken/[a-"},
	})
	errutil.AssertErrorCode(t, err, "CLIENT_ROUTES_INVALID")
	errutil.AssertErrorContext(t, err, "pattern", "/broken/[a-")
}

func TestRouteDecisionString(t *testing.T) {
	assert.Equal(t, "wait", client.Wait.String())
	assert.Equal(t, "allow", client.Allow.String())
	assert.Equal(t, "redirect-login", client.RedirectLogin.String())
	assert.Equal(t, "redirect-home", client.RedirectHome.String())
	assert.Equal(t, "unknown", client.RouteDecision(99).String())
}
