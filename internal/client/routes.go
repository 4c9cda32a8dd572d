// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package client

import (
	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// RouteDecision is what a front end should do when asked to show a path.
type RouteDecision int

// Route decisions.
const (
	// Wait means the session is still being resolved; show a loading state.
	Wait RouteDecision = iota
	Allow
	RedirectLogin
	RedirectHome
)

func (d RouteDecision) String() string {
	switch d {
	case Wait:
		return "wait"
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	default:
		return "unknown"
	}
}

// RoutePolicyConfig lists the routes a RoutePolicy guards.
// Patterns are globs with '/' as the separator: "*" matches one segment,
// "**" matches any number.
type RoutePolicyConfig struct {
	LoginRoute string
	HomeRoute  string
	Protected  []string
}

// DefaultRoutePolicyConfig returns the HRDesk front-end route layout.
func DefaultRoutePolicyConfig() RoutePolicyConfig {
	return RoutePolicyConfig{
		LoginRoute: "/login",
		HomeRoute:  "/dashboard",
		Protected: []string{
			"/dashboard",
			"/employees",
			"/employees/**",
			"/tasks",
			"/requests",
			"/sales",
			"/salary",
			"/settings",
			"/settings/**",
			"/branches",
			"/users",
			"/users/**",
		},
	}
}

// RoutePolicy decides navigation based on session state.
type RoutePolicy struct {
	loginRoute string
	homeRoute  string
	protected  []glob.Glob
}

// NewRoutePolicy compiles the protected route patterns.
func NewRoutePolicy(cfg RoutePolicyConfig) (*RoutePolicy, error) {
	if cfg.LoginRoute == "" || cfg.HomeRoute == "" {
		return nil, oops.Code("CLIENT_ROUTES_INVALID").Errorf("login and home routes are required")
	}
	p := &RoutePolicy{loginRoute: cfg.LoginRoute, homeRoute: cfg.HomeRoute}
	for _, pattern := range cfg.Protected {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, oops.Code("CLIENT_ROUTES_INVALID").With("pattern", pattern).Wrap(err)
		}
		p.protected = append(p.protected, g)
	}
	return p, nil
}

// HomeRoute returns the route authenticated users land on.
func (p *RoutePolicy) HomeRoute() string { return p.homeRoute }

// LoginRoute returns the login route.
func (p *RoutePolicy) LoginRoute() string { return p.loginRoute }

// Protected reports whether path requires a session.
func (p *RoutePolicy) Protected(path string) bool {
	for _, g := range p.protected {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// Decide maps a session state and requested path to a navigation decision.
// Nothing is rendered until the initial resolution finishes.
func (p *RoutePolicy) Decide(state State, path string) RouteDecision {
	switch state {
	case StateAuthenticated:
		if path == p.loginRoute {
			return RedirectHome
		}
		return Allow
	case StateAnonymous:
		if p.Protected(path) {
			return RedirectLogin
		}
		return Allow
	default:
		return Wait
	}
}
