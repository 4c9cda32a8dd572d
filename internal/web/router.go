// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/hrdesk/hrdesk/internal/identity"
)

// RouterConfig holds the collaborators of the API router.
type RouterConfig struct {
	Auth   Authenticator
	Tokens TokenValidator
	Users  UserStore
	Logger *slog.Logger
}

type handlers struct {
	auth   Authenticator
	users  UserStore
	logger *slog.Logger
}

// NewRouter builds the JSON API.
//
// Routes:
//
//	POST   /api/auth/login          public
//	GET    /api/auth/me             authenticated
//	GET    /api/users               admin
//	POST   /api/users               admin
//	GET    /api/users/{id}          admin
//	PUT    /api/users/{id}          admin
//	PATCH  /api/users/{id}/status   admin
//	DELETE /api/users/{id}          admin
//
// Admin routes run Authenticate, RequireRole(admin) and RequireActive in that order.
func NewRouter(cfg RouterConfig) (http.Handler, error) {
	if cfg.Auth == nil || cfg.Tokens == nil || cfg.Users == nil {
		return nil, oops.Code("WEB_CONFIG_INVALID").Errorf("router requires auth, tokens and users")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &handlers{auth: cfg.Auth, users: cfg.Users, logger: logger}
	gate := NewGate(cfg.Tokens, cfg.Users, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogging(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.AllowContentType("application/json"))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorBody{Error: ErrorDetail{Code: CodeRouteNotFound, Message: "Not found"}})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorBody{Error: ErrorDetail{Code: CodeMethodInvalid, Message: "Method not allowed"}})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.login)
		r.With(gate.Authenticate).Get("/auth/me", h.me)

		r.Route("/users", func(r chi.Router) {
			r.Use(gate.Authenticate)
			r.Use(gate.RequireRole(identity.RoleAdmin))
			r.Use(gate.RequireActive)

			r.Get("/", h.listUsers)
			r.Post("/", h.createUser)
			r.Get("/{id}", h.getUser)
			r.Put("/{id}", h.updateUser)
			r.Patch("/{id}/status", h.setUserStatus)
			r.Delete("/{id}", h.deleteUser)
		})
	})

	return r, nil
}
