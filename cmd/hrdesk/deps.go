// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package main

import (
	"context"
	"io"
	"net/http"

	"github.com/hrdesk/hrdesk/internal/client"
	"github.com/hrdesk/hrdesk/internal/config"
	"github.com/hrdesk/hrdesk/internal/identity"
	"github.com/hrdesk/hrdesk/internal/observability"
	"github.com/hrdesk/hrdesk/internal/store"
)

// Backend is an opened credential repository.
type Backend struct {
	Repo identity.Repository
	// Ping reports whether the backing database is reachable.
	Ping func(ctx context.Context) error
	// Close releases the backend.
	Close func()
}

// ServeDeps contains injectable dependencies for the serve and
// bootstrap-admin commands. All fields with nil values will use their
// default implementations.
type ServeDeps struct {
	// BackendFactory opens the configured repository.
	// Default: openBackend
	BackendFactory func(ctx context.Context, cfg *config.Config) (*Backend, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, registrars ...observability.Registrar) ObservabilityServer

	// Ready, if set, receives the API address once the server is serving.
	Ready chan<- string
}

// MigrateDeps contains injectable dependencies for the migrate command.
type MigrateDeps struct {
	// MigratorFactory creates a migrator for a database URL.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)
}

// ClientDeps contains injectable dependencies for the client commands.
type ClientDeps struct {
	// HTTPClient is used for API calls. Default: the client package default.
	HTTPClient *http.Client

	// TokenStoreFactory opens the session token store.
	// Default: client.NewFileTokenStore
	TokenStoreFactory func(path string) (client.TokenStore, error)

	// PasswordReader supplies a password when none was given as a flag.
	// Default: the command's stdin
	PasswordReader io.Reader
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// Migrator interface wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}
