// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/hrdesk/hrdesk/internal/auth"
	"github.com/hrdesk/hrdesk/internal/config"
	"github.com/hrdesk/hrdesk/internal/identity"
	"github.com/hrdesk/hrdesk/internal/identity/memory"
	"github.com/hrdesk/hrdesk/internal/identity/postgres"
	"github.com/hrdesk/hrdesk/internal/observability"
	"github.com/hrdesk/hrdesk/internal/store"
	"github.com/hrdesk/hrdesk/internal/web"
)

const (
	shutdownTimeout  = 10 * time.Second
	readinessTimeout = 2 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HRDesk API server",
		Long: `Start the HTTP API server. The token signing secret comes from
HRDESK_TOKEN_SECRET and the database from DATABASE_URL.

On first start against an empty store the bootstrap administrator is created.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServeWithDeps(ctx, cfg, cmd, nil)
		},
	}

	d := config.Default()
	cmd.Flags().String("addr", d.Server.Addr, "HTTP API listen address")
	cmd.Flags().String("metrics-addr", d.Server.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("store", d.Database.Driver, "credential storage (postgres or memory)")
	cmd.Flags().Bool("auto-migrate", false, "apply pending migrations before serving")
	cmd.Flags().Duration("token-ttl", d.Auth.TokenTTL, "session token lifetime")

	return cmd
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := &ServeDeps{}
	if d != nil {
		*out = *d
	}
	if out.BackendFactory == nil {
		out.BackendFactory = openBackend
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, registrars ...observability.Registrar) ObservabilityServer {
			return observability.NewServer(addr, ready, registrars...)
		}
	}
	return out
}

// runServeWithDeps starts the API server with injectable dependencies and
// blocks until ctx is cancelled or a server fails.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	logger := setupLogging(cfg)

	logger.Info("starting hrdesk server",
		"addr", cfg.Server.Addr,
		"store", cfg.Database.Driver,
		"token_ttl", cfg.Auth.TokenTTL.String(),
	)

	backend, err := deps.BackendFactory(ctx, cfg)
	if err != nil {
		return oops.With("operation", "open credential store").Wrap(err)
	}
	defer backend.Close()

	hasher := auth.NewArgon2idHasher()
	users, err := identity.NewStore(backend.Repo, hasher, identity.WithLogger(logger))
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret: []byte(cfg.Auth.TokenSecret),
		TTL:    cfg.Auth.TokenTTL,
		Issuer: cfg.Auth.TokenIssuer,
	})
	if err != nil {
		return err
	}

	svc, err := auth.NewService(users, hasher, tokens, auth.WithLogger(logger))
	if err != nil {
		return err
	}

	handler, err := web.NewRouter(web.RouterConfig{Auth: svc, Tokens: tokens, Users: users, Logger: logger})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	var obsServer ObservabilityServer
	if cfg.Server.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Server.MetricsAddr, readiness(ctx, &ready, backend),
			auth.RegisterMetrics, web.RegisterMetrics)
		obsServer.Metrics().SetBuildInfo(version, commit)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		defer stopServer(logger, "observability", obsServer.Stop)
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	}

	created, err := users.EnsureBootstrapAdmin(ctx, identity.BootstrapAdmin{Password: cfg.Auth.AdminPassword})
	if err != nil {
		return oops.With("operation", "bootstrap admin").Wrap(err)
	}
	if created {
		logger.Info("bootstrap admin created", "username", identity.DefaultAdminUsername)
		if obsServer != nil {
			obsServer.Metrics().BootstrapAdmins.Inc()
		}
	}

	apiServer := web.NewServer(cfg.Server.Addr, handler, logger)
	apiErrCh, err := apiServer.Start()
	if err != nil {
		return err
	}
	defer stopServer(logger, "api", apiServer.Stop)
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	ready.Store(true)
	cmd.Println("HRDesk server started on " + apiServer.Addr())
	if deps.Ready != nil {
		deps.Ready <- apiServer.Addr()
	}

	<-ctx.Done()
	ready.Store(false)
	logger.Info("shutting down")
	return nil
}

// readiness is ready once serving has begun and the database answers a ping.
func readiness(ctx context.Context, ready *atomic.Bool, backend *Backend) observability.ReadinessChecker {
	return func() bool {
		if !ready.Load() {
			return false
		}
		if backend.Ping == nil {
			return true
		}
		pingCtx, cancel := context.WithTimeout(ctx, readinessTimeout)
		defer cancel()
		return backend.Ping(pingCtx) == nil
	}
}

func stopServer(logger *slog.Logger, name string, stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		logger.Warn("error stopping server", "server", name, "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}

// openBackend opens the repository selected by cfg.Database.Driver.
func openBackend(ctx context.Context, cfg *config.Config) (*Backend, error) {
	if cfg.Database.Driver == config.DriverMemory {
		slog.Warn("using in-memory credential store; data is lost on exit")
		return &Backend{Repo: memory.NewRepository(), Close: func() {}}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := migrateUp(cfg.Database.URL); err != nil {
			return nil, err
		}
	}

	pool, err := store.Connect(ctx, cfg.Database.URL, store.DefaultPoolConfig())
	if err != nil {
		return nil, err
	}
	slog.Info("connected to database")
	return &Backend{
		Repo:  postgres.NewRepository(pool),
		Ping:  pool.Ping,
		Close: pool.Close,
	}, nil
}

func migrateUp(databaseURL string) error {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("failed to close migrator", "error", closeErr)
		}
	}()
	if err := m.Up(); err != nil {
		return err
	}
	slog.Info("database migrations applied")
	return nil
}
