// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/hrdesk/hrdesk/internal/auth"
	"github.com/hrdesk/hrdesk/internal/config"
	"github.com/hrdesk/hrdesk/internal/identity"
)

// NewBootstrapAdminCmd creates the bootstrap-admin subcommand.
func NewBootstrapAdminCmd() *cobra.Command {
	return newBootstrapAdminCmd(nil)
}

func newBootstrapAdminCmd(deps *ServeDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap-admin",
		Short: "Create the initial administrator on an empty store",
		Long: `Create the administrator account "admin" when the store holds no
accounts at all. The password comes from HRDESK_ADMIN_PASSWORD and falls
back to "admin", which must be changed right after the first login.

Once any account exists it does nothing, even if the admin was later
demoted or deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runBootstrapAdmin(cmd, cfg, deps)
		},
	}

	cmd.Flags().String("store", config.Default().Database.Driver, "credential storage (postgres or memory)")
	cmd.Flags().Bool("auto-migrate", false, "apply pending migrations first")
	return cmd
}

func runBootstrapAdmin(cmd *cobra.Command, cfg *config.Config, deps *ServeDeps) error {
	deps = deps.withDefaults()
	if cfg.Database.Driver == config.DriverPostgres && cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL environment variable is required")
	}
	logger := setupLogging(cfg)

	backend, err := deps.BackendFactory(cmd.Context(), cfg)
	if err != nil {
		return oops.With("operation", "open credential store").Wrap(err)
	}
	defer backend.Close()

	users, err := identity.NewStore(backend.Repo, auth.NewArgon2idHasher(), identity.WithLogger(logger))
	if err != nil {
		return err
	}

	created, err := users.EnsureBootstrapAdmin(cmd.Context(), identity.BootstrapAdmin{Password: cfg.Auth.AdminPassword})
	if err != nil {
		return err
	}
	if !created {
		cmd.Println("Accounts already exist; nothing to do")
		return nil
	}
	cmd.Printf("Created administrator %q\n", identity.DefaultAdminUsername)
	if cfg.Auth.AdminPassword == "" {
		cmd.Println("WARNING: the default password is in use; change it after logging in")
	}
	return nil
}
