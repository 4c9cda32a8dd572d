// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hrdesk/hrdesk/internal/config"
	"github.com/hrdesk/hrdesk/internal/logging"
	"github.com/hrdesk/hrdesk/internal/xdg"
)

const serviceName = "hrdesk"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the HRDesk CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hrdesk",
		Short: "HRDesk - HR back office server and CLI",
		Long: `HRDesk serves the HR back-office JSON API with password login,
signed session tokens and administrator user management.

The same binary is a command-line client for a running server.`,
		SilenceUsage: true,
	}

	d := config.Default()
	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/hrdesk/config.yaml)")
	flags.String("log-format", d.Log.Format, "log format (json or text)")
	flags.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	flags.String("server", d.Client.ServerURL, "server URL for client commands")
	flags.String("session-file", "", "session token file for client commands (default: XDG_STATE_HOME/hrdesk/session.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewBootstrapAdminCmd())
	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewLoginCmd())
	cmd.AddCommand(NewLogoutCmd())
	cmd.AddCommand(NewWhoamiCmd())
	cmd.AddCommand(NewUsersCmd())

	return cmd
}

// loadConfig merges defaults, the config file, flags set on cmd and the
// environment. Without --config, the XDG config file is used if present.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	src := config.Source{File: configFile, Explicit: configFile != "", Flags: cmd.Flags()}
	if !src.Explicit {
		if path, err := xdg.ConfigFile(); err == nil {
			src.File = path
		}
	}
	return config.Load(src)
}

// setupLogging installs the default logger described by cfg.
func setupLogging(cfg *config.Config) *slog.Logger {
	return logging.SetDefault(serviceName, version, cfg.Log.Format, cfg.LogLevel())
}
