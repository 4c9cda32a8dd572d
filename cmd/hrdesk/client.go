// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/hrdesk/hrdesk/internal/client"
	"github.com/hrdesk/hrdesk/internal/identity"
)

// isTerminal and readPassword are replaced in tests.
var (
	isTerminal   = term.IsTerminal
	readPassword = term.ReadPassword
)

// clientEnv is what a client command needs to talk to the server.
type clientEnv struct {
	api     *client.APIClient
	session *client.Session
	store   client.TokenStore
}

func (d *ClientDeps) withDefaults() *ClientDeps {
	out := &ClientDeps{}
	if d != nil {
		*out = *d
	}
	if out.TokenStoreFactory == nil {
		out.TokenStoreFactory = func(path string) (client.TokenStore, error) {
			return client.NewFileTokenStore(path)
		}
	}
	return out
}

// openClient loads configuration and builds the API client and session.
// The stored session is resolved before returning.
func openClient(cmd *cobra.Command, deps *ClientDeps) (*clientEnv, error) {
	deps = deps.withDefaults()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := setupLogging(cfg)

	var opts []client.APIOption
	if deps.HTTPClient != nil {
		opts = append(opts, client.WithHTTPClient(deps.HTTPClient))
	}
	api, err := client.NewAPIClient(cfg.Client.ServerURL, opts...)
	if err != nil {
		return nil, err
	}

	store, err := deps.TokenStoreFactory(cfg.Client.SessionFile)
	if err != nil {
		return nil, err
	}

	session, err := client.NewSession(api, store, client.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if _, err := session.Resolve(cmd.Context()); err != nil {
		session.Close()
		return nil, err
	}
	return &clientEnv{api: api, session: session, store: store}, nil
}

// explain rewrites session errors into something a CLI user can act on.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, client.ErrNotAuthenticated):
		return oops.Code("NOT_LOGGED_IN").Errorf("not logged in; run \"hrdesk login\" first")
	case errors.Is(err, client.ErrUnauthorized):
		return oops.Code("SESSION_EXPIRED").Wrapf(err, "session is no longer valid; run \"hrdesk login\" again")
	}
	return err
}

// NewLoginCmd creates the login subcommand.
func NewLoginCmd() *cobra.Command {
	return newLoginCmd(nil)
}

func newLoginCmd(deps *ClientDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the server and store the session token",
		Long: `Log in with a username and password. Without --password the password
is read from the terminal, or from the first line of stdin when it is not
a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			if strings.TrimSpace(username) == "" {
				return oops.Code("INVALID_INPUT").Errorf("--username is required")
			}
			env, err := openClient(cmd, deps)
			if err != nil {
				return err
			}
			defer env.session.Close()

			if password == "" {
				if password, err = promptPassword(cmd, deps); err != nil {
					return err
				}
			}
			snap, err := env.session.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			cmd.Printf("Logged in as %s (%s); session expires %s\n",
				snap.Claims.Username, snap.Claims.Role, snap.Claims.ExpiresAt.Local().Format(time.RFC1123))
			return nil
		},
	}
	cmd.Flags().StringP("username", "u", "", "account username")
	cmd.Flags().String("password", "", "account password (prompted when omitted)")
	return cmd
}

// promptPassword reads a password without echo from a terminal, or a
// single line from the configured reader otherwise.
func promptPassword(cmd *cobra.Command, deps *ClientDeps) (string, error) {
	var in io.Reader = cmd.InOrStdin()
	if deps != nil && deps.PasswordReader != nil {
		in = deps.PasswordReader
	}

	if f, ok := in.(*os.File); ok && isTerminal(int(f.Fd())) {
		cmd.PrintErr("Password: ")
		pw, err := readPassword(int(f.Fd()))
		cmd.PrintErrln()
		if err != nil {
			return "", oops.Code("PASSWORD_READ_FAILED").Wrap(err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", oops.Code("PASSWORD_READ_FAILED").Wrapf(err, "no password supplied")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// NewLogoutCmd creates the logout subcommand.
func NewLogoutCmd() *cobra.Command {
	return newLogoutCmd(nil)
}

func newLogoutCmd(deps *ClientDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openClient(cmd, deps)
			if err != nil {
				return err
			}
			defer env.session.Close()
			if err := env.session.Logout(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("Logged out")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami subcommand.
func NewWhoamiCmd() *cobra.Command {
	return newWhoamiCmd(nil)
}

func newWhoamiCmd(deps *ClientDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := openClient(cmd, deps)
			if err != nil {
				return err
			}
			defer env.session.Close()

			var me *identity.Profile
			err = env.session.Do(cmd.Context(), func(ctx context.Context, token string) error {
				var callErr error
				me, callErr = env.api.Me(ctx, token)
				return callErr
			})
			if err != nil {
				return explain(err)
			}
			printProfile(cmd, me)
			return nil
		},
	}
}

// NewUsersCmd creates the users subcommand.
func NewUsersCmd() *cobra.Command {
	return newUsersCmd(nil)
}

func newUsersCmd(deps *ClientDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts (administrators only)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, deps, func(ctx context.Context, env *clientEnv, token string) error {
				users, err := env.api.ListUsers(ctx, token)
				if err != nil {
					return err
				}
				return printUsers(cmd.OutOrStdout(), users)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get ID",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, deps, func(ctx context.Context, env *clientEnv, token string) error {
				user, err := env.api.GetUser(ctx, token, args[0])
				if err != nil {
					return err
				}
				printProfile(cmd, user)
				return nil
			})
		},
	})

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := client.CreateUserInput{}
			in.FullName, _ = cmd.Flags().GetString("full-name")
			in.Username, _ = cmd.Flags().GetString("username")
			in.Password, _ = cmd.Flags().GetString("password")
			in.Role, _ = cmd.Flags().GetString("role")
			return withSession(cmd, deps, func(ctx context.Context, env *clientEnv, token string) error {
				id, err := env.api.CreateUser(ctx, token, in)
				if err != nil {
					return err
				}
				cmd.Printf("Created user %s\n", id)
				return nil
			})
		},
	}
	createCmd.Flags().String("full-name", "", "display name")
	createCmd.Flags().String("username", "", "login name")
	createCmd.Flags().String("password", "", "initial password")
	createCmd.Flags().String("role", string(identity.RoleUser), "role (admin or user)")
	cmd.AddCommand(createCmd)

	updateCmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change an account's profile or password",
		Long:  `Change the fields given as flags. Fields without a flag are kept.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := client.UpdateUserInput{
				FullName: changedString(cmd, "full-name"),
				Username: changedString(cmd, "username"),
				Role:     changedString(cmd, "role"),
				Password: changedString(cmd, "password"),
			}
			if in.FullName == nil && in.Username == nil && in.Role == nil && in.Password == nil {
				return oops.Code("INVALID_INPUT").Errorf("nothing to update; pass at least one field flag")
			}
			return withSession(cmd, deps, func(ctx context.Context, env *clientEnv, token string) error {
				changes, err := env.api.UpdateUser(ctx, token, args[0], in)
				if err != nil {
					return err
				}
				return reportChanges(cmd, "Updated", args[0], changes)
			})
		},
	}
	updateCmd.Flags().String("full-name", "", "new display name")
	updateCmd.Flags().String("username", "", "new login name")
	updateCmd.Flags().String("role", "", "new role (admin or user)")
	updateCmd.Flags().String("password", "", "new password")
	cmd.AddCommand(updateCmd)

	for _, active := range []bool{true, false} {
		use, verb := "activate ID", "Activated"
		if !active {
			use, verb = "deactivate ID", "Deactivated"
		}
		cmd.AddCommand(&cobra.Command{
			Use:   use,
			Short: verb + " an account",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSession(cmd, deps, func(ctx context.Context, env *clientEnv, token string) error {
					changes, err := env.api.SetUserActive(ctx, token, args[0], active)
					if err != nil {
						return err
					}
					return reportChanges(cmd, verb, args[0], changes)
				})
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete an account permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, deps, func(ctx context.Context, env *clientEnv, token string) error {
				changes, err := env.api.DeleteUser(ctx, token, args[0])
				if err != nil {
					return err
				}
				return reportChanges(cmd, "Deleted", args[0], changes)
			})
		},
	})

	return cmd
}

func withSession(cmd *cobra.Command, deps *ClientDeps, run func(ctx context.Context, env *clientEnv, token string) error) error {
	env, err := openClient(cmd, deps)
	if err != nil {
		return err
	}
	defer env.session.Close()
	return explain(env.session.Do(cmd.Context(), func(ctx context.Context, token string) error {
		return run(ctx, env, token)
	}))
}

func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

// reportChanges prints the outcome of a mutation. Zero changes means the
// account does not exist.
func reportChanges(cmd *cobra.Command, verb, id string, changes int64) error {
	if changes == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrapf(client.ErrNotFound, "no user %s", id)
	}
	cmd.Printf("%s user %s\n", verb, id)
	return nil
}

func printProfile(cmd *cobra.Command, p *identity.Profile) {
	cmd.Printf("ID:        %s\n", p.ID)
	cmd.Printf("Name:      %s\n", p.FullName)
	cmd.Printf("Username:  %s\n", p.Username)
	cmd.Printf("Role:      %s\n", p.Role)
	cmd.Printf("Active:    %t\n", p.IsActive)
	cmd.Printf("Created:   %s\n", p.CreatedAt.Local().Format(time.RFC3339))
}

func printUsers(out io.Writer, users []identity.Profile) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tROLE\tACTIVE")
	for _, u := range users {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", u.ID, u.Username, u.FullName, u.Role, u.IsActive)
	}
	return w.Flush()
}
