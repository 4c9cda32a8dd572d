// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

// Package config loads HRDesk configuration.
//
// Sources are layered lowest to highest: built-in defaults, the YAML config
// file, command-line flags that were explicitly set, then environment
// variables. Secrets are normally supplied through the environment.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/hrdesk/hrdesk/internal/auth"
	"github.com/hrdesk/hrdesk/internal/logging"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Defaults.
const (
	DefaultAddr        = "localhost:8080"
	DefaultMetricsAddr = "127.0.0.1:9100"
	DefaultLogFormat   = "json"
	DefaultLogLevel    = "info"
	DefaultServerURL   = "http://localhost:8080"
)

// Config is the complete HRDesk configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server" json:"server,omitempty"`
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
	Database DatabaseConfig `koanf:"database" json:"database,omitempty"`
	Auth     AuthConfig     `koanf:"auth" json:"auth,omitempty"`
	Client   ClientConfig   `koanf:"client" json:"client,omitempty"`
}

// ServerConfig configures the API and observability listeners.
type ServerConfig struct {
	Addr        string `koanf:"addr" json:"addr,omitempty" jsonschema:"description=HTTP API listen address"`
	MetricsAddr string `koanf:"metrics_addr" json:"metrics_addr,omitempty" jsonschema:"description=metrics and health listen address; empty disables it"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// DatabaseConfig selects and configures the credential storage.
type DatabaseConfig struct {
	Driver      string `koanf:"driver" json:"driver,omitempty" jsonschema:"enum=postgres,enum=memory"`
	URL         string `koanf:"url" json:"url,omitempty" jsonschema:"description=PostgreSQL connection URL"`
	AutoMigrate bool   `koanf:"auto_migrate" json:"auto_migrate,omitempty" jsonschema:"description=apply pending migrations on serve"`
}

// AuthConfig configures session tokens and the bootstrap administrator.
type AuthConfig struct {
	TokenSecret   string        `koanf:"token_secret" json:"token_secret,omitempty" jsonschema:"minLength=32"`
	TokenTTL      time.Duration `koanf:"token_ttl" json:"token_ttl,omitempty"`
	TokenIssuer   string        `koanf:"token_issuer" json:"token_issuer,omitempty"`
	AdminPassword string        `koanf:"admin_password" json:"admin_password,omitempty" jsonschema:"description=initial admin password; defaults to the built-in password"`
}

// ClientConfig configures the CLI client commands.
type ClientConfig struct {
	ServerURL   string `koanf:"server_url" json:"server_url,omitempty"`
	SessionFile string `koanf:"session_file" json:"session_file,omitempty" jsonschema:"description=token file; defaults to the XDG state directory"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: DefaultAddr, MetricsAddr: DefaultMetricsAddr},
		Log:      LogConfig{Format: DefaultLogFormat, Level: DefaultLogLevel},
		Database: DatabaseConfig{Driver: DriverPostgres},
		Auth:     AuthConfig{TokenTTL: auth.DefaultTokenTTL, TokenIssuer: auth.DefaultTokenIssuer},
		Client:   ClientConfig{ServerURL: DefaultServerURL},
	}
}

// defaultValues flattens Default into koanf keys.
func defaultValues() map[string]any {
	d := Default()
	return map[string]any{
		"server.addr":         d.Server.Addr,
		"server.metrics_addr": d.Server.MetricsAddr,
		"log.format":          d.Log.Format,
		"log.level":           d.Log.Level,
		"database.driver":     d.Database.Driver,
		"auth.token_ttl":      d.Auth.TokenTTL,
		"auth.token_issuer":   d.Auth.TokenIssuer,
		"client.server_url":   d.Client.ServerURL,
	}
}

// flagKeys maps command-line flag names to config keys. Flags not listed
// here are not configuration.
var flagKeys = map[string]string{
	"addr":         "server.addr",
	"metrics-addr": "server.metrics_addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"store":        "database.driver",
	"auto-migrate": "database.auto_migrate",
	"token-ttl":    "auth.token_ttl",
	"server":       "client.server_url",
	"session-file": "client.session_file",
}

// envKeys maps environment variables to config keys. Later entries win
// when more than one maps to the same key.
var envKeys = []struct {
	name string
	key  string
}{
	{"DATABASE_URL", "database.url"},
	{"HRDESK_DATABASE_URL", "database.url"},
	{"HRDESK_STORE", "database.driver"},
	{"HRDESK_ADDR", "server.addr"},
	{"HRDESK_METRICS_ADDR", "server.metrics_addr"},
	{"HRDESK_LOG_FORMAT", "log.format"},
	{"HRDESK_LOG_LEVEL", "log.level"},
	{"HRDESK_TOKEN_SECRET", "auth.token_secret"},
	{"HRDESK_TOKEN_TTL", "auth.token_ttl"},
	{"HRDESK_ADMIN_PASSWORD", "auth.admin_password"},
	{"HRDESK_SERVER_URL", "client.server_url"},
	{"HRDESK_SESSION_FILE", "client.session_file"},
}

// Source describes where configuration is read from.
type Source struct {
	// File is the YAML config path. A missing file is an error only when
	// Explicit is set.
	File     string
	Explicit bool
	// Flags holds command-line flags; only flags named in the flag table
	// are read.
	Flags *pflag.FlagSet
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load reads, merges and validates configuration.
func Load(src Source) (*Config, error) {
	k := koanf.New(".")
	for key, val := range defaultValues() {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	if src.File != "" {
		if err := loadFile(k, src.File, src.Explicit); err != nil {
			return nil, err
		}
	}

	if src.Flags != nil {
		provider := posflag.ProviderWithFlag(src.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(src.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	lookup := src.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, e := range envKeys {
		if val, ok := lookup(e.name); ok && val != "" {
			if err := k.Set(e.key, val); err != nil {
				return nil, oops.Code("CONFIG_LOAD_FAILED").With("env", e.name).Wrap(err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil
	}
	if err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}
	if err := ValidateYAML(data); err != nil {
		return oops.With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

// Validate checks values that every command relies on.
func (c *Config) Validate() error {
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "unknown level %q", c.Log.Level)
	}
	if c.Database.Driver != DriverPostgres && c.Database.Driver != DriverMemory {
		return invalid("database.driver", "must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Database.Driver)
	}
	if c.Auth.TokenTTL <= 0 {
		return invalid("auth.token_ttl", "must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Auth.TokenSecret != "" && len(c.Auth.TokenSecret) < auth.MinSecretLength {
		return invalid("auth.token_secret", "must be at least %d bytes", auth.MinSecretLength)
	}
	if c.Client.ServerURL != "" {
		u, err := url.Parse(c.Client.ServerURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("client.server_url", "must be an absolute http(s) URL, got %q", c.Client.ServerURL)
		}
	}
	return nil
}

// ValidateServe checks the settings required to run the API server.
func (c *Config) ValidateServe() error {
	if c.Server.Addr == "" {
		return invalid("server.addr", "is required")
	}
	if c.Auth.TokenSecret == "" {
		return invalid("auth.token_secret", "is required; set HRDESK_TOKEN_SECRET")
	}
	if c.Database.Driver == DriverPostgres && c.Database.URL == "" {
		return invalid("database.url", "is required for the postgres driver; set DATABASE_URL")
	}
	return nil
}

// LogLevel returns the parsed log level, or info when it does not parse.
func (c *Config) LogLevel() slog.Level {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func invalid(key, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf(key+" "+format, args...)
}
