// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HRDesk Contributors

package client

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/hrdesk/hrdesk/internal/xdg"
)

// TokenStore persists the session token between runs.
// Load returns "" with a nil error when no token is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// MemoryTokenStore keeps the token in memory.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryTokenStore creates an empty MemoryTokenStore.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

// Load returns the stored token.
func (m *MemoryTokenStore) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// Save replaces the stored token.
func (m *MemoryTokenStore) Save(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// Clear removes the stored token.
func (m *MemoryTokenStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// sessionFile is the on-disk YAML layout.
type sessionFile struct {
	Token   string    `yaml:"token"`
	SavedAt time.Time `yaml:"saved_at"`
}

// FileTokenStore keeps the token in a YAML file readable only by its owner.
type FileTokenStore struct {
	path string
	now  func() time.Time
}

// NewFileTokenStore creates a store at path. An empty path uses the XDG state directory.
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if path == "" {
		var err error
		path, err = xdg.SessionFile()
		if err != nil {
			return nil, err
		}
	}
	return &FileTokenStore{path: path, now: time.Now}, nil
}

// Path returns the file location.
func (f *FileTokenStore) Path() string {
	return f.path
}

// Load reads the token. A missing file is not an error.
func (f *FileTokenStore) Load(context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", oops.Code("CLIENT_SESSION_READ_FAILED").With("path", f.path).Wrap(err)
	}
	var sf sessionFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return "", oops.Code("CLIENT_SESSION_READ_FAILED").With("path", f.path).Wrap(err)
	}
	return sf.Token, nil
}

// Save writes the token atomically with 0600 permissions.
func (f *FileTokenStore) Save(_ context.Context, token string) error {
	data, err := yaml.Marshal(sessionFile{Token: token, SavedAt: f.now().UTC()})
	if err != nil {
		return oops.Code("CLIENT_SESSION_WRITE_FAILED").Wrap(err)
	}

	dir := filepath.Dir(f.path)
	if err := xdg.EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".session-*.yaml")
	if err != nil {
		return oops.Code("CLIENT_SESSION_WRITE_FAILED").With("path", f.path).Wrap(err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		cleanup()
		return oops.Code("CLIENT_SESSION_WRITE_FAILED").With("path", f.path).Wrap(err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return oops.Code("CLIENT_SESSION_WRITE_FAILED").With("path", f.path).Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return oops.Code("CLIENT_SESSION_WRITE_FAILED").With("path", f.path).Wrap(err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		cleanup()
		return oops.Code("CLIENT_SESSION_WRITE_FAILED").With("path", f.path).Wrap(err)
	}
	return nil
}

// Clear deletes the file. A missing file is not an error.
func (f *FileTokenStore) Clear(context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.Code("CLIENT_SESSION_CLEAR_FAILED").With("path", f.path).Wrap(err)
	}
	return nil
}
