// Package session caches the vault session token in the transient directory.
//
// The transient directory is expected to be a per-login, memory-backed
// location such as $XDG_RUNTIME_DIR, which the OS removes at logout, so the
// token never outlives the login session even without explicit cleanup.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/msladek/bwx/internal/bwx"
	"github.com/msladek/bwx/internal/fs"
)

// TokenFileName is the name of the token file inside the transient directory.
const TokenFileName = bwx.SessionEnv

// FileStore is a SessionStore backed by a single owner-only file.
type FileStore struct {
	dir    string
	path   string
	sealer bwx.Sealer
	logger bwx.Logger
}

var _ bwx.SessionStore = (*FileStore)(nil)

// NewFileStore creates a store keeping its token in dir.
func NewFileStore(dir string, sealer bwx.Sealer, logger bwx.Logger) *FileStore {
	return &FileStore{
		dir:    dir,
		path:   filepath.Join(dir, TokenFileName),
		sealer: sealer,
		logger: logger,
	}
}

// Path returns the token file location.
func (s *FileStore) Path() string { return s.path }

// Load returns the stored token. Missing, unreadable and undecryptable
// files all count as no token.
func (s *FileStore) Load() (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debug("session file unreadable", "path", s.path, "error", err)
		}
		return "", false
	}

	plain, err := s.sealer.Open(data)
	if err != nil {
		s.logger.Debug("session file cannot be opened", "path", s.path, "error", err)
		return "", false
	}

	token := strings.TrimSpace(string(plain))
	if token == "" {
		return "", false
	}
	s.logger.Debug("loaded session", "path", s.path)
	return token, true
}

// Save writes the token atomically with owner-only permissions, creating
// the directory if needed.
func (s *FileStore) Save(token string) error {
	if err := fs.EnsurePrivateDir(s.dir); err != nil {
		return fmt.Errorf("%w: %w", bwx.ErrStorage, err)
	}

	sealed, err := s.sealer.Seal([]byte(token))
	if err != nil {
		return fmt.Errorf("%w: sealing session token: %w", bwx.ErrStorage, err)
	}

	if err := fs.WriteFileAtomic(s.path, sealed); err != nil {
		return fmt.Errorf("%w: writing session token: %w", bwx.ErrStorage, err)
	}
	s.logger.Debug("saved session", "path", s.path)
	return nil
}

// Invalidate deletes the token file if present.
func (s *FileStore) Invalidate() error {
	if err := fs.RemoveIfExists(s.path); err != nil {
		return fmt.Errorf("%w: removing session token: %w", bwx.ErrStorage, err)
	}
	s.logger.Debug("invalidated session", "path", s.path)
	return nil
}
