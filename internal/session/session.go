// Package session persists the signed-in identity of the terminal client.
// The session is a single email string plus the server it belongs to.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/billtrack/billtrack/internal/model"
)

// DefaultServerURL is used when no server has been configured.
const DefaultServerURL = "http://localhost:8080"

// Session is the client identity. A zero Email means "not logged in".
type Session struct {
	Email     string `toml:"email"`
	ServerURL string `toml:"server_url"`
}

// LoggedIn reports whether an identity is stored.
func (s Session) LoggedIn() bool {
	return strings.TrimSpace(s.Email) != ""
}

// Server returns the configured server or the default.
func (s Session) Server() string {
	if s.ServerURL == "" {
		return DefaultServerURL
	}
	return s.ServerURL
}

// Store reads and writes a session file.
type Store struct {
	path string
}

// NewStore returns a store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the XDG-compliant session file location.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "billtrack", "session.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "billtrack", "session.toml")
}

// Path returns the session file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the session. A missing file is an empty session.
func (s *Store) Load() (Session, error) {
	var sess Session

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sess, nil
		}
		return sess, fmt.Errorf("reading session: %w", err)
	}

	if err := toml.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("parsing session: %w", err)
	}
	sess.Email = model.NormalizeEmail(sess.Email)
	return sess, nil
}

// Save writes the session, creating the directory if needed.
func (s *Store) Save(sess Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating session file: %w", err)
	}
	defer f.Close()

	sess.Email = model.NormalizeEmail(sess.Email)
	if err := toml.NewEncoder(f).Encode(sess); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Clear forgets the email but keeps the server address.
func (s *Store) Clear() error {
	sess, err := s.Load()
	if err != nil {
		return err
	}
	sess.Email = ""
	return s.Save(sess)
}
