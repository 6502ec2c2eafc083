// Package credential persists the worker's session between client invocations.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"Mansoor88-6/process-tracker/internal/models"

	"gopkg.in/yaml.v3"
)

// ErrNoSession is returned by Load when nobody is logged in.
var ErrNoSession = errors.New("no session, please log in")

// Session is the persisted token and the profile it was issued for.
type Session struct {
	Token string          `yaml:"token"`
	User  models.UserView `yaml:"user"`
}

// Store keeps the session in a single YAML file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store backed by the file at path. The file need not exist yet.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the session. It returns ErrNoSession when nobody is logged in.
func (s *Store) Load() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var sess Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	if sess.Token == "" {
		return nil, ErrNoSession
	}
	return &sess, nil
}

// Save writes the session with owner-only permissions.
func (s *Store) Save(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create credentials directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace credentials: %w", err)
	}
	return nil
}

// Clear removes the session. Clearing an absent session is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}
