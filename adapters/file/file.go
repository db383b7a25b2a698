// Package file persists the bearer token in a private file, optionally
// sealed with a passphrase.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lborres/volunteer/core"
	"github.com/lborres/volunteer/pkg/crypto"
)

var (
	ErrPathRequired   = errors.New("token file path is required")
	ErrSealerRequired = errors.New("token file is sealed but no passphrase is configured")
)

const fileMode = 0o600

type Config struct {
	Path string
	// Sealer encrypts the token at rest when set.
	Sealer *crypto.Sealer
}

type Store struct {
	path   string
	sealer *crypto.Sealer
	mu     sync.Mutex
}

var _ core.TokenStore = (*Store)(nil)

func New(config Config) (*Store, error) {
	if strings.TrimSpace(config.Path) == "" {
		return nil, ErrPathRequired
	}
	return &Store{path: config.Path, sealer: config.Sealer}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Read() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	value := strings.TrimSpace(string(data))
	if !crypto.IsSealed(value) {
		// plain tokens written before sealing was enabled stay readable
		return value, nil
	}
	if s.sealer == nil {
		return "", ErrSealerRequired
	}

	token, err := s.sealer.Open(value)
	if err != nil {
		return "", fmt.Errorf("failed to open token file: %w", err)
	}
	return token, nil
}

// Write replaces the file atomically. An empty token clears it.
func (s *Store) Write(token string) error {
	if token == "" {
		return s.Clear()
	}

	value := token
	if s.sealer != nil {
		sealed, err := s.sealer.Seal(token)
		if err != nil {
			return fmt.Errorf("failed to seal token: %w", err)
		}
		value = sealed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict token file: %w", err)
	}
	if _, err := tmp.WriteString(value + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
