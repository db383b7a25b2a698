// Package memory keeps the bearer token for the lifetime of the process.
package memory

import (
	"sync"

	"github.com/lborres/volunteer/core"
)

type Store struct {
	mu    sync.RWMutex
	token string
}

var _ core.TokenStore = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) Read() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *Store) Write(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *Store) Clear() error {
	return s.Write("")
}
