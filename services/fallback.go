package services

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lborres/volunteer/adapters/memory"
	"github.com/lborres/volunteer/core"
	"github.com/lborres/volunteer/pkg/logging"
	"github.com/lborres/volunteer/pkg/metrics"
)

// FallbackTokenStore wraps a persistent backend. After the first backend
// failure it logs once and keeps the token in memory for the rest of the
// process, so storage trouble never surfaces to the session.
type FallbackTokenStore struct {
	backend  core.TokenStore
	memory   *memory.Store
	log      logrus.FieldLogger
	mu       sync.Mutex
	degraded bool
}

var _ core.TokenStore = (*FallbackTokenStore)(nil)

func NewFallbackTokenStore(backend core.TokenStore, log logrus.FieldLogger) *FallbackTokenStore {
	metrics.SetTokenStoreDegraded(false)
	return &FallbackTokenStore{
		backend: backend,
		memory:  memory.New(),
		log:     logging.OrDiscard(log),
	}
}

// Degraded reports whether the backend has been abandoned.
func (s *FallbackTokenStore) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *FallbackTokenStore) Read() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.degraded {
		return s.memory.Read()
	}

	token, err := s.backend.Read()
	if err != nil {
		s.degrade("read", err)
		return s.memory.Read()
	}
	_ = s.memory.Write(token)
	return token, nil
}

func (s *FallbackTokenStore) Write(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.memory.Write(token)
	if s.degraded {
		return nil
	}
	if err := s.backend.Write(token); err != nil {
		s.degrade("write", err)
	}
	return nil
}

func (s *FallbackTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.memory.Clear()
	if s.degraded {
		return nil
	}
	if err := s.backend.Clear(); err != nil {
		s.degrade("clear", err)
	}
	return nil
}

// degrade must be called with mu held.
func (s *FallbackTokenStore) degrade(op string, err error) {
	s.degraded = true
	metrics.SetTokenStoreDegraded(true)
	s.log.WithError(err).WithField("op", op).Warn("token store unavailable, keeping the token in memory only")
}
