// Package redis keeps the bearer token in Redis so several console
// instances can share one session.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lborres/volunteer/core"
	"github.com/lborres/volunteer/pkg/crypto"
)

const (
	DefaultProfile = "default"
	DefaultTimeout = 2 * time.Second
	keyPrefix      = "volunteer-console:token:"
)

var ErrURLRequired = errors.New("redis url is required")

type Config struct {
	URL string
	// Profile namespaces the key so several consoles can share a server.
	Profile string
	// TTL expires the stored token; zero keeps it until cleared.
	TTL     time.Duration
	Timeout time.Duration
	Sealer  *crypto.Sealer
}

type Store struct {
	client  *redis.Client
	key     string
	ttl     time.Duration
	timeout time.Duration
	sealer  *crypto.Sealer
}

var _ core.TokenStore = (*Store)(nil)

func New(config Config) (*Store, error) {
	if config.URL == "" {
		return nil, ErrURLRequired
	}
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewWithClient(redis.NewClient(opts), config), nil
}

// NewWithClient wraps an existing client; config.URL is ignored.
func NewWithClient(client *redis.Client, config Config) *Store {
	if config.Profile == "" {
		config.Profile = DefaultProfile
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Store{
		client:  client,
		key:     keyPrefix + config.Profile,
		ttl:     config.TTL,
		timeout: config.Timeout,
		sealer:  config.Sealer,
	}
}

func (s *Store) Key() string { return s.key }

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Read() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	value, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}

	if s.sealer == nil || !crypto.IsSealed(value) {
		return value, nil
	}
	token, err := s.sealer.Open(value)
	if err != nil {
		return "", fmt.Errorf("failed to open token: %w", err)
	}
	return token, nil
}

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

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

func (s *Store) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}
