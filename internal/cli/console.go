package cli

import (
	"context"
	"fmt"

	"github.com/lborres/volunteer"
	"github.com/lborres/volunteer/adapters/file"
	"github.com/lborres/volunteer/adapters/memory"
	"github.com/lborres/volunteer/adapters/pgx"
	"github.com/lborres/volunteer/adapters/redis"
	"github.com/lborres/volunteer/config"
	"github.com/lborres/volunteer/core"
	"github.com/lborres/volunteer/pkg/crypto"
)

// openTokenStore builds the configured token store. The returned func
// releases its connections.
func openTokenStore(ctx context.Context, c *config.Config) (core.TokenStore, func(), error) {
	noop := func() {}

	var sealer *crypto.Sealer
	if c.TokenStore.Passphrase != "" {
		s, err := crypto.NewSealer(c.TokenStore.Passphrase)
		if err != nil {
			return nil, nil, err
		}
		sealer = s
	}

	switch c.TokenStore.Driver {
	case config.DriverMemory:
		return memory.New(), noop, nil

	case config.DriverFile:
		store, err := file.New(file.Config{Path: c.TokenStore.Path, Sealer: sealer})
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil

	case config.DriverRedis:
		store, err := redis.New(redis.Config{
			URL:     c.Redis.URL,
			Profile: c.TokenStore.Profile,
			TTL:     c.Redis.TTL,
			Sealer:  sealer,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil

	case config.DriverPostgres:
		store, closeFn, err := pgx.Connect(ctx, c.Postgres.DSN, c.TokenStore.Profile)
		if err != nil {
			return nil, nil, err
		}
		return store, closeFn, nil
	}

	return nil, nil, fmt.Errorf("%w: %q", core.ErrUnknownStoreDriver, c.TokenStore.Driver)
}

// newConsole wires a console from the loaded configuration. http may be nil.
func newConsole(ctx context.Context, http volunteer.HTTPAdapter) (*volunteer.Console, func(), error) {
	store, closeStore, err := openTokenStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening token store: %w", err)
	}

	console, err := volunteer.New(volunteer.Config{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         cfg.API.Timeout,
		TokenStore:      store,
		HTTP:            http,
		SearchDebounce:  cfg.Search.Debounce,
		ProfileCacheTTL: cfg.Profile.CacheTTL,
		Logger:          logger,
	})
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	return console, func() {
		console.Close()
		closeStore()
	}, nil
}
