package volunteer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lborres/volunteer/adapters/rest"
	"github.com/lborres/volunteer/core"
	"github.com/lborres/volunteer/pkg/logging"
	"github.com/lborres/volunteer/services"
)

// interfaces
type (
	TokenStore       = core.TokenStore
	TokenSource      = core.TokenSource
	BackendAPI       = core.BackendAPI
	EndpointProvider = core.EndpointProvider
)

// HTTPAdapter mounts the console routes on a web framework.
type HTTPAdapter interface {
	RegisterRoutes(console *Console) error
}

type (
	State             = core.State
	Phase             = core.Phase
	Identity          = core.Identity
	RoleName          = core.RoleName
	LoginInput        = core.LoginInput
	RegisterInput     = core.RegisterInput
	ProfileCompletion = core.ProfileCompletion
	APIError          = core.APIError
	Endpoint          = core.Endpoint
)

const (
	RoleAdmin        = core.RoleAdmin
	RoleOrganization = core.RoleOrganization
	RoleVolunteer    = core.RoleVolunteer
)

const (
	defaultTimeout  = rest.DefaultTimeout
	defaultDebounce = 300 * time.Millisecond
)

var (
	ErrInvalidCredentials = core.ErrInvalidCredentials
	ErrNotAuthenticated   = core.ErrNotAuthenticated
	ErrTokenStoreRequired = core.ErrTokenStoreRequired
	ErrInvalidBaseURL     = core.ErrInvalidBaseURL
)

var (
	ErrUnauthenticated   = core.ErrUnauthenticated
	ErrUnauthorized      = core.ErrUnauthorized
	ErrNotFound          = core.ErrNotFound
	ErrValidation        = core.ErrValidation
	ErrServer            = core.ErrServer
	ErrNetwork           = core.ErrNetwork
	ErrProfileIncomplete = core.ErrProfileIncomplete
)

// Config wires a Console.
type Config struct {
	// BaseURL of the backend API; defaults to http://localhost:8000/api.
	BaseURL string
	Timeout time.Duration

	TokenStore TokenStore
	// DisableFallback surfaces token store failures instead of degrading to
	// memory.
	DisableFallback bool

	// Backend replaces the REST client, e.g. with a fake in tests. BaseURL,
	// Timeout and Plugins are ignored then.
	Backend BackendAPI
	Plugins []EndpointProvider

	// HTTP is optional; when set its routes are registered on New.
	HTTP HTTPAdapter

	SearchDebounce  time.Duration
	ProfileCacheTTL time.Duration
	LoginPath       string

	Logger logrus.FieldLogger
}

// Console is one client session against the backend together with its
// dashboards.
type Console struct {
	Sessions  *services.SessionManager
	Auth      *services.AuthService
	Profiles  *services.ProfileGate
	Pages     *services.Pages
	Endpoints *services.EndpointRegistry
	// Client is nil when a custom Backend was configured.
	Client    *rest.Client
	Store     TokenStore
	LoginPath string
	Log       logrus.FieldLogger

	unbind []func()
}

func New(config Config) (*Console, error) {
	if config.TokenStore == nil {
		return nil, ErrTokenStoreRequired
	}

	// Set Defaults

	log := logging.OrDiscard(config.Logger)

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	debounce := config.SearchDebounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	cacheTTL := config.ProfileCacheTTL
	if cacheTTL <= 0 {
		cacheTTL = services.DefaultProfileCacheTTL
	}

	loginPath := config.LoginPath
	if loginPath == "" {
		loginPath = services.DefaultLoginPath
	}

	store := config.TokenStore
	if !config.DisableFallback {
		store = services.NewFallbackTokenStore(store, log)
	}

	endpoints := services.NewEndpointRegistry()
	for _, plugin := range config.Plugins {
		if err := endpoints.Register(plugin.GetEndpoints()); err != nil {
			return nil, fmt.Errorf("failed to register plugin endpoints: %w", err)
		}
	}

	backend := config.Backend
	var client *rest.Client
	if backend == nil {
		var err error
		client, err = rest.New(rest.Config{
			BaseURL:   config.BaseURL,
			Timeout:   timeout,
			Endpoints: endpoints,
			Logger:    log,
		})
		if err != nil {
			return nil, err
		}
		backend = client
	}

	sessions := services.NewSessionManager(store, services.NewSessionResolver(backend, log), log)
	if client != nil {
		client.SetUnauthenticatedHandler(func(token string) { sessions.Expire(token) })
	}

	profiles := services.NewProfileGate(backend, sessions, cacheTTL, log)
	pages := services.NewPages(backend, sessions, services.PagesConfig{Debounce: debounce}, log)

	console := &Console{
		Sessions:  sessions,
		Auth:      services.NewAuthService(backend, sessions, log),
		Profiles:  profiles,
		Pages:     pages,
		Endpoints: endpoints,
		Client:    client,
		Store:     store,
		LoginPath: loginPath,
		Log:       log,
	}
	console.unbind = append(console.unbind, profiles.Bind(sessions), pages.Bind(sessions))

	if config.HTTP != nil {
		if err := config.HTTP.RegisterRoutes(console); err != nil {
			console.Close()
			return nil, err
		}
	}

	return console, nil
}

// Start resolves the persisted token. It blocks until the session settles.
func (c *Console) Start(ctx context.Context) State {
	return c.Sessions.Start(ctx)
}

// Guard builds the route guard for a page restricted to roles; no roles
// means any authenticated user.
func (c *Console) Guard(roles ...RoleName) services.RouteGuard {
	return services.RouteGuard{LoginPath: c.LoginPath, Required: core.Roles(roles...)}
}

// Close stops the dashboards and detaches them from the session.
func (c *Console) Close() {
	for _, fn := range c.unbind {
		fn()
	}
	c.unbind = nil
	c.Pages.Close()
}
