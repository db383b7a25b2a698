package fiber

import (
	"io"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/requestid"

	"github.com/lborres/volunteer"
	"github.com/lborres/volunteer/core"
	"github.com/lborres/volunteer/pkg/metrics"
)

// Config configures the console routes.
type Config struct {
	// BasePath prefixes every route, e.g. "/console".
	BasePath string
	// AccessLog receives one line per request; nil disables access logging.
	AccessLog io.Writer
	// DisableMetrics drops the /metrics route.
	DisableMetrics bool
}

type Adapter struct {
	app    *fiber.App
	config Config

	console *volunteer.Console
}

var _ volunteer.HTTPAdapter = (*Adapter)(nil)

func New(app *fiber.App) *Adapter {
	return NewWithConfig(app, Config{})
}

func NewWithConfig(app *fiber.App, config Config) *Adapter {
	config.BasePath = strings.TrimRight(config.BasePath, "/")
	return &Adapter{app: app, config: config}
}

func (a *Adapter) RegisterRoutes(console *volunteer.Console) error {
	a.console = console

	a.app.Use(requestid.New())
	if a.config.AccessLog != nil {
		a.app.Use(logger.New(logger.Config{
			Format:     logFormat(),
			TimeFormat: "2006/01/02 15:04:05",
			TimeZone:   "Local",
			Stream:     a.config.AccessLog,
		}))
	}

	if !a.config.DisableMetrics {
		a.app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}

	api := a.app.Group(a.config.BasePath)

	// Public routes
	api.Get(a.console.LoginPath, a.loginPage)
	api.Get("/auth/session", a.session)
	api.Post("/auth/login", a.login)
	api.Post("/auth/register", a.register)
	api.Post("/auth/logout", a.logout)
	api.Post("/auth/refresh", a.refresh)

	// Any authenticated user
	api.Get("/profile", a.requireRole(), a.profile)

	admin := api.Group("/admin", a.requireRole(core.RoleAdmin))
	admin.Get("/overview", a.adminOverview)
	admin.Get("/users", a.listUsers)
	admin.Post("/users/:id/toggle", a.toggleUser)
	admin.Get("/logs", a.listLogs)
	admin.Get("/feedback", a.listFeedback)

	org := api.Group("/organization",
		a.requireRole(core.RoleOrganization),
		a.requireProfile(core.RoleOrganization))
	org.Get("/opportunities", a.listOpportunities)
	org.Get("/applications", a.listApplications)
	org.Patch("/applications/:id", a.reviewApplication)

	vol := api.Group("/volunteer",
		a.requireRole(core.RoleVolunteer),
		a.requireProfile(core.RoleVolunteer))
	vol.Get("/opportunities", a.listOpportunities)
	vol.Post("/opportunities/search", a.searchOpportunities)
	vol.Get("/applications", a.listApplications)
	vol.Get("/assignments", a.listAssignments)
	vol.Get("/messages", a.listMessages)

	return nil
}

// loginPath is the full path redirects point at.
func (a *Adapter) loginPath() string {
	return a.config.BasePath + a.console.LoginPath
}

func logFormat() string {
	format := []string{
		"${time}|${respHeader:X-Request-ID}",
		"${status}|${latency}",
		"${method}|${path}|${queryParams}",
		"${error}",
	}
	return strings.Join(format, "|") + "\n"
}
