package fiber

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lborres/volunteer/core"
	"github.com/lborres/volunteer/services"
)

const localUser = "user"

// requireRole guards the routes behind it with the session's route guard.
// No roles means any authenticated user.
func (a *Adapter) requireRole(roles ...core.RoleName) fiber.Handler {
	guard := services.RouteGuard{LoginPath: a.loginPath(), Required: core.Roles(roles...)}

	return func(c fiber.Ctx) error {
		state := a.console.Sessions.Snapshot()

		switch guard.Decide(state, c.Path()) {
		case services.DecisionPending:
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"view": "loading"})
		case services.DecisionRedirect:
			return c.Redirect().Status(fiber.StatusSeeOther).To(a.loginPath())
		case services.DecisionBlocked:
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"view": "blocked"})
		}

		c.Locals(localUser, state.User)
		return c.Next()
	}
}

// requireProfile renders the complete-your-profile view instead of the page
// while the role profile is incomplete. Must run after requireRole.
func (a *Adapter) requireProfile(role core.RoleName) fiber.Handler {
	return func(c fiber.Ctx) error {
		result := a.console.Profiles.Check(c.Context(), role)
		if !result.IsComplete {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"view":          "profile_incomplete",
				"missingFields": result.MissingFields,
			})
		}
		return c.Next()
	}
}

func currentUser(c fiber.Ctx) *core.Identity {
	user, _ := c.Locals(localUser).(*core.Identity)
	return user
}
