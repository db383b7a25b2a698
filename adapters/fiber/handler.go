package fiber

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/volunteer/core"
	"github.com/lborres/volunteer/pkg/fetch"
)

type sessionResponse struct {
	Phase string `json:"phase"`
	core.State
}

func newSessionResponse(s core.State) sessionResponse {
	return sessionResponse{Phase: s.Phase().String(), State: s}
}

type errorBody struct {
	Category     string              `json:"category"`
	Message      string              `json:"message"`
	Fields       map[string][]string `json:"fields,omitempty"`
	RequiredRole core.RoleName       `json:"requiredRole,omitempty"`
}

func newErrorBody(err error) *errorBody {
	if err == nil {
		return nil
	}
	body := &errorBody{
		Category: core.CategoryOf(err).String(),
		Message:  core.UserMessage(err),
		Fields:   core.FieldErrors(err),
	}
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		body.RequiredRole = apiErr.RequiredRole
	}
	return body
}

// pageResponse renders exactly one view of a data-bound page. Data is
// attached on error too, so stale rows stay visible.
type pageResponse[T any] struct {
	View  fetch.ViewKind                 `json:"view"`
	Data  []T                            `json:"data"`
	Error *errorBody                     `json:"error,omitempty"`
	Stats map[core.ApplicationStatus]int `json:"stats,omitempty"`
}

func newPageResponse[T any](s fetch.State[[]T]) pageResponse[T] {
	return pageResponse[T]{
		View:  fetch.View(s, fetch.EmptySlice[T]),
		Data:  s.Data,
		Error: newErrorBody(s.Err),
	}
}

func (a *Adapter) loginPage(c fiber.Ctx) error {
	state := a.console.Sessions.Snapshot()
	view := "login"
	if state.Authenticated() {
		view = "authenticated"
	}
	return c.JSON(fiber.Map{"view": view, "session": newSessionResponse(state)})
}

// session returns the current session snapshot
func (a *Adapter) session(c fiber.Ctx) error {
	return c.JSON(newSessionResponse(a.console.Sessions.Snapshot()))
}

func (a *Adapter) login(c fiber.Ctx) error {
	var input core.LoginInput
	if err := c.Bind().Body(&input); err != nil {
		return invalidBody(c)
	}

	state, err := a.console.Auth.Login(c.Context(), input)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(http.StatusOK).JSON(newSessionResponse(state))
}

func (a *Adapter) register(c fiber.Ctx) error {
	var input core.RegisterInput
	if err := c.Bind().Body(&input); err != nil {
		return invalidBody(c)
	}

	state, err := a.console.Auth.Register(c.Context(), input)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(newSessionResponse(state))
}

// logout always succeeds locally
func (a *Adapter) logout(c fiber.Ctx) error {
	return c.JSON(newSessionResponse(a.console.Auth.Logout(c.Context())))
}

func (a *Adapter) refresh(c fiber.Ctx) error {
	return c.JSON(newSessionResponse(a.console.Sessions.Refresh(c.Context())))
}

func (a *Adapter) profile(c fiber.Ctx) error {
	user := currentUser(c)
	return c.JSON(fiber.Map{
		"role":    user.PrimaryRole(),
		"profile": a.console.Profiles.Check(c.Context(), user.PrimaryRole()),
	})
}

func (a *Adapter) adminOverview(c fiber.Ctx) error {
	pages := a.console.Pages
	err := pages.AdminOverview(c.Context())
	return c.JSON(fiber.Map{
		"users":         newPageResponse(pages.Users.State()),
		"logs":          newPageResponse(pages.Logs.State()),
		"opportunities": newPageResponse(pages.Opportunities.State()),
		"error":         newErrorBody(err),
	})
}

func (a *Adapter) listUsers(c fiber.Ctx) error {
	return c.JSON(newPageResponse(a.console.Pages.Users.Load(c.Context(), listParams(c))))
}

func (a *Adapter) listLogs(c fiber.Ctx) error {
	return c.JSON(newPageResponse(a.console.Pages.Logs.Load(c.Context(), listParams(c))))
}

func (a *Adapter) listFeedback(c fiber.Ctx) error {
	return c.JSON(newPageResponse(a.console.Pages.Feedback.Load(c.Context(), listParams(c))))
}

func (a *Adapter) listOpportunities(c fiber.Ctx) error {
	return c.JSON(newPageResponse(a.console.Pages.Opportunities.Load(c.Context(), listParams(c))))
}

// searchOpportunities feeds the debounced search box; the result is picked
// up by a later GET.
func (a *Adapter) searchOpportunities(c fiber.Ctx) error {
	var input struct {
		Search string `json:"search"`
	}
	if err := c.Bind().Body(&input); err != nil {
		return invalidBody(c)
	}
	a.console.Pages.SearchOpportunities(input.Search)
	return c.Status(http.StatusAccepted).JSON(newPageResponse(a.console.Pages.Opportunities.State()))
}

func (a *Adapter) listApplications(c fiber.Ctx) error {
	res := newPageResponse(a.console.Pages.Applications.Load(c.Context(), listParams(c)))
	res.Stats = a.console.Pages.ApplicationStats()
	return c.JSON(res)
}

func (a *Adapter) listAssignments(c fiber.Ctx) error {
	return c.JSON(newPageResponse(a.console.Pages.Assignments.Load(c.Context(), listParams(c))))
}

func (a *Adapter) listMessages(c fiber.Ctx) error {
	return c.JSON(newPageResponse(a.console.Pages.Messages.Load(c.Context(), listParams(c))))
}

func (a *Adapter) toggleUser(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return handleError(c, err)
	}
	if err := a.console.Pages.ToggleUserActive(c.Context(), id); err != nil {
		return handleError(c, err)
	}
	return c.JSON(newPageResponse(a.console.Pages.Users.State()))
}

func (a *Adapter) reviewApplication(c fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return handleError(c, err)
	}
	var input struct {
		Status core.ApplicationStatus `json:"status"`
	}
	if err := c.Bind().Body(&input); err != nil {
		return invalidBody(c)
	}
	if err := a.console.Pages.ReviewApplication(c.Context(), id, input.Status); err != nil {
		return handleError(c, err)
	}
	res := newPageResponse(a.console.Pages.Applications.State())
	res.Stats = a.console.Pages.ApplicationStats()
	return c.JSON(res)
}

// listParams reads search, status, page and per_page from the query string
func listParams(c fiber.Ctx) core.ListParams {
	return core.ListParams{
		Search:  c.Query("search"),
		Status:  c.Query("status"),
		Page:    fiber.Query[int](c, "page"),
		PerPage: fiber.Query[int](c, "per_page"),
	}
}

func pathID(c fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError(map[string][]string{"id": {"The id must be a positive integer."}})
	}
	return id, nil
}

func invalidBody(c fiber.Ctx) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{
		"error": newErrorBody(core.NewValidationError(nil)),
	})
}

// handleError maps console errors to appropriate HTTP responses
func handleError(c fiber.Ctx, err error) error {
	return c.Status(mapErrorToStatus(err)).JSON(fiber.Map{
		"error": newErrorBody(err),
	})
}

// mapErrorToStatus maps error categories to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, fetch.ErrBusy) {
		return http.StatusConflict
	}

	switch core.CategoryOf(err) {
	case core.CategoryUnauthenticated:
		return http.StatusUnauthorized
	case core.CategoryUnauthorized:
		return http.StatusForbidden
	case core.CategoryNotFound:
		return http.StatusNotFound
	case core.CategoryValidation:
		return http.StatusUnprocessableEntity
	case core.CategoryServerError:
		return http.StatusBadGateway
	default:
		return http.StatusServiceUnavailable
	}
}
