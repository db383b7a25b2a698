package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lborres/volunteer/core"
	"github.com/lborres/volunteer/pkg/fetch"
	"github.com/lborres/volunteer/pkg/logging"
)

// Loader types of the dashboard pages.
type (
	UsersLoader         = fetch.Loader[core.ListParams, []core.UserAccount]
	LogsLoader          = fetch.Loader[core.ListParams, []core.SystemLog]
	FeedbackLoader      = fetch.Loader[core.ListParams, []core.Feedback]
	OpportunitiesLoader = fetch.Loader[core.ListParams, []core.Opportunity]
	ApplicationsLoader  = fetch.Loader[core.ListParams, []core.Application]
	AssignmentsLoader   = fetch.Loader[core.ListParams, []core.Assignment]
	MessagesLoader      = fetch.Loader[core.ListParams, []core.Message]
)

// Pages owns the data of every dashboard page of the single console session.
type Pages struct {
	api    core.ResourceAPI
	tokens core.TokenSource
	log    logrus.FieldLogger

	// admin
	Users    *UsersLoader
	Logs     *LogsLoader
	Feedback *FeedbackLoader
	// organization and volunteer
	Opportunities *OpportunitiesLoader
	Applications  *ApplicationsLoader
	Assignments   *AssignmentsLoader
	Messages      *MessagesLoader

	UserToggle        fetch.Action
	ApplicationReview fetch.Action

	userSearch        *fetch.Debouncer[string]
	opportunitySearch *fetch.Debouncer[string]

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	lastGen uint64
}

// PagesConfig configures the dashboards.
type PagesConfig struct {
	// Debounce is the quiet period of search inputs.
	Debounce time.Duration
}

func NewPages(api core.ResourceAPI, tokens core.TokenSource, config PagesConfig, log logrus.FieldLogger) *Pages {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pages{
		api:    api,
		tokens: tokens,
		log:    logging.OrDiscard(log),
		ctx:    ctx,
		cancel: cancel,
	}

	p.Users = fetch.NewLoader(authorized(tokens, api.ListUsers), []core.UserAccount{})
	p.Logs = fetch.NewLoader(authorized(tokens, api.ListLogs), []core.SystemLog{})
	p.Feedback = fetch.NewLoader(authorized(tokens, api.ListFeedback), []core.Feedback{})
	p.Opportunities = fetch.NewLoader(authorized(tokens, api.ListOpportunities), []core.Opportunity{})
	p.Applications = fetch.NewLoader(authorized(tokens, api.ListApplications), []core.Application{})
	p.Assignments = fetch.NewLoader(authorized(tokens, api.ListAssignments), []core.Assignment{})
	p.Messages = fetch.NewLoader(authorized(tokens, api.ListMessages), []core.Message{})

	p.userSearch = fetch.NewDebouncer(config.Debounce, func(search string) {
		params := p.Users.Params()
		params.Search = search
		params.Page = 0
		p.Users.Load(p.ctx, params)
	})
	p.opportunitySearch = fetch.NewDebouncer(config.Debounce, func(search string) {
		params := p.Opportunities.Params()
		params.Search = search
		params.Page = 0
		p.Opportunities.Load(p.ctx, params)
	})

	return p
}

// authorized binds a list endpoint to the current session token.
func authorized[T any](
	tokens core.TokenSource,
	list func(ctx context.Context, token string, params core.ListParams) ([]T, error),
) fetch.Fetcher[core.ListParams, []T] {
	return func(ctx context.Context, params core.ListParams) ([]T, error) {
		token := tokens.CurrentToken()
		if token == "" {
			return nil, core.ErrNotAuthenticated
		}
		items, err := list(ctx, token, params)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	}
}

// SearchUsers debounces the admin user search input.
func (p *Pages) SearchUsers(search string) { p.userSearch.Push(search) }

// SearchOpportunities debounces the volunteer opportunity search input.
func (p *Pages) SearchOpportunities(search string) { p.opportunitySearch.Push(search) }

// ToggleUserActive flips the active flag of a user row optimistically and
// reconciles with a refetch.
func (p *Pages) ToggleUserActive(ctx context.Context, id int64) error {
	return p.UserToggle.Run(ctx, func(ctx context.Context) error {
		var (
			found  bool
			active bool
		)
		for _, u := range p.Users.State().Data {
			if u.ID == id {
				found, active = true, !u.IsActive
				break
			}
		}
		if !found {
			return &core.APIError{Category: core.CategoryNotFound, Message: fmt.Sprintf("user %d is not listed", id)}
		}

		err := fetch.Optimistic(ctx, p.Users,
			func(rows []core.UserAccount) []core.UserAccount {
				out := make([]core.UserAccount, len(rows))
				copy(out, rows)
				for i := range out {
					if out[i].ID == id {
						out[i].IsActive = active
					}
				}
				return out
			},
			func(ctx context.Context) error {
				return p.api.SetUserActive(ctx, p.tokens.CurrentToken(), id, active)
			},
		)
		p.logMutation("toggle user active", id, err)
		return err
	})
}

// ReviewApplication accepts or rejects an application optimistically and
// reconciles with a refetch.
func (p *Pages) ReviewApplication(ctx context.Context, id int64, status core.ApplicationStatus) error {
	if status != core.ApplicationAccepted && status != core.ApplicationRejected {
		return core.NewValidationError(map[string][]string{
			"status": {"The selected status is invalid."},
		})
	}

	return p.ApplicationReview.Run(ctx, func(ctx context.Context) error {
		err := fetch.Optimistic(ctx, p.Applications,
			func(rows []core.Application) []core.Application {
				out := make([]core.Application, len(rows))
				copy(out, rows)
				for i := range out {
					if out[i].ID == id {
						out[i].Status = status
					}
				}
				return out
			},
			func(ctx context.Context) error {
				return p.api.SetApplicationStatus(ctx, p.tokens.CurrentToken(), id, status)
			},
		)
		p.logMutation("review application", id, err)
		return err
	})
}

func (p *Pages) logMutation(action string, id int64, err error) {
	entry := p.log.WithFields(logrus.Fields{"action": action, "id": id})
	if err != nil {
		entry.WithError(err).Warn("mutation failed")
		return
	}
	entry.Debug("mutation applied")
}

// ApplicationStats derives per-status counts from the loaded applications.
func (p *Pages) ApplicationStats() map[core.ApplicationStatus]int {
	return core.ApplicationStats(p.Applications.State().Data)
}

// AdminOverview refreshes the admin panels concurrently. A failing panel
// keeps its previous data and does not stop the others; the first failure
// is returned.
func (p *Pages) AdminOverview(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return p.Users.Reload(ctx).Err })
	g.Go(func() error { return p.Logs.Reload(ctx).Err })
	g.Go(func() error { return p.Opportunities.Reload(ctx).Err })
	return g.Wait()
}

// Reset drops all page data and pending searches.
func (p *Pages) Reset() {
	p.userSearch.Cancel()
	p.opportunitySearch.Cancel()
	p.Users.Reset()
	p.Logs.Reset()
	p.Feedback.Reset()
	p.Opportunities.Reset()
	p.Applications.Reset()
	p.Assignments.Reset()
	p.Messages.Reset()
}

// Bind resets the pages whenever the session token changes, so one user
// never sees data loaded for another.
func (p *Pages) Bind(sessions *SessionManager) func() {
	p.mu.Lock()
	p.lastGen = sessions.Snapshot().Generation
	p.mu.Unlock()

	return sessions.Subscribe(func(s core.State) {
		p.mu.Lock()
		changed := s.Generation != p.lastGen
		p.lastGen = s.Generation
		p.mu.Unlock()

		if changed {
			p.Reset()
		}
	})
}

// Close stops every page; in-flight results are ignored.
func (p *Pages) Close() {
	p.cancel()
	p.userSearch.Stop()
	p.opportunitySearch.Stop()
	p.Users.Close()
	p.Logs.Close()
	p.Feedback.Close()
	p.Opportunities.Close()
	p.Applications.Close()
	p.Assignments.Close()
	p.Messages.Close()
}
