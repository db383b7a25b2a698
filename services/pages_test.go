package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/volunteer/core"
	"github.com/lborres/volunteer/pkg/fetch"
)

var errOffline = &core.APIError{Category: core.CategoryNetwork, Err: errors.New("connection refused")}

func newTestPages(api *FakeBackend, tokens core.TokenSource) *Pages {
	p := NewPages(api, tokens, PagesConfig{Debounce: 20 * time.Millisecond}, nil)
	return p
}

// Requirement: derived stats follow the loaded list, and a failed refetch keeps
// the previous list visible while reporting the error.
func TestPages_Applications_StaleButVisible(t *testing.T) {
	// Arrange
	api := NewFakeBackend()
	api.SetApplications([]core.Application{{ID: 1, Status: core.ApplicationPending}})
	pages := newTestPages(api, fakeTokens("T"))
	defer pages.Close()
	ctx := context.Background()

	// Act
	first := pages.Applications.Load(ctx, core.ListParams{})
	stats := pages.ApplicationStats()
	api.SetListError(core.OpListApplications, errOffline)
	second := pages.Applications.Reload(ctx)

	// Assert
	require.NoError(t, first.Err)
	assert.Equal(t, 1, stats[core.ApplicationPending])
	assert.Equal(t, 0, stats[core.ApplicationAccepted])

	assert.False(t, second.Loading)
	assert.ErrorIs(t, second.Err, core.ErrNetwork)
	assert.Len(t, second.Data, 1)
	assert.Equal(t, int64(1), second.Data[0].ID)
	assert.Equal(t, 1, pages.ApplicationStats()[core.ApplicationPending])
	assert.Equal(t, fetch.ViewError, fetch.View(second, fetch.EmptySlice[core.Application]))
}

// Requirement: list pages need a session token and never call the backend without one.
func TestPages_NoToken(t *testing.T) {
	api := NewFakeBackend()
	pages := newTestPages(api, fakeTokens(""))
	defer pages.Close()

	s := pages.Users.Load(context.Background(), core.ListParams{})

	assert.ErrorIs(t, s.Err, core.ErrNotAuthenticated)
	assert.Equal(t, core.CategoryUnauthenticated, s.Category())
	assert.Equal(t, 0, api.TotalCalls())
}

// Requirement: a burst of search keystrokes results in one request for the final value.
func TestPages_SearchOpportunities_Debounced(t *testing.T) {
	// Arrange
	api := NewFakeBackend()
	api.SetOpportunities([]core.Opportunity{{ID: 7, Title: "River cleanup"}})
	pages := newTestPages(api, fakeTokens("T"))
	defer pages.Close()

	// Act
	for _, q := range []string{"r", "ri", "riv", "rive", "river"} {
		pages.SearchOpportunities(q)
	}

	// Assert
	assert.Eventually(t, func() bool {
		return pages.Opportunities.State().Loaded
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	calls := api.ListCalls(core.OpListOpportunities)
	require.Len(t, calls, 1)
	assert.Equal(t, "river", calls[0].Search)
}

// Requirement: toggling a user is optimistic, reconciled by a refetch, and the control
// is released afterwards on success and failure.
func TestPages_ToggleUserActive(t *testing.T) {
	tests := []struct {
		name       string
		mutateErr  error
		wantErr    error
		wantActive bool
	}{
		{name: "accepted by server", wantActive: false},
		{name: "rejected by server", mutateErr: &core.APIError{Status: 403, Category: core.CategoryUnauthorized}, wantErr: core.ErrUnauthorized, wantActive: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			api := NewFakeBackend()
			api.SetAccounts([]core.UserAccount{{ID: 5, Name: "V", IsActive: true}})
			api.SetMutateError(core.OpSetUserActive, test.mutateErr)
			pages := newTestPages(api, fakeTokens("T"))
			defer pages.Close()
			ctx := context.Background()
			pages.Users.Load(ctx, core.ListParams{})

			// Act
			err := pages.ToggleUserActive(ctx, 5)

			// Assert
			if test.wantErr != nil {
				assert.ErrorIs(t, err, test.wantErr)
			} else {
				assert.NoError(t, err)
			}
			rows := pages.Users.State().Data
			require.Len(t, rows, 1)
			assert.Equal(t, test.wantActive, rows[0].IsActive)
			assert.False(t, pages.UserToggle.Busy())
			assert.Equal(t, 2, api.Calls(core.OpListUsers), "mutation is reconciled by a refetch")
		})
	}
}

func TestPages_ToggleUserActive_UnknownRow(t *testing.T) {
	api := NewFakeBackend()
	pages := newTestPages(api, fakeTokens("T"))
	defer pages.Close()

	err := pages.ToggleUserActive(context.Background(), 99)

	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, 0, api.Calls(core.OpSetUserActive))
}

// Requirement: reviews only accept or reject, and update the stats.
func TestPages_ReviewApplication(t *testing.T) {
	api := NewFakeBackend()
	api.SetApplications([]core.Application{
		{ID: 1, Status: core.ApplicationPending},
		{ID: 2, Status: core.ApplicationPending},
	})
	pages := newTestPages(api, fakeTokens("T"))
	defer pages.Close()
	ctx := context.Background()
	pages.Applications.Load(ctx, core.ListParams{})

	require.NoError(t, pages.ReviewApplication(ctx, 1, core.ApplicationAccepted))
	require.NoError(t, pages.ReviewApplication(ctx, 2, core.ApplicationRejected))
	err := pages.ReviewApplication(ctx, 2, core.ApplicationWithdrawn)

	assert.ErrorIs(t, err, core.ErrValidation)
	stats := pages.ApplicationStats()
	assert.Equal(t, 0, stats[core.ApplicationPending])
	assert.Equal(t, 1, stats[core.ApplicationAccepted])
	assert.Equal(t, 1, stats[core.ApplicationRejected])
	assert.False(t, pages.ApplicationReview.Busy())
}

// Requirement: the admin overview keeps healthy panels when another panel fails.
func TestPages_AdminOverview_PartialFailure(t *testing.T) {
	api := NewFakeBackend()
	api.SetAccounts([]core.UserAccount{{ID: 1}})
	api.SetOpportunities([]core.Opportunity{{ID: 2}})
	api.SetListError(core.OpListLogs, errOffline)
	pages := newTestPages(api, fakeTokens("T"))
	defer pages.Close()

	err := pages.AdminOverview(context.Background())

	assert.ErrorIs(t, err, core.ErrNetwork)
	assert.Len(t, pages.Users.State().Data, 1)
	assert.Len(t, pages.Opportunities.State().Data, 1)
	assert.Error(t, pages.Logs.State().Err)
}

// Requirement: page data is dropped when the session changes hands.
func TestPages_Bind_ResetsOnLogout(t *testing.T) {
	// Arrange
	store := NewFakeTokenStore("")
	api := NewFakeBackend()
	api.SetLogin(&core.AuthResult{Token: "T", User: volunteerUser}, nil)
	api.SetAccounts([]core.UserAccount{{ID: 1}})
	sm := newTestSession(store, api)
	auth := NewAuthService(api, sm, nil)
	pages := newTestPages(api, sm)
	defer pages.Close()
	unbind := pages.Bind(sm)
	defer unbind()
	ctx := context.Background()

	_, err := auth.Login(ctx, core.LoginInput{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	pages.Users.Load(ctx, core.ListParams{Search: "a"})
	require.Len(t, pages.Users.State().Data, 1)

	// Act
	auth.Logout(ctx)

	// Assert
	s := pages.Users.State()
	assert.Empty(t, s.Data)
	assert.False(t, s.Loaded)
	assert.Equal(t, core.ListParams{}, pages.Users.Params())
}
