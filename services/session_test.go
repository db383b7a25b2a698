package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/volunteer/core"
)

var volunteerUser = &core.Identity{ID: 1, Name: "A", Email: "a@b.com", Roles: core.Roles(core.RoleVolunteer)}

func newTestSession(store core.TokenStore, api core.AuthAPI) *SessionManager {
	return NewSessionManager(store, NewSessionResolver(api, nil), nil)
}

// recorder collects every published state and checks the session invariant.
type recorder struct {
	mu     sync.Mutex
	states []core.State
}

func (r *recorder) observe(s core.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) all() []core.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.State(nil), r.states...)
}

func assertInvariant(t *testing.T, states []core.State) {
	t.Helper()
	for i, s := range states {
		if s.User != nil {
			assert.NotEmpty(t, s.Token, "state %d has a user without a token", i)
			assert.True(t, s.AuthVerified, "state %d has a user without verification", i)
		}
	}
}

// Requirement: with no stored token startup settles anonymous without any network call.
func TestSessionManager_Start_NoToken(t *testing.T) {
	// Arrange
	store := NewFakeTokenStore("")
	api := NewFakeBackend()
	sm := newTestSession(store, api)

	// Act
	state := sm.Start(context.Background())

	// Assert
	assert.Equal(t, core.PhaseAnonymous, state.Phase())
	assert.False(t, state.Loading)
	assert.False(t, state.AuthVerified)
	assert.Nil(t, state.User)
	assert.Equal(t, 0, api.TotalCalls())
}

// Requirement: a stored token accepted by the backend resolves to the user.
func TestSessionManager_Start_ValidToken(t *testing.T) {
	store := NewFakeTokenStore("T")
	api := NewFakeBackend()
	api.SetUser("T", volunteerUser)
	sm := newTestSession(store, api)
	var rec recorder
	sm.Subscribe(rec.observe)

	state := sm.Start(context.Background())

	assert.Equal(t, core.PhaseAuthenticated, state.Phase())
	assert.True(t, state.AuthVerified)
	assert.Equal(t, "T", sm.CurrentToken())
	states := rec.all()
	require.Len(t, states, 2)
	assert.True(t, states[0].Loading, "resolution starts in the loading phase")
	assert.Equal(t, core.PhaseUnknown, states[0].Phase())
	assertInvariant(t, states)
}

// Requirement: a rejected stored token clears the store and no user is ever observable.
func TestSessionManager_Start_RejectedToken(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "401", err: &core.APIError{Status: 401, Category: core.CategoryUnauthenticated}},
		{name: "403", err: &core.APIError{Status: 403, Category: core.CategoryUnauthorized}},
		{name: "network", err: &core.APIError{Category: core.CategoryNetwork, Err: errors.New("connection refused")}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			store := NewFakeTokenStore("T")
			api := NewFakeBackend()
			api.SetMeError("T", test.err)
			sm := newTestSession(store, api)
			var rec recorder
			sm.Subscribe(rec.observe)

			// Act
			state := sm.Start(context.Background())

			// Assert
			assert.Equal(t, core.PhaseAnonymous, state.Phase())
			assert.Empty(t, state.Token)
			assert.Empty(t, store.Token())
			assert.Equal(t, 1, store.Clears())
			assert.Equal(t, 1, api.Calls(core.OpMe), "no retry")
			for _, s := range rec.all() {
				assert.Nil(t, s.User)
			}
		})
	}
}

// Requirement: a cancelled resolution keeps the token and settles anonymous-unverified.
func TestSessionManager_Start_Cancelled(t *testing.T) {
	// Arrange
	store := NewFakeTokenStore("T")
	api := NewFakeBackend()
	release := make(chan struct{})
	defer close(release)
	api.SetMeHook(func(ctx context.Context, token string) (*core.Identity, error) {
		<-release
		return volunteerUser, nil
	})
	sm := newTestSession(store, api)
	ctx, cancel := context.WithCancel(context.Background())

	// Act
	time.AfterFunc(10*time.Millisecond, cancel)
	state := sm.Start(ctx)

	// Assert
	assert.False(t, state.Loading)
	assert.Nil(t, state.User)
	assert.False(t, state.AuthVerified)
	assert.Equal(t, "T", state.Token)
	assert.Equal(t, "T", store.Token(), "cancellation is not a validation failure")
}

// Requirement: a resolution superseded by a login must not overwrite the newer state
// nor clear the newer token.
func TestSessionManager_StaleResolutionDiscarded(t *testing.T) {
	// Arrange
	store := NewFakeTokenStore("A")
	api := NewFakeBackend()
	started := make(chan struct{})
	release := make(chan struct{})
	api.SetMeHook(func(ctx context.Context, token string) (*core.Identity, error) {
		close(started)
		<-release
		return nil, &core.APIError{Status: 401, Category: core.CategoryUnauthenticated}
	})
	admin := &core.Identity{ID: 2, Name: "B", Roles: core.Roles(core.RoleAdmin)}
	api.SetLogin(&core.AuthResult{Token: "B", User: admin}, nil)
	sm := newTestSession(store, api)
	auth := NewAuthService(api, sm, nil)
	var rec recorder
	sm.Subscribe(rec.observe)

	done := make(chan core.State)
	go func() { done <- sm.Start(context.Background()) }()
	<-started

	// Act
	_, err := auth.Login(context.Background(), core.LoginInput{Email: "b@b.com", Password: "pw"})
	require.NoError(t, err)
	close(release)
	settled := <-done

	// Assert
	assert.Equal(t, "B", settled.Token)
	assert.Equal(t, admin, settled.User)
	assert.Equal(t, "B", store.Token(), "stale rejection must not clear the new token")
	assertInvariant(t, rec.all())
}

// Requirement: a backend 401 on the current token forces a logout; other tokens are ignored.
func TestSessionManager_Expire(t *testing.T) {
	store := NewFakeTokenStore("T")
	api := NewFakeBackend()
	api.SetUser("T", volunteerUser)
	sm := newTestSession(store, api)
	sm.Start(context.Background())

	assert.False(t, sm.Expire("OLD"), "a stale token must not log out the session")
	assert.True(t, sm.Snapshot().Authenticated())

	assert.True(t, sm.Expire("T"))
	state := sm.Snapshot()
	assert.Equal(t, core.PhaseAnonymous, state.Phase())
	assert.Empty(t, state.Token)
	assert.Empty(t, store.Token())

	assert.False(t, sm.Expire("T"), "already logged out")
}

// Requirement: an unreadable store starts anonymous instead of failing.
func TestSessionManager_Start_StoreReadError(t *testing.T) {
	store := NewFakeTokenStore("T")
	store.SetErrors(errors.New("disk gone"), nil, nil)
	api := NewFakeBackend()
	sm := newTestSession(store, api)

	state := sm.Start(context.Background())

	assert.Equal(t, core.PhaseAnonymous, state.Phase())
	assert.Equal(t, 0, api.TotalCalls())
}

// Requirement: Refresh picks up a token changed outside the process.
func TestSessionManager_Refresh(t *testing.T) {
	store := NewFakeTokenStore("")
	api := NewFakeBackend()
	api.SetUser("T", volunteerUser)
	sm := newTestSession(store, api)
	sm.Start(context.Background())

	require.NoError(t, store.Write("T"))
	state := sm.Refresh(context.Background())

	assert.True(t, state.Authenticated())
	assert.Equal(t, volunteerUser, state.User)
}

// Requirement: the store is written before subscribers see the authenticated state.
func TestSessionManager_StoreWrittenBeforePublish(t *testing.T) {
	store := NewFakeTokenStore("")
	api := NewFakeBackend()
	api.SetLogin(&core.AuthResult{Token: "T", User: volunteerUser}, nil)
	sm := newTestSession(store, api)
	auth := NewAuthService(api, sm, nil)

	var seen string
	sm.Subscribe(func(s core.State) {
		if s.Authenticated() {
			seen = store.Token()
		}
	})

	_, err := auth.Login(context.Background(), core.LoginInput{Email: "a@b.com", Password: "pw"})

	require.NoError(t, err)
	assert.Equal(t, "T", seen)
}

// Requirement: the session invariant holds across any sequence of transitions.
func TestSessionManager_InvariantAcrossSequence(t *testing.T) {
	store := NewFakeTokenStore("")
	api := NewFakeBackend()
	api.SetLogin(&core.AuthResult{Token: "T", User: volunteerUser}, nil)
	api.SetUser("T", volunteerUser)
	sm := newTestSession(store, api)
	auth := NewAuthService(api, sm, nil)
	var rec recorder
	sm.Subscribe(rec.observe)

	ctx := context.Background()
	sm.Start(ctx)
	_, _ = auth.Login(ctx, core.LoginInput{Email: "a@b.com", Password: "pw"})
	sm.Expire("T")
	_, _ = auth.Login(ctx, core.LoginInput{Email: "a@b.com", Password: "pw"})
	sm.Refresh(ctx)
	auth.Logout(ctx)
	auth.Logout(ctx)

	states := rec.all()
	require.NotEmpty(t, states)
	assertInvariant(t, states)
	for i := 1; i < len(states); i++ {
		assert.GreaterOrEqual(t, states[i].Generation, states[i-1].Generation)
	}
}

func TestSessionManager_Unsubscribe(t *testing.T) {
	sm := newTestSession(NewFakeTokenStore(""), NewFakeBackend())
	var rec recorder
	unsubscribe := sm.Subscribe(rec.observe)

	sm.Start(context.Background())
	unsubscribe()
	sm.Start(context.Background())

	assert.Len(t, rec.all(), 1)
}
