package services

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lborres/volunteer/core"
	"github.com/lborres/volunteer/pkg/crypto"
	"github.com/lborres/volunteer/pkg/logging"
	"github.com/lborres/volunteer/pkg/metrics"
)

// SessionManager hosts the auth state machine of the console.
//
// It is the only writer of the token store. Transitions are serialised; the
// store is written before the new state is published to subscribers.
// Subscribers may read the manager (Snapshot, CurrentToken) but must not
// start transitions from inside the callback.
type SessionManager struct {
	store    core.TokenStore
	resolver *SessionResolver
	log      logrus.FieldLogger

	transition sync.Mutex

	mu        sync.RWMutex
	state     core.State
	listeners map[int]func(core.State)
	nextID    int
}

var _ core.TokenSource = (*SessionManager)(nil)

func NewSessionManager(store core.TokenStore, resolver *SessionResolver, log logrus.FieldLogger) *SessionManager {
	return &SessionManager{
		store:     store,
		resolver:  resolver,
		log:       logging.OrDiscard(log),
		listeners: make(map[int]func(core.State)),
	}
}

// Snapshot returns the current state.
func (sm *SessionManager) Snapshot() core.State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state
}

// CurrentToken returns the bearer token of the session, verified or not.
func (sm *SessionManager) CurrentToken() string {
	return sm.Snapshot().Token
}

// Subscribe registers fn for every published state and returns an
// unsubscribe function.
func (sm *SessionManager) Subscribe(fn func(core.State)) func() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	id := sm.nextID
	sm.nextID++
	sm.listeners[id] = fn

	return func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		delete(sm.listeners, id)
	}
}

// Start reads the stored token and resolves it. It blocks until the session
// has settled and returns the settled state.
func (sm *SessionManager) Start(ctx context.Context) core.State {
	token, err := sm.store.Read()
	if err != nil {
		sm.log.WithError(err).Warn("failed to read token store, starting anonymous")
		token = ""
	}

	sm.transition.Lock()
	begun := sm.Snapshot().Begin(token)
	sm.publish(begun)
	sm.transition.Unlock()

	if token == "" {
		return begun
	}

	user, outcome, err := sm.resolver.Resolve(ctx, token)
	return sm.settle(begun.Generation, token, user, outcome, err)
}

// Refresh re-reads the token store and resolves again, e.g. after the token
// was changed outside the process.
func (sm *SessionManager) Refresh(ctx context.Context) core.State {
	return sm.Start(ctx)
}

func (sm *SessionManager) settle(gen uint64, token string, user *core.Identity, outcome Outcome, err error) core.State {
	sm.transition.Lock()
	defer sm.transition.Unlock()

	current := sm.Snapshot()
	log := sm.log.WithFields(logrus.Fields{
		"token":      crypto.Fingerprint(token),
		"generation": gen,
	})

	var (
		next    core.State
		applied bool
	)
	switch outcome {
	case OutcomeVerified:
		next, applied = current.Resolved(gen, user)
	case OutcomeAbandoned:
		next, applied = current.Abandoned(gen)
	default:
		next, applied = current.Rejected(gen)
	}

	if !applied {
		metrics.RecordStale("session")
		log.Debug("discarding superseded session resolution")
		return current
	}

	if outcome == OutcomeInvalid {
		if clearErr := sm.store.Clear(); clearErr != nil {
			log.WithError(clearErr).Warn("failed to clear rejected token")
		}
		log.WithError(err).Info("stored token rejected, session cleared")
	} else if outcome == OutcomeVerified {
		log.WithField("user_id", user.ID).Info("session resolved")
	}

	sm.publish(next)
	return next
}

// Expire force-logs-out the session when token is still the current
// authenticated token. It reports whether a teardown happened.
func (sm *SessionManager) Expire(token string) bool {
	sm.transition.Lock()
	defer sm.transition.Unlock()

	current := sm.Snapshot()
	if !current.Authenticated() || !crypto.SameToken(current.Token, token) {
		return false
	}

	sm.log.WithField("token", crypto.Fingerprint(token)).Info("session expired by backend")
	sm.teardown(current)
	return true
}

// commitLogin persists token and publishes the authenticated state.
func (sm *SessionManager) commitLogin(token string, user *core.Identity) core.State {
	sm.transition.Lock()
	defer sm.transition.Unlock()

	if err := sm.store.Write(token); err != nil {
		sm.log.WithError(err).Warn("failed to persist token, session will not survive a restart")
	}

	next := sm.Snapshot().LoggedIn(token, user)
	sm.publish(next)
	return next
}

// commitLogout clears the store and publishes the anonymous state.
func (sm *SessionManager) commitLogout() core.State {
	sm.transition.Lock()
	defer sm.transition.Unlock()
	return sm.teardown(sm.Snapshot())
}

func (sm *SessionManager) teardown(current core.State) core.State {
	if err := sm.store.Clear(); err != nil {
		sm.log.WithError(err).Warn("failed to clear token store")
	}
	next := current.LoggedOut()
	sm.publish(next)
	return next
}

// publish must be called with the transition lock held.
func (sm *SessionManager) publish(next core.State) {
	if err := next.Valid(); err != nil {
		// unreachable through the transition functions
		sm.log.WithError(err).Error("refusing to publish invalid session state")
		return
	}

	sm.mu.Lock()
	sm.state = next
	fns := make([]func(core.State), 0, len(sm.listeners))
	for _, fn := range sm.listeners {
		fns = append(fns, fn)
	}
	sm.mu.Unlock()

	metrics.RecordTransition(next.Phase().String())
	for _, fn := range fns {
		fn(next)
	}
}
