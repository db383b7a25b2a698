package services

import (
	"strings"
	"sync"

	"github.com/lborres/volunteer/core"
)

// DefaultLoginPath is the login entry point of the console.
const DefaultLoginPath = "/login"

// Decision is what a guarded page does for the current session.
type Decision int

const (
	// DecisionPending renders a loading indicator; the session is resolving.
	DecisionPending Decision = iota
	// DecisionAllow renders the page.
	DecisionAllow
	// DecisionRedirect sends the user to the login entry point.
	DecisionRedirect
	// DecisionBlocked renders nothing further: access is denied and a
	// redirect was either already issued or would loop.
	DecisionBlocked
)

func (d Decision) String() string {
	switch d {
	case DecisionPending:
		return "pending"
	case DecisionAllow:
		return "allow"
	case DecisionRedirect:
		return "redirect"
	default:
		return "blocked"
	}
}

// RouteGuard is declarative access control for a page or subtree.
type RouteGuard struct {
	LoginPath string
	// Required roles; the user needs at least one. Empty means any
	// authenticated user.
	Required core.RoleSet
}

func (g RouteGuard) loginPath() string {
	if g.LoginPath == "" {
		return DefaultLoginPath
	}
	return g.LoginPath
}

// Decide evaluates the guard for a page at path. It never redirects while
// the session is loading, and never redirects a page to itself.
func (g RouteGuard) Decide(state core.State, path string) Decision {
	if state.Loading {
		return DecisionPending
	}
	if g.permits(state.User) {
		return DecisionAllow
	}
	if samePath(path, g.loginPath()) {
		return DecisionBlocked
	}
	return DecisionRedirect
}

func (g RouteGuard) permits(user *core.Identity) bool {
	if user == nil {
		return false
	}
	if len(g.Required) == 0 {
		return true
	}
	return user.Roles.Intersects(g.Required)
}

func samePath(a, b string) bool {
	return strings.TrimRight(a, "/") == strings.TrimRight(b, "/")
}

// GuardMount is one mounted guarded page. It issues at most one redirect per
// session generation; repeated failing observations of the same session are
// reported as blocked.
type GuardMount struct {
	guard RouteGuard
	path  string

	mu           sync.Mutex
	redirected   bool
	redirectedAt uint64
}

func NewGuardMount(guard RouteGuard, path string) *GuardMount {
	return &GuardMount{guard: guard, path: path}
}

// Observe evaluates the guard against a published state.
func (m *GuardMount) Observe(state core.State) Decision {
	d := m.guard.Decide(state, m.path)
	if d != DecisionRedirect {
		return d
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.redirected && m.redirectedAt == state.Generation {
		return DecisionBlocked
	}
	m.redirected = true
	m.redirectedAt = state.Generation
	return DecisionRedirect
}

// LoginPath is where a redirect sends the user.
func (m *GuardMount) LoginPath() string { return m.guard.loginPath() }
