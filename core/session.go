package core

// Phase is the coarse state of the auth state machine.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseAnonymous
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseAnonymous:
		return "anonymous"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of the client session.
//
// Transitions are pure: every method returns a new State and never mutates
// the receiver. Generation is bumped on every token change so that a
// resolution can be keyed by the token it was validating.
type State struct {
	Token        string    `json:"-"`
	User         *Identity `json:"user"`
	AuthVerified bool      `json:"authVerified"`
	Loading      bool      `json:"loading"`
	Generation   uint64    `json:"generation"`
}

// Phase derives the state machine phase from the snapshot.
func (s State) Phase() Phase {
	switch {
	case s.Loading:
		return PhaseUnknown
	case s.User != nil:
		return PhaseAuthenticated
	default:
		return PhaseAnonymous
	}
}

func (s State) Authenticated() bool { return s.Phase() == PhaseAuthenticated }

// Valid checks the session invariant: a user is only ever present together
// with a token that has been verified.
func (s State) Valid() error {
	if s.User != nil && (s.Token == "" || !s.AuthVerified) {
		return ErrInvalidSessionState
	}
	return nil
}

// Begin starts resolution of a token read from the store. An absent token
// settles immediately to anonymous.
func (s State) Begin(token string) State {
	next := State{Token: token, Generation: s.Generation + 1}
	if token != "" {
		next.Loading = true
	}
	return next
}

// Resolved applies a successful validation for generation gen. The second
// return value is false when gen has been superseded and the result dropped.
func (s State) Resolved(gen uint64, user *Identity) (State, bool) {
	if gen != s.Generation || s.Token == "" {
		return s, false
	}
	if user == nil {
		return s.Rejected(gen)
	}
	s.User = user
	s.AuthVerified = true
	s.Loading = false
	return s, true
}

// Rejected applies a failed validation for generation gen: the token is
// dropped together with any user.
func (s State) Rejected(gen uint64) (State, bool) {
	if gen != s.Generation {
		return s, false
	}
	return State{Generation: s.Generation}, true
}

// Abandoned settles an in-flight resolution that was cancelled before the
// backend answered. The token is kept but never verified.
func (s State) Abandoned(gen uint64) (State, bool) {
	if gen != s.Generation {
		return s, false
	}
	s.User = nil
	s.AuthVerified = false
	s.Loading = false
	return s, true
}

// LoggedIn applies a successful login or registration.
func (s State) LoggedIn(token string, user *Identity) State {
	if token == "" || user == nil {
		return s
	}
	return State{
		Token:        token,
		User:         user,
		AuthVerified: true,
		Generation:   s.Generation + 1,
	}
}

// LoggedOut tears the session down entirely.
func (s State) LoggedOut() State {
	return State{Generation: s.Generation + 1}
}
