package core

import "context"

// Ports define interfaces for external dependencies
// ============================================
// BACKEND PORTS (REST API)
// ============================================

// AuthAPI defines the session endpoints of the backend
type AuthAPI interface {
	Me(ctx context.Context, token string) (*Identity, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Logout(ctx context.Context, token string) error
}

// ProfileAPI probes the role-specific profile record. A nil error means the
// profile is complete.
type ProfileAPI interface {
	ProbeProfile(ctx context.Context, token string, role RoleName) error
}

// ResourceAPI defines the dashboard resource endpoints
type ResourceAPI interface {
	ListUsers(ctx context.Context, token string, params ListParams) ([]UserAccount, error)
	SetUserActive(ctx context.Context, token string, id int64, active bool) error
	ListLogs(ctx context.Context, token string, params ListParams) ([]SystemLog, error)
	ListFeedback(ctx context.Context, token string, params ListParams) ([]Feedback, error)
	ListOpportunities(ctx context.Context, token string, params ListParams) ([]Opportunity, error)
	ListApplications(ctx context.Context, token string, params ListParams) ([]Application, error)
	SetApplicationStatus(ctx context.Context, token string, id int64, status ApplicationStatus) error
	ListAssignments(ctx context.Context, token string, params ListParams) ([]Assignment, error)
	ListMessages(ctx context.Context, token string, params ListParams) ([]Message, error)
}

// BackendAPI is the full REST surface used by the console
type BackendAPI interface {
	AuthAPI
	ProfileAPI
	ResourceAPI
}

// ============================================
// SESSION PORT
// ============================================

// TokenSource exposes the current bearer token to data-bound pages without
// granting write access to the session.
type TokenSource interface {
	CurrentToken() string
}
