package core

// EndpointProvider provides a list of endpoints to register dynamically
type EndpointProvider interface {
	GetEndpoints() []Endpoint
}

// Endpoint describes one backend REST operation.
//
// Path may contain {placeholders} that are filled in per request.
type Endpoint struct {
	Operation string
	Method    string
	Path      string
	// Authenticated endpoints carry the bearer token and report a 401 as an
	// expired session.
	Authenticated bool
	Metadata      EndpointMetadata
}

type EndpointMetadata struct {
	Description string
	// Envelope is the resource key tried when a list response is wrapped
	// as {"<resource>": [...]}.
	Envelope string
}

// Operation names of the base endpoints.
const (
	OpMe                = "me"
	OpLogin             = "login"
	OpRegister          = "register"
	OpLogout            = "logout"
	OpProfile           = "profile"
	OpListUsers         = "users.list"
	OpSetUserActive     = "users.active"
	OpListLogs          = "logs.list"
	OpListFeedback      = "feedback.list"
	OpListOpportunities = "opportunities.list"
	OpListApplications  = "applications.list"
	OpSetApplication    = "applications.status"
	OpListAssignments   = "assignments.list"
	OpListMessages      = "messages.list"
)
