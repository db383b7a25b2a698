package services

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/lborres/volunteer/core"
)

// BaseEndpoints returns the backend REST operations used by the console.
//
// Paths are relative to the API base URL. {role} and {id} are filled in per
// request by the client.
func BaseEndpoints() []core.Endpoint {
	return []core.Endpoint{
		{
			Operation: core.OpMe, Method: http.MethodGet, Path: "/user", Authenticated: true,
			Metadata: core.EndpointMetadata{Description: "Resolve the user behind the bearer token", Envelope: "user"},
		},
		{
			Operation: core.OpLogin, Method: http.MethodPost, Path: "/login",
			Metadata: core.EndpointMetadata{Description: "Log in with email and password"},
		},
		{
			Operation: core.OpRegister, Method: http.MethodPost, Path: "/register",
			Metadata: core.EndpointMetadata{Description: "Register a volunteer or organization account"},
		},
		{
			Operation: core.OpLogout, Method: http.MethodPost, Path: "/logout", Authenticated: true,
			Metadata: core.EndpointMetadata{Description: "Invalidate the bearer token server-side"},
		},
		{
			Operation: core.OpProfile, Method: http.MethodGet, Path: "/{role}/profile", Authenticated: true,
			Metadata: core.EndpointMetadata{Description: "Fetch the role profile, 422 PROFILE_INCOMPLETE when missing"},
		},
		{
			Operation: core.OpListUsers, Method: http.MethodGet, Path: "/admin/users", Authenticated: true,
			Metadata: core.EndpointMetadata{Description: "List user accounts", Envelope: "users"},
		},
		{
			Operation: core.OpSetUserActive, Method: http.MethodPatch, Path: "/admin/users/{id}", Authenticated: true,
			Metadata: core.EndpointMetadata{Description: "Activate or deactivate a user account"},
		},
		{
			Operation: core.OpListLogs, Method: http.MethodGet, Path: "/admin/logs", Authenticated: true,
			Metadata: core.EndpointMetadata{Description: "List system logs", Envelope: "logs"},
		},
		{
			Operation: core.OpListFeedback, Method: http.MethodGet, Path: "/feedback", Authenticated: true,
			Metadata: core.EndpointMetadata{Description: "List feedback entries", Envelope: "feedback"},
		},
		{
			Operation: core.OpListOpportunities, Method: http.MethodGet, Path: "/opportunities", Authenticated: true,
			Metadata: core.EndpointMetadata{Description: "List volunteering opportunities", Envelope: "opportunities"},
		},
		{
			Operation: core.OpListApplications, Method: http.MethodGet, Path: "/applications", Authenticated: true,
			Metadata: core.EndpointMetadata{Description: "List applications", Envelope: "applications"},
		},
		{
			Operation: core.OpSetApplication, Method: http.MethodPatch, Path: "/applications/{id}", Authenticated: true,
			Metadata: core.EndpointMetadata{Description: "Accept or reject an application"},
		},
		{
			Operation: core.OpListAssignments, Method: http.MethodGet, Path: "/task-assignments", Authenticated: true,
			Metadata: core.EndpointMetadata{Description: "List task assignments", Envelope: "assignments"},
		},
		{
			Operation: core.OpListMessages, Method: http.MethodGet, Path: "/messages", Authenticated: true,
			Metadata: core.EndpointMetadata{Description: "List messages", Envelope: "messages"},
		},
	}
}

// EndpointRegistry holds the backend endpoints keyed by operation and
// rejects duplicate METHOD:PATH combinations.
//
// It starts with the base endpoints; Override replaces the route of an
// existing operation, e.g. for a backend mounted under different paths.
type EndpointRegistry struct {
	mu    sync.RWMutex
	byOp  map[string]*core.Endpoint
	byKey map[string]string
}

// NewEndpointRegistry creates a new registry with all base endpoints
// pre-registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		byOp:  make(map[string]*core.Endpoint),
		byKey: make(map[string]string),
	}

	for _, ep := range BaseEndpoints() {
		// base set is conflict-free
		_ = reg.register(ep)
	}

	return reg
}

func routeKey(ep core.Endpoint) string {
	return fmt.Sprintf("%s:%s", ep.Method, ep.Path)
}

func (r *EndpointRegistry) register(ep core.Endpoint) error {
	key := routeKey(ep)

	if owner, exists := r.byKey[key]; exists && owner != ep.Operation {
		return fmt.Errorf("endpoint conflict: %s %s already registered by %q", ep.Method, ep.Path, owner)
	}
	if _, exists := r.byOp[ep.Operation]; exists {
		return fmt.Errorf("endpoint conflict: operation %q already registered", ep.Operation)
	}

	r.byOp[ep.Operation] = &ep
	r.byKey[key] = ep.Operation
	return nil
}

// Register adds extra endpoints. Nothing is registered if any endpoint
// conflicts with an existing one or with another in the same batch.
func (r *EndpointRegistry) Register(endpoints []core.Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seenKeys := make(map[string]bool)
	seenOps := make(map[string]bool)
	for _, ep := range endpoints {
		key := routeKey(ep)
		if _, exists := r.byKey[key]; exists {
			return fmt.Errorf("endpoint conflict: %s %s already registered", ep.Method, ep.Path)
		}
		if _, exists := r.byOp[ep.Operation]; exists {
			return fmt.Errorf("endpoint conflict: operation %q already registered", ep.Operation)
		}
		if seenKeys[key] || seenOps[ep.Operation] {
			return fmt.Errorf("batch contains duplicate endpoint: %s %s (%s)", ep.Method, ep.Path, ep.Operation)
		}
		seenKeys[key] = true
		seenOps[ep.Operation] = true
	}

	for _, ep := range endpoints {
		if err := r.register(ep); err != nil {
			return err
		}
	}
	return nil
}

// Override changes the method and path of a registered operation.
func (r *EndpointRegistry) Override(operation, method, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep, ok := r.byOp[operation]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrEndpointNotFound, operation)
	}

	next := *ep
	next.Method = method
	next.Path = path
	key := routeKey(next)
	if owner, exists := r.byKey[key]; exists && owner != operation {
		return fmt.Errorf("endpoint conflict: %s %s already registered by %q", method, path, owner)
	}

	delete(r.byKey, routeKey(*ep))
	r.byOp[operation] = &next
	r.byKey[key] = operation
	return nil
}

// Lookup returns the endpoint of an operation.
func (r *EndpointRegistry) Lookup(operation string) (core.Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.byOp[operation]
	if !ok {
		return core.Endpoint{}, fmt.Errorf("%w: %s", core.ErrEndpointNotFound, operation)
	}
	return *ep, nil
}

// Endpoints returns all registered endpoints ordered by operation.
func (r *EndpointRegistry) Endpoints() []core.Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]core.Endpoint, 0, len(r.byOp))
	for _, ep := range r.byOp {
		result = append(result, *ep)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Operation < result[j].Operation })
	return result
}
