package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lborres/volunteer/core"
	"github.com/lborres/volunteer/pkg/cache"
	"github.com/lborres/volunteer/pkg/crypto"
	"github.com/lborres/volunteer/pkg/logging"
	"github.com/lborres/volunteer/pkg/metrics"
)

const DefaultProfileCacheTTL = 2 * time.Minute

// ProfileGate reports whether the role profile of the current user is
// complete. It is orthogonal to role checks and never redirects.
//
// The gate fails open: any probe error other than the backend's
// PROFILE_INCOMPLETE answer is reported as complete so a transient failure
// never locks a user out of their pages.
type ProfileGate struct {
	api    core.ProfileAPI
	tokens core.TokenSource
	cache  *cache.InMemoryCache[core.ProfileCompletion]
	log    logrus.FieldLogger
}

func NewProfileGate(api core.ProfileAPI, tokens core.TokenSource, ttl time.Duration, log logrus.FieldLogger) *ProfileGate {
	if ttl <= 0 {
		ttl = DefaultProfileCacheTTL
	}
	return &ProfileGate{
		api:    api,
		tokens: tokens,
		cache:  cache.NewInMemoryCache[core.ProfileCompletion](cache.Config{TTL: ttl, MaxSize: 64}),
		log:    logging.OrDiscard(log),
	}
}

// Check probes the profile endpoint of role for the current token.
func (g *ProfileGate) Check(ctx context.Context, role core.RoleName) core.ProfileCompletion {
	role = core.NormalizeRole(string(role))
	token := g.tokens.CurrentToken()
	if !core.RequiresProfile(role) || token == "" {
		return core.ProfileComplete()
	}

	key := crypto.HashToken(token) + ":" + string(role)
	if cached, err := g.cache.Get(key); err == nil {
		return cached
	}

	result, cacheable := g.probe(ctx, token, role)
	if cacheable {
		_ = g.cache.Set(key, result)
	}
	return result
}

func (g *ProfileGate) probe(ctx context.Context, token string, role core.RoleName) (core.ProfileCompletion, bool) {
	err := g.api.ProbeProfile(ctx, token, role)
	if err == nil {
		metrics.RecordProfileCheck(string(role), "complete")
		return core.ProfileComplete(), true
	}

	if errors.Is(err, core.ErrProfileIncomplete) {
		var apiErr *core.APIError
		missing := []string{}
		if errors.As(err, &apiErr) && apiErr.Requirements != nil {
			missing = append(missing, apiErr.Requirements...)
		}
		metrics.RecordProfileCheck(string(role), "incomplete")
		return core.ProfileCompletion{IsComplete: false, MissingFields: missing}, true
	}

	g.log.WithError(err).WithFields(logrus.Fields{
		"role":     role,
		"category": core.CategoryOf(err).String(),
	}).Warn("profile probe failed, treating profile as complete")
	metrics.RecordProfileCheck(string(role), "fail_open")
	return core.ProfileComplete(), false
}

// Invalidate drops every cached result. It is called on each session
// transition so a new token never sees the previous user's answer.
func (g *ProfileGate) Invalidate() {
	_ = g.cache.Clear()
}

// Bind invalidates the gate on every transition of sessions.
func (g *ProfileGate) Bind(sessions *SessionManager) func() {
	return sessions.Subscribe(func(core.State) { g.Invalidate() })
}
