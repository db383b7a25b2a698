package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/lborres/volunteer/core"
	"github.com/lborres/volunteer/pkg/crypto"
	"github.com/lborres/volunteer/pkg/logging"
)

// Outcome is how a resolution attempt settles the session.
type Outcome int

const (
	// OutcomeVerified means the backend accepted the token.
	OutcomeVerified Outcome = iota
	// OutcomeInvalid means the token must be dropped from the store.
	OutcomeInvalid
	// OutcomeAbandoned means the caller gave up before the backend answered.
	OutcomeAbandoned
)

// SessionResolver turns a stored token into a user via the "who am I"
// endpoint. Concurrent resolutions of the same token share one request.
type SessionResolver struct {
	api   core.AuthAPI
	group singleflight.Group
	log   logrus.FieldLogger
}

func NewSessionResolver(api core.AuthAPI, log logrus.FieldLogger) *SessionResolver {
	return &SessionResolver{api: api, log: logging.OrDiscard(log)}
}

// Resolve validates token. An empty token resolves to no user without a
// network call. The shared request outlives a cancelled caller so other
// waiters still get an answer.
func (r *SessionResolver) Resolve(ctx context.Context, token string) (*core.Identity, Outcome, error) {
	if token == "" {
		return nil, OutcomeInvalid, nil
	}

	key := crypto.HashToken(token)
	ch := r.group.DoChan(key, func() (interface{}, error) {
		return r.api.Me(context.WithoutCancel(ctx), token)
	})

	select {
	case <-ctx.Done():
		r.log.WithField("token", crypto.Fingerprint(token)).Debug("session resolution abandoned")
		return nil, OutcomeAbandoned, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, classifyResolveError(res.Err), res.Err
		}
		user, _ := res.Val.(*core.Identity)
		if user == nil {
			return nil, OutcomeInvalid, core.ErrNotAuthenticated
		}
		return user, OutcomeVerified, nil
	}
}

// Any failure other than cancellation invalidates the token, with no retry.
func classifyResolveError(err error) Outcome {
	if errors.Is(err, context.Canceled) {
		return OutcomeAbandoned
	}
	return OutcomeInvalid
}
