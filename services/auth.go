package services

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/lborres/volunteer/core"
	"github.com/lborres/volunteer/pkg/crypto"
	"github.com/lborres/volunteer/pkg/logging"
)

// AuthService performs the user-initiated transitions of the session:
// login, registration and logout.
type AuthService struct {
	api      core.AuthAPI
	sessions *SessionManager
	validate *validator.Validate
	log      logrus.FieldLogger
}

func NewAuthService(api core.AuthAPI, sessions *SessionManager, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		api:      api,
		sessions: sessions,
		validate: newValidator(),
		log:      logging.OrDiscard(log),
	}
}

// Login authenticates with email and password. On failure the session is
// left untouched.
func (s *AuthService) Login(ctx context.Context, input core.LoginInput) (core.State, error) {
	if err := validateInput(s.validate, input); err != nil {
		return s.sessions.Snapshot(), err
	}

	result, err := s.api.Login(ctx, input)
	if err != nil {
		if errors.Is(err, core.ErrUnauthenticated) {
			return s.sessions.Snapshot(), core.ErrInvalidCredentials
		}
		return s.sessions.Snapshot(), err
	}
	if err := checkAuthResult(result); err != nil {
		return s.sessions.Snapshot(), err
	}

	state := s.sessions.commitLogin(result.Token, result.User)
	s.log.WithFields(logrus.Fields{
		"user_id": result.User.ID,
		"role":    result.User.PrimaryRole(),
	}).Info("logged in")
	return state, nil
}

// Register creates a volunteer or organization account and logs it in.
func (s *AuthService) Register(ctx context.Context, input core.RegisterInput) (core.State, error) {
	input.Role = core.NormalizeRole(string(input.Role))
	if err := validateInput(s.validate, input); err != nil {
		return s.sessions.Snapshot(), err
	}

	result, err := s.api.Register(ctx, input)
	if err != nil {
		return s.sessions.Snapshot(), err
	}
	if err := checkAuthResult(result); err != nil {
		return s.sessions.Snapshot(), err
	}

	state := s.sessions.commitLogin(result.Token, result.User)
	s.log.WithFields(logrus.Fields{
		"user_id": result.User.ID,
		"role":    result.User.PrimaryRole(),
	}).Info("registered")
	return state, nil
}

// Logout invalidates the token server-side when possible and always tears
// the local session down. Server failures are logged, never returned.
func (s *AuthService) Logout(ctx context.Context) core.State {
	token := s.sessions.CurrentToken()
	if token != "" {
		if err := s.api.Logout(ctx, token); err != nil {
			s.log.WithError(err).WithField("token", crypto.Fingerprint(token)).Warn("server-side logout failed")
		}
	}

	state := s.sessions.commitLogout()
	s.log.Info("logged out")
	return state
}

var errMalformedAuth = errors.New("malformed auth response")

func checkAuthResult(result *core.AuthResult) error {
	if result == nil || result.Token == "" || result.User == nil {
		return &core.APIError{
			Category: core.CategoryServerError,
			Message:  "authentication response is missing the token or user",
			Err:      errMalformedAuth,
		}
	}
	return nil
}
