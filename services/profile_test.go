package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lborres/volunteer/core"
)

// Requirement: the probe distinguishes PROFILE_INCOMPLETE and fails open on anything else.
func TestProfileGate_Check(t *testing.T) {
	tests := []struct {
		name     string
		role     core.RoleName
		probeErr error
		want     core.ProfileCompletion
		wantCall int
	}{
		{
			name: "incomplete with requirements",
			role: core.RoleVolunteer,
			probeErr: &core.APIError{
				Status: 422, Category: core.CategoryValidation,
				Code: core.ProfileIncompleteCode, Requirements: []string{"bio", "location"},
			},
			want:     core.ProfileCompletion{IsComplete: false, MissingFields: []string{"bio", "location"}},
			wantCall: 1,
		},
		{
			name:     "complete",
			role:     core.RoleOrganization,
			want:     core.ProfileComplete(),
			wantCall: 1,
		},
		{
			name:     "server error fails open",
			role:     core.RoleVolunteer,
			probeErr: &core.APIError{Status: 500, Category: core.CategoryServerError},
			want:     core.ProfileComplete(),
			wantCall: 1,
		},
		{
			name: "incomplete code on a server error fails open",
			role: core.RoleVolunteer,
			probeErr: &core.APIError{
				Status: 500, Category: core.CategoryServerError,
				Code: core.ProfileIncompleteCode, Requirements: []string{"bio"},
			},
			want:     core.ProfileComplete(),
			wantCall: 1,
		},
		{
			name:     "other validation error fails open",
			role:     core.RoleVolunteer,
			probeErr: &core.APIError{Status: 422, Category: core.CategoryValidation, Code: "SOMETHING_ELSE"},
			want:     core.ProfileComplete(),
			wantCall: 1,
		},
		{
			name:     "network error fails open",
			role:     core.RoleOrganization,
			probeErr: errors.New("dial tcp: refused"),
			want:     core.ProfileComplete(),
			wantCall: 1,
		},
		{
			name:     "admin has no profile form",
			role:     core.RoleAdmin,
			want:     core.ProfileComplete(),
			wantCall: 0,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			api := NewFakeBackend()
			api.SetProfileError(test.role, test.probeErr)
			gate := NewProfileGate(api, fakeTokens("T"), 0, nil)

			// Act
			got := gate.Check(context.Background(), test.role)

			// Assert
			assert.Equal(t, test.want, got)
			assert.Equal(t, test.wantCall, api.Calls(core.OpProfile))
		})
	}
}

// Requirement: definite answers are cached per token, fail-open answers are not.
func TestProfileGate_Caching(t *testing.T) {
	api := NewFakeBackend()
	api.SetProfileError(core.RoleVolunteer, &core.APIError{Status: 422, Code: core.ProfileIncompleteCode, Category: core.CategoryValidation, Requirements: []string{"bio"}})
	api.SetProfileError(core.RoleOrganization, &core.APIError{Status: 503, Category: core.CategoryServerError})
	gate := NewProfileGate(api, fakeTokens("T"), 0, nil)
	ctx := context.Background()

	gate.Check(ctx, core.RoleVolunteer)
	gate.Check(ctx, "Volunteer")
	assert.Equal(t, 1, api.Calls(core.OpProfile), "incomplete answer is cached")

	gate.Check(ctx, core.RoleOrganization)
	gate.Check(ctx, core.RoleOrganization)
	assert.Equal(t, 3, api.Calls(core.OpProfile), "fail-open answer is retried")

	gate.Invalidate()
	gate.Check(ctx, core.RoleVolunteer)
	assert.Equal(t, 4, api.Calls(core.OpProfile))
}

// Requirement: the cache is cleared on every session transition.
func TestProfileGate_Bind(t *testing.T) {
	store := NewFakeTokenStore("")
	api := NewFakeBackend()
	api.SetLogin(&core.AuthResult{Token: "T", User: volunteerUser}, nil)
	sm := newTestSession(store, api)
	auth := NewAuthService(api, sm, nil)
	gate := NewProfileGate(api, sm, 0, nil)
	unbind := gate.Bind(sm)
	defer unbind()
	ctx := context.Background()

	_, _ = auth.Login(ctx, core.LoginInput{Email: "a@b.com", Password: "pw"})
	api.SetProfileError(core.RoleVolunteer, &core.APIError{Status: 422, Code: core.ProfileIncompleteCode, Category: core.CategoryValidation, Requirements: []string{"bio"}})
	assert.False(t, gate.Check(ctx, core.RoleVolunteer).IsComplete)

	auth.Logout(ctx)
	_, _ = auth.Login(ctx, core.LoginInput{Email: "a@b.com", Password: "pw"})
	api.SetProfileError(core.RoleVolunteer, nil)

	assert.True(t, gate.Check(ctx, core.RoleVolunteer).IsComplete)
	assert.Equal(t, 2, api.Calls(core.OpProfile))
}

// Requirement: without a token the gate never probes.
func TestProfileGate_NoToken(t *testing.T) {
	api := NewFakeBackend()
	gate := NewProfileGate(api, fakeTokens(""), 0, nil)

	assert.True(t, gate.Check(context.Background(), core.RoleVolunteer).IsComplete)
	assert.Equal(t, 0, api.Calls(core.OpProfile))
}
