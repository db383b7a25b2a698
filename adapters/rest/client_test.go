package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lborres/volunteer/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	config := Config{BaseURL: srv.URL + "/api", HTTPClient: srv.Client()}
	for _, m := range mutate {
		m(&config)
	}
	c, err := New(config)
	require.NoError(t, err)
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// Requirement: the client rejects unusable base URLs and defaults an empty one.
func TestNew_BaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
		wantErr bool
	}{
		{name: "default", baseURL: "", want: DefaultBaseURL},
		{name: "trailing slash trimmed", baseURL: "https://api.example.org/api/", want: "https://api.example.org/api"},
		{name: "relative", baseURL: "/api", wantErr: true},
		{name: "wrong scheme", baseURL: "ftp://example.org", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, err := New(Config{BaseURL: test.baseURL})
			if test.wantErr {
				assert.ErrorIs(t, err, core.ErrInvalidBaseURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, c.BaseURL())
		})
	}
}

// Requirement: authenticated requests carry the bearer token, a request id and accept JSON.
func TestClient_Me(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantRoles core.RoleSet
	}{
		{name: "bare user", body: `{"id":1,"name":"A","email":"a@b.com","roles":["Volunteer"]}`, wantRoles: core.Roles(core.RoleVolunteer)},
		{name: "user envelope", body: `{"user":{"id":1,"name":"A","email":"a@b.com","role":"admin"}}`, wantRoles: core.Roles(core.RoleAdmin)},
		{name: "data envelope with role objects", body: `{"data":{"id":1,"name":"A","email":"a@b.com","roles":[{"name":"organization"},{"name":"ORGANIZATION"}]}}`, wantRoles: core.Roles(core.RoleOrganization)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			var got *http.Request
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				got = r.Clone(context.Background())
				writeJSON(w, http.StatusOK, test.body)
			})

			// Act
			user, err := c.Me(context.Background(), "T")

			// Assert
			require.NoError(t, err)
			assert.Equal(t, int64(1), user.ID)
			assert.Equal(t, test.wantRoles, user.Roles)
			assert.Equal(t, "/api/user", got.URL.Path)
			assert.Equal(t, "Bearer T", got.Header.Get("Authorization"))
			assert.Equal(t, "application/json", got.Header.Get("Accept"))
			assert.Len(t, got.Header.Get(HeaderRequestID), 21)
		})
	}
}

// Requirement: login decodes the access token and user; credentials are not sent with a bearer.
func TestClient_Login(t *testing.T) {
	// Arrange
	var input map[string]string
	var authHeader string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&input)
		writeJSON(w, http.StatusOK, `{"access_token":"T","user":{"id":1,"name":"A","roles":["volunteer"]}}`)
	})

	// Act
	res, err := c.Login(context.Background(), core.LoginInput{Email: "a@b.com", Password: "pw"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "T", res.Token)
	assert.Equal(t, core.RoleVolunteer, res.User.PrimaryRole())
	assert.Equal(t, "a@b.com", input["email"])
	assert.Equal(t, "pw", input["password"])
	assert.Empty(t, authHeader)
}

// Requirement: error answers are classified into categories with their details.
func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantIs       error
		wantCategory core.Category
		check        func(t *testing.T, e *core.APIError)
	}{
		{name: "401", status: 401, body: `{"message":"Unauthenticated."}`, wantIs: core.ErrUnauthenticated, wantCategory: core.CategoryUnauthenticated},
		{name: "403 with role", status: 403, body: `{"message":"Forbidden","required_role":"Admin"}`, wantIs: core.ErrUnauthorized, wantCategory: core.CategoryUnauthorized,
			check: func(t *testing.T, e *core.APIError) { assert.Equal(t, core.RoleAdmin, e.RequiredRole) }},
		{name: "404", status: 404, body: `{"message":"Not Found"}`, wantIs: core.ErrNotFound, wantCategory: core.CategoryNotFound},
		{name: "422 fields", status: 422, body: `{"message":"The given data was invalid.","errors":{"email":["taken"]}}`, wantIs: core.ErrValidation, wantCategory: core.CategoryValidation,
			check: func(t *testing.T, e *core.APIError) { assert.Equal(t, []string{"taken"}, e.Fields["email"]) }},
		{name: "500 html", status: 500, body: `<html>oops</html>`, wantIs: core.ErrServer, wantCategory: core.CategoryServerError},
		{name: "409 unmapped", status: 409, body: `{}`, wantIs: core.ErrServer, wantCategory: core.CategoryServerError},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, test.status, test.body)
			})

			_, err := c.ListFeedback(context.Background(), "T", core.ListParams{})

			require.Error(t, err)
			assert.ErrorIs(t, err, test.wantIs)
			var apiErr *core.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, test.status, apiErr.Status)
			assert.Equal(t, test.wantCategory, apiErr.Category)
			assert.NotEmpty(t, apiErr.Message)
			if test.check != nil {
				test.check(t, apiErr)
			}
		})
	}
}

// Requirement: an unreachable backend and a timeout are network errors.
func TestClient_NetworkErrors(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		c, err := New(Config{BaseURL: url})
		require.NoError(t, err)

		_, err = c.Me(context.Background(), "T")

		assert.ErrorIs(t, err, core.ErrNetwork)
		assert.Equal(t, core.CategoryNetwork, core.CategoryOf(err))
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}, func(cfg *Config) {
			cfg.HTTPClient = &http.Client{Timeout: 20 * time.Millisecond}
		})
		defer close(release)

		_, err := c.ListMessages(context.Background(), "T", core.ListParams{})

		assert.ErrorIs(t, err, core.ErrNetwork)
	})
}

// Requirement: a 401 on an authenticated request reports the token for forced logout;
// a 401 on login does not.
func TestClient_OnUnauthenticated(t *testing.T) {
	var mu sync.Mutex
	var reported []string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Unauthenticated."}`)
	}, func(cfg *Config) {
		cfg.OnUnauthenticated = func(token string) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, token)
		}
	})

	_, _ = c.ListApplications(context.Background(), "T", core.ListParams{})
	_, err := c.Login(context.Background(), core.LoginInput{Email: "a@b.com", Password: "bad"})

	assert.ErrorIs(t, err, core.ErrUnauthenticated)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"T"}, reported)
}

// Requirement: authenticated endpoints are never called without a token.
func TestClient_RequiresToken(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	_, err := c.ListUsers(context.Background(), "", core.ListParams{})

	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	assert.Equal(t, int32(0), hits.Load())
}

// Requirement: the profile probe reports PROFILE_INCOMPLETE with its requirements.
func TestClient_ProbeProfile(t *testing.T) {
	var path string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		writeJSON(w, http.StatusUnprocessableEntity, `{"error":"PROFILE_INCOMPLETE","requirements":["bio","location"]}`)
	})

	err := c.ProbeProfile(context.Background(), "T", core.RoleVolunteer)

	assert.Equal(t, "/api/volunteer/profile", path)
	assert.ErrorIs(t, err, core.ErrProfileIncomplete)
	var apiErr *core.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, []string{"bio", "location"}, apiErr.Requirements)
}

// Requirement: only the 422 answer means incomplete; a server error carrying
// the same code stays a server error.
func TestClient_ProbeProfile_ServerErrorWithIncompleteCode(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"error":"PROFILE_INCOMPLETE","requirements":["bio"]}`)
	})

	err := c.ProbeProfile(context.Background(), "T", core.RoleVolunteer)

	assert.ErrorIs(t, err, core.ErrServer)
	assert.NotErrorIs(t, err, core.ErrProfileIncomplete)
}

// Requirement: list filters are sent as query parameters and mutations as JSON bodies.
func TestClient_ListAndMutate(t *testing.T) {
	var query, method, path string
	var body map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path, query = r.Method, r.URL.Path, r.URL.RawQuery
		body = nil
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.Method == http.MethodGet {
			writeJSON(w, http.StatusOK, `{"data":{"data":[{"id":5,"name":"V","is_active":true}],"current_page":1}}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"message":"ok"}`)
	})
	ctx := context.Background()

	users, err := c.ListUsers(ctx, "T", core.ListParams{Search: "v", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, "page=2&search=v", query)
	require.Len(t, users, 1)
	assert.True(t, users[0].IsActive)

	require.NoError(t, c.SetUserActive(ctx, "T", 5, false))
	assert.Equal(t, http.MethodPatch, method)
	assert.Equal(t, "/api/admin/users/5", path)
	assert.Equal(t, false, body["is_active"])

	require.NoError(t, c.SetApplicationStatus(ctx, "T", 9, core.ApplicationAccepted))
	assert.Equal(t, "/api/applications/9", path)
	assert.Equal(t, "accepted", body["status"])
}

// Requirement: repeated server failures open the breaker, reported as network errors.
func TestClient_CircuitBreaker(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusServiceUnavailable, `{"message":"down"}`)
	}, func(cfg *Config) {
		cfg.Breaker = &gobreaker.Settings{
			Name:        "test",
			Timeout:     time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 2 },
		}
	})
	ctx := context.Background()

	_, err1 := c.ListLogs(ctx, "T", core.ListParams{})
	_, err2 := c.ListLogs(ctx, "T", core.ListParams{})
	_, err3 := c.ListLogs(ctx, "T", core.ListParams{})

	assert.ErrorIs(t, err1, core.ErrServer)
	assert.ErrorIs(t, err2, core.ErrServer)
	assert.ErrorIs(t, err3, core.ErrNetwork)
	assert.ErrorIs(t, err3, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), hits.Load())
}
