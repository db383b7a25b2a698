package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lborres/volunteer/core"
)

// wireUser is the user payload of the backend. Roles arrive either as
// names or as role objects, with a singular role as fallback.
type wireUser struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	Role            string          `json:"role"`
	Roles           json.RawMessage `json:"roles"`
	EmailVerifiedAt *time.Time      `json:"email_verified_at"`
}

func (w wireUser) identity() *core.Identity {
	return &core.Identity{
		ID:              w.ID,
		Name:            w.Name,
		Email:           w.Email,
		Roles:           core.ParseRoles(w.Role, roleNames(w.Roles)...),
		EmailVerifiedAt: w.EmailVerifiedAt,
	}
}

func roleNames(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var names []string
	if err := json.Unmarshal(raw, &names); err == nil {
		return names
	}

	var objects []struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(raw, &objects); err == nil {
		out := make([]string, 0, len(objects))
		for _, o := range objects {
			if o.Name != "" {
				out = append(out, o.Name)
			} else {
				out = append(out, o.Slug)
			}
		}
		return out
	}
	return nil
}

// decodeIdentity accepts {...}, {"user": {...}} and {"data": {...}}.
func decodeIdentity(body []byte) (*core.Identity, error) {
	var envelope struct {
		User json.RawMessage `json:"user"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, malformed("user", err)
	}

	raw := body
	switch {
	case isObject(envelope.User):
		raw = envelope.User
	case isObject(envelope.Data):
		raw = envelope.Data
	}

	var w wireUser
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, malformed("user", err)
	}
	if w.ID == 0 && w.Email == "" {
		return nil, malformed("user", fmt.Errorf("no user in response"))
	}
	return w.identity(), nil
}

// decodeAuth accepts the login and register answers, optionally wrapped in
// {"data": ...}. The token is read from access_token or token.
func decodeAuth(body []byte) (*core.AuthResult, error) {
	var payload struct {
		AccessToken string          `json:"access_token"`
		Token       string          `json:"token"`
		User        json.RawMessage `json:"user"`
		Data        json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, malformed("auth", err)
	}
	if payload.AccessToken == "" && payload.Token == "" && isObject(payload.Data) {
		return decodeAuth(payload.Data)
	}

	token := payload.AccessToken
	if token == "" {
		token = payload.Token
	}
	if token == "" || !isObject(payload.User) {
		return nil, malformed("auth", fmt.Errorf("missing token or user"))
	}

	user, err := decodeIdentity(payload.User)
	if err != nil {
		return nil, err
	}
	return &core.AuthResult{Token: token, User: user}, nil
}

// DecodeList decodes a list answer. It accepts a bare array, {"data": [...]},
// {"items": [...]}, {"<resource>": [...]} and the paginator shape
// {"data": {"data": [...]}}.
func DecodeList[T any](body []byte, resource string) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, malformed(resource, err)
		}
		return nonNil(items), nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, malformed(resource, err)
	}

	keys := []string{"data", "items"}
	if resource != "" {
		keys = append(keys, resource)
	}
	sawNull := false
	for _, key := range keys {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			sawNull = true
			continue
		}
		if raw[0] == '{' {
			// paginator
			return DecodeList[T](raw, resource)
		}
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, malformed(resource, err)
		}
		return nonNil(items), nil
	}

	if sawNull {
		return []T{}, nil
	}
	return nil, malformed(resource, fmt.Errorf("no list in response"))
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// A 2xx answer that does not parse is treated as a server fault.
func malformed(what string, err error) *core.APIError {
	return &core.APIError{
		Category: core.CategoryServerError,
		Message:  fmt.Sprintf("unexpected %s response", what),
		Err:      err,
	}
}

// wireError is the error body of the backend.
type wireError struct {
	Message      string              `json:"message"`
	Error        string              `json:"error"`
	Errors       map[string][]string `json:"errors"`
	Requirements []string            `json:"requirements"`
	MissingField []string            `json:"missing_fields"`
	RequiredRole string              `json:"required_role"`
}

func decodeError(status int, body []byte) *core.APIError {
	apiErr := &core.APIError{
		Status:   status,
		Category: core.CategoryForStatus(status),
	}

	var w wireError
	if err := json.Unmarshal(body, &w); err != nil {
		apiErr.Message = strings.TrimSpace(http.StatusText(status))
		return apiErr
	}

	apiErr.Message = w.Message
	apiErr.Code = w.Error
	apiErr.Fields = w.Errors
	apiErr.Requirements = w.Requirements
	if apiErr.Requirements == nil {
		apiErr.Requirements = w.MissingField
	}
	apiErr.RequiredRole = core.NormalizeRole(w.RequiredRole)
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
