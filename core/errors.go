package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Authentication Related Errors
var (
	ErrInvalidCredentials  = errors.New("invalid email or password") // 401 on login
	ErrNotAuthenticated    = errors.New("no authenticated session")  // local, no request sent
	ErrInvalidSessionState = errors.New("user present without verified token")
)

// Error categories observable by clients. Every *APIError matches exactly one
// of these with errors.Is.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")    // 401
	ErrUnauthorized      = errors.New("permission denied")  // 403
	ErrNotFound          = errors.New("resource not found") // 404
	ErrValidation        = errors.New("validation failed")  // 422, 400
	ErrServer            = errors.New("server error")       // 5xx
	ErrNetwork           = errors.New("network error")      // no response, timeout
	ErrProfileIncomplete = errors.New("profile incomplete") // 422 PROFILE_INCOMPLETE
)

// Config errors (client-side configuration)
var (
	ErrInvalidBaseURL     = errors.New("api base url must be absolute http(s)")
	ErrTokenStoreRequired = errors.New("token store is required")
	ErrUnknownStoreDriver = errors.New("unknown token store driver")
)

var (
	ErrEndpointNotFound = errors.New("endpoint not registered")
)

// ProfileIncompleteCode is the error code the backend uses for an incomplete
// role profile.
const ProfileIncompleteCode = "PROFILE_INCOMPLETE"

// Category classifies a failure for presentation purposes.
type Category int

const (
	CategoryNone Category = iota
	CategoryUnauthenticated
	CategoryUnauthorized
	CategoryNotFound
	CategoryValidation
	CategoryServerError
	CategoryNetwork
)

func (c Category) String() string {
	switch c {
	case CategoryUnauthenticated:
		return "unauthenticated"
	case CategoryUnauthorized:
		return "unauthorized"
	case CategoryNotFound:
		return "not_found"
	case CategoryValidation:
		return "validation"
	case CategoryServerError:
		return "server_error"
	case CategoryNetwork:
		return "network"
	default:
		return "none"
	}
}

// CategoryForStatus maps an HTTP status code to a Category. Statuses without
// a dedicated category are reported as server errors.
func CategoryForStatus(status int) Category {
	switch {
	case status >= 200 && status < 300:
		return CategoryNone
	case status == http.StatusUnauthorized:
		return CategoryUnauthenticated
	case status == http.StatusForbidden:
		return CategoryUnauthorized
	case status == http.StatusNotFound:
		return CategoryNotFound
	case status == http.StatusUnprocessableEntity, status == http.StatusBadRequest:
		return CategoryValidation
	default:
		return CategoryServerError
	}
}

// APIError is a failed backend interaction.
type APIError struct {
	Status       int                 `json:"status,omitempty"`
	Category     Category            `json:"-"`
	Code         string              `json:"error,omitempty"`
	Message      string              `json:"message,omitempty"`
	Fields       map[string][]string `json:"errors,omitempty"`
	Requirements []string            `json:"requirements,omitempty"`
	RequiredRole RoleName            `json:"required_role,omitempty"`
	Err          error               `json:"-"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Category.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }

// Is matches the category sentinel of the error.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrProfileIncomplete:
		return e.Status == http.StatusUnprocessableEntity && e.Code == ProfileIncompleteCode
	case ErrUnauthenticated:
		return e.Category == CategoryUnauthenticated
	case ErrUnauthorized:
		return e.Category == CategoryUnauthorized
	case ErrNotFound:
		return e.Category == CategoryNotFound
	case ErrValidation:
		return e.Category == CategoryValidation
	case ErrServer:
		return e.Category == CategoryServerError
	case ErrNetwork:
		return e.Category == CategoryNetwork
	}
	return false
}

// NewValidationError builds a local validation failure in the same shape the
// backend uses.
func NewValidationError(fields map[string][]string) *APIError {
	return &APIError{
		Status:   http.StatusUnprocessableEntity,
		Category: CategoryValidation,
		Message:  "the given data was invalid",
		Fields:   fields,
	}
}

// CategoryOf returns the category of err, or CategoryNone for nil.
// Errors that never reached the backend classify as network failures.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryNone
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Category
	}
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrNotAuthenticated):
		return CategoryUnauthenticated
	case errors.Is(err, ErrValidation):
		return CategoryValidation
	}
	return CategoryNetwork
}

// FieldErrors returns the field-keyed validation messages carried by err.
func FieldErrors(err error) map[string][]string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Fields
	}
	return nil
}

// UserMessage renders a user-presentable message for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrInvalidCredentials) {
		return "Invalid email or password."
	}

	switch CategoryOf(err) {
	case CategoryUnauthenticated:
		return "Your session has expired. Please log in again."
	case CategoryUnauthorized:
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.RequiredRole != "" {
			return fmt.Sprintf("You do not have permission to view this page. The %q role is required.", apiErr.RequiredRole)
		}
		return "You do not have permission to view this page."
	case CategoryNotFound:
		return "The requested resource was not found."
	case CategoryValidation:
		return "Please correct the highlighted fields."
	case CategoryServerError:
		return "Something went wrong on our side. Please try again later."
	default:
		return "Unable to reach the server. Check your connection and try again."
	}
}
