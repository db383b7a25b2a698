package core

import "time"

// Identity represents the authenticated user resolved from a token
//
// This is the "who am I" answer of the backend
type Identity struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Roles           RoleSet    `json:"roles"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
}

// PrimaryRole returns the role used for routing decisions.
func (i *Identity) PrimaryRole() RoleName {
	if i == nil {
		return ""
	}
	return i.Roles.Primary()
}

func (i *Identity) EmailVerified() bool {
	return i != nil && i.EmailVerifiedAt != nil
}

// AuthResult is returned by the login and register endpoints
type AuthResult struct {
	Token string    `json:"-"` // Never echo the raw token
	User  *Identity `json:"user"`
}

// LoginInput contains the credentials for authentication
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterInput contains the data needed to register a new account
type RegisterInput struct {
	Name                 string   `json:"name" validate:"required,max=255"`
	Email                string   `json:"email" validate:"required,email"`
	Password             string   `json:"password" validate:"required,min=8"`
	PasswordConfirmation string   `json:"password_confirmation" validate:"required,eqfield=Password"`
	Role                 RoleName `json:"role" validate:"required,oneof=volunteer organization"`
}
