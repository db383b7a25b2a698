package core

// TokenStore persists the bearer token across restarts.
//
// Implementations perform no validation. Read returns "" with a nil error
// when no token was ever written or it was cleared. Clear is idempotent.
type TokenStore interface {
	Read() (string, error)
	Write(token string) error
	Clear() error
}
