package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrPassphraseRequired = errors.New("passphrase is required")
	ErrInvalidSealed      = errors.New("invalid sealed value format")
	ErrUnsupportedKDF     = errors.New("unsupported key derivation")
	ErrSealTampered       = errors.New("sealed value failed authentication")
)

// Upper bounds for parameters read back from a sealed value, four times the
// defaults.
const (
	maxMemory     = 4 * 64 * 1024
	maxIterations = 4 * 3
)

// Sealer encrypts small secrets (the bearer token) at rest with a key derived
// from a passphrase.
type Sealer struct {
	passphrase []byte
	Params     Argon2
}

// Argon2 holds the key derivation cost parameters.
type Argon2 struct {
	Memory      uint32 // Memory cost in KiB
	Iterations  uint32 // Number of iterations (time cost)
	Parallelism uint8  // Number of parallel threads
	SaltLength  uint32 // Length of random salt. Ignored during Open()
}

// NewArgon2 returns the default derivation parameters.
//
// @ref https://cheatsheetseries.owasp.org/cheatsheets/Password_Storage_Cheat_Sheet.html
func NewArgon2() Argon2 {
	return Argon2{
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
	}
}

func NewSealer(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}
	return &Sealer{passphrase: []byte(passphrase), Params: NewArgon2()}, nil
}

func (s *Sealer) key(salt []byte, p Argon2) []byte {
	return argon2.IDKey(s.passphrase, salt, p.Iterations, p.Memory, p.Parallelism, chacha20poly1305.KeySize)
}

// Seal encrypts plaintext and returns a self-describing string:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<nonce||ciphertext>
func (s *Sealer) Seal(plaintext string) (string, error) {
	salt := make([]byte, s.Params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.key(salt, s.Params))
	if err != nil {
		return "", fmt.Errorf("failed to init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)

	// WARN: hard-coded argon2id string. Only valid due to using argon2.IDKey()
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		s.Params.Memory,
		s.Params.Iterations,
		s.Params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sealed)), nil
}

// Open reverses Seal. The derivation parameters are read from the value, so
// values sealed with older parameters stay readable.
func (s *Sealer) Open(encoded string) (string, error) {
	params, salt, sealed, err := decodeSealed(encoded)
	if err != nil {
		return "", err
	}

	aead, err := chacha20poly1305.NewX(s.key(salt, *params))
	if err != nil {
		return "", fmt.Errorf("failed to init cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return "", ErrInvalidSealed
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrSealTampered
	}
	return string(plaintext), nil
}

// IsSealed reports whether value looks like the output of Seal.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, "$argon2id$")
}

func decodeSealed(encoded string) (*Argon2, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, nil, nil, ErrInvalidSealed
	}

	if parts[1] != "argon2id" {
		return nil, nil, nil, ErrUnsupportedKDF
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid version: %w", err)
	}
	if version != argon2.Version {
		return nil, nil, nil, ErrUnsupportedKDF
	}

	params := &Argon2{}
	var p int
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &p); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid parameters format: %w", err)
	}
	if p <= 0 || p > 255 || params.Iterations == 0 ||
		params.Memory > maxMemory || params.Iterations > maxIterations {
		return nil, nil, nil, ErrInvalidSealed
	}
	params.Parallelism = uint8(p)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid salt encoding: %w", err)
	}

	sealed, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid ciphertext encoding: %w", err)
	}

	params.SaltLength = uint32(len(salt))
	return params, salt, sealed, nil
}
