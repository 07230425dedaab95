package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrMissingCredential is returned when no password was supplied.
	ErrMissingCredential = errors.New("password is required")
	// ErrInvalidCredential is returned when the password does not match.
	ErrInvalidCredential = errors.New("invalid password")
)

// HashPassword generates a bcrypt hash of the password.
// Used by the CLI to produce ADMIN_PASSWORD_HASH values.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a password with a bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// secretsEqual compares fixed-size digests so neither the content nor the
// length of the configured secret leaks through timing.
func secretsEqual(candidate, secret string) bool {
	a := sha256.Sum256([]byte(candidate))
	b := sha256.Sum256([]byte(secret))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// Verifier checks a candidate against the single admin secret.
type Verifier struct {
	password string
	hash     string
}

// NewVerifier prefers the bcrypt hash when both are configured.
func NewVerifier(password, hash string) *Verifier {
	return &Verifier{password: password, hash: hash}
}

// Verify returns ErrMissingCredential or ErrInvalidCredential on failure.
func (v *Verifier) Verify(candidate string) error {
	if candidate == "" {
		return ErrMissingCredential
	}
	switch {
	case v.hash != "":
		if !CheckPasswordHash(candidate, v.hash) {
			return ErrInvalidCredential
		}
	case v.password != "":
		if !secretsEqual(candidate, v.password) {
			return ErrInvalidCredential
		}
	default:
		// no secret configured: nobody can log in
		return ErrInvalidCredential
	}
	return nil
}
