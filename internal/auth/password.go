// Package auth holds reviewer credential rules.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBcryptCost = 12
	MinPasswordLength = 8
)

var ErrPasswordPolicy = errors.New("password does not meet policy")

// HashPassword bcrypts the trimmed password.
func HashPassword(password string) (string, error) {
	return hashWithCost(password, DefaultBcryptCost)
}

func hashWithCost(password string, cost int) (string, error) {
	trimmed := strings.TrimSpace(password)
	if trimmed == "" {
		return "", fmt.Errorf("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(trimmed), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash. Blank inputs never
// match.
func VerifyPassword(password, hash string) bool {
	password = strings.TrimSpace(password)
	hash = strings.TrimSpace(hash)
	if password == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CheckPasswordPolicy validates a replacement password against the one it
// replaces.
func CheckPasswordPolicy(newPassword, currentPassword string) error {
	next := strings.TrimSpace(newPassword)
	if len([]rune(next)) < MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrPasswordPolicy, MinPasswordLength)
	}
	if next == strings.TrimSpace(currentPassword) {
		return fmt.Errorf("%w: must differ from the current password", ErrPasswordPolicy)
	}
	return nil
}

func NormalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
