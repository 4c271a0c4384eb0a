package auth

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerifyTrimsInput(t *testing.T) {
	t.Parallel()

	hash, err := hashWithCost("  review-desk-2026 ", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !VerifyPassword("review-desk-2026", hash) {
		t.Fatalf("expected trimmed password to verify")
	}
	if VerifyPassword("review-desk-2025", hash) {
		t.Fatalf("expected wrong password to fail")
	}
	if VerifyPassword("   ", hash) {
		t.Fatalf("expected blank password to fail")
	}
	if _, err := HashPassword(" "); err == nil {
		t.Fatalf("expected error for blank password")
	}
}

func TestCheckPasswordPolicy(t *testing.T) {
	t.Parallel()

	if err := CheckPasswordPolicy("short", "old password"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected policy error for short password, got %v", err)
	}
	if err := CheckPasswordPolicy(" same password ", "same password"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected policy error for reused password, got %v", err)
	}
	if err := CheckPasswordPolicy("battery staple", "correct horse"); err != nil {
		t.Fatalf("expected valid password, got %v", err)
	}
}

func TestNormalizeUsername(t *testing.T) {
	t.Parallel()

	if got := NormalizeUsername("  Desk.Editor "); got != "desk.editor" {
		t.Fatalf("unexpected username %q", got)
	}
}
