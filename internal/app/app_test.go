package app

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/auth"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/config"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
)

func TestParseIDList(t *testing.T) {
	t.Parallel()

	ids, err := parseIDList(" 4, 9,,4 ,12")
	if err != nil {
		t.Fatalf("parseIDList failed: %v", err)
	}
	want := []int64{4, 9, 12}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}

	for _, raw := range []string{"", " , ", "3,abc", "0", "-2"} {
		if _, err := parseIDList(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

type fakeUserCreator struct {
	count   int64
	created []db.AuthUser
	err     error
}

func (f *fakeUserCreator) CountUsers(context.Context) (int64, error) {
	return f.count, nil
}

func (f *fakeUserCreator) CreateUser(_ context.Context, username, passwordHash string, mustChange bool) (*db.AuthUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	user := db.AuthUser{UserID: int64(len(f.created) + 1), Username: username, PasswordHash: passwordHash, MustChangePassword: mustChange}
	f.created = append(f.created, user)
	return &user, nil
}

func TestEnsureDefaultAdminSeedsEmptyTable(t *testing.T) {
	t.Parallel()

	users := &fakeUserCreator{}
	cfg := &config.Config{DefaultAdminUser: " Admin ", DefaultAdminPassword: "change me now", DefaultAdminMustChangePassword: true}
	if err := ensureDefaultAdmin(context.Background(), users, cfg, zerolog.Nop()); err != nil {
		t.Fatalf("ensureDefaultAdmin failed: %v", err)
	}
	if len(users.created) != 1 {
		t.Fatalf("expected one user, got %d", len(users.created))
	}
	created := users.created[0]
	if created.Username != "admin" || !created.MustChangePassword {
		t.Fatalf("unexpected user %+v", created)
	}
	if !auth.VerifyPassword("change me now", created.PasswordHash) {
		t.Fatalf("stored hash does not match the configured password")
	}

	users.count = 1
	if err := ensureDefaultAdmin(context.Background(), users, cfg, zerolog.Nop()); err != nil {
		t.Fatalf("second ensureDefaultAdmin failed: %v", err)
	}
	if len(users.created) != 1 {
		t.Fatalf("expected no user when the table is populated, got %d", len(users.created))
	}
}

func TestEnsureDefaultAdminIgnoresDuplicateRace(t *testing.T) {
	t.Parallel()

	users := &fakeUserCreator{err: errors.New(`ERROR: duplicate key value violates unique constraint "users_username_key"`)}
	cfg := &config.Config{DefaultAdminUser: "admin", DefaultAdminPassword: "change me now"}
	if err := ensureDefaultAdmin(context.Background(), users, cfg, zerolog.Nop()); err != nil {
		t.Fatalf("expected duplicate insert to be ignored, got %v", err)
	}

	if _, err := createReviewer(context.Background(), users, "", "pw", false); err == nil {
		t.Fatalf("expected error for empty username")
	}
}

func TestNewVerifierFollowsProvider(t *testing.T) {
	t.Parallel()

	none, err := newVerifier(&config.Config{LLMProvider: config.LLMProviderNone}, zerolog.Nop())
	if err != nil || none != nil {
		t.Fatalf("expected no verifier for provider none, got %v %v", none, err)
	}

	local, err := newVerifier(&config.Config{
		LLMProvider:       config.LLMProviderLocal,
		LLMEndpoint:       "http://127.0.0.1:8845",
		LLMMaxConcurrency: 2,
		LLMRatePerSecond:  1,
	}, zerolog.Nop())
	if err != nil || local == nil {
		t.Fatalf("expected local verifier, got %v %v", local, err)
	}

	if _, err := newVerifier(&config.Config{LLMProvider: "openai"}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestParseOutputFormat(t *testing.T) {
	t.Parallel()

	if got, err := parseOutputFormat(" JSON ", outputFormatTable); err != nil || got != outputFormatJSON {
		t.Fatalf("expected json, got %q %v", got, err)
	}
	if got, err := parseOutputFormat("", outputFormatTable); err != nil || got != outputFormatTable {
		t.Fatalf("expected default table, got %q %v", got, err)
	}
	if _, err := parseOutputFormat("yaml", outputFormatTable); err == nil {
		t.Fatalf("expected error for yaml")
	}
	if got := truncateForTable("William Jefferson Clinton", 10); got != "William..." {
		t.Fatalf("unexpected truncation %q", got)
	}
}
