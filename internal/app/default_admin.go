package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/auth"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/config"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
)

type userCreator interface {
	CountUsers(ctx context.Context) (int64, error)
	CreateUser(ctx context.Context, username, passwordHash string, mustChangePassword bool) (*db.AuthUser, error)
}

// ensureDefaultAdmin seeds the first reviewer account on an empty users table.
func ensureDefaultAdmin(ctx context.Context, users userCreator, cfg *config.Config, logger zerolog.Logger) error {
	if users == nil || cfg == nil {
		return fmt.Errorf("ensure default admin: missing dependencies")
	}

	userCount, err := users.CountUsers(ctx)
	if err != nil {
		return err
	}
	if userCount > 0 {
		return nil
	}

	user, err := createReviewer(ctx, users, cfg.DefaultAdminUser, cfg.DefaultAdminPassword, cfg.DefaultAdminMustChangePassword)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate key value") {
			return nil
		}
		return err
	}

	logger.Warn().
		Str("username", user.Username).
		Bool("must_change_password", user.MustChangePassword).
		Msg("created default admin user")
	return nil
}

func createReviewer(ctx context.Context, users userCreator, rawUsername, rawPassword string, mustChange bool) (*db.AuthUser, error) {
	username := auth.NormalizeUsername(rawUsername)
	password := strings.TrimSpace(rawPassword)
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return users.CreateUser(ctx, username, passwordHash, mustChange)
}
