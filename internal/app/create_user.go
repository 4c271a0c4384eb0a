package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/cli"
)

func runCreateUser(args []string) int {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	username := fs.String("username", "", "Reviewer username")
	password := fs.String("password", "", "Initial password")
	mustChange := fs.Bool("must-change-password", true, "Require a password change on first use")

	if ok, code := parseFlags(fs, args); !ok {
		return code
	}
	if strings.TrimSpace(*username) == "" || strings.TrimSpace(*password) == "" {
		fmt.Fprintln(os.Stderr, "--username and --password are required")
		return 2
	}

	rt, err := loadRuntime(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	pool, err := connectPool(rt.cfg, 10*time.Second)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	user, err := createReviewer(ctx, pool, *username, *password, *mustChange)
	if err != nil {
		rt.logger.Error().Err(err).Msg("create user failed")
		fmt.Fprintf(os.Stderr, "Create user failed: %v\n", err)
		return 1
	}

	rt.logger.Info().Int64("user_id", user.UserID).Str("username", user.Username).Msg("reviewer created")
	fmt.Printf("created user_id=%d username=%s must_change_password=%t\n", user.UserID, user.Username, user.MustChangePassword)
	return 0
}
