package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "migrate":
		return runMigrate(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "review":
		return runReview(args[1:])
	case "stats":
		return runStats(args[1:])
	case "create-user":
		return runCreateUser(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "quotelog CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  quotelog <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health       Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  migrate      Apply schema migrations")
	fmt.Fprintln(os.Stderr, "  validate     Validate quote batch JSON files against the v1 schema")
	fmt.Fprintln(os.Stderr, "  ingest       Resolve speakers and store one quote batch")
	fmt.Fprintln(os.Stderr, "  review       List or resolve disambiguation queue items")
	fmt.Fprintln(os.Stderr, "  stats        Show person, quote and review queue counts")
	fmt.Fprintln(os.Stderr, "  create-user  Create a reviewer account")
	fmt.Fprintln(os.Stderr, "  serve        Start the review API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"quotelog <command> -h\" for command-specific flags.")
}
