// Package cli holds flag helpers shared by the quotelog subcommands.
package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// EnvFileVar names an env file that wins over the --env flag.
const EnvFileVar = "QUOTELOG_ENV_FILE"

// EnvLoader loads the first readable env file out of QUOTELOG_ENV_FILE, the
// --env flag value, that value's basename in the working directory and the
// default path. Values from the file override the process environment.
type EnvLoader struct {
	flagValue   *string
	defaultPath string
}

func AddEnvFlag(fs *flag.FlagSet, defaultPath, description string) *EnvLoader {
	if fs == nil {
		fs = flag.CommandLine
	}
	if strings.TrimSpace(defaultPath) == "" {
		defaultPath = ".env"
	}
	if strings.TrimSpace(description) == "" {
		description = "Path to the .env file"
	}
	return &EnvLoader{
		flagValue:   fs.String("env", defaultPath, description),
		defaultPath: defaultPath,
	}
}

// Load returns the path it loaded. The error lists every path it tried.
func (l *EnvLoader) Load() (string, error) {
	if l == nil {
		return "", fmt.Errorf("env loader is nil")
	}

	tried := l.candidates()
	for _, path := range tried {
		if err := godotenv.Overload(path); err == nil {
			fmt.Fprintf(os.Stderr, "loaded environment from %s\n", path)
			return path, nil
		}
	}
	return "", fmt.Errorf("no env file loaded (tried %s)", strings.Join(tried, ", "))
}

func (l *EnvLoader) candidates() []string {
	requested := l.defaultPath
	if l.flagValue != nil && strings.TrimSpace(*l.flagValue) != "" {
		requested = strings.TrimSpace(*l.flagValue)
	}

	ordered := []string{
		strings.TrimSpace(os.Getenv(EnvFileVar)),
		requested,
		filepath.Base(requested),
		l.defaultPath,
	}

	out := make([]string, 0, len(ordered))
	seen := make(map[string]struct{}, len(ordered))
	for _, path := range ordered {
		if path == "" || path == "." || path == string(filepath.Separator) {
			continue
		}
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}
	return out
}
