// Package logging builds the zerolog logger every quotelog command uses.
// Logs go to stderr so command output on stdout stays machine readable.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "quotelog"

func New(environment, level string) (zerolog.Logger, error) {
	return NewWithWriter(os.Stderr, environment, level)
}

// NewWithWriter is New with an explicit sink. The local environment gets a
// human readable console writer, everything else gets JSON lines.
func NewWithWriter(out io.Writer, environment, level string) (zerolog.Logger, error) {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse LOG_LEVEL=%q: %w", level, err)
	}
	if parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	env := strings.ToLower(strings.TrimSpace(environment))
	if env == "local" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(parsed).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("env", env).
		Logger(), nil
}
