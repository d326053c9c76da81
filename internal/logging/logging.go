// Package logging configures the process-wide zerolog output.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger tagged with the given component. The APP_ENV
// environment variable selects the format: "dev" gets a human-friendly
// console writer, everything else gets JSON lines.
func New(component string, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	env := strings.ToLower(os.Getenv("APP_ENV"))
	var log zerolog.Logger
	if env == "dev" {
		writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		log = zerolog.New(writer)
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Str("component", component).Logger()
}
