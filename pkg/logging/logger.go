// Package logging configures the hclog loggers used by the dbs-save tools.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	// EnvLogLevel selects the log level (trace, debug, info, warn, error).
	EnvLogLevel = "DBS_LOG_LEVEL"

	// EnvJSONLog switches to JSON output when set to "1".
	EnvJSONLog = "DBS_JSON_LOG"

	DefaultLevel = "warn"
	linePrefix   = "💾 "
)

// NewLogger creates a new hclog logger with standard settings
func NewLogger(name string, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}

	jsonFormat := os.Getenv(EnvJSONLog) == "1"
	if !jsonFormat {
		output = NewPrefixWriter(linePrefix, output)
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: jsonFormat,
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z", // UTC ISO format
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// GetLogLevel returns the configured log level from environment
func GetLogLevel() string {
	level := strings.TrimSpace(os.Getenv(EnvLogLevel))
	if level == "" {
		return DefaultLevel
	}
	return level
}

// ResolveLevel prefers an explicit flag value over the environment.
func ResolveLevel(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return GetLogLevel()
}

// OrNull returns logger, or a logger that discards everything when nil.
func OrNull(logger hclog.Logger) hclog.Logger {
	if logger == nil {
		return hclog.NewNullLogger()
	}
	return logger
}
