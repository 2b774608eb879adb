package logger

import (
	"io"
	"os"
	"strings"
)

// SetupLogger builds a logger from CLI-level settings. Logs go to stderr so
// rendered configs on stdout stay machine readable.
func SetupLogger(logLevel string, logJSON, logSource bool) Logger {
	return setupLogger(os.Stderr, logLevel, logJSON, logSource)
}

func setupLogger(out io.Writer, logLevel string, logJSON, logSource bool) Logger {
	return NewLogger(&Config{
		Level:      ParseLevel(logLevel),
		Output:     out,
		JSON:       logJSON,
		AddSource:  logSource,
		TimeFormat: "15:04:05",
	})
}

// ParseLevel reads a --log-level value; unknown values fall back to info.
func ParseLevel(raw string) LogLevel {
	level := LogLevel(strings.ToLower(strings.TrimSpace(raw)))
	switch level {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel, DisabledLevel:
		return level
	default:
		return InfoLevel
	}
}
