// Package ports defines the interfaces the playback engine depends on.
// Concrete implementations live under pkg/adapters.
package ports

import "fmt"

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LevelDebug is for per-frame and per-packet details (seeks, skips, decode errors).
	LevelDebug LogLevel = iota
	// LevelInfo is for editor commands and playback transitions.
	LevelInfo
	// LevelWarn is for recoverable problems such as a missing audio device.
	LevelWarn
	// LevelError is for failures that abort a command.
	LevelError
	// LevelQuiet suppresses all log output.
	LevelQuiet
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelQuiet:
		return "quiet"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses a level name. An empty string means info.
func ParseLogLevel(s string) (LogLevel, error) {
	switch s {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "quiet":
		return LevelQuiet, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Logger abstracts logging with translatable message keys.
// The msg parameter is a format key looked up in the registered lexicons.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a Logger that prefixes messages with the component name.
	WithComponent(component string) Logger
}
