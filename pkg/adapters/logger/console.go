// Package logger provides ports.Logger implementations.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ideamans/go-l10n"
	"github.com/mattn/go-isatty"

	"github.com/user/splicer/pkg/ports"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
)

// ConsoleLogger writes translated messages to stdout, and warnings and errors to stderr.
// Loggers derived with WithComponent share the writers and the write lock, because
// audio callbacks and the playback loop log from different goroutines.
type ConsoleLogger struct {
	level     ports.LogLevel
	component string
	color     bool
	out       io.Writer
	errOut    io.Writer
	mu        *sync.Mutex
}

// NewConsole creates a console logger with the specified level.
// Color output is enabled when stdout is a terminal.
func NewConsole(level ports.LogLevel) *ConsoleLogger {
	fd := os.Stdout.Fd()
	return &ConsoleLogger{
		level:  level,
		color:  isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd),
		out:    os.Stdout,
		errOut: os.Stderr,
		mu:     &sync.Mutex{},
	}
}

// NewWriter creates an uncolored logger writing every level to w.
func NewWriter(level ports.LogLevel, w io.Writer) *ConsoleLogger {
	return &ConsoleLogger{
		level:  level,
		out:    w,
		errOut: w,
		mu:     &sync.Mutex{},
	}
}

func (l *ConsoleLogger) Debug(msg string, args ...interface{}) {
	l.log(ports.LevelDebug, msg, args...)
}

func (l *ConsoleLogger) Info(msg string, args ...interface{}) {
	l.log(ports.LevelInfo, msg, args...)
}

func (l *ConsoleLogger) Warn(msg string, args ...interface{}) {
	l.log(ports.LevelWarn, msg, args...)
}

func (l *ConsoleLogger) Error(msg string, args ...interface{}) {
	l.log(ports.LevelError, msg, args...)
}

// WithComponent returns a logger that prefixes messages with "[component]".
func (l *ConsoleLogger) WithComponent(component string) ports.Logger {
	c := *l
	c.component = component
	return &c
}

func (l *ConsoleLogger) log(level ports.LogLevel, msg string, args ...interface{}) {
	if level < l.level {
		return
	}

	translated := l10n.F(msg, args...)

	var output string
	switch {
	case l.component == "":
		output = translated
	case l.color:
		output = fmt.Sprintf("%s[%s]%s %s", colorCyan, l.component, colorReset, translated)
	default:
		output = fmt.Sprintf("[%s] %s", l.component, translated)
	}

	if l.color {
		switch level {
		case ports.LevelDebug:
			output = colorGray + output + colorReset
		case ports.LevelWarn:
			output = colorYellow + output + colorReset
		case ports.LevelError:
			output = colorRed + output + colorReset
		}
	}

	w := l.out
	if level >= ports.LevelWarn {
		w = l.errOut
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(w, output)
}

var _ ports.Logger = (*ConsoleLogger)(nil)
