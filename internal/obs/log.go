// Package obs provides the component-tagged slog logger shared by the
// flash-programming core. It is adapted from the logging helper in
// ardnew-softusb's host/device stack to the components of a flash
// programmer: probe, protocol, erase planning, orchestration,
// write-protection, and layout parsing.
package obs

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Component identifies a core subsystem for log filtering.
type Component string

// Flash core component identifiers.
const (
	ComponentProbe       Component = "probe"
	ComponentProtocol    Component = "protocol"
	ComponentErase       Component = "erase"
	ComponentOrchestrate Component = "orchestrate"
	ComponentWP          Component = "wp"
	ComponentLayout      Component = "layout"
	ComponentTransport   Component = "transport"
)

var (
	// DefaultLogger is the default logger used by the core.
	DefaultLogger *slog.Logger

	logLevel = new(slog.LevelVar)
	logMutex sync.RWMutex
)

func init() {
	logLevel.Set(slog.LevelWarn)
	DefaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// SetLogLevel sets the minimum log level for all core logging.
func SetLogLevel(level slog.Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	logLevel.Set(level)
}

// SetLogger replaces the default logger with a caller-supplied one, letting
// an embedding application route core log records into its own sink.
func SetLogger(logger *slog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	DefaultLogger = logger
}

// NewLogger creates a text logger writing to w at the current level.
func NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

func current() *slog.Logger {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return DefaultLogger
}

// Debug logs a debug message tagged with component.
func Debug(component Component, msg string, args ...any) {
	current().Debug(msg, append([]any{"component", string(component)}, args...)...)
}

// Info logs an info message tagged with component.
func Info(component Component, msg string, args ...any) {
	current().Info(msg, append([]any{"component", string(component)}, args...)...)
}

// Warn logs a warning message tagged with component.
func Warn(component Component, msg string, args ...any) {
	current().Warn(msg, append([]any{"component", string(component)}, args...)...)
}

// Error logs an error message tagged with component.
func Error(component Component, msg string, args ...any) {
	current().Error(msg, append([]any{"component", string(component)}, args...)...)
}
