package logger

import "codeberg.org/mutker/eveenergy/internal/errors"

// Logger defines the interface for logging operations.
type Logger interface {
	Debug() *LogEvent
	Info() *LogEvent
	Warn() *LogEvent
	Error() *LogEvent
	ErrorWithCode(err errors.Error) *LogEvent
	// WithComponent returns a child logger tagging every event with the component name.
	WithComponent(name string) Logger
}
