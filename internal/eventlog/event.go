// Package eventlog records what happened to the outlet (lifecycle changes,
// ticks, commands) as an append-only CBOR file.
package eventlog

import (
	"time"

	"codeberg.org/mutker/eveenergy/internal/telemetry"
)

// Kind classifies an event.
type Kind uint8

const (
	KindLifecycle Kind = iota + 1
	KindTick
	KindCommand
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindLifecycle:
		return "lifecycle"
	case KindTick:
		return "tick"
	case KindCommand:
		return "command"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one entry of the log. Integer keys keep the encoding compact.
type Event struct {
	Time     time.Time           `cbor:"1,keyasint"`
	Kind     Kind                `cbor:"2,keyasint"`
	Device   string              `cbor:"3,keyasint"`
	Name     string              `cbor:"4,keyasint,omitempty"`
	Reason   string              `cbor:"5,keyasint,omitempty"`
	Snapshot *telemetry.Snapshot `cbor:"6,keyasint,omitempty"`
	Args     map[string]uint64   `cbor:"7,keyasint,omitempty"`
	Error    string              `cbor:"8,keyasint,omitempty"`
}

// Logger receives events.
type Logger interface {
	Log(event Event)
	Close() error
}

// NoopLogger discards events.
type NoopLogger struct{}

func (NoopLogger) Log(Event)    {}
func (NoopLogger) Close() error { return nil }

var _ Logger = NoopLogger{}
