package eventlog

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/eveenergy/internal/logger"
	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends events to a file. It is safe for concurrent use.
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
	log     logger.Logger
	closed  bool
}

var _ Logger = (*FileLogger)(nil)

// Open returns a FileLogger appending to path, or a NoopLogger when path is empty.
func Open(path string, log logger.Logger) (Logger, error) {
	if path == "" {
		return NoopLogger{}, nil
	}
	return NewFileLogger(path, log)
}

// NewFileLogger creates path and its directory if needed and appends to it.
// Write failures are reported to log as warnings.
func NewFileLogger(path string, log logger.Logger) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{
		file:    f,
		encoder: newEncoder(f),
		log:     log.WithComponent("eventlog"),
	}, nil
}

// Log appends event. Events logged after Close are dropped.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		l.log.Warn().
			Err(err).
			Str("path", l.file.Name()).
			Str("kind", event.Kind.String()).
			Str("name", event.Name).
			Msg("Failed to write event")
	}
}

// Close closes the file. Calling it again is a no-op.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

// Filter selects events. Zero fields match everything.
type Filter struct {
	Kind  Kind
	Name  string
	Since time.Time
}

func (f Filter) matches(e Event) bool {
	if f.Kind != 0 && e.Kind != f.Kind {
		return false
	}
	if f.Name != "" && e.Name != f.Name {
		return false
	}
	if !f.Since.IsZero() && e.Time.Before(f.Since) {
		return false
	}
	return true
}

// Reader streams events from a log file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens path for reading the events matching filter.
func NewReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, decoder: newDecoder(f), filter: filter}, nil
}

// Next returns the next matching event, or io.EOF at the end of the file.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.matches(event) {
			return event, nil
		}
	}
}

// ReadAll returns every remaining matching event.
func (r *Reader) ReadAll() ([]Event, error) {
	var events []Event
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, e)
	}
}

func (r *Reader) Close() error {
	return r.file.Close()
}
