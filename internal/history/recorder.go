// Package history keeps the energy history of a device: a bounded in-memory
// log for fast reads, persisted to sqlite in batches.
package history

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/eveenergy/internal/errors"
	"codeberg.org/mutker/eveenergy/internal/logger"
	"codeberg.org/mutker/eveenergy/internal/telemetry"
	"go.uber.org/multierr"
)

// Recorder is the history log of one device. AddEntry never blocks on disk
// I/O; a background flusher writes batches to the database.
type Recorder struct {
	name    string
	cfg     Config
	log     logger.Logger
	diag    logger.Logger
	sampler *telemetry.Sampler
	clock   func() time.Time
	repo    *repository

	mu        sync.Mutex
	ring      []telemetry.Snapshot
	head      int
	pending   []telemetry.Snapshot
	lastEvent time.Time
	closed    bool

	// dbMu is held shared by readers of repo and exclusively while closing it.
	dbMu      sync.RWMutex
	flushMu   sync.Mutex
	flushNow  chan struct{}
	shutdown  chan struct{}
	flushDone chan struct{}
	closeErr  error
}

var _ telemetry.Source = (*Recorder)(nil)

// Option customizes a Recorder.
type Option func(*Recorder)

// WithSampler sets the sampler behind FakeLevel.
func WithSampler(s *telemetry.Sampler) Option {
	return func(r *Recorder) { r.sampler = s }
}

// WithClock sets the clock behind Now.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.clock = now }
}

// Open creates the recorder for the device called name. When cfg.Dir is set
// the newest cfg.MaxEntries persisted entries are restored.
func Open(ctx context.Context, name string, cfg Config, log logger.Logger, opts ...Option) (*Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	log = log.WithComponent("history")
	r := &Recorder{
		name:    name,
		cfg:     cfg,
		log:     log,
		diag:    logger.Nop(),
		sampler: telemetry.NewSampler(nil),
		clock:   time.Now,
		ring:    make([]telemetry.Snapshot, 0, min(cfg.MaxEntries, 1024)),
	}
	if cfg.Debug {
		r.diag = log
	}
	for _, opt := range opts {
		opt(r)
	}

	path := cfg.DBPath(name)
	if path == "" {
		r.diag.Debug().Str("device", name).Msg("History is not persisted")
		return r, nil
	}

	repo, err := openRepository(ctx, path, r.diag)
	if err != nil {
		return nil, err
	}
	r.repo = repo

	restored, err := repo.latest(ctx, cfg.MaxEntries)
	if err != nil {
		repo.close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}
	for _, s := range restored {
		r.push(s)
	}

	r.flushNow = make(chan struct{}, 1)
	r.shutdown = make(chan struct{})
	r.flushDone = make(chan struct{})
	go r.flusher(time.NewTicker(cfg.FlushInterval))

	log.Info().
		Str("device", name).
		Str("path", path).
		Int("restored", len(restored)).
		Int("batch_size", cfg.BatchSize).
		Dur("flush_interval", cfg.FlushInterval).
		Msg("History initialized")

	return r, nil
}

// Now returns the recorder's clock truncated to whole seconds.
func (r *Recorder) Now() time.Time {
	return r.clock().Truncate(time.Second)
}

// FakeLevel returns a random reading in [min, max] with decimals fractional digits.
func (r *Recorder) FakeLevel(min, max float64, decimals int) float64 {
	return r.sampler.FakeLevel(min, max, decimals)
}

// SetLastEvent marks Now as the time of the latest device event.
func (r *Recorder) SetLastEvent() {
	now := r.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastEvent = now
}

// LastEvent returns the time recorded by SetLastEvent, zero if never set.
func (r *Recorder) LastEvent() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastEvent
}

// AddEntry appends s to the log, evicting the oldest entry when full.
// Entries added after Close are dropped.
func (r *Recorder) AddEntry(s telemetry.Snapshot) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.log.Warn().Str("device", r.name).Msg("History entry added after close, ignoring")
		return
	}

	r.push(s)
	if r.repo != nil {
		r.pending = append(r.pending, s)
		if len(r.pending) > r.cfg.MaxEntries {
			r.pending = r.pending[len(r.pending)-r.cfg.MaxEntries:]
		}
	}
	full := r.repo != nil && len(r.pending) >= r.cfg.BatchSize
	r.mu.Unlock()

	r.diag.Debug().Str("device", r.name).Stringer("entry", s).Msg("History entry added")

	if full {
		select {
		case r.flushNow <- struct{}{}:
		default:
		}
	}
}

// Len returns the number of entries in the log.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ring)
}

// Entries returns the logged entries at or after since, oldest first.
func (r *Recorder) Entries(since time.Time) []telemetry.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]telemetry.Snapshot, 0, len(r.ring))
	for _, s := range r.ordered() {
		if !s.Time.Before(since) {
			out = append(out, s)
		}
	}
	return out
}

// Query returns the persisted entries with from <= time <= to, oldest first.
// Pending entries are flushed first. Without persistence the in-memory log
// is searched instead.
func (r *Recorder) Query(ctx context.Context, from, to time.Time) ([]telemetry.Snapshot, error) {
	r.dbMu.RLock()
	defer r.dbMu.RUnlock()

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, errors.New().New(ErrClosed)
	}

	if r.repo == nil {
		var out []telemetry.Snapshot
		for _, s := range r.Entries(from) {
			if !s.Time.After(to) {
				out = append(out, s)
			}
		}
		return out, nil
	}

	if err := r.flush(ctx); err != nil {
		return nil, errors.New().Wrap(ErrQuery, err)
	}
	return r.repo.between(ctx, from, to)
}

// LogHistory logs a summary of the log, and every entry when includeDetails is set.
func (r *Recorder) LogHistory(includeDetails bool) {
	entries := r.Entries(time.Time{})
	lastEvent := r.LastEvent()

	ev := r.log.Info().Str("device", r.name).Int("entries", len(entries))
	if len(entries) > 0 {
		ev = ev.Time("first", entries[0].Time).Time("last", entries[len(entries)-1].Time)
	}
	if !lastEvent.IsZero() {
		ev = ev.Time("last_event", lastEvent)
	}
	ev.Msg("History")

	if !includeDetails {
		return
	}
	for i, s := range entries {
		r.log.Info().
			Int("index", i).
			Time("time", s.Time).
			Uint8("status", s.Status).
			Float64("voltage", s.Voltage).
			Float64("current", s.Current).
			Float64("power", s.Power).
			Float64("consumption", s.Consumption).
			Msg("History entry")
	}
}

// Close flushes pending entries and closes the database. Calling it again
// is a no-op.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	if r.repo == nil {
		r.diag.Debug().Str("device", r.name).Msg("History closed")
		return nil
	}

	close(r.shutdown)
	select {
	case <-r.flushDone:
	case <-ctx.Done():
		return errors.New().Wrap(ErrStorageClose, ctx.Err())
	}

	if r.closeErr != nil {
		return errors.New().Wrap(ErrStorageClose, r.closeErr)
	}

	r.log.Info().Str("device", r.name).Msg("History closed")
	return nil
}

// flusher owns the repository after Open: it writes batches until shutdown,
// then flushes what is left and closes the database.
func (r *Recorder) flusher(ticker *time.Ticker) {
	defer close(r.flushDone)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = r.flush(context.Background())
		case <-r.flushNow:
			_ = r.flush(context.Background())
		case <-r.shutdown:
			err := r.flush(context.Background())
			r.dbMu.Lock()
			r.closeErr = multierr.Append(err, r.repo.close())
			r.dbMu.Unlock()
			return
		}
	}
}

// flush writes pending entries. On failure they stay pending for the next attempt.
func (r *Recorder) flush(ctx context.Context) error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	if err := r.repo.insert(ctx, batch, r.cfg.MaxEntries); err != nil {
		r.mu.Lock()
		r.pending = append(batch, r.pending...)
		if len(r.pending) > r.cfg.MaxEntries {
			r.pending = r.pending[len(r.pending)-r.cfg.MaxEntries:]
		}
		r.mu.Unlock()

		r.log.Error().Err(err).Str("device", r.name).Int("entries", len(batch)).Msg("Failed to flush history")
		return err
	}

	r.diag.Debug().Str("device", r.name).Int("entries", len(batch)).Msg("Flushed history to database")
	return nil
}

// push adds s to the ring. Callers hold r.mu or own r exclusively.
func (r *Recorder) push(s telemetry.Snapshot) {
	if len(r.ring) < r.cfg.MaxEntries {
		r.ring = append(r.ring, s)
		return
	}
	r.ring[r.head] = s
	r.head = (r.head + 1) % len(r.ring)
}

func (r *Recorder) ordered() []telemetry.Snapshot {
	out := make([]telemetry.Snapshot, 0, len(r.ring))
	out = append(out, r.ring[r.head:]...)
	return append(out, r.ring[:r.head]...)
}
