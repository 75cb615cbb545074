// Package platform runs the simulated Eve Energy outlet inside a host:
// it registers the device, drives the sampling loop and answers commands.
package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codeberg.org/mutker/eveenergy/internal/config"
	"codeberg.org/mutker/eveenergy/internal/errors"
	"codeberg.org/mutker/eveenergy/internal/eventlog"
	"codeberg.org/mutker/eveenergy/internal/history"
	"codeberg.org/mutker/eveenergy/internal/host"
	"codeberg.org/mutker/eveenergy/internal/logger"
	"codeberg.org/mutker/eveenergy/internal/metrics"
	"codeberg.org/mutker/eveenergy/internal/model"
	"codeberg.org/mutker/eveenergy/internal/telemetry"
	"codeberg.org/mutker/eveenergy/internal/version"
	"go.uber.org/multierr"
)

// DeviceName keys the outlet's storage and history.
const DeviceName = "Eve energy"

// Phase is the lifecycle position of a Platform.
type Phase int

const (
	PhaseConstructed Phase = iota
	PhaseStarted
	PhaseConfigured
	PhaseShutDown
)

func (p Phase) String() string {
	switch p {
	case PhaseConstructed:
		return "constructed"
	case PhaseStarted:
		return "started"
	case PhaseConfigured:
		return "configured"
	case PhaseShutDown:
		return "shut down"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Platform is one simulated outlet. Start, Configure and Shutdown are
// called by the host in that order; each may be called from any goroutine.
type Platform struct {
	host        host.Host
	log         logger.Logger
	cfg         *config.Config
	newTicker   TickerFunc
	collector   metrics.Collector
	events      eventlog.Logger
	historyOpts []history.Option

	mu       sync.Mutex
	phase    Phase
	state    bool
	last     *telemetry.Snapshot
	endpoint *model.Endpoint
	recorder *history.Recorder
	builder  *telemetry.Builder
	ticker   Ticker
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// Initialize is the entry point a host calls to load the platform.
func Initialize(h host.Host, log logger.Logger, cfg *config.Config) (*Platform, error) {
	return New(h, log, cfg)
}

// New checks that h is recent enough and creates the platform. Nothing is
// allocated when the check fails.
func New(h host.Host, log logger.Logger, cfg *config.Config, opts ...Option) (*Platform, error) {
	errFactory := errors.New()

	if h == nil || log == nil || cfg == nil {
		return nil, errFactory.WithMessage(errors.ErrInvalidArgument, "host, logger and config are required")
	}

	if err := version.Check(h.Version(), version.MinHost); err != nil {
		return nil, errFactory.Wrap(errors.ErrIncompatibleHost, err)
	}

	p := &Platform{
		host:      h,
		log:       log.WithComponent("platform"),
		cfg:       cfg,
		newTicker: NewTicker,
		collector: metrics.Noop(),
		events:    eventlog.NoopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}

	p.log.Info().Msgf("Initializing platform: %s", cfg.Name)

	return p, nil
}

// Start opens the history, creates the outlet endpoint and registers it with
// the host. Calling Start again replaces the history recorder and keeps the
// registered endpoint.
func (p *Platform) Start(ctx context.Context, reason string) error {
	errFactory := errors.New()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.phase == PhaseShutDown {
		return ErrShutDown
	}

	p.log.Info().Msgf("onStart called with reason: %s", orNone(reason))

	if p.recorder != nil {
		p.log.Warn().Msg("Platform already started, reopening history")
		if err := p.recorder.Close(ctx); err != nil {
			p.log.Error().Err(err).Msg("Failed to close previous history")
		}
		p.recorder = nil
	}

	rec, err := history.Open(ctx, DeviceName, p.historyConfig(), p.log, p.historyOpts...)
	if err != nil {
		return errFactory.Wrap(errors.ErrInitHistory, err)
	}

	if p.endpoint == nil {
		ep := p.createEndpoint()

		if err := p.host.RegisterDevice(ctx, ep); err != nil {
			if cerr := rec.Close(ctx); cerr != nil {
				p.log.Error().Err(cerr).Msg("Failed to close history")
			}
			return errFactory.Wrap(errors.ErrRegisterDevice, err)
		}

		if err := p.addCommandHandlers(ep); err != nil {
			if cerr := rec.Close(ctx); cerr != nil {
				p.log.Error().Err(cerr).Msg("Failed to close history")
			}
			return errFactory.Wrap(errors.ErrInitFailed, err)
		}
		p.endpoint = ep

		if layout, err := ep.Describe(); err == nil {
			p.log.Debug().Str("layout", string(layout)).Msg("Endpoint created")
		}
	}

	p.recorder = rec
	p.builder = telemetry.NewBuilder(rec)
	if p.phase == PhaseConstructed {
		p.phase = PhaseStarted
	}

	p.events.Log(eventlog.Event{
		Time:   time.Now(),
		Kind:   eventlog.KindLifecycle,
		Device: DeviceName,
		Name:   "start",
		Reason: orNone(reason),
	})

	return nil
}

// Configure starts the sampling loop.
func (p *Platform) Configure(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Info().Msg("onConfigure called")

	switch {
	case p.phase == PhaseShutDown:
		return ErrShutDown
	case p.phase == PhaseConstructed:
		return ErrNotStarted
	case p.ticker != nil:
		return ErrAlreadyConfigured
	}

	interval := p.cfg.Interval
	if interval <= 0 {
		interval = config.DefaultInterval
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.ticker = p.newTicker(interval)
	p.cancel = cancel
	p.loopDone = make(chan struct{})
	p.phase = PhaseConfigured

	go p.loop(loopCtx, p.ticker, p.loopDone)

	p.log.Debug().Dur("interval", interval).Msg("Sampling started")

	p.events.Log(eventlog.Event{
		Time:   time.Now(),
		Kind:   eventlog.KindLifecycle,
		Device: DeviceName,
		Name:   "configure",
	})

	return nil
}

// Shutdown stops the sampling loop, closes the history and, when configured,
// removes all devices from the host. Every step runs even if an earlier one
// fails. Calling it again is a no-op.
func (p *Platform) Shutdown(ctx context.Context, reason string) error {
	p.mu.Lock()
	if p.phase == PhaseShutDown {
		p.mu.Unlock()
		return nil
	}

	p.log.Info().Msgf("onShutdown called with reason: %s", orNone(reason))

	p.phase = PhaseShutDown
	ticker, cancel, done := p.ticker, p.cancel, p.loopDone
	p.ticker, p.cancel, p.loopDone = nil, nil, nil
	p.mu.Unlock()

	var errs error

	if ticker != nil {
		ticker.Stop()
	}
	if cancel != nil {
		cancel()
	}
	if err := waitLoop(ctx, done); err != nil {
		errs = multierr.Append(errs, err)
	}

	// Released only after the wait, so a received tick still finds its recorder.
	p.mu.Lock()
	rec := p.recorder
	p.recorder, p.builder = nil, nil
	p.mu.Unlock()

	if rec != nil {
		errs = multierr.Append(errs, rec.Close(ctx))
	}

	if p.cfg.UnregisterOnShutdown {
		if err := p.host.UnregisterAllDevices(ctx); err != nil {
			errs = multierr.Append(errs, errors.New().Wrap(errors.ErrUnregisterDevice, err))
		}
	}

	p.events.Log(eventlog.Event{
		Time:   time.Now(),
		Kind:   eventlog.KindLifecycle,
		Device: DeviceName,
		Name:   "shutdown",
		Reason: orNone(reason),
	})
	errs = multierr.Append(errs, p.events.Close())

	if errs != nil {
		p.log.Error().Err(errs).Msg("Shutdown completed with errors")
		return errors.New().Wrap(errors.ErrShutdownFailed, errs)
	}
	return nil
}

// waitLoop blocks until done is closed or ctx ends. A loop that has already
// exited wins over an expired ctx.
func waitLoop(ctx context.Context, done <-chan struct{}) error {
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	default:
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for sampling loop: %w", ctx.Err())
	}
}

// Phase returns the current lifecycle phase.
func (p *Platform) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// State returns the outlet's on/off state as of the last tick.
func (p *Platform) State() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Last returns the snapshot recorded by the last successful tick.
func (p *Platform) Last() (telemetry.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return telemetry.Snapshot{}, false
	}
	return *p.last, true
}

// Endpoint returns the outlet endpoint, nil before Start.
func (p *Platform) Endpoint() *model.Endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endpoint
}

// History returns the active history recorder, nil outside Start..Shutdown.
func (p *Platform) History() *history.Recorder {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recorder
}

func (p *Platform) createEndpoint() *model.Endpoint {
	var mode string
	if p.host.BridgeMode() == host.ModeBridge {
		mode = model.ModeServer
	}

	ep := model.NewEndpoint(
		[]model.DeviceType{model.DeviceTypeOnOffOutlet, model.DeviceTypePowerSource},
		model.EndpointOptions{UniqueStorageKey: DeviceName, Mode: mode},
	)
	ep.CreateDefaultIdentifyClusterServer()
	ep.CreateDefaultBasicInformationClusterServer(model.EveEnergyInformation(DeviceName))
	ep.CreateDefaultGroupsClusterServer()
	ep.CreateDefaultOnOffClusterServer(true)
	ep.CreateDefaultPowerSourceWiredClusterServer()
	// the history cluster goes last
	ep.CreateDefaultEveHistoryClusterServer()

	return ep
}

func (p *Platform) historyConfig() history.Config {
	cfg := history.DefaultConfig()
	cfg.Dir = p.host.Directory()
	cfg.Debug = p.cfg.Debug
	if p.cfg.History.MaxEntries > 0 {
		cfg.MaxEntries = p.cfg.History.MaxEntries
	}
	if p.cfg.History.BatchSize > 0 {
		cfg.BatchSize = p.cfg.History.BatchSize
	}
	if p.cfg.History.FlushInterval > 0 {
		cfg.FlushInterval = p.cfg.History.FlushInterval
	}
	return cfg
}

func orNone(reason string) string {
	if reason == "" {
		return "none"
	}
	return reason
}
