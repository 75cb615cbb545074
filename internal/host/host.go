// Package host defines the bridging host the outlet registers with and an
// in-process implementation of it.
package host

import (
	"context"
	"sync"

	"codeberg.org/mutker/eveenergy/internal/errors"
	"codeberg.org/mutker/eveenergy/internal/logger"
	"codeberg.org/mutker/eveenergy/internal/model"
)

// Bridge modes reported by a host.
const (
	ModeBridge      = "bridge"
	ModeChildBridge = "childbridge"
)

// Host is the bridging runtime a platform runs inside.
type Host interface {
	// Version returns the host's semantic version, e.g. "3.3.0".
	Version() string
	// Directory is where platforms keep persistent state.
	Directory() string
	BridgeMode() string
	RegisterDevice(ctx context.Context, ep *model.Endpoint) error
	UnregisterAllDevices(ctx context.Context) error
}

// Options configures a Local host.
type Options struct {
	Version    string
	Directory  string
	BridgeMode string
}

// Local is a Host that keeps registrations in memory. Unregistering
// detaches the endpoints so they stop accepting writes.
type Local struct {
	mu      sync.Mutex
	opts    Options
	log     logger.Logger
	devices map[string]*model.Endpoint
	order   []string
}

var _ Host = (*Local)(nil)

// NewLocal creates a Local host.
func NewLocal(opts Options, log logger.Logger) *Local {
	if opts.BridgeMode == "" {
		opts.BridgeMode = ModeBridge
	}
	return &Local{
		opts:    opts,
		log:     log.WithComponent("host"),
		devices: make(map[string]*model.Endpoint),
	}
}

func (h *Local) Version() string    { return h.opts.Version }
func (h *Local) Directory() string  { return h.opts.Directory }
func (h *Local) BridgeMode() string { return h.opts.BridgeMode }

// RegisterDevice adds ep. Registering a second endpoint with the same
// storage key fails.
func (h *Local) RegisterDevice(ctx context.Context, ep *model.Endpoint) error {
	errFactory := errors.New()

	if ep == nil {
		return errFactory.WithMessage(errors.ErrInvalidArgument, "endpoint is nil")
	}
	if err := ctx.Err(); err != nil {
		return errFactory.Wrap(errors.ErrRegisterDevice, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	key := ep.StorageKey()
	if _, exists := h.devices[key]; exists {
		return errFactory.WithData(errors.ErrRegisterDevice, "device already registered: "+key)
	}
	h.devices[key] = ep
	h.order = append(h.order, key)

	h.log.Info().
		Str("device", key).
		Str("unique_id", ep.UniqueID().String()).
		Str("mode", ep.Mode()).
		Msg("Registered device")

	return nil
}

// UnregisterAllDevices detaches and forgets every registered endpoint.
func (h *Local) UnregisterAllDevices(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.New().Wrap(errors.ErrUnregisterDevice, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, key := range h.order {
		h.devices[key].Detach()
	}
	h.log.Info().Int("count", len(h.order)).Msg("Unregistered all devices")

	h.devices = make(map[string]*model.Endpoint)
	h.order = nil

	return nil
}

// Devices returns the registered endpoints in registration order.
func (h *Local) Devices() []*model.Endpoint {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*model.Endpoint, 0, len(h.order))
	for _, key := range h.order {
		out = append(out, h.devices[key])
	}
	return out
}
