package host_test

import (
	"context"
	"testing"

	"codeberg.org/mutker/eveenergy/internal/errors"
	"codeberg.org/mutker/eveenergy/internal/host"
	"codeberg.org/mutker/eveenergy/internal/logger"
	"codeberg.org/mutker/eveenergy/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEndpoint(key string) *model.Endpoint {
	ep := model.NewEndpoint([]model.DeviceType{model.DeviceTypeOnOffOutlet}, model.EndpointOptions{UniqueStorageKey: key})
	ep.CreateDefaultOnOffClusterServer(false)
	return ep
}

func TestLocalDefaults(t *testing.T) {
	h := host.NewLocal(host.Options{Version: "3.3.0", Directory: "/tmp/eve"}, logger.Nop())

	assert.Equal(t, "3.3.0", h.Version())
	assert.Equal(t, "/tmp/eve", h.Directory())
	assert.Equal(t, host.ModeBridge, h.BridgeMode())
}

func TestRegisterAndUnregister(t *testing.T) {
	ctx := context.Background()
	h := host.NewLocal(host.Options{Version: "3.3.0"}, logger.Nop())

	a, b := newEndpoint("a"), newEndpoint("b")
	require.NoError(t, h.RegisterDevice(ctx, a))
	require.NoError(t, h.RegisterDevice(ctx, b))
	assert.Equal(t, []*model.Endpoint{a, b}, h.Devices())

	err := h.RegisterDevice(ctx, newEndpoint("a"))
	code, ok := errors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrRegisterDevice, code)

	require.NoError(t, h.UnregisterAllDevices(ctx))
	assert.Empty(t, h.Devices())
	assert.True(t, a.Detached())
	assert.True(t, b.Detached())
	assert.ErrorIs(t, model.Set(ctx, a, model.AttrOnOff, true), model.ErrEndpointDetached)
}

func TestRegisterNil(t *testing.T) {
	h := host.NewLocal(host.Options{}, logger.Nop())

	err := h.RegisterDevice(context.Background(), nil)
	assert.True(t, errors.Is(err, errors.New().New(errors.ErrInvalidArgument)))
}

func TestRegisterCanceled(t *testing.T) {
	h := host.NewLocal(host.Options{}, logger.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.RegisterDevice(ctx, newEndpoint("a"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.Devices())
}
