package platform_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/eveenergy/internal/config"
	"codeberg.org/mutker/eveenergy/internal/errors"
	"codeberg.org/mutker/eveenergy/internal/eventlog"
	"codeberg.org/mutker/eveenergy/internal/history"
	"codeberg.org/mutker/eveenergy/internal/host"
	"codeberg.org/mutker/eveenergy/internal/logger"
	"codeberg.org/mutker/eveenergy/internal/metrics"
	"codeberg.org/mutker/eveenergy/internal/model"
	"codeberg.org/mutker/eveenergy/internal/platform"
	"codeberg.org/mutker/eveenergy/internal/telemetry"
	"codeberg.org/mutker/eveenergy/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

type logLine struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func (b *syncBuffer) lines(t *testing.T) []logLine {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []logLine
	for _, raw := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var l logLine
		require.NoError(t, json.Unmarshal([]byte(raw), &l))
		out = append(out, l)
	}
	return out
}

func (b *syncBuffer) messages(t *testing.T, prefix string) []string {
	var out []string
	for _, l := range b.lines(t) {
		if strings.HasPrefix(l.Message, prefix) {
			out = append(out, l.Message)
		}
	}
	return out
}

func (b *syncBuffer) errorLines(t *testing.T) []logLine {
	var out []logLine
	for _, l := range b.lines(t) {
		if l.Level == "error" {
			out = append(out, l)
		}
	}
	return out
}

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { f.stopped.Store(true) }

type tickerFactory struct {
	mu        sync.Mutex
	tickers   []*fakeTicker
	intervals []time.Duration
}

func (tf *tickerFactory) New(d time.Duration) platform.Ticker {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	ft := &fakeTicker{ch: make(chan time.Time)}
	tf.tickers = append(tf.tickers, ft)
	tf.intervals = append(tf.intervals, d)
	return ft
}

func (tf *tickerFactory) count() int {
	tf.mu.Lock()
	defer tf.mu.Unlock()
	return len(tf.tickers)
}

// tick blocks until the loop has received the tick.
func (tf *tickerFactory) tick(t *testing.T, n int) {
	t.Helper()
	tf.mu.Lock()
	require.NotEmpty(t, tf.tickers)
	ft := tf.tickers[len(tf.tickers)-1]
	tf.mu.Unlock()

	for i := 0; i < n; i++ {
		select {
		case ft.ch <- now:
		case <-time.After(5 * time.Second):
			t.Fatal("sampling loop did not accept tick")
		}
	}
}

type mockHost struct {
	mock.Mock
}

func (m *mockHost) Version() string    { return m.Called().String(0) }
func (m *mockHost) Directory() string  { return m.Called().String(0) }
func (m *mockHost) BridgeMode() string { return m.Called().String(0) }

func (m *mockHost) RegisterDevice(ctx context.Context, ep *model.Endpoint) error {
	return m.Called(ctx, ep).Error(0)
}

func (m *mockHost) UnregisterAllDevices(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newMockHost(v string) *mockHost {
	h := &mockHost{}
	h.On("Version").Return(v)
	h.On("Directory").Return("")
	h.On("BridgeMode").Return(host.ModeBridge)
	h.On("RegisterDevice", mock.Anything, mock.Anything).Return(nil)
	h.On("UnregisterAllDevices", mock.Anything).Return(nil)
	return h
}

func testConfig() *config.Config {
	return &config.Config{
		Name:     config.DefaultName,
		Interval: config.DefaultInterval,
	}
}

type fixture struct {
	p       *platform.Platform
	tickers *tickerFactory
	logs    *syncBuffer
}

func newFixture(t *testing.T, h host.Host, cfg *config.Config, opts ...platform.Option) fixture {
	t.Helper()
	tf := &tickerFactory{}
	logs := &syncBuffer{}

	opts = append([]platform.Option{
		platform.WithTicker(tf.New),
		platform.WithHistoryOptions(
			history.WithClock(func() time.Time { return now }),
			history.WithSampler(telemetry.NewSampler(rand.NewPCG(7, 11))),
		),
	}, opts...)

	p, err := platform.New(h, logger.New(logs, logger.DebugLevel), cfg, opts...)
	require.NoError(t, err)
	return fixture{p: p, tickers: tf, logs: logs}
}

func TestNewRejectsOldHost(t *testing.T) {
	h := newMockHost("3.2.9")
	logs := &syncBuffer{}

	p, err := platform.New(h, logger.New(logs, logger.DebugLevel), testConfig())
	require.Error(t, err)
	assert.Nil(t, p)
	assert.True(t, errors.Is(err, version.ErrIncompatible))
	assert.Contains(t, err.Error(), `>= "3.3.0"`)
	assert.Contains(t, err.Error(), "3.2.9")

	code, ok := errors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrIncompatibleHost, code)

	h.AssertNotCalled(t, "RegisterDevice", mock.Anything, mock.Anything)
	h.AssertNotCalled(t, "Directory")
	assert.Empty(t, logs.messages(t, "Initializing platform"))
}

func TestNewRequiresArguments(t *testing.T) {
	_, err := platform.New(nil, logger.Nop(), testConfig())
	assert.Error(t, err)

	_, err = platform.New(newMockHost("3.3.0"), logger.Nop(), nil)
	assert.Error(t, err)
}

func TestInitialize(t *testing.T) {
	logs := &syncBuffer{}
	h := host.NewLocal(host.Options{Version: "3.4.1"}, logger.Nop())

	p, err := platform.Initialize(h, logger.New(logs, logger.InfoLevel), testConfig())
	require.NoError(t, err)
	assert.Equal(t, platform.PhaseConstructed, p.Phase())
	assert.Equal(t, []string{"Initializing platform: Eve energy"}, logs.messages(t, "Initializing platform"))
}

func TestStartRegistersEndpoint(t *testing.T) {
	ctx := context.Background()
	h := host.NewLocal(host.Options{Version: "3.3.0"}, logger.Nop())
	f := newFixture(t, h, testConfig())

	require.NoError(t, f.p.Start(ctx, ""))
	assert.Equal(t, platform.PhaseStarted, f.p.Phase())
	assert.Equal(t, []string{"onStart called with reason: none"}, f.logs.messages(t, "onStart"))

	devices := h.Devices()
	require.Len(t, devices, 1)
	ep := devices[0]
	assert.Same(t, ep, f.p.Endpoint())
	assert.Equal(t, model.ModeServer, ep.Mode())
	assert.Equal(t, []model.DeviceType{model.DeviceTypeOnOffOutlet, model.DeviceTypePowerSource}, ep.DeviceTypes())
	assert.Equal(t, []string{
		"descriptor", "identify", "basicInformation", "groups", "onOff", "powerSource", "eveHistory",
	}, ep.ClusterNames())

	product, err := model.Get(ep, model.AttrProductName)
	require.NoError(t, err)
	assert.Equal(t, "Eve Energy 20EBO8301", product)

	require.NotNil(t, f.p.History())
	require.NoError(t, f.p.Shutdown(ctx, "test"))
}

func TestStartChildBridge(t *testing.T) {
	ctx := context.Background()
	h := host.NewLocal(host.Options{Version: "3.3.0", BridgeMode: host.ModeChildBridge}, logger.Nop())
	f := newFixture(t, h, testConfig())

	require.NoError(t, f.p.Start(ctx, "plugin loaded"))
	assert.Empty(t, f.p.Endpoint().Mode())
	assert.Equal(t, []string{"onStart called with reason: plugin loaded"}, f.logs.messages(t, "onStart"))
	require.NoError(t, f.p.Shutdown(ctx, ""))
}

func TestStartRegistrationFailure(t *testing.T) {
	ctx := context.Background()
	h := &mockHost{}
	h.On("Version").Return("3.3.0")
	h.On("Directory").Return("")
	h.On("BridgeMode").Return(host.ModeBridge)
	h.On("RegisterDevice", mock.Anything, mock.Anything).Return(errors.New().New(errors.ErrResourceBusy))
	f := newFixture(t, h, testConfig())

	err := f.p.Start(ctx, "")
	require.Error(t, err)
	code, ok := errors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrRegisterDevice, code)

	assert.Equal(t, platform.PhaseConstructed, f.p.Phase())
	assert.Nil(t, f.p.History())
	assert.Nil(t, f.p.Endpoint())
	assert.ErrorIs(t, f.p.Configure(ctx), platform.ErrNotStarted)
}

func TestStartTwiceReplacesHistory(t *testing.T) {
	ctx := context.Background()
	h := newMockHost("3.3.0")
	f := newFixture(t, h, testConfig())

	require.NoError(t, f.p.Start(ctx, ""))
	first := f.p.History()
	ep := f.p.Endpoint()

	require.NoError(t, f.p.Start(ctx, ""))
	assert.NotSame(t, first, f.p.History())
	assert.Same(t, ep, f.p.Endpoint())
	h.AssertNumberOfCalls(t, "RegisterDevice", 1)

	_, err := first.Query(ctx, now, now)
	assert.Error(t, err, "previous history is closed")

	require.NoError(t, f.p.Shutdown(ctx, ""))
}

func TestConfigureBeforeStart(t *testing.T) {
	f := newFixture(t, newMockHost("3.3.0"), testConfig())

	assert.ErrorIs(t, f.p.Configure(context.Background()), platform.ErrNotStarted)
	assert.Zero(t, f.tickers.count())
}

func TestConfigureTwice(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Interval = 0
	f := newFixture(t, newMockHost("3.3.0"), cfg)

	require.NoError(t, f.p.Start(ctx, ""))
	require.NoError(t, f.p.Configure(ctx))
	assert.Equal(t, platform.PhaseConfigured, f.p.Phase())

	assert.ErrorIs(t, f.p.Configure(ctx), platform.ErrAlreadyConfigured)
	assert.Equal(t, 1, f.tickers.count())
	assert.Equal(t, []time.Duration{60*time.Second - 200*time.Millisecond}, f.tickers.intervals)
	assert.Len(t, f.logs.messages(t, "onConfigure called"), 2)

	require.NoError(t, f.p.Shutdown(ctx, ""))
}

func TestTwentyCycles(t *testing.T) {
	ctx := context.Background()
	h := host.NewLocal(host.Options{Version: "3.3.0"}, logger.Nop())
	f := newFixture(t, h, testConfig())

	require.NoError(t, f.p.Start(ctx, ""))
	require.NoError(t, f.p.Configure(ctx))
	rec := f.p.History()

	f.tickers.tick(t, 20)
	require.NoError(t, f.p.Shutdown(ctx, "done"))

	entries := rec.Entries(time.Time{})
	require.Len(t, entries, 20)
	for i, e := range entries {
		wantOn := i%2 == 0
		assert.Equal(t, wantOn, e.On(), "entry %d", i)
		assert.True(t, telemetry.DefaultRanges.Voltage.Contains(e.Voltage))
		assert.True(t, telemetry.DefaultRanges.Consumption.Contains(e.Consumption))
		if wantOn {
			assert.True(t, telemetry.DefaultRanges.Current.Contains(e.Current))
			assert.True(t, telemetry.DefaultRanges.Power.Contains(e.Power))
		} else {
			assert.Zero(t, e.Current)
			assert.Zero(t, e.Power)
		}
		assert.Equal(t, now, e.Time)
	}

	summaries := f.logs.messages(t, "Set state to")
	require.Len(t, summaries, 20)
	assert.True(t, strings.HasPrefix(summaries[0], "Set state to true voltage:"))
	assert.True(t, strings.HasPrefix(summaries[1], "Set state to false voltage:"))
	assert.Contains(t, summaries[1], "current:0 power:0 ")
	assert.Empty(t, f.logs.errorLines(t))

	// Attributes hold the readings of the last tick.
	last, ok := f.p.Last()
	require.True(t, ok)
	assert.Equal(t, entries[19], last)
	assert.False(t, f.p.State())

	ep := f.p.Endpoint()
	on, err := model.Get(ep, model.AttrOnOff)
	require.NoError(t, err)
	assert.False(t, on)
	consumption, err := model.Get(ep, model.AttrConsumption)
	require.NoError(t, err)
	assert.Equal(t, last.Power, consumption)
	total, err := model.Get(ep, model.AttrTotalConsumption)
	require.NoError(t, err)
	assert.Equal(t, last.Consumption, total)
	voltage, err := model.Get(ep, model.AttrVoltage)
	require.NoError(t, err)
	assert.Equal(t, last.Voltage, voltage)

	assert.Equal(t, now, rec.LastEvent())
	assert.Nil(t, f.p.History())
	assert.True(t, f.tickers.tickers[0].stopped.Load())
	assert.Equal(t, []string{"onShutdown called with reason: done"}, f.logs.messages(t, "onShutdown"))
}

func TestTickWriteFailure(t *testing.T) {
	ctx := context.Background()
	h := host.NewLocal(host.Options{Version: "3.3.0"}, logger.Nop())
	f := newFixture(t, h, testConfig())

	require.NoError(t, f.p.Start(ctx, ""))
	require.NoError(t, f.p.Configure(ctx))
	rec := f.p.History()

	f.tickers.tick(t, 1)
	f.logs.waitSummaries(t, 1)
	f.p.Endpoint().Detach()
	f.tickers.tick(t, 2)
	require.NoError(t, f.p.Shutdown(ctx, ""))

	assert.Equal(t, 1, rec.Len())
	assert.Len(t, f.logs.messages(t, "Set state to"), 1)
	errs := f.logs.errorLines(t)
	require.Len(t, errs, 2)
	assert.Equal(t, "Failed to update attributes", errs[0].Message)

	// the toggle is committed even when the writes fail
	assert.True(t, f.p.State())
}

func TestShutdownCompletesReceivedTicks(t *testing.T) {
	for _, n := range []int{1, 2, 7, 20} {
		t.Run(fmt.Sprintf("%d ticks", n), func(t *testing.T) {
			ctx := context.Background()
			h := host.NewLocal(host.Options{Version: "3.3.0"}, logger.Nop())
			f := newFixture(t, h, testConfig())

			require.NoError(t, f.p.Start(ctx, ""))
			require.NoError(t, f.p.Configure(ctx))
			rec := f.p.History()

			f.tickers.tick(t, n)
			require.NoError(t, f.p.Shutdown(ctx, ""))

			assert.Equal(t, n, rec.Len())
			assert.Len(t, f.logs.messages(t, "Set state to"), n)
			assert.Empty(t, f.logs.messages(t, "History entry added after close"))
			assert.Empty(t, f.logs.errorLines(t))
			assert.Equal(t, n%2 == 1, f.p.State())
		})
	}
}

func TestTickPanicDoesNotStopSampling(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewService(metrics.Config{Enabled: true, Addr: ":0", Device: platform.DeviceName}, reg, logger.Nop())
	require.NoError(t, err)

	var calls atomic.Int32
	clock := func() time.Time {
		if calls.Add(1) == 1 {
			panic("clock unavailable")
		}
		return now
	}

	h := host.NewLocal(host.Options{Version: "3.3.0"}, logger.Nop())
	f := newFixture(t, h, testConfig(),
		platform.WithMetrics(collector),
		platform.WithHistoryOptions(history.WithClock(clock)),
	)

	require.NoError(t, f.p.Start(ctx, ""))
	require.NoError(t, f.p.Configure(ctx))
	rec := f.p.History()

	f.tickers.tick(t, 3)
	require.NoError(t, f.p.Shutdown(ctx, ""))

	errs := f.logs.errorLines(t)
	require.Len(t, errs, 1)
	assert.Equal(t, "Sampling tick panicked", errs[0].Message)

	// the panicking tick committed nothing, the next two record normally
	assert.Equal(t, 2, rec.Len())
	summaries := f.logs.messages(t, "Set state to")
	require.Len(t, summaries, 2)
	assert.True(t, strings.HasPrefix(summaries[0], "Set state to true "))
	assert.False(t, f.p.State())

	assert.Equal(t, 1.0, metricValue(t, reg, "eveenergy_tick_failures_total"))
	assert.Equal(t, 2.0, metricValue(t, reg, "eveenergy_ticks_total"))
}

func TestShutdownWithoutConfigure(t *testing.T) {
	ctx := context.Background()
	h := newMockHost("3.3.0")
	f := newFixture(t, h, testConfig())

	require.NoError(t, f.p.Shutdown(ctx, ""))
	assert.Zero(t, f.tickers.count())
	assert.Equal(t, platform.PhaseShutDown, f.p.Phase())
	h.AssertNotCalled(t, "UnregisterAllDevices", mock.Anything)

	f = newFixture(t, h, testConfig())
	require.NoError(t, f.p.Start(ctx, ""))
	require.NoError(t, f.p.Shutdown(ctx, ""))
	assert.Zero(t, f.tickers.count())
}

func TestUnregisterOnShutdown(t *testing.T) {
	for _, tc := range []struct {
		name       string
		unregister bool
		calls      int
	}{
		{"enabled", true, 1},
		{"disabled", false, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			h := newMockHost("3.3.0")
			cfg := testConfig()
			cfg.UnregisterOnShutdown = tc.unregister
			f := newFixture(t, h, cfg)

			require.NoError(t, f.p.Start(ctx, ""))
			require.NoError(t, f.p.Configure(ctx))
			f.tickers.tick(t, 3)
			require.NoError(t, f.p.Shutdown(ctx, ""))
			require.NoError(t, f.p.Shutdown(ctx, ""))

			h.AssertNumberOfCalls(t, "UnregisterAllDevices", tc.calls)
			assert.Len(t, f.logs.messages(t, "onShutdown called"), 1)
		})
	}
}

func TestShutdownAggregatesErrors(t *testing.T) {
	ctx := context.Background()
	h := &mockHost{}
	h.On("Version").Return("3.3.0")
	h.On("Directory").Return("")
	h.On("BridgeMode").Return(host.ModeBridge)
	h.On("RegisterDevice", mock.Anything, mock.Anything).Return(nil)
	h.On("UnregisterAllDevices", mock.Anything).Return(errors.New().New(errors.ErrTimeout))

	cfg := testConfig()
	cfg.UnregisterOnShutdown = true
	f := newFixture(t, h, cfg)

	require.NoError(t, f.p.Start(ctx, ""))
	err := f.p.Shutdown(ctx, "")
	require.Error(t, err)
	code, ok := errors.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrShutdownFailed, code)
	assert.Contains(t, err.Error(), "Operation timed out")
	assert.Equal(t, platform.PhaseShutDown, f.p.Phase())
}

func TestLifecycleAfterShutdown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newMockHost("3.3.0"), testConfig())

	require.NoError(t, f.p.Start(ctx, ""))
	require.NoError(t, f.p.Shutdown(ctx, ""))

	assert.ErrorIs(t, f.p.Start(ctx, ""), platform.ErrShutDown)
	assert.ErrorIs(t, f.p.Configure(ctx), platform.ErrShutDown)
	assert.Zero(t, f.tickers.count())
}

func TestIdentify(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newMockHost("3.3.0"), testConfig())

	require.NoError(t, f.p.Start(ctx, ""))
	require.NoError(t, f.p.Configure(ctx))
	f.tickers.tick(t, 2)
	f.logs.waitSummaries(t, 2)

	rec := f.p.History()
	before := rec.Entries(time.Time{})
	state := f.p.State()

	require.NoError(t, model.Invoke(ctx, f.p.Endpoint(), model.CmdIdentify, model.IdentifyRequest{IdentifyTime: 5}))

	assert.Equal(t, []string{"Command identify called identifyTime:5"}, f.logs.messages(t, "Command identify"))
	lines := f.logs.lines(t)
	last := lines[len(lines)-1]
	assert.Equal(t, "History", last.Message)

	assert.Equal(t, before, rec.Entries(time.Time{}))
	assert.Equal(t, state, f.p.State())
	assert.Equal(t, 1, f.tickers.count())

	require.NoError(t, f.p.Shutdown(ctx, ""))
}

func TestTriggerEffect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, newMockHost("3.3.0"), testConfig())
	require.NoError(t, f.p.Start(ctx, ""))

	require.NoError(t, model.Invoke(ctx, f.p.Endpoint(), model.CmdTriggerEffect, model.TriggerEffectRequest{
		EffectIdentifier: model.EffectOkay,
		EffectVariant:    model.EffectVariantDefault,
	}))

	assert.Equal(t, []string{"Command triggerEffect called effect 2 variant 0"}, f.logs.messages(t, "Command triggerEffect"))
	assert.Len(t, f.logs.messages(t, "History"), 1)
	assert.Equal(t, 0, f.p.History().Len())

	require.NoError(t, f.p.Shutdown(ctx, ""))

	// commands after shutdown still answer but have no history to log
	require.NoError(t, model.Invoke(ctx, f.p.Endpoint(), model.CmdIdentify, model.IdentifyRequest{}))
	assert.Len(t, f.logs.messages(t, "History"), 1)
}

func TestMetricsAndEventLog(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewService(metrics.Config{Enabled: true, Addr: ":0", Device: platform.DeviceName}, reg, logger.Nop())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "events.cbor")
	events, err := eventlog.NewFileLogger(path, logger.Nop())
	require.NoError(t, err)

	f := newFixture(t, newMockHost("3.3.0"), testConfig(),
		platform.WithMetrics(collector),
		platform.WithEventLog(events),
	)

	require.NoError(t, f.p.Start(ctx, "boot"))
	require.NoError(t, f.p.Configure(ctx))
	f.tickers.tick(t, 4)
	f.logs.waitSummaries(t, 4)
	require.NoError(t, model.Invoke(ctx, f.p.Endpoint(), model.CmdIdentify, model.IdentifyRequest{IdentifyTime: 5}))
	require.NoError(t, f.p.Shutdown(ctx, "stop"))

	assert.Equal(t, 4.0, metricValue(t, reg, "eveenergy_ticks_total"))
	assert.Equal(t, 4.0, metricValue(t, reg, "eveenergy_history_entries"))

	r, err := eventlog.NewReader(path, eventlog.Filter{})
	require.NoError(t, err)
	defer r.Close()
	all, err := r.ReadAll()
	require.NoError(t, err)

	var names []string
	for _, e := range all {
		names = append(names, e.Kind.String()+":"+e.Name)
	}
	assert.Equal(t, []string{
		"lifecycle:start", "lifecycle:configure",
		"tick:tick", "tick:tick", "tick:tick", "tick:tick",
		"command:identify",
		"lifecycle:shutdown",
	}, names)
	assert.Equal(t, uint64(5), all[6].Args["identifyTime"])
	assert.Equal(t, "stop", all[7].Reason)
}

func TestHistoryIsPersisted(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	h := host.NewLocal(host.Options{Version: "3.3.0", Directory: dir}, logger.Nop())
	cfg := testConfig()
	cfg.History.BatchSize = 4
	f := newFixture(t, h, cfg)

	require.NoError(t, f.p.Start(ctx, ""))
	require.NoError(t, f.p.Configure(ctx))
	f.tickers.tick(t, 10)
	require.NoError(t, f.p.Shutdown(ctx, ""))

	hcfg := history.DefaultConfig()
	hcfg.Dir = dir
	rec, err := history.Open(ctx, platform.DeviceName, hcfg, logger.Nop())
	require.NoError(t, err)
	defer rec.Close(ctx)

	got, err := rec.Query(ctx, now, now)
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func metricValue(t *testing.T, g prometheus.Gatherer, name string) float64 {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			require.Len(t, mf.GetMetric(), 1)
			m := mf.GetMetric()[0]
			return m.GetGauge().GetValue() + m.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

// waitSummaries waits until n ticks have completed.
func (b *syncBuffer) waitSummaries(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(b.messages(t, "Set state to")) == n
	}, 5*time.Second, 5*time.Millisecond)
}
