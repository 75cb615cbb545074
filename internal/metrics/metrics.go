// Package metrics exports the outlet's readings as Prometheus metrics.
package metrics

import (
	"codeberg.org/mutker/eveenergy/internal/errors"
	"codeberg.org/mutker/eveenergy/internal/logger"
	"codeberg.org/mutker/eveenergy/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "eveenergy"

type service struct {
	on             prometheus.Gauge
	voltage        prometheus.Gauge
	current        prometheus.Gauge
	power          prometheus.Gauge
	consumption    prometheus.Gauge
	lastSample     prometheus.Gauge
	historyEntries prometheus.Gauge
	ticks          prometheus.Counter
	tickFailures   prometheus.Counter
	commands       *prometheus.CounterVec
}

// No-op implementation
type noopCollector struct{}

// NewService registers the outlet's metrics with reg. When metrics are
// disabled it returns a no-op collector and registers nothing.
func NewService(cfg Config, reg prometheus.Registerer, log logger.Logger) (Collector, error) {
	errFactory := errors.New()
	log = log.WithComponent("metrics")

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Metrics disabled, using no-op collector")
		return Noop(), nil
	}

	labels := prometheus.Labels{"device": cfg.Device}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	s := &service{
		on:             gauge("on", "Whether the outlet is switched on (1) or off (0)."),
		voltage:        gauge("voltage_volts", "Last sampled voltage."),
		current:        gauge("current_amperes", "Last sampled current."),
		power:          gauge("power_watts", "Last sampled power."),
		consumption:    gauge("consumption_kwh", "Last sampled total consumption."),
		lastSample:     gauge("last_sample_timestamp_seconds", "Time of the last recorded sample."),
		historyEntries: gauge("history_entries", "Entries held in the history log."),
		ticks:          counter("ticks_total", "Sampling ticks whose readings were recorded."),
		tickFailures:   counter("tick_failures_total", "Sampling ticks that failed before recording."),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "commands_total",
			Help:        "Commands invoked on the outlet.",
			ConstLabels: labels,
		}, []string{"command"}),
	}

	for _, c := range []prometheus.Collector{
		s.on, s.voltage, s.current, s.power, s.consumption, s.lastSample,
		s.historyEntries, s.ticks, s.tickFailures, s.commands,
	} {
		if err := reg.Register(c); err != nil {
			return nil, errFactory.Wrap(ErrRegister, err)
		}
	}

	log.Debug().Str("device", cfg.Device).Msg("Metrics service initialized")

	return s, nil
}

func (s *service) Record(snap telemetry.Snapshot) {
	s.on.Set(boolToFloat(snap.On()))
	s.voltage.Set(snap.Voltage)
	s.current.Set(snap.Current)
	s.power.Set(snap.Power)
	s.consumption.Set(snap.Consumption)
	s.lastSample.Set(float64(snap.Time.Unix()))
	s.ticks.Inc()
}

func (s *service) TickFailed() {
	s.tickFailures.Inc()
}

func (s *service) Command(name string) {
	s.commands.WithLabelValues(name).Inc()
}

func (s *service) HistorySize(n int) {
	s.historyEntries.Set(float64(n))
}

// Noop returns a Collector that discards everything.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) Record(telemetry.Snapshot) {}
func (noopCollector) TickFailed()               {}
func (noopCollector) Command(string)            {}
func (noopCollector) HistorySize(int)           {}
