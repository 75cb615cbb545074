package platform

import (
	"codeberg.org/mutker/eveenergy/internal/eventlog"
	"codeberg.org/mutker/eveenergy/internal/history"
	"codeberg.org/mutker/eveenergy/internal/metrics"
)

// Option customizes a Platform.
type Option func(*Platform)

// WithTicker replaces the sampling ticker.
func WithTicker(f TickerFunc) Option {
	return func(p *Platform) { p.newTicker = f }
}

// WithMetrics publishes readings and loop events to c.
func WithMetrics(c metrics.Collector) Option {
	return func(p *Platform) { p.collector = c }
}

// WithEventLog records lifecycle, tick and command events to l.
// The platform closes l on shutdown.
func WithEventLog(l eventlog.Logger) Option {
	return func(p *Platform) { p.events = l }
}

// WithHistoryOptions passes opts to every history recorder the platform opens.
func WithHistoryOptions(opts ...history.Option) Option {
	return func(p *Platform) { p.historyOpts = append(p.historyOpts, opts...) }
}
