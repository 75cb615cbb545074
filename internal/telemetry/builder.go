package telemetry

import "time"

// Source supplies randomness and the clock to a Builder. The history
// recorder implements it so that snapshots and the log share one clock.
type Source interface {
	FakeLevel(min, max float64, decimals int) float64
	Now() time.Time
}

// Builder derives the next state and its readings from the previous state.
type Builder struct {
	src    Source
	ranges Ranges
}

func NewBuilder(src Source) *Builder {
	return &Builder{src: src, ranges: DefaultRanges}
}

// Build toggles previous and samples a consistent snapshot for the new state.
// Current and power are exactly zero while the outlet is off; voltage and
// consumption are always sampled.
func (b *Builder) Build(previous bool) (bool, Snapshot) {
	state := !previous

	voltage := b.sample(b.ranges.Voltage)
	var current, power float64
	if state {
		current = b.sample(b.ranges.Current)
		power = b.sample(b.ranges.Power)
	}
	consumption := b.sample(b.ranges.Consumption)

	var status uint8
	if state {
		status = 1
	}

	return state, Snapshot{
		Time:        b.src.Now(),
		Status:      status,
		Voltage:     voltage,
		Current:     current,
		Power:       power,
		Consumption: consumption,
	}
}

func (b *Builder) sample(r Range) float64 {
	return b.src.FakeLevel(r.Min, r.Max, Decimals)
}
