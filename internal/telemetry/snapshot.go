package telemetry

import (
	"fmt"
	"time"
)

// Snapshot is one set of readings produced by a single sampling tick.
type Snapshot struct {
	Time        time.Time `json:"time" cbor:"1,keyasint"`
	Status      uint8     `json:"status" cbor:"2,keyasint"`
	Voltage     float64   `json:"voltage" cbor:"3,keyasint"`
	Current     float64   `json:"current" cbor:"4,keyasint"`
	Power       float64   `json:"power" cbor:"5,keyasint"`
	Consumption float64   `json:"consumption" cbor:"6,keyasint"`
}

// On reports whether the outlet was on when the snapshot was taken.
func (s Snapshot) On() bool {
	return s.Status == 1
}

func (s Snapshot) String() string {
	return fmt.Sprintf("status:%d voltage:%v current:%v power:%v consumption:%v",
		s.Status, s.Voltage, s.Current, s.Power, s.Consumption)
}

// Range is an inclusive [Min, Max] interval.
type Range struct {
	Min, Max float64
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Ranges holds the simulated interval of every reading.
type Ranges struct {
	Voltage     Range
	Current     Range
	Power       Range
	Consumption Range
}

// Decimals is the number of fractional digits kept on every reading.
const Decimals = 2

// DefaultRanges approximate a 230 V outlet rated for ~10 A.
var DefaultRanges = Ranges{
	Voltage:     Range{Min: 210, Max: 235},
	Current:     Range{Min: 0.05, Max: 10.5},
	Power:       Range{Min: 0.5, Max: 1550},
	Consumption: Range{Min: 0.5, Max: 1550},
}
