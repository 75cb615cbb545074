package metrics

import "codeberg.org/mutker/eveenergy/internal/telemetry"

// Collector receives the outlet's readings and loop events.
type Collector interface {
	// Record publishes the readings of one successful tick.
	Record(s telemetry.Snapshot)
	// TickFailed counts a tick that ended before its readings were recorded.
	TickFailed()
	// Command counts an invocation of the named command.
	Command(name string)
	// HistorySize publishes the number of entries in the history log.
	HistorySize(n int)
}
