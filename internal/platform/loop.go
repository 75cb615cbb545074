package platform

import (
	"context"
	"fmt"

	"codeberg.org/mutker/eveenergy/internal/eventlog"
	"codeberg.org/mutker/eveenergy/internal/history"
	"codeberg.org/mutker/eveenergy/internal/model"
	"codeberg.org/mutker/eveenergy/internal/telemetry"
)

func (p *Platform) loop(ctx context.Context, t Ticker, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			// A received tick runs to completion even if Shutdown cancels ctx meanwhile.
			p.tick(context.WithoutCancel(ctx))
		}
	}
}

// tick toggles the outlet, publishes fresh readings and records them.
// A failed write ends the tick; the loop keeps running.
func (p *Platform) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("Sampling tick panicked")
			p.collector.TickFailed()
		}
	}()

	ep, rec, state, snap, ok := p.advance()
	if !ok {
		p.log.Warn().Msg("Sampling tick without an active history, skipping")
		return
	}

	if err := writeAttributes(ctx, ep, state, snap); err != nil {
		p.log.Error().Err(err).Msg("Failed to update attributes")
		p.collector.TickFailed()
		p.events.Log(eventlog.Event{
			Time:   snap.Time,
			Kind:   eventlog.KindError,
			Device: DeviceName,
			Name:   "tick",
			Error:  err.Error(),
		})
		return
	}

	rec.SetLastEvent()
	rec.AddEntry(snap)

	p.mu.Lock()
	p.last = &snap
	p.mu.Unlock()

	p.collector.Record(snap)
	p.collector.HistorySize(rec.Len())
	p.events.Log(eventlog.Event{
		Time:     snap.Time,
		Kind:     eventlog.KindTick,
		Device:   DeviceName,
		Name:     "tick",
		Snapshot: &snap,
	})

	p.log.Info().Msgf("Set state to %t voltage:%v current:%v power:%v consumption:%v",
		state, snap.Voltage, snap.Current, snap.Power, snap.Consumption)
}

// advance toggles the state and builds the next snapshot. A tick received
// before Shutdown still completes: the recorder is released only after the
// loop has exited.
func (p *Platform) advance() (*model.Endpoint, *history.Recorder, bool, telemetry.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.endpoint == nil || p.recorder == nil || p.builder == nil {
		return nil, nil, false, telemetry.Snapshot{}, false
	}
	state, snap := p.builder.Build(p.state)
	p.state = state
	return p.endpoint, p.recorder, state, snap, true
}

// writeAttributes publishes snap in a fixed order. The consumption attribute
// carries the instantaneous power, total consumption the sampled meter value.
func writeAttributes(ctx context.Context, ep model.Store, state bool, snap telemetry.Snapshot) error {
	if err := model.Set(ctx, ep, model.AttrOnOff, state); err != nil {
		return fmt.Errorf("set onOff: %w", err)
	}

	for _, w := range []struct {
		attr  model.Attribute[float64]
		value float64
	}{
		{model.AttrVoltage, snap.Voltage},
		{model.AttrCurrent, snap.Current},
		{model.AttrConsumption, snap.Power},
		{model.AttrTotalConsumption, snap.Consumption},
	} {
		if err := model.Set(ctx, ep, w.attr, w.value); err != nil {
			return fmt.Errorf("set %s: %w", w.attr.Name, err)
		}
	}
	return nil
}
