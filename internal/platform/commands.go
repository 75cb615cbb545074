package platform

import (
	"context"
	"time"

	"codeberg.org/mutker/eveenergy/internal/eventlog"
	"codeberg.org/mutker/eveenergy/internal/model"
)

func (p *Platform) addCommandHandlers(ep *model.Endpoint) error {
	if err := model.Handle(ep, model.CmdIdentify, p.identify); err != nil {
		return err
	}
	return model.Handle(ep, model.CmdTriggerEffect, p.triggerEffect)
}

func (p *Platform) identify(_ context.Context, req model.IdentifyRequest) error {
	p.log.Info().Msgf("Command identify called identifyTime:%d", req.IdentifyTime)
	p.commandDone(model.CmdIdentify.Name, map[string]uint64{
		"identifyTime": uint64(req.IdentifyTime),
	})
	return nil
}

func (p *Platform) triggerEffect(_ context.Context, req model.TriggerEffectRequest) error {
	p.log.Info().Msgf("Command triggerEffect called effect %d variant %d", req.EffectIdentifier, req.EffectVariant)
	p.commandDone(model.CmdTriggerEffect.Name, map[string]uint64{
		"effectIdentifier": uint64(req.EffectIdentifier),
		"effectVariant":    uint64(req.EffectVariant),
	})
	return nil
}

// commandDone records the command and logs a history summary.
func (p *Platform) commandDone(name string, args map[string]uint64) {
	p.collector.Command(name)
	p.events.Log(eventlog.Event{
		Time:   time.Now(),
		Kind:   eventlog.KindCommand,
		Device: DeviceName,
		Name:   name,
		Args:   args,
	})

	if rec := p.History(); rec != nil {
		rec.LogHistory(false)
	}
}
