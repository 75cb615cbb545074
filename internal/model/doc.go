// Package model implements the endpoint the simulated outlet exposes to its host.
//
// An Endpoint groups clusters; a cluster groups attributes and commands:
//
//	Endpoint (Eve energy)
//	├── descriptor
//	├── identify          identify, triggerEffect
//	├── basicInformation
//	├── groups
//	├── onOff             onOff
//	├── powerSource
//	└── eveHistory        voltage, current, consumption, totalConsumption
//
// Attributes and commands are addressed through typed handles
// (Attribute[T], Command[T]) so a value of the wrong type for an attribute,
// or a request of the wrong shape for a command, does not compile:
//
//	err := model.Set(ctx, ep, model.AttrOnOff, true)
//	err = model.Invoke(ctx, ep, model.CmdIdentify, model.IdentifyRequest{IdentifyTime: 5})
package model
