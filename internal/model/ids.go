package model

// ClusterID identifies a cluster on an endpoint.
type ClusterID uint32

// AttributeID identifies an attribute within a cluster.
type AttributeID uint32

// CommandID identifies a command within a cluster.
type CommandID uint32

// Cluster IDs.
const (
	ClusterIdentify         ClusterID = 0x0003
	ClusterGroups           ClusterID = 0x0004
	ClusterOnOff            ClusterID = 0x0006
	ClusterDescriptor       ClusterID = 0x001D
	ClusterBasicInformation ClusterID = 0x0028
	ClusterPowerSource      ClusterID = 0x002F
	ClusterEveHistory       ClusterID = 0x130AFC01
)

// AttributeKey is the untyped address of an attribute.
type AttributeKey struct {
	Cluster   ClusterID
	Attribute AttributeID
}

// Attribute is a typed handle on an attribute holding values of type T.
type Attribute[T any] struct {
	Cluster ClusterID
	ID      AttributeID
	Name    string
}

// Key returns the untyped address of a.
func (a Attribute[T]) Key() AttributeKey {
	return AttributeKey{Cluster: a.Cluster, Attribute: a.ID}
}

// Command is a typed handle on a command taking requests of type T.
type Command[T any] struct {
	Cluster ClusterID
	ID      CommandID
	Name    string
}

func (c Command[T]) key() commandKey {
	return commandKey{cluster: c.Cluster, command: c.ID}
}

type commandKey struct {
	cluster ClusterID
	command CommandID
}

// Identify cluster.
var (
	AttrIdentifyTime = Attribute[uint16]{ClusterIdentify, 0x0000, "identifyTime"}
	AttrIdentifyType = Attribute[uint8]{ClusterIdentify, 0x0001, "identifyType"}

	CmdIdentify      = Command[IdentifyRequest]{ClusterIdentify, 0x00, "identify"}
	CmdTriggerEffect = Command[TriggerEffectRequest]{ClusterIdentify, 0x40, "triggerEffect"}
)

// Groups cluster.
var AttrGroupsNameSupport = Attribute[uint8]{ClusterGroups, 0x0000, "nameSupport"}

// OnOff cluster.
var AttrOnOff = Attribute[bool]{ClusterOnOff, 0x0000, "onOff"}

// Descriptor cluster.
var AttrDeviceTypeList = Attribute[[]DeviceType]{ClusterDescriptor, 0x0000, "deviceTypeList"}

// Basic information cluster.
var (
	AttrVendorName            = Attribute[string]{ClusterBasicInformation, 0x0001, "vendorName"}
	AttrVendorID              = Attribute[uint16]{ClusterBasicInformation, 0x0002, "vendorId"}
	AttrProductName           = Attribute[string]{ClusterBasicInformation, 0x0003, "productName"}
	AttrProductID             = Attribute[uint16]{ClusterBasicInformation, 0x0004, "productId"}
	AttrNodeLabel             = Attribute[string]{ClusterBasicInformation, 0x0005, "nodeLabel"}
	AttrHardwareVersion       = Attribute[uint16]{ClusterBasicInformation, 0x0007, "hardwareVersion"}
	AttrHardwareVersionString = Attribute[string]{ClusterBasicInformation, 0x0008, "hardwareVersionString"}
	AttrSoftwareVersion       = Attribute[uint32]{ClusterBasicInformation, 0x0009, "softwareVersion"}
	AttrSoftwareVersionString = Attribute[string]{ClusterBasicInformation, 0x000A, "softwareVersionString"}
	AttrSerialNumber          = Attribute[string]{ClusterBasicInformation, 0x000F, "serialNumber"}
	AttrUniqueID              = Attribute[string]{ClusterBasicInformation, 0x0012, "uniqueId"}
)

// Power source cluster.
var (
	AttrPowerSourceStatus      = Attribute[uint8]{ClusterPowerSource, 0x0000, "status"}
	AttrPowerSourceOrder       = Attribute[uint8]{ClusterPowerSource, 0x0001, "order"}
	AttrPowerSourceDescription = Attribute[string]{ClusterPowerSource, 0x0002, "description"}
	AttrWiredCurrentType       = Attribute[uint8]{ClusterPowerSource, 0x0005, "wiredCurrentType"}
)

// Eve history cluster. Consumption is the instantaneous power in W,
// total consumption the meter reading in kWh.
var (
	AttrVoltage          = Attribute[float64]{ClusterEveHistory, 0x130A000A, "voltage"}
	AttrCurrent          = Attribute[float64]{ClusterEveHistory, 0x130A0126, "current"}
	AttrConsumption      = Attribute[float64]{ClusterEveHistory, 0x130A000D, "consumption"}
	AttrTotalConsumption = Attribute[float64]{ClusterEveHistory, 0x130A000C, "totalConsumption"}
)

// EffectIdentifier selects the visual effect of a triggerEffect command.
type EffectIdentifier uint8

const (
	EffectBlink         EffectIdentifier = 0x00
	EffectBreathe       EffectIdentifier = 0x01
	EffectOkay          EffectIdentifier = 0x02
	EffectChannelChange EffectIdentifier = 0x0B
	EffectFinish        EffectIdentifier = 0xFE
	EffectStop          EffectIdentifier = 0xFF
)

// EffectVariant selects a variant of an effect.
type EffectVariant uint8

const EffectVariantDefault EffectVariant = 0x00

// IdentifyRequest is the payload of the identify command.
type IdentifyRequest struct {
	IdentifyTime uint16
}

// TriggerEffectRequest is the payload of the triggerEffect command.
type TriggerEffectRequest struct {
	EffectIdentifier EffectIdentifier
	EffectVariant    EffectVariant
}
