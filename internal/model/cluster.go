package model

import "fmt"

// BasicInformation holds the values of the basic information cluster.
type BasicInformation struct {
	VendorName            string
	VendorID              uint16
	ProductName           string
	ProductID             uint16
	NodeLabel             string
	SerialNumber          string
	HardwareVersion       uint16
	HardwareVersionString string
	SoftwareVersion       uint32
	SoftwareVersionString string
}

// EveEnergyInformation returns the basic information of an Eve Energy outlet
// labelled with name.
func EveEnergyInformation(name string) BasicInformation {
	return BasicInformation{
		VendorName:            "Eve Systems",
		VendorID:              4874,
		ProductName:           "Eve Energy 20EBO8301",
		ProductID:             80,
		NodeLabel:             name,
		SerialNumber:          fmt.Sprintf("0x%08x", 0x88528475),
		HardwareVersion:       1,
		HardwareVersionString: "1.1",
		SoftwareVersion:       6650,
		SoftwareVersionString: "3.2.1",
	}
}

// Identify types.
const (
	IdentifyTypeNone uint8 = 0x00
	IdentifyTypeLED  uint8 = 0x02
)

// Power source status and wired current types.
const (
	PowerSourceStatusActive uint8 = 0x01
	WiredCurrentTypeAC      uint8 = 0x00
)

// CreateDefaultIdentifyClusterServer adds the identify cluster with its two
// commands.
func (ep *Endpoint) CreateDefaultIdentifyClusterServer() {
	ep.addCluster(ClusterIdentify, "identify")
	addAttr(ep, AttrIdentifyTime, uint16(0))
	addAttr(ep, AttrIdentifyType, IdentifyTypeLED)
	ep.addCommand(CmdIdentify.key(), CmdIdentify.Name)
	ep.addCommand(CmdTriggerEffect.key(), CmdTriggerEffect.Name)
}

// CreateDefaultBasicInformationClusterServer adds the basic information cluster.
// The unique ID is derived from the endpoint's storage key.
func (ep *Endpoint) CreateDefaultBasicInformationClusterServer(info BasicInformation) {
	ep.addCluster(ClusterBasicInformation, "basicInformation")
	addAttr(ep, AttrVendorName, info.VendorName)
	addAttr(ep, AttrVendorID, info.VendorID)
	addAttr(ep, AttrProductName, info.ProductName)
	addAttr(ep, AttrProductID, info.ProductID)
	addAttr(ep, AttrNodeLabel, info.NodeLabel)
	addAttr(ep, AttrHardwareVersion, info.HardwareVersion)
	addAttr(ep, AttrHardwareVersionString, info.HardwareVersionString)
	addAttr(ep, AttrSoftwareVersion, info.SoftwareVersion)
	addAttr(ep, AttrSoftwareVersionString, info.SoftwareVersionString)
	addAttr(ep, AttrSerialNumber, info.SerialNumber)
	addAttr(ep, AttrUniqueID, ep.uniqueID.String())
}

// CreateDefaultGroupsClusterServer adds the groups cluster.
func (ep *Endpoint) CreateDefaultGroupsClusterServer() {
	ep.addCluster(ClusterGroups, "groups")
	addAttr(ep, AttrGroupsNameSupport, uint8(0))
}

// CreateDefaultOnOffClusterServer adds the on/off cluster with an initial state.
func (ep *Endpoint) CreateDefaultOnOffClusterServer(on bool) {
	ep.addCluster(ClusterOnOff, "onOff")
	addAttr(ep, AttrOnOff, on)
}

// CreateDefaultPowerSourceWiredClusterServer adds a wired AC power source.
func (ep *Endpoint) CreateDefaultPowerSourceWiredClusterServer() {
	ep.addCluster(ClusterPowerSource, "powerSource")
	addAttr(ep, AttrPowerSourceStatus, PowerSourceStatusActive)
	addAttr(ep, AttrPowerSourceOrder, uint8(0))
	addAttr(ep, AttrPowerSourceDescription, "AC Power")
	addAttr(ep, AttrWiredCurrentType, WiredCurrentTypeAC)
}

// CreateDefaultEveHistoryClusterServer adds the Eve energy history cluster
// with all measurements zeroed.
func (ep *Endpoint) CreateDefaultEveHistoryClusterServer() {
	ep.addCluster(ClusterEveHistory, "eveHistory")
	addAttr(ep, AttrVoltage, 0.0)
	addAttr(ep, AttrCurrent, 0.0)
	addAttr(ep, AttrConsumption, 0.0)
	addAttr(ep, AttrTotalConsumption, 0.0)
}
