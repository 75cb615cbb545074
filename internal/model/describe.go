package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type endpointLayout struct {
	StorageKey  string          `yaml:"storage_key"`
	UniqueID    string          `yaml:"unique_id"`
	Mode        string          `yaml:"mode,omitempty"`
	DeviceTypes []DeviceType    `yaml:"device_types"`
	Clusters    []clusterLayout `yaml:"clusters"`
}

type clusterLayout struct {
	Name       string            `yaml:"name"`
	ID         string            `yaml:"id"`
	Attributes []attributeLayout `yaml:"attributes,omitempty"`
	Commands   []string          `yaml:"commands,omitempty"`
}

type attributeLayout struct {
	Name  string `yaml:"name"`
	ID    string `yaml:"id"`
	Value any    `yaml:"value"`
}

// Describe renders the endpoint layout and current attribute values as YAML.
func (ep *Endpoint) Describe() ([]byte, error) {
	ep.mu.RLock()
	layout := endpointLayout{
		StorageKey:  ep.storageKey,
		UniqueID:    ep.uniqueID.String(),
		Mode:        ep.mode,
		DeviceTypes: ep.deviceTypes,
	}
	for _, cid := range ep.clusterIDs {
		c := ep.clusters[cid]
		cl := clusterLayout{Name: c.name, ID: fmt.Sprintf("0x%04X", uint32(c.id))}
		for _, aid := range c.attrIDs {
			a := c.attrs[aid]
			cl.Attributes = append(cl.Attributes, attributeLayout{
				Name:  a.name,
				ID:    fmt.Sprintf("0x%04X", uint32(aid)),
				Value: a.value,
			})
		}
		for _, cmd := range c.commands {
			cl.Commands = append(cl.Commands, cmd.name)
		}
		layout.Clusters = append(layout.Clusters, cl)
	}
	ep.mu.RUnlock()

	out, err := yaml.Marshal(layout)
	if err != nil {
		return nil, fmt.Errorf("failed to describe endpoint: %w", err)
	}
	return out, nil
}
