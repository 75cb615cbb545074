package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Endpoint errors.
var (
	ErrClusterNotFound   = errors.New("cluster not found")
	ErrAttributeNotFound = errors.New("attribute not found")
	ErrCommandNotFound   = errors.New("command not found")
	ErrEndpointDetached  = errors.New("endpoint detached from host")
)

// DeviceType is a device classification advertised in the descriptor cluster.
type DeviceType struct {
	ID       uint32 `yaml:"id"`
	Name     string `yaml:"name"`
	Revision uint16 `yaml:"revision"`
}

// Device types.
var (
	DeviceTypeOnOffOutlet = DeviceType{ID: 0x010A, Name: "onOffOutlet", Revision: 3}
	DeviceTypePowerSource = DeviceType{ID: 0x0011, Name: "powerSource", Revision: 1}
)

// ModeServer runs the endpoint as its own server node instead of behind the
// host's aggregator.
const ModeServer = "server"

// EndpointOptions configures a new Endpoint.
type EndpointOptions struct {
	// UniqueStorageKey names the endpoint's persistent storage and seeds its unique ID.
	UniqueStorageKey string

	// Mode is empty for bridged endpoints or ModeServer.
	Mode string
}

// uniqueIDNamespace scopes endpoint unique IDs derived from storage keys.
var uniqueIDNamespace = uuid.MustParse("6f1c4d2a-3b8e-5f70-9a41-2d6e8c0b7e15")

type attribute struct {
	name  string
	value any
}

type cluster struct {
	id       ClusterID
	name     string
	attrs    map[AttributeID]*attribute
	attrIDs  []AttributeID
	commands []commandEntry
}

type commandEntry struct {
	id   CommandID
	name string
}

// Endpoint is the attribute store and command dispatcher of one device.
// It is safe for concurrent use.
type Endpoint struct {
	mu          sync.RWMutex
	storageKey  string
	uniqueID    uuid.UUID
	mode        string
	deviceTypes []DeviceType
	clusters    map[ClusterID]*cluster
	clusterIDs  []ClusterID
	handlers    map[commandKey]func(context.Context, any) error
	detached    bool
}

// NewEndpoint creates an endpoint advertising deviceTypes. The descriptor
// cluster is always present.
func NewEndpoint(deviceTypes []DeviceType, opts EndpointOptions) *Endpoint {
	ep := &Endpoint{
		storageKey:  opts.UniqueStorageKey,
		uniqueID:    uuid.NewSHA1(uniqueIDNamespace, []byte(opts.UniqueStorageKey)),
		mode:        opts.Mode,
		deviceTypes: append([]DeviceType(nil), deviceTypes...),
		clusters:    make(map[ClusterID]*cluster),
		handlers:    make(map[commandKey]func(context.Context, any) error),
	}

	ep.addCluster(ClusterDescriptor, "descriptor")
	addAttr(ep, AttrDeviceTypeList, ep.deviceTypes)

	return ep
}

// StorageKey returns the key the endpoint was created with.
func (ep *Endpoint) StorageKey() string { return ep.storageKey }

// UniqueID returns a stable identifier derived from the storage key.
func (ep *Endpoint) UniqueID() uuid.UUID { return ep.uniqueID }

// Mode returns the endpoint mode.
func (ep *Endpoint) Mode() string { return ep.mode }

// DeviceTypes returns the advertised device types.
func (ep *Endpoint) DeviceTypes() []DeviceType {
	return append([]DeviceType(nil), ep.deviceTypes...)
}

// ClusterNames returns the names of all clusters in creation order.
func (ep *Endpoint) ClusterNames() []string {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	names := make([]string, 0, len(ep.clusterIDs))
	for _, id := range ep.clusterIDs {
		names = append(names, ep.clusters[id].name)
	}
	return names
}

// HasCluster reports whether the cluster exists on the endpoint.
func (ep *Endpoint) HasCluster(id ClusterID) bool {
	ep.mu.RLock()
	defer ep.mu.RUnlock()
	_, ok := ep.clusters[id]
	return ok
}

// Detach marks the endpoint as removed from its host; later writes fail
// with ErrEndpointDetached.
func (ep *Endpoint) Detach() {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.detached = true
}

// Detached reports whether Detach was called.
func (ep *Endpoint) Detached() bool {
	ep.mu.RLock()
	defer ep.mu.RUnlock()
	return ep.detached
}

// SetAttribute stores value under key. Prefer the typed Set.
func (ep *Endpoint) SetAttribute(_ context.Context, key AttributeKey, value any) error {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if ep.detached {
		return ErrEndpointDetached
	}

	a, err := ep.lookup(key)
	if err != nil {
		return err
	}
	a.value = value
	return nil
}

// Attribute returns the value stored under key. Prefer the typed Get.
func (ep *Endpoint) Attribute(key AttributeKey) (any, error) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	a, err := ep.lookup(key)
	if err != nil {
		return nil, err
	}
	return a.value, nil
}

func (ep *Endpoint) lookup(key AttributeKey) (*attribute, error) {
	c, ok := ep.clusters[key.Cluster]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%04X", ErrClusterNotFound, uint32(key.Cluster))
	}
	a, ok := c.attrs[key.Attribute]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%04X/0x%04X", ErrAttributeNotFound, uint32(key.Cluster), uint32(key.Attribute))
	}
	return a, nil
}

func (ep *Endpoint) addCluster(id ClusterID, name string) *cluster {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if c, ok := ep.clusters[id]; ok {
		return c
	}
	c := &cluster{id: id, name: name, attrs: make(map[AttributeID]*attribute)}
	ep.clusters[id] = c
	ep.clusterIDs = append(ep.clusterIDs, id)
	return c
}

func (ep *Endpoint) addCommand(key commandKey, name string) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	if c, ok := ep.clusters[key.cluster]; ok {
		c.commands = append(c.commands, commandEntry{id: key.command, name: name})
	}
}

// addAttr declares attr on its (existing) cluster with an initial value.
func addAttr[T any](ep *Endpoint, attr Attribute[T], initial T) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	c, ok := ep.clusters[attr.Cluster]
	if !ok {
		return
	}
	if _, exists := c.attrs[attr.ID]; !exists {
		c.attrIDs = append(c.attrIDs, attr.ID)
	}
	c.attrs[attr.ID] = &attribute{name: attr.Name, value: initial}
}

// Store is the attribute store the sampling loop writes to.
type Store interface {
	SetAttribute(ctx context.Context, key AttributeKey, value any) error
	Attribute(key AttributeKey) (any, error)
}

var _ Store = (*Endpoint)(nil)

// Set writes v to attr.
func Set[T any](ctx context.Context, s Store, attr Attribute[T], v T) error {
	return s.SetAttribute(ctx, attr.Key(), v)
}

// Get reads attr.
func Get[T any](s Store, attr Attribute[T]) (T, error) {
	var zero T
	v, err := s.Attribute(attr.Key())
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("attribute %s holds %T", attr.Name, v)
	}
	return t, nil
}
