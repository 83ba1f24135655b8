package engine

// EventBase names an event category. Handlers are registered per base.
type EventBase string

// MeshEvent is the category every mesh lifecycle, topology and
// connectivity event is posted under.
const MeshEvent EventBase = "MESH_EVENT"

// AnyID registers a handler for every event id within a base
const AnyID int32 = -1

// Mesh event ids, in the order the engine numbers them
const (
	EventStarted int32 = iota
	EventStopped
	EventChannelSwitch
	EventChildConnected
	EventChildDisconnected
	EventRoutingTableAdd
	EventRoutingTableRemove
	EventParentConnected
	EventParentDisconnected
	EventNoParentFound
	EventLayerChange
	EventToDSState
	EventVoteStarted
	EventVoteStopped
	EventRootAddress
	EventRootSwitchReq
	EventRootSwitchAck
	EventRootAskedYield
	EventRootFixed
	EventScanDone
	EventNetworkState
	EventStopReconnection
	EventFindNetwork
	EventRouterSwitch
	EventPSParentDuty
	EventPSChildDuty
	EventPSDeviceDuty
)

// EventHandler is invoked by the engine on its own dispatch goroutine.
// Implementations must return promptly.
type EventHandler func(base EventBase, id int32, data any)

// Netif is an opaque handle to an engine-managed network interface
type Netif interface {
	Name() string
}

// NetifLayer is the network interface subsystem. Init may only succeed
// once per process.
type NetifLayer interface {
	NetifInit() error
	CreateMeshNetifs() (sta Netif, ap Netif, err error)
	DestroyNetif(n Netif) error
}

// Radio is the Wi-Fi driver underneath the mesh
type Radio interface {
	WifiInit() error
	WifiSetStorage(s Storage) error
	WifiStart() error
	WifiStop() error
	WifiDeinit() error
}

// Mesh is the self-organizing mesh stack
type Mesh interface {
	MeshInit() error
	MeshDeinit() error
	MeshStart() error
	MeshStop() error

	SetTopology(t Topology) error
	SetMaxLayer(layer int) error
	SetVotePercentage(percentage float32) error
	SetXonQsize(size int) error

	EnablePS() error
	DisablePS() error
	SetAPAssocExpire(seconds int) error
	SetAnnounceInterval(shortMs, longMs int) error
	SetActiveDutyCycle(duty int, dutyType DeviceDutyType) error
	SetNetworkDutyCycle(duty int, durationMins int, applied NetworkDutyApplied) error

	SetAPAuthMode(mode AuthMode) error
	SetConfig(cfg *MeshConfig) error
}

// Events is the event-loop registration mechanism
type Events interface {
	RegisterHandler(base EventBase, id int32, h EventHandler) error
	UnregisterHandler(base EventBase, id int32) error
}

// Engine is everything the mesh controller consumes from the networking
// stack. Every method returns nil or a *StatusError. Pointer implementations
// share the once-per-process netif init state across meshes; values that
// are not comparable only track it per mesh.
type Engine interface {
	NetifLayer
	Radio
	Mesh
	Events
}
