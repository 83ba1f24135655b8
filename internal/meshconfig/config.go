package meshconfig

import (
	"github.com/muurk/espmesh/internal/engine"
)

// Field capacities in bytes, including the terminator the engine reserves,
// so the usable length is one less.
const (
	SSIDCapacity       = 32
	PasswordCapacity   = 64
	APPasswordCapacity = 64
)

// Parameter names accepted by Get and by the host binding
const (
	KeySSID       = "ssid"
	KeyPassword   = "password"
	KeyChannel    = "channel"
	KeyAPPassword = "ap_password"
	KeyPowerSave  = "power_save"

	// Read-only: fixed at construction
	KeyTopology   = "topology"
	KeyMaxLayer   = "max_layer"
	KeyAPAuthMode = "ap_authmode"
	KeyMeshID     = "mesh_id"
)

// SettableKeys lists the parameters Apply can change, in display order
var SettableKeys = []string{KeySSID, KeyPassword, KeyChannel, KeyAPPassword, KeyPowerSave}

// ReadOnlyKeys lists the parameters Get reports but Apply never changes
var ReadOnlyKeys = []string{KeyTopology, KeyMaxLayer, KeyAPAuthMode, KeyMeshID}

// Defaults applied by New
var (
	DefaultMeshID = engine.MeshID{0x77, 0x77, 0x77, 0x77, 0x77, 0x77}
)

const (
	DefaultTopology              = engine.TopologyTree
	DefaultMaxLayer              = 6
	DefaultAPAuthMode            = engine.AuthWPA2PSK
	DefaultAPMaxConnections      = 6
	DefaultNonMeshMaxConnections = 0
	DefaultPowerSave             = true

	DefaultDeviceDuty          = 10
	DefaultDeviceDutyType      = engine.DeviceDutyRequest
	DefaultNetworkDuty         = 10
	DefaultNetworkDutyDuration = -1 // minutes; -1 keeps it applied until changed
	DefaultNetworkDutyApplied  = engine.NetworkDutyAppliedEntire
)

// PowerSave holds the duty-cycle parameters pushed to a running engine when
// power save is enabled.
type PowerSave struct {
	DeviceDuty          int
	DeviceDutyType      engine.DeviceDutyType
	NetworkDuty         int
	NetworkDutyDuration int
	NetworkDutyApplied  engine.NetworkDutyApplied
}

// Config is the mutable mesh configuration. It is plain data: it never talks
// to the engine, and it is only checked for completeness when the mesh is
// activated.
type Config struct {
	// Router the root node connects to
	SSID     string
	Password string
	Channel  int // 0 means unset

	// Mesh softAP
	APPassword            string
	APAuthMode            engine.AuthMode
	APMaxConnections      int
	NonMeshMaxConnections int

	MeshID    engine.MeshID
	Topology  engine.Topology
	MaxLayer  int
	PowerSave bool
	PS        PowerSave
}

// New returns a Config populated with the stack defaults and no router
// credentials.
func New() *Config {
	return &Config{
		APAuthMode:            DefaultAPAuthMode,
		APMaxConnections:      DefaultAPMaxConnections,
		NonMeshMaxConnections: DefaultNonMeshMaxConnections,
		MeshID:                DefaultMeshID,
		Topology:              DefaultTopology,
		MaxLayer:              DefaultMaxLayer,
		PowerSave:             DefaultPowerSave,
		PS: PowerSave{
			DeviceDuty:          DefaultDeviceDuty,
			DeviceDutyType:      DefaultDeviceDutyType,
			NetworkDuty:         DefaultNetworkDuty,
			NetworkDutyDuration: DefaultNetworkDutyDuration,
			NetworkDutyApplied:  DefaultNetworkDutyApplied,
		},
	}
}

// Clone returns a deep copy of c
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Get returns the current value of a named parameter. String fields are
// returned as string, channel and max_layer as int, power_save as bool.
func (c *Config) Get(key string) (any, error) {
	switch key {
	case KeySSID:
		return c.SSID, nil
	case KeyPassword:
		return c.Password, nil
	case KeyChannel:
		return c.Channel, nil
	case KeyAPPassword:
		return c.APPassword, nil
	case KeyPowerSave:
		return c.PowerSave, nil
	case KeyTopology:
		return c.Topology.String(), nil
	case KeyMaxLayer:
		return c.MaxLayer, nil
	case KeyAPAuthMode:
		return c.APAuthMode.String(), nil
	case KeyMeshID:
		return c.MeshID.String(), nil
	default:
		return nil, NewUnknownParameterError(key)
	}
}

// GetAny is Get for untyped keys coming from a host environment. Keys that
// are not strings fail with a type-mismatch error.
func (c *Config) GetAny(key any) (any, error) {
	switch k := key.(type) {
	case string:
		return c.Get(k)
	case []byte:
		return c.Get(string(k))
	default:
		return nil, NewTypeMismatchError("config param", "string", key)
	}
}

// Apply validates every field present in u and then commits them all. If
// any field is rejected nothing is changed.
func (c *Config) Apply(u Update) error {
	if err := u.Validate(); err != nil {
		return err
	}

	if u.SSID != nil {
		c.SSID = *u.SSID
	}
	if u.Password != nil {
		c.Password = *u.Password
	}
	if u.Channel != nil {
		c.Channel = *u.Channel
	}
	if u.APPassword != nil {
		c.APPassword = *u.APPassword
	}
	if u.PowerSave != nil {
		c.PowerSave = *u.PowerSave
	}
	return nil
}

// EngineConfig builds the configuration struct handed to the engine
func (c *Config) EngineConfig() *engine.MeshConfig {
	return &engine.MeshConfig{
		Channel: c.Channel,
		MeshID:  c.MeshID,
		Router: engine.RouterConfig{
			SSID:     []byte(c.SSID),
			Password: []byte(c.Password),
		},
		MeshAP: engine.APConfig{
			Password:             []byte(c.APPassword),
			MaxConnection:        c.APMaxConnections,
			NonMeshMaxConnection: c.NonMeshMaxConnections,
		},
	}
}
