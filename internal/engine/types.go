package engine

import "fmt"

// Topology is the shape the mesh organizes itself into
type Topology int

const (
	// TopologyTree builds a multi-branch tree (max 25 layers)
	TopologyTree Topology = iota
	// TopologyChain builds a linear chain (max 100 layers)
	TopologyChain
)

// Layer limits enforced by the engine for each topology
const (
	MaxLayerTree  = 25
	MaxLayerChain = 100
)

// String returns the lowercase topology name
func (t Topology) String() string {
	switch t {
	case TopologyTree:
		return "tree"
	case TopologyChain:
		return "chain"
	default:
		return fmt.Sprintf("Topology(%d)", int(t))
	}
}

// MaxLayer returns the deepest layer the engine accepts for t
func (t Topology) MaxLayer() int {
	if t == TopologyChain {
		return MaxLayerChain
	}
	return MaxLayerTree
}

// ParseTopology parses "tree" or "chain"
func ParseTopology(s string) (Topology, error) {
	switch s {
	case "tree", "TREE", "Tree":
		return TopologyTree, nil
	case "chain", "CHAIN", "Chain":
		return TopologyChain, nil
	default:
		return TopologyTree, fmt.Errorf("unknown topology %q (want tree or chain)", s)
	}
}

// AuthMode is the authentication mode of the mesh softAP
type AuthMode int

const (
	AuthOpen AuthMode = iota
	AuthWEP
	AuthWPAPSK
	AuthWPA2PSK
	AuthWPAWPA2PSK
	AuthWPA2Enterprise
	AuthWPA3PSK
	AuthWPA2WPA3PSK
)

var authModeNames = []string{
	"open",
	"wep",
	"wpa_psk",
	"wpa2_psk",
	"wpa_wpa2_psk",
	"wpa2_enterprise",
	"wpa3_psk",
	"wpa2_wpa3_psk",
}

// String returns the auth mode name
func (a AuthMode) String() string {
	if a >= 0 && int(a) < len(authModeNames) {
		return authModeNames[a]
	}
	return fmt.Sprintf("AuthMode(%d)", int(a))
}

// ParseAuthMode parses an auth mode name as returned by AuthMode.String
func ParseAuthMode(s string) (AuthMode, error) {
	for i, name := range authModeNames {
		if name == s {
			return AuthMode(i), nil
		}
	}
	return AuthOpen, fmt.Errorf("unknown AP auth mode %q", s)
}

// Storage selects where the radio driver keeps its configuration
type Storage int

const (
	StorageFlash Storage = iota
	StorageRAM
)

// DeviceDutyType selects how the device duty cycle is applied
type DeviceDutyType int

const (
	// DeviceDutyRequest asks the parent to accept the duty cycle
	DeviceDutyRequest DeviceDutyType = 1
	// DeviceDutyDemand applies the duty cycle unconditionally
	DeviceDutyDemand DeviceDutyType = 4
)

// NetworkDutyApplied selects which part of the network a duty cycle targets
type NetworkDutyApplied int

const (
	NetworkDutyAppliedEntire NetworkDutyApplied = iota
	NetworkDutyAppliedPartial
)

// MeshID identifies a mesh network; nodes only join networks with their ID
type MeshID [6]byte

// String formats the ID like a MAC address
func (id MeshID) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", id[0], id[1], id[2], id[3], id[4], id[5])
}

// RouterConfig holds the credentials the root node uses to reach the router
type RouterConfig struct {
	SSID     []byte
	Password []byte
}

// APConfig configures the softAP every mesh node exposes to its children
type APConfig struct {
	Password             []byte
	MaxConnection        int
	NonMeshMaxConnection int
}

// MeshConfig is the complete configuration handed to the engine before start
type MeshConfig struct {
	Channel int
	MeshID  MeshID
	Router  RouterConfig
	MeshAP  APConfig
}
