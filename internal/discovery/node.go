package discovery

import (
	"fmt"
	"time"
)

// Node is a mesh control server found on the local network
type Node struct {
	// Instance is the advertised service instance name (e.g., "espmesh-7f3a")
	Instance string

	// Hostname is the mDNS hostname (e.g., "gateway.local.")
	Hostname string

	// IP is the IPv4 address, or IPv6 if the node has none
	IP string

	// Port is the control server port
	Port int

	// MeshID is the mesh the node belongs to, from the "mesh_id" TXT record
	MeshID string

	// Metadata contains every TXT record; keys without a value map to ""
	Metadata map[string]string

	// DiscoveredAt is when the node answered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the node
func (n *Node) String() string {
	if n.MeshID == "" {
		return fmt.Sprintf("Mesh node %s (%s) at %s:%d", n.Instance, n.Hostname, n.IP, n.Port)
	}
	return fmt.Sprintf("Mesh node %s (%s) at %s:%d, mesh %s", n.Instance, n.Hostname, n.IP, n.Port, n.MeshID)
}

// ControlURL returns the WebSocket URL of the node's control endpoint
func (n *Node) ControlURL() string {
	host := n.IP
	if isIPv6(host) {
		host = "[" + host + "]"
	}
	return fmt.Sprintf("ws://%s:%d%s", host, n.Port, ControlPath)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (n *Node) GetMetadata(key string) string {
	if n.Metadata == nil {
		return ""
	}
	return n.Metadata[key]
}

func isIPv6(ip string) bool {
	for i := 0; i < len(ip); i++ {
		if ip[i] == ':' {
			return true
		}
	}
	return false
}
