package discovery

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	entry := func(instance, host string, port int, v4, v6 []net.IP, txt ...string) *zeroconf.ServiceEntry {
		e := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
		e.HostName = host
		e.Port = port
		e.AddrIPv4 = v4
		e.AddrIPv6 = v6
		e.Text = txt
		return e
	}

	tests := []struct {
		name       string
		entry      *zeroconf.ServiceEntry
		wantNil    bool
		wantIP     string
		wantPort   int
		wantMeshID string
	}{
		{
			name:       "node with IPv4 and mesh id",
			entry:      entry("espmesh-gw", "gw.local.", 8765, []net.IP{net.ParseIP("192.168.4.16")}, nil, "mesh_id=77:77:77:77:77:77", "path=/ws"),
			wantIP:     "192.168.4.16",
			wantPort:   8765,
			wantMeshID: "77:77:77:77:77:77",
		},
		{
			name:     "no port specified (should default)",
			entry:    entry("espmesh-a", "a.local.", 0, []net.IP{net.ParseIP("10.0.0.5")}, nil),
			wantIP:   "10.0.0.5",
			wantPort: DefaultPort,
		},
		{
			name:     "IPv6 only node",
			entry:    entry("espmesh-b", "b.local.", 9000, nil, []net.IP{net.ParseIP("fe80::1")}),
			wantIP:   "fe80::1",
			wantPort: 9000,
		},
		{
			name:     "both IPv4 and IPv6 (should prefer IPv4)",
			entry:    entry("espmesh-c", "c.local.", 8765, []net.IP{net.ParseIP("192.168.1.50")}, []net.IP{net.ParseIP("fe80::2")}),
			wantIP:   "192.168.1.50",
			wantPort: 8765,
		},
		{
			name:    "no address",
			entry:   entry("espmesh-d", "d.local.", 8765, nil, nil),
			wantNil: true,
		},
		{
			name:    "no instance name",
			entry:   entry("", "e.local.", 8765, []net.IP{net.ParseIP("192.168.1.1")}, nil),
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if node != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", node)
				}
				return
			}
			if node == nil {
				t.Fatal("parseServiceEntry() = nil, want node")
			}
			if node.IP != tt.wantIP {
				t.Errorf("node.IP = %v, want %v", node.IP, tt.wantIP)
			}
			if node.Port != tt.wantPort {
				t.Errorf("node.Port = %v, want %v", node.Port, tt.wantPort)
			}
			if node.MeshID != tt.wantMeshID {
				t.Errorf("node.MeshID = %q, want %q", node.MeshID, tt.wantMeshID)
			}
			if node.Instance != tt.entry.Instance {
				t.Errorf("node.Instance = %q, want %q", node.Instance, tt.entry.Instance)
			}
			if time.Since(node.DiscoveredAt) > time.Second {
				t.Errorf("node.DiscoveredAt is not recent: %v", node.DiscoveredAt)
			}
		})
	}
}

func TestParseTXT(t *testing.T) {
	got := parseTXT([]string{"path=/ws", "version=1.0", "flag", "mesh_id=77:77:77:77:77:77", "eq=a=b"})
	want := map[string]string{
		"path":    "/ws",
		"version": "1.0",
		"flag":    "",
		"mesh_id": "77:77:77:77:77:77",
		"eq":      "a=b",
	}

	if len(got) != len(want) {
		t.Errorf("parseTXT() has %d entries, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("parseTXT()[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestBuildTXT(t *testing.T) {
	got := BuildTXT(map[string]string{
		TxtVersion: "dev",
		TxtMeshID:  "77:77:77:77:77:77",
		"flag":     "",
		TxtPath:    ControlPath,
	})
	want := "flag,mesh_id=77:77:77:77:77:77,path=/ws,version=dev"
	if strings.Join(got, ",") != want {
		t.Errorf("BuildTXT() = %v, want %s", got, want)
	}

	// Round trip
	parsed := parseTXT(got)
	if parsed[TxtMeshID] != "77:77:77:77:77:77" || parsed["flag"] != "" {
		t.Errorf("parseTXT(BuildTXT()) = %v", parsed)
	}
}

func TestNode_ControlURL(t *testing.T) {
	tests := []struct {
		node *Node
		want string
	}{
		{&Node{IP: "192.168.4.16", Port: 8765}, "ws://192.168.4.16:8765/ws"},
		{&Node{IP: "fe80::1", Port: 9000}, "ws://[fe80::1]:9000/ws"},
	}

	for _, tt := range tests {
		if got := tt.node.ControlURL(); got != tt.want {
			t.Errorf("ControlURL() = %q, want %q", got, tt.want)
		}
	}
}

func TestNode_String(t *testing.T) {
	n := &Node{Instance: "espmesh-gw", Hostname: "gw.local.", IP: "10.0.0.2", Port: 8765, MeshID: "77:77:77:77:77:77"}
	if got := n.String(); !strings.Contains(got, "espmesh-gw") || !strings.Contains(got, "mesh 77:77:77:77:77:77") {
		t.Errorf("String() = %q", got)
	}
	if n.GetMetadata("missing") != "" {
		t.Error("GetMetadata() on nil metadata returned a value")
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner == nil {
		t.Fatal("NewScanner() = nil, want scanner")
	}
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

func TestAdvertise_EmptyInstance(t *testing.T) {
	if _, err := Advertise("", DefaultPort, nil); err == nil {
		t.Error("Advertise(\"\") error = nil, want error")
	}
	// Nil advertisement shuts down quietly
	var a *Advertisement
	a.Shutdown()
}
