package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/espmesh/internal/logging"
)

const (
	// ServiceType is the mDNS service type control servers advertise
	ServiceType = "_espmesh._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// ControlPath is the HTTP path of the WebSocket control endpoint
	ControlPath = "/ws"

	// DefaultScanTimeout is the default timeout for node discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the default control server port
	DefaultPort = 8765

	// TXT record keys
	TxtMeshID   = "mesh_id"
	TxtPath     = "path"
	TxtVersion  = "version"
	TxtTopology = "topology"
)

// Scanner handles mDNS node discovery
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForNodes collects every node that answers before the timeout or ctx
// ends. Nodes are sorted by instance name.
func (s *Scanner) ScanForNodes(ctx context.Context) ([]*Node, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu    sync.Mutex
		nodes = make(map[string]*Node)
	)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for entry := range entries {
			node := s.parseServiceEntry(entry)
			if node == nil {
				continue
			}
			logging.Debug("Mesh node discovered",
				zap.String("instance", node.Instance),
				zap.String("ip", node.IP),
				zap.Int("port", node.Port),
			)
			mu.Lock()
			nodes[node.Instance] = node
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// The resolver closes entries once the browse context ends
	select {
	case <-collected:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	result := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Instance < result[j].Instance })
	return result, nil
}

// WaitForNode returns the first node whose instance name or mesh ID equals
// match.
func (s *Scanner) WaitForNode(ctx context.Context, match string) (*Node, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Node, 1)

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	go func() {
		for entry := range entries {
			node := s.parseServiceEntry(entry)
			if node != nil && (node.Instance == match || node.MeshID == match) {
				select {
				case found <- node:
				default:
				}
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case node := <-found:
		return node, nil
	case <-ctx.Done():
		select {
		case node := <-found:
			return node, nil
		default:
		}
		return nil, fmt.Errorf("mesh node %s not found within %s", match, s.Timeout)
	}
}

// parseServiceEntry converts a zeroconf service entry to a Node. Returns nil
// if the entry has no instance name or address.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Node {
	if entry == nil || entry.Instance == "" {
		return nil
	}

	// Prefer IPv4
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := parseTXT(entry.Text)

	return &Node{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		MeshID:       metadata[TxtMeshID],
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

func parseTXT(records []string) map[string]string {
	metadata := make(map[string]string, len(records))
	for _, txt := range records {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}
	return metadata
}

// Advertisement is a running mDNS registration
type Advertisement struct {
	server *zeroconf.Server
}

// Advertise registers a control server on port under instance. TXT records
// are built from txt in key order. Call Shutdown to withdraw it.
func Advertise(instance string, port int, txt map[string]string) (*Advertisement, error) {
	if instance == "" {
		return nil, fmt.Errorf("mDNS instance name is empty")
	}

	records := BuildTXT(txt)
	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, records, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising control server",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
		zap.Strings("txt", records),
	)
	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the advertisement
func (a *Advertisement) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	logging.Debug("mDNS advertisement withdrawn")
}

// BuildTXT renders txt as sorted key=value records. Empty values produce a
// bare key.
func BuildTXT(txt map[string]string) []string {
	keys := make([]string, 0, len(txt))
	for k := range txt {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	records := make([]string, 0, len(keys))
	for _, k := range keys {
		if txt[k] == "" {
			records = append(records, k)
			continue
		}
		records = append(records, k+"="+txt[k])
	}
	return records
}

// QuickScan performs a fast scan with a 2-second timeout
func QuickScan(ctx context.Context) ([]*Node, error) {
	scanner := NewScanner()
	scanner.Timeout = 2 * time.Second
	return scanner.ScanForNodes(ctx)
}
