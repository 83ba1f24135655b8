// Package discovery finds and advertises espmesh control servers over mDNS.
//
// A control server (espmesh serve) registers itself as a "_espmesh._tcp"
// service in the "local." domain. TXT records carry the mesh ID, the
// WebSocket path and the build version, so a client can pick the right node
// without connecting to each one.
//
// # Usage Example
//
//	nodes, err := discovery.NewScanner().ScanForNodes(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, n := range nodes {
//	    fmt.Println(n, n.ControlURL())
//	}
//
//	ad, err := discovery.Advertise("espmesh-gw", 8765, map[string]string{
//	    discovery.TxtMeshID: "77:77:77:77:77:77",
//	    discovery.TxtPath:   discovery.ControlPath,
//	})
//	defer ad.Shutdown()
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Nodes must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
