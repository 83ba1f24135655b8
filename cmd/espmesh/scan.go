package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/espmesh/internal/discovery"
	"github.com/muurk/espmesh/internal/ui"
)

var scanTimeout time.Duration

// scanCmd discovers control servers on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for mesh control servers on the network",
	Long: `Scan for espmesh control servers using mDNS/DNS-SD discovery.

Every server started with 'espmesh serve' advertises itself as
` + discovery.ServiceType + ` along with the mesh ID it controls.`,
	Example: `  # Scan for 5 seconds (default)
  espmesh scan

  # Longer scan for busy networks
  espmesh scan --timeout 15s`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "Scan timeout")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	out := cmd.OutOrStdout()

	_, _ = fmt.Fprintf(out, "Scanning for mesh control servers (timeout: %s)...\n\n", scanTimeout)

	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout
	nodes, err := scanner.ScanForNodes(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(nodes) == 0 {
		ui.NewPrinter(out).PrintWarning("No control servers found", map[string]string{
			"Hint": "Start one with 'espmesh serve' on the same network, or increase --timeout",
		})
		return nil
	}

	_, _ = fmt.Fprintf(out, "Found %d control server(s):\n\n", len(nodes))
	for i, node := range nodes {
		_, _ = fmt.Fprintf(out, "%d. %s\n", i+1, node.Instance)
		_, _ = fmt.Fprintf(out, "   URL:      %s\n", node.ControlURL())
		if node.MeshID != "" {
			_, _ = fmt.Fprintf(out, "   Mesh ID:  %s\n", node.MeshID)
		}
		if topo := node.GetMetadata(discovery.TxtTopology); topo != "" {
			_, _ = fmt.Fprintf(out, "   Topology: %s\n", topo)
		}
		if v := node.GetMetadata(discovery.TxtVersion); v != "" {
			_, _ = fmt.Fprintf(out, "   Version:  %s\n", v)
		}
		_, _ = fmt.Fprintln(out)
	}

	_, _ = fmt.Fprintln(out, "Use 'espmesh watch --node <instance>' to stream a node's events")
	return nil
}
