// Espmesh drives a self-organizing wireless mesh node and its remote
// control server.
//
// It activates a mesh locally from flags or a saved profile, serves the
// mesh over a WebSocket control endpoint, and talks to running control
// servers found by address or over mDNS.
//
// Usage:
//
//	espmesh [command] [flags]
//
// See 'espmesh --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/espmesh/internal/logging"
	"github.com/muurk/espmesh/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "espmesh",
	Short: "ESP-MESH node controller",
	Long: `A controller for a self-organizing wireless mesh node.

Bring a mesh up locally from flags or a saved profile, expose it over a
WebSocket control server, and inspect or reconfigure running servers on
the local network.

Logging is silent unless --log-level or ESPMESH_LOG_LEVEL is set.`,
	Version:       version.Version,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("espmesh %s\n", version.Full())
	},
}
