package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/espmesh/internal/discovery"
	"github.com/muurk/espmesh/internal/espmesh"
	"github.com/muurk/espmesh/internal/host"
	"github.com/muurk/espmesh/internal/server"
	"github.com/muurk/espmesh/internal/ui"
)

// Server command flags
var (
	serveFlags    meshFlags
	serveHost     string
	servePort     int
	serveCert     string
	serveKey      string
	serveAdvert   bool
	serveInstance string
	serveActivate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the mesh over a WebSocket control endpoint",
	Long: `Create the mesh and expose it to remote clients over WebSocket.

Clients can query and change the configuration, activate or deactivate the
mesh, and subscribe to mesh events. The server advertises itself over mDNS
as ` + discovery.ServiceType + ` unless --advertise=false is given.

Provide --cert and --key to serve wss:// instead of ws://.`,
	Example: `  # Serve an unconfigured mesh on the default port
  espmesh serve

  # Serve a profile and activate it straight away
  espmesh serve --profile home --password secret --activate

  # TLS on a custom port, without mDNS
  espmesh serve --port 8443 --cert cert.pem --key key.pem --advertise=false`,
	RunE: runServe,
}

func init() {
	serveFlags.bind(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&servePort, "port", discovery.DefaultPort, "Listen port")
	serveCmd.Flags().StringVar(&serveCert, "cert", "", "Path to TLS certificate file")
	serveCmd.Flags().StringVar(&serveKey, "key", "", "Path to TLS private key file")
	serveCmd.Flags().BoolVar(&serveAdvert, "advertise", true, "Advertise the server over mDNS")
	serveCmd.Flags().StringVar(&serveInstance, "instance", "", "mDNS instance name (default: espmesh-<hostname>)")
	serveCmd.Flags().BoolVar(&serveActivate, "activate", false, "Activate the mesh before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	// Validate: Either both cert and key are provided, or neither
	if (serveCert == "") != (serveKey == "") {
		return fmt.Errorf("both --cert and --key must be provided together, or neither")
	}

	setup, err := serveFlags.build(cmd)
	if err != nil {
		return err
	}
	if serveActivate {
		if err := setup.promptPassword(); err != nil {
			return err
		}
	}

	instance := serveInstance
	if instance == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "node"
		}
		instance = "espmesh-" + hostname
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer espmesh.Shutdown()

	m, err := setup.mesh()
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(cmd.OutOrStdout())
	scheme := "ws"
	if serveCert != "" {
		scheme = "wss"
	}
	params := setup.params()
	params["Listen"] = fmt.Sprintf("%s://%s:%d%s", scheme, serveHost, servePort, discovery.ControlPath)
	if serveAdvert {
		params["mDNS"] = instance
	}
	printer.PrintHeader("Mesh Control Server", "espmesh serve", params)

	if serveActivate {
		if err := m.Activate(); err != nil {
			printer.PrintError("Activation failed", err, troubleshoot(err))
			return err
		}
		setup.markUsed()
	}

	srv, err := server.New(&server.Config{
		Host:      serveHost,
		Port:      servePort,
		CertPath:  serveCert,
		KeyPath:   serveKey,
		Advertise: serveAdvert,
		Instance:  instance,
	}, host.New(m))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}
