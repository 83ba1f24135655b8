package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/muurk/espmesh/internal/espmesh"
	"github.com/muurk/espmesh/internal/ui"
)

// Events buffered between the mesh handler and the display
const eventBufferSize = 64

var upFlags meshFlags

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Activate the mesh and stream its events",
	Long: `Configure and activate the mesh, then show mesh events as they arrive.

Settings come from the selected profile (or the default profile) with any
flags given on the command line taking precedence. The router password is
never stored in a profile: pass --password or enter it when prompted.

The mesh is deactivated when you quit the event view or press Ctrl+C.`,
	Example: `  # Activate with explicit router settings
  espmesh up --ssid home-router --channel 6

  # Activate from a saved profile as a chain
  espmesh up --profile lab --topology chain --max-layer 40

  # Keep the radio awake
  espmesh up --profile home --power-save=false`,
	RunE: runUp,
}

func init() {
	upFlags.bind(upCmd)
	rootCmd.AddCommand(upCmd)
}

func runUp(cmd *cobra.Command, args []string) error {
	// Suppress usage on execution errors (we're past argument parsing)
	cmd.SilenceUsage = true

	setup, err := upFlags.build(cmd)
	if err != nil {
		return err
	}
	if err := setup.promptPassword(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer espmesh.Shutdown()

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:        "Mesh Up",
		Command:      "espmesh up",
		Params:       setup.params(),
		StepNames:    espmesh.ActivationSteps,
		Troubleshoot: troubleshoot,
	})

	events := make(chan espmesh.Event, eventBufferSize)
	err = runner.Run(func(observe espmesh.StepObserver) (map[string]string, error) {
		m, err := setup.mesh(espmesh.WithStepObserver(observe))
		if err != nil {
			return nil, err
		}
		// Never block the scheduler; a slow display loses events instead
		m.RegisterEventHandler(func(ev espmesh.Event) {
			select {
			case events <- ev:
			default:
			}
		})
		if err := m.Activate(); err != nil {
			return nil, err
		}
		return ui.ConfigDetails(m.Snapshot()), nil
	})
	if err != nil {
		return err
	}
	setup.markUsed()

	if ui.IsTerminal() {
		return ui.RunEventStream("Mesh events", events)
	}

	printer := ui.NewPrinter(cmd.OutOrStdout())
	for {
		select {
		case ev := <-events:
			printer.PrintEvent(ev)
		case <-ctx.Done():
			return nil
		}
	}
}
