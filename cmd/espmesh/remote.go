package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/espmesh/internal/client"
	"github.com/muurk/espmesh/internal/discovery"
	"github.com/muurk/espmesh/internal/espmesh"
	"github.com/muurk/espmesh/internal/meshconfig"
	"github.com/muurk/espmesh/internal/ui"
)

// Target flags for commands that talk to a running control server
var (
	targetURL     string
	targetNode    string
	targetTimeout time.Duration
)

var defaultTargetURL = fmt.Sprintf("ws://localhost:%d%s", discovery.DefaultPort, discovery.ControlPath)

func bindTarget(cmd *cobra.Command) {
	cmd.Flags().StringVar(&targetURL, "url", "", "Control server URL (default "+defaultTargetURL+")")
	cmd.Flags().StringVar(&targetNode, "node", "", "Find the control server by mDNS instance name or mesh ID")
	cmd.Flags().DurationVar(&targetTimeout, "timeout", client.DefaultTimeout, "Connection and request timeout")
}

// connectTarget resolves the target flags and connects to it
func connectTarget(ctx context.Context) (*client.Client, error) {
	if targetURL != "" && targetNode != "" {
		return nil, fmt.Errorf("--url and --node are mutually exclusive")
	}

	url := targetURL
	if targetNode != "" {
		scanner := discovery.NewScanner()
		scanner.Timeout = targetTimeout
		node, err := scanner.WaitForNode(ctx, targetNode)
		if err != nil {
			return nil, err
		}
		url = node.ControlURL()
	}
	if url == "" {
		url = defaultTargetURL
	}

	c := client.New(url)
	c.Timeout = targetTimeout
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// remoteHints collects hints for a failed remote operation
func remoteHints(err error) []string {
	if hint := client.GetTroubleshootingHint(err); hint != "" {
		return []string{hint}
	}
	return troubleshoot(err)
}

// withClient connects, runs fn and reports a failure in a result box
func withClient(cmd *cobra.Command, title string, fn func(ctx context.Context, c *client.Client, printer *ui.Printer) error) error {
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printer := ui.NewPrinter(cmd.OutOrStdout())
	c, err := connectTarget(ctx)
	if err != nil {
		printer.PrintError(title+" failed", err, remoteHints(err))
		return err
	}
	defer func() { _ = c.Close() }()

	if err := fn(ctx, c, printer); err != nil {
		printer.PrintError(title+" failed", err, remoteHints(err))
		return err
	}
	return nil
}

// watchCmd streams events from a control server
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream mesh events from a control server",
	Example: `  # Watch the local server
  espmesh watch

  # Watch a node found over mDNS
  espmesh watch --node espmesh-gateway`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, "Watch", func(ctx context.Context, c *client.Client, printer *ui.Printer) error {
			if err := c.Subscribe(ctx, true); err != nil {
				return err
			}

			if ui.IsTerminal() {
				return ui.RunEventStream("Mesh events from "+c.URL, c.Events())
			}
			for {
				select {
				case ev, ok := <-c.Events():
					if !ok {
						return c.Err()
					}
					printer.PrintEvent(ev)
				case <-ctx.Done():
					return nil
				}
			}
		})
	},
}

// Config command flags
var configSets []string

var configCmd = &cobra.Command{
	Use:   "config [key]",
	Short: "Show or change the configuration of a control server",
	Long: `Show or change the mesh configuration held by a control server.

With no arguments every parameter is shown. With a key only that value is
printed. Each --set key=value is applied before reading; all of them are
validated together and nothing changes if any is rejected.

Settable keys: ` + strings.Join(meshconfig.SettableKeys, ", ") + `
Read-only keys: ` + strings.Join(meshconfig.ReadOnlyKeys, ", "),
	Example: `  # Show everything
  espmesh config

  # Read one value
  espmesh config channel

  # Point the mesh at a new router
  espmesh config --set ssid=office --set password=secret --set channel=11`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	kwargs, err := parseSettings(configSets)
	if err != nil {
		return err
	}

	return withClient(cmd, "Config", func(ctx context.Context, c *client.Client, printer *ui.Printer) error {
		if len(args) == 1 {
			value, err := c.Config(ctx, args[0], kwargs)
			if err != nil {
				return err
			}
			printer.Println(displayValue(args[0], value))
			return nil
		}

		if len(kwargs) > 0 {
			if _, err := c.Config(ctx, "", kwargs); err != nil {
				return err
			}
			mismatches, err := c.VerifyConfig(ctx, kwargs)
			if err != nil {
				return err
			}
			if len(mismatches) > 0 {
				details := make(map[string]string, len(mismatches))
				for i, m := range mismatches {
					details[fmt.Sprintf("Mismatch %d", i+1)] = m
				}
				printer.PrintWarning("Configuration not applied as requested", details)
			}
		}

		values, err := c.ReadConfig(ctx)
		if err != nil {
			return err
		}
		details := make(map[string]string, len(values))
		for key, value := range values {
			details[key] = displayValue(key, value)
		}
		title := "Mesh configuration"
		if len(kwargs) > 0 {
			title = "Mesh configuration updated"
		}
		printer.PrintSuccess(title, details)
		return nil
	})
}

// parseSettings turns key=value pairs into config keyword arguments typed
// for their key.
func parseSettings(sets []string) (map[string]any, error) {
	if len(sets) == 0 {
		return nil, nil
	}
	kwargs := make(map[string]any, len(sets))
	for _, set := range sets {
		key, value, ok := strings.Cut(set, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", set)
		}
		switch key {
		case meshconfig.KeyChannel:
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid channel %q: %w", value, err)
			}
			kwargs[key] = n
		case meshconfig.KeyPowerSave:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("invalid power_save %q: %w", value, err)
			}
			kwargs[key] = b
		default:
			kwargs[key] = value
		}
	}
	return kwargs, nil
}

// displayValue formats a config value. Passwords are only shown as set or
// not set.
func displayValue(key string, value any) string {
	switch key {
	case meshconfig.KeyPassword, meshconfig.KeyAPPassword:
		if s, _ := value.(string); s != "" {
			return "set"
		}
		return "not set"
	case meshconfig.KeyChannel:
		if n, ok := value.(float64); ok && n == 0 {
			return "not set"
		}
	}
	if n, ok := value.(float64); ok {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return fmt.Sprint(value)
}

var activeCmd = &cobra.Command{
	Use:       "active [on|off]",
	Short:     "Show or change whether a control server's mesh is active",
	Example:   "  espmesh active\n  espmesh active on --node espmesh-gateway",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, "Active", func(ctx context.Context, c *client.Client, printer *ui.Printer) error {
			var (
				on  bool
				err error
			)
			if len(args) == 0 {
				on, err = c.Active(ctx)
			} else {
				on, err = c.SetActive(ctx, args[0] == "on")
			}
			if err != nil {
				return err
			}

			state := "inactive"
			if on {
				state = "active"
			}
			printer.PrintSuccess("Mesh "+state, map[string]string{"Server": c.URL})
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show event counters of a control server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, "Stats", func(ctx context.Context, c *client.Client, printer *ui.Printer) error {
			stats, err := c.Stats(ctx)
			if err != nil {
				return err
			}
			details := make(map[string]string, len(stats))
			for k, v := range stats {
				details[k] = displayValue(k, v)
			}
			if dropped := c.DroppedEvents(); dropped > 0 {
				details["client_dropped"] = strconv.Itoa(dropped)
			}
			printer.PrintSuccess("Mesh event counters", details)
			return nil
		})
	},
}

// eventsCmd prints the event name table
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List mesh event names and codes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for code, name := range espmesh.EventNames() {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s\n", code, name)
		}
	},
}

func init() {
	for _, cmd := range []*cobra.Command{watchCmd, configCmd, activeCmd, statsCmd} {
		bindTarget(cmd)
		rootCmd.AddCommand(cmd)
	}
	configCmd.Flags().StringArrayVar(&configSets, "set", nil, "Set a parameter (key=value); repeatable")
	rootCmd.AddCommand(eventsCmd)
}
