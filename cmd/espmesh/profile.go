package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/muurk/espmesh/internal/profile"
	"github.com/muurk/espmesh/internal/ui"
)

// Profile save flags
var (
	profileDescription string
	profileSSID        string
	profileChannel     int
	profileTopology    string
	profileMaxLayer    int
	profileAuthMode    string
	profilePowerSave   bool
	profileDefault     bool
	profileForce       bool
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved mesh profiles",
	Long: `Manage named mesh presets used by 'espmesh up' and 'espmesh serve'.

Profiles hold router and mesh shape settings. Passwords are never saved.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		reg, err := profile.Load()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(reg.Profiles) == 0 {
			_, _ = fmt.Fprintln(out, "No profiles saved. Create one with 'espmesh profile save <name> --ssid <ssid>'.")
			return nil
		}

		names := make([]string, 0, len(reg.Profiles))
		for name := range reg.Profiles {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			marker := " "
			if name == reg.Default {
				marker = "*"
			}
			p := reg.Profiles[name]
			_, _ = fmt.Fprintf(out, "%s %-16s %-24s %s\n", marker, name, p.SSID, p.Description)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show a profile (default: the default profile)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		reg, err := profile.Load()
		if err != nil {
			return err
		}
		var name string
		if len(args) == 1 {
			name = args[0]
		} else {
			name = reg.Default
		}
		p, err := reg.Resolve(name)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("no default profile set")
		}
		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Profile "+name, profileDetails(p, name == reg.Default))
		return nil
	},
}

var profileSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save or replace a profile",
	Example: `  espmesh profile save home --ssid home-router --channel 6 --default
  espmesh profile save lab --ssid lab --topology chain --max-layer 40 --power-save=false`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileSave,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		reg, err := profile.Load()
		if err != nil {
			return err
		}
		if !reg.Delete(args[0]) {
			return fmt.Errorf("profile %q not found", args[0])
		}
		if err := reg.Save(); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %s\n", args[0])
		return nil
	},
}

func init() {
	flags := profileSaveCmd.Flags()
	flags.StringVar(&profileDescription, "description", "", "Free-form description")
	flags.StringVar(&profileSSID, "ssid", "", "Router SSID")
	flags.IntVar(&profileChannel, "channel", 0, "Router channel")
	flags.StringVar(&profileTopology, "topology", "", "Mesh topology (tree, chain)")
	flags.IntVar(&profileMaxLayer, "max-layer", 0, "Maximum mesh layer")
	flags.StringVar(&profileAuthMode, "auth-mode", "", "Mesh softAP auth mode")
	flags.BoolVar(&profilePowerSave, "power-save", true, "Enable mesh power save")
	flags.BoolVar(&profileDefault, "default", false, "Make this the default profile")
	flags.BoolVarP(&profileForce, "force", "f", false, "Replace an existing profile without asking")

	profileCmd.AddCommand(profileListCmd, profileShowCmd, profileSaveCmd, profileDeleteCmd)
	rootCmd.AddCommand(profileCmd)
}

func runProfileSave(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	name := args[0]

	reg, err := profile.Load()
	if err != nil {
		return err
	}

	p := &profile.Profile{
		Description: profileDescription,
		SSID:        profileSSID,
		Channel:     profileChannel,
		Topology:    profileTopology,
		MaxLayer:    profileMaxLayer,
		AuthMode:    profileAuthMode,
	}
	if cmd.Flags().Changed("power-save") {
		p.PowerSave = &profilePowerSave
	}

	if existing := reg.Get(name); existing != nil && !profileForce {
		if !ui.Confirm(os.Stdin, cmd.OutOrStdout(), fmt.Sprintf("Profile %q exists. Replace it?", name)) {
			return fmt.Errorf("profile %q not replaced", name)
		}
		p.LastUsed = existing.LastUsed
	}

	if err := reg.Set(name, p); err != nil {
		return err
	}
	if profileDefault {
		reg.Default = name
	}
	if err := reg.Save(); err != nil {
		return err
	}

	path, _ := profile.GetProfilePath()
	ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Profile "+name+" saved", map[string]string{"File": path})
	return nil
}

func profileDetails(p *profile.Profile, isDefault bool) map[string]string {
	details := map[string]string{
		"Default": fmt.Sprint(isDefault),
	}
	set := func(key, value string) {
		if value != "" {
			details[key] = value
		}
	}
	set("Description", p.Description)
	set("SSID", p.SSID)
	if p.Channel != 0 {
		details["Channel"] = fmt.Sprint(p.Channel)
	}
	set("Topology", p.Topology)
	if p.MaxLayer != 0 {
		details["Max layer"] = fmt.Sprint(p.MaxLayer)
	}
	set("Auth mode", p.AuthMode)
	if p.PowerSave != nil {
		details["Power save"] = fmt.Sprint(*p.PowerSave)
	}
	if !p.LastUsed.IsZero() {
		details["Last used"] = p.LastUsed.Format("2006-01-02 15:04")
	}
	return details
}
