package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/espmesh/internal/engine"
	"github.com/muurk/espmesh/internal/espmesh"
	"github.com/muurk/espmesh/internal/logging"
	"github.com/muurk/espmesh/internal/meshconfig"
	"github.com/muurk/espmesh/internal/profile"
	"github.com/muurk/espmesh/internal/ui"
)

// meshFlags are the flags shared by every command that builds a local mesh
type meshFlags struct {
	profile    string
	ssid       string
	password   string
	channel    int
	apPassword string
	powerSave  bool
	topology   string
	maxLayer   int
	authMode   string
	interval   time.Duration
}

func (f *meshFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.profile, "profile", "", "Saved profile to start from (default: the default profile, if any)")
	flags.StringVar(&f.ssid, "ssid", "", "Router SSID")
	flags.StringVar(&f.password, "password", "", "Router password (prompted for when omitted)")
	flags.IntVar(&f.channel, "channel", 0, "Router channel")
	flags.StringVar(&f.apPassword, "ap-password", "", "Mesh softAP password")
	flags.BoolVar(&f.powerSave, "power-save", meshconfig.DefaultPowerSave, "Enable mesh power save")
	flags.StringVar(&f.topology, "topology", "", "Mesh topology (tree, chain)")
	flags.IntVar(&f.maxLayer, "max-layer", 0, "Maximum mesh layer")
	flags.StringVar(&f.authMode, "auth-mode", "", "Mesh softAP auth mode (open, wep, wpa_psk, wpa2_psk, wpa_wpa2_psk)")
	flags.DurationVar(&f.interval, "event-interval", 500*time.Millisecond, "Delay between simulated engine events")
}

// meshSetup is what a command needs to create and configure the mesh
type meshSetup struct {
	registry    *profile.Registry
	profileName string
	options     []espmesh.Option
	update      meshconfig.Update
	interval    time.Duration
}

// build resolves the profile and overlays every flag the user set
func (f *meshFlags) build(cmd *cobra.Command) (*meshSetup, error) {
	reg, err := profile.Load()
	if err != nil {
		return nil, err
	}

	setup := &meshSetup{registry: reg, interval: f.interval}

	p, err := reg.Resolve(f.profile)
	if err != nil {
		return nil, err
	}
	if p != nil {
		setup.profileName = f.profile
		if setup.profileName == "" {
			setup.profileName = reg.Default
		}
		if setup.options, err = p.Options(); err != nil {
			return nil, err
		}
		setup.update = p.Update("")
	}

	flags := cmd.Flags()
	if flags.Changed("ssid") {
		setup.update.SSID = meshconfig.Ptr(f.ssid)
	}
	if flags.Changed("password") {
		setup.update.Password = meshconfig.Ptr(f.password)
	}
	if flags.Changed("channel") {
		setup.update.Channel = meshconfig.Ptr(f.channel)
	}
	if flags.Changed("ap-password") {
		setup.update.APPassword = meshconfig.Ptr(f.apPassword)
	}
	if flags.Changed("power-save") {
		setup.update.PowerSave = meshconfig.Ptr(f.powerSave)
	}
	if flags.Changed("topology") {
		t, err := engine.ParseTopology(f.topology)
		if err != nil {
			return nil, err
		}
		setup.options = append(setup.options, espmesh.WithTopology(t))
	}
	if flags.Changed("max-layer") {
		setup.options = append(setup.options, espmesh.WithMaxLayer(f.maxLayer))
	}
	if flags.Changed("auth-mode") {
		m, err := engine.ParseAuthMode(f.authMode)
		if err != nil {
			return nil, err
		}
		setup.options = append(setup.options, espmesh.WithAPAuthMode(m))
	}

	if err := setup.update.Validate(); err != nil {
		return nil, err
	}
	return setup, nil
}

// promptPassword asks for the router password when an SSID is set but no
// password was given. A non-interactive stdin leaves it unset.
func (s *meshSetup) promptPassword() error {
	if s.update.SSID == nil || s.update.Password != nil {
		return nil
	}
	pw, err := ui.PromptPassword(fmt.Sprintf("Password for %s: ", *s.update.SSID))
	if errors.Is(err, ui.ErrNotTerminal) {
		return nil
	}
	if err != nil {
		return err
	}
	s.update.Password = &pw
	return s.update.Validate()
}

// mesh creates the process-wide mesh on a simulated engine and applies the
// configuration update.
func (s *meshSetup) mesh(extra ...espmesh.Option) (*espmesh.Mesh, error) {
	sim := engine.NewSim(engine.WithScript(s.interval, engine.DefaultScript...))
	opts := append([]espmesh.Option{espmesh.WithEngine(sim)}, s.options...)
	opts = append(opts, extra...)

	m := espmesh.Get(opts...)
	if err := m.Configure(s.update); err != nil {
		return nil, err
	}
	return m, nil
}

// params describes the setup for a command header
func (s *meshSetup) params() map[string]string {
	params := make(map[string]string)
	if s.profileName != "" {
		params["Profile"] = s.profileName
	}
	if s.update.SSID != nil {
		params["SSID"] = *s.update.SSID
	}
	if s.update.Channel != nil {
		params["Channel"] = fmt.Sprint(*s.update.Channel)
	}
	return params
}

// markUsed stamps the profile as just used. Failing to save is not fatal.
func (s *meshSetup) markUsed() {
	if s.profileName == "" {
		return
	}
	s.registry.MarkUsed(s.profileName)
	if err := s.registry.Save(); err != nil {
		logging.Warn("Failed to update profile", zap.String("profile", s.profileName), zap.Error(err))
	}
}

// troubleshoot collects hints for a failed mesh or client operation
func troubleshoot(err error) []string {
	if hint := espmesh.GetTroubleshootingHint(err); hint != "" {
		return []string{hint}
	}
	return nil
}
