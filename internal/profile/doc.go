// Package profile stores named mesh presets in a YAML file.
//
// A profile carries the router SSID and channel, the mesh topology, layer
// limit and softAP auth mode, and the power-save switch. It never carries a
// password: the profiles file is safe to share.
//
// # File Location
//
//   - Linux: $XDG_CONFIG_HOME/espmesh/profiles.yaml or ~/.config/espmesh/profiles.yaml
//   - macOS: ~/.config/espmesh/profiles.yaml
//   - Windows: %LOCALAPPDATA%\espmesh\profiles.yaml
//
// # File Format
//
//	version: 1
//	default: home
//	profiles:
//	  home:
//	    ssid: home-router
//	    channel: 6
//	    topology: chain
//	    max_layer: 40
//	    power_save: true
//
// # Usage Example
//
//	reg, err := profile.Load()
//	p, err := reg.Resolve(name)
//	opts, err := p.Options()
//	m := espmesh.Get(opts...)
//	err = m.Configure(p.Update(password))
package profile
