package profile

import (
	"fmt"
	"time"

	"github.com/muurk/espmesh/internal/engine"
	"github.com/muurk/espmesh/internal/espmesh"
	"github.com/muurk/espmesh/internal/meshconfig"
)

// Registry is the whole profiles file: named mesh presets plus the one
// used when no --profile flag is given.
type Registry struct {
	Version  int                 `yaml:"version"`
	Default  string              `yaml:"default,omitempty"`
	Profiles map[string]*Profile `yaml:"profiles,omitempty"`
}

// Profile is a stored mesh preset.
//
// Passwords are NEVER stored: the router password is prompted for or
// passed on the command line every time.
type Profile struct {
	Description string `yaml:"description,omitempty"`

	// Router
	SSID    string `yaml:"ssid,omitempty"`
	Channel int    `yaml:"channel,omitempty"`

	// Mesh shape, applied when the mesh is created
	Topology string `yaml:"topology,omitempty"`  // "tree" or "chain"
	MaxLayer int    `yaml:"max_layer,omitempty"` // 0 keeps the default
	AuthMode string `yaml:"auth_mode,omitempty"`

	PowerSave *bool `yaml:"power_save,omitempty"`

	LastUsed time.Time `yaml:"last_used,omitempty"`
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		Version:  1,
		Profiles: make(map[string]*Profile),
	}
}

// Get returns the named profile, or nil
func (r *Registry) Get(name string) *Profile {
	return r.Profiles[name]
}

// Resolve returns the named profile, falling back to the default profile
// when name is empty. An empty registry with no name yields nil, nil.
func (r *Registry) Resolve(name string) (*Profile, error) {
	if name == "" {
		name = r.Default
	}
	if name == "" {
		return nil, nil
	}
	p := r.Profiles[name]
	if p == nil {
		return nil, fmt.Errorf("profile %q not found", name)
	}
	return p, nil
}

// Set stores p under name after validating it
func (r *Registry) Set(name string, p *Profile) error {
	if name == "" {
		return fmt.Errorf("profile name is empty")
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("profile %q: %w", name, err)
	}
	if r.Profiles == nil {
		r.Profiles = make(map[string]*Profile)
	}
	r.Profiles[name] = p
	return nil
}

// Delete removes a profile. Deleting the default clears the default.
func (r *Registry) Delete(name string) bool {
	if _, ok := r.Profiles[name]; !ok {
		return false
	}
	delete(r.Profiles, name)
	if r.Default == name {
		r.Default = ""
	}
	return true
}

// MarkUsed records that a profile was just activated
func (r *Registry) MarkUsed(name string) {
	if p := r.Profiles[name]; p != nil {
		p.LastUsed = time.Now()
	}
}

// Validate checks the values a profile would feed into the mesh
func (p *Profile) Validate() error {
	if err := p.Update("").Validate(); err != nil {
		return err
	}
	topo, err := p.topology()
	if err != nil {
		return err
	}
	if p.MaxLayer < 0 || p.MaxLayer > topo.MaxLayer() {
		return meshconfig.NewValueOutOfRangeError(meshconfig.KeyMaxLayer, p.MaxLayer,
			fmt.Sprintf("must be between 1 and %d for %s topology", topo.MaxLayer(), topo))
	}
	if p.AuthMode != "" {
		if _, err := engine.ParseAuthMode(p.AuthMode); err != nil {
			return err
		}
	}
	return nil
}

// Update converts the router settings of p into a configuration update.
// password is applied only when non-empty.
func (p *Profile) Update(password string) meshconfig.Update {
	var u meshconfig.Update
	if p.SSID != "" {
		u.SSID = meshconfig.Ptr(p.SSID)
	}
	if password != "" {
		u.Password = meshconfig.Ptr(password)
	}
	if p.Channel != 0 {
		u.Channel = meshconfig.Ptr(p.Channel)
	}
	if p.PowerSave != nil {
		u.PowerSave = meshconfig.Ptr(*p.PowerSave)
	}
	return u
}

// Options returns the mesh construction options p selects
func (p *Profile) Options() ([]espmesh.Option, error) {
	var opts []espmesh.Option
	if p.Topology != "" {
		topo, err := p.topology()
		if err != nil {
			return nil, err
		}
		opts = append(opts, espmesh.WithTopology(topo))
	}
	if p.MaxLayer != 0 {
		opts = append(opts, espmesh.WithMaxLayer(p.MaxLayer))
	}
	if p.AuthMode != "" {
		mode, err := engine.ParseAuthMode(p.AuthMode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, espmesh.WithAPAuthMode(mode))
	}
	return opts, nil
}

func (p *Profile) topology() (engine.Topology, error) {
	if p.Topology == "" {
		return meshconfig.DefaultTopology, nil
	}
	return engine.ParseTopology(p.Topology)
}
