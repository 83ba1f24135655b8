package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName     = "espmesh"
	profileFile = "profiles.yaml"
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/espmesh or $HOME/.config/espmesh
//   - macOS: $HOME/.config/espmesh
//   - Windows: %LOCALAPPDATA%\espmesh
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetProfilePath returns the full path to the profiles file
func GetProfilePath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, profileFile), nil
}

// Load reads the profiles file at its default location. A missing file
// yields an empty registry.
func Load() (*Registry, error) {
	path, err := GetProfilePath()
	if err != nil {
		return nil, fmt.Errorf("failed to get profile path: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom reads a profiles file. A missing file yields an empty registry.
func LoadFrom(path string) (*Registry, error) {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var registry Registry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse profile file: %w", err)
	}

	if registry.Version != 1 {
		return nil, fmt.Errorf("unsupported profile file version: %d (expected 1)", registry.Version)
	}
	if registry.Profiles == nil {
		registry.Profiles = make(map[string]*Profile)
	}
	for name, p := range registry.Profiles {
		if p == nil {
			return nil, fmt.Errorf("profile %q is empty", name)
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
	}
	if registry.Default != "" && registry.Profiles[registry.Default] == nil {
		return nil, fmt.Errorf("default profile %q not found", registry.Default)
	}

	return &registry, nil
}

// Save writes the registry to its default location
func (r *Registry) Save() error {
	path, err := GetProfilePath()
	if err != nil {
		return fmt.Errorf("failed to get profile path: %w", err)
	}
	return r.SaveTo(path)
}

// SaveTo writes the registry to path.
// Performs an atomic write to prevent corruption on crash.
func (r *Registry) SaveTo(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	// User-only permissions; the file names the user's networks
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	header := []byte(`# espmesh profiles
# Named mesh presets for "espmesh up --profile <name>".
#
# Security Note: router and AP passwords are NEVER stored in this file.
# They are always prompted for or passed with --password.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary profile file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save profile file: %w", err)
	}

	return nil
}
