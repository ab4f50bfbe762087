// Package config loads permsim settings and scenario files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/permissions/pkg/capability"
)

// Config represents the optional permsim.yaml in the working directory.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// LogConfig controls simulator logging.
type LogConfig struct {
	Verbose bool `yaml:"verbose,omitempty"`
}

// DefaultsConfig supplies values scenarios may omit.
type DefaultsConfig struct {
	// Version is the platform version used for location scenarios.
	Version string `yaml:"version,omitempty"`
	// Rationale is the default rationale answer: proceed or cancel.
	Rationale string `yaml:"rationale,omitempty"`
}

// LoadOptional reads permsim.yaml from dir if present.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, "permsim.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read permsim.yaml: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse permsim.yaml: %w", err)
	}
	return &cfg, nil
}

// Kind selects how a scenario builds its capability set.
type Kind string

const (
	KindOrdinary      Kind = "ordinary"
	KindLocation      Kind = "location"
	KindWriteSettings Kind = "write_settings"
	KindOverlay       Kind = "overlay"
)

// Rationale answers.
const (
	RationaleProceed = "proceed"
	RationaleCancel  = "cancel"
)

// Scenario describes one simulated permission request.
type Scenario struct {
	Name         string   `yaml:"name"`
	Kind         Kind     `yaml:"kind"`
	Capabilities []string `yaml:"capabilities,omitempty"`
	// Version and Location apply to location scenarios only.
	Version  string   `yaml:"version,omitempty"`
	Location []string `yaml:"location,omitempty"`

	Host HostState `yaml:"host"`

	// Rationale is how the rationale handler answers: proceed or cancel.
	Rationale string `yaml:"rationale,omitempty"`
	// Consent maps each capability to the user's answer in the dialog.
	// Capabilities left out are denied.
	Consent map[string]bool `yaml:"consent,omitempty"`
	// SwitchOnReturn is the settings switch state when the user returns.
	SwitchOnReturn bool `yaml:"switch_on_return,omitempty"`
	// Abandon tears the request down before any result arrives.
	Abandon bool `yaml:"abandon,omitempty"`
}

// HostState seeds the simulated host before the request starts.
type HostState struct {
	Granted           []string `yaml:"granted,omitempty"`
	Rationale         []string `yaml:"rationale,omitempty"`
	PermanentlyDenied []string `yaml:"permanently_denied,omitempty"`
	SwitchEnabled     bool     `yaml:"switch_enabled,omitempty"`
}

// LoadScenario reads a scenario file and fills omitted fields from defaults.
func LoadScenario(path string, defaults DefaultsConfig) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", filepath.Base(path), err)
	}

	if strings.TrimSpace(sc.Name) == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if sc.Kind == "" {
		sc.Kind = KindOrdinary
	}
	if sc.Version == "" {
		sc.Version = defaults.Version
	}
	if sc.Rationale == "" {
		sc.Rationale = defaults.Rationale
	}
	if sc.Rationale == "" {
		sc.Rationale = RationaleProceed
	}

	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", sc.Name, err)
	}
	return &sc, nil
}

func (sc *Scenario) validate() error {
	switch sc.Rationale {
	case RationaleProceed, RationaleCancel:
	default:
		return fmt.Errorf("rationale must be %q or %q, got %q", RationaleProceed, RationaleCancel, sc.Rationale)
	}
	switch sc.Kind {
	case KindOrdinary:
		if len(sc.Capabilities) == 0 {
			return fmt.Errorf("ordinary scenario needs capabilities")
		}
	case KindLocation:
		if sc.Version == "" {
			return fmt.Errorf("location scenario needs a platform version")
		}
	case KindWriteSettings, KindOverlay:
		if len(sc.Capabilities) > 0 {
			return fmt.Errorf("%s scenario takes no capabilities", sc.Kind)
		}
	default:
		return fmt.Errorf("unknown kind %q", sc.Kind)
	}
	return nil
}

// Set builds the capability set the scenario requests.
func (sc *Scenario) Set() (capability.Set, error) {
	switch sc.Kind {
	case KindLocation:
		perms := make([]capability.LocationPermission, 0, len(sc.Location))
		for _, name := range sc.Location {
			p, err := parseLocation(name)
			if err != nil {
				return capability.Set{}, err
			}
			perms = append(perms, p)
		}
		return capability.Location(sc.Version, perms...)
	case KindWriteSettings:
		return capability.WriteSettings(), nil
	case KindOverlay:
		return capability.SystemAlertWindow(), nil
	default:
		return capability.Ordinary(ToCapabilities(sc.Capabilities)...)
	}
}

func parseLocation(name string) (capability.LocationPermission, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "coarse":
		return capability.LocationCoarse, nil
	case "fine":
		return capability.LocationFine, nil
	case "background":
		return capability.LocationBackground, nil
	default:
		return 0, fmt.Errorf("unknown location permission %q", name)
	}
}

// ToCapabilities converts scenario capability names.
func ToCapabilities(names []string) []capability.Capability {
	caps := make([]capability.Capability, len(names))
	for i, n := range names {
		caps[i] = capability.Capability(n)
	}
	return caps
}
