package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arborfs/arbor/internal/util"
	"gopkg.in/yaml.v3"
)

// Default configuration constants. See [Config] for field descriptions.
const (
	// DefaultPlaceholder is substituted for names that are empty after trimming.
	DefaultPlaceholder = "<None>"

	// DefaultCaseSensitive controls the default sibling-name comparison.
	// Names are compared case-insensitively unless overridden.
	DefaultCaseSensitive = false

	// DefaultFsName is the FUSE FsName used when mounting a tree view.
	DefaultFsName = "arbor"

	// DefaultMountName is the FUSE Name used when mounting a tree view.
	DefaultMountName = "arbor"
)

// CLI verbosity values mapped onto internal log levels by [Config.Merge].
const (
	ErrorVerbose = 1
	WarnVerbose  = 2
	InfoVerbose  = 3
	DebugVerbose = 4
	TraceVerbose = 5
)

// Config contains runtime configuration values for the namespace engine and
// its optional mount view.
type Config struct {
	MountOptions MountOptions

	LogLvl util.LogLevel // Internal log level (Default info)

	Placeholder   string // Name substituted for empty node names (Default "<None>")
	CaseSensitive bool   // Whether sibling names are compared case-sensitively (Default false)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
//
// LogLvl is the CLI-facing verbosity between 1 (error) and 5 (trace), not the
// internal util.LogLevel; Merge converts and clamps it.
type ConfigOverride struct {
	LogLvl        *int    `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	Placeholder   *string `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	CaseSensitive *bool   `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`
	Debug         *bool   `yaml:"debug,omitempty" json:"debug,omitempty"`
	FsName        *string `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name          *string `yaml:"name,omitempty" json:"name,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultMountName,
		},
		LogLvl:        util.InfoLevel,
		Placeholder:   DefaultPlaceholder,
		CaseSensitive: DefaultCaseSensitive,
	}
}

// NewConfig creates a Config from defaults with the override, if any, applied.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.LogLvl != nil {
		c.LogLvl = verboseToLevel(*override.LogLvl)
	}
	if override.Placeholder != nil {
		c.Placeholder = *override.Placeholder
	}
	if override.CaseSensitive != nil {
		c.CaseSensitive = *override.CaseSensitive
	}
	if override.Debug != nil {
		c.MountOptions.Debug = *override.Debug
	}
	if override.FsName != nil {
		c.MountOptions.FsName = *override.FsName
	}
	if override.Name != nil {
		c.MountOptions.Name = *override.Name
	}
}

// verboseToLevel clamps a 1-5 CLI verbosity and maps it to a util.LogLevel.
func verboseToLevel(verbose int) util.LogLevel {
	if verbose < ErrorVerbose {
		verbose = ErrorVerbose
	}
	if verbose > TraceVerbose {
		verbose = TraceVerbose
	}
	levels := [5]util.LogLevel{util.ErrorLevel, util.WarnLevel, util.InfoLevel, util.DebugLevel, util.TraceLevel}
	return levels[verbose-1]
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(override)
	return cfg, nil
}
