// Package config loads siglocate settings from the configuration directory.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultNeedle is the string whose referencing function is located.
	DefaultNeedle = "A dimension task group"
	// DefaultCodeSection holds the machine code that is scanned.
	DefaultCodeSection = ".text"

	// DirEnv overrides the configuration directory.
	DirEnv = "SIGLOCATE_CONFIG_DIR"
	// AppDir is the folder looked up in the roaming profile.
	AppDir = "siglocate"
)

// DefaultDataSections are searched for the needle, in image order.
var DefaultDataSections = []string{".rodata", ".rdata", ".data"}

// candidate file names, in lookup order
var configFiles = []string{"config.json", "config.yaml", "config.yml"}

// Config holds settings for one locate run.
type Config struct {
	Needle       string      `json:"needle" yaml:"needle" jsonschema:"title=Needle,description=String constant whose referencing function is located"`
	DataSections []string    `json:"dataSections,omitempty" yaml:"dataSections,omitempty" jsonschema:"title=Data Sections,description=Sections searched for the needle in image order"`
	CodeSection  string      `json:"codeSection" yaml:"codeSection" jsonschema:"title=Code Section,description=Section disassembled for references"`
	Arch         string      `json:"arch,omitempty" yaml:"arch,omitempty" jsonschema:"title=Architecture,description=Instruction set (amd64 386 arm64); empty selects the host"`
	Target       string      `json:"target,omitempty" yaml:"target,omitempty" jsonschema:"title=Target,description=Loaded module to scan; empty selects the running executable"`
	Debug        bool        `json:"debug" yaml:"debug" jsonschema:"title=Debug,description=Enable debug logging"`
	LogToFile    bool        `json:"logToFile" yaml:"logToFile" jsonschema:"title=Log To File,description=Write siglocate.log in the configuration directory"`
	Limits       BuildLimits `json:"limits" yaml:"limits" jsonschema:"title=Build Limits,description=Height range handed to the hook"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Needle:       DefaultNeedle,
		DataSections: append([]string(nil), DefaultDataSections...),
		CodeSection:  DefaultCodeSection,
		Limits:       DefaultLimits,
	}
}

// roamingDir finds a per-user configuration directory. Only Windows has one.
var roamingDir = userRoamingDir

// Dir returns the configuration directory: $SIGLOCATE_CONFIG_DIR if set,
// then an existing siglocate folder in the roaming profile, otherwise the
// directory holding the running executable.
func Dir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	if dir, ok := roamingDir(); ok {
		return dir, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("config dir: %w", err)
	}
	return filepath.Dir(exe), nil
}

// Load reads the first config file found in dir. Missing files are not an
// error; the defaults are returned. Fields left empty in the file keep
// their default values.
func Load(dir string) (Config, error) {
	cfg := Default()
	for _, name := range configFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}

		if filepath.Ext(name) == ".json" {
			err = json.Unmarshal(data, &cfg)
		} else {
			err = yaml.Unmarshal(data, &cfg)
		}
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg.fillDefaults()
		return cfg, cfg.Validate()
	}
	return cfg, nil
}

// Save writes cfg as config.json in dir.
func Save(dir string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func (c *Config) fillDefaults() {
	if c.Needle == "" {
		c.Needle = DefaultNeedle
	}
	if len(c.DataSections) == 0 {
		c.DataSections = append([]string(nil), DefaultDataSections...)
	}
	if c.CodeSection == "" {
		c.CodeSection = DefaultCodeSection
	}
}

// Validate checks the build limits.
func (c Config) Validate() error {
	if c.Limits.Min >= c.Limits.Max {
		return fmt.Errorf("invalid limits: min %d must be below max %d", c.Limits.Min, c.Limits.Max)
	}
	return nil
}

// existingDir reports whether path names a directory.
func existingDir(path string) (string, bool) {
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		return "", false
	}
	return path, true
}
