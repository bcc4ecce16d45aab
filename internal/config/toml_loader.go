package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// configFileName is the dedicated config file discovered by walking up
// the directory tree.
const configFileName = ".restructure.toml"

// builderTomlConfig mirrors BuilderConfig but with pointer fields so the
// TOML decoder can distinguish "absent from the file" from "present and
// zero" when the file and the built-in defaults are merged.
type builderTomlConfig struct {
	OverflowMultiplier *int  `toml:"overflow_multiplier"`
	FailOnMalformed    *bool `toml:"fail_on_malformed"`
	FailOnInconsistent *bool `toml:"fail_on_inconsistent"`
	Verbose            *bool `toml:"verbose"`
}

// TomlLoader loads BuilderConfig from a .restructure.toml file, merging it
// over DefaultBuilderConfig.
type TomlLoader struct{}

// NewTomlLoader creates a loader.
func NewTomlLoader() *TomlLoader { return &TomlLoader{} }

// FindConfigFile walks up from startPath looking for .restructure.toml,
// returning "" if none is found.
func (l *TomlLoader) FindConfigFile(startPath string) string {
	dir, err := normalizeSearchDir(startPath)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load reads and merges a .restructure.toml file found from startPath. If
// no file is found, it returns DefaultBuilderConfig unchanged.
func (l *TomlLoader) Load(startPath string) (*BuilderConfig, error) {
	cfg := DefaultBuilderConfig()

	path := l.FindConfigFile(startPath)
	if path == "" {
		return cfg, nil
	}
	return l.LoadFile(path)
}

// LoadFile reads and merges a specific TOML file over the defaults.
func (l *TomlLoader) LoadFile(path string) (*BuilderConfig, error) {
	cfg := DefaultBuilderConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var parsed builderTomlConfig
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}

	if parsed.OverflowMultiplier != nil {
		cfg.OverflowMultiplier = *parsed.OverflowMultiplier
	}
	if parsed.FailOnMalformed != nil {
		cfg.FailOnMalformed = *parsed.FailOnMalformed
	}
	if parsed.FailOnInconsistent != nil {
		cfg.FailOnInconsistent = *parsed.FailOnInconsistent
	}
	if parsed.Verbose != nil {
		cfg.Verbose = *parsed.Verbose
	}

	return cfg, nil
}

func normalizeSearchDir(path string) (string, error) {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err == nil && !info.IsDir() {
		return filepath.Dir(abs), nil
	}
	return abs, nil
}
