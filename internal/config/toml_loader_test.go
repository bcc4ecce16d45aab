package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTomlLoaderLoadDefaultsWhenNoFile(t *testing.T) {
	tempDir := t.TempDir()

	cfg, err := NewTomlLoader().Load(tempDir)
	require.NoError(t, err)
	assert.Equal(t, DefaultBuilderConfig(), cfg)
}

func TestTomlLoaderMergesOverFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, ".restructure.toml")
	content := `overflow_multiplier = 250
fail_on_malformed = true
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	cfg, err := NewTomlLoader().Load(tempDir)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.OverflowMultiplier)
	assert.True(t, cfg.FailOnMalformed)
	// fail_on_inconsistent and verbose were not set in the file, so they
	// keep their defaults.
	assert.False(t, cfg.FailOnInconsistent)
	assert.False(t, cfg.Verbose)
}

func TestTomlLoaderFindConfigFileWalksUp(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, ".restructure.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("verbose = true\n"), 0o644))

	nested := filepath.Join(tempDir, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	loader := NewTomlLoader()
	found := loader.FindConfigFile(nested)
	assert.Equal(t, configPath, found)

	cfg, err := loader.Load(nested)
	require.NoError(t, err)
	assert.True(t, cfg.Verbose)
}

func TestTomlLoaderNoFileAnywhere(t *testing.T) {
	tempDir := t.TempDir()
	loader := NewTomlLoader()
	assert.Equal(t, "", loader.FindConfigFile(tempDir))
}
