package config

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ViperLoader layers BuilderConfig from (highest precedence first) CLI
// flags, RESTRUCTURE_* environment variables, a discovered
// .restructure.toml file, and finally DefaultBuilderConfig.
type ViperLoader struct {
	v *viper.Viper
}

// NewViperLoader creates a loader with the defaults pre-populated.
func NewViperLoader() *ViperLoader {
	v := viper.New()
	defaults := DefaultBuilderConfig()
	v.SetDefault("overflow_multiplier", defaults.OverflowMultiplier)
	v.SetDefault("fail_on_malformed", defaults.FailOnMalformed)
	v.SetDefault("fail_on_inconsistent", defaults.FailOnInconsistent)
	v.SetDefault("verbose", defaults.Verbose)

	v.SetEnvPrefix("RESTRUCTURE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return &ViperLoader{v: v}
}

// BindFlags binds the builder-related persistent flags of a cobra command
// so explicit CLI flags take precedence over env and file config.
func (l *ViperLoader) BindFlags(flags *pflag.FlagSet) error {
	for _, name := range []string{"overflow-multiplier", "fail-on-malformed", "fail-on-inconsistent", "verbose"} {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		key := strings.ReplaceAll(name, "-", "_")
		if err := l.v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// Load merges startPath itself when it names an existing file (an explicit
// --config), otherwise the nearest .restructure.toml found walking up from
// startPath (if any), then decodes the layered configuration into a
// BuilderConfig.
func (l *ViperLoader) Load(startPath string) (*BuilderConfig, error) {
	path := NewTomlLoader().FindConfigFile(startPath)
	if info, err := os.Stat(startPath); err == nil && !info.IsDir() {
		path = startPath
	}
	if path != "" {
		l.v.SetConfigFile(path)
		l.v.SetConfigType("toml")
		if err := l.v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &BuilderConfig{
		OverflowMultiplier: l.v.GetInt("overflow_multiplier"),
		FailOnMalformed:    l.v.GetBool("fail_on_malformed"),
		FailOnInconsistent: l.v.GetBool("fail_on_inconsistent"),
		Verbose:            l.v.GetBool("verbose"),
	}
	return cfg, nil
}
