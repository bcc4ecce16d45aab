// Package config loads BuilderConfig from a dedicated dotfile: a
// directory-tree search for the nearest file, TOML via
// go-toml/v2, pointer fields so "unset" is distinguishable from "the
// zero value" when merging file/env/flag layers, and viper for the
// flag/env/file precedence itself.
package config

// DefaultOverflowMultiplier scales the region-count safety limit
// (blocksCount * 100).
const DefaultOverflowMultiplier = 100

// BuilderConfig controls the region builder's error-handling policy and
// safety limits. It does not affect recognition behavior: the builder's
// structural decisions (loop/if/switch/monitor/try-catch recognition) are
// fixed and not configurable.
type BuilderConfig struct {
	// OverflowMultiplier scales the region-count safety limit
	// (blocksCount * OverflowMultiplier). Defaults to 100; exposed only
	// so a pathological obfuscated input can be given a larger budget
	// without a code change.
	OverflowMultiplier int `mapstructure:"overflow_multiplier" yaml:"overflow_multiplier" toml:"overflow_multiplier"`

	// FailOnMalformed turns malformed-structure defects (missing handler
	// blocks, splitters without successors) from a recorded warning (the
	// default) into a hard
	// error, for callers that would rather abort than emit a best-effort
	// region tree.
	FailOnMalformed bool `mapstructure:"fail_on_malformed" yaml:"fail_on_malformed" toml:"fail_on_malformed"`

	// FailOnInconsistent does the same for INCONSISTENT_CODE (an
	// unfixable switch-fallthrough reorder).
	FailOnInconsistent bool `mapstructure:"fail_on_inconsistent" yaml:"fail_on_inconsistent" toml:"fail_on_inconsistent"`

	// Verbose is the layered verbose setting (false by default).
	// cmd/restructure switches its Logger on from the --verbose flag
	// itself and does not read this field, so a value set only in the
	// file or the environment does not enable diagnostics there.
	Verbose bool `mapstructure:"verbose" yaml:"verbose" toml:"verbose"`
}

// DefaultBuilderConfig returns the baseline configuration used when no
// config file, flag, or env var overrides it.
func DefaultBuilderConfig() *BuilderConfig {
	return &BuilderConfig{
		OverflowMultiplier: DefaultOverflowMultiplier,
		FailOnMalformed:    false,
		FailOnInconsistent: false,
		Verbose:            false,
	}
}
