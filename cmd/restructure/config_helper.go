package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/restructure/restructure/domain"
	"github.com/restructure/restructure/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// containsCode reports whether any warning mentions the given substring,
// used to map CFG.Warnings() text against the --fail-on-* flags.
func containsCode(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(strings.ToLower(w), substr) {
			return true
		}
	}
	return false
}

// resolveConfig layers a .restructure.toml file (found by walking up from
// the working directory, or given explicitly via --config), RESTRUCTURE_*
// environment variables, and the command's own flags, in that precedence
// order.
func resolveConfig(cmd *cobra.Command) (*config.BuilderConfig, error) {
	configFile, _ := cmd.Flags().GetString("config")

	loader := config.NewViperLoader()
	if err := loader.BindFlags(cmd.Flags()); err != nil {
		return nil, domain.NewConfigError("binding flags", err)
	}

	start := configFile
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, domain.NewConfigError("resolving working directory", err)
		}
		start = wd
	}

	cfg, err := loader.Load(start)
	if err != nil {
		return nil, domain.NewConfigError("loading configuration", err)
	}
	return cfg, nil
}

// cliLogger adapts a verbosity flag to region.Logger, writing to stderr
// only when verbose output was requested.
type cliLogger struct {
	verbose bool
}

func (l cliLogger) Warnf(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	fmt.Fprintf(os.Stderr, "warn: "+format+"\n", args...)
}

func loggerFor(flags *pflag.FlagSet) cliLogger {
	verbose, _ := flags.GetBool("verbose")
	return cliLogger{verbose: verbose}
}
