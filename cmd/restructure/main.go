package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "restructure",
	Short: "Recover structured control flow from a basic-block CFG",
	Long: `restructure rebuilds loops, conditionals, switches, synchronized
sections, and try/catch regions from an unstructured control-flow graph,
the way a decompiler's region-recovery pass does.

Input CFGs are read from YAML fixtures describing blocks, edges, natural
loops, and exception handlers (the bytecode-lifting and dominance passes
that would normally produce this data are out of scope).`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path (defaults to the nearest .restructure.toml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose diagnostics")
	rootCmd.PersistentFlags().Int("overflow-multiplier", 0, "Region-count overflow safety multiplier (0 uses the configured/default value)")
	rootCmd.PersistentFlags().Bool("fail-on-malformed", false, "Exit non-zero if the CFG reports malformed-input warnings")
	rootCmd.PersistentFlags().Bool("fail-on-inconsistent", false, "Exit non-zero if the CFG reports inconsistent-code warnings")

	rootCmd.AddCommand(NewAnalyzeCmd())
	rootCmd.AddCommand(NewBatchCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
