package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/restructure/restructure/domain"
	"github.com/restructure/restructure/internal/cfgview"
	"github.com/restructure/restructure/internal/fixture"
	"github.com/restructure/restructure/internal/region"
	"github.com/spf13/cobra"
)

// AnalyzeCommand rebuilds and dumps the region tree of a single CFG
// fixture.
type AnalyzeCommand struct {
	format string
}

// NewAnalyzeCmd creates the analyze subcommand.
func NewAnalyzeCmd() *cobra.Command {
	ac := &AnalyzeCommand{}

	cmd := &cobra.Command{
		Use:   "analyze <fixture.yaml>",
		Short: "Reconstruct structured control flow from a single CFG fixture",
		Long: `analyze reads a YAML description of one method's basic-block CFG
(blocks, edges, natural loops, and exception handlers) and prints the
reconstructed region tree: loops, if/else, switch, synchronized, and
try/catch regions, nested the way they appear in source.`,
		Args: cobra.ExactArgs(1),
		RunE: ac.run,
	}

	cmd.Flags().StringVarP(&ac.format, "format", "f", "yaml", "Output format: yaml or json")
	return cmd
}

func (ac *AnalyzeCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	f, err := fixture.Load(args[0])
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.NewFileNotFoundError(args[0], err)
		}
		return domain.NewParseError(args[0], err)
	}

	c, err := fixture.Build(f)
	if err != nil {
		return domain.NewInvalidInputError(fmt.Sprintf("invalid CFG fixture %s", args[0]), err)
	}

	b := region.NewBuilderWithLimit(c, loggerFor(cmd.Flags()), cfg.OverflowMultiplier)
	root, err := b.Build()
	if err != nil {
		return buildError(args[0], err)
	}

	for _, w := range c.Warnings() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
	}

	if err := writeDump(cmd.OutOrStdout(), fixture.Dump(root), ac.format); err != nil {
		return domain.NewOutputError("writing region dump", err)
	}

	if cfg.FailOnMalformed && containsCode(c.Warnings(), "malformed") {
		return domain.NewMalformedError(fmt.Sprintf("malformed input detected in %s", args[0]))
	}
	if cfg.FailOnInconsistent &&
		(c.Contains(cfgview.FlagInconsistentCode) || containsCode(c.Warnings(), "inconsistent")) {
		return domain.NewInconsistentError(fmt.Sprintf("inconsistent code detected in %s", args[0]))
	}
	return nil
}

// buildError maps the two error kinds Builder.Build can propagate onto
// their domain codes; anything else is a generic analysis failure.
func buildError(path string, err error) error {
	var oe *region.OverflowError
	var ie *region.InvariantError
	switch {
	case errors.As(err, &oe):
		return domain.NewOverflowError(fmt.Sprintf("region count overflow in %s", path), err)
	case errors.As(err, &ie):
		return domain.NewInvariantError(fmt.Sprintf("invariant violation in %s", path), err)
	default:
		return domain.NewAnalysisError(fmt.Sprintf("building region tree for %s", path), err)
	}
}
