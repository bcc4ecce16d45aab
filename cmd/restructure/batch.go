package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/restructure/restructure/internal/config"
	"github.com/restructure/restructure/internal/fixture"
	"github.com/restructure/restructure/internal/region"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/term"
)

// BatchCommand rebuilds the region tree for every fixture matched by a
// glob pattern, reporting a summary rather than each file's dump.
type BatchCommand struct {
	pattern string
	quiet   bool
}

// NewBatchCmd creates the batch subcommand.
func NewBatchCmd() *cobra.Command {
	bc := &BatchCommand{}

	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Rebuild region trees for every fixture under a directory",
		Long: `batch glob-expands a directory of CFG fixtures (doublestar patterns,
default **/*.cfg.yaml) and runs the region builder over each one,
reporting a pass/fail/warning summary. A malformed fixture does not abort
the run; its failure is recorded and the batch continues.`,
		Args: cobra.ExactArgs(1),
		RunE: bc.run,
	}

	cmd.Flags().StringVarP(&bc.pattern, "pattern", "p", "**/*.cfg.yaml", "Doublestar glob pattern, relative to <dir>")
	cmd.Flags().BoolVarP(&bc.quiet, "quiet", "q", false, "Suppress the progress bar and per-file output")
	return cmd
}

// fileResult is one fixture's outcome.
type fileResult struct {
	path     string
	warnings int
	err      error
}

func (bc *BatchCommand) run(cmd *cobra.Command, args []string) error {
	root := args[0]
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := loggerFor(cmd.Flags())

	matches, err := doublestar.Glob(os.DirFS(root), bc.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return fmt.Errorf("expanding pattern %q under %s: %w", bc.pattern, root, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no fixtures matched %q under %s", bc.pattern, root)
	}

	bar := bc.newProgressBar(cmd, len(matches))

	var combined error
	results := make([]fileResult, 0, len(matches))
	for _, rel := range matches {
		path := filepath.Join(root, rel)
		res := bc.runOne(cfg, logger, path)
		if res.err != nil {
			combined = multierr.Append(combined, fmt.Errorf("%s: %w", path, res.err))
		}
		results = append(results, res)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	bc.printSummary(cmd, results)

	if combined != nil && cfg.FailOnMalformed {
		return combined
	}
	return nil
}

// runOne builds one fixture's CFG and region tree, reporting its warning
// count rather than aborting the batch on a single bad file.
func (bc *BatchCommand) runOne(cfg *config.BuilderConfig, logger cliLogger, path string) fileResult {
	f, err := fixture.Load(path)
	if err != nil {
		return fileResult{path: path, err: err}
	}
	c, err := fixture.Build(f)
	if err != nil {
		return fileResult{path: path, err: err}
	}

	b := region.NewBuilderWithLimit(c, logger, cfg.OverflowMultiplier)
	if _, err := b.Build(); err != nil {
		return fileResult{path: path, err: err}
	}

	return fileResult{path: path, warnings: len(c.Warnings())}
}

func (bc *BatchCommand) newProgressBar(cmd *cobra.Command, total int) *progressbar.ProgressBar {
	if bc.quiet {
		return nil
	}
	if !term.IsTerminal(int(os.Stderr.Fd())) || os.Getenv("CI") != "" {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("restructuring"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(cmd.ErrOrStderr()) }),
	)
}

func (bc *BatchCommand) printSummary(cmd *cobra.Command, results []fileResult) {
	var ok, failed, warned int
	for _, r := range results {
		switch {
		case r.err != nil:
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %v\n", r.path, r.err)
		case r.warnings > 0:
			warned++
			ok++
		default:
			ok++
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d fixtures: %d built, %d with warnings, %d failed\n",
		len(results), ok, warned, failed)
}
