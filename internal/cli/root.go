// Package cli wires the detector pipeline to a cobra command realizing
// spec.md §6's command invocation contract.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arl/conflictscout/internal/detector"
	"github.com/arl/conflictscout/internal/model"
	"github.com/arl/conflictscout/internal/srcxml"
)

// NewRootCommand builds the conflictscout command:
//
//	conflictscout <source_path> <mainline_rev> <branch_a_base>-<branch_a_head> [...]
func NewRootCommand() *cobra.Command {
	cfg := detector.DefaultConfig()
	var (
		dataDir     string
		srcmlPath   string
		srcmlTimout time.Duration
		srcmlRetry  int
		enableStats bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "conflictscout <source_path> <mainline_rev> <branch_base>-<branch_head>...",
		Short: "Find potential higher-order merge conflicts across branches",
		Long: `conflictscout builds a lexical call graph over a C/C++ repository's
mainline and reports, for every pair of units changed on different
branches, the earliest common caller reachable within a bounded
number of hops. At least one branch argument must be supplied.`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}

			cfg.SrcPath = args[0]
			cfg.Mainline = args[1]
			branches, err := parseBranchArgs(args[2:])
			if err != nil {
				return err
			}
			cfg.Branches = branches

			if dataDir == "" {
				dataDir = filepath.Join(cfg.SrcPath, ".conflictscout")
			}
			cfg.DataDir = dataDir

			cfg.SrcmlOptions.SrcmlPath = srcmlPath
			cfg.SrcmlOptions.Timeout = srcmlTimout
			cfg.SrcmlOptions.Retries = srcmlRetry
			cfg.EnableStats = enableStats

			result, err := detector.New().Run(cmd.Context(), cfg)
			if err != nil {
				return errors.Wrap(err, "detector run")
			}

			if result.Stats != nil {
				logrus.WithFields(logrus.Fields{
					"rows":                result.Stats.Rows,
					"nnz":                 result.Stats.NNZ,
					"connected_components": result.Stats.ConnectedComponents,
					"largest_components":  result.Stats.LargestComponentSizes,
				}).Info("call graph statistics")
			}

			return writeResults(cfg.SrcPath, cfg.MaxTransitiveIncludeLevel, result.Result)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&dataDir, "data-dir", "", "directory for persisted indexer state (default: <source_path>/.conflictscout)")
	flags.IntVar(&cfg.MaxTransitiveIncludeLevel, "max-transitive-include-level", cfg.MaxTransitiveIncludeLevel, "bound on transitive #include depth considered when building call-graph edges")
	flags.IntVar(&cfg.MaxPathLength, "max-path-length", cfg.MaxPathLength, "bound on hops searched for a common caller")
	flags.StringVar(&srcmlPath, "srcml-path", srcxml.DefaultOptions().SrcmlPath, "path to the srcml executable")
	flags.DurationVar(&srcmlTimout, "srcml-timeout", srcxml.DefaultOptions().Timeout, "per-file srcml timeout")
	flags.IntVar(&srcmlRetry, "srcml-retries", srcxml.DefaultOptions().Retries, "srcml retry attempts on transient failure")
	flags.BoolVar(&enableStats, "stats", false, "log call graph connectivity statistics")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

// parseBranchArgs splits each "base-head" argument, per spec.md §6.
// Revisions are assumed not to themselves contain "-"; the split uses
// the first separator, consistent with short SHAs and simple branch
// names.
func parseBranchArgs(args []string) ([]model.BranchRevision, error) {
	branches := make([]model.BranchRevision, 0, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, "-", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid branch argument %q, want <base>-<head>", arg)
		}
		branches = append(branches, model.BranchRevision{Base: parts[0], Head: parts[1]})
	}
	return branches, nil
}

// writeResults writes the two result JSON files of spec.md §6, both
// derived from the same sorted result so their orderings agree. <K> in
// the filenames is MAX_TRANSITIVE_INCLUDE_LEVEL, not MAX_PATH_LENGTH.
func writeResults(srcPath string, maxTransitiveIncludeLevel int, result *model.Result) error {
	fullName := fmt.Sprintf("potential_conflicts_transitive_%d.json", maxTransitiveIncludeLevel)
	minimalName := fmt.Sprintf("potential_conflicts_transitive_%d_minimal.json", maxTransitiveIncludeLevel)

	if err := writeJSON(filepath.Join(srcPath, fullName), result); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(srcPath, minimalName), result.Minimal()); err != nil {
		return err
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encoding %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
