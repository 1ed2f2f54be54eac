package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonarsource/astquery/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Pipeline string // optional - runs of one pipeline only
	Limit    int
}

// RunSummary describes one recorded run.
type RunSummary struct {
	ID          string `json:"id"`
	Seq         int64  `json:"seq"`
	Pipeline    string `json:"pipeline"`
	Fingerprint string `json:"fingerprint"`
	Status      string `json:"status"`
	Inputs      int    `json:"inputs"`
	Error       string `json:"error,omitempty"`
}

// DiffResult holds the comparison of two runs.
type DiffResult struct {
	Baseline    string   `json:"baseline"`
	Candidate   string   `json:"candidate"`
	SameGraph   bool     `json:"same_graph"`
	Identical   bool     `json:"identical"`
	Differences []string `json:"differences"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List the runs recorded by "astq query --db", newest first.

Examples:
  astq runs --db ./runs.db
  astq runs --db ./runs.db --pipeline ints --limit 5
  astq runs diff <baseline-id> <candidate-id> --db ./runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")
	cmd.Flags().StringVar(&opts.Pipeline, "pipeline", "", "only list runs of this pipeline")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of runs (0 lists all)")

	cmd.AddCommand(newDiffCommand(opts))
	return cmd
}

func newDiffCommand(opts *RunsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <baseline> <candidate>",
		Short: "Compare the values of two runs",
		Long: `Compare the values recorded by two runs, input by input.

Exit codes:
  0 - Both runs produced the same values
  1 - The values differ
  2 - Command error (database or run not found, etc.)`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(opts, args[0], args[1], cmd)
		},
	}
}

func openStore(path string) (*store.Store, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runList(opts *RunsOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, opts.Pipeline, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summaries := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		inputs, err := st.ReadInputs(ctx, r.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read inputs", err)
		}
		summaries = append(summaries, RunSummary{
			ID:          r.ID,
			Seq:         r.Seq,
			Pipeline:    r.Pipeline,
			Fingerprint: r.Fingerprint,
			Status:      string(r.Status),
			Inputs:      len(inputs),
			Error:       r.Error,
		})
	}

	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if formatter.JSON() {
		return formatter.Success(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(formatter.Writer, "#%d %s %s [%s] %d input(s) %s\n", s.Seq, s.ID, s.Pipeline, s.Status, s.Inputs, s.Fingerprint)
		if s.Error != "" {
			fmt.Fprintf(formatter.Writer, "  error: %s\n", s.Error)
		}
	}
	return nil
}

func runDiff(opts *RunsOptions, baseline, candidate string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	diffs, err := st.Compare(ctx, baseline, candidate)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compare runs", err)
	}
	base, err := st.ReadRun(ctx, baseline)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	cand, err := st.ReadRun(ctx, candidate)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	result := DiffResult{
		Baseline:    baseline,
		Candidate:   candidate,
		SameGraph:   base.Fingerprint == cand.Fingerprint,
		Identical:   len(diffs) == 0,
		Differences: make([]string, len(diffs)),
	}
	for i, d := range diffs {
		result.Differences[i] = d.String()
	}
	opts.logger().Debug("runs compared", "baseline", baseline, "candidate", candidate, "differences", len(diffs))

	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if formatter.JSON() {
		if err := formatter.Report(result.Identical, result); err != nil {
			return err
		}
	} else {
		if !result.SameGraph {
			fmt.Fprintf(formatter.Writer, "! graphs differ: %s vs %s\n", base.Fingerprint, cand.Fingerprint)
		}
		if result.Identical {
			fmt.Fprintln(formatter.Writer, "✓ Runs produced identical values")
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %d difference(s)\n", len(diffs))
			for _, d := range result.Differences {
				fmt.Fprintf(formatter.Writer, "  %s\n", d)
			}
		}
	}

	if !result.Identical {
		return NewExitError(ExitFailure, fmt.Sprintf("runs differ in %d result(s)", len(diffs)))
	}
	return nil
}
