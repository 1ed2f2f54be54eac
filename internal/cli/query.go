package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonarsource/astquery/internal/canon"
	"github.com/sonarsource/astquery/internal/pipeline"
	"github.com/sonarsource/astquery/internal/store"
	"github.com/sonarsource/astquery/internal/tree"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Database string // optional - records the run when set
}

// InputResult holds the values produced for one input.
type InputResult struct {
	Source string `json:"source"`
	Values []any  `json:"values"`
}

// QueryResult holds the result of a query command.
type QueryResult struct {
	Pipeline    string        `json:"pipeline"`
	Fingerprint string        `json:"fingerprint"`
	RunID       string        `json:"run_id,omitempty"`
	Inputs      []InputResult `json:"inputs"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <defs-dir> <pipeline> <input...>",
		Short: "Evaluate a pipeline over input documents",
		Long: `Evaluate a CUE-defined pipeline over YAML, JSON or CUE documents.

Each input is evaluated on its own. Values are printed as canonical JSON,
one per line, prefixed by their input. With --db the run and its values
are recorded in a SQLite database for later comparison.

Use - to read a YAML or JSON document from stdin.

Example:
  astq query ./defs ints doc.yaml
  astq query ./defs ints a.json b.cue --db ./runs.db
  cat doc.yaml | astq query ./defs ints - --format json`,
		Args:          cobra.MinimumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], args[1], args[2:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database recording the run")

	return cmd
}

func runQuery(opts *QueryOptions, defsDir, name string, inputs []string, cmd *cobra.Command) error {
	logger := opts.logger()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	body, err := loadBody(defsDir, name)
	if err != nil {
		return err
	}
	_, fingerprint, err := optimize(body)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build pipeline", err)
	}
	q, err := pipeline.NewQuery[*tree.Tree, any](body)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build pipeline", err)
	}
	logger.Debug("pipeline built", "pipeline", name, "fingerprint", fingerprint)

	roots := make([]*tree.Tree, len(inputs))
	for i, path := range inputs {
		if roots[i], err = loadInput(path, cmd.InOrStdin()); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load input %s", path), err)
		}
	}

	rec, err := openRecorder(ctx, opts, name, fingerprint)
	if err != nil {
		return err
	}
	defer rec.close()

	result := QueryResult{Pipeline: name, Fingerprint: fingerprint, RunID: rec.runID(), Inputs: []InputResult{}}
	for i, root := range roots {
		values, err := q.Execute(nil, root)
		if err != nil {
			rec.finish(ctx, err)
			return WrapExitError(ExitFailure, fmt.Sprintf("evaluating %s", inputs[i]), err)
		}
		if err := rec.write(ctx, i, inputs[i], values); err != nil {
			rec.finish(ctx, err)
			return WrapExitError(ExitFailure, "failed to record values", err)
		}
		logger.Debug("input evaluated", "input", inputs[i], "values", len(values))
		result.Inputs = append(result.Inputs, InputResult{Source: inputs[i], Values: values})
	}
	if err := rec.finish(ctx, nil); err != nil {
		return WrapExitError(ExitFailure, "failed to record run", err)
	}

	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if formatter.JSON() {
		return formatter.Success(canonicalResult(result))
	}
	return outputQueryText(formatter, result)
}

// canonicalResult makes every value JSON-encodable the way canon renders it.
func canonicalResult(r QueryResult) QueryResult {
	for i, in := range r.Inputs {
		values := make([]any, len(in.Values))
		for j, v := range in.Values {
			text, err := canon.Marshal(v)
			if err != nil {
				values[j] = fmt.Sprint(v)
				continue
			}
			values[j] = rawJSON(text)
		}
		r.Inputs[i].Values = values
	}
	return r
}

// rawJSON is pre-encoded JSON.
type rawJSON []byte

func (r rawJSON) MarshalJSON() ([]byte, error) { return r, nil }

func outputQueryText(f *OutputFormatter, r QueryResult) error {
	for _, in := range r.Inputs {
		for _, v := range in.Values {
			text, err := canon.MarshalString(v)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to render value", err)
			}
			fmt.Fprintf(f.Writer, "%s\t%s\n", in.Source, text)
		}
	}
	if r.RunID != "" {
		f.VerboseLog("Recorded run %s", r.RunID)
	}
	return nil
}

// recorder writes a run to the store. The zero recorder records nothing.
type recorder struct {
	st  *store.Store
	run store.Run
}

func openRecorder(ctx context.Context, opts *QueryOptions, name, fingerprint string) (*recorder, error) {
	if opts.Database == "" {
		return &recorder{}, nil
	}

	st, err := openStore(opts.Database)
	if err != nil {
		return nil, err
	}
	run, err := st.BeginRun(ctx, name, fingerprint)
	if err != nil {
		_ = st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to record run", err)
	}
	opts.logger().Info("run started", "run_id", run.ID, "seq", run.Seq, "db", opts.Database)
	return &recorder{st: st, run: run}, nil
}

func (r *recorder) runID() string { return r.run.ID }

func (r *recorder) write(ctx context.Context, input int, source string, values []any) error {
	if r.st == nil {
		return nil
	}
	return r.st.WriteInput(ctx, r.run.ID, input, source, values)
}

// finish marks the run done. Only the first call has an effect.
func (r *recorder) finish(ctx context.Context, runErr error) error {
	if r.st == nil || r.run.Status != store.StatusRunning {
		return nil
	}
	r.run.Status = store.StatusOK
	return r.st.FinishRun(ctx, r.run.ID, runErr)
}

func (r *recorder) close() {
	if r.st != nil {
		_ = r.st.Close()
	}
}
