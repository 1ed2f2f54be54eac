package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonarsource/astquery/internal/visual"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	NodeIDs bool
}

// ExplainResult holds the optimized graph of a pipeline.
type ExplainResult struct {
	Pipeline    string `json:"pipeline"`
	Fingerprint string `json:"fingerprint"`
	Nodes       int    `json:"nodes"`
	Mermaid     string `json:"mermaid"`
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain <defs-dir> <pipeline>",
		Short: "Print the optimized graph of a pipeline",
		Long: `Print the IR graph of a pipeline after the rewrite passes, as a
Mermaid flowchart, followed by its structural fingerprint.

Two pipelines with the same fingerprint evaluate the same graph.

Example:
  astq explain ./defs ints
  astq explain ./defs ints --ids --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NodeIDs, "ids", false, "label nodes with their ids")

	return cmd
}

func runExplain(opts *ExplainOptions, defsDir, name string, cmd *cobra.Command) error {
	body, err := loadBody(defsDir, name)
	if err != nil {
		return err
	}
	g, fingerprint, err := optimize(body)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build pipeline", err)
	}

	var mopts []visual.Option
	if opts.NodeIDs {
		mopts = append(mopts, visual.WithNodeIDs())
	}
	result := ExplainResult{
		Pipeline:    name,
		Fingerprint: fingerprint,
		Nodes:       len(g.Nodes()),
		Mermaid:     visual.Mermaid(g, mopts...),
	}
	opts.logger().Debug("pipeline explained", "pipeline", name, "nodes", result.Nodes)

	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprint(formatter.Writer, result.Mermaid)
	fmt.Fprintf(formatter.Writer, "%%%% fingerprint: %s\n", result.Fingerprint)
	return nil
}
