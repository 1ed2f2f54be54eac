package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sonarsource/astquery/internal/compiler"
	"github.com/sonarsource/astquery/internal/exec"
	"github.com/sonarsource/astquery/internal/exec/greedy"
	"github.com/sonarsource/astquery/internal/invariant"
	"github.com/sonarsource/astquery/internal/ir"
	"github.com/sonarsource/astquery/internal/pipeline"
	"github.com/sonarsource/astquery/internal/tree"
)

// loadBody loads the definitions of dir and compiles name.
// Errors are ExitErrors carrying ExitCommandError.
func loadBody(dir, name string) (compiler.Body, error) {
	set, errs := compiler.LoadDir(dir, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, WrapExitError(ExitCommandError, "failed to load definitions", errs[0])
	}
	body, err := set.Body(name)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to compile pipeline", err)
	}
	return body, nil
}

// loadCode extracts the load error code of err.
func loadCode(err error) string {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return compiler.ErrCodeGeneric
}

// loadInput reads an input document. CUE files are evaluated; anything
// else is parsed as YAML, which covers JSON. "-" reads stdin.
func loadInput(path string, stdin io.Reader) (*tree.Tree, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	if filepath.Ext(path) == ".cue" {
		return tree.ParseCUE(data)
	}
	return tree.FromYAML(data)
}

// optimize builds the graph of body, runs the greedy rewrite passes on it
// and returns it together with its fingerprint.
func optimize(body compiler.Body) (g *ir.Graph, fingerprint string, err error) {
	defer invariant.Recover(&err)

	g = ir.New()
	pipeline.Consume(body(pipeline.Start[*tree.Tree](g)), "results", func(*exec.Context, any) {})
	for _, t := range greedy.New().Transformations() {
		t.Apply(g)
	}
	return g, ir.FingerprintString(g), nil
}
