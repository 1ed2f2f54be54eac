package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sonarsource/astquery/internal/tree"
)

// MustYAML parses src into a tree and fails the test on error.
func MustYAML(t testing.TB, src string) *tree.Tree {
	t.Helper()
	root, err := tree.FromYAML([]byte(src))
	require.NoError(t, err)
	return root
}

// Paths returns the paths of ts, for readable assertions.
func Paths(ts []*tree.Tree) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Path()
	}
	return out
}
