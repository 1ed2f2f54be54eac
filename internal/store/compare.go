package store

import (
	"context"
	"fmt"
)

// Difference is one result that differs between two runs. An empty Want
// or Got means the result is missing on that side.
type Difference struct {
	Input int
	Seq   int
	Want  string
	Got   string
}

func (d Difference) String() string {
	return fmt.Sprintf("input %d result %d: want %s, got %s", d.Input, d.Seq, orMissing(d.Want), orMissing(d.Got))
}

func orMissing(s string) string {
	if s == "" {
		return "<missing>"
	}
	return s
}

// Compare reports the results of candidate that differ from baseline.
// Both runs must exist. Results are compared as canonical JSON, so equal
// values always compare equal.
//
// Returns an empty slice (not nil) when the runs agree.
func (s *Store) Compare(ctx context.Context, baseline, candidate string) ([]Difference, error) {
	for _, id := range []string{baseline, candidate} {
		if _, err := s.ReadRun(ctx, id); err != nil {
			return nil, fmt.Errorf("compare: %w", err)
		}
	}

	want, err := s.ReadResults(ctx, baseline)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	got, err := s.ReadResults(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}

	type key struct{ input, seq int }
	index := make(map[key]string, len(got))
	for _, r := range got {
		index[key{r.Input, r.Seq}] = r.Value
	}

	diffs := []Difference{}
	for _, w := range want {
		k := key{w.Input, w.Seq}
		g, ok := index[k]
		delete(index, k)
		if ok && g == w.Value {
			continue
		}
		diffs = append(diffs, Difference{Input: w.Input, Seq: w.Seq, Want: w.Value, Got: g})
	}
	// Results only the candidate has, in result order.
	for _, r := range got {
		if v, ok := index[key{r.Input, r.Seq}]; ok {
			diffs = append(diffs, Difference{Input: r.Input, Seq: r.Seq, Got: v})
		}
	}
	return diffs, nil
}
