package ops

import (
	"context"

	"github.com/JonMunkholm/prism/internal/table"
)

// Dedupe drops rows that repeat an earlier row, keeping the first
// occurrence. Columns limits the comparison to a subset; empty means all.
type Dedupe struct {
	Columns NameList `json:"columns,omitempty" yaml:"columns,omitempty"`
}

func (Dedupe) Name() string { return "dedupe" }

func (Dedupe) Validate() error { return nil }

func (p Dedupe) Apply(ctx context.Context, t *table.Table) (*table.Table, []Diagnostic, error) {
	var subset []int
	if len(p.Columns) > 0 {
		pos := make(map[string]int, t.NumCols())
		for i, name := range t.Names() {
			pos[name] = i
		}
		for _, name := range p.Columns {
			if _, err := requireColumn(t, "columns", name); err != nil {
				return nil, nil, err
			}
			subset = append(subset, pos[name])
		}
	}

	seen := make(map[string]struct{}, t.NumRows())
	keep := make([]int, 0, t.NumRows())
	for row := 0; row < t.NumRows(); row++ {
		if err := checkContext(ctx, row); err != nil {
			return nil, nil, err
		}
		key := t.RowKey(row, subset)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, row)
	}

	out := t.SelectRows(keep)
	return out, []Diagnostic{infof("", "removed %d duplicate rows", t.NumRows()-out.NumRows())}, nil
}
