package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/prism/internal/table"
	"gopkg.in/yaml.v3"
)

// NameList is a list of names that also decodes from a single
// comma-separated string, the way users type it into a form field.
type NameList []string

// ParseNameList splits s on commas and trims each part. Empty parts are kept
// so that validation can report them.
func ParseNameList(s string) NameList {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make(NameList, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

func (l *NameList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = ParseNameList(s)
		return nil
	}
	var names []string
	if err := json.Unmarshal(b, &names); err != nil {
		return errors.New("expected a list of names or a comma-separated string")
	}
	*l = names
	return nil
}

func (l *NameList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*l = ParseNameList(node.Value)
		return nil
	}
	var names []string
	if err := node.Decode(&names); err != nil {
		return fmt.Errorf("line %d: expected a list of names or a comma-separated string", node.Line)
	}
	*l = names
	return nil
}

// Rename replaces every column name positionally.
type Rename struct {
	Names NameList `json:"names" yaml:"names"`
}

func (Rename) Name() string { return "rename" }

func (p Rename) Validate() error {
	if len(p.Names) == 0 {
		return invalid("names", "at least one name is required")
	}
	for _, n := range p.Names {
		if strings.TrimSpace(n) == "" {
			return invalid("names", "names must not be empty")
		}
	}
	return nil
}

func (p Rename) Apply(_ context.Context, t *table.Table) (*table.Table, []Diagnostic, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	if len(p.Names) != t.NumCols() {
		return nil, nil, invalid("names", "got %d names for %d columns", len(p.Names), t.NumCols())
	}
	seen := make(map[string]bool, len(p.Names))
	for _, n := range p.Names {
		if seen[n] {
			return nil, nil, &ValidationError{Field: "names", Value: n, Message: "duplicate column name", Code: CodeNameCollision}
		}
		seen[n] = true
	}

	out, err := t.Rename(p.Names)
	if err != nil {
		return nil, nil, err
	}
	return out, []Diagnostic{infof("", "renamed columns to %s", strings.Join(p.Names, ", "))}, nil
}

// DropColumns removes the named columns.
type DropColumns struct {
	Columns NameList `json:"columns" yaml:"columns"`
}

func (DropColumns) Name() string { return "drop_columns" }

func (p DropColumns) Validate() error {
	if len(p.Columns) == 0 {
		return invalid("columns", "at least one column is required")
	}
	return nil
}

func (p DropColumns) Apply(_ context.Context, t *table.Table) (*table.Table, []Diagnostic, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	for _, name := range p.Columns {
		if _, err := requireColumn(t, "columns", name); err != nil {
			return nil, nil, err
		}
	}
	out, err := t.DropColumns(p.Columns...)
	if err != nil {
		return nil, nil, &ValidationError{Field: "columns", Message: "cannot drop every column", Code: CodeInvalidParam}
	}
	return out, []Diagnostic{infof("", "dropped columns %s", strings.Join(p.Columns, ", "))}, nil
}

// ResetIndex relabels rows 0..n-1.
type ResetIndex struct{}

func (ResetIndex) Name() string { return "reset_index" }

func (ResetIndex) Validate() error { return nil }

func (ResetIndex) Apply(_ context.Context, t *table.Table) (*table.Table, []Diagnostic, error) {
	return t.ResetIndex(), []Diagnostic{infof("", "row labels reset to 0..%d", max(t.NumRows()-1, 0))}, nil
}
