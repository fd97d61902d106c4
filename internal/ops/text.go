package ops

import (
	"context"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JonMunkholm/prism/internal/table"
)

// specialChars matches anything that is not a word character or whitespace.
var specialChars = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// Text normalizes a text column. Selected steps always run in the order
// lowercase, strip special characters, trim, capitalize.
type Text struct {
	Column       string `json:"column" yaml:"column"`
	Lowercase    bool   `json:"lowercase,omitempty" yaml:"lowercase,omitempty"`
	StripSpecial bool   `json:"strip_special,omitempty" yaml:"strip_special,omitempty"`
	Trim         bool   `json:"trim,omitempty" yaml:"trim,omitempty"`
	Capitalize   bool   `json:"capitalize,omitempty" yaml:"capitalize,omitempty"`
}

func (Text) Name() string { return "text" }

func (p Text) Validate() error {
	if p.Column == "" {
		return invalid("column", "a column is required")
	}
	if !p.Lowercase && !p.StripSpecial && !p.Trim && !p.Capitalize {
		return invalid("lowercase", "select at least one normalization step")
	}
	return nil
}

func (p Text) normalize(s string) string {
	if p.Lowercase {
		s = strings.ToLower(s)
	}
	if p.StripSpecial {
		s = specialChars.ReplaceAllString(s, "")
	}
	if p.Trim {
		s = strings.TrimSpace(s)
	}
	if p.Capitalize {
		s = capitalize(s)
	}
	return s
}

// capitalize upper-cases the first rune and lower-cases the rest.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func (p Text) Apply(ctx context.Context, t *table.Table) (*table.Table, []Diagnostic, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	col, err := requireColumn(t, "column", p.Column)
	if err != nil {
		return nil, nil, err
	}
	if col.Kind != table.KindText && col.Kind != table.KindObject {
		return nil, nil, &ValidationError{Field: "column", Value: col.Name, Message: "text normalization needs a text column", Code: CodeColumnType}
	}

	changed := 0
	cells, err := mapCells(ctx, col, func(_ int, c table.Cell) (table.Cell, error) {
		s, ok := c.TextValue()
		if !ok {
			return c, nil
		}
		n := p.normalize(s)
		if n != s {
			changed++
		}
		return table.Text(n), nil
	})
	if err != nil {
		return nil, nil, err
	}

	out, err := t.ReplaceColumn(col.Name, col.WithCells(col.Kind, cells))
	if err != nil {
		return nil, nil, err
	}
	return out, []Diagnostic{infof(col.Name, "normalized %d cells in %q", changed, col.Name)}, nil
}
