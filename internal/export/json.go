package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/JonMunkholm/prism/internal/table"
)

// WriteJSON writes t as an array of objects, one per row, with keys in
// column order. Missing cells and non-finite floats are null.
func WriteJSON(w io.Writer, t *table.Table, opts Options) error {
	bw := bufio.NewWriter(w)

	names := t.Names()
	keys := make([][]byte, len(names))
	for j, name := range names {
		k, err := json.Marshal(name)
		if err != nil {
			return fmt.Errorf("encode column name %q: %w", name, err)
		}
		keys[j] = k
	}

	index := t.Index()
	bw.WriteString("[")
	for i := 0; i < t.NumRows(); i++ {
		if i > 0 {
			bw.WriteString(",")
		}
		bw.WriteString("\n  {")
		sep := ""
		if opts.IncludeIndex {
			fmt.Fprintf(bw, "%q: %d", IndexColumn, index[i])
			sep = ", "
		}
		for j, c := range t.Row(i) {
			v, err := json.Marshal(jsonValue(c))
			if err != nil {
				return fmt.Errorf("encode row %d column %q: %w", i, names[j], err)
			}
			bw.WriteString(sep)
			bw.Write(keys[j])
			bw.WriteString(": ")
			bw.Write(v)
			sep = ", "
		}
		bw.WriteString("}")
	}
	if t.NumRows() > 0 {
		bw.WriteString("\n")
	}
	bw.WriteString("]\n")

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

func jsonValue(c table.Cell) any {
	if c.IsMissing() {
		return nil
	}
	switch c.Kind() {
	case table.KindFloat:
		f, _ := c.Number()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case table.KindDatetime:
		return c.String()
	}
	return c.Value()
}
