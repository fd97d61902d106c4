package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/prism/internal/table"
)

// missingTokens are the literals read as missing values.
var missingTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "<NA>": {},
}

// IsMissingToken reports whether a raw field denotes a missing value.
func IsMissingToken(s string) bool {
	_, ok := missingTokens[strings.TrimSpace(s)]
	return ok
}

var boolTokens = map[string]bool{
	"true": true, "True": true, "TRUE": true,
	"false": false, "False": false, "FALSE": false,
}

// UniqueNames cleans header names: blanks become "Unnamed: j" and repeats
// get a ".n" suffix, so "a,a,a" reads as a, a.1, a.2.
func UniqueNames(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	suffix := make(map[string]int)
	for j, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", j)
		}
		base := name
		for used[name] {
			suffix[base]++
			name = fmt.Sprintf("%s.%d", base, suffix[base])
		}
		used[name] = true
		out[j] = name
	}
	return out
}

// InferColumn types raw fields as the narrowest kind that holds every
// non-missing value: integer, then float, then boolean, then text. Dates
// stay text until converted explicitly. A column with no values is float.
func InferColumn(name string, raw []string) *table.Column {
	ints := make([]table.Cell, len(raw))
	isInt, isFloat, isBool := true, true, true
	present := 0

	for i, s := range raw {
		if IsMissingToken(s) {
			continue
		}
		present++
		v := strings.TrimSpace(s)
		if isInt {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				isInt = false
			} else {
				ints[i] = table.Int(n)
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			if _, ok := boolTokens[v]; !ok {
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			break
		}
	}

	if present == 0 {
		return table.NewColumn(name, table.KindFloat, make([]table.Cell, len(raw)))
	}
	if isInt {
		return table.NewColumn(name, table.KindInteger, ints)
	}

	cells := make([]table.Cell, len(raw))
	kind := table.KindText
	switch {
	case isFloat:
		kind = table.KindFloat
	case isBool:
		kind = table.KindBoolean
	}
	for i, s := range raw {
		if IsMissingToken(s) {
			continue
		}
		v := strings.TrimSpace(s)
		switch kind {
		case table.KindFloat:
			f, _ := strconv.ParseFloat(v, 64)
			cells[i] = table.Float(f)
		case table.KindBoolean:
			cells[i] = table.Bool(boolTokens[v])
		default:
			cells[i] = table.Text(s)
		}
	}
	return table.NewColumn(name, kind, cells)
}
