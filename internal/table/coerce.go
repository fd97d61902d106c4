package table

// coerce.go converts raw strings and cells between kinds.
//
// Parsing handles the messy reality of user-provided data:
//   - Multiple date formats (US, EU, ISO, RFC3339, with or without time)
//   - Currency symbols and thousand separators in numbers
//   - Accounting negatives "(123.45)"
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Excel formula prefixes (="value")
//
// Conversions never happen implicitly: operations call Coerce and treat a
// returned error as a failure of the whole operation.

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// integerRegex validates an integer literal after cleanup.
var integerRegex = regexp.MustCompile(`^[+-]?\d+$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future are
// assumed to be in the previous century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		time.RFC3339Nano, time.RFC3339,
		"2006-01-02 15:04:05.999999999", "2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04",
		"1/2/2006 15:04:05", "1/2/2006 15:04",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "January 2, 2006", "2 Jan 2006", "2 January 2006", "02-Jan-2006",
		"20060102",
	}
)

// CoerceError describes a value that cannot be represented in a target kind.
type CoerceError struct {
	Value  string
	Target Kind
	Reason string
}

func (e *CoerceError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot convert %q to %s: %s", e.Value, e.Target, e.Reason)
	}
	return fmt.Sprintf("cannot convert %q to %s", e.Value, e.Target)
}

// cleanLiteral trims whitespace and the Excel formula wrapper ="...".
func cleanLiteral(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return s
}

// normalizeNumber strips currency symbols and thousands separators and turns
// accounting negatives into a leading minus. Returns "" if nothing is left.
func normalizeNumber(s string) string {
	s = cleanLiteral(s)
	if s == "" {
		return ""
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}
	return s
}

// ParseNumber parses a decimal number. Returns false for empty or invalid input.
func ParseNumber(s string) (float64, bool) {
	s = normalizeNumber(s)
	if s == "" {
		return 0, false
	}
	switch strings.ToLower(s) {
	case "inf", "+inf", "infinity":
		return math.Inf(1), true
	case "-inf", "-infinity":
		return math.Inf(-1), true
	}
	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseInteger parses an integer literal. Decimal points are rejected.
func ParseInteger(s string) (int64, bool) {
	s = normalizeNumber(s)
	if !integerRegex.MatchString(s) {
		return 0, false
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

// ParseBool accepts true/false, yes/no, t/f, y/n and 1/0, case-insensitively.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(cleanLiteral(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	}
	return false, false
}

// ParseTime is the best-effort calendar date/time parser.
// 4-digit year layouts are tried first because they are unambiguous.
func ParseTime(s string) (time.Time, bool) {
	s = cleanLiteral(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// ParseAs parses a raw literal into a cell of the given kind.
func ParseAs(s string, k Kind) (Cell, error) {
	return Coerce(Text(s), k)
}

// Coerce converts a cell to the target kind. Missing cells stay missing.
func Coerce(c Cell, target Kind) (Cell, error) {
	if c.IsMissing() || target == KindObject || c.Kind() == target {
		return c, nil
	}

	switch target {
	case KindText:
		return Text(c.String()), nil
	case KindInteger:
		return toInteger(c)
	case KindFloat:
		return toFloat(c)
	case KindBoolean:
		return toBoolean(c)
	case KindDatetime:
		return toDatetime(c)
	}
	return Cell{}, &CoerceError{Value: c.String(), Target: target}
}

func toInteger(c Cell) (Cell, error) {
	switch c.Kind() {
	case KindFloat:
		f, _ := c.Number()
		if math.IsInf(f, 0) || f != math.Trunc(f) {
			return Cell{}, &CoerceError{Value: c.String(), Target: KindInteger, Reason: "not a whole number"}
		}
		// 2^63 is the first float64 past MaxInt64; -2^63 is exactly MinInt64.
		if f >= 1<<63 || f < -(1<<63) {
			return Cell{}, &CoerceError{Value: c.String(), Target: KindInteger, Reason: "out of range"}
		}
		return Int(int64(f)), nil
	case KindBoolean:
		if c.b {
			return Int(1), nil
		}
		return Int(0), nil
	case KindText:
		if i, ok := ParseInteger(c.s); ok {
			return Int(i), nil
		}
	}
	return Cell{}, &CoerceError{Value: c.String(), Target: KindInteger}
}

func toFloat(c Cell) (Cell, error) {
	switch c.Kind() {
	case KindInteger:
		return Float(float64(c.i)), nil
	case KindBoolean:
		if c.b {
			return Float(1), nil
		}
		return Float(0), nil
	case KindText:
		if f, ok := ParseNumber(c.s); ok {
			return Float(f), nil
		}
	}
	return Cell{}, &CoerceError{Value: c.String(), Target: KindFloat}
}

func toBoolean(c Cell) (Cell, error) {
	switch c.Kind() {
	case KindInteger, KindFloat:
		f, _ := c.Number()
		return Bool(f != 0), nil
	case KindText:
		if b, ok := ParseBool(c.s); ok {
			return Bool(b), nil
		}
	}
	return Cell{}, &CoerceError{Value: c.String(), Target: KindBoolean}
}

func toDatetime(c Cell) (Cell, error) {
	if c.Kind() == KindText {
		if t, ok := ParseTime(c.s); ok {
			return Time(t), nil
		}
		return Cell{}, &CoerceError{Value: c.s, Target: KindDatetime, Reason: "unrecognized date format"}
	}
	return Cell{}, &CoerceError{Value: c.String(), Target: KindDatetime}
}
