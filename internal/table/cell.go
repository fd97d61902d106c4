package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the declared type of a column, and the tag of a non-missing cell.
type Kind int

const (
	KindObject Kind = iota
	KindInteger
	KindFloat
	KindText
	KindBoolean
	KindDatetime
)

// String returns the name used in plans, reports and error messages.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindBoolean:
		return "boolean"
	case KindDatetime:
		return "datetime"
	default:
		return "object"
	}
}

// Numeric reports whether cells of this kind hold numbers.
func (k Kind) Numeric() bool {
	return k == KindInteger || k == KindFloat
}

// ParseKind accepts the kind names as well as the short aliases users type
// ("int", "str", "bool", ...).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer", "int64":
		return KindInteger, nil
	case "float", "float64", "double", "number":
		return KindFloat, nil
	case "str", "string", "text":
		return KindText, nil
	case "bool", "boolean":
		return KindBoolean, nil
	case "datetime", "date", "time", "timestamp":
		return KindDatetime, nil
	case "object":
		return KindObject, nil
	}
	return KindObject, fmt.Errorf("unknown type %q (use integer, float, text, boolean or datetime)", s)
}

// MarshalText lets kinds appear by name in JSON and YAML.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Cell is a single value of a table. The zero Cell is the missing marker,
// which is distinct from every representable value including "" and 0.
type Cell struct {
	valid bool
	kind  Kind
	i     int64
	f     float64
	s     string
	b     bool
	t     time.Time
}

// Missing returns the missing-value marker.
func Missing() Cell { return Cell{} }

// Int returns an integer cell.
func Int(v int64) Cell { return Cell{valid: true, kind: KindInteger, i: v} }

// Float returns a float cell. NaN is treated as missing.
func Float(v float64) Cell {
	if math.IsNaN(v) {
		return Cell{}
	}
	return Cell{valid: true, kind: KindFloat, f: v}
}

// Text returns a text cell.
func Text(v string) Cell { return Cell{valid: true, kind: KindText, s: v} }

// Bool returns a boolean cell.
func Bool(v bool) Cell { return Cell{valid: true, kind: KindBoolean, b: v} }

// Time returns a datetime cell.
func Time(v time.Time) Cell { return Cell{valid: true, kind: KindDatetime, t: v} }

// IsMissing reports whether the cell holds the missing marker.
func (c Cell) IsMissing() bool { return !c.valid }

// Kind returns the tag of a non-missing cell. Missing cells report KindObject.
func (c Cell) Kind() Kind {
	if !c.valid {
		return KindObject
	}
	return c.kind
}

// IsNumeric reports whether the cell holds an integer or a float.
func (c Cell) IsNumeric() bool {
	return c.valid && c.kind.Numeric()
}

// Number returns the cell as float64 when it is numeric.
func (c Cell) Number() (float64, bool) {
	if !c.valid {
		return 0, false
	}
	switch c.kind {
	case KindInteger:
		return float64(c.i), true
	case KindFloat:
		return c.f, true
	}
	return 0, false
}

// Integer returns the value of an integer cell.
func (c Cell) Integer() (int64, bool) {
	if !c.valid || c.kind != KindInteger {
		return 0, false
	}
	return c.i, true
}

// TextValue returns the value of a text cell.
func (c Cell) TextValue() (string, bool) {
	if !c.valid || c.kind != KindText {
		return "", false
	}
	return c.s, true
}

// BoolValue returns the value of a boolean cell.
func (c Cell) BoolValue() (bool, bool) {
	if !c.valid || c.kind != KindBoolean {
		return false, false
	}
	return c.b, true
}

// TimeValue returns the value of a datetime cell.
func (c Cell) TimeValue() (time.Time, bool) {
	if !c.valid || c.kind != KindDatetime {
		return time.Time{}, false
	}
	return c.t, true
}

// Value returns the cell as a plain Go value (nil for missing).
func (c Cell) Value() any {
	if !c.valid {
		return nil
	}
	switch c.kind {
	case KindInteger:
		return c.i
	case KindFloat:
		return c.f
	case KindBoolean:
		return c.b
	case KindDatetime:
		return c.t
	default:
		return c.s
	}
}

// String returns the string form of the cell. Missing cells stringify to "".
func (c Cell) String() string {
	if !c.valid {
		return ""
	}
	switch c.kind {
	case KindInteger:
		return strconv.FormatInt(c.i, 10)
	case KindFloat:
		return FormatFloat(c.f)
	case KindBoolean:
		if c.b {
			return "True"
		}
		return "False"
	case KindDatetime:
		return FormatTime(c.t)
	default:
		return c.s
	}
}

// Equal reports whether two cells hold the same value. Missing equals
// missing; integers and floats compare numerically.
func (c Cell) Equal(o Cell) bool {
	if !c.valid || !o.valid {
		return c.valid == o.valid
	}
	if c.kind.Numeric() && o.kind.Numeric() {
		if c.kind == KindInteger && o.kind == KindInteger {
			return c.i == o.i
		}
		a, _ := c.Number()
		b, _ := o.Number()
		return a == b
	}
	if c.kind != o.kind {
		return false
	}
	switch c.kind {
	case KindBoolean:
		return c.b == o.b
	case KindDatetime:
		return c.t.Equal(o.t)
	default:
		return c.s == o.s
	}
}

// key returns a string that is identical for Equal cells. Used for hashing
// rows. Text is length-prefixed so no value can run into the next cell's key.
func (c Cell) key() string {
	if !c.valid {
		return "\x00"
	}
	switch c.kind {
	case KindInteger:
		return "n" + strconv.FormatInt(c.i, 10)
	case KindFloat:
		if c.f == math.Trunc(c.f) && math.Abs(c.f) < 1<<53 {
			return "n" + strconv.FormatInt(int64(c.f), 10)
		}
		return "n" + strconv.FormatFloat(c.f, 'g', -1, 64)
	case KindBoolean:
		return "b" + strconv.FormatBool(c.b)
	case KindDatetime:
		return "t" + strconv.FormatInt(c.t.UnixNano(), 10)
	default:
		return "s" + strconv.Itoa(len(c.s)) + ":" + c.s
	}
}

// FormatFloat renders floats the way the export and text conversion do:
// shortest round-trip digits, always with a decimal point for finite values.
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// FormatTime renders date-only values as YYYY-MM-DD, everything else with
// the time of day.
func FormatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05.999999999")
}
