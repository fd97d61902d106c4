package expr

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JonMunkholm/prism/internal/table"
)

// Builtin is a function callable from expressions.
type Builtin struct {
	Name  string
	Arity int
	Usage string
	fn    any
}

// Builtins is the complete set of callable functions, keyed by name.
var Builtins = map[string]Builtin{}

func register(name string, arity int, usage string, fn any) {
	Builtins[name] = Builtin{Name: name, Arity: arity, Usage: usage, fn: fn}
}

func init() {
	register("abs", 1, "abs(x) absolute value", math.Abs)
	register("sqrt", 1, "sqrt(x) square root", math.Sqrt)
	register("pow", 2, "pow(x, y) x raised to y", math.Pow)
	register("round", 1, "round(x) nearest integer, halves to even", math.RoundToEven)
	register("floor", 1, "floor(x)", math.Floor)
	register("ceil", 1, "ceil(x)", math.Ceil)
	register("log", 1, "log(x) natural logarithm", math.Log)
	register("exp", 1, "exp(x) e raised to x", math.Exp)
	register("mod", 2, "mod(x, y) floating-point remainder", math.Mod)
	register("clamp", 3, "clamp(x, lo, hi)", clamp)
	register("upper", 1, "upper(s)", strings.ToUpper)
	register("lower", 1, "lower(s)", strings.ToLower)
	register("title", 1, "title(s) capitalizes every word", title)
	register("trim", 1, "trim(s) strips surrounding whitespace", strings.TrimSpace)
	register("contains", 2, "contains(s, sub)", strings.Contains)
	register("replace", 3, "replace(s, old, new) replaces every occurrence", strings.ReplaceAll)
	register("length", 1, "length(s) number of characters", length)
	register("str", 1, "str(v) string form of a number, string or bool", str)
	register("num", 1, "num(v) parses a string as a number", num)
}

// Names returns the builtin names in sorted order.
func Names() []string {
	names := make([]string, 0, len(Builtins))
	for name := range Builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// exportName is the symbol under which a builtin is handed to the interpreter.
func exportName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(r)) + name[size:]
}

// symbols is the only package the interpreter can see.
func symbols() map[string]reflect.Value {
	out := make(map[string]reflect.Value, len(Builtins))
	for name, b := range Builtins {
		out[exportName(name)] = reflect.ValueOf(b.fn)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func title(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if start {
				b.WriteRune(unicode.ToUpper(r))
			} else {
				b.WriteRune(unicode.ToLower(r))
			}
			start = false
		default:
			b.WriteRune(r)
			start = true
		}
	}
	return b.String()
}

func length(s string) float64 {
	return float64(utf8.RuneCountInString(s))
}

func str(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return table.FormatFloat(v)
	case bool:
		if v {
			return "True"
		}
		return "False"
	case int:
		return fmt.Sprint(v)
	}
	panic(fmt.Errorf("str: unsupported value %v", v))
}

func num(v interface{}) float64 {
	switch v := v.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case string:
		if f, ok := table.ParseNumber(v); ok {
			return f
		}
		panic(fmt.Errorf("num: %q is not a number", v))
	}
	panic(fmt.Errorf("num: unsupported value %v", v))
}
