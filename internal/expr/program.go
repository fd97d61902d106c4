package expr

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
)

// symbolPath is the import path of the builtin table inside the interpreter.
const symbolPath = "prism/fn"

// Input is the Go type x takes inside an expression.
type Input int

const (
	NumberInput Input = iota // x is float64
	StringInput              // x is string
)

func (in Input) goType() string {
	if in == NumberInput {
		return "float64"
	}
	return "string"
}

// Program is a compiled expression. A Program is not safe for concurrent
// use.
type Program struct {
	Source string
	Input  Input

	evalNumber func(float64) interface{}
	evalString func(string) interface{}
}

// Compile checks src and compiles it for the given input type. Type errors,
// such as calling upper on a number, are reported here. ctx bounds the
// compilation.
func Compile(ctx context.Context, src string, in Input) (*Program, error) {
	if _, err := Check(src); err != nil {
		return nil, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(interp.Exports{symbolPath + "/fn": symbols()}); err != nil {
		return nil, fmt.Errorf("load builtins: %w", err)
	}
	if _, err := i.EvalWithContext(ctx, wrap(src, in)); err != nil {
		return nil, &RejectError{Offset: -1, Reason: cleanCompileError(err)}
	}
	v, err := i.EvalWithContext(ctx, "prism.Eval")
	if err != nil {
		return nil, fmt.Errorf("resolve entry point: %w", err)
	}

	p := &Program{Source: strings.TrimSpace(src), Input: in}
	var ok bool
	if in == NumberInput {
		p.evalNumber, ok = v.Interface().(func(float64) interface{})
	} else {
		p.evalString, ok = v.Interface().(func(string) interface{})
	}
	if !ok {
		return nil, fmt.Errorf("unexpected entry point type %s", v.Type())
	}
	return p, nil
}

// wrap places the expression in a package that binds every builtin to its
// lower-case name.
func wrap(src string, in Input) string {
	var b strings.Builder
	b.WriteString("package prism\n\nimport \"" + symbolPath + "\"\n\n")

	names := make([]string, 0, len(Builtins))
	for name := range Builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "var %s = fn.%s\n", name, exportName(name))
	}

	// yaegi cannot store a bare comparison or ! straight into an
	// interface{} result; the parentheses make it box the bool first.
	fmt.Fprintf(&b, "\nfunc Eval(x %s) interface{} {\n\treturn (%s)\n}\n", in.goType(), strings.TrimSpace(src))
	return b.String()
}

// cleanCompileError drops the interpreter's synthetic file positions.
func cleanCompileError(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 && strings.HasPrefix(msg, "_.go:") {
		return msg[i+2:]
	}
	return msg
}

// Eval runs the program for one input. A panic inside the expression, such
// as num on a non-numeric string, is returned as an error.
func (p *Program) Eval(x any) (v interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("%v", r)
		}
	}()

	switch p.Input {
	case NumberInput:
		f, ok := x.(float64)
		if !ok {
			return nil, fmt.Errorf("expected a number, got %T", x)
		}
		return p.evalNumber(f), nil
	default:
		s, ok := x.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", x)
		}
		return p.evalString(s), nil
	}
}
