// Package expr evaluates user-supplied per-cell expressions.
//
// Expressions use Go expression syntax over a single variable x. Before
// anything is evaluated the source is parsed and checked against a small
// grammar: literals, x, true/false, arithmetic, comparison and logical
// operators, parentheses, and calls to the functions in Builtins. Anything
// else (selectors, indexing, composite or function literals, conversions,
// channel operations) is rejected.
//
// Checked expressions are compiled by a yaegi interpreter that has no
// standard library loaded, only the builtin function table.
package expr

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// MaxSourceLen bounds the length of an expression.
const MaxSourceLen = 512

var ErrEmpty = errors.New("expression is empty")

// RejectError reports source that falls outside the expression grammar.
type RejectError struct {
	Offset int // byte offset into the expression, -1 if unknown
	Reason string
}

func (e *RejectError) Error() string {
	if e.Offset < 0 {
		return e.Reason
	}
	return fmt.Sprintf("at offset %d: %s", e.Offset, e.Reason)
}

var allowedBinary = map[token.Token]bool{
	token.ADD: true, token.SUB: true, token.MUL: true, token.QUO: true, token.REM: true,
	token.EQL: true, token.NEQ: true, token.LSS: true, token.LEQ: true, token.GTR: true, token.GEQ: true,
	token.LAND: true, token.LOR: true,
}

var allowedUnary = map[token.Token]bool{
	token.ADD: true, token.SUB: true, token.NOT: true,
}

// Check parses src and verifies it only uses the expression grammar.
func Check(src string) (ast.Expr, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, ErrEmpty
	}
	if len(src) > MaxSourceLen {
		return nil, &RejectError{Offset: -1, Reason: fmt.Sprintf("expression longer than %d bytes", MaxSourceLen)}
	}

	node, err := parser.ParseExpr(src)
	if err != nil {
		return nil, &RejectError{Offset: -1, Reason: err.Error()}
	}
	if err := check(node); err != nil {
		return nil, err
	}
	return node, nil
}

func reject(n ast.Node, format string, args ...any) error {
	// ParseExpr positions start at 1.
	return &RejectError{Offset: int(n.Pos()) - 1, Reason: fmt.Sprintf(format, args...)}
}

func check(n ast.Expr) error {
	switch n := n.(type) {
	case *ast.BasicLit:
		switch n.Kind {
		case token.INT, token.FLOAT, token.STRING:
			return nil
		}
		return reject(n, "literal %s is not allowed", n.Value)

	case *ast.Ident:
		switch n.Name {
		case "x", "true", "false":
			return nil
		}
		if _, ok := Builtins[n.Name]; ok {
			return reject(n, "%s must be called", n.Name)
		}
		return reject(n, "unknown name %q", n.Name)

	case *ast.ParenExpr:
		return check(n.X)

	case *ast.UnaryExpr:
		if !allowedUnary[n.Op] {
			return reject(n, "operator %s is not allowed", n.Op)
		}
		return check(n.X)

	case *ast.BinaryExpr:
		if !allowedBinary[n.Op] {
			return reject(n, "operator %s is not allowed", n.Op)
		}
		if err := check(n.X); err != nil {
			return err
		}
		return check(n.Y)

	case *ast.CallExpr:
		id, ok := n.Fun.(*ast.Ident)
		if !ok {
			return reject(n, "only builtin functions can be called")
		}
		b, ok := Builtins[id.Name]
		if !ok {
			return reject(n, "unknown function %q", id.Name)
		}
		if n.Ellipsis.IsValid() {
			return reject(n, "variadic calls are not allowed")
		}
		if len(n.Args) != b.Arity {
			return reject(n, "%s takes %d argument(s), got %d", id.Name, b.Arity, len(n.Args))
		}
		for _, arg := range n.Args {
			if err := check(arg); err != nil {
				return err
			}
		}
		return nil
	}
	return reject(n, "%s is not allowed", strings.TrimPrefix(fmt.Sprintf("%T", n), "*ast."))
}
