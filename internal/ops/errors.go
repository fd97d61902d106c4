package ops

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/prism/internal/table"
)

// Diagnostic codes. They match the codes core.MapError hands to users.
const (
	CodeInvalidParam   = "VAL001"
	CodeColumnNotFound = "VAL002"
	CodeColumnType     = "VAL003"
	CodeNameCollision  = "VAL004"
	CodeCoercion       = "COE001"
	CodeUndefinedStat  = "STA001"
	CodeExprRejected   = "USR001"
	CodeExprFailed     = "USR002"
	CodeStageFailed    = "RUN001"
	CodeStageCancelled = "RUN002"
)

// ValidationError reports parameters that don't fit the operation or table.
// The table is left unchanged.
type ValidationError struct {
	Field   string // Parameter name
	Value   string // Offending value, if any
	Message string // Human-readable message
	Code    string // Diagnostic code, CodeInvalidParam if empty
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Value != "":
		return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: CodeInvalidParam}
}

// CoercionError reports a cell that could not be converted. The whole
// operation is aborted and the table is left unchanged.
type CoercionError struct {
	Column string
	Row    int
	Value  string
	Target table.Kind
	Err    error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("column %q row %d: cannot convert %q to %s", e.Column, e.Row, e.Value, e.Target)
}

func (e *CoercionError) Unwrap() error { return e.Err }

// UserCodeError reports a failure of a user-supplied expression, either when
// it is compiled or while it is evaluated for one cell.
type UserCodeError struct {
	Column     string
	Expression string
	Row        int // -1 when compilation failed
	Value      string
	Err        error
}

func (e *UserCodeError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("expression %q rejected: %v", e.Expression, e.Err)
	}
	return fmt.Sprintf("expression %q failed on column %q row %d (value %q): %v",
		e.Expression, e.Column, e.Row, e.Value, e.Err)
}

func (e *UserCodeError) Unwrap() error { return e.Err }

// DiagnosticFor turns an operation error into an error diagnostic with the
// matching code.
func DiagnosticFor(err error) Diagnostic {
	d := Diagnostic{Severity: SeverityError, Message: err.Error(), Code: CodeStageFailed}

	var ve *ValidationError
	var ce *CoercionError
	var ue *UserCodeError
	switch {
	case errors.As(err, &ve):
		d.Code = ve.Code
		if d.Code == "" {
			d.Code = CodeInvalidParam
		}
	case errors.As(err, &ce):
		d.Code = CodeCoercion
		d.Column = ce.Column
	case errors.As(err, &ue):
		d.Column = ue.Column
		d.Code = CodeExprFailed
		if ue.Row < 0 {
			d.Code = CodeExprRejected
		}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		d.Code = CodeStageCancelled
	case errors.Is(err, table.ErrDuplicateColumn):
		d.Code = CodeNameCollision
	case errors.Is(err, table.ErrColumnNotFound):
		d.Code = CodeColumnNotFound
	case errors.Is(err, table.ErrLengthMismatch), errors.Is(err, table.ErrNoColumns), errors.Is(err, table.ErrEmptyColumnName):
		d.Code = CodeInvalidParam
	}
	return d
}
