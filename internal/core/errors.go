package core

// errors.go maps technical errors to user-facing messages with codes for
// support reference.
//
// # Error Codes Reference
//
// File errors (FILE001-FILE099), raised while reading the upload:
//
//	FILE001 - File too large            Patterns: "file is too large", "request body too large"
//	FILE002 - Unsupported format        Patterns: "unsupported file format"
//	FILE003 - Malformed rows            Patterns: "more fields than the header", "parse error"
//	FILE004 - No file                   Patterns: "no file provided"
//	FILE005 - Empty file                Patterns: "file is empty"
//	FILE006 - Too many rows             Patterns: "too many rows"
//	FILE007 - Sheet not found           Patterns: "sheet not found"
//	FILE008 - Unreadable workbook       Patterns: "open workbook", "parquet reader"
//	FILE009 - Malformed upload form     Patterns: "multipart"
//
// Plan errors (VAL010-VAL099), raised before any stage runs:
//
//	VAL001 - Invalid stage parameters   Typed: *ops.ValidationError
//	VAL010 - Unknown stage              Patterns: "unknown stage"
//	VAL011 - Stage listed twice         Patterns: "stage listed more than once"
//	VAL012 - Step without op            Patterns: "step has no op"
//	VAL013 - Plan not decodable         Patterns: "decode plan", "decode recipe", "recipe is empty"
//	VAL014 - Plan too large             Patterns: "plan exceeds"
//
// Run errors (RUN003-RUN099):
//
//	RUN003 - System busy                Patterns: "too many concurrent runs"
//	RUN004 - Run expired                Patterns: "run not found"
//	RUN005 - Request cancelled          Patterns: "context canceled"
//	RUN006 - Request timed out          Patterns: "context deadline exceeded"
//
// Export errors (EXP001-EXP099):
//
//	EXP001 - Unsupported format         Patterns: "unsupported export format"
//	EXP002 - Invalid table name         Patterns: "invalid table name"
//	EXP003 - Sink disabled              Patterns: "database sink is not configured"
//	EXP004 - Bad sink request           Patterns: "decode sink request"
//	DB004  - Database unreachable       Patterns: "connection refused", "failed to connect"
//
// Rate limiting: RATE001 "rate limit". Fallback: ERR000.
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/prism/internal/ops"
)

var (
	// ErrTooManyRuns is returned when every run slot stays busy for the
	// whole wait. Clients should retry after a short delay.
	ErrTooManyRuns = errors.New("too many concurrent runs, please try again later")

	// ErrRunNotFound is returned for unknown or expired run IDs.
	ErrRunNotFound = errors.New("run not found")

	// ErrSinkDisabled is returned by SinkToPostgres without a database.
	ErrSinkDisabled = errors.New("database sink is not configured")

	// ErrNoFile is returned when a run request carries no input.
	ErrNoFile = errors.New("no file provided")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{"file is too large", UserMessage{"File exceeds the maximum upload size", "Split the file or drop unused columns before uploading", "FILE001"}},
	{"request body too large", UserMessage{"File exceeds the maximum upload size", "Split the file or drop unused columns before uploading", "FILE001"}},
	{"unsupported file format", UserMessage{"This file type is not supported", "Upload a .csv, .tsv, .xlsx or .parquet file", "FILE002"}},
	{"more fields than the header", UserMessage{"A row has more values than the header has columns", "Check the row named in the details for stray separators", "FILE003"}},
	{"parse error", UserMessage{"The file could not be parsed", "Save the file as UTF-8 CSV with consistent quoting", "FILE003"}},
	{"no file provided", UserMessage{"No file was selected", "Choose a file to transform", "FILE004"}},
	{"file is empty", UserMessage{"The uploaded file is empty", "Upload a file with a header row", "FILE005"}},
	{"too many rows", UserMessage{"The file has more rows than a run accepts", "Split the file into smaller parts", "FILE006"}},
	{"sheet not found", UserMessage{"The requested sheet does not exist", "Check the sheet name or leave it empty for the first sheet", "FILE007"}},
	{"open workbook", UserMessage{"The workbook could not be opened", "Re-save the file as .xlsx", "FILE008"}},
	{"parquet reader", UserMessage{"The Parquet file could not be opened", "Check that the file is a complete Parquet file", "FILE008"}},
	{"multipart", UserMessage{"The upload form could not be read", "Send the file as multipart/form-data in a field named \"file\"", "FILE009"}},

	// Plan errors
	{"unknown stage", UserMessage{"The plan names an unknown operation", "Pick operations from the catalog", "VAL010"}},
	{"stage listed more than once", UserMessage{"An operation appears twice in the plan", "Keep one entry per operation", "VAL011"}},
	{"step has no op", UserMessage{"A plan step does not name its operation", "Add an \"op\" field to every step", "VAL012"}},
	{"decode plan", UserMessage{"The plan is not valid JSON", "Check the plan syntax", "VAL013"}},
	{"decode recipe", UserMessage{"The recipe is not valid YAML", "Check the recipe syntax", "VAL013"}},
	{"recipe is empty", UserMessage{"The recipe is empty", "Add at least one step", "VAL013"}},
	{"plan exceeds", UserMessage{"The plan is too large", "Remove unused steps", "VAL014"}},

	// Run errors
	{"too many concurrent runs", UserMessage{"System is busy with other runs", "Please wait a moment and try again", "RUN003"}},
	{"run not found", UserMessage{"This run is no longer available", "Results expire after a while. Please run the plan again", "RUN004"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "RUN005"}},
	{"context deadline exceeded", UserMessage{"The run took too long", "Try a smaller file or fewer stages", "RUN006"}},

	// Export errors
	{"unsupported export format", UserMessage{"This download format is not supported", "Choose csv, json or parquet", "EXP001"}},
	{"invalid table name", UserMessage{"The table name is not allowed", "Use letters, digits and underscores, starting with a letter", "EXP002"}},
	{"database sink is not configured", UserMessage{"Saving to a database is not enabled", "Ask an administrator to set EXPORT_DATABASE_URL", "EXP003"}},
	{"decode sink request", UserMessage{"The sink request is not valid JSON", "Send {\"table\": \"name\", \"replace\": false}", "EXP004"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"failed to connect", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},

	// Rate limiting
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when nothing matches. Support staff should
// check the logs for the technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Invalid stage parameters report their own detail; everything else is
// matched against the pattern table, falling back to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ve *ops.ValidationError
	if errors.As(err, &ve) {
		code := ve.Code
		if code == "" {
			code = ops.CodeInvalidParam
		}
		return UserMessage{
			Message: ve.Error(),
			Action:  "Fix the parameters of this operation and run again",
			Code:    code,
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
