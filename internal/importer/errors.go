package importer

// errors.go defines the typed error values the pipeline returns at stage
// boundaries, plus the mapping from technical errors to user-friendly
// messages with support codes.
//
// Error codes are grouped by category:
//
//	SRC001 - Empty source: the file has no data rows
//	SRC002 - Unsupported format: the file is not parseable CSV
//	SRC003 - Source too large: the file exceeds the size ceiling
//	SES001 - Illegal transition: the requested step is not reachable
//	SES002 - No valid records: nothing to submit after validation
//	SES003 - Session not found or expired
//	SES004 - Too many sessions in progress
//	SUB001 - Batch submission failure (transport or downstream)
//	SUB002 - Ambiguous downstream error report
//	ERR000 - Fallback for unrecognized errors
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

// Input errors: fatal to the current session attempt, no retry.
var (
	ErrEmptySource       = errors.New("empty source: no data rows")
	ErrUnsupportedFormat = errors.New("unsupported format: expected CSV")
	ErrSourceTooLarge    = errors.New("source too large")
)

// Session errors.
var (
	ErrNoValidRecords  = errors.New("no valid records to submit")
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many concurrent import sessions, please try again later")
)

// ErrAmbiguousBatchErrors signals that the downstream response reported
// failures but its error list length does not match the failed count, so
// per-record messages cannot be attributed without guessing.
var ErrAmbiguousBatchErrors = errors.New("downstream error report is ambiguous")

// TransitionError is returned when a session command is not legal in the
// session's current state.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transition from %s to %s", e.From, e.To)
}

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "empty source",
		msg: UserMessage{
			Message: "The uploaded file has no data rows",
			Action:  "Upload a CSV file with at least one row below the header",
			Code:    "SRC001",
		},
	},
	{
		pattern: "unsupported format",
		msg: UserMessage{
			Message: "The file could not be read as CSV",
			Action:  "Upload a .csv file with comma-separated values",
			Code:    "SRC002",
		},
	},
	{
		pattern: "source too large",
		msg: UserMessage{
			Message: "The file exceeds the maximum allowed size",
			Action:  "Split the file into smaller chunks and import them separately",
			Code:    "SRC003",
		},
	},
	{
		pattern: "illegal transition",
		msg: UserMessage{
			Message: "That step is not available right now",
			Action:  "Complete the current step first, or reset the import",
			Code:    "SES001",
		},
	},
	{
		pattern: "no valid records",
		msg: UserMessage{
			Message: "No rows passed validation, so there is nothing to submit",
			Action:  "Fix the reported row errors and upload the file again",
			Code:    "SES002",
		},
	},
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "The import session has expired or does not exist",
			Action:  "Start a new import",
			Code:    "SES003",
		},
	},
	{
		pattern: "too many concurrent import sessions",
		msg: UserMessage{
			Message: "Too many imports are in progress",
			Action:  "Please wait a moment and try again",
			Code:    "SES004",
		},
	},
	{
		pattern: "ambiguous",
		msg: UserMessage{
			Message: "The record service reported failures it could not attribute to rows",
			Action:  "Download the error report and retry the affected rows",
			Code:    "SUB002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The import was cancelled",
			Action:  "Start a new import when ready",
			Code:    "SUB001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The record service took too long to respond",
			Action:  "Try again, or import a smaller file",
			Code:    "SUB001",
		},
	},
}

// MapError converts a technical error into a user-friendly message.
// Unrecognized errors map to the ERR000 fallback; the technical detail is
// still logged server-side by the caller.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	lower := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(lower, p.pattern) {
			return p.msg
		}
	}

	return UserMessage{
		Message: "An unexpected error occurred",
		Action:  "Please try again or contact support with the error code",
		Code:    "ERR000",
	}
}
