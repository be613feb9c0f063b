package core

// error_messages.go maps technical errors to user-facing messages.
//
// # Error Codes Reference
//
// Errors shown to users carry a short code for support reference.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	FILE002 - Unsupported type: Only .csv and .xlsx files are accepted
//	FILE003 - Malformed: The file could not be read as a table
//	FILE004 - No file: No file was selected
//	FILE005 - Empty file: The file has no header row
//	FILE006 - Too many files: The upload holds more files than allowed
//
// # Table Errors (TBL001-TBL099)
//
//	TBL001 - Unknown column: A selected column does not exist
//	TBL002 - Not enough numeric: Charts need two numeric columns
//	TBL003 - Unknown command: The requested operation is not supported
//
// # Session Errors (SES001-SES099)
//
//	SES001 - File not found: The file is no longer in this session
//	SES002 - Session expired: The session timed out
//	SES003 - Busy: Too many files are being read right now
//	SES004 - Request cancelled
//	SES005 - Request timeout
//
// # Request Errors (REQ001)
//
//	REQ001 - Invalid request: A form or JSON payload failed validation
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the server log for the technical error.

import (
	"errors"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// sentinelMessages maps wrapped sentinel errors to user messages.
// Checked with errors.Is before the string patterns below.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrFileTooLarge, UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller parts",
		Code:    "FILE001",
	}},
	{ErrUnsupportedFormat, UserMessage{
		Message: "Unsupported file type",
		Action:  "Upload a .csv or .xlsx file",
		Code:    "FILE002",
	}},
	{ErrMalformed, UserMessage{
		Message: "The file could not be read as a table",
		Action:  "Check that every row has the same columns as the header",
		Code:    "FILE003",
	}},
	{ErrEmptyFile, UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Upload a file with a header row",
		Code:    "FILE005",
	}},
	{ErrUnknownColumn, UserMessage{
		Message: "A selected column does not exist",
		Action:  "Pick columns from the file's header",
		Code:    "TBL001",
	}},
	{ErrNotEnoughNumeric, UserMessage{
		Message: "Not enough numeric columns for visualization",
		Action:  "Keep at least two numeric columns to see a chart",
		Code:    "TBL002",
	}},
	{ErrUnknownCommand, UserMessage{
		Message: "Unsupported operation",
		Action:  "Use dedupe, fill or select",
		Code:    "TBL003",
	}},
	{ErrFileNotFound, UserMessage{
		Message: "File not found in this session",
		Action:  "Upload the file again",
		Code:    "SES001",
	}},
	{ErrSessionNotFound, UserMessage{
		Message: "Your session has expired",
		Action:  "Reload the page and upload your files again",
		Code:    "SES002",
	}},
	{ErrTooManyIngests, UserMessage{
		Message: "The server is busy reading other files",
		Action:  "Please wait a moment and try again",
		Code:    "SES003",
	}},
}

// errorPattern defines a substring to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns catch errors that did not come from this package
// (request parsing, contexts, middleware). First match wins.
var errorPatterns = []errorPattern{
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller parts",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV or Excel file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "too many files",
		msg: UserMessage{
			Message: "Too many files in one upload",
			Action:  "Upload fewer files at a time",
			Code:    "FILE006",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request is invalid",
			Action:  "Check the request parameters and try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "SES004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "SES005",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	_, err := ParseUpload(file)
//	msg := MapError(err)
//	// msg.Code == "FILE002" for "data.txt"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
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
