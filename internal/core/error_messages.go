package core

// error_messages.go maps technical errors to user-friendly messages with
// support codes. When users report an error, the code pins down the
// category without exposing internals.
//
// Codes are grouped by category:
//
//	FILE001-FILE099  file errors (size, type, parsing, headers)
//	VAL001-VAL099    validation errors (missing columns, bad amounts)
//	EXP001-EXP099    export errors (selection, credits, indices, format)
//	CRD001-CRD099    credit request errors (not found, already resolved)
//	TNT001/DS001     tenant / dataset lookups
//	DB001-DB099      storage errors
//	RATE001/UPL001+  transport-level throttling and cancellation

import (
	"fmt"
	"strings"
)

// UserMessage is a user-friendly error representation with a support code.
type UserMessage struct {
	Message string // What happened, in plain language
	Action  string // What the user can do about it
	Code    string // Support reference code
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error substrings (lowercase) to user
// messages. First match wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors (FILE001-FILE006)
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "This file type is not supported",
			Action:  "Upload a .csv or .xlsx file",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with consistent columns",
			Code:    "FILE003",
		},
	},
	{
		pattern: "invalid spreadsheet",
		msg: UserMessage{
			Message: "File is not a valid spreadsheet",
			Action:  "Re-save the file as .xlsx and try again",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty dataset",
		msg: UserMessage{
			Message: "The uploaded file has no data rows",
			Action:  "Upload a file with at least one data row",
			Code:    "FILE005",
		},
	},
	{
		pattern: "no headers",
		msg: UserMessage{
			Message: "The first row has no column names",
			Action:  "Add a header row naming each column",
			Code:    "FILE006",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose a file to upload",
			Code:    "FILE007",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL002)
	// =========================================================================
	{
		pattern: "missing required columns",
		msg: UserMessage{
			Message: "Required columns are missing from the file",
			Action:  "The error lists each missing column; add them and re-upload",
			Code:    "VAL001",
		},
	},
	{
		pattern: "credit amount must be a positive integer",
		msg: UserMessage{
			Message: "Credit amount must be a positive whole number",
			Action:  "Enter an amount of 1 or more",
			Code:    "VAL002",
		},
	},

	// =========================================================================
	// Export Errors (EXP001-EXP004)
	// =========================================================================
	{
		pattern: "no rows selected",
		msg: UserMessage{
			Message: "No rows were selected for export",
			Action:  "Select at least one row and try again",
			Code:    "EXP001",
		},
	},
	{
		pattern: "insufficient credits",
		msg: UserMessage{
			Message: "Not enough credits for this export",
			Action:  "Request more credits or export fewer rows",
			Code:    "EXP002",
		},
	},
	{
		pattern: "out of range",
		msg: UserMessage{
			Message: "An export selection referenced a row that does not exist",
			Action:  "Refresh the data view and re-select rows",
			Code:    "EXP003",
		},
	},
	{
		pattern: "unsupported export format",
		msg: UserMessage{
			Message: "The requested export format is not supported",
			Action:  "Choose csv or xlsx",
			Code:    "EXP004",
		},
	},

	// =========================================================================
	// Credit Request Errors (CRD001-CRD002)
	// =========================================================================
	{
		pattern: "already processed",
		msg: UserMessage{
			Message: "This credit request was already resolved",
			Action:  "File a new request if more credits are needed",
			Code:    "CRD001",
		},
	},
	{
		pattern: "credit request not found",
		msg: UserMessage{
			Message: "Credit request not found",
			Action:  "Verify the request id",
			Code:    "CRD002",
		},
	},

	// =========================================================================
	// Lookup Errors (TNT001, DS001)
	// =========================================================================
	{
		pattern: "tenant not found",
		msg: UserMessage{
			Message: "Account not found",
			Action:  "Verify the account id",
			Code:    "TNT001",
		},
	},
	{
		pattern: "dataset not found",
		msg: UserMessage{
			Message: "Dataset not found",
			Action:  "The dataset may have been deleted; refresh the list",
			Code:    "DS001",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB004)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "The database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "The database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB004",
		},
	},

	// =========================================================================
	// Throttling and Cancellation (UPL001-UPL003, RATE001)
	// =========================================================================
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "Too many uploads are in progress",
			Action:  "Please wait a moment and try again",
			Code:    "UPL001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL003",
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

// defaultMessage is returned when no pattern matches (ERR000). Support
// staff should check application logs for the original technical error
// when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. It
// searches the known patterns (case-insensitive) and returns the first
// match, or the generic ERR000 fallback.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether an error matches a known pattern and is
// safe to show to users verbatim.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
