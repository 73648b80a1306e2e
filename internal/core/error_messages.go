package core

// error_messages.go maps errors to user-facing messages with support codes.
//
// Codes by category:
//
//	REC001  Record not found
//	VAL001  Validation failed
//	VAL002  Invalid search column
//	VAL003  Malformed request body
//	IMP001  Import source unavailable
//	IMP002  Import data malformed
//	IMP003  Too many concurrent imports
//	DB001   Duplicate key
//	DB002   Connection refused
//	DB003   Connection reset
//	DB004   Timeout
//	DB005   Deadlock
//	RATE001 Rate limited
//	ERR000  Unknown error
//
// Typed errors are matched first. Anything else falls through to
// case-insensitive substring patterns; the first match wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

var (
	msgNotFound = UserMessage{
		Message: "Record not found",
		Action:  "Check the record id",
		Code:    "REC001",
	}
	msgValidation = UserMessage{
		Message: "The request contains invalid values",
		Action:  "Correct the listed fields and try again",
		Code:    "VAL001",
	}
	msgInvalidColumn = UserMessage{
		Message: "Unknown search column",
		Action:  "Search by one of the record attributes",
		Code:    "VAL002",
	}
	msgMalformedBody = UserMessage{
		Message: "Request body is not valid JSON",
		Action:  "Send a JSON object",
		Code:    "VAL003",
	}
	msgFetch = UserMessage{
		Message: "The import source could not be read",
		Action:  "Please try again later",
		Code:    "IMP001",
	}
	msgMapping = UserMessage{
		Message: "The import source returned unexpected data",
		Action:  "Check the import source format",
		Code:    "IMP002",
	}
	msgTooManyImports = UserMessage{
		Message: "Another import is already running",
		Action:  "Please wait a moment and try again",
		Code:    "IMP003",
	}
)

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// Specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Please try again",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB003",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB004",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB004",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB005",
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

// defaultMessage is returned when nothing matches (ERR000). Check the
// application logs for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
//
//	msg := MapError(&NotFoundError{ID: 7})
//	// msg.Code == "REC001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		validationErr *ValidationError
		columnErr     *InvalidColumnError
		fetchErr      *FetchError
		mappingErr    *MappingError
	)
	switch {
	case errors.Is(err, ErrNotFound):
		return msgNotFound
	case errors.As(err, &validationErr):
		return msgValidation
	case errors.As(err, &columnErr):
		return msgInvalidColumn
	case errors.Is(err, ErrMalformedBody):
		return msgMalformedBody
	case errors.Is(err, ErrTooManyImports):
		return msgTooManyImports
	case errors.As(err, &mappingErr):
		return msgMapping
	case errors.As(err, &fetchErr):
		return msgFetch
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders an error as "Message (Code: XXX). Action".
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
