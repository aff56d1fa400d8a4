package importer

// messages.go maps internal errors to user-facing messages with stable
// codes. Clients quote the code when reporting a problem; the technical
// error stays in the server logs.
//
// Codes are grouped by category:
//
//	VAL001 - Table not allowed
//	VAL002 - Empty item list
//	IMP001 - Partial failure after retries (redrive expected)
//	IMP002 - Too many concurrent imports
//	IMP003 - Request cancelled
//	IMP004 - Request timed out
//	IMP000 - Anything else

import (
	"context"
	"errors"
	"strings"
)

// UserMessage is a client-safe rendering of an error.
type UserMessage struct {
	Message string // what happened, in plain language
	Action  string // what the caller can do about it
	Code    string // stable code for support reference
}

// MapError converts an error into its user-facing message.
func MapError(err error) UserMessage {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		switch vErr.Field {
		case "table":
			return UserMessage{
				Message: "The requested table is not in the import allow-list",
				Action:  "Check the table name against the configured allow-list",
				Code:    "VAL001",
			}
		case "items":
			return UserMessage{
				Message: "The import request contained no items",
				Action:  "Submit at least one record",
				Code:    "VAL002",
			}
		}
		return UserMessage{
			Message: "The import request is invalid",
			Action:  "Check the request payload",
			Code:    "VAL000",
		}
	}

	var pErr *PartialFailureError
	if errors.As(err, &pErr) {
		return UserMessage{
			Message: "Some items could not be written after retries",
			Action:  "The import will be redriven; no action needed unless it repeats",
			Code:    "IMP001",
		}
	}

	if errors.Is(err, ErrTooManyImports) {
		return UserMessage{
			Message: "Too many imports are running right now",
			Action:  "Wait a moment and resubmit",
			Code:    "IMP002",
		}
	}

	if errors.Is(err, context.Canceled) || containsFold(err, "context canceled") {
		return UserMessage{
			Message: "The import was cancelled",
			Action:  "Resubmit the import",
			Code:    "IMP003",
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || containsFold(err, "deadline exceeded") {
		return UserMessage{
			Message: "The import timed out",
			Action:  "Try a smaller item list or resubmit later",
			Code:    "IMP004",
		}
	}

	return UserMessage{
		Message: "The import failed unexpectedly",
		Action:  "Resubmit the import; contact support if it repeats",
		Code:    "IMP000",
	}
}

func containsFold(err error, substr string) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), substr)
}
