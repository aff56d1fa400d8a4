package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "table not allowed",
			err:      &ValidationError{Field: "table", Reason: "table not allowed: x"},
			wantCode: "VAL001",
		},
		{
			name:     "empty items",
			err:      &ValidationError{Field: "items", Reason: "items must not be empty"},
			wantCode: "VAL002",
		},
		{
			name:     "other validation failure",
			err:      &ValidationError{Field: "body", Reason: "malformed JSON"},
			wantCode: "VAL000",
		},
		{
			name: "partial failure",
			err: &PartialFailureError{
				ImportID: "imp-1",
				Totals:   RunTotals{TotalItems: 3, SuccessCount: 2, FailureCount: 1},
			},
			wantCode: "IMP001",
		},
		{
			name:     "wrapped partial failure",
			err:      fmt.Errorf("run import: %w", &PartialFailureError{ImportID: "imp-1"}),
			wantCode: "IMP001",
		},
		{
			name:     "too many imports",
			err:      ErrTooManyImports,
			wantCode: "IMP002",
		},
		{
			name:     "cancelled",
			err:      context.Canceled,
			wantCode: "IMP003",
		},
		{
			name:     "deadline exceeded",
			err:      fmt.Errorf("write batch: %w", context.DeadlineExceeded),
			wantCode: "IMP004",
		},
		{
			name:     "unknown error",
			err:      errors.New("something else entirely"),
			wantCode: "IMP000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := MapError(tt.err)
			if msg.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, msg.Code, tt.wantCode)
			}
			if msg.Message == "" {
				t.Error("MapError returned an empty message")
			}
		})
	}
}

func TestPartialFailureError_Message(t *testing.T) {
	err := &PartialFailureError{
		ImportID: "imp-9",
		Totals:   RunTotals{TotalItems: 10, SuccessCount: 7, FailureCount: 3},
	}
	want := "import imp-9: 3 of 10 items failed after retries"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
