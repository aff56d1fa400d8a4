package importer

import "fmt"

// ValidationError indicates a request that was rejected before any write
// was attempted. It carries no partial results.
type ValidationError struct {
	Field  string // request field that failed validation
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid import request: %s: %s", e.Field, e.Reason)
}

// PartialFailureError indicates that some items remained unprocessed after
// exhausting per-batch retries. It is returned only after every batch has
// been attempted and all events and metrics have been emitted, so the
// invoking infrastructure can redrive the whole import.
type PartialFailureError struct {
	ImportID string
	BatchID  string
	Table    string
	Totals   RunTotals
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("import %s: %d of %d items failed after retries",
		e.ImportID, e.Totals.FailureCount, e.Totals.TotalItems)
}
