package importer

import (
	"context"
	"time"
)

// Record is one opaque item destined for a key-value table.
// The pipeline does not validate its contents; it only stamps run metadata
// (updatedAt, importId, batchId) before writing.
type Record map[string]any

// Clone returns a shallow copy of the record.
// Stamping operates on copies so caller-owned maps are never mutated.
func (r Record) Clone() Record {
	out := make(Record, len(r)+3)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ImportRequest describes one import run.
type ImportRequest struct {
	// Table is the destination table name. Must be in the allow-list.
	Table string

	// Items is the ordered, non-empty list of records to write.
	Items []Record

	// BatchID is the caller-supplied correlation label for this invocation.
	BatchID string

	// TraceID is the propagated tracing identifier.
	TraceID string

	// ImportID threads together all events and stamped records of one run.
	// Generated when empty.
	ImportID string
}

// WriteOutcome is the result of one batch-write attempt chain.
// SuccessCount + FailureCount always equals the number of items given to
// the outermost Write call for that batch.
type WriteOutcome struct {
	SuccessCount int
	FailureCount int
}

// RunTotals aggregates write outcomes across all batches of one run.
type RunTotals struct {
	TotalItems   int `json:"totalItems"`
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`
}

// add folds one batch outcome into the totals.
func (t *RunTotals) add(o WriteOutcome) {
	t.SuccessCount += o.SuccessCount
	t.FailureCount += o.FailureCount
}

// RunResult is the synchronous return of a successful run.
type RunResult struct {
	ImportID     string `json:"importId"`
	BatchID      string `json:"batchId"`
	TotalItems   int    `json:"totalItems"`
	SuccessCount int    `json:"successCount"`
	FailureCount int    `json:"failureCount"`
}

// EventType identifies the phase a status event reports.
type EventType string

const (
	EventProgress  EventType = "RESTAURANT_IMPORT_PROGRESS"
	EventCompleted EventType = "RESTAURANT_IMPORT_COMPLETED"
	EventFailed    EventType = "RESTAURANT_IMPORT_FAILED"
)

// RunStatus is the final status carried by a COMPLETED event.
type RunStatus string

const (
	StatusSuccess RunStatus = "SUCCESS"
	StatusFailed  RunStatus = "FAILED"
)

// Operation is the operation label stamped on every event payload.
const Operation = "RESTAURANT_IMPORT"

// StatusEvent is one structured status report for an import run.
// The publisher serializes the whole event as the delivery detail.
type StatusEvent struct {
	Type          EventType `json:"event_type"`
	TraceID       string    `json:"trace_id"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
	Payload       any       `json:"payload"`
}

// ProgressPayload reports cumulative counts after one batch.
type ProgressPayload struct {
	Operation      string `json:"operation"`
	Table          string `json:"table"`
	BatchID        string `json:"batchId"`
	ImportID       string `json:"importId"`
	SuccessCount   int    `json:"successCount"`
	FailureCount   int    `json:"failureCount"`
	RemainingItems int    `json:"remainingItems"`
}

// CompletedPayload reports the final outcome of a run.
type CompletedPayload struct {
	Operation    string    `json:"operation"`
	Table        string    `json:"table"`
	BatchID      string    `json:"batchId"`
	ImportID     string    `json:"importId"`
	Status       RunStatus `json:"status"`
	TotalItems   int       `json:"totalItems"`
	SuccessCount int       `json:"successCount"`
	FailureCount int       `json:"failureCount"`
}

// FailedPayload reports an unexpected mid-run failure. TotalItems is the
// original request size; partially-succeeded batch counts are not re-derived.
type FailedPayload struct {
	Operation  string `json:"operation"`
	Table      string `json:"table"`
	BatchID    string `json:"batchId"`
	ImportID   string `json:"importId"`
	Error      string `json:"error"`
	TotalItems int    `json:"totalItems"`
}

// Metric names emitted by the orchestrator.
const (
	MetricImportSuccess        = "ImportSuccess"
	MetricImportFailure        = "ImportFailure"
	MetricTotalRecordsImported = "TotalRecordsImported"
	MetricImportLatency        = "ImportLatency"
)

// BatchWriteResult is the store's answer to one batched write call.
// Unprocessed holds the records the backend did not persist (commonly
// throughput throttling); they are candidates for retry.
type BatchWriteResult struct {
	Unprocessed []Record
}

// Store writes one bounded slice of records to a table.
// Implemented by internal/dynamo for DynamoDB and by test fakes.
type Store interface {
	BatchWrite(ctx context.Context, table string, records []Record) (*BatchWriteResult, error)
}

// EventPublisher delivers status events to the external event channel.
// Implementations are best-effort: delivery failures are logged internally
// and never surfaced to the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event StatusEvent)
}

// MetricReporter emits count metrics tagged by table name.
// Implementations are best-effort, like EventPublisher.
type MetricReporter interface {
	Count(ctx context.Context, name string, value float64, table string)
}
