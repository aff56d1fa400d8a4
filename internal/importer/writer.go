package importer

// writer.go implements the batch writer: one bounded slice of records is
// stamped with run metadata and written through the Store, and anything the
// backend reports as unprocessed is retried with exponential backoff up to
// a fixed ceiling.
//
// The retry is an explicit loop with an attempt counter, not recursion, so
// the success/failure bookkeeping is auditable at each step. The contract
// is conservation: the returned WriteOutcome always sums to the number of
// records passed to Write, including when the retry ceiling is hit with
// successes accumulated on intermediate attempts.

import (
	"context"
	"log/slog"
	"time"
)

// Default write configuration. BatchSize matches the DynamoDB
// BatchWriteItem per-request ceiling of 25 items.
const (
	DefaultBatchSize  = 25
	DefaultMaxRetries = 3
	DefaultRetryDelay = 100 * time.Millisecond
)

// stampUpdatedAt is the record field carrying the write timestamp.
const (
	stampUpdatedAt = "updatedAt"
	stampImportID  = "importId"
	stampBatchID   = "batchId"
)

// BatchWriter writes one batch of records to a table, retrying unprocessed
// items with exponential backoff.
type BatchWriter struct {
	store      Store
	maxRetries int
	retryDelay time.Duration

	// now is swappable for deterministic stamping in tests.
	now func() time.Time
}

// NewBatchWriter creates a writer around the given store.
// Non-positive maxRetries or retryDelay fall back to the defaults.
func NewBatchWriter(store Store, maxRetries int, retryDelay time.Duration) *BatchWriter {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &BatchWriter{
		store:      store,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		now:        time.Now,
	}
}

// WriteMeta carries the run identifiers stamped onto every record.
type WriteMeta struct {
	ImportID string
	BatchID  string
	TraceID  string
}

// Write stamps and writes one batch, retrying unprocessed records with
// exponential backoff until they are all written or maxRetries is exhausted.
//
// Two failure modes are retried, sharing the attempt counter:
//
//   - the backend accepts the call but returns a subset as unprocessed:
//     only that subset is resubmitted;
//   - the call itself errors: the entire pending slice is resubmitted.
//
// Exhausting retries converts the remaining pending records into the
// failure count; it is not an error. The only error Write returns is
// context cancellation during a backoff sleep.
func (w *BatchWriter) Write(ctx context.Context, table string, batch []Record, meta WriteMeta) (WriteOutcome, error) {
	total := len(batch)
	if total == 0 {
		return WriteOutcome{}, nil
	}

	logger := slog.Default().With(
		"table", table,
		"import_id", meta.ImportID,
		"batch_id", meta.BatchID,
		"trace_id", meta.TraceID,
	)

	pending := w.stamp(batch, meta)

	for attempt := 0; ; attempt++ {
		res, err := w.store.BatchWrite(ctx, table, pending)
		if err != nil {
			if attempt >= w.maxRetries {
				logger.Error("batch write failed, retries exhausted",
					"attempt", attempt,
					"pending", len(pending),
					"error", err,
				)
				return WriteOutcome{SuccessCount: total - len(pending), FailureCount: len(pending)}, nil
			}
			logger.Warn("batch write failed, retrying entire batch",
				"attempt", attempt,
				"pending", len(pending),
				"error", err,
			)
			if err := w.backoff(ctx, attempt); err != nil {
				return WriteOutcome{SuccessCount: total - len(pending), FailureCount: len(pending)}, err
			}
			continue
		}

		unprocessed := res.Unprocessed
		if len(unprocessed) == 0 {
			return WriteOutcome{SuccessCount: total}, nil
		}

		if attempt >= w.maxRetries {
			logger.Error("unprocessed items remain, retries exhausted",
				"attempt", attempt,
				"unprocessed", len(unprocessed),
			)
			return WriteOutcome{SuccessCount: total - len(unprocessed), FailureCount: len(unprocessed)}, nil
		}

		logger.Warn("unprocessed items returned, retrying subset",
			"attempt", attempt,
			"submitted", len(pending),
			"unprocessed", len(unprocessed),
		)
		if err := w.backoff(ctx, attempt); err != nil {
			return WriteOutcome{SuccessCount: total - len(unprocessed), FailureCount: len(unprocessed)}, err
		}
		pending = unprocessed
	}
}

// stamp returns copies of the records with updatedAt, importId and batchId
// set. Stamping once up front keeps retried subsets byte-identical to the
// first attempt, which is what makes replays safe overwrites.
func (w *BatchWriter) stamp(batch []Record, meta WriteMeta) []Record {
	stampedAt := w.now().UTC().Format(time.RFC3339)
	out := make([]Record, len(batch))
	for i, rec := range batch {
		c := rec.Clone()
		c[stampUpdatedAt] = stampedAt
		c[stampImportID] = meta.ImportID
		c[stampBatchID] = meta.BatchID
		out[i] = c
	}
	return out
}

// backoff sleeps retryDelay * 2^attempt, or returns early if the context
// is cancelled. This is the pipeline's only suspension point.
func (w *BatchWriter) backoff(ctx context.Context, attempt int) error {
	delay := w.retryDelay << uint(attempt)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
