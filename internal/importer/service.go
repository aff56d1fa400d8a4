package importer

// service.go implements the import orchestrator: request validation, batch
// slicing, sequential batch writes, aggregation of run totals, and the
// status events and metrics that report progress and outcome.
//
// Event publishing and metric reporting are best-effort: both collaborators
// absorb their own delivery failures, so nothing they do can change the
// orchestrator's control flow or return value. Calling them synchronously
// (rather than on goroutines) is what preserves the ordering guarantee that
// PROGRESS events fire strictly in batch order with COMPLETED/FAILED last.

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ming0627/bellyfed-new-sub010/internal/logging"
)

// Service orchestrates import runs. All collaborators are injected so tests
// can substitute fakes; there is no package-level client state.
type Service struct {
	writer    *BatchWriter
	events    EventPublisher
	metrics   MetricReporter
	allowlist *TableAllowlist
	batchSize int

	now func() time.Time
}

// ServiceConfig carries the fixed per-run configuration.
type ServiceConfig struct {
	BatchSize  int
	MaxRetries int
	RetryDelay time.Duration
}

// NewService creates the orchestrator. Non-positive config values fall back
// to the package defaults.
func NewService(store Store, events EventPublisher, metrics MetricReporter, allowlist *TableAllowlist, cfg ServiceConfig) *Service {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Service{
		writer:    NewBatchWriter(store, cfg.MaxRetries, cfg.RetryDelay),
		events:    events,
		metrics:   metrics,
		allowlist: allowlist,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Tables returns the allow-listed table names.
func (s *Service) Tables() []string {
	return s.allowlist.Tables()
}

// Run executes one import end to end.
//
// It fails with a *ValidationError (no side effects) when the table is not
// allow-listed or the item list is empty. Otherwise it writes the items in
// order, batch by batch, emitting a PROGRESS event after each batch and a
// COMPLETED event plus outcome metrics at the end.
//
// When items remain unprocessed after per-batch retries, Run returns a
// *PartialFailureError AFTER all events and metrics have gone out, so the
// invoking infrastructure can redrive the whole import. Any other error
// mid-run emits a FAILED event and an ImportFailure metric for the original
// item count, then propagates.
func (s *Service) Run(ctx context.Context, req ImportRequest) (*RunResult, error) {
	if !s.allowlist.Contains(req.Table) {
		return nil, &ValidationError{Field: "table", Reason: "table not allowed: " + req.Table}
	}
	if len(req.Items) == 0 {
		return nil, &ValidationError{Field: "items", Reason: "items must not be empty"}
	}

	importID := req.ImportID
	if importID == "" {
		importID = uuid.NewString()
	}

	logger := logging.WithImport(ctx, importID, req.BatchID, req.TraceID).With("table", req.Table)

	totals := RunTotals{TotalItems: len(req.Items)}
	meta := WriteMeta{ImportID: importID, BatchID: req.BatchID, TraceID: req.TraceID}

	logger.Info("import started",
		"total_items", totals.TotalItems,
		"batch_size", s.batchSize,
	)

	processed := 0
	for start := 0; start < len(req.Items); start += s.batchSize {
		end := start + s.batchSize
		if end > len(req.Items) {
			end = len(req.Items)
		}
		batch := req.Items[start:end]

		outcome, err := s.writer.Write(ctx, req.Table, batch, meta)
		if err != nil {
			s.failRun(ctx, req, importID, err)
			return nil, err
		}

		totals.add(outcome)
		processed += len(batch)

		s.events.Publish(ctx, s.newEvent(EventProgress, req.TraceID, importID, ProgressPayload{
			Operation:      Operation,
			Table:          req.Table,
			BatchID:        req.BatchID,
			ImportID:       importID,
			SuccessCount:   totals.SuccessCount,
			FailureCount:   totals.FailureCount,
			RemainingItems: totals.TotalItems - processed,
		}))
	}

	s.metrics.Count(ctx, MetricImportSuccess, float64(totals.SuccessCount), req.Table)
	if totals.FailureCount > 0 {
		s.metrics.Count(ctx, MetricImportFailure, float64(totals.FailureCount), req.Table)
	}
	s.metrics.Count(ctx, MetricTotalRecordsImported, float64(totals.SuccessCount), req.Table)
	// TODO: time the run and report it here instead of the fixed zero.
	s.metrics.Count(ctx, MetricImportLatency, 0, req.Table)

	status := StatusSuccess
	if totals.FailureCount > 0 {
		status = StatusFailed
	}
	s.events.Publish(ctx, s.newEvent(EventCompleted, req.TraceID, importID, CompletedPayload{
		Operation:    Operation,
		Table:        req.Table,
		BatchID:      req.BatchID,
		ImportID:     importID,
		Status:       status,
		TotalItems:   totals.TotalItems,
		SuccessCount: totals.SuccessCount,
		FailureCount: totals.FailureCount,
	}))

	if totals.FailureCount > 0 {
		logger.Error("import completed with failures",
			"success_count", totals.SuccessCount,
			"failure_count", totals.FailureCount,
		)
		return nil, &PartialFailureError{
			ImportID: importID,
			BatchID:  req.BatchID,
			Table:    req.Table,
			Totals:   totals,
		}
	}

	logger.Info("import completed",
		"success_count", totals.SuccessCount,
		"total_items", totals.TotalItems,
	)
	return &RunResult{
		ImportID:     importID,
		BatchID:      req.BatchID,
		TotalItems:   totals.TotalItems,
		SuccessCount: totals.SuccessCount,
		FailureCount: totals.FailureCount,
	}, nil
}

// failRun emits the FAILED event and failure metric for an unexpected
// mid-run error. Counts of partially-succeeded batches are not re-derived;
// the payload carries the original total so the redrive covers everything.
func (s *Service) failRun(ctx context.Context, req ImportRequest, importID string, cause error) {
	logging.WithImport(ctx, importID, req.BatchID, req.TraceID).Error("import failed",
		"table", req.Table,
		"error", cause,
	)

	s.events.Publish(ctx, s.newEvent(EventFailed, req.TraceID, importID, FailedPayload{
		Operation:  Operation,
		Table:      req.Table,
		BatchID:    req.BatchID,
		ImportID:   importID,
		Error:      cause.Error(),
		TotalItems: len(req.Items),
	}))
	s.metrics.Count(ctx, MetricImportFailure, float64(len(req.Items)), req.Table)
}

func (s *Service) newEvent(t EventType, traceID, importID string, payload any) StatusEvent {
	return StatusEvent{
		Type:          t,
		TraceID:       traceID,
		CorrelationID: importID,
		Timestamp:     s.now().UTC(),
		Payload:       payload,
	}
}
