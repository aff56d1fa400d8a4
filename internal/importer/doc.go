// Package importer provides the business logic for bulk restaurant-data
// imports.
//
// This package is the heart of the import service, containing all domain
// logic independent of any transport or AWS SDK type. It can be driven by
// web handlers, CLI tools, or tests without modification.
//
// # Architecture
//
// The package is organized around four collaborators:
//
//   - [Service]: the orchestrator. Validates the request, slices items
//     into batches, drives the batch writer sequentially, aggregates run
//     totals, and decides the final status.
//   - [BatchWriter]: writes one bounded batch through a [Store], retrying
//     unprocessed records with exponential backoff up to a fixed ceiling.
//   - [EventPublisher]: emits PROGRESS/COMPLETED/FAILED status events to
//     the external event channel, best-effort.
//   - [MetricReporter]: emits count metrics dimensioned by table name,
//     best-effort.
//
// Store, EventPublisher and MetricReporter are narrow interfaces injected
// through [NewService]; the AWS-backed implementations live in
// internal/dynamo, internal/events and internal/metrics.
//
// # Batch semantics
//
// Items are written strictly in order, one batch at a time; a batch's
// retries and backoff sleeps fully resolve before the next batch begins.
// Every written record is stamped with updatedAt, importId and batchId, so
// a redrive of the same logical batch overwrites with identical content
// instead of duplicating.
//
// Conservation is the writer's contract: for every batch, and for the run
// as a whole, successCount + failureCount equals the number of items
// submitted, including when the retry ceiling is hit partway through.
//
// # Error Handling
//
// Validation failures surface as [ValidationError] before any write.
// Items still unprocessed after retries surface as [PartialFailureError],
// but only after all batches have been attempted and all events and
// metrics have been emitted; the invoking infrastructure's redrive is the
// recovery path. Event and metric delivery failures are absorbed inside
// those components and never affect the run outcome.
//
// Errors are mapped to client-safe messages with stable codes via
// [MapError] (VAL* for validation, IMP* for import failures).
package importer
