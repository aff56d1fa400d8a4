package importer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// ============================================================================
// Test fakes
// ============================================================================

// capturingPublisher records every published event in order.
type capturingPublisher struct {
	mu     sync.Mutex
	events []StatusEvent
}

func (p *capturingPublisher) Publish(_ context.Context, event StatusEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// capturedMetric is one reported metric.
type capturedMetric struct {
	name  string
	value float64
	table string
}

// capturingReporter records every reported metric in order.
type capturingReporter struct {
	mu      sync.Mutex
	metrics []capturedMetric
}

func (r *capturingReporter) Count(_ context.Context, name string, value float64, table string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, capturedMetric{name, value, table})
}

func (r *capturingReporter) find(name string) (capturedMetric, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.metrics {
		if m.name == name {
			return m, true
		}
	}
	return capturedMetric{}, false
}

// stubbornStore persists everything except records whose "id" equals
// rejectID, which it reports as unprocessed on every attempt.
type stubbornStore struct {
	mu       sync.Mutex
	calls    [][]Record
	rejectID string
}

func (s *stubbornStore) BatchWrite(_ context.Context, _ string, records []Record) (*BatchWriteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, records)

	res := &BatchWriteResult{}
	for _, rec := range records {
		if s.rejectID != "" && rec["id"] == s.rejectID {
			res.Unprocessed = append(res.Unprocessed, rec)
		}
	}
	return res, nil
}

func (s *stubbornStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestService(store Store, events EventPublisher, metrics MetricReporter, batchSize int) *Service {
	allow := NewTableAllowlist([]string{"restaurants-dev", "restaurants-prod"})
	return NewService(store, events, metrics, allow, ServiceConfig{
		BatchSize:  batchSize,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})
}

// ============================================================================
// Validation
// ============================================================================

func TestRun_RejectsUnknownTable(t *testing.T) {
	store := &stubbornStore{}
	events := &capturingPublisher{}
	svc := newTestService(store, events, &capturingReporter{}, 25)

	_, err := svc.Run(context.Background(), ImportRequest{
		Table: "restaurants-nope",
		Items: makeRecords("a"),
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Run() error = %v, want *ValidationError", err)
	}
	if vErr.Field != "table" {
		t.Errorf("ValidationError.Field = %q, want %q", vErr.Field, "table")
	}
	if store.callCount() != 0 {
		t.Errorf("store calls = %d, want 0 (rejection must precede any write)", store.callCount())
	}
	if len(events.events) != 0 {
		t.Errorf("events published = %d, want 0", len(events.events))
	}
}

func TestRun_RejectsEmptyItems(t *testing.T) {
	store := &stubbornStore{}
	svc := newTestService(store, &capturingPublisher{}, &capturingReporter{}, 25)

	_, err := svc.Run(context.Background(), ImportRequest{
		Table: "restaurants-dev",
		Items: nil,
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Run() error = %v, want *ValidationError", err)
	}
	if vErr.Field != "items" {
		t.Errorf("ValidationError.Field = %q, want %q", vErr.Field, "items")
	}
	if store.callCount() != 0 {
		t.Errorf("store calls = %d, want 0", store.callCount())
	}
}

// ============================================================================
// Import ID handling
// ============================================================================

func TestRun_GeneratesImportID(t *testing.T) {
	svc := newTestService(&stubbornStore{}, &capturingPublisher{}, &capturingReporter{}, 25)

	result, err := svc.Run(context.Background(), ImportRequest{
		Table:   "restaurants-dev",
		Items:   makeRecords("a"),
		BatchID: "batch-7",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.ImportID == "" {
		t.Error("ImportID was not generated")
	}
	if result.BatchID != "batch-7" {
		t.Errorf("BatchID = %q, want %q", result.BatchID, "batch-7")
	}
}

func TestRun_KeepsCallerImportID(t *testing.T) {
	store := &stubbornStore{}
	svc := newTestService(store, &capturingPublisher{}, &capturingReporter{}, 25)

	result, err := svc.Run(context.Background(), ImportRequest{
		Table:    "restaurants-dev",
		Items:    makeRecords("a"),
		ImportID: "given-id",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.ImportID != "given-id" {
		t.Errorf("ImportID = %q, want %q", result.ImportID, "given-id")
	}
	if got := store.calls[0][0]["importId"]; got != "given-id" {
		t.Errorf("stored importId = %v, want given-id", got)
	}
}

// ============================================================================
// End-to-end runs
// ============================================================================

// TestRun_EndToEndSuccess drives three items through batch size 2: two
// batches ([a,b],[c]), two PROGRESS events with remainingItems 1 then 0,
// one COMPLETED event with SUCCESS 3/0.
func TestRun_EndToEndSuccess(t *testing.T) {
	store := &stubbornStore{}
	events := &capturingPublisher{}
	reporter := &capturingReporter{}
	svc := newTestService(store, events, reporter, 2)

	result, err := svc.Run(context.Background(), ImportRequest{
		Table:   "restaurants-dev",
		Items:   makeRecords("a", "b", "c"),
		BatchID: "batch-1",
		TraceID: "trace-1",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.TotalItems != 3 || result.SuccessCount != 3 || result.FailureCount != 0 {
		t.Errorf("result = %+v, want totals {3 3 0}", result)
	}

	// Two batches in order
	if store.callCount() != 2 {
		t.Fatalf("store calls = %d, want 2", store.callCount())
	}
	if len(store.calls[0]) != 2 || len(store.calls[1]) != 1 {
		t.Errorf("batch sizes = %d,%d, want 2,1", len(store.calls[0]), len(store.calls[1]))
	}
	if store.calls[0][0]["id"] != "a" || store.calls[1][0]["id"] != "c" {
		t.Error("batches are not in request order")
	}

	// Two PROGRESS events then the COMPLETED event, strictly last
	if len(events.events) != 3 {
		t.Fatalf("events = %d, want 3", len(events.events))
	}
	for i, want := range []int{1, 0} {
		ev := events.events[i]
		if ev.Type != EventProgress {
			t.Fatalf("event %d type = %s, want %s", i, ev.Type, EventProgress)
		}
		p, ok := ev.Payload.(ProgressPayload)
		if !ok {
			t.Fatalf("event %d payload type = %T", i, ev.Payload)
		}
		if p.RemainingItems != want {
			t.Errorf("progress %d remainingItems = %d, want %d", i, p.RemainingItems, want)
		}
	}

	last := events.events[2]
	if last.Type != EventCompleted {
		t.Fatalf("last event type = %s, want %s", last.Type, EventCompleted)
	}
	c := last.Payload.(CompletedPayload)
	if c.Status != StatusSuccess || c.SuccessCount != 3 || c.FailureCount != 0 {
		t.Errorf("completed payload = %+v, want SUCCESS 3/0", c)
	}

	// Outcome metrics
	if m, ok := reporter.find(MetricImportSuccess); !ok || m.value != 3 || m.table != "restaurants-dev" {
		t.Errorf("ImportSuccess metric = %+v, ok=%v, want value 3 for restaurants-dev", m, ok)
	}
	if _, ok := reporter.find(MetricImportFailure); ok {
		t.Error("ImportFailure metric reported on a clean run")
	}
	if m, ok := reporter.find(MetricTotalRecordsImported); !ok || m.value != 3 {
		t.Errorf("TotalRecordsImported = %+v, ok=%v, want 3", m, ok)
	}
	if m, ok := reporter.find(MetricImportLatency); !ok || m.value != 0 {
		t.Errorf("ImportLatency = %+v, ok=%v, want 0", m, ok)
	}
}

// TestRun_EndToEndPartialFailure makes item c permanently unprocessed:
// COMPLETED reports FAILED 2/1, and Run errors only after all events and
// metrics are out.
func TestRun_EndToEndPartialFailure(t *testing.T) {
	store := &stubbornStore{rejectID: "c"}
	events := &capturingPublisher{}
	reporter := &capturingReporter{}
	svc := newTestService(store, events, reporter, 2)

	_, err := svc.Run(context.Background(), ImportRequest{
		Table:   "restaurants-dev",
		Items:   makeRecords("a", "b", "c"),
		BatchID: "batch-1",
		TraceID: "trace-1",
	})

	var pErr *PartialFailureError
	if !errors.As(err, &pErr) {
		t.Fatalf("Run() error = %v, want *PartialFailureError", err)
	}
	if pErr.Totals.SuccessCount != 2 || pErr.Totals.FailureCount != 1 || pErr.Totals.TotalItems != 3 {
		t.Errorf("error totals = %+v, want {3 2 1}", pErr.Totals)
	}

	last := events.events[len(events.events)-1]
	if last.Type != EventCompleted {
		t.Fatalf("last event type = %s, want %s", last.Type, EventCompleted)
	}
	c := last.Payload.(CompletedPayload)
	if c.Status != StatusFailed || c.SuccessCount != 2 || c.FailureCount != 1 {
		t.Errorf("completed payload = %+v, want FAILED 2/1", c)
	}

	if m, ok := reporter.find(MetricImportFailure); !ok || m.value != 1 {
		t.Errorf("ImportFailure = %+v, ok=%v, want 1", m, ok)
	}
	if m, ok := reporter.find(MetricImportSuccess); !ok || m.value != 2 {
		t.Errorf("ImportSuccess = %+v, ok=%v, want 2", m, ok)
	}
}

// TestRun_Conservation checks success + failure == totalItems across a mix
// of clean and throttled batches.
func TestRun_Conservation(t *testing.T) {
	store := &stubbornStore{rejectID: "e"}
	svc := newTestService(store, &capturingPublisher{}, &capturingReporter{}, 3)

	items := makeRecords("a", "b", "c", "d", "e", "f", "g")
	_, err := svc.Run(context.Background(), ImportRequest{
		Table: "restaurants-dev",
		Items: items,
	})

	var pErr *PartialFailureError
	if !errors.As(err, &pErr) {
		t.Fatalf("Run() error = %v, want *PartialFailureError", err)
	}
	got := pErr.Totals.SuccessCount + pErr.Totals.FailureCount
	if got != len(items) {
		t.Errorf("conservation violated: %d + %d != %d",
			pErr.Totals.SuccessCount, pErr.Totals.FailureCount, len(items))
	}
}

// ============================================================================
// Unexpected failure
// ============================================================================

func TestRun_UnexpectedErrorEmitsFailedEvent(t *testing.T) {
	// A cancelled context aborts the writer inside its backoff; the run
	// must emit FAILED with the original total and an ImportFailure metric
	// for the whole item count, then propagate the error.
	store := &scriptedStore{replies: []storeReply{{err: errors.New("boom")}}}
	events := &capturingPublisher{}
	reporter := &capturingReporter{}
	svc := newTestService(store, events, reporter, 25)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Run(ctx, ImportRequest{
		Table:   "restaurants-dev",
		Items:   makeRecords("a", "b", "c"),
		BatchID: "batch-1",
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}

	if len(events.events) != 1 {
		t.Fatalf("events = %d, want 1", len(events.events))
	}
	ev := events.events[0]
	if ev.Type != EventFailed {
		t.Fatalf("event type = %s, want %s", ev.Type, EventFailed)
	}
	p := ev.Payload.(FailedPayload)
	if p.TotalItems != 3 {
		t.Errorf("failed payload totalItems = %d, want the original 3", p.TotalItems)
	}
	if p.Error == "" {
		t.Error("failed payload carries no error message")
	}

	if m, ok := reporter.find(MetricImportFailure); !ok || m.value != 3 {
		t.Errorf("ImportFailure = %+v, ok=%v, want 3 (whole item count)", m, ok)
	}
}
