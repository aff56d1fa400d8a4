package web

// handlers.go implements the import trigger endpoint plus the small
// operational endpoints around it.
//
// The trigger body mirrors the event envelope the pipeline is invoked with
// in production: the import parameters ride inside detail.payload, with the
// tracing identifiers alongside.

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ming0627/bellyfed-new-sub010/internal/importer"
	"github.com/ming0627/bellyfed-new-sub010/internal/logging"
)

// maxTriggerBody caps the trigger payload size (16MB).
const maxTriggerBody = 16 << 20

// triggerEnvelope is the wire format of an import trigger.
type triggerEnvelope struct {
	Detail triggerDetail `json:"detail"`
}

type triggerDetail struct {
	EventID       string         `json:"event_id"`
	TraceID       string         `json:"trace_id"`
	CorrelationID string         `json:"correlation_id"`
	Payload       triggerPayload `json:"payload"`
}

type triggerPayload struct {
	Table   string            `json:"table"`
	Items   []importer.Record `json:"items"`
	BatchID string            `json:"batchId"`
}

// handleImport runs one import end to end and returns the run summary.
//
// Status codes:
//   - 200: run completed with zero failures
//   - 400: malformed body or validation failure (nothing written)
//   - 503: no run slot available within the wait window
//   - 500: partial failure after retries, or unexpected error; the caller's
//     redrive is the recovery path
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxTriggerBody))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	var env triggerEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		s.respondError(w, r, &importer.ValidationError{Field: "body", Reason: "malformed JSON: " + err.Error()}, http.StatusBadRequest)
		return
	}

	req := importer.ImportRequest{
		Table:    env.Detail.Payload.Table,
		Items:    env.Detail.Payload.Items,
		BatchID:  env.Detail.Payload.BatchID,
		TraceID:  env.Detail.TraceID,
		ImportID: env.Detail.CorrelationID,
	}

	logger := logging.FromContext(r.Context())
	logger.Info("import triggered",
		"event_id", env.Detail.EventID,
		"table", req.Table,
		"batch_id", req.BatchID,
		"trace_id", req.TraceID,
		"items", len(req.Items),
	)

	if err := s.limiter.Acquire(r.Context()); err != nil {
		status := http.StatusServiceUnavailable
		if !errors.Is(err, importer.ErrTooManyImports) {
			status = http.StatusInternalServerError
		}
		s.respondError(w, r, err, status)
		return
	}
	defer s.limiter.Release()

	result, err := s.service.Run(r.Context(), req)
	if err != nil {
		var vErr *importer.ValidationError
		if errors.As(err, &vErr) {
			s.respondError(w, r, err, http.StatusBadRequest)
			return
		}
		// Partial failures and unexpected errors both signal the invoking
		// infrastructure to redrive the whole import.
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListTables returns the allow-listed table names.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tables": s.service.Tables(),
	})
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
