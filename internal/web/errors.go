package web

// errors.go provides unified error response handling for the web layer.
//
// It ensures all errors are:
//   - Logged with full technical details for debugging (server-side)
//   - Returned to clients as stable-coded JSON messages
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusCode)
//  3. Error is mapped via importer.MapError to get the client-safe message
//  4. Technical error + context is logged with request ID for correlation

import (
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ming0627/bellyfed-new-sub010/internal/importer"
)

// ErrorResponse is the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action)
// fields, plus any partial counts attached to the failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`

	// Set for partial write failures so the caller sees what landed
	// before the redrive.
	ImportID     string `json:"importId,omitempty"`
	BatchID      string `json:"batchId,omitempty"`
	TotalItems   int    `json:"totalItems,omitempty"`
	SuccessCount int    `json:"successCount,omitempty"`
	FailureCount int    `json:"failureCount,omitempty"`
}

// respondError logs the technical error server-side and writes the mapped
// client-safe JSON response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := importer.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", chimw.GetReqID(r.Context()),
	)

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}

	var pErr *importer.PartialFailureError
	if errors.As(err, &pErr) {
		resp.ImportID = pErr.ImportID
		resp.BatchID = pErr.BatchID
		resp.TotalItems = pErr.Totals.TotalItems
		resp.SuccessCount = pErr.Totals.SuccessCount
		resp.FailureCount = pErr.Totals.FailureCount
	}

	writeJSON(w, statusCode, resp)
}
