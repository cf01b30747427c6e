/*
handlers.go - HTTP API handlers for the billing engine

PURPOSE:
  Exposes schedule generation via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the generator.

ENDPOINTS:
  POST /api/schedules                        Generate and archive a schedule
  GET  /api/schedules/{id}                   Retrieve an archived run
  GET  /api/policies/{locator}/schedules     List a policy's runs
  GET  /healthz                              Liveness probe

REQUEST FLOW:
  1. Parse HTTP request
  2. Build generator options from overrides
  3. Run the generator
  4. Archive the result
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed payload, unknown schedule, calendar constraint hit
  - 404: Record not found
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/warp/billing-engine/calendar"
	"github.com/warp/billing-engine/schedule"
	"github.com/warp/billing-engine/store"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Archive store.Archive
	Log     *zap.Logger

	// Now supplies the generation clock in epoch millis; overridable
	// in tests.
	Now func() int64
}

// NewHandler creates a new handler backed by the given archive.
func NewHandler(archive store.Archive, log *zap.Logger) *Handler {
	return &Handler{
		Archive: archive,
		Log:     log,
		Now:     func() int64 { return time.Now().UnixMilli() },
	}
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// GenerateSchedule runs the generator and archives the result.
// POST /api/schedules
func (h *Handler) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	var body GenerateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	opts := schedule.DefaultOptions()
	body.Options.Apply(&opts)

	now := body.NowTimestamp
	if now == 0 { now = h.Now() }

	req := body.Request.ToRequest()
	gen, err := schedule.NewGenerator(req, opts, now)
	if err != nil {
		h.writeGenerationError(w, err)
		return
	}
	result, err := gen.Generate()
	if err != nil {
		h.writeGenerationError(w, err)
		return
	}

	dto := toScheduleDTO(result)
	resultJSON, err := json.Marshal(dto)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to serialize schedule", err)
		return
	}
	requestJSON, _ := json.Marshal(body.Request)

	rec := store.Record{
		ID:            uuid.NewString(),
		PolicyLocator: body.Request.Policy.Locator,
		ScheduleName:  req.PaymentScheduleName,
		Operation:     string(req.Operation),
		RequestJSON:   string(requestJSON),
		ResultJSON:    string(resultJSON),
		CreatedAt:     time.Now().UTC(),
	}
	if err := h.Archive.SaveSchedule(r.Context(), rec); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to archive schedule", err)
		return
	}

	h.Log.Info("schedule generated",
		zap.String("record_id", rec.ID),
		zap.String("policy", rec.PolicyLocator),
		zap.String("schedule", rec.ScheduleName),
		zap.Int("installments", len(dto.Installments)),
	)

	writeJSON(w, http.StatusOK, GenerateScheduleResponse{ID: rec.ID, Schedule: dto})
}

// GetSchedule returns an archived run, result JSON included.
// GET /api/schedules/{id}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.Archive.GetSchedule(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get schedule", err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "Schedule not found", nil)
		return
	}

	var dto ScheduleDTO
	if err := json.Unmarshal([]byte(rec.ResultJSON), &dto); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to decode archived schedule", err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		RecordDTO
		Schedule ScheduleDTO `json:"schedule"`
	}{toRecordDTO(*rec), dto})
}

// ListPolicySchedules lists a policy's archived runs, newest first.
// GET /api/policies/{locator}/schedules
func (h *Handler) ListPolicySchedules(w http.ResponseWriter, r *http.Request) {
	locator := chi.URLParam(r, "locator")

	recs, err := h.Archive.ListSchedulesByPolicy(r.Context(), locator)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list schedules", err)
		return
	}

	dtos := lo.Map(recs, func(rec store.Record, _ int) RecordDTO { return toRecordDTO(rec) })
	if dtos == nil { dtos = []RecordDTO{} }
	writeJSON(w, http.StatusOK, dtos)
}

// Health is the liveness probe.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// badRequestErrors are generation failures caused by the input rather
// than the engine.
var badRequestErrors = []error{
	schedule.ErrUnrecognizedSchedule,
	calendar.ErrUnsupportedDurationUnit,
	calendar.ErrUnsupportedIncrement,
	calendar.ErrInvalidRange,
	calendar.ErrSequenceConstraint,
	calendar.ErrUnsupportedStepAdjustment,
}

func (h *Handler) writeGenerationError(w http.ResponseWriter, err error) {
	for _, sentinel := range badRequestErrors {
		if errors.Is(err, sentinel) {
			writeError(w, http.StatusBadRequest, "Cannot generate schedule", err)
			return
		}
	}
	h.Log.Error("schedule generation failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Schedule generation failed", err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
