/*
handlers.go - HTTP API handlers for the migraine context engine

PURPOSE:
  Exposes the attack log and context engine via REST. Handles HTTP
  request/response and JSON serialization; delegates everything else to
  the tracker.

ENDPOINTS:
  Attacks:
    POST   /api/attacks              Log an attack now (full linkage flow)
    GET    /api/attacks              List all attacks
    GET    /api/attacks/{id}         Get one attack
    PUT    /api/attacks/{id}         Edit an attack
    DELETE /api/attacks/{id}         Delete an attack (idempotent)

  Context:
    GET    /api/context/{day}          Cached snapshot for a day
    POST   /api/context/{day}/refresh  Aggregate and store a day on demand
    GET    /api/context                List cached days

  Reporting:
    GET    /api/report?from=&to=     Read-only report export
    GET    /api/stats                Quick-glance stats

  Scenarios:
    GET    /api/scenarios            List demo scenarios
    POST   /api/scenarios/load       Seed a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Attack or snapshot not found
  - 503: Provider unauthorized/unavailable (context refresh only)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/migraine-engine/attack"
	"github.com/warp/migraine-engine/health"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Tracker *attack.Tracker
	Gate    health.AuthorizationGate
	Logger  *slog.Logger

	// Sim is the simulated metric source scenarios seed into. Nil when
	// the server runs against a real provider; scenarios then 404.
	Sim *health.SimulatedSource

	currentScenario string
}

// NewHandler creates a new handler with the given dependencies.
func NewHandler(tracker *attack.Tracker, gate health.AuthorizationGate, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Tracker: tracker, Gate: gate, Logger: logger}
}

// =============================================================================
// ATTACK HANDLERS
// =============================================================================

// LogAttack handles POST /api/attacks - the "log attack now" flow.
func (h *Handler) LogAttack(w http.ResponseWriter, r *http.Request) {
	var req LogAttackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", err)
		return
	}

	a, err := attackFromRequest(req.ID, req.StartDate, req.EndDate, req.Severity,
		req.HasAura, req.Notes, req.Triggers)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}

	saved, err := h.Tracker.LogAttack(r.Context(), a)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toAttackDTO(saved))
}

// ListAttacks handles GET /api/attacks.
func (h *Handler) ListAttacks(w http.ResponseWriter, r *http.Request) {
	attacks, err := h.Tracker.List(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAttackDTOs(attacks))
}

// GetAttack handles GET /api/attacks/{id}.
func (h *Handler) GetAttack(w http.ResponseWriter, r *http.Request) {
	id, ok := h.attackID(w, r)
	if !ok {
		return
	}
	a, err := h.Tracker.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAttackDTO(a))
}

// UpdateAttack handles PUT /api/attacks/{id}.
func (h *Handler) UpdateAttack(w http.ResponseWriter, r *http.Request) {
	id, ok := h.attackID(w, r)
	if !ok {
		return
	}

	var req UpdateAttackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", err)
		return
	}

	idStr := id.String()
	a, err := attackFromRequest(&idStr, req.StartDate, req.EndDate, req.Severity,
		req.HasAura, req.Notes, req.Triggers)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", err)
		return
	}

	saved, err := h.Tracker.Update(r.Context(), a)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toAttackDTO(saved))
}

// DeleteAttack handles DELETE /api/attacks/{id}. Idempotent: deleting an
// unknown identity still returns 204.
func (h *Handler) DeleteAttack(w http.ResponseWriter, r *http.Request) {
	id, ok := h.attackID(w, r)
	if !ok {
		return
	}
	if err := h.Tracker.Delete(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CONTEXT HANDLERS
// =============================================================================

// GetContext handles GET /api/context/{day}.
func (h *Handler) GetContext(w http.ResponseWriter, r *http.Request) {
	day, err := health.ParseDayKey(chi.URLParam(r, "day"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_day", err)
		return
	}

	dc, err := h.Tracker.Context(r.Context(), day)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if dc == nil {
		h.writeError(w, http.StatusNotFound, "no_context",
			fmt.Errorf("no context cached for %s", day))
		return
	}
	h.writeJSON(w, http.StatusOK, toContextDTO(*dc))
}

// RefreshContext handles POST /api/context/{day}/refresh: aggregate the
// day on demand, store it, and backfill unlinked same-day attacks.
func (h *Handler) RefreshContext(w http.ResponseWriter, r *http.Request) {
	day, err := health.ParseDayKey(chi.URLParam(r, "day"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_day", err)
		return
	}

	dc, err := h.Tracker.RefreshContext(r.Context(), day)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toContextDTO(dc))
}

// ListContextDays handles GET /api/context.
func (h *Handler) ListContextDays(w http.ResponseWriter, r *http.Request) {
	days, err := h.Tracker.ContextDays(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.String()
	}
	h.writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// REPORTING HANDLERS
// =============================================================================

// GetReport handles GET /api/report?from=YYYY-MM-DD&to=YYYY-MM-DD.
// Defaults to the trailing 30 days.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)

	if s := r.URL.Query().Get("from"); s != "" {
		day, err := health.ParseDayKey(s)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_from", err)
			return
		}
		from = day.Window().Start
	}
	if s := r.URL.Query().Get("to"); s != "" {
		day, err := health.ParseDayKey(s)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_to", err)
			return
		}
		to = day.Window().End.Add(-time.Nanosecond) // inclusive end of day
	}

	summary, err := h.Tracker.ReportSummary(r.Context(), from, to)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dto := ReportDTO{
		From:         summary.From.Format(time.RFC3339),
		To:           summary.To.Format(time.RFC3339),
		Attacks:      toAttackDTOs(summary.Attacks),
		AttackCount:  len(summary.Attacks),
		MigraineDays: summary.MigraineDays,
	}
	if summary.AverageSeverity != nil {
		avg, _ := summary.AverageSeverity.Round(2).Float64()
		dto.AverageSeverity = &avg
	}
	h.writeJSON(w, http.StatusOK, dto)
}

// GetStats handles GET /api/stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	linked, total, err := h.Tracker.LinkedRate(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	days, err := h.Tracker.MigraineDaysLast30(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatsDTO{
		AttackCount:        total,
		LinkedAttacks:      linked,
		MigraineDaysLast30: days,
		ProviderAuthorized: h.Gate != nil && h.Gate.Authorized(),
	})
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

func (h *Handler) attackID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}

func attackFromRequest(id *string, start string, end *string, severity int,
	hasAura bool, notes *string, triggers []string) (attack.Attack, error) {

	a := attack.Attack{
		ID:       uuid.New(),
		Severity: severity,
		HasAura:  hasAura,
		Notes:    notes,
		Triggers: triggers,
	}
	if id != nil {
		parsed, err := uuid.Parse(*id)
		if err != nil {
			return attack.Attack{}, fmt.Errorf("invalid id: %w", err)
		}
		a.ID = parsed
	}

	startAt, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return attack.Attack{}, fmt.Errorf("invalid start_date: %w", err)
	}
	a.StartDate = startAt

	if end != nil {
		endAt, err := time.Parse(time.RFC3339, *end)
		if err != nil {
			return attack.Attack{}, fmt.Errorf("invalid end_date: %w", err)
		}
		a.EndDate = &endAt
	}
	return a, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Logger.Error("encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code string, err error) {
	h.writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

// writeDomainError maps domain errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, attack.ErrAttackNotFound):
		h.writeError(w, http.StatusNotFound, "attack_not_found", err)
	case attack.IsClientError(err) || health.IsClientError(err):
		h.writeError(w, http.StatusBadRequest, "validation_failed", err)
	case health.IsUnavailable(err):
		h.writeError(w, http.StatusServiceUnavailable, "provider_unavailable", err)
	default:
		h.Logger.Error("internal error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
