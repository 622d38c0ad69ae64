/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds the simulated metric source and the attack log with small, named
  datasets so the linkage behavior can be demonstrated without a real
  wearable. Only available when the server runs with the simulated
  source; against a real provider these endpoints 404.

SCENARIOS:
  typical-week     Seven seeded days, three attacks logged through the
                   full flow (every attack linked on the fast path).
  late-context     Attacks logged while the provider was unauthorized,
                   then one day refreshed: shows the backfill pass
                   attaching late-arriving context.
  degraded-provider Heart rate failing for the whole week: every
                   snapshot has an absent avg_heart_rate_bpm.

SEE ALSO:
  - health/sim.go: The source being seeded
  - handlers.go: Shared handler plumbing
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/migraine-engine/attack"
	"github.com/warp/migraine-engine/health"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ID          string
	Name        string
	Description string
	Load        func(h *Handler, r *http.Request) error
}

func scenarios() []scenario {
	return []scenario{
		{
			ID:          "typical-week",
			Name:        "Typical week",
			Description: "Seven seeded days; three attacks logged with context attached on the fast path.",
			Load:        loadTypicalWeek,
		},
		{
			ID:          "late-context",
			Name:        "Late-arriving context",
			Description: "Attacks saved without context, then a refresh backfills them.",
			Load:        loadLateContext,
		},
		{
			ID:          "degraded-provider",
			Name:        "Degraded provider",
			Description: "Heart rate queries failing; snapshots carry absent fields.",
			Load:        loadDegradedProvider,
		},
	}
}

// ListScenarios handles GET /api/scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	if h.Sim == nil {
		h.writeError(w, http.StatusNotFound, "no_simulation",
			errors.New("scenarios require the simulated source"))
		return
	}
	var out []ScenarioDTO
	for _, s := range scenarios() {
		out = append(out, ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description})
	}
	h.writeJSON(w, http.StatusOK, out)
}

// LoadScenario handles POST /api/scenarios/load.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.Sim == nil {
		h.writeError(w, http.StatusNotFound, "no_simulation",
			errors.New("scenarios require the simulated source"))
		return
	}

	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", err)
		return
	}

	for _, s := range scenarios() {
		if s.ID != req.ID {
			continue
		}
		if err := s.Load(h, r); err != nil {
			h.writeDomainError(w, err)
			return
		}
		h.currentScenario = s.ID
		h.Logger.Info("scenario loaded", "scenario", s.ID)
		h.writeJSON(w, http.StatusOK, map[string]string{"loaded": s.ID})
		return
	}
	h.writeError(w, http.StatusNotFound, "unknown_scenario",
		fmt.Errorf("no scenario %q", req.ID))
}

// =============================================================================
// LOADERS
// =============================================================================

func loadTypicalWeek(h *Handler, r *http.Request) error {
	ctx := r.Context()
	h.Sim.Clear()
	h.Sim.Seed(1, 7)

	today := health.Today()
	for _, spec := range []struct {
		daysAgo  int
		hour     int
		severity int
		aura     bool
		trigger  string
	}{
		{5, 8, 6, false, "skipped breakfast"},
		{3, 14, 4, true, "bright light"},
		{1, 20, 8, false, "poor sleep"},
	} {
		day := today.AddDays(-spec.daysAgo)
		a := attack.New(day.Window().Start.Add(time.Duration(spec.hour)*time.Hour), spec.severity, spec.aura)
		a.Triggers = []string{spec.trigger}
		if _, err := h.Tracker.LogAttack(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func loadLateContext(h *Handler, r *http.Request) error {
	ctx := r.Context()
	h.Sim.Clear()

	// Log first: nothing seeded, so snapshots stay absent.
	day := health.Today().AddDays(-2)
	a1 := attack.New(day.Window().Start.Add(8*time.Hour), 6, false)
	a2 := attack.New(day.Window().Start.Add(15*time.Hour), 7, true)
	if _, err := h.Tracker.Add(ctx, a1); err != nil {
		return err
	}
	if _, err := h.Tracker.Add(ctx, a2); err != nil {
		return err
	}

	// Context arrives later; the refresh runs the backfill pass.
	h.Sim.Seed(2, 7)
	_, err := h.Tracker.RefreshContext(ctx, day)
	return err
}

func loadDegradedProvider(h *Handler, r *http.Request) error {
	ctx := r.Context()
	h.Sim.Clear()
	h.Sim.Seed(3, 7)
	h.Sim.Fail(health.MetricHeartRate, errors.New("sensor offline"))

	day := health.Today().AddDays(-1)
	a := attack.New(day.Window().Start.Add(11*time.Hour), 5, false)
	_, err := h.Tracker.LogAttack(ctx, a)
	return err
}
