package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/migraine-engine/attack"
	"github.com/warp/migraine-engine/attack/store"
	"github.com/warp/migraine-engine/health"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *health.SimulatedSource) {
	t.Helper()
	sim := health.NewSimulatedSource()
	gate := health.StaticGate(true)
	aggregator := health.NewAggregator(sim, nil)
	tracker := attack.NewTracker(store.NewMemory(), aggregator, gate, nil)

	handler := NewHandler(tracker, gate, nil)
	handler.Sim = sim
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv, sim
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func logAttackBody(start time.Time, severity int) LogAttackRequest {
	return LogAttackRequest{
		StartDate: start.Format(time.RFC3339),
		Severity:  severity,
	}
}

// =============================================================================
// ATTACK ENDPOINTS
// =============================================================================

func TestLogAttack_Created(t *testing.T) {
	// GIVEN: The provider has step data for the attack's day
	// WHEN: Logging an attack
	// THEN: 201 with the saved attack carrying a linked snapshot

	srv, sim := newTestServer(t)
	start := time.Date(2025, time.January, 10, 8, 0, 0, 0, time.UTC)
	sim.SetScalar(health.DayOf(start), health.MetricSteps, 4000)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/attacks", logAttackBody(start, 6))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	dto := decode[AttackDTO](t, resp)
	assert.NotEmpty(t, dto.ID)
	assert.Equal(t, 6, dto.Severity)
	require.NotNil(t, dto.LinkedContextDay)
	assert.Equal(t, "2025-01-10", *dto.LinkedContextDay)
	require.NotNil(t, dto.LinkedContext)
	require.NotNil(t, dto.LinkedContext.Steps)
	assert.Equal(t, 4000.0, *dto.LinkedContext.Steps)
}

func TestLogAttack_InvalidSeverity(t *testing.T) {
	srv, _ := newTestServer(t)
	start := time.Date(2025, time.January, 10, 8, 0, 0, 0, time.UTC)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/attacks", logAttackBody(start, 11))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	errResp := decode[ErrorResponse](t, resp)
	assert.Equal(t, "validation_failed", errResp.Code)
}

func TestLogAttack_InvalidJSON(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/attacks", "application/json",
		bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetAttack_Unknown(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/attacks/7b2e9a4e-0000-4000-8000-000000000000")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetAttack_MalformedID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/attacks/not-a-uuid")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateAttack_RoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	start := time.Date(2025, time.January, 10, 8, 0, 0, 0, time.UTC)

	created := decode[AttackDTO](t,
		doJSON(t, http.MethodPost, srv.URL+"/api/attacks", logAttackBody(start, 6)))

	end := start.Add(4 * time.Hour).Format(time.RFC3339)
	update := UpdateAttackRequest{
		StartDate: start.Format(time.RFC3339),
		EndDate:   &end,
		Severity:  8,
		HasAura:   true,
	}
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/attacks/"+created.ID, update)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dto := decode[AttackDTO](t, resp)
	assert.Equal(t, created.ID, dto.ID)
	assert.Equal(t, 8, dto.Severity)
	assert.True(t, dto.HasAura)
	require.NotNil(t, dto.EndDate)
}

func TestDeleteAttack_UnknownStillNoContent(t *testing.T) {
	// Deletion is idempotent down to the HTTP layer.
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete,
		srv.URL+"/api/attacks/7b2e9a4e-0000-4000-8000-000000000000", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

// =============================================================================
// CONTEXT ENDPOINTS
// =============================================================================

func TestGetContext_MissIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/context/2025-01-10")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	errResp := decode[ErrorResponse](t, resp)
	assert.Equal(t, "no_context", errResp.Code)
}

func TestRefreshContext_AggregatesAndStores(t *testing.T) {
	srv, sim := newTestServer(t)
	day := health.NewDayKey(2025, time.January, 10)
	sim.SetScalar(day, health.MetricSteps, 4000)
	sim.SetScalar(day, health.MetricHeartRate, 72)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/context/2025-01-10/refresh", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dto := decode[DailyContextDTO](t, resp)
	assert.Equal(t, "2025-01-10", dto.Day)
	require.NotNil(t, dto.Steps)
	assert.Equal(t, 4000.0, *dto.Steps)
	assert.Nil(t, dto.SleepHours, "absent metric has no key")

	// Cached now, so the plain GET hits.
	getResp, err := http.Get(srv.URL + "/api/context/2025-01-10")
	require.NoError(t, err)
	defer getResp.Body.Close()
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
}

func TestRefreshContext_InvalidDay(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/context/January-10/refresh", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRefreshContext_UnauthorizedIs503(t *testing.T) {
	sim := health.NewSimulatedSource()
	gate := health.StaticGate(false)
	tracker := attack.NewTracker(store.NewMemory(), health.NewAggregator(sim, nil), gate, nil)
	handler := NewHandler(tracker, gate, nil)
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/context/2025-01-10/refresh", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestListContextDays(t *testing.T) {
	srv, sim := newTestServer(t)
	for _, d := range []string{"2025-01-12", "2025-01-10"} {
		day, err := health.ParseDayKey(d)
		require.NoError(t, err)
		sim.SetScalar(day, health.MetricSteps, 100)
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/context/"+d+"/refresh", nil)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := http.Get(srv.URL + "/api/context")
	require.NoError(t, err)
	days := decode[[]string](t, resp)
	assert.Equal(t, []string{"2025-01-10", "2025-01-12"}, days)
}

// =============================================================================
// REPORTING ENDPOINTS
// =============================================================================

func TestGetReport_RangeAndAverage(t *testing.T) {
	srv, _ := newTestServer(t)
	day := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)

	for i, severity := range []int{6, 8} {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/attacks",
			logAttackBody(day.Add(time.Duration(8+12*i)*time.Hour), severity))
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, err := http.Get(srv.URL + "/api/report?from=2025-01-01&to=2025-01-31")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dto := decode[ReportDTO](t, resp)
	assert.Equal(t, 2, dto.AttackCount)
	assert.Equal(t, 1, dto.MigraineDays, "two attacks, one calendar day")
	require.NotNil(t, dto.AverageSeverity)
	assert.Equal(t, 7.0, *dto.AverageSeverity)
}

func TestGetReport_BadFromParam(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/report?from=yesterday")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetStats(t *testing.T) {
	srv, sim := newTestServer(t)
	now := time.Now().UTC()
	sim.SetScalar(health.DayOf(now), health.MetricSteps, 4000)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/attacks", logAttackBody(now, 6))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	statsResp, err := http.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	stats := decode[StatsDTO](t, statsResp)
	assert.Equal(t, 1, stats.AttackCount)
	assert.Equal(t, 1, stats.LinkedAttacks)
	assert.Equal(t, 1, stats.MigraineDaysLast30)
	assert.True(t, stats.ProviderAuthorized)
}

// =============================================================================
// SCENARIO ENDPOINTS
// =============================================================================

func TestScenarios_ListAndLoad(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/scenarios")
	require.NoError(t, err)
	scenarios := decode[[]ScenarioDTO](t, resp)
	require.NotEmpty(t, scenarios)

	load := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load",
		LoadScenarioRequest{ID: scenarios[0].ID})
	defer load.Body.Close()
	assert.Equal(t, http.StatusOK, load.StatusCode)
}

func TestScenarios_UnknownID(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/scenarios/load",
		LoadScenarioRequest{ID: "no-such-scenario"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

