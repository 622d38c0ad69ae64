package health_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/migraine-engine/health"
)

// =============================================================================
// DAY KEY
// =============================================================================

func TestDayOf_TruncatesToCalendarDay(t *testing.T) {
	morning := time.Date(2025, time.January, 10, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2025, time.January, 10, 23, 59, 59, 0, time.UTC)
	nextDay := time.Date(2025, time.January, 11, 0, 0, 0, 0, time.UTC)

	assert.True(t, health.DayOf(morning).Equal(health.DayOf(evening)))
	assert.False(t, health.DayOf(morning).Equal(health.DayOf(nextDay)))
	assert.True(t, health.DayOf(morning).Before(health.DayOf(nextDay)))
}

func TestDayKey_Window(t *testing.T) {
	day := health.NewDayKey(2025, time.January, 10)
	w := day.Window()

	assert.Equal(t, time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2025, time.January, 11, 0, 0, 0, 0, time.UTC), w.End)
	assert.True(t, w.Contains(w.Start), "window start is included")
	assert.False(t, w.Contains(w.End), "window end is excluded")
}

func TestDayKey_JSONRoundTrip(t *testing.T) {
	day := health.NewDayKey(2025, time.December, 31)

	data, err := json.Marshal(day)
	require.NoError(t, err)
	assert.Equal(t, `"2025-12-31"`, string(data))

	var back health.DayKey
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, day.Equal(back))
}

func TestParseDayKey_Invalid(t *testing.T) {
	_, err := health.ParseDayKey("not-a-day")
	assert.ErrorIs(t, err, health.ErrInvalidDayKey)
	assert.True(t, health.IsClientError(err))
}

// =============================================================================
// DAILY CONTEXT
// =============================================================================

func TestDailyContext_AbsentFieldsStayAbsentThroughJSON(t *testing.T) {
	// GIVEN: A snapshot with only sleep and steps
	// WHEN: Round-tripping through JSON
	// THEN: Absent fields stay absent (no key), not zero

	dc := health.NewDailyContext(health.NewDayKey(2025, time.January, 10))
	dc.SleepHours = health.Float(7.5)
	dc.Steps = health.Float(4000)

	data, err := json.Marshal(dc)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "distance_km")
	assert.NotContains(t, string(data), "avg_heart_rate_bpm")

	var back health.DailyContext
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Day.Equal(dc.Day))
	require.NotNil(t, back.SleepHours)
	assert.Equal(t, 7.5, *back.SleepHours)
	assert.Nil(t, back.DistanceKm)
	assert.Nil(t, back.ActiveEnergyKcal)
	assert.Nil(t, back.AvgHeartRateBpm)
}

func TestDailyContext_CloneIsDeep(t *testing.T) {
	dc := health.NewDailyContext(health.Today())
	dc.Steps = health.Float(1000)

	clone := dc.Clone()
	*clone.Steps = 9999

	assert.Equal(t, 1000.0, *dc.Steps, "mutating the clone must not touch the original")
}

func TestDailyContext_IsEmpty(t *testing.T) {
	dc := health.NewDailyContext(health.Today())
	assert.True(t, dc.IsEmpty())

	dc.AvgHeartRateBpm = health.Float(64)
	assert.False(t, dc.IsEmpty())
}
