package attack_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/migraine-engine/attack"
	"github.com/warp/migraine-engine/health"
)

// =============================================================================
// MIGRAINE DAYS
// =============================================================================

func TestMigraineDays_SameDayAttacksCountOnce(t *testing.T) {
	// GIVEN: Two attacks on day D and one on day D+1
	// WHEN: Counting migraine days
	// THEN: The count is 2, not 3

	day := health.NewDayKey(2025, time.January, 10)
	attacks := []attack.Attack{
		attackAt(day, 8, 6),
		attackAt(day, 20, 8),
		attackAt(day.AddDays(1), 9, 4),
	}

	assert.Equal(t, 2, attack.MigraineDays(attacks))
}

func TestMigraineDays_Empty(t *testing.T) {
	assert.Equal(t, 0, attack.MigraineDays(nil))
}

func TestMigraineDaysWithin_TrailingWindow(t *testing.T) {
	now := time.Date(2025, time.March, 31, 12, 0, 0, 0, time.UTC)
	recent := attack.New(now.AddDate(0, 0, -5), 6, false)
	boundary := attack.New(now.AddDate(0, 0, -30), 7, false) // exactly at cutoff
	stale := attack.New(now.AddDate(0, 0, -31), 5, false)

	got := attack.MigraineDaysWithin([]attack.Attack{recent, boundary, stale}, now, 30)
	assert.Equal(t, 2, got, "the 31-day-old attack falls outside the window")
}

// =============================================================================
// RANGE FILTERING
// =============================================================================

func TestAttacksInRange_InclusiveBoundaries(t *testing.T) {
	from := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)

	atFrom := attack.New(from, 5, false)
	atTo := attack.New(to, 6, false)
	before := attack.New(from.Add(-time.Second), 7, false)
	after := attack.New(to.Add(time.Second), 8, false)

	got := attack.AttacksInRange([]attack.Attack{before, atFrom, atTo, after}, from, to)
	require.Len(t, got, 2)
	assert.Equal(t, atFrom.ID, got[0].ID)
	assert.Equal(t, atTo.ID, got[1].ID)
}

// =============================================================================
// AVERAGE SEVERITY
// =============================================================================

func TestAverageSeverity_Exact(t *testing.T) {
	start := time.Date(2025, time.January, 10, 8, 0, 0, 0, time.UTC)
	attacks := []attack.Attack{
		attack.New(start, 6, false),
		attack.New(start.Add(time.Hour), 8, false),
		attack.New(start.Add(2*time.Hour), 7, false),
	}

	avg, ok := attack.AverageSeverity(attacks)
	require.True(t, ok)
	assert.True(t, avg.Equal(decimal.NewFromInt(7)), "got %s", avg)
}

func TestAverageSeverity_EmptyHasNoAverage(t *testing.T) {
	_, ok := attack.AverageSeverity(nil)
	assert.False(t, ok, "no meaningful zero average")
}

// =============================================================================
// SUMMARY EXPORT
// =============================================================================

func TestReportSummary(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	day := health.NewDayKey(2025, time.January, 10)
	_, err := tracker.Add(ctx, attackAt(day, 8, 6))
	require.NoError(t, err)
	_, err = tracker.Add(ctx, attackAt(day, 20, 8))
	require.NoError(t, err)
	_, err = tracker.Add(ctx, attackAt(day.AddDays(40), 9, 2)) // outside range
	require.NoError(t, err)

	from := day.Window().Start
	to := day.AddDays(30).Window().End

	s, err := tracker.ReportSummary(ctx, from, to)
	require.NoError(t, err)
	assert.Len(t, s.Attacks, 2)
	assert.Equal(t, 1, s.MigraineDays)
	require.NotNil(t, s.AverageSeverity)
	assert.True(t, s.AverageSeverity.Equal(decimal.NewFromInt(7)))
}

func TestReportSummary_EmptyRange(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	from := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	s, err := tracker.ReportSummary(ctx, from, from.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Empty(t, s.Attacks)
	assert.Zero(t, s.MigraineDays)
	assert.Nil(t, s.AverageSeverity)
}

func TestLinkedRate(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	day := health.NewDayKey(2025, time.January, 10)
	require.NoError(t, tracker.UpsertContext(ctx, contextFor(day, 7.5, 4000)))

	_, err := tracker.Add(ctx, attackAt(day, 8, 6)) // linked via fast path
	require.NoError(t, err)
	_, err = tracker.Add(ctx, attackAt(day.AddDays(1), 9, 4)) // no context
	require.NoError(t, err)

	linked, total, err := tracker.LinkedRate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, linked)
	assert.Equal(t, 2, total)
}
