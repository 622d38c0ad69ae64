package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/migraine-engine/attack"
	"github.com/warp/migraine-engine/health"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// =============================================================================
// ATTACK ROWS
// =============================================================================

func TestAttackRoundTrip_AllFieldsPresent(t *testing.T) {
	// GIVEN: An ended attack with notes, triggers, and a linked snapshot
	// WHEN: Appending and reading it back
	// THEN: Every field survives, including NULL-able optionals

	s := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2025, time.January, 10, 8, 0, 0, 0, time.UTC)
	end := start.Add(5 * time.Hour)
	day := health.DayOf(start)
	notes := "woke up with it"
	snap := health.NewDailyContext(day)
	snap.SleepHours = health.Float(7.5)
	snap.Steps = health.Float(4000)

	a := attack.New(start, 8, true)
	a.EndDate = &end
	a.Notes = &notes
	a.Triggers = []string{"stress", "caffeine"}
	a.LinkedContextDay = &day
	a.LinkedContextSnapshot = &snap

	require.NoError(t, s.Append(ctx, a))

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.True(t, a.StartDate.Equal(got.StartDate))
	require.NotNil(t, got.EndDate)
	assert.True(t, end.Equal(*got.EndDate))
	assert.Equal(t, 8, got.Severity)
	assert.True(t, got.HasAura)
	require.NotNil(t, got.Notes)
	assert.Equal(t, notes, *got.Notes)
	assert.Equal(t, []string{"stress", "caffeine"}, got.Triggers)
	require.NotNil(t, got.LinkedContextDay)
	assert.True(t, got.LinkedContextDay.Equal(day))
	require.NotNil(t, got.LinkedContextSnapshot)
	assert.Equal(t, 7.5, *got.LinkedContextSnapshot.SleepHours)
	assert.Equal(t, 4000.0, *got.LinkedContextSnapshot.Steps)
}

func TestAttackRoundTrip_OptionalsAbsent(t *testing.T) {
	// An ongoing, unlinked attack reads back with nil optionals, not zeroes.
	s := newTestStore(t)
	ctx := context.Background()

	a := attack.New(time.Date(2025, time.January, 10, 8, 0, 0, 0, time.UTC), 5, false)
	require.NoError(t, s.Append(ctx, a))

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got.EndDate)
	assert.Nil(t, got.Notes)
	assert.Nil(t, got.Triggers)
	assert.Nil(t, got.LinkedContextDay)
	assert.Nil(t, got.LinkedContextSnapshot)
	assert.False(t, got.HasAura)
}

func TestGet_Missing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, attack.ErrAttackNotFound)
}

func TestReplace_MissingIdentity(t *testing.T) {
	s := newTestStore(t)
	a := attack.New(time.Date(2025, time.January, 10, 8, 0, 0, 0, time.UTC), 5, false)
	err := s.Replace(context.Background(), a)
	assert.ErrorIs(t, err, attack.ErrAttackNotFound)
}

func TestReplace_SwapsWholeRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := attack.New(time.Date(2025, time.January, 10, 8, 0, 0, 0, time.UTC), 5, false)
	require.NoError(t, s.Append(ctx, a))

	end := a.StartDate.Add(3 * time.Hour)
	a.EndDate = &end
	a.Severity = 9
	a.Triggers = []string{"weather"}
	require.NoError(t, s.Replace(ctx, a))

	got, err := s.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Severity)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, []string{"weather"}, got.Triggers)
}

func TestDelete_IsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := attack.New(time.Date(2025, time.January, 10, 8, 0, 0, 0, time.UTC), 5, false)
	require.NoError(t, s.Append(ctx, a))

	removed, err := s.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Delete(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, removed, "second delete is a no-op")

	removed, err = s.Delete(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestList_OrderedByStartDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, time.January, 10, 8, 0, 0, 0, time.UTC)
	later := attack.New(base.Add(48*time.Hour), 4, false)
	earlier := attack.New(base, 6, false)
	middle := attack.New(base.Add(24*time.Hour), 5, false)

	for _, a := range []attack.Attack{later, earlier, middle} {
		require.NoError(t, s.Append(ctx, a))
	}

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, earlier.ID, got[0].ID)
	assert.Equal(t, middle.ID, got[1].ID)
	assert.Equal(t, later.ID, got[2].ID)
}

// =============================================================================
// CONTEXT ROWS
// =============================================================================

func TestUpsertContext_InsertThenReplace(t *testing.T) {
	// GIVEN: A stored context with sleep and steps
	// WHEN: Upserting a new context for the same day carrying only heart rate
	// THEN: The row is replaced wholesale; no field merge

	s := newTestStore(t)
	ctx := context.Background()
	day := health.NewDayKey(2025, time.January, 10)

	first := health.NewDailyContext(day)
	first.SleepHours = health.Float(7.5)
	first.Steps = health.Float(4000)
	require.NoError(t, s.UpsertContext(ctx, first))

	second := health.NewDailyContext(day)
	second.AvgHeartRateBpm = health.Float(80)
	require.NoError(t, s.UpsertContext(ctx, second))

	got, err := s.GetContext(ctx, day)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.SleepHours)
	assert.Nil(t, got.Steps)
	require.NotNil(t, got.AvgHeartRateBpm)
	assert.Equal(t, 80.0, *got.AvgHeartRateBpm)
}

func TestUpsertContext_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := health.NewDayKey(2025, time.January, 10)

	dc := health.NewDailyContext(day)
	dc.Steps = health.Float(4000)
	require.NoError(t, s.UpsertContext(ctx, dc))
	before, err := s.GetContext(ctx, day)
	require.NoError(t, err)

	require.NoError(t, s.UpsertContext(ctx, dc))
	after, err := s.GetContext(ctx, day)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestGetContext_Miss(t *testing.T) {
	s := newTestStore(t)
	got, err := s.GetContext(context.Background(), health.NewDayKey(2025, time.June, 1))
	require.NoError(t, err)
	assert.Nil(t, got, "a miss is nil, not an error")
}

func TestContextDays_Ascending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d1 := health.NewDayKey(2025, time.January, 12)
	d2 := health.NewDayKey(2025, time.January, 10)
	d3 := health.NewDayKey(2025, time.January, 11)
	for _, d := range []health.DayKey{d1, d2, d3} {
		require.NoError(t, s.UpsertContext(ctx, health.NewDailyContext(d)))
	}

	days, err := s.ContextDays(ctx)
	require.NoError(t, err)
	require.Len(t, days, 3)
	assert.Equal(t, "2025-01-10", days[0].String())
	assert.Equal(t, "2025-01-11", days[1].String())
	assert.Equal(t, "2025-01-12", days[2].String())
}
