/*
Package health provides the daily biometric context engine.

PURPOSE:
  This package contains the core types and algorithms for turning a set of
  independent biometric measurements into one consistent per-day snapshot.
  It knows nothing about migraine attacks; the attack package consumes the
  snapshots it produces.

KEY CONCEPTS IN THIS FILE (types.go):
  - DayKey: A date truncated to day granularity (snapshot identity)
  - DailyContext: One day's biometric snapshot with independently
    optional fields

DESIGN PRINCIPLES:
  1. Absence is data: A nil field means "the source had nothing for this
     day", which is valid and distinct from zero
  2. Value semantics: Snapshots are copied, never shared; a stored
     snapshot is immutable except for whole-value replacement
  3. Day identity: The day IS the primary key; there is no synthetic ID

USAGE:
  day := health.DayOf(time.Now())
  dc := health.NewDailyContext(day)
  dc.Steps = health.Float(4000)

SEE ALSO:
  - source.go: MetricSource interface the aggregator queries
  - aggregator.go: Fan-out/join construction of DailyContext
*/
package health

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// DAY KEY - Date truncated to day granularity
// =============================================================================

// DayKey identifies one calendar day. Two DayKeys built from any instants
// within the same calendar day compare equal.
type DayKey struct {
	Time time.Time
}

const dayKeyLayout = "2006-01-02"

// DayOf truncates an instant to its calendar day (midnight, UTC-pinned).
// The year/month/day are read in the instant's own location, so "the day
// the attack started" matches the user's calendar, not the server's.
func DayOf(t time.Time) DayKey {
	return NewDayKey(t.Year(), t.Month(), t.Day())
}

// NewDayKey builds a DayKey from calendar components.
func NewDayKey(year int, month time.Month, day int) DayKey {
	return DayKey{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the DayKey for the current local day.
func Today() DayKey {
	return DayOf(time.Now())
}

// ParseDayKey parses a "2006-01-02" string.
func ParseDayKey(s string) (DayKey, error) {
	t, err := time.Parse(dayKeyLayout, s)
	if err != nil {
		return DayKey{}, fmt.Errorf("%w: %q", ErrInvalidDayKey, s)
	}
	return DayOf(t), nil
}

// Comparison
func (d DayKey) Equal(other DayKey) bool  { return d.normalize().Equal(other.normalize()) }
func (d DayKey) Before(other DayKey) bool { return d.normalize().Before(other.normalize()) }
func (d DayKey) After(other DayKey) bool  { return d.normalize().After(other.normalize()) }

func (d DayKey) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d DayKey) AddDays(n int) DayKey { return DayKey{Time: d.normalize().AddDate(0, 0, n)} }

// Properties
func (d DayKey) IsZero() bool   { return d.Time.IsZero() }
func (d DayKey) String() string { return d.normalize().Format(dayKeyLayout) }

// Window returns the half-open interval [start-of-day, start-of-day + 24h)
// that all metric queries for this day use.
func (d DayKey) Window() Window {
	start := d.normalize()
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// MarshalJSON encodes the day as "2006-01-02".
func (d DayKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a "2006-01-02" string.
func (d *DayKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDayKey(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// DAILY CONTEXT - One day's biometric snapshot
// =============================================================================

// DailyContext is the joined result of one day's metric queries. Every
// field is independently optional: nil if and only if its source query
// failed or returned no samples for the day.
type DailyContext struct {
	Day DayKey `json:"day"`

	SleepHours       *float64 `json:"sleep_hours,omitempty"`
	Steps            *float64 `json:"steps,omitempty"`
	DistanceKm       *float64 `json:"distance_km,omitempty"`
	ActiveEnergyKcal *float64 `json:"active_energy_kcal,omitempty"`
	AvgHeartRateBpm  *float64 `json:"avg_heart_rate_bpm,omitempty"`
}

// NewDailyContext returns an all-absent snapshot for the given day.
func NewDailyContext(day DayKey) DailyContext {
	return DailyContext{Day: day}
}

// Clone returns a deep copy. Attached snapshots must never alias the
// stored one; a later upsert for the same day must not mutate history.
func (dc DailyContext) Clone() DailyContext {
	out := DailyContext{Day: dc.Day}
	out.SleepHours = cloneFloat(dc.SleepHours)
	out.Steps = cloneFloat(dc.Steps)
	out.DistanceKm = cloneFloat(dc.DistanceKm)
	out.ActiveEnergyKcal = cloneFloat(dc.ActiveEnergyKcal)
	out.AvgHeartRateBpm = cloneFloat(dc.AvgHeartRateBpm)
	return out
}

// IsEmpty reports whether every metric field is absent. An empty snapshot
// is still valid data; callers must tolerate it.
func (dc DailyContext) IsEmpty() bool {
	return dc.SleepHours == nil &&
		dc.Steps == nil &&
		dc.DistanceKm == nil &&
		dc.ActiveEnergyKcal == nil &&
		dc.AvgHeartRateBpm == nil
}

// Float returns a pointer to v, for building optional fields.
func Float(v float64) *float64 { return &v }

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
