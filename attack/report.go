/*
report.go - Read-only accessors for the reporting collaborator

PURPOSE:
  The core exposes the numbers a report renderer needs - attacks in a
  range, distinct migraine days, average severity - and renders nothing
  itself. All derived reads are computed on demand, never cached.

PRECISION:
  Average severity uses decimal.Decimal so 7 attacks of severity 6 and 8
  average exactly, without float accumulation drift.

SEE ALSO:
  - tracker.go: Source of the attack list
  - api/handlers.go: Serializes Summary for export
*/
package attack

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PURE ACCESSORS
// =============================================================================

// AttacksInRange filters attacks whose start falls in [from, to],
// preserving order.
func AttacksInRange(attacks []Attack, from, to time.Time) []Attack {
	var out []Attack
	for _, a := range attacks {
		if a.StartDate.Before(from) || a.StartDate.After(to) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// MigraineDays counts distinct calendar days among the attacks. Two
// attacks on the same day are one migraine day.
func MigraineDays(attacks []Attack) int {
	days := make(map[string]struct{}, len(attacks))
	for _, a := range attacks {
		days[a.Day().String()] = struct{}{}
	}
	return len(days)
}

// MigraineDaysWithin counts distinct calendar days among attacks whose
// start falls within the trailing window of the given length ending now.
func MigraineDaysWithin(attacks []Attack, now time.Time, days int) int {
	cutoff := now.AddDate(0, 0, -days)
	var inWindow []Attack
	for _, a := range attacks {
		if !a.StartDate.Before(cutoff) {
			inWindow = append(inWindow, a)
		}
	}
	return MigraineDays(inWindow)
}

// AverageSeverity returns the mean severity across the attacks. ok is
// false for an empty input; there is no meaningful zero average.
func AverageSeverity(attacks []Attack) (avg decimal.Decimal, ok bool) {
	if len(attacks) == 0 {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for _, a := range attacks {
		sum = sum.Add(decimal.NewFromInt(int64(a.Severity)))
	}
	return sum.Div(decimal.NewFromInt(int64(len(attacks)))), true
}

// =============================================================================
// SUMMARY - Bundled export for a report renderer
// =============================================================================

// Summary is everything a rendering collaborator needs for one report.
type Summary struct {
	From            time.Time
	To              time.Time
	Attacks         []Attack
	MigraineDays    int
	AverageSeverity *decimal.Decimal // nil when no attacks in range
}

// ReportSummary assembles the read-only report export for a date range.
func (t *Tracker) ReportSummary(ctx context.Context, from, to time.Time) (Summary, error) {
	all, err := t.store.List(ctx)
	if err != nil {
		return Summary{}, err
	}

	inRange := AttacksInRange(all, from, to)
	s := Summary{
		From:         from,
		To:           to,
		Attacks:      inRange,
		MigraineDays: MigraineDays(inRange),
	}
	if avg, ok := AverageSeverity(inRange); ok {
		s.AverageSeverity = &avg
	}
	return s, nil
}

// MigraineDaysLast30 counts distinct migraine days in the trailing 30-day
// window ending now. Computed on read, not cached.
func (t *Tracker) MigraineDaysLast30(ctx context.Context) (int, error) {
	all, err := t.store.List(ctx)
	if err != nil {
		return 0, err
	}
	return MigraineDaysWithin(all, time.Now(), 30), nil
}

// LinkedRate reports how many attacks in the log carry a context
// snapshot, for the stats endpoint.
func (t *Tracker) LinkedRate(ctx context.Context) (linked, total int, err error) {
	all, err := t.store.List(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, a := range all {
		if a.LinkedContextSnapshot != nil {
			linked++
		}
	}
	return linked, len(all), nil
}
