/*
Package attack provides the migraine attack log and its context linkage.

PURPOSE:
  This package owns the canonical attack records and the protocol that
  keeps them consistent with the day-keyed context store: attacks and
  their biometric context can arrive in either order and must converge
  to the same linked state regardless of interleaving.

KEY CONCEPTS IN THIS FILE (types.go):
  - Attack: One migraine episode with optional embedded context snapshot
  - Validation: Invariants enforced at the edit boundary, never silently
    corrected

LINKAGE INVARIANT:
  If LinkedContextSnapshot is present, LinkedContextDay equals both the
  attack's start day and the snapshot's day. The snapshot is a value
  copy taken at attach time, not a live reference: reprocessing a day's
  health data never silently rewrites a historical attack.

SEE ALSO:
  - tracker.go: Serialized mutations, fast-path attach, backfill pass
  - report.go: Read-only accessors for the reporting collaborator
*/
package attack

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/migraine-engine/health"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAttackNotFound is returned when an identity matches no record.
	ErrAttackNotFound = errors.New("attack not found")

	// ErrMissingID is returned when a record has no caller-assigned identity.
	ErrMissingID = errors.New("attack id is required")

	// ErrMissingStart is returned when a record has no start date.
	ErrMissingStart = errors.New("attack start date is required")

	// ErrEndBeforeStart is returned when an end date precedes the start.
	// The mutation is rejected whole; the stored record is untouched.
	ErrEndBeforeStart = errors.New("end date before start date")

	// ErrSeverityOutOfRange is returned for severity outside 0-10.
	ErrSeverityOutOfRange = errors.New("severity out of range")

	// ErrLinkMismatch is returned when an embedded snapshot disagrees with
	// the attack's linked day. Indicates a caller bypassed the tracker.
	ErrLinkMismatch = errors.New("linked context day mismatch")
)

// IsClientError returns true if the error is due to invalid input rather
// than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingID) ||
		errors.Is(err, ErrMissingStart) ||
		errors.Is(err, ErrEndBeforeStart) ||
		errors.Is(err, ErrSeverityOutOfRange) ||
		errors.Is(err, ErrLinkMismatch)
}

// =============================================================================
// ATTACK - One migraine episode
// =============================================================================

const (
	SeverityMin = 0
	SeverityMax = 10
)

// Attack is one logged migraine episode. The tracker exclusively owns the
// canonical copy; callers receive and hand in value copies.
type Attack struct {
	// ID is globally unique, caller-assigned, stable for the record's life.
	ID uuid.UUID `json:"id"`

	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"` // nil = still ongoing
	Severity  int        `json:"severity"`           // 0-10
	HasAura   bool       `json:"has_aura"`
	Notes     *string    `json:"notes,omitempty"`
	Triggers  []string   `json:"triggers,omitempty"` // source order preserved

	// Derived linkage, owned by the tracker.
	LinkedContextDay      *health.DayKey       `json:"linked_context_day,omitempty"`
	LinkedContextSnapshot *health.DailyContext `json:"linked_context_snapshot,omitempty"`
}

// New creates an attack with a fresh identity.
func New(start time.Time, severity int, hasAura bool) Attack {
	return Attack{
		ID:        uuid.New(),
		StartDate: start,
		Severity:  severity,
		HasAura:   hasAura,
	}
}

// Day returns the calendar day the attack started, which is the only day
// context is ever linked from.
func (a Attack) Day() health.DayKey { return health.DayOf(a.StartDate) }

// Ongoing reports whether the attack has no recorded end.
func (a Attack) Ongoing() bool { return a.EndDate == nil }

// Validate enforces the edit-boundary invariants. It reports violations;
// it never corrects them.
func (a Attack) Validate() error {
	if a.ID == uuid.Nil {
		return ErrMissingID
	}
	if a.StartDate.IsZero() {
		return ErrMissingStart
	}
	if a.Severity < SeverityMin || a.Severity > SeverityMax {
		return fmt.Errorf("%w: %d (want %d-%d)", ErrSeverityOutOfRange, a.Severity, SeverityMin, SeverityMax)
	}
	if a.EndDate != nil && a.EndDate.Before(a.StartDate) {
		return fmt.Errorf("%w: %s < %s", ErrEndBeforeStart,
			a.EndDate.Format(time.RFC3339), a.StartDate.Format(time.RFC3339))
	}
	if a.LinkedContextSnapshot != nil {
		if a.LinkedContextDay == nil ||
			!a.LinkedContextDay.Equal(a.Day()) ||
			!a.LinkedContextSnapshot.Day.Equal(a.Day()) {
			return ErrLinkMismatch
		}
	}
	return nil
}

// Clone returns a deep copy. Stores hand out clones so callers cannot
// mutate the canonical record in place.
func (a Attack) Clone() Attack {
	out := a
	if a.EndDate != nil {
		end := *a.EndDate
		out.EndDate = &end
	}
	if a.Notes != nil {
		notes := *a.Notes
		out.Notes = &notes
	}
	if a.Triggers != nil {
		out.Triggers = append([]string(nil), a.Triggers...)
	}
	if a.LinkedContextDay != nil {
		day := *a.LinkedContextDay
		out.LinkedContextDay = &day
	}
	if a.LinkedContextSnapshot != nil {
		snap := a.LinkedContextSnapshot.Clone()
		out.LinkedContextSnapshot = &snap
	}
	return out
}
