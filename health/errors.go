/*
errors.go - Centralized error types for the health context engine

PURPOSE:
  All error types for this package in one place. The attack package wraps
  these with domain context where needed.

ERROR POLICY:
  Per-metric query failures are NOT errors at this level. The aggregator
  converts them to absent fields before the join completes. The only
  aggregator-level errors are "could not run any query at all" conditions.

USAGE:
  if errors.Is(err, health.ErrNotAuthorized) {
      // save the attack without context
  }

SEE ALSO:
  - aggregator.go: Degrades per-metric failures to absent fields
  - source.go: The interfaces whose failures feed this taxonomy
*/
package health

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotAuthorized is returned when the health data provider has not
	// granted read access. Callers proceed without context rather than
	// failing the attack save.
	ErrNotAuthorized = errors.New("health provider not authorized")

	// ErrSourceUnavailable is returned when no metric source is configured
	// at all. Unlike per-metric failures this prevents aggregation entirely.
	ErrSourceUnavailable = errors.New("metric source unavailable")

	// ErrInvalidDayKey is returned when a day string cannot be parsed.
	ErrInvalidDayKey = errors.New("invalid day key")

	// ErrUnknownMetric is returned by sources asked for a metric kind
	// they do not serve.
	ErrUnknownMetric = errors.New("unknown metric kind")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MetricQueryError records which metric failed and why. The aggregator
// logs these; it never returns them.
type MetricQueryError struct {
	Kind MetricKind
	Day  DayKey
	Err  error
}

func (e *MetricQueryError) Error() string {
	return fmt.Sprintf("metric query failed: %s for %s: %v", e.Kind, e.Day, e.Err)
}

func (e *MetricQueryError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsUnavailable returns true if the error means aggregation could not be
// attempted at all (as opposed to degraded results).
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) ||
		errors.Is(err, ErrNotAuthorized)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDayKey)
}
