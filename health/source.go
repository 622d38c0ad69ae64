/*
source.go - Consumed interfaces for the external health data provider

PURPOSE:
  Defines the capability boundary between this engine and whatever
  wearable/health platform actually executes the queries. The provider is
  consumed, never reimplemented: the engine only knows that each metric
  can be asked for samples or a statistic over a window, and that each
  ask may fail independently.

QUERY SHAPES:
  Duration-aggregate:  Raw interval samples (sleep stages); the caller
                       filters and sums durations itself.
  Cumulative/average:  A single optional scalar computed by the provider
                       (step sum, distance sum, energy sum, HR average).

FAILURE MODEL:
  Each query fails independently. A failed query degrades exactly one
  field of the daily snapshot to absent; it never aborts the others.

SEE ALSO:
  - aggregator.go: Issues one query per tracked metric kind
  - sim.go: Seedable in-memory implementation for dev and tests
*/
package health

import (
	"context"
	"time"
)

// =============================================================================
// METRIC VOCABULARY
// =============================================================================

// MetricKind identifies one tracked biometric measurement.
type MetricKind string

const (
	MetricSleep        MetricKind = "sleep_analysis"
	MetricSteps        MetricKind = "step_count"
	MetricDistance     MetricKind = "distance_walking_running"
	MetricActiveEnergy MetricKind = "active_energy_burned"
	MetricHeartRate    MetricKind = "heart_rate"
)

// TrackedMetrics returns every metric kind the aggregator queries, in a
// stable order. The join barrier waits for all of them.
func TrackedMetrics() []MetricKind {
	return []MetricKind{
		MetricSleep,
		MetricSteps,
		MetricDistance,
		MetricActiveEnergy,
		MetricHeartRate,
	}
}

// Statistic selects how the provider reduces samples to one scalar.
type Statistic string

const (
	StatisticSum     Statistic = "sum"
	StatisticAverage Statistic = "average"
)

// Unit is the canonical unit a scalar is requested in.
type Unit string

const (
	UnitCount        Unit = "count"
	UnitMeters       Unit = "meters"
	UnitKilocalories Unit = "kcal"
	UnitBPM          Unit = "bpm"
)

// Window is the half-open time interval [Start, End) a query covers.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// =============================================================================
// SLEEP SAMPLES
// =============================================================================

// SleepStage is the category value of one sleep analysis sample.
type SleepStage int

const (
	SleepStageInBed SleepStage = iota
	SleepStageAsleep
	SleepStageAsleepCore
	SleepStageAsleepDeep
	SleepStageAsleepREM
	SleepStageAwake
)

// IsAsleep reports whether the stage counts toward slept time. InBed and
// Awake intervals do not.
func (s SleepStage) IsAsleep() bool {
	switch s {
	case SleepStageAsleep, SleepStageAsleepCore, SleepStageAsleepDeep, SleepStageAsleepREM:
		return true
	default:
		return false
	}
}

// Sample is one interval sample from a duration-aggregate query.
type Sample struct {
	Stage SleepStage
	Start time.Time
	End   time.Time
}

func (s Sample) Duration() time.Duration { return s.End.Sub(s.Start) }

// =============================================================================
// CONSUMED CAPABILITIES
// =============================================================================

// MetricSource executes metric queries. Implementations wrap the actual
// health platform; each call may fail independently and the caller must
// convert failure to absence, never leave it unhandled.
type MetricSource interface {
	// QueryDurationAggregate returns the raw interval samples for a
	// category metric (sleep) in the window.
	QueryDurationAggregate(ctx context.Context, kind MetricKind, w Window) ([]Sample, error)

	// QueryCumulativeStatistic returns one scalar for a quantity metric in
	// the window, reduced by stat, expressed in unit. A nil scalar with a
	// nil error means the provider had no samples: valid absence.
	QueryCumulativeStatistic(ctx context.Context, kind MetricKind, w Window, stat Statistic, unit Unit) (*float64, error)
}

// AuthorizationGate reports whether the provider may be queried at all.
// The aggregator must only be invoked when Authorized() is true; the gate
// sits above it, not inside it.
type AuthorizationGate interface {
	Authorized() bool
	RequestAuthorization(ctx context.Context) (bool, error)
}

// StaticGate is an AuthorizationGate with a fixed answer, for wiring and
// tests.
type StaticGate bool

func (g StaticGate) Authorized() bool { return bool(g) }

func (g StaticGate) RequestAuthorization(context.Context) (bool, error) {
	return bool(g), nil
}
