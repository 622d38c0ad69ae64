/*
aggregator.go - Fan-out/join construction of a DailyContext

PURPOSE:
  Given one calendar day, issue one independent query per tracked metric
  kind, wait for all of them to reach a terminal state, and join the
  results into exactly one DailyContext.

JOIN SEMANTICS:
  This is a barrier, not a race. Every sub-query ends in one of three
  terminal states: success-with-value, success-with-absence, or failure.
  Failure is converted to absence before the join; a single slow or
  broken metric never aborts the others and never surfaces as an
  aggregator-level error.

GUARANTEES:
  - Exactly one DailyContext per call, never partial
  - Every tracked metric kind represented (value or absent)
  - No internal caching; the day-keyed store owns that

CONCURRENCY:
  Sub-queries run as goroutines joined with errgroup. Each writes a
  distinct field of the result, so no lock is needed at the join.
  Concurrent fetches for the same day are collapsed with singleflight:
  the second caller waits for and shares the first caller's snapshot.

SEE ALSO:
  - source.go: The MetricSource being fanned out over
  - attack/tracker.go: Stores the result and runs the backfill pass
*/
package health

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator fans out per-metric queries and joins them into snapshots.
// It is stateless apart from in-flight call deduplication.
type Aggregator struct {
	source MetricSource
	logger *slog.Logger
	flight singleflight.Group
}

// NewAggregator creates an aggregator over the given source.
func NewAggregator(source MetricSource, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{source: source, logger: logger}
}

// FetchDailyContext aggregates all tracked metrics for one day. It blocks
// until every sub-query has resolved; callers on latency-sensitive paths
// must run it off to the side. The context deadline bounds all
// sub-queries; a timed-out query degrades to an absent field like any
// other failure.
//
// The only error conditions are "could not run at all" (no source
// configured). Authorization is the caller's gate: do not invoke this
// when the provider is unauthorized.
func (a *Aggregator) FetchDailyContext(ctx context.Context, day DayKey) (DailyContext, error) {
	if a.source == nil {
		return DailyContext{}, ErrSourceUnavailable
	}

	// Collapse concurrent fetches for the same day. Whole-value
	// replacement in the store makes sharing one result safe.
	v, err, _ := a.flight.Do(day.String(), func() (any, error) {
		return a.fetch(ctx, day), nil
	})
	if err != nil {
		return DailyContext{}, err
	}
	return v.(DailyContext), nil
}

func (a *Aggregator) fetch(ctx context.Context, day DayKey) DailyContext {
	w := day.Window()
	dc := NewDailyContext(day)

	// Each goroutine writes its own field; the group Wait is the join
	// barrier. Closures return nil unconditionally: failure has already
	// been degraded to absence by then.
	var g errgroup.Group

	g.Go(func() error {
		dc.SleepHours = a.sleepHours(ctx, w)
		return nil
	})
	g.Go(func() error {
		dc.Steps = a.cumulative(ctx, MetricSteps, UnitCount, w)
		return nil
	})
	g.Go(func() error {
		meters := a.cumulative(ctx, MetricDistance, UnitMeters, w)
		if meters != nil {
			dc.DistanceKm = Float(*meters / 1000.0)
		}
		return nil
	})
	g.Go(func() error {
		dc.ActiveEnergyKcal = a.cumulative(ctx, MetricActiveEnergy, UnitKilocalories, w)
		return nil
	})
	g.Go(func() error {
		dc.AvgHeartRateBpm = a.average(ctx, MetricHeartRate, UnitBPM, w)
		return nil
	})

	g.Wait() // nolint:errcheck // closures never return errors

	return dc
}

// =============================================================================
// SUB-QUERIES - One per query shape
// =============================================================================

// sleepHours sums the durations of asleep-stage samples and converts to
// hours. Zero slept seconds is absence, not 0.0: a day with only in-bed
// samples has no sleep value.
func (a *Aggregator) sleepHours(ctx context.Context, w Window) *float64 {
	samples, err := a.source.QueryDurationAggregate(ctx, MetricSleep, w)
	if err != nil {
		a.observe(MetricSleep, w, err)
		return nil
	}

	var seconds float64
	for _, s := range samples {
		if s.Stage.IsAsleep() {
			seconds += s.Duration().Seconds()
		}
	}
	if seconds <= 0 {
		return nil
	}
	return Float(seconds / 3600.0)
}

// cumulative runs a sum statistic in the metric's canonical unit.
func (a *Aggregator) cumulative(ctx context.Context, kind MetricKind, unit Unit, w Window) *float64 {
	v, err := a.source.QueryCumulativeStatistic(ctx, kind, w, StatisticSum, unit)
	if err != nil {
		a.observe(kind, w, err)
		return nil
	}
	return v
}

// average runs a discrete-average statistic.
func (a *Aggregator) average(ctx context.Context, kind MetricKind, unit Unit, w Window) *float64 {
	v, err := a.source.QueryCumulativeStatistic(ctx, kind, w, StatisticAverage, unit)
	if err != nil {
		a.observe(kind, w, err)
		return nil
	}
	return v
}

// observe logs a degraded sub-query. Observed, never propagated.
func (a *Aggregator) observe(kind MetricKind, w Window, err error) {
	qerr := &MetricQueryError{Kind: kind, Day: DayOf(w.Start), Err: err}
	a.logger.Warn("metric query degraded to absent",
		"metric", string(kind),
		"day", qerr.Day.String(),
		"error", err)
}
