/*
sim.go - Seedable in-memory MetricSource

PURPOSE:
  A MetricSource implementation holding per-day fixture data, used by the
  demo scenarios and the test suite. Supports per-metric failure
  injection so degraded-join behavior can be exercised without a real
  provider.

BEHAVIOR:
  - Scalars are stored per (day, kind) in canonical units
  - Sleep samples are stored per day
  - A kind marked failing returns its injected error on every query
  - An optional latency is applied per query, honoring ctx cancellation

SEE ALSO:
  - aggregator.go: The consumer being exercised
  - api/scenarios.go: Seeds demo days through this source
*/
package health

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// =============================================================================
// SIMULATED SOURCE
// =============================================================================

// SimulatedSource is a MetricSource backed by in-memory fixture data.
type SimulatedSource struct {
	mu      sync.RWMutex
	scalars map[scalarKey]float64
	sleep   map[string][]Sample
	failing map[MetricKind]error
	latency time.Duration
}

type scalarKey struct {
	Day  string
	Kind MetricKind
}

// NewSimulatedSource creates an empty source. Every query answers
// "no samples" until seeded.
func NewSimulatedSource() *SimulatedSource {
	return &SimulatedSource{
		scalars: make(map[scalarKey]float64),
		sleep:   make(map[string][]Sample),
		failing: make(map[MetricKind]error),
	}
}

// SetScalar seeds one (day, kind) scalar in the metric's canonical unit
// (steps as count, distance as meters, energy as kcal, heart rate as bpm).
func (s *SimulatedSource) SetScalar(day DayKey, kind MetricKind, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scalars[scalarKey{Day: day.String(), Kind: kind}] = value
}

// SetSleep seeds the sleep samples for one day.
func (s *SimulatedSource) SetSleep(day DayKey, samples []Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleep[day.String()] = append([]Sample(nil), samples...)
}

// Fail makes every query for kind return err until Recover is called.
func (s *SimulatedSource) Fail(kind MetricKind, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[kind] = err
}

// Recover clears an injected failure.
func (s *SimulatedSource) Recover(kind MetricKind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failing, kind)
}

// SetLatency applies a fixed delay to every query.
func (s *SimulatedSource) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// Clear removes all fixture data and injected failures.
func (s *SimulatedSource) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scalars = make(map[scalarKey]float64)
	s.sleep = make(map[string][]Sample)
	s.failing = make(map[MetricKind]error)
}

// QueryDurationAggregate implements MetricSource.
func (s *SimulatedSource) QueryDurationAggregate(ctx context.Context, kind MetricKind, w Window) ([]Sample, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err, ok := s.failing[kind]; ok {
		return nil, err
	}
	if kind != MetricSleep {
		return nil, ErrUnknownMetric
	}
	// Sleep samples are matched on end time: a night that began the
	// previous evening still belongs to the morning's day.
	samples := s.sleep[DayOf(w.Start).String()]
	out := make([]Sample, 0, len(samples))
	for _, sample := range samples {
		if w.Contains(sample.End) {
			out = append(out, sample)
		}
	}
	return out, nil
}

// QueryCumulativeStatistic implements MetricSource. The simulation stores
// one scalar per (day, kind) so sum and average read the same value, the
// way a provider's pre-reduced statistics endpoint would.
func (s *SimulatedSource) QueryCumulativeStatistic(ctx context.Context, kind MetricKind, w Window, _ Statistic, _ Unit) (*float64, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err, ok := s.failing[kind]; ok {
		return nil, err
	}
	v, ok := s.scalars[scalarKey{Day: DayOf(w.Start).String(), Kind: kind}]
	if !ok {
		return nil, nil // no samples: valid absence
	}
	return Float(v), nil
}

func (s *SimulatedSource) wait(ctx context.Context) error {
	s.mu.RLock()
	latency := s.latency
	s.mu.RUnlock()
	if latency <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// =============================================================================
// SEEDING - Plausible demo data
// =============================================================================

// Seed fills the source with plausible data for the given number of days
// ending today, deterministically from seed.
func (s *SimulatedSource) Seed(seed int64, days int) {
	rng := rand.New(rand.NewSource(seed))
	day := Today().AddDays(-(days - 1))

	for i := 0; i < days; i++ {
		s.SetScalar(day, MetricSteps, 3000+rng.Float64()*9000)
		s.SetScalar(day, MetricDistance, 2000+rng.Float64()*8000) // meters
		s.SetScalar(day, MetricActiveEnergy, 150+rng.Float64()*500)
		s.SetScalar(day, MetricHeartRate, 58+rng.Float64()*25)

		// One main sleep block starting the previous evening, with a
		// brief awake interruption that must not count as slept time.
		bedtime := day.Window().Start.Add(-2*time.Hour + time.Duration(rng.Intn(90))*time.Minute)
		asleep := time.Duration(5+rng.Intn(4)) * time.Hour
		s.SetSleep(day, []Sample{
			{Stage: SleepStageInBed, Start: bedtime, End: bedtime.Add(asleep + time.Hour)},
			{Stage: SleepStageAsleepCore, Start: bedtime.Add(20 * time.Minute), End: bedtime.Add(20*time.Minute + asleep/2)},
			{Stage: SleepStageAwake, Start: bedtime.Add(20*time.Minute + asleep/2), End: bedtime.Add(30*time.Minute + asleep/2)},
			{Stage: SleepStageAsleepDeep, Start: bedtime.Add(30*time.Minute + asleep/2), End: bedtime.Add(30*time.Minute + asleep)},
		})

		day = day.AddDays(1)
	}
}
