/*
tracker.go - The single-writer composition root for attacks and contexts

PURPOSE:
  Owns every mutation to the attack log and the context store, and the
  linkage protocol between them. Attacks and their daily context can
  arrive in either order; this file makes both orders converge to the
  same linked state.

THE LINKAGE PROTOCOL:
  Add:           Derive the linked day from the start date. If the day's
                 context is already cached, attach a copy now (fast path).
                 Otherwise leave the snapshot absent for backfill.
  UpsertContext: Store the snapshot (last write wins), then scan the log
                 once and attach a copy to every same-day attack that has
                 none yet (backfill). One-shot: settled attacks are
                 skipped even when newer context arrives for the day.
  LogAttack:     The "log attack now" flow: authorized -> aggregate ->
                 upsert (which backfills) -> append (fast path attaches).
                 Unauthorized or failed aggregation saves the attack
                 without context; saving never blocks on health data.

MUTATION DISCIPLINE:
  Every mutation runs under one mutex. The backfill pass reads the log
  then writes records, and that must not interleave with a concurrent
  Add, so the lock covers the whole pass. Aggregation (the slow part)
  runs outside the lock.

NOTIFICATIONS:
  State changes are published to subscribers over explicit channels,
  replacing implicit framework observation. Delivery is best-effort:
  a subscriber that stops draining loses events, not the tracker.

SEE ALSO:
  - store.go: The persistence contracts driven here
  - health/aggregator.go: Produces the snapshots being linked
*/
package attack

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/migraine-engine/health"
)

// =============================================================================
// CHANGE EVENTS
// =============================================================================

type EventKind string

const (
	EventAttackAdded   EventKind = "attack_added"
	EventAttackUpdated EventKind = "attack_updated"
	EventAttackDeleted EventKind = "attack_deleted"
	EventContextStored EventKind = "context_stored"
	EventAttackLinked  EventKind = "attack_linked" // snapshot attached by backfill
)

// Event describes one observable state change.
type Event struct {
	Kind     EventKind
	AttackID uuid.UUID      // zero for context-only events
	Day      *health.DayKey // set for context and link events
}

const subscriberBuffer = 16

// =============================================================================
// TRACKER
// =============================================================================

// Tracker is the composition root owning the attack log, the context
// store, and the linkage between them.
type Tracker struct {
	store      Store
	aggregator *health.Aggregator
	gate       health.AuthorizationGate
	logger     *slog.Logger

	// mu serializes every mutation, including the backfill scan.
	mu sync.Mutex

	subMu  sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewTracker wires a tracker over its collaborators. aggregator and gate
// may be nil for deployments without a health provider; LogAttack then
// always saves without context.
func NewTracker(store Store, aggregator *health.Aggregator, gate health.AuthorizationGate, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:      store,
		aggregator: aggregator,
		gate:       gate,
		logger:     logger,
		subs:       make(map[int]chan Event),
	}
}

// Subscribe registers a change listener. The returned cancel func must be
// called when done. Events are dropped, not blocked on, if the channel
// buffer fills.
func (t *Tracker) Subscribe() (<-chan Event, func()) {
	t.subMu.Lock()
	defer t.subMu.Unlock()

	id := t.nextID
	t.nextID++
	ch := make(chan Event, subscriberBuffer)
	t.subs[id] = ch

	cancel := func() {
		t.subMu.Lock()
		defer t.subMu.Unlock()
		if c, ok := t.subs[id]; ok {
			delete(t.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (t *Tracker) publish(e Event) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	for _, ch := range t.subs {
		select {
		case ch <- e:
		default: // subscriber not draining
		}
	}
}

// =============================================================================
// ATTACK LIFECYCLE
// =============================================================================

// Add validates and appends an attack. The linked day is derived from the
// start date when unset; if that day's context is already cached, a copy
// is attached immediately so no backfill pass is needed for it.
func (t *Tracker) Add(ctx context.Context, a Attack) (Attack, error) {
	a = a.Clone()
	day := a.Day()
	if a.LinkedContextDay == nil {
		a.LinkedContextDay = &day
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if a.LinkedContextSnapshot == nil {
		dc, err := t.store.GetContext(ctx, day)
		if err != nil {
			return Attack{}, fmt.Errorf("context lookup: %w", err)
		}
		if dc != nil {
			snap := dc.Clone()
			a.LinkedContextSnapshot = &snap
		}
	}

	if err := a.Validate(); err != nil {
		return Attack{}, err
	}
	if err := t.store.Append(ctx, a); err != nil {
		return Attack{}, fmt.Errorf("append attack: %w", err)
	}

	t.logger.Debug("attack added", "id", a.ID, "day", day.String(),
		"linked", a.LinkedContextSnapshot != nil)
	t.publish(Event{Kind: EventAttackAdded, AttackID: a.ID, Day: &day})
	return a, nil
}

// Update replaces the stored record matching a.ID. The linkage fields are
// re-derived here, not taken from the caller: if the edit moved the start
// to a different day, the stale snapshot is dropped and the new day's
// context is attached when cached (otherwise the attack becomes eligible
// for backfill again). Validation failures leave the stored record
// untouched.
func (t *Tracker) Update(ctx context.Context, a Attack) (Attack, error) {
	a = a.Clone()

	t.mu.Lock()
	defer t.mu.Unlock()

	existing, err := t.store.Get(ctx, a.ID)
	if err != nil {
		return Attack{}, err
	}

	day := a.Day()
	a.LinkedContextDay = &day
	a.LinkedContextSnapshot = nil
	if existing.LinkedContextSnapshot != nil && existing.Day().Equal(day) {
		// Same day: the one-shot attach stands.
		snap := existing.LinkedContextSnapshot.Clone()
		a.LinkedContextSnapshot = &snap
	}
	if a.LinkedContextSnapshot == nil {
		dc, err := t.store.GetContext(ctx, day)
		if err != nil {
			return Attack{}, fmt.Errorf("context lookup: %w", err)
		}
		if dc != nil {
			snap := dc.Clone()
			a.LinkedContextSnapshot = &snap
		}
	}

	if err := a.Validate(); err != nil {
		return Attack{}, err
	}
	if err := t.store.Replace(ctx, a); err != nil {
		return Attack{}, fmt.Errorf("replace attack: %w", err)
	}

	t.publish(Event{Kind: EventAttackUpdated, AttackID: a.ID, Day: &day})
	return a, nil
}

// Delete removes the record matching id. Idempotent: deleting an absent
// identity is a no-op, not an error.
func (t *Tracker) Delete(ctx context.Context, id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed, err := t.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete attack: %w", err)
	}
	if removed {
		t.publish(Event{Kind: EventAttackDeleted, AttackID: id})
	}
	return nil
}

// Get returns one attack by identity.
func (t *Tracker) Get(ctx context.Context, id uuid.UUID) (Attack, error) {
	return t.store.Get(ctx, id)
}

// List returns all attacks ordered by start date.
func (t *Tracker) List(ctx context.Context) ([]Attack, error) {
	return t.store.List(ctx)
}

// =============================================================================
// CONTEXT LIFECYCLE
// =============================================================================

// UpsertContext stores a freshly aggregated snapshot (whole-value, last
// write wins) and runs the backfill pass: every attack on the same day
// that still lacks a snapshot gets a copy attached. Attacks that already
// have one are settled and skipped - deliberately one-shot, not a live
// binding. Cost is O(attacks) per upsert, fine for a single user's log.
func (t *Tracker) UpsertContext(ctx context.Context, dc health.DailyContext) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.upsertLocked(ctx, dc)
}

func (t *Tracker) upsertLocked(ctx context.Context, dc health.DailyContext) error {
	if err := t.store.UpsertContext(ctx, dc); err != nil {
		return fmt.Errorf("upsert context: %w", err)
	}
	day := dc.Day
	t.publish(Event{Kind: EventContextStored, Day: &day})

	attacks, err := t.store.List(ctx)
	if err != nil {
		return fmt.Errorf("backfill scan: %w", err)
	}

	backfilled := 0
	for _, a := range attacks {
		if a.LinkedContextSnapshot != nil {
			continue // settled
		}
		if a.LinkedContextDay == nil || !a.LinkedContextDay.Equal(day) {
			continue
		}
		snap := dc.Clone()
		a.LinkedContextSnapshot = &snap
		if err := t.store.Replace(ctx, a); err != nil {
			return fmt.Errorf("backfill attach %s: %w", a.ID, err)
		}
		backfilled++
		t.publish(Event{Kind: EventAttackLinked, AttackID: a.ID, Day: &day})
	}

	if backfilled > 0 {
		t.logger.Info("backfill attached context",
			"day", day.String(), "attacks", backfilled)
	}
	return nil
}

// Context returns the cached snapshot for a day, nil on a miss.
func (t *Tracker) Context(ctx context.Context, day health.DayKey) (*health.DailyContext, error) {
	return t.store.GetContext(ctx, day)
}

// ContextDays returns every cached day.
func (t *Tracker) ContextDays(ctx context.Context) ([]health.DayKey, error) {
	return t.store.ContextDays(ctx)
}

// RefreshContext aggregates a day's context on demand and stores it,
// running backfill. Requires an authorized provider.
func (t *Tracker) RefreshContext(ctx context.Context, day health.DayKey) (health.DailyContext, error) {
	if t.aggregator == nil {
		return health.DailyContext{}, health.ErrSourceUnavailable
	}
	if t.gate == nil || !t.gate.Authorized() {
		return health.DailyContext{}, health.ErrNotAuthorized
	}

	// Aggregation is slow; never hold the mutation lock across it.
	dc, err := t.aggregator.FetchDailyContext(ctx, day)
	if err != nil {
		return health.DailyContext{}, err
	}
	if err := t.UpsertContext(ctx, dc); err != nil {
		return health.DailyContext{}, err
	}
	return dc, nil
}

// =============================================================================
// LOG-ATTACK-NOW ORCHESTRATION
// =============================================================================

// LogAttack is the UI-originated "log attack now" flow. When the provider
// is authorized it aggregates the start day's context first, upserts it
// (backfilling any earlier same-day attacks), and appends the attack so
// the fast path attaches the snapshot. When unauthorized, or when
// aggregation cannot run, the attack is saved without context: saving
// never fails for lack of health data.
func (t *Tracker) LogAttack(ctx context.Context, a Attack) (Attack, error) {
	if err := a.Validate(); err != nil {
		return Attack{}, err
	}

	if t.aggregator != nil && t.gate != nil && t.gate.Authorized() {
		dc, err := t.aggregator.FetchDailyContext(ctx, a.Day())
		switch {
		case err == nil:
			if err := t.UpsertContext(ctx, dc); err != nil {
				return Attack{}, err
			}
		case health.IsUnavailable(err):
			t.logger.Warn("logging attack without context", "error", err)
		default:
			return Attack{}, err
		}
	}

	return t.Add(ctx, a)
}
