/*
store.go - Persistence interfaces for attacks and daily contexts

PURPOSE:
  Defines the interface between the tracker and the database. Different
  implementations can use SQLite or in-memory storage; the tracker only
  sees these contracts.

KEY INTERFACES:
  AttackStore:  The ordered attack collection (append, replace, delete)
  ContextStore: The day-keyed snapshot cache (idempotent upsert)
  Store:        Both together, as one backend provides them

MUTATION DISCIPLINE:
  Stores do not serialize the linkage protocol; the tracker does. The
  backfill pass reads the log then writes individual records, and that
  read-then-write must not interleave with a concurrent Add, so every
  tracker mutation runs under one lock. Store-level locking only protects
  the structures themselves.

COPY SEMANTICS:
  Implementations return clones. A caller holding a returned Attack or
  DailyContext can never mutate the stored canonical copy.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - attack/store: In-memory for testing/dev

SEE ALSO:
  - tracker.go: The single writer driving these interfaces
*/
package attack

import (
	"context"

	"github.com/google/uuid"
	"github.com/warp/migraine-engine/health"
)

// =============================================================================
// ATTACK STORE - The ordered attack collection
// =============================================================================

// AttackStore persists attack records.
type AttackStore interface {
	// Append adds a new record. The identity must not already exist.
	Append(ctx context.Context, a Attack) error

	// Replace swaps the stored record with the same identity.
	// Returns ErrAttackNotFound if the identity is absent.
	Replace(ctx context.Context, a Attack) error

	// Delete removes the record with the given identity. Deleting an
	// absent identity is a no-op, not an error; removed reports whether
	// anything was actually deleted.
	Delete(ctx context.Context, id uuid.UUID) (removed bool, err error)

	// Get returns the record with the given identity, or ErrAttackNotFound.
	Get(ctx context.Context, id uuid.UUID) (Attack, error)

	// List returns all records ordered by start date.
	List(ctx context.Context) ([]Attack, error)
}

// =============================================================================
// CONTEXT STORE - Day-keyed snapshot cache
// =============================================================================

// ContextStore maps calendar days to their most recently aggregated
// snapshot.
type ContextStore interface {
	// UpsertContext replaces any existing entry for dc.Day wholesale.
	// Last write wins; fields are never merged across upserts.
	UpsertContext(ctx context.Context, dc health.DailyContext) error

	// GetContext returns the snapshot for a day, or nil if none is cached.
	// A nil snapshot with a nil error is a cache miss, not a failure.
	GetContext(ctx context.Context, day health.DayKey) (*health.DailyContext, error)

	// ContextDays returns every cached day, for diagnostics.
	ContextDays(ctx context.Context) ([]health.DayKey, error)
}

// Store is the full persistence contract one backend provides.
type Store interface {
	AttackStore
	ContextStore
}
