// Package store provides in-memory Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/migraine-engine/attack"
	"github.com/warp/migraine-engine/health"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements attack.Store with maps. Safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	attacks  map[uuid.UUID]attack.Attack
	contexts map[string]health.DailyContext // keyed by DayKey.String()
}

func NewMemory() *Memory {
	return &Memory{
		attacks:  make(map[uuid.UUID]attack.Attack),
		contexts: make(map[string]health.DailyContext),
	}
}

// -----------------------------------------------------------------------------
// AttackStore
// -----------------------------------------------------------------------------

func (m *Memory) Append(_ context.Context, a attack.Attack) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attacks[a.ID] = a.Clone()
	return nil
}

func (m *Memory) Replace(_ context.Context, a attack.Attack) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attacks[a.ID]; !ok {
		return attack.ErrAttackNotFound
	}
	m.attacks[a.ID] = a.Clone()
	return nil
}

func (m *Memory) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attacks[id]; !ok {
		return false, nil
	}
	delete(m.attacks, id)
	return true, nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (attack.Attack, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attacks[id]
	if !ok {
		return attack.Attack{}, attack.ErrAttackNotFound
	}
	return a.Clone(), nil
}

func (m *Memory) List(_ context.Context) ([]attack.Attack, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]attack.Attack, 0, len(m.attacks))
	for _, a := range m.attacks {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, nil
}

// -----------------------------------------------------------------------------
// ContextStore
// -----------------------------------------------------------------------------

func (m *Memory) UpsertContext(_ context.Context, dc health.DailyContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contexts[dc.Day.String()] = dc.Clone()
	return nil
}

func (m *Memory) GetContext(_ context.Context, day health.DayKey) (*health.DailyContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dc, ok := m.contexts[day.String()]
	if !ok {
		return nil, nil
	}
	clone := dc.Clone()
	return &clone, nil
}

func (m *Memory) ContextDays(_ context.Context) ([]health.DayKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]health.DayKey, 0, len(m.contexts))
	for _, dc := range m.contexts {
		out = append(out, dc.Day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}
