/*
Package sqlite provides a SQLite-backed implementation of attack.Store.

PURPOSE:
  Persists the attack log and the day-keyed context cache. In production
  the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

INTERFACES IMPLEMENTED:
  attack.AttackStore:  The ordered attack collection
  attack.ContextStore: Day-keyed snapshot cache with idempotent upsert

KEY TABLES:
  attacks:        One row per attack; optional columns are NULL when
                  absent, never sentinel zeroes. The embedded context
                  snapshot is stored as a JSON column: it is a value
                  copy frozen at attach time, not a foreign key into
                  daily_contexts.
  daily_contexts: One row per calendar day, replaced wholesale on upsert.

UPSERT SEMANTICS:
  daily_contexts uses INSERT ... ON CONFLICT(day) DO UPDATE with every
  metric column in the SET list, so a re-upsert replaces the whole row
  (last write wins) and an identical re-upsert is a no-op observably.

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, single
  writer, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/migraine.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - attack/store.go: Interface definitions
  - attack/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/migraine-engine/attack"
	"github.com/warp/migraine-engine/health"
)

// Store implements attack.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Attack log (mutable records, identity = caller-assigned UUID)
	CREATE TABLE IF NOT EXISTS attacks (
		id TEXT PRIMARY KEY,
		start_date TEXT NOT NULL,
		end_date TEXT,
		severity INTEGER NOT NULL,
		has_aura INTEGER NOT NULL,
		notes TEXT,
		triggers_json TEXT NOT NULL,
		linked_context_day TEXT,
		linked_context_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attacks_start_date
		ON attacks(start_date);

	-- For the backfill scan: same-day attacks lacking a snapshot
	CREATE INDEX IF NOT EXISTS idx_attacks_linked_day
		ON attacks(linked_context_day)
		WHERE linked_context_json IS NULL;

	-- Day-keyed context cache. The day IS the primary key; an upsert
	-- replaces the whole row.
	CREATE TABLE IF NOT EXISTS daily_contexts (
		day TEXT PRIMARY KEY,
		sleep_hours REAL,
		steps REAL,
		distance_km REAL,
		active_energy_kcal REAL,
		avg_heart_rate_bpm REAL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ATTACK STORE
// =============================================================================

// Append adds a new attack row.
func (s *Store) Append(ctx context.Context, a attack.Attack) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cols, err := attackColumns(a)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attacks
			(id, start_date, end_date, severity, has_aura, notes,
			 triggers_json, linked_context_day, linked_context_json,
			 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), cols.start, cols.end, a.Severity, boolInt(a.HasAura),
		cols.notes, cols.triggers, cols.linkedDay, cols.linkedJSON, now, now)
	if err != nil {
		return fmt.Errorf("insert attack: %w", err)
	}
	return nil
}

// Replace swaps the row with the same identity.
func (s *Store) Replace(ctx context.Context, a attack.Attack) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cols, err := attackColumns(a)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := s.db.ExecContext(ctx, `
		UPDATE attacks SET
			start_date = ?, end_date = ?, severity = ?, has_aura = ?,
			notes = ?, triggers_json = ?, linked_context_day = ?,
			linked_context_json = ?, updated_at = ?
		WHERE id = ?`,
		cols.start, cols.end, a.Severity, boolInt(a.HasAura),
		cols.notes, cols.triggers, cols.linkedDay, cols.linkedJSON, now,
		a.ID.String())
	if err != nil {
		return fmt.Errorf("update attack: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return attack.ErrAttackNotFound
	}
	return nil
}

// Delete removes a row by identity; absent identity is a no-op.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM attacks WHERE id = ?`, id.String())
	if err != nil {
		return false, fmt.Errorf("delete attack: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get returns one attack by identity.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (attack.Attack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, start_date, end_date, severity, has_aura, notes,
		       triggers_json, linked_context_day, linked_context_json
		FROM attacks WHERE id = ?`, id.String())

	a, err := scanAttack(row)
	if err == sql.ErrNoRows {
		return attack.Attack{}, attack.ErrAttackNotFound
	}
	return a, err
}

// List returns all attacks ordered by start date.
func (s *Store) List(ctx context.Context) ([]attack.Attack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, start_date, end_date, severity, has_aura, notes,
		       triggers_json, linked_context_day, linked_context_json
		FROM attacks ORDER BY start_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("list attacks: %w", err)
	}
	defer rows.Close()

	var out []attack.Attack
	for rows.Next() {
		a, err := scanAttack(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// CONTEXT STORE
// =============================================================================

// UpsertContext replaces the row for dc.Day wholesale.
func (s *Store) UpsertContext(ctx context.Context, dc health.DailyContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_contexts
			(day, sleep_hours, steps, distance_km, active_energy_kcal,
			 avg_heart_rate_bpm, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			sleep_hours = excluded.sleep_hours,
			steps = excluded.steps,
			distance_km = excluded.distance_km,
			active_energy_kcal = excluded.active_energy_kcal,
			avg_heart_rate_bpm = excluded.avg_heart_rate_bpm,
			updated_at = excluded.updated_at`,
		dc.Day.String(), dc.SleepHours, dc.Steps, dc.DistanceKm,
		dc.ActiveEnergyKcal, dc.AvgHeartRateBpm, now)
	if err != nil {
		return fmt.Errorf("upsert context: %w", err)
	}
	return nil
}

// GetContext returns the snapshot for a day, nil on a miss.
func (s *Store) GetContext(ctx context.Context, day health.DayKey) (*health.DailyContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT day, sleep_hours, steps, distance_km, active_energy_kcal,
		       avg_heart_rate_bpm
		FROM daily_contexts WHERE day = ?`, day.String())

	var (
		dayStr string
		dc     health.DailyContext
	)
	err := row.Scan(&dayStr, &dc.SleepHours, &dc.Steps, &dc.DistanceKm,
		&dc.ActiveEnergyKcal, &dc.AvgHeartRateBpm)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get context: %w", err)
	}
	dc.Day, err = health.ParseDayKey(dayStr)
	if err != nil {
		return nil, err
	}
	return &dc, nil
}

// ContextDays returns every cached day in ascending order.
func (s *Store) ContextDays(ctx context.Context) ([]health.DayKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT day FROM daily_contexts ORDER BY day ASC`)
	if err != nil {
		return nil, fmt.Errorf("list context days: %w", err)
	}
	defer rows.Close()

	var out []health.DayKey
	for rows.Next() {
		var dayStr string
		if err := rows.Scan(&dayStr); err != nil {
			return nil, err
		}
		day, err := health.ParseDayKey(dayStr)
		if err != nil {
			return nil, err
		}
		out = append(out, day)
	}
	return out, rows.Err()
}

// =============================================================================
// ROW MAPPING
// =============================================================================

type attackCols struct {
	start      string
	end        *string
	notes      *string
	triggers   string
	linkedDay  *string
	linkedJSON *string
}

func attackColumns(a attack.Attack) (attackCols, error) {
	cols := attackCols{
		start: a.StartDate.UTC().Format(time.RFC3339Nano),
		notes: a.Notes,
	}
	if a.EndDate != nil {
		end := a.EndDate.UTC().Format(time.RFC3339Nano)
		cols.end = &end
	}

	triggers := a.Triggers
	if triggers == nil {
		triggers = []string{}
	}
	tj, err := json.Marshal(triggers)
	if err != nil {
		return attackCols{}, fmt.Errorf("encode triggers: %w", err)
	}
	cols.triggers = string(tj)

	if a.LinkedContextDay != nil {
		day := a.LinkedContextDay.String()
		cols.linkedDay = &day
	}
	if a.LinkedContextSnapshot != nil {
		cj, err := json.Marshal(a.LinkedContextSnapshot)
		if err != nil {
			return attackCols{}, fmt.Errorf("encode snapshot: %w", err)
		}
		snap := string(cj)
		cols.linkedJSON = &snap
	}
	return cols, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttack(row rowScanner) (attack.Attack, error) {
	var (
		a          attack.Attack
		idStr      string
		startStr   string
		endStr     *string
		hasAura    int
		triggersJS string
		dayStr     *string
		linkedJS   *string
	)
	err := row.Scan(&idStr, &startStr, &endStr, &a.Severity, &hasAura,
		&a.Notes, &triggersJS, &dayStr, &linkedJS)
	if err != nil {
		return attack.Attack{}, err
	}

	a.ID, err = uuid.Parse(idStr)
	if err != nil {
		return attack.Attack{}, fmt.Errorf("parse attack id: %w", err)
	}
	a.StartDate, err = time.Parse(time.RFC3339Nano, startStr)
	if err != nil {
		return attack.Attack{}, fmt.Errorf("parse start date: %w", err)
	}
	if endStr != nil {
		end, err := time.Parse(time.RFC3339Nano, *endStr)
		if err != nil {
			return attack.Attack{}, fmt.Errorf("parse end date: %w", err)
		}
		a.EndDate = &end
	}
	a.HasAura = hasAura != 0

	if err := json.Unmarshal([]byte(triggersJS), &a.Triggers); err != nil {
		return attack.Attack{}, fmt.Errorf("decode triggers: %w", err)
	}
	if len(a.Triggers) == 0 {
		a.Triggers = nil
	}

	if dayStr != nil {
		day, err := health.ParseDayKey(*dayStr)
		if err != nil {
			return attack.Attack{}, err
		}
		a.LinkedContextDay = &day
	}
	if linkedJS != nil {
		var dc health.DailyContext
		if err := json.Unmarshal([]byte(*linkedJS), &dc); err != nil {
			return attack.Attack{}, fmt.Errorf("decode snapshot: %w", err)
		}
		a.LinkedContextSnapshot = &dc
	}
	return a, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
