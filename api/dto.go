/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

OPTIONALITY:
  Optional domain fields stay optional on the wire: pointers with
  omitempty, never sentinel zeroes. A snapshot with no sleep value has
  no sleep_hours key at all.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/migraine-engine/attack"
	"github.com/warp/migraine-engine/health"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// DailyContextDTO represents one day's snapshot in API responses.
type DailyContextDTO struct {
	Day              string   `json:"day"`
	SleepHours       *float64 `json:"sleep_hours,omitempty"`
	Steps            *float64 `json:"steps,omitempty"`
	DistanceKm       *float64 `json:"distance_km,omitempty"`
	ActiveEnergyKcal *float64 `json:"active_energy_kcal,omitempty"`
	AvgHeartRateBpm  *float64 `json:"avg_heart_rate_bpm,omitempty"`
}

// AttackDTO represents an attack in API responses.
type AttackDTO struct {
	ID               string           `json:"id"`
	StartDate        string           `json:"start_date"`
	EndDate          *string          `json:"end_date,omitempty"`
	Severity         int              `json:"severity"`
	HasAura          bool             `json:"has_aura"`
	Notes            *string          `json:"notes,omitempty"`
	Triggers         []string         `json:"triggers,omitempty"`
	LinkedContextDay *string          `json:"linked_context_day,omitempty"`
	LinkedContext    *DailyContextDTO `json:"linked_context,omitempty"`
}

// LogAttackRequest is the body for logging an attack. ID is optional; a
// fresh one is assigned when absent so retries can pin it instead.
type LogAttackRequest struct {
	ID        *string  `json:"id,omitempty"`
	StartDate string   `json:"start_date"`
	EndDate   *string  `json:"end_date,omitempty"`
	Severity  int      `json:"severity"`
	HasAura   bool     `json:"has_aura"`
	Notes     *string  `json:"notes,omitempty"`
	Triggers  []string `json:"triggers,omitempty"`
}

// UpdateAttackRequest is the body for editing an attack. Linkage fields
// are not accepted: the tracker owns them.
type UpdateAttackRequest struct {
	StartDate string   `json:"start_date"`
	EndDate   *string  `json:"end_date,omitempty"`
	Severity  int      `json:"severity"`
	HasAura   bool     `json:"has_aura"`
	Notes     *string  `json:"notes,omitempty"`
	Triggers  []string `json:"triggers,omitempty"`
}

// ReportDTO is the read-only report export for a date range.
type ReportDTO struct {
	From            string      `json:"from"`
	To              string      `json:"to"`
	Attacks         []AttackDTO `json:"attacks"`
	AttackCount     int         `json:"attack_count"`
	MigraineDays    int         `json:"migraine_days"`
	AverageSeverity *float64    `json:"average_severity,omitempty"`
}

// StatsDTO is the quick-glance stats response.
type StatsDTO struct {
	AttackCount        int  `json:"attack_count"`
	LinkedAttacks      int  `json:"linked_attacks"`
	MigraineDaysLast30 int  `json:"migraine_days_last_30"`
	ProviderAuthorized bool `json:"provider_authorized"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ID string `json:"id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toContextDTO(dc health.DailyContext) DailyContextDTO {
	return DailyContextDTO{
		Day:              dc.Day.String(),
		SleepHours:       dc.SleepHours,
		Steps:            dc.Steps,
		DistanceKm:       dc.DistanceKm,
		ActiveEnergyKcal: dc.ActiveEnergyKcal,
		AvgHeartRateBpm:  dc.AvgHeartRateBpm,
	}
}

func toAttackDTO(a attack.Attack) AttackDTO {
	dto := AttackDTO{
		ID:        a.ID.String(),
		StartDate: a.StartDate.Format(time.RFC3339),
		Severity:  a.Severity,
		HasAura:   a.HasAura,
		Notes:     a.Notes,
		Triggers:  a.Triggers,
	}
	if a.EndDate != nil {
		end := a.EndDate.Format(time.RFC3339)
		dto.EndDate = &end
	}
	if a.LinkedContextDay != nil {
		day := a.LinkedContextDay.String()
		dto.LinkedContextDay = &day
	}
	if a.LinkedContextSnapshot != nil {
		ctx := toContextDTO(*a.LinkedContextSnapshot)
		dto.LinkedContext = &ctx
	}
	return dto
}

func toAttackDTOs(attacks []attack.Attack) []AttackDTO {
	dtos := make([]AttackDTO, len(attacks))
	for i, a := range attacks {
		dtos[i] = toAttackDTO(a)
	}
	return dtos
}
