package fleet

import (
	"time"

	"github.com/skyvern-ops/sora-engine/internal/geo"
)

// Asset status tiers, as stored in the fleet register.
const (
	StatusOperational = "grønn"
	StatusDegraded    = "gul"
	StatusGrounded    = "rød"
)

// Mission is the engine-facing snapshot of a planned mission, captured by
// value so later mission edits never retroactively alter an assessment.
type Mission struct {
	ID            int64            `json:"id"`
	CompanyID     int64            `json:"company_id"`
	Title         string           `json:"title"`
	Location      string           `json:"location"`
	StartTime     time.Time        `json:"start_time"`
	EndTime       time.Time        `json:"end_time"`
	RiskTier      string           `json:"risk_tier"`
	Route         []geo.Coordinate `json:"route,omitempty"`
	Coordinate    *geo.Coordinate  `json:"coordinate,omitempty"`
	RouteLengthKM float64          `json:"route_length_km"`
	CustomerRef   *string          `json:"customer_ref,omitempty"`
	SoraConfig    *SoraConfig      `json:"sora_config,omitempty"`
}

// SoraConfig is a prior SORA record's distances, used to size the land-use
// bounding-box buffer.
type SoraConfig struct {
	ContingencyDistanceM float64 `json:"contingency_distance_m"`
	GroundRiskDistanceM  float64 `json:"ground_risk_distance_m"`
}

// FlightStatistics is derived per pilot by scanning the flight log. Recency
// is computed, never stored.
type FlightStatistics struct {
	TotalFlights        int        `json:"total_flights"`
	TotalMinutes        int        `json:"total_minutes"`
	FlightsLast30Days   int        `json:"flights_last_30_days"`
	FlightsLast90Days   int        `json:"flights_last_90_days"`
	LastFlight          *time.Time `json:"last_flight,omitempty"`
	DaysSinceLastFlight *int       `json:"days_since_last_flight,omitempty"`
}

// PilotSummary is the crew view passed across the AI boundary: an anonymized
// identifier plus role and experience, never a personal name.
type PilotSummary struct {
	Ref               string           `json:"ref"` // anonymized, e.g. "pilot-1"
	RoleTitle         string           `json:"role_title"`
	FlightHours       float64          `json:"flight_hours"`
	ValidCompetencies int              `json:"valid_competencies"`
	Statistics        FlightStatistics `json:"statistics"`
}

// Asset is an assigned drone or piece of equipment.
type Asset struct {
	Kind            string     `json:"kind"`
	Model           string     `json:"model"`
	Serial          string     `json:"serial"`
	Status          string     `json:"status"`
	FlightHours     float64    `json:"flight_hours"`
	LastMaintenance *time.Time `json:"last_maintenance,omitempty"`
	NextMaintenance *time.Time `json:"next_maintenance,omitempty"`
	Available       bool       `json:"available"`
}
