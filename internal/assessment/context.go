package assessment

import (
	"time"

	"github.com/skyvern-ops/sora-engine/internal/airspace"
	"github.com/skyvern-ops/sora-engine/internal/fleet"
	"github.com/skyvern-ops/sora-engine/internal/landuse"
	"github.com/skyvern-ops/sora-engine/internal/policy"
	"github.com/skyvern-ops/sora-engine/internal/population"
	"github.com/skyvern-ops/sora-engine/internal/weather"
)

// Risk categories scored by every assessment.
const (
	CategoryWeather           = "weather"
	CategoryAirspace          = "airspace"
	CategoryEquipment         = "equipment"
	CategoryPilotExperience   = "pilot_experience"
	CategoryMissionComplexity = "mission_complexity"
)

// Categories lists the five risk categories in reporting order.
var Categories = []string{
	CategoryWeather,
	CategoryAirspace,
	CategoryEquipment,
	CategoryPilotExperience,
	CategoryMissionComplexity,
}

// Per-category decisions. BETINGET means the category passes only with
// conditions attached.
const (
	DecisionGo          = "GO"
	DecisionConditional = "BETINGET"
	DecisionNoGo        = "NO-GO"
)

// Overall recommendations.
const (
	RecommendationGo      = "go"
	RecommendationCaution = "caution"
	RecommendationNoGo    = "no-go"
)

// Disclaimer attached to every assessment result.
const Disclaimer = "Denne risikovurderingen er et beslutningsstøtteverktøy. Fartøysjefen har alltid det endelige ansvaret for at flygingen gjennomføres trygt og i henhold til gjeldende regelverk."

// PilotInput holds the operator-declared parameters for one assessment
// request. Created fresh per request, persisted only inside the assessment
// it produced.
type PilotInput struct {
	FlightAltitudeM      float64 `json:"flight_altitude_m"`
	OperationType        string  `json:"operation_type"`
	IsVLOS               bool    `json:"is_vlos"`
	ObserverCount        int     `json:"observer_count"`
	ATCCoordination      bool    `json:"atc_coordination"`
	ProximityToPeople    string  `json:"proximity_to_people"`
	CriticalInfraNearby  bool    `json:"critical_infrastructure_nearby"`
	HasBackupLandingSite bool    `json:"has_backup_landing_site"`
	HasBackupBattery     bool    `json:"has_backup_battery"`
	SkipWeather          bool    `json:"skip_weather"`
}

// Context is the merged, read-only input to the hard-stop evaluator and the
// scoring delegate. Gatherer outputs are explicit optionals: nil means that
// source produced nothing.
type Context struct {
	Mission    fleet.Mission           `json:"mission"`
	PilotInput PilotInput              `json:"pilot_input"`
	Weather    *weather.Snapshot       `json:"weather,omitempty"`
	Airspace   []airspace.Warning      `json:"airspace_warnings"`
	LandUse    *landuse.Classification `json:"land_use,omitempty"`
	Population *population.Density     `json:"population_density,omitempty"`
	Personnel  []fleet.PilotSummary    `json:"personnel"`
	Drones     []fleet.Asset           `json:"drones"`
	Equipment  []fleet.Asset           `json:"equipment"`
	Thresholds policy.Thresholds       `json:"policy_thresholds"`
}

// CategoryScore is one scored risk category. Score is 1-10, 10 safest.
type CategoryScore struct {
	Category string   `json:"category"`
	Score    int      `json:"score"`
	Decision string   `json:"go_decision"`
	Factors  []string `json:"factors,omitempty"`
	Concerns []string `json:"concerns,omitempty"`
}

// Result is the structured, auditable outcome of one assessment run.
// Immutable once produced; a re-assessment creates a new Result.
type Result struct {
	ID                string          `json:"id"`
	MissionID         int64           `json:"mission_id"`
	OverallScore      int             `json:"overall_score"`
	Recommendation    string          `json:"recommendation"`
	HardStopTriggered bool            `json:"hard_stop_triggered"`
	HardStopReason    *string         `json:"hard_stop_reason,omitempty"`
	Categories        []CategoryScore `json:"categories"`
	Recommendations   []string        `json:"recommendations"`
	Prerequisites     []string        `json:"prerequisites"`
	Summary           string          `json:"summary"`
	Disclaimer        string          `json:"disclaimer"`
	Saved             bool            `json:"saved"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Category returns the score entry for the given category, or nil.
func (r *Result) Category(name string) *CategoryScore {
	for i := range r.Categories {
		if r.Categories[i].Category == name {
			return &r.Categories[i]
		}
	}
	return nil
}
