package fleet

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/skyvern-ops/sora-engine/internal/geo"
	"github.com/skyvern-ops/sora-engine/internal/storage/sqlite"
	"github.com/skyvern-ops/sora-engine/pkg/logger"
)

// Assignments is the crew-and-equipment slice of the assessment context.
type Assignments struct {
	Personnel []PilotSummary `json:"personnel"`
	Drones    []Asset        `json:"drones"`
	Equipment []Asset        `json:"equipment"`
}

// Loader assembles the fleet/personnel context for a mission. The mission
// snapshot is loaded up front (the gatherers need its coordinates); the
// heavier assignment scan runs concurrently with the gatherers.
type Loader struct {
	missions *sqlite.MissionStorage
	fleet    *sqlite.FleetStorage
	logger   *logger.Logger
}

// NewLoader creates a new fleet context loader
func NewLoader(missions *sqlite.MissionStorage, fleet *sqlite.FleetStorage, logger *logger.Logger) *Loader {
	return &Loader{
		missions: missions,
		fleet:    fleet,
		logger:   logger.Named("fleet-loader"),
	}
}

// Mission reads the mission row and derives the snapshot the engine works
// from. A missing mission surfaces as sqlite.ErrNotFound.
func (l *Loader) Mission(missionID int64) (*Mission, error) {
	record, err := l.missions.GetMissionByID(missionID)
	if err != nil {
		return nil, err
	}

	mission := Mission{
		ID:          record.ID,
		CompanyID:   record.CompanyID,
		Title:       record.Title,
		Location:    record.Location,
		StartTime:   record.StartTime,
		EndTime:     record.EndTime,
		RiskTier:    record.RiskTier,
		CustomerRef: record.CustomerRef,
	}

	if record.RouteJSON != "" {
		var route []geo.Coordinate
		if err := json.Unmarshal([]byte(record.RouteJSON), &route); err == nil {
			mission.Route = route
		} else {
			l.logger.Warn("Unparseable mission route, continuing without it",
				logger.Int64("mission_id", missionID),
				logger.Error(err))
		}
	}

	// The first route point stands in as the representative coordinate when
	// the mission has no explicit one.
	if len(mission.Route) > 0 {
		first := mission.Route[0]
		mission.Coordinate = &first
		mission.RouteLengthKM = geo.RouteLengthKm(mission.Route)
	}

	if record.SoraConfig != nil {
		var cfg SoraConfig
		if err := json.Unmarshal([]byte(*record.SoraConfig), &cfg); err == nil {
			mission.SoraConfig = &cfg
		}
	}

	return &mission, nil
}

// Assignments reads the crew and assets for a mission and derives per-pilot
// flight statistics. Flight-log or competency read failures degrade to empty
// statistics rather than failing the load.
func (l *Loader) Assignments(missionID, droneID int64, now time.Time) (*Assignments, error) {
	personnel, err := l.fleet.GetAssignedPersonnel(missionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assigned personnel: %w", err)
	}

	assets, err := l.fleet.GetAssignedAssets(missionID, droneID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assigned assets: %w", err)
	}

	result := &Assignments{}

	for i, p := range personnel {
		summary := PilotSummary{
			Ref:         fmt.Sprintf("pilot-%d", i+1),
			RoleTitle:   p.RoleTitle,
			FlightHours: p.FlightHours,
		}

		logs, err := l.fleet.GetFlightLogs(p.ID)
		if err != nil {
			l.logger.Warn("Failed to load flight logs",
				logger.Int64("personnel_id", p.ID),
				logger.Error(err))
		} else {
			summary.Statistics = computeStatistics(logs, now)
		}

		valid, err := l.fleet.CountValidCompetencies(p.ID, now)
		if err != nil {
			l.logger.Warn("Failed to count competencies",
				logger.Int64("personnel_id", p.ID),
				logger.Error(err))
		} else {
			summary.ValidCompetencies = valid
		}

		result.Personnel = append(result.Personnel, summary)
	}

	for _, a := range assets {
		asset := Asset{
			Kind:            a.Kind,
			Model:           a.Model,
			Serial:          a.Serial,
			Status:          a.Status,
			FlightHours:     a.FlightHours,
			LastMaintenance: a.LastMaintenance,
			NextMaintenance: a.NextMaintenance,
			Available:       a.Available,
		}
		if a.Kind == "drone" {
			result.Drones = append(result.Drones, asset)
		} else {
			result.Equipment = append(result.Equipment, asset)
		}
	}

	l.logger.Debug("Loaded fleet assignments",
		logger.Int64("mission_id", missionID),
		logger.Int("personnel", len(result.Personnel)),
		logger.Int("drones", len(result.Drones)),
		logger.Int("equipment", len(result.Equipment)))

	return result, nil
}

// computeStatistics derives the recency statistics from flight-log rows.
func computeStatistics(logs []*sqlite.FlightLogRecord, now time.Time) FlightStatistics {
	stats := FlightStatistics{}
	cutoff30 := now.AddDate(0, 0, -30)
	cutoff90 := now.AddDate(0, 0, -90)

	for _, log := range logs {
		stats.TotalFlights++
		stats.TotalMinutes += log.DurationMinutes
		if log.FlownAt.After(cutoff30) {
			stats.FlightsLast30Days++
		}
		if log.FlownAt.After(cutoff90) {
			stats.FlightsLast90Days++
		}
		if stats.LastFlight == nil || log.FlownAt.After(*stats.LastFlight) {
			t := log.FlownAt
			stats.LastFlight = &t
		}
	}

	if stats.LastFlight != nil {
		days := int(now.Sub(*stats.LastFlight).Hours() / 24)
		stats.DaysSinceLastFlight = &days
	}

	return stats
}
