package policy

import (
	"errors"
	"strings"

	"github.com/skyvern-ops/sora-engine/internal/config"
	"github.com/skyvern-ops/sora-engine/internal/storage/sqlite"
	"github.com/skyvern-ops/sora-engine/pkg/logger"
)

// Thresholds is the single set of absolute operating limits injected into
// both the hard-stop evaluator and the delegate prompt. Keeping one struct
// for both consumers is what stops the two from silently diverging.
type Thresholds struct {
	MaxWindSpeedMS        float64  `json:"max_wind_speed_ms"`
	MaxGustSpeedMS        float64  `json:"max_gust_speed_ms"`
	MinVisibilityKM       float64  `json:"min_visibility_km"`
	MinTemperatureC       float64  `json:"min_temperature_c"`
	MaxTemperatureC       float64  `json:"max_temperature_c"`
	MaxAltitudeAGLM       float64  `json:"max_altitude_agl_m"`
	AllowBVLOS            bool     `json:"allow_bvlos"`
	AllowNightFlight      bool     `json:"allow_night_flight"`
	MaxPilotInactivity    int      `json:"max_pilot_inactivity_days"`
	MaxPopulationDensity  float64  `json:"max_population_density"`
	RequireBackupBattery  bool     `json:"require_backup_battery"`
	RequireObserver       bool     `json:"require_observer"`
	OperativeRestrictions string   `json:"operative_restrictions,omitempty"`
	PolicyNotes           []string `json:"policy_notes,omitempty"`
	Source                string   `json:"source"` // "company" or "defaults"
}

// Loader resolves the effective safety policy for a company: the stored
// company row when one exists, the configured defaults otherwise. Always
// best-effort; a storage error falls back to defaults.
type Loader struct {
	storage  *sqlite.PolicyStorage
	defaults config.PolicyDefaults
	logger   *logger.Logger
}

// NewLoader creates a new policy loader
func NewLoader(storage *sqlite.PolicyStorage, defaults config.PolicyDefaults, logger *logger.Logger) *Loader {
	return &Loader{
		storage:  storage,
		defaults: defaults,
		logger:   logger.Named("policy-loader"),
	}
}

// Load returns the effective thresholds for a company.
func (l *Loader) Load(companyID int64) *Thresholds {
	record, err := l.storage.GetPolicy(companyID)
	if err != nil {
		if !errors.Is(err, sqlite.ErrNotFound) {
			l.logger.Warn("Failed to load company policy, using defaults",
				logger.Int64("company_id", companyID),
				logger.Error(err))
		}
		return l.defaultThresholds()
	}

	thresholds := &Thresholds{
		MaxWindSpeedMS:        record.MaxWindSpeedMS,
		MaxGustSpeedMS:        record.MaxGustSpeedMS,
		MinVisibilityKM:       record.MinVisibilityKM,
		MinTemperatureC:       record.MinTemperatureC,
		MaxTemperatureC:       record.MaxTemperatureC,
		MaxAltitudeAGLM:       record.MaxAltitudeAGLM,
		AllowBVLOS:            record.AllowBVLOS,
		AllowNightFlight:      record.AllowNightFlight,
		MaxPilotInactivity:    record.MaxPilotInactivity,
		MaxPopulationDensity:  record.MaxPopulationDensity,
		RequireBackupBattery:  record.RequireBackupBattery,
		RequireObserver:       record.RequireObserver,
		OperativeRestrictions: record.OperativeRestrictions,
		Source:                "company",
	}

	for _, note := range strings.Split(record.PolicyNotes, "\n") {
		if note = strings.TrimSpace(note); note != "" {
			thresholds.PolicyNotes = append(thresholds.PolicyNotes, note)
		}
	}

	return thresholds
}

func (l *Loader) defaultThresholds() *Thresholds {
	d := l.defaults
	return &Thresholds{
		MaxWindSpeedMS:       d.MaxWindSpeedMS,
		MaxGustSpeedMS:       d.MaxGustSpeedMS,
		MinVisibilityKM:      d.MinVisibilityKM,
		MinTemperatureC:      d.MinTemperatureC,
		MaxTemperatureC:      d.MaxTemperatureC,
		MaxAltitudeAGLM:      d.MaxAltitudeAGLM,
		AllowBVLOS:           d.AllowBVLOS,
		AllowNightFlight:     d.AllowNightFlight,
		MaxPilotInactivity:   d.MaxPilotInactivity,
		MaxPopulationDensity: d.MaxPopulationDensity,
		RequireBackupBattery: d.RequireBackupBattery,
		RequireObserver:      d.RequireObserver,
		Source:               "defaults",
	}
}
