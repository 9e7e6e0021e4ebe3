package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/skyvern-ops/sora-engine/pkg/logger"
)

// PolicyStorage reads company safety-policy rows. Read-only to the engine.
type PolicyStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewPolicyStorage creates a new SQLite policy storage
func NewPolicyStorage(db *sql.DB, logger *logger.Logger) *PolicyStorage {
	storage := &PolicyStorage{
		db:     db,
		logger: logger.Named("sqlite-policy"),
	}

	if err := storage.initDB(); err != nil {
		logger.Error("Failed to initialize policy storage", Error(err))
	}

	return storage
}

func (s *PolicyStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS company_policies (
			company_id INTEGER PRIMARY KEY,
			max_wind_speed_ms REAL NOT NULL,
			max_gust_speed_ms REAL NOT NULL,
			min_visibility_km REAL NOT NULL,
			min_temperature_c REAL NOT NULL,
			max_temperature_c REAL NOT NULL,
			max_altitude_agl_m REAL NOT NULL,
			allow_bvlos INTEGER NOT NULL DEFAULT 0,
			allow_night_flight INTEGER NOT NULL DEFAULT 0,
			max_pilot_inactivity_days INTEGER NOT NULL DEFAULT 0,
			max_population_density REAL NOT NULL DEFAULT 0,
			require_backup_battery INTEGER NOT NULL DEFAULT 0,
			require_observer INTEGER NOT NULL DEFAULT 0,
			operative_restrictions TEXT NOT NULL DEFAULT '',
			policy_notes TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create company_policies table: %w", err)
	}
	return nil
}

// GetPolicy returns the stored policy for a company, or ErrNotFound when the
// company has never configured one.
func (s *PolicyStorage) GetPolicy(companyID int64) (*PolicyRecord, error) {
	row := s.db.QueryRow(
		`SELECT company_id, max_wind_speed_ms, max_gust_speed_ms, min_visibility_km,
			min_temperature_c, max_temperature_c, max_altitude_agl_m,
			allow_bvlos, allow_night_flight, max_pilot_inactivity_days,
			max_population_density, require_backup_battery, require_observer,
			operative_restrictions, policy_notes
		FROM company_policies
		WHERE company_id = ?`,
		companyID,
	)

	var record PolicyRecord
	var allowBVLOS, allowNight, requireBattery, requireObserver int

	if err := row.Scan(
		&record.CompanyID,
		&record.MaxWindSpeedMS,
		&record.MaxGustSpeedMS,
		&record.MinVisibilityKM,
		&record.MinTemperatureC,
		&record.MaxTemperatureC,
		&record.MaxAltitudeAGLM,
		&allowBVLOS,
		&allowNight,
		&record.MaxPilotInactivity,
		&record.MaxPopulationDensity,
		&requireBattery,
		&requireObserver,
		&record.OperativeRestrictions,
		&record.PolicyNotes,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query company policy: %w", err)
	}

	record.AllowBVLOS = allowBVLOS != 0
	record.AllowNightFlight = allowNight != 0
	record.RequireBackupBattery = requireBattery != 0
	record.RequireObserver = requireObserver != 0

	return &record, nil
}
