package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/skyvern-ops/sora-engine/pkg/logger"
)

// FleetStorage reads the personnel, asset, flight-log and competency rows
// assigned to a mission.
type FleetStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewFleetStorage creates a new SQLite fleet storage
func NewFleetStorage(db *sql.DB, logger *logger.Logger) *FleetStorage {
	storage := &FleetStorage{
		db:     db,
		logger: logger.Named("sqlite-fleet"),
	}

	if err := storage.initDB(); err != nil {
		logger.Error("Failed to initialize fleet storage", Error(err))
	}

	return storage
}

func (s *FleetStorage) initDB() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS personnel (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			role_title TEXT NOT NULL,
			flight_hours REAL NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS mission_personnel (
			mission_id INTEGER NOT NULL,
			personnel_id INTEGER NOT NULL,
			PRIMARY KEY (mission_id, personnel_id)
		)`,
		`CREATE TABLE IF NOT EXISTS assets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			model TEXT NOT NULL,
			serial TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'grønn',
			flight_hours REAL NOT NULL DEFAULT 0,
			last_maintenance TIMESTAMP,
			next_maintenance TIMESTAMP,
			available INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS mission_assets (
			mission_id INTEGER NOT NULL,
			asset_id INTEGER NOT NULL,
			PRIMARY KEY (mission_id, asset_id)
		)`,
		`CREATE TABLE IF NOT EXISTS flight_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			personnel_id INTEGER NOT NULL,
			flown_at TIMESTAMP NOT NULL,
			duration_minutes INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS competencies (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			personnel_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			expires_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_flight_logs_personnel ON flight_logs(personnel_id)`,
		`CREATE INDEX IF NOT EXISTS idx_competencies_personnel ON competencies(personnel_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize fleet tables: %w", err)
		}
	}
	return nil
}

// GetAssignedPersonnel returns the crew assigned to a mission.
func (s *FleetStorage) GetAssignedPersonnel(missionID int64) ([]*PersonnelRecord, error) {
	rows, err := s.db.Query(
		`SELECT p.id, p.name, p.role_title, p.flight_hours
		FROM personnel p
		JOIN mission_personnel mp ON mp.personnel_id = p.id
		WHERE mp.mission_id = ?
		ORDER BY p.id`,
		missionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query assigned personnel: %w", err)
	}
	defer rows.Close()

	var records []*PersonnelRecord
	for rows.Next() {
		var record PersonnelRecord
		if err := rows.Scan(&record.ID, &record.Name, &record.RoleTitle, &record.FlightHours); err != nil {
			return nil, fmt.Errorf("failed to scan personnel: %w", err)
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

// GetAssignedAssets returns the drones and equipment assigned to a mission.
// When droneID is non-zero the drone rows are restricted to that asset.
func (s *FleetStorage) GetAssignedAssets(missionID int64, droneID int64) ([]*AssetRecord, error) {
	query := `SELECT a.id, a.kind, a.model, a.serial, a.status, a.flight_hours, a.last_maintenance, a.next_maintenance, a.available
		FROM assets a
		JOIN mission_assets ma ON ma.asset_id = a.id
		WHERE ma.mission_id = ?`
	args := []interface{}{missionID}
	if droneID != 0 {
		query += ` AND (a.kind != 'drone' OR a.id = ?)`
		args = append(args, droneID)
	}
	query += ` ORDER BY a.id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assigned assets: %w", err)
	}
	defer rows.Close()

	var records []*AssetRecord
	for rows.Next() {
		var record AssetRecord
		var lastMaint, nextMaint sql.NullString
		var available int
		if err := rows.Scan(
			&record.ID,
			&record.Kind,
			&record.Model,
			&record.Serial,
			&record.Status,
			&record.FlightHours,
			&lastMaint,
			&nextMaint,
			&available,
		); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		record.Available = available != 0
		if lastMaint.Valid {
			if t, err := time.Parse(time.RFC3339, lastMaint.String); err == nil {
				record.LastMaintenance = &t
			}
		}
		if nextMaint.Valid {
			if t, err := time.Parse(time.RFC3339, nextMaint.String); err == nil {
				record.NextMaintenance = &t
			}
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

// GetFlightLogs returns all flight-log rows for a pilot, most recent first.
func (s *FleetStorage) GetFlightLogs(personnelID int64) ([]*FlightLogRecord, error) {
	rows, err := s.db.Query(
		`SELECT personnel_id, flown_at, duration_minutes
		FROM flight_logs
		WHERE personnel_id = ?
		ORDER BY flown_at DESC`,
		personnelID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query flight logs: %w", err)
	}
	defer rows.Close()

	var records []*FlightLogRecord
	for rows.Next() {
		var record FlightLogRecord
		var flownAt string
		if err := rows.Scan(&record.PersonnelID, &flownAt, &record.DurationMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan flight log: %w", err)
		}
		t, err := time.Parse(time.RFC3339, flownAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse flown_at: %w", err)
		}
		record.FlownAt = t
		records = append(records, &record)
	}
	return records, rows.Err()
}

// CountValidCompetencies returns the number of non-expired competencies for a
// pilot as of now.
func (s *FleetStorage) CountValidCompetencies(personnelID int64, now time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM competencies WHERE personnel_id = ? AND expires_at > ?`,
		personnelID, now.UTC().Format(time.RFC3339),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count competencies: %w", err)
	}
	return count, nil
}
