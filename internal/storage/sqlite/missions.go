package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/skyvern-ops/sora-engine/pkg/logger"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// MissionStorage reads mission rows for the assessment engine. The engine
// never writes back to missions.
type MissionStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewMissionStorage creates a new SQLite mission storage
func NewMissionStorage(db *sql.DB, logger *logger.Logger) *MissionStorage {
	storage := &MissionStorage{
		db:     db,
		logger: logger.Named("sqlite-missions"),
	}

	if err := storage.initDB(); err != nil {
		logger.Error("Failed to initialize mission storage", Error(err))
	}

	return storage
}

func (s *MissionStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS missions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			company_id INTEGER NOT NULL,
			title TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP NOT NULL,
			risk_tier TEXT NOT NULL DEFAULT 'normal',
			route_json TEXT,
			customer_ref TEXT,
			sora_config TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create missions table: %w", err)
	}
	return nil
}

// GetMissionByID returns the mission row for the given id, or ErrNotFound.
func (s *MissionStorage) GetMissionByID(id int64) (*MissionRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, company_id, title, location, start_time, end_time, risk_tier, route_json, customer_ref, sora_config
		FROM missions
		WHERE id = ?`,
		id,
	)

	var record MissionRecord
	var startTime, endTime string
	var routeJSON, customerRef, soraConfig sql.NullString

	if err := row.Scan(
		&record.ID,
		&record.CompanyID,
		&record.Title,
		&record.Location,
		&startTime,
		&endTime,
		&record.RiskTier,
		&routeJSON,
		&customerRef,
		&soraConfig,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query mission: %w", err)
	}

	var err error
	record.StartTime, err = time.Parse(time.RFC3339, startTime)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start_time: %w", err)
	}
	record.EndTime, err = time.Parse(time.RFC3339, endTime)
	if err != nil {
		return nil, fmt.Errorf("failed to parse end_time: %w", err)
	}

	if routeJSON.Valid {
		record.RouteJSON = routeJSON.String
	}
	if customerRef.Valid {
		record.CustomerRef = &customerRef.String
	}
	if soraConfig.Valid {
		record.SoraConfig = &soraConfig.String
	}

	return &record, nil
}
