package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/skyvern-ops/sora-engine/pkg/logger"
)

// SoraStorage holds the single current SORA classification per mission. The
// mission_id primary key makes the upsert last-write-wins with no
// read-modify-write branching.
type SoraStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewSoraStorage creates a new SQLite SORA storage
func NewSoraStorage(db *sql.DB, logger *logger.Logger) *SoraStorage {
	storage := &SoraStorage{
		db:     db,
		logger: logger.Named("sqlite-sora"),
	}

	if err := storage.initDB(); err != nil {
		logger.Error("Failed to initialize SORA storage", Error(err))
	}

	return storage
}

func (s *SoraStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sora_outputs (
			mission_id INTEGER PRIMARY KEY,
			environment TEXT NOT NULL,
			conops_summary TEXT NOT NULL,
			initial_grc INTEGER NOT NULL,
			final_grc INTEGER NOT NULL,
			ground_mitigations TEXT NOT NULL,
			initial_arc TEXT NOT NULL,
			residual_arc TEXT NOT NULL,
			airspace_mitigations TEXT NOT NULL,
			sail TEXT NOT NULL,
			residual_risk_level TEXT NOT NULL,
			residual_risk_comment TEXT NOT NULL,
			operational_limits TEXT NOT NULL,
			status TEXT NOT NULL,
			prepared_by TEXT NOT NULL,
			prepared_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sora_outputs table: %w", err)
	}
	return nil
}

// UpsertSora writes the SORA record for a mission, replacing any previous
// record for the same mission.
func (s *SoraStorage) UpsertSora(record *SoraRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO sora_outputs
		(mission_id, environment, conops_summary, initial_grc, final_grc, ground_mitigations,
		 initial_arc, residual_arc, airspace_mitigations, sail, residual_risk_level,
		 residual_risk_comment, operational_limits, status, prepared_by, prepared_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(mission_id) DO UPDATE SET
			environment = excluded.environment,
			conops_summary = excluded.conops_summary,
			initial_grc = excluded.initial_grc,
			final_grc = excluded.final_grc,
			ground_mitigations = excluded.ground_mitigations,
			initial_arc = excluded.initial_arc,
			residual_arc = excluded.residual_arc,
			airspace_mitigations = excluded.airspace_mitigations,
			sail = excluded.sail,
			residual_risk_level = excluded.residual_risk_level,
			residual_risk_comment = excluded.residual_risk_comment,
			operational_limits = excluded.operational_limits,
			status = excluded.status,
			prepared_by = excluded.prepared_by,
			prepared_at = excluded.prepared_at`,
		record.MissionID,
		record.Environment,
		record.ConOpsSummary,
		record.InitialGRC,
		record.FinalGRC,
		record.GroundMitigations,
		record.InitialARC,
		record.ResidualARC,
		record.AirspaceMitigations,
		record.SAIL,
		record.ResidualRiskLevel,
		record.ResidualRiskComment,
		record.OperationalLimits,
		record.Status,
		record.PreparedBy,
		record.PreparedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert sora output: %w", err)
	}

	return nil
}

// GetSoraByMission returns the current SORA record for a mission, or
// ErrNotFound.
func (s *SoraStorage) GetSoraByMission(missionID int64) (*SoraRecord, error) {
	row := s.db.QueryRow(
		`SELECT mission_id, environment, conops_summary, initial_grc, final_grc, ground_mitigations,
			initial_arc, residual_arc, airspace_mitigations, sail, residual_risk_level,
			residual_risk_comment, operational_limits, status, prepared_by, prepared_at
		FROM sora_outputs
		WHERE mission_id = ?`,
		missionID,
	)

	var record SoraRecord
	var preparedAt string

	if err := row.Scan(
		&record.MissionID,
		&record.Environment,
		&record.ConOpsSummary,
		&record.InitialGRC,
		&record.FinalGRC,
		&record.GroundMitigations,
		&record.InitialARC,
		&record.ResidualARC,
		&record.AirspaceMitigations,
		&record.SAIL,
		&record.ResidualRiskLevel,
		&record.ResidualRiskComment,
		&record.OperationalLimits,
		&record.Status,
		&record.PreparedBy,
		&preparedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query sora output: %w", err)
	}

	var err error
	record.PreparedAt, err = time.Parse(time.RFC3339, preparedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prepared_at: %w", err)
	}

	return &record, nil
}
