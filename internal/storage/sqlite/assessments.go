package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/skyvern-ops/sora-engine/pkg/logger"
)

// AssessmentStorage persists assessment results. Rows are append-only: a
// re-assessment inserts a new row for the same mission, never an update.
type AssessmentStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewAssessmentStorage creates a new SQLite assessment storage
func NewAssessmentStorage(db *sql.DB, logger *logger.Logger) *AssessmentStorage {
	storage := &AssessmentStorage{
		db:     db,
		logger: logger.Named("sqlite-assess"),
	}

	if err := storage.initDB(); err != nil {
		logger.Error("Failed to initialize assessment storage", Error(err))
	}

	return storage
}

func (s *AssessmentStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS assessments (
			id TEXT PRIMARY KEY,
			mission_id INTEGER NOT NULL,
			pilot TEXT NOT NULL,
			phase TEXT NOT NULL,
			overall_score INTEGER NOT NULL,
			recommendation TEXT NOT NULL,
			hard_stop_triggered INTEGER NOT NULL,
			hard_stop_reason TEXT,
			result_json TEXT NOT NULL,
			pilot_comments_json TEXT,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create assessments table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_assessments_mission ON assessments(mission_id)`,
		`CREATE INDEX IF NOT EXISTS idx_assessments_created ON assessments(created_at)`,
	}
	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create assessment index: %w", err)
		}
	}

	return nil
}

// StoreAssessment inserts an assessment record.
func (s *AssessmentStorage) StoreAssessment(record *AssessmentRecord) error {
	hardStop := 0
	if record.HardStopTriggered {
		hardStop = 1
	}

	_, err := s.db.Exec(
		`INSERT INTO assessments
		(id, mission_id, pilot, phase, overall_score, recommendation, hard_stop_triggered, hard_stop_reason, result_json, pilot_comments_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.MissionID,
		record.Pilot,
		record.Phase,
		record.OverallScore,
		record.Recommendation,
		hardStop,
		record.HardStopReason,
		record.ResultJSON,
		record.PilotCommentsJSON,
		record.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert assessment: %w", err)
	}

	return nil
}

// GetAssessmentsByMission returns the assessment history for a mission,
// newest first.
func (s *AssessmentStorage) GetAssessmentsByMission(missionID int64, limit int) ([]*AssessmentRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, mission_id, pilot, phase, overall_score, recommendation, hard_stop_triggered, hard_stop_reason, result_json, pilot_comments_json, created_at
		FROM assessments
		WHERE mission_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		missionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query assessments: %w", err)
	}
	defer rows.Close()

	return s.scanAssessmentRows(rows)
}

func (s *AssessmentStorage) scanAssessmentRows(rows *sql.Rows) ([]*AssessmentRecord, error) {
	var records []*AssessmentRecord
	for rows.Next() {
		var record AssessmentRecord
		var hardStop int
		var reason, comments sql.NullString
		var createdAt string

		if err := rows.Scan(
			&record.ID,
			&record.MissionID,
			&record.Pilot,
			&record.Phase,
			&record.OverallScore,
			&record.Recommendation,
			&hardStop,
			&reason,
			&record.ResultJSON,
			&comments,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}

		record.HardStopTriggered = hardStop != 0
		if reason.Valid {
			record.HardStopReason = &reason.String
		}
		if comments.Valid {
			record.PilotCommentsJSON = &comments.String
		}

		var err error
		record.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}
