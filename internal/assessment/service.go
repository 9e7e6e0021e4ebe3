package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skyvern-ops/sora-engine/internal/airspace"
	"github.com/skyvern-ops/sora-engine/internal/fleet"
	"github.com/skyvern-ops/sora-engine/internal/geo"
	"github.com/skyvern-ops/sora-engine/internal/landuse"
	"github.com/skyvern-ops/sora-engine/internal/policy"
	"github.com/skyvern-ops/sora-engine/internal/population"
	"github.com/skyvern-ops/sora-engine/internal/storage/sqlite"
	"github.com/skyvern-ops/sora-engine/internal/weather"
	"github.com/skyvern-ops/sora-engine/pkg/logger"
)

// Gatherer boundaries. Each wraps one external data source; all degrade to
// absent data on failure and none blocks on another's result.
type WeatherGatherer interface {
	Fetch(ctx context.Context, coord geo.Coordinate) (*weather.Snapshot, error)
}

type AirspaceGatherer interface {
	Query(ctx context.Context, point geo.Coordinate, route []geo.Coordinate) ([]airspace.Warning, error)
}

type LandUseGatherer interface {
	BufferMeters(points []geo.Coordinate, contingencyM, groundRiskM float64) float64
	Classify(ctx context.Context, points []geo.Coordinate, bufferMeters float64) (*landuse.Classification, error)
}

type PopulationGatherer interface {
	Query(ctx context.Context, points []geo.Coordinate) (*population.Density, error)
}

// PolicyLoader resolves the effective safety thresholds for a company.
type PolicyLoader interface {
	Load(companyID int64) *policy.Thresholds
}

// AssessRequest is the phase-1 inbound request shape.
type AssessRequest struct {
	MissionID int64      `json:"mission_id"`
	DroneID   int64      `json:"drone_id,omitempty"`
	Pilot     string     `json:"-"` // acting user, authenticated upstream
	Input     PilotInput `json:"pilot_inputs"`
}

// ReassessRequest is the phase-2 inbound request shape: a prior analysis
// plus the pilot's mitigation text per risk category.
type ReassessRequest struct {
	MissionID        int64             `json:"mission_id"`
	Pilot            string            `json:"-"`
	PreviousAnalysis Result            `json:"previous_analysis"`
	PilotComments    map[string]string `json:"pilot_comments"`
}

// SoraOutcome is the phase-2 result: the classification plus whether it was
// durably saved.
type SoraOutcome struct {
	MissionID  int64         `json:"mission_id"`
	Analysis   *SoraAnalysis `json:"analysis"`
	Status     string        `json:"status"`
	PreparedBy string        `json:"prepared_by"`
	PreparedAt time.Time     `json:"prepared_at"`
	Saved      bool          `json:"saved"`
}

// Service is the assessment workflow controller. Each invocation is
// single-request-scoped: no shared mutable state across requests.
type Service struct {
	fleetLoader  *fleet.Loader
	policyLoader PolicyLoader
	weather      WeatherGatherer
	airspace     AirspaceGatherer
	landUse      LandUseGatherer
	population   PopulationGatherer
	delegate     Completer
	assessments  *sqlite.AssessmentStorage
	sora         *sqlite.SoraStorage
	logger       *logger.Logger
	now          func() time.Time
}

// NewService creates a new assessment workflow service
func NewService(
	fleetLoader *fleet.Loader,
	policyLoader PolicyLoader,
	weatherGatherer WeatherGatherer,
	airspaceGatherer AirspaceGatherer,
	landUseGatherer LandUseGatherer,
	populationGatherer PopulationGatherer,
	delegate Completer,
	assessments *sqlite.AssessmentStorage,
	sora *sqlite.SoraStorage,
	logger *logger.Logger,
) *Service {
	return &Service{
		fleetLoader:  fleetLoader,
		policyLoader: policyLoader,
		weather:      weatherGatherer,
		airspace:     airspaceGatherer,
		landUse:      landUseGatherer,
		population:   populationGatherer,
		delegate:     delegate,
		assessments:  assessments,
		sora:         sora,
		logger:       logger.Named("assessment"),
		now:          time.Now,
	}
}

// Assess runs the phase-1 workflow: gather, evaluate hard stops, score via
// the delegate, reconcile, persist, return. Gatherer failures degrade to
// absent data; only a delegate failure is fatal.
func (s *Service) Assess(ctx context.Context, req AssessRequest) (*Result, error) {
	mission, err := s.fleetLoader.Mission(req.MissionID)
	if err != nil {
		return nil, err
	}

	merged := s.gather(ctx, mission, req)
	hardStop := EvaluateHardStops(merged)

	// The delegate is always consulted, hard stop or not: its category
	// analysis and prerequisites are part of the audit trail either way.
	systemPrompt, userPrompt, err := BuildScoringPrompts(merged)
	if err != nil {
		return nil, err
	}

	text, err := s.delegate.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	result, err := ParseScoringResponse(text)
	if err != nil {
		return nil, err
	}

	s.reconcile(result, merged, hardStop)

	result.ID = uuid.NewString()
	result.MissionID = req.MissionID
	result.CreatedAt = s.now().UTC()

	s.persistResult(result, req, merged)

	s.logger.Info("Assessment complete",
		logger.Int64("mission_id", req.MissionID),
		logger.Int("overall_score", result.OverallScore),
		logger.String("recommendation", result.Recommendation),
		logger.Bool("hard_stop", result.HardStopTriggered),
		logger.Bool("saved", result.Saved))

	return result, nil
}

// gather runs the five data gatherers and the assignment scan concurrently.
// Every failure is swallowed into a nil/empty context field and logged.
func (s *Service) gather(ctx context.Context, mission *fleet.Mission, req AssessRequest) *Context {
	merged := &Context{
		Mission:    *mission,
		PilotInput: req.Input,
	}

	coord := geo.Coordinate{}
	if mission.Coordinate != nil {
		coord = *mission.Coordinate
	}
	footprint := mission.Route
	if len(footprint) == 0 && mission.Coordinate != nil {
		footprint = []geo.Coordinate{coord}
	}

	now := s.now()
	done := make(chan struct{})
	tasks := 0

	run := func(fn func()) {
		tasks++
		go func() {
			defer func() { done <- struct{}{} }()
			fn()
		}()
	}

	run(func() {
		assignments, err := s.fleetLoader.Assignments(req.MissionID, req.DroneID, now)
		if err != nil {
			s.logger.Error("Fleet assignment load failed", logger.Error(err))
			return
		}
		merged.Personnel = assignments.Personnel
		merged.Drones = assignments.Drones
		merged.Equipment = assignments.Equipment
	})

	run(func() {
		merged.Thresholds = *s.policyLoader.Load(mission.CompanyID)
	})

	run(func() {
		if req.Input.SkipWeather {
			merged.Weather = weather.SkippedSnapshot()
			return
		}
		if mission.Coordinate == nil {
			return
		}
		snapshot, err := s.weather.Fetch(ctx, coord)
		if err != nil {
			s.logger.Warn("Weather gatherer failed, continuing without weather data", logger.Error(err))
			return
		}
		merged.Weather = snapshot
	})

	run(func() {
		if mission.Coordinate == nil {
			return
		}
		warnings, err := s.airspace.Query(ctx, coord, mission.Route)
		if err != nil {
			s.logger.Warn("Airspace gatherer failed, continuing without zone warnings", logger.Error(err))
			return
		}
		merged.Airspace = warnings
	})

	run(func() {
		if len(footprint) == 0 {
			return
		}
		var contingency, groundRisk float64
		if mission.SoraConfig != nil {
			contingency = mission.SoraConfig.ContingencyDistanceM
			groundRisk = mission.SoraConfig.GroundRiskDistanceM
		}
		buffer := s.landUse.BufferMeters(footprint, contingency, groundRisk)
		classification, err := s.landUse.Classify(ctx, footprint, buffer)
		if err != nil {
			s.logger.Warn("Land-use gatherer failed, continuing without classification", logger.Error(err))
			return
		}
		merged.LandUse = classification
	})

	run(func() {
		if len(footprint) == 0 {
			return
		}
		density, err := s.population.Query(ctx, footprint)
		if err != nil {
			s.logger.Warn("Population gatherer failed, continuing without density data", logger.Error(err))
			return
		}
		merged.Population = density
	})

	for i := 0; i < tasks; i++ {
		<-done
	}

	return merged
}

// reconcile merges the deterministic verdict into the delegate's output.
// The hard stop always wins; a skipped weather evaluation pins the weather
// category to its neutral placeholder.
func (s *Service) reconcile(result *Result, merged *Context, hardStop HardStop) {
	if hardStop.Triggered {
		result.Recommendation = RecommendationNoGo
		result.HardStopTriggered = true
		result.HardStopReason = hardStop.Reason
	}

	if merged.PilotInput.SkipWeather {
		if cat := result.Category(CategoryWeather); cat != nil {
			cat.Score = 7
			cat.Decision = DecisionConditional
			cat.Concerns = append(cat.Concerns, "Værvurdering hoppet over etter pilotens ønske")
		}
	}
}

// persistResult inserts the assessment row. A persistence failure never
// discards the computed result; it is logged and flagged on the response so
// the caller can retry the save alone.
func (s *Service) persistResult(result *Result, req AssessRequest, merged *Context) {
	resultJSON, err := json.Marshal(struct {
		*Result
		Context *Context `json:"context"`
	}{result, merged})
	if err != nil {
		s.logger.Error("Failed to serialize assessment result", logger.Error(err))
		return
	}

	record := &sqlite.AssessmentRecord{
		ID:                result.ID,
		MissionID:         result.MissionID,
		Pilot:             req.Pilot,
		Phase:             "initial",
		OverallScore:      result.OverallScore,
		Recommendation:    result.Recommendation,
		HardStopTriggered: result.HardStopTriggered,
		HardStopReason:    result.HardStopReason,
		ResultJSON:        string(resultJSON),
		CreatedAt:         result.CreatedAt,
	}

	if err := s.assessments.StoreAssessment(record); err != nil {
		s.logger.Error("Failed to persist assessment, returning unsaved result",
			logger.Int64("mission_id", result.MissionID),
			logger.Error(err))
		return
	}

	result.Saved = true
}

// Reassess runs the phase-2 workflow: a differently-prompted delegate call
// whose output is the SORA classification, a new audit assessment row, and
// an upsert of the mission's current SORA record.
func (s *Service) Reassess(ctx context.Context, req ReassessRequest) (*SoraOutcome, error) {
	mission, err := s.fleetLoader.Mission(req.MissionID)
	if err != nil {
		return nil, err
	}

	missionJSON, err := json.Marshal(mission)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize mission: %w", err)
	}

	systemPrompt, userPrompt, err := BuildSoraPrompts(&req.PreviousAnalysis, req.PilotComments, string(missionJSON))
	if err != nil {
		return nil, err
	}

	text, err := s.delegate.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	analysis, err := ParseSoraResponse(text)
	if err != nil {
		return nil, err
	}

	outcome := &SoraOutcome{
		MissionID:  req.MissionID,
		Analysis:   analysis,
		Status:     "in_progress",
		PreparedBy: req.Pilot,
		PreparedAt: s.now().UTC(),
	}

	s.persistSora(outcome, req)

	s.logger.Info("SORA re-assessment complete",
		logger.Int64("mission_id", req.MissionID),
		logger.Int("final_grc", analysis.FinalGRC),
		logger.String("residual_arc", analysis.ResidualARC),
		logger.String("sail", analysis.SAIL),
		logger.Bool("saved", outcome.Saved))

	return outcome, nil
}

// persistSora writes the audit assessment row and upserts the mission's
// SORA record. Both are best-effort: failures are logged and flagged, the
// computed classification is still returned.
func (s *Service) persistSora(outcome *SoraOutcome, req ReassessRequest) {
	auditJSON, err := json.Marshal(struct {
		PriorAnalysis *Result       `json:"prior_analysis"`
		Analysis      *SoraAnalysis `json:"sora_analysis"`
	}{&req.PreviousAnalysis, outcome.Analysis})
	if err != nil {
		s.logger.Error("Failed to serialize sora audit record", logger.Error(err))
		return
	}

	commentsJSON, err := json.Marshal(req.PilotComments)
	if err != nil {
		s.logger.Error("Failed to serialize pilot comments", logger.Error(err))
		return
	}
	comments := string(commentsJSON)

	record := &sqlite.AssessmentRecord{
		ID:                uuid.NewString(),
		MissionID:         req.MissionID,
		Pilot:             req.Pilot,
		Phase:             "sora",
		OverallScore:      req.PreviousAnalysis.OverallScore,
		Recommendation:    req.PreviousAnalysis.Recommendation,
		HardStopTriggered: req.PreviousAnalysis.HardStopTriggered,
		HardStopReason:    req.PreviousAnalysis.HardStopReason,
		ResultJSON:        string(auditJSON),
		PilotCommentsJSON: &comments,
		CreatedAt:         outcome.PreparedAt,
	}

	if err := s.assessments.StoreAssessment(record); err != nil {
		s.logger.Error("Failed to persist sora audit record", logger.Error(err))
		return
	}

	analysis := outcome.Analysis
	soraRecord := &sqlite.SoraRecord{
		MissionID:           req.MissionID,
		Environment:         analysis.Environment,
		ConOpsSummary:       analysis.ConOpsSummary,
		InitialGRC:          analysis.InitialGRC,
		FinalGRC:            analysis.FinalGRC,
		GroundMitigations:   analysis.GroundMitigations,
		InitialARC:          analysis.InitialARC,
		ResidualARC:         analysis.ResidualARC,
		AirspaceMitigations: analysis.AirspaceMitigations,
		SAIL:                analysis.SAIL,
		ResidualRiskLevel:   analysis.ResidualRiskLevel,
		ResidualRiskComment: analysis.ResidualRiskComment,
		OperationalLimits:   analysis.OperationalLimits,
		Status:              outcome.Status,
		PreparedBy:          outcome.PreparedBy,
		PreparedAt:          outcome.PreparedAt,
	}

	if err := s.sora.UpsertSora(soraRecord); err != nil {
		s.logger.Error("Failed to upsert sora output", logger.Error(err))
		return
	}

	outcome.Saved = true
}

// History returns the persisted assessment rows for a mission, newest first.
func (s *Service) History(missionID int64, limit int) ([]*sqlite.AssessmentRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.assessments.GetAssessmentsByMission(missionID, limit)
}

// CurrentSora returns the mission's current SORA record.
func (s *Service) CurrentSora(missionID int64) (*sqlite.SoraRecord, error) {
	return s.sora.GetSoraByMission(missionID)
}
