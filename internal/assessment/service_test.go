package assessment

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

// Test doubles for the gatherer boundaries.

type fakeCompleter struct {
	response string
	err      error
	calls    int
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeWeather struct {
	snapshot *weather.Snapshot
	err      error
	calls    int
}

func (f *fakeWeather) Fetch(ctx context.Context, coord geo.Coordinate) (*weather.Snapshot, error) {
	f.calls++
	return f.snapshot, f.err
}

type fakeAirspace struct {
	warnings []airspace.Warning
	err      error
}

func (f *fakeAirspace) Query(ctx context.Context, point geo.Coordinate, route []geo.Coordinate) ([]airspace.Warning, error) {
	return f.warnings, f.err
}

type fakeLandUse struct {
	classification *landuse.Classification
	err            error
}

func (f *fakeLandUse) BufferMeters(points []geo.Coordinate, contingencyM, groundRiskM float64) float64 {
	return 500
}

func (f *fakeLandUse) Classify(ctx context.Context, points []geo.Coordinate, bufferMeters float64) (*landuse.Classification, error) {
	return f.classification, f.err
}

type fakePopulation struct {
	density *population.Density
	err     error
}

func (f *fakePopulation) Query(ctx context.Context, points []geo.Coordinate) (*population.Density, error) {
	return f.density, f.err
}

type fakePolicy struct {
	thresholds policy.Thresholds
}

func (f *fakePolicy) Load(companyID int64) *policy.Thresholds {
	t := f.thresholds
	return &t
}

// serviceHarness wires a Service over a throwaway database with one seeded
// mission, one competent pilot and one green drone.
type serviceHarness struct {
	service     *Service
	completer   *fakeCompleter
	weather     *fakeWeather
	airspace    *fakeAirspace
	landUse     *fakeLandUse
	population  *fakePopulation
	assessments *sqlite.AssessmentStorage
	sora        *sqlite.SoraStorage
}

func permissiveThresholds() policy.Thresholds {
	return policy.Thresholds{
		MaxWindSpeedMS:   10,
		MaxGustSpeedMS:   15,
		MinVisibilityKM:  1,
		MinTemperatureC:  -10,
		MaxTemperatureC:  40,
		MaxAltitudeAGLM:  120,
		AllowBVLOS:       false,
		AllowNightFlight: true,
		Source:           "defaults",
	}
}

func newHarness(t *testing.T) *serviceHarness {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewNop()
	missionStorage := sqlite.NewMissionStorage(db, log)
	fleetStorage := sqlite.NewFleetStorage(db, log)
	assessmentStorage := sqlite.NewAssessmentStorage(db, log)
	soraStorage := sqlite.NewSoraStorage(db, log)

	start := time.Now().UTC().Truncate(time.Second)
	_, err = db.Exec(
		`INSERT INTO missions (id, company_id, title, location, start_time, end_time, risk_tier, route_json)
		VALUES (1, 1, 'Linjeinspeksjon', 'Lillestrøm', ?, ?, 'normal', ?)`,
		start.Format(time.RFC3339),
		start.Add(2*time.Hour).Format(time.RFC3339),
		`[{"lat":59.95,"lng":11.05},{"lat":59.96,"lng":11.07}]`,
	)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO personnel (id, name, role_title, flight_hours) VALUES (1, 'Kari Nordmann', 'Fartøysjef', 320)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO mission_personnel (mission_id, personnel_id) VALUES (1, 1)`)
	require.NoError(t, err)
	_, err = db.Exec(
		`INSERT INTO flight_logs (personnel_id, flown_at, duration_minutes) VALUES (1, ?, 45)`,
		start.AddDate(0, 0, -3).Format(time.RFC3339),
	)
	require.NoError(t, err)
	_, err = db.Exec(
		`INSERT INTO competencies (personnel_id, name, expires_at) VALUES (1, 'A2', ?)`,
		start.AddDate(1, 0, 0).Format(time.RFC3339),
	)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO assets (id, kind, model, serial, status) VALUES (1, 'drone', 'M30T', 'SN-1', 'grønn')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO mission_assets (mission_id, asset_id) VALUES (1, 1)`)
	require.NoError(t, err)

	h := &serviceHarness{
		completer: &fakeCompleter{response: validDelegateJSON()},
		weather: &fakeWeather{snapshot: &weather.Snapshot{
			WindSpeedMS:  4,
			WindGustMS:   6,
			VisibilityKM: 20,
			TemperatureC: 15,
		}},
		airspace:    &fakeAirspace{},
		landUse:     &fakeLandUse{classification: &landuse.Classification{GroundRisk: landuse.RiskLow, Evaluated: true}},
		population:  &fakePopulation{density: &population.Density{MaxDensity: 40, Impact: population.ImpactNone}},
		assessments: assessmentStorage,
		sora:        soraStorage,
	}

	h.service = NewService(
		fleet.NewLoader(missionStorage, fleetStorage, log),
		&fakePolicy{thresholds: permissiveThresholds()},
		h.weather,
		h.airspace,
		h.landUse,
		h.population,
		h.completer,
		assessmentStorage,
		soraStorage,
		log,
	)

	return h
}

func assessRequest() AssessRequest {
	return AssessRequest{
		MissionID: 1,
		Pilot:     "kari@example.no",
		Input: PilotInput{
			FlightAltitudeM: 80,
			OperationType:   "inspection",
			IsVLOS:          true,
		},
	}
}

func TestAssessHappyPath(t *testing.T) {
	h := newHarness(t)

	result, err := h.service.Assess(context.Background(), assessRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, int64(1), result.MissionID)
	assert.Equal(t, RecommendationGo, result.Recommendation)
	assert.False(t, result.HardStopTriggered)
	assert.True(t, result.Saved)
	assert.Equal(t, Disclaimer, result.Disclaimer)
	assert.Len(t, result.Categories, 5)
	assert.Equal(t, 1, h.completer.calls)
	assert.Equal(t, 1, h.weather.calls)

	records, err := h.service.History(1, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, result.ID, records[0].ID)
	assert.Equal(t, "initial", records[0].Phase)
	assert.Equal(t, "kari@example.no", records[0].Pilot)
}

func TestAssessUnknownMission(t *testing.T) {
	h := newHarness(t)

	req := assessRequest()
	req.MissionID = 999

	_, err := h.service.Assess(context.Background(), req)
	assert.ErrorIs(t, err, sqlite.ErrNotFound)
}

func TestAssessHardStopOverridesDelegate(t *testing.T) {
	h := newHarness(t)
	h.weather.snapshot.WindSpeedMS = 12 // above the 10 m/s limit

	result, err := h.service.Assess(context.Background(), assessRequest())
	require.NoError(t, err)

	// The delegate said go; the deterministic verdict wins anyway.
	assert.Equal(t, RecommendationNoGo, result.Recommendation)
	assert.True(t, result.HardStopTriggered)
	require.NotNil(t, result.HardStopReason)
	assert.Contains(t, *result.HardStopReason, "vind")
	assert.Equal(t, 1, h.completer.calls)
}

func TestAssessGathererFailuresDegrade(t *testing.T) {
	h := newHarness(t)
	h.weather.err = errors.New("weather upstream down")
	h.weather.snapshot = nil
	h.airspace.err = errors.New("airspace upstream down")
	h.landUse.err = errors.New("wfs down")
	h.population.err = errors.New("grid down")

	result, err := h.service.Assess(context.Background(), assessRequest())
	require.NoError(t, err)

	assert.True(t, result.Saved)
	assert.False(t, result.HardStopTriggered)
}

func TestAssessSkipWeather(t *testing.T) {
	h := newHarness(t)

	req := assessRequest()
	req.Input.SkipWeather = true

	result, err := h.service.Assess(context.Background(), req)
	require.NoError(t, err)

	// No network call was made for weather.
	assert.Zero(t, h.weather.calls)

	cat := result.Category(CategoryWeather)
	require.NotNil(t, cat)
	assert.Equal(t, 7, cat.Score)
	assert.Equal(t, DecisionConditional, cat.Decision)
	assert.NotEmpty(t, cat.Concerns)
}

func TestAssessDelegateErrorIsFatal(t *testing.T) {
	h := newHarness(t)
	h.completer.err = ErrRateLimited

	_, err := h.service.Assess(context.Background(), assessRequest())
	assert.ErrorIs(t, err, ErrRateLimited)

	records, err := h.service.History(1, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAssessInvalidDelegateResponse(t *testing.T) {
	h := newHarness(t)
	h.completer.response = "dette er ikke json"

	_, err := h.service.Assess(context.Background(), assessRequest())
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestAssessPersistenceFailureStillReturnsResult(t *testing.T) {
	h := newHarness(t)

	// Point the assessment storage at a database that no longer accepts
	// writes. The mission and fleet reads still use the live database.
	deadDB, err := sqlite.Open(filepath.Join(t.TempDir(), "dead.db"))
	require.NoError(t, err)
	deadStorage := sqlite.NewAssessmentStorage(deadDB, logger.NewNop())
	require.NoError(t, deadDB.Close())
	h.service.assessments = deadStorage

	result, err := h.service.Assess(context.Background(), assessRequest())
	require.NoError(t, err)

	assert.False(t, result.Saved)
	assert.NotEmpty(t, result.ID)
	assert.Equal(t, RecommendationGo, result.Recommendation)
}

func validSoraJSON() string {
	return `{
		"environment": "rural",
		"conops_summary": "VLOS linjeinspeksjon",
		"initial_grc": 3,
		"final_grc": 2,
		"ground_mitigations": "M1 redusert overflyging",
		"initial_arc": "ARC-b",
		"residual_arc": "ARC-a",
		"airspace_mitigations": "Høydebegrensning 80 m",
		"sail": "I",
		"residual_risk_level": "lav",
		"residual_risk_comment": "Akseptabel",
		"operational_limits": "Kun dagslys"
	}`
}

func reassessRequest(prior Result) ReassessRequest {
	return ReassessRequest{
		MissionID:        1,
		Pilot:            "kari@example.no",
		PreviousAnalysis: prior,
		PilotComments: map[string]string{
			"weather": "Flyr kun i stabile vindforhold før kl 12",
		},
	}
}

func TestReassessHappyPath(t *testing.T) {
	h := newHarness(t)

	prior, err := h.service.Assess(context.Background(), assessRequest())
	require.NoError(t, err)

	h.completer.response = validSoraJSON()

	outcome, err := h.service.Reassess(context.Background(), reassessRequest(*prior))
	require.NoError(t, err)

	assert.True(t, outcome.Saved)
	assert.Equal(t, "in_progress", outcome.Status)
	assert.Equal(t, "kari@example.no", outcome.PreparedBy)
	require.NotNil(t, outcome.Analysis)
	assert.Equal(t, 2, outcome.Analysis.FinalGRC)
	assert.Equal(t, "A", outcome.Analysis.ResidualARC)
	assert.Equal(t, "I", outcome.Analysis.SAIL)

	// A second audit row exists alongside the initial one.
	records, err := h.service.History(1, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	var phases []string
	for _, r := range records {
		phases = append(phases, r.Phase)
	}
	assert.Contains(t, phases, "initial")
	assert.Contains(t, phases, "sora")

	current, err := h.service.CurrentSora(1)
	require.NoError(t, err)
	assert.Equal(t, "I", current.SAIL)
}

func TestReassessUpsertsSingleSoraRecord(t *testing.T) {
	h := newHarness(t)
	h.completer.response = validSoraJSON()

	_, err := h.service.Reassess(context.Background(), reassessRequest(Result{OverallScore: 7, Recommendation: RecommendationGo}))
	require.NoError(t, err)

	// Second pass with a different classification replaces, not appends.
	h.completer.response = `{
		"environment": "rural",
		"conops_summary": "Revidert",
		"initial_grc": 4,
		"final_grc": 4,
		"initial_arc": "ARC-c",
		"residual_arc": "ARC-c",
		"sail": "IV",
		"ground_mitigations": "",
		"airspace_mitigations": "",
		"residual_risk_level": "middels",
		"residual_risk_comment": "",
		"operational_limits": ""
	}`

	_, err = h.service.Reassess(context.Background(), reassessRequest(Result{OverallScore: 7, Recommendation: RecommendationGo}))
	require.NoError(t, err)

	current, err := h.service.CurrentSora(1)
	require.NoError(t, err)
	assert.Equal(t, 4, current.FinalGRC)
	assert.Equal(t, "C", current.ResidualARC)
	assert.Equal(t, "IV", current.SAIL)
	assert.Equal(t, "Revidert", current.ConOpsSummary)
}

func TestCurrentSoraNotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.CurrentSora(1)
	assert.ErrorIs(t, err, sqlite.ErrNotFound)
}
