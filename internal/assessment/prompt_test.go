package assessment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyvern-ops/sora-engine/internal/fleet"
)

func TestBuildScoringPromptsEmbedsThresholds(t *testing.T) {
	ctx := cleanContext()
	ctx.Thresholds.MaxPilotInactivity = 60
	ctx.Thresholds.MaxPopulationDensity = 1500
	ctx.Thresholds.OperativeRestrictions = "Ingen flyging over folkemengder"
	ctx.Thresholds.PolicyNotes = []string{"Alltid to batterisett"}

	system, user, err := BuildScoringPrompts(ctx)
	require.NoError(t, err)

	assert.Contains(t, system, "10.0 m/s")
	assert.Contains(t, system, "15.0 m/s")
	assert.Contains(t, system, "120 m AGL")
	assert.Contains(t, system, "60 days")
	assert.Contains(t, system, "1500 persons/km2")
	assert.Contains(t, system, "Ingen flyging over folkemengder")
	assert.Contains(t, system, "Alltid to batterisett")
	assert.Contains(t, system, `"mission_complexity"`)

	// The user block is the serialized context itself.
	var roundTrip Context
	require.NoError(t, json.Unmarshal([]byte(user), &roundTrip))
	assert.Equal(t, ctx.Mission.ID, roundTrip.Mission.ID)
}

func TestBuildScoringPromptsNeverLeaksPilotNames(t *testing.T) {
	ctx := cleanContext()
	ctx.Personnel = []fleet.PilotSummary{{Ref: "pilot-1", RoleTitle: "Fartøysjef", ValidCompetencies: 2}}

	system, user, err := BuildScoringPrompts(ctx)
	require.NoError(t, err)

	// Only the anonymized ref crosses the AI boundary.
	assert.Contains(t, user, "pilot-1")
	assert.NotContains(t, user, "Fartøysjef Kari")
	assert.NotContains(t, system, "pilot-1")
}

func TestBuildScoringPromptsOmitsDisabledLimits(t *testing.T) {
	ctx := cleanContext()
	ctx.Thresholds.MaxPilotInactivity = 0
	ctx.Thresholds.MaxPopulationDensity = 0

	system, _, err := BuildScoringPrompts(ctx)
	require.NoError(t, err)

	assert.NotContains(t, system, "max pilot inactivity")
	assert.NotContains(t, system, "max tolerable population density")
}

func TestBuildSoraPrompts(t *testing.T) {
	prior := &Result{
		OverallScore:   6,
		Recommendation: RecommendationCaution,
		Categories: []CategoryScore{
			{Category: CategoryWeather, Score: 5, Decision: DecisionConditional, Concerns: []string{"frisk bris"}},
		},
	}
	comments := map[string]string{"weather": "Flyr kun før kl 12"}

	system, user, err := BuildSoraPrompts(prior, comments, `{"id":1,"title":"Inspeksjon"}`)
	require.NoError(t, err)

	assert.Contains(t, system, "SORA")
	assert.Contains(t, system, `"sail"`)

	var payload struct {
		Mission       json.RawMessage   `json:"mission"`
		PriorAnalysis *Result           `json:"prior_analysis"`
		PilotComments map[string]string `json:"pilot_mitigations"`
	}
	require.NoError(t, json.Unmarshal([]byte(user), &payload))
	assert.Equal(t, 6, payload.PriorAnalysis.OverallScore)
	assert.Equal(t, "Flyr kun før kl 12", payload.PilotComments["weather"])
	assert.Contains(t, string(payload.Mission), "Inspeksjon")
}
