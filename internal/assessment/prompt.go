package assessment

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildScoringPrompts renders the phase-1 prompt pair. The system block
// inlines the exact numeric thresholds the hard-stop evaluator used, so the
// delegate reasons about the same limits; the user block is the serialized
// context. Pilot names never appear in either.
func BuildScoringPrompts(ctx *Context) (string, string, error) {
	t := ctx.Thresholds

	var sb strings.Builder
	sb.WriteString("You are a drone flight-safety analyst performing a pre-flight risk assessment.\n")
	sb.WriteString("Score the mission described in the user message against the company's absolute operating limits:\n")
	fmt.Fprintf(&sb, "- max sustained wind: %.1f m/s\n", t.MaxWindSpeedMS)
	fmt.Fprintf(&sb, "- max gusts: %.1f m/s\n", t.MaxGustSpeedMS)
	fmt.Fprintf(&sb, "- min visibility: %.1f km\n", t.MinVisibilityKM)
	fmt.Fprintf(&sb, "- temperature window: %.0f to %.0f C\n", t.MinTemperatureC, t.MaxTemperatureC)
	fmt.Fprintf(&sb, "- max altitude: %.0f m AGL\n", t.MaxAltitudeAGLM)
	fmt.Fprintf(&sb, "- BVLOS permitted: %t\n", t.AllowBVLOS)
	fmt.Fprintf(&sb, "- night flight permitted: %t\n", t.AllowNightFlight)
	if t.MaxPilotInactivity > 0 {
		fmt.Fprintf(&sb, "- max pilot inactivity: %d days\n", t.MaxPilotInactivity)
	}
	if t.MaxPopulationDensity > 0 {
		fmt.Fprintf(&sb, "- max tolerable population density: %.0f persons/km2\n", t.MaxPopulationDensity)
	}
	fmt.Fprintf(&sb, "- backup battery mandatory: %t\n", t.RequireBackupBattery)
	fmt.Fprintf(&sb, "- dedicated observer mandatory: %t\n", t.RequireObserver)
	if t.OperativeRestrictions != "" {
		fmt.Fprintf(&sb, "Company operative restrictions: %s\n", t.OperativeRestrictions)
	}
	for _, note := range t.PolicyNotes {
		fmt.Fprintf(&sb, "Policy note: %s\n", note)
	}

	sb.WriteString(`
Rules:
- Any measurement beyond an absolute limit is a hard stop. Report it, but know the deterministic evaluator has the final say on hard stops.
- An asset with status "rød" is a hard stop; status "gul" must lower the equipment score without stopping the mission.
- High pilot experience never compensates for a breached absolute limit.
- Population impact "high" or "very_high" must reduce the mission_complexity score; "very_high" by at least 3 points.
- Missing data for a source means that source could not be evaluated; score it conservatively and note the gap.

Respond with ONLY a JSON object, no prose, matching:
{
  "overall_score": 1-10 integer (10 = safest),
  "recommendation": "go" | "caution" | "no-go",
  "hard_stop": boolean,
  "hard_stop_reason": string,
  "categories": [
    {"category": "weather" | "airspace" | "equipment" | "pilot_experience" | "mission_complexity",
     "score": 1-10 integer,
     "go_decision": "GO" | "BETINGET" | "NO-GO",
     "factors": [string],
     "concerns": [string]}
  ],
  "recommendations": [string, prioritized],
  "prerequisites": [string],
  "summary": string
}
All five categories are required.`)

	userJSON, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal assessment context: %w", err)
	}

	return sb.String(), string(userJSON), nil
}

// BuildSoraPrompts renders the phase-2 prompt pair: the prior analysis plus
// the pilot's per-category mitigations, asking for a formal SORA
// classification instead of category scores.
func BuildSoraPrompts(prior *Result, pilotComments map[string]string, missionJSON string) (string, string, error) {
	system := `You are a drone flight-safety analyst producing a formal SORA (Specific Operations Risk Assessment) classification.
The user message contains the mission, a prior risk analysis, and the pilot's declared mitigations per risk category.
Weigh the mitigations against the prior concerns and classify the operation.

Respond with ONLY a JSON object, no prose, matching:
{
  "environment": string (e.g. "rural", "suburban", "urban"),
  "conops_summary": string,
  "initial_grc": 1-7 integer,
  "final_grc": 1-7 integer (after ground mitigations, never above initial_grc),
  "ground_mitigations": string,
  "initial_arc": "A" | "B" | "C" | "D",
  "residual_arc": "A" | "B" | "C" | "D" (after airspace mitigations),
  "airspace_mitigations": string,
  "sail": "I" | "II" | "III" | "IV" | "V" | "VI",
  "residual_risk_level": "low" | "medium" | "high",
  "residual_risk_comment": string,
  "operational_limits": string
}`

	payload := struct {
		Mission       json.RawMessage   `json:"mission"`
		PriorAnalysis *Result           `json:"prior_analysis"`
		PilotComments map[string]string `json:"pilot_mitigations"`
	}{
		Mission:       json.RawMessage(missionJSON),
		PriorAnalysis: prior,
		PilotComments: pilotComments,
	}

	userJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal sora context: %w", err)
	}

	return system, string(userJSON), nil
}
