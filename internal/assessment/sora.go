package assessment

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SoraAnalysis is the phase-2 delegate output: a formal SORA classification
// with Ground Risk Class, Air Risk Class and SAIL level.
type SoraAnalysis struct {
	Environment         string `json:"environment"`
	ConOpsSummary       string `json:"conops_summary"`
	InitialGRC          int    `json:"initial_grc"`
	FinalGRC            int    `json:"final_grc"`
	GroundMitigations   string `json:"ground_mitigations"`
	InitialARC          string `json:"initial_arc"`
	ResidualARC         string `json:"residual_arc"`
	AirspaceMitigations string `json:"airspace_mitigations"`
	SAIL                string `json:"sail"`
	ResidualRiskLevel   string `json:"residual_risk_level"`
	ResidualRiskComment string `json:"residual_risk_comment"`
	OperationalLimits   string `json:"operational_limits"`
}

var validSAIL = map[string]bool{"I": true, "II": true, "III": true, "IV": true, "V": true, "VI": true}

// ParseSoraResponse validates the delegate's SORA answer, clamping every
// classification into its legal range. Parse failure is ErrInvalidResponse.
func ParseSoraResponse(text string) (*SoraAnalysis, error) {
	var analysis SoraAnalysis
	if err := json.Unmarshal([]byte(stripCodeFences(text)), &analysis); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	analysis.InitialGRC = clampGRC(analysis.InitialGRC)
	analysis.FinalGRC = clampGRC(analysis.FinalGRC)
	analysis.InitialARC = normalizeARC(analysis.InitialARC)
	analysis.ResidualARC = normalizeARC(analysis.ResidualARC)

	analysis.SAIL = strings.ToUpper(strings.TrimSpace(analysis.SAIL))
	if !validSAIL[analysis.SAIL] {
		// Delegate produced an out-of-range SAIL; derive it from the
		// classification instead of trusting free text.
		analysis.SAIL = SAILFor(analysis.FinalGRC, analysis.ResidualARC)
	}

	return &analysis, nil
}

// clampGRC bounds a Ground Risk Class to the legal 1-7 range.
func clampGRC(grc int) int {
	if grc < 1 {
		return 1
	}
	if grc > 7 {
		return 7
	}
	return grc
}

// normalizeARC bounds an Air Risk Class to A-D. Unrecognized values resolve
// to D, the most conservative class.
func normalizeARC(arc string) string {
	arc = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(arc)), "ARC-")))
	switch arc {
	case "A", "B", "C", "D":
		return arc
	default:
		return "D"
	}
}

// SAILFor derives the SAIL level from a final GRC and residual ARC per the
// SORA determination table.
func SAILFor(finalGRC int, residualARC string) string {
	arcIdx := strings.Index("ABCD", normalizeARC(residualARC))
	if arcIdx < 0 {
		arcIdx = 3
	}

	table := map[int][4]string{
		1: {"I", "II", "IV", "VI"},
		2: {"I", "II", "IV", "VI"},
		3: {"II", "II", "IV", "VI"},
		4: {"III", "III", "IV", "VI"},
		5: {"IV", "IV", "IV", "VI"},
		6: {"V", "V", "V", "VI"},
		7: {"VI", "VI", "VI", "VI"},
	}

	return table[clampGRC(finalGRC)][arcIdx]
}
