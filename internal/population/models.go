package population

// Impact tiers for population density under the flight area.
const (
	ImpactNone     = "none"
	ImpactModerate = "moderate"
	ImpactHigh     = "high"
	ImpactVeryHigh = "very_high"
)

// Density is the population gatherer's output: persons/km² statistics inside
// the buffered bounding box and the derived GRC impact.
type Density struct {
	MaxDensity   float64 `json:"max_density"`
	AvgDensity   float64 `json:"avg_density"`
	Impact       string  `json:"impact"`
	GRCIncrement int     `json:"grc_increment"`
	CellCount    int     `json:"cell_count"`
}

// ClassifyDensity maps a max density (persons/km²) to its impact tier and
// GRC increment. Boundaries are inclusive-low: 100 is moderate, 500 high,
// 1500 very high.
func ClassifyDensity(maxDensity float64) (string, int) {
	switch {
	case maxDensity >= 1500:
		return ImpactVeryHigh, 2
	case maxDensity >= 500:
		return ImpactHigh, 1
	case maxDensity >= 100:
		return ImpactModerate, 0
	default:
		return ImpactNone, 0
	}
}
