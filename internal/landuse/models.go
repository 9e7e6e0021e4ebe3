package landuse

// Ground-risk classes derived from zoning categories inside the mission's
// buffered bounding box.
const (
	RiskLow      = "low"
	RiskModerate = "moderate"
	RiskHigh     = "high"
)

// Classification is the land-use gatherer's output. Evaluated is false when
// the feature service produced nothing parseable and the low classification
// is only a fallback.
type Classification struct {
	GroundRisk    string `json:"ground_risk"`
	Evaluated     bool   `json:"evaluated"`
	Residential   int    `json:"residential"`
	Institutional int    `json:"institutional"`
	Commercial    int    `json:"commercial"`
	Industrial    int    `json:"industrial"`
	Transport     int    `json:"transport"`
	Recreational  int    `json:"recreational"`
}

// classify applies the fixed classification rules to the category counts.
func (c *Classification) classify() {
	switch {
	case c.Residential > 0 || c.Institutional > 0:
		c.GroundRisk = RiskHigh
	case c.Commercial > 0 || c.Industrial > 0 || c.Transport > 0:
		c.GroundRisk = RiskModerate
	default:
		c.GroundRisk = RiskLow
	}
}
