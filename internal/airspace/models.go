package airspace

// Severity tiers for zone warnings, most severe first.
const (
	SeverityWarning = "warning"
	SeverityCaution = "caution"
	SeverityNote    = "note"
)

// Warning represents one airspace zone near or intersecting the mission
// footprint.
type Warning struct {
	ZoneType   string  `json:"zone_type"`
	ZoneName   string  `json:"zone_name"`
	DistanceKM float64 `json:"distance_km"`
	Intersects bool    `json:"intersects"`
	Severity   string  `json:"severity"`
}

// severityRank orders warnings for sorting; unknown severities sort last.
func severityRank(severity string) int {
	switch severity {
	case SeverityWarning:
		return 0
	case SeverityCaution:
		return 1
	case SeverityNote:
		return 2
	default:
		return 3
	}
}
