package sqlite

import "time"

// MissionRecord represents a planned mission row as read by the engine.
type MissionRecord struct {
	ID          int64      `json:"id"`
	CompanyID   int64      `json:"company_id"`
	Title       string     `json:"title"`
	Location    string     `json:"location"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	RiskTier    string     `json:"risk_tier"`
	RouteJSON   string     `json:"-"` // ordered {lat,lng} waypoints, JSON array
	CustomerRef *string    `json:"customer_ref,omitempty"`
	SoraConfig  *string    `json:"-"` // optional prior SORA config, JSON
}

// PersonnelRecord represents an assigned crew member.
type PersonnelRecord struct {
	ID          int64   `json:"id"`
	Name        string  `json:"-"` // never crosses the AI boundary
	RoleTitle   string  `json:"role_title"`
	FlightHours float64 `json:"flight_hours"`
}

// FlightLogRecord is one row of a pilot's flight log.
type FlightLogRecord struct {
	PersonnelID     int64
	FlownAt         time.Time
	DurationMinutes int
}

// CompetencyRecord is a pilot competency with an expiry date.
type CompetencyRecord struct {
	PersonnelID int64
	Name        string
	ExpiresAt   time.Time
}

// AssetRecord represents an assigned drone or piece of equipment.
type AssetRecord struct {
	ID              int64      `json:"id"`
	Kind            string     `json:"kind"` // "drone" or "equipment"
	Model           string     `json:"model"`
	Serial          string     `json:"serial"`
	Status          string     `json:"status"` // grønn, gul, rød
	FlightHours     float64    `json:"flight_hours"`
	LastMaintenance *time.Time `json:"last_maintenance,omitempty"`
	NextMaintenance *time.Time `json:"next_maintenance,omitempty"`
	Available       bool       `json:"available"`
}

// PolicyRecord is a company's stored safety policy row.
type PolicyRecord struct {
	CompanyID             int64
	MaxWindSpeedMS        float64
	MaxGustSpeedMS        float64
	MinVisibilityKM       float64
	MinTemperatureC       float64
	MaxTemperatureC       float64
	MaxAltitudeAGLM       float64
	AllowBVLOS            bool
	AllowNightFlight      bool
	MaxPilotInactivity    int
	MaxPopulationDensity  float64
	RequireBackupBattery  bool
	RequireObserver       bool
	OperativeRestrictions string
	PolicyNotes           string
}

// AssessmentRecord is one persisted assessment run. Append-only: a
// re-assessment inserts a new row linked to the same mission.
type AssessmentRecord struct {
	ID                string    `json:"id"`
	MissionID         int64     `json:"mission_id"`
	Pilot             string    `json:"pilot"`
	Phase             string    `json:"phase"` // "initial" or "sora"
	OverallScore      int       `json:"overall_score"`
	Recommendation    string    `json:"recommendation"`
	HardStopTriggered bool      `json:"hard_stop_triggered"`
	HardStopReason    *string   `json:"hard_stop_reason,omitempty"`
	ResultJSON        string    `json:"-"` // full AssessmentResult
	PilotCommentsJSON *string   `json:"-"` // Phase B mitigation map
	CreatedAt         time.Time `json:"created_at"`
}

// SoraRecord is the single current SORA classification for a mission,
// upserted (last write wins) rather than appended.
type SoraRecord struct {
	MissionID            int64     `json:"mission_id"`
	Environment          string    `json:"environment"`
	ConOpsSummary        string    `json:"conops_summary"`
	InitialGRC           int       `json:"initial_grc"`
	FinalGRC             int       `json:"final_grc"`
	GroundMitigations    string    `json:"ground_mitigations"`
	InitialARC           string    `json:"initial_arc"`
	ResidualARC          string    `json:"residual_arc"`
	AirspaceMitigations  string    `json:"airspace_mitigations"`
	SAIL                 string    `json:"sail"`
	ResidualRiskLevel    string    `json:"residual_risk_level"`
	ResidualRiskComment  string    `json:"residual_risk_comment"`
	OperationalLimits    string    `json:"operational_limits"`
	Status               string    `json:"status"`
	PreparedBy           string    `json:"prepared_by"`
	PreparedAt           time.Time `json:"prepared_at"`
}
