package weather

// Snapshot represents the current conditions at the mission's representative
// coordinate. A nil *Snapshot means the gatherer could not produce data; a
// Skipped snapshot means the pilot explicitly waived the weather evaluation.
type Snapshot struct {
	WindSpeedMS     float64 `json:"wind_speed_ms"`
	WindGustMS      float64 `json:"wind_gust_ms"`
	VisibilityKM    float64 `json:"visibility_km"`
	TemperatureC    float64 `json:"temperature_c"`
	PrecipitationMM float64 `json:"precipitation_mm"`
	Recommendation  string  `json:"recommendation"`
	BestWindow      string  `json:"best_window,omitempty"`
	Skipped         bool    `json:"skipped"`
}

// SkippedSnapshot returns the neutral placeholder used when the pilot
// requested the weather evaluation be skipped. No network call is made.
func SkippedSnapshot() *Snapshot {
	return &Snapshot{
		Skipped:        true,
		Recommendation: "Værvurdering hoppet over etter pilotens ønske",
	}
}

// currentResponse is the shape of the provider's current-conditions payload.
// Every field is optional; absent fields decode to zero values.
type currentResponse struct {
	Current struct {
		TemperatureC    *float64 `json:"temperature_2m"`
		WindSpeedMS     *float64 `json:"wind_speed_10m"`
		WindGustMS      *float64 `json:"wind_gusts_10m"`
		VisibilityM     *float64 `json:"visibility"`
		PrecipitationMM *float64 `json:"precipitation"`
	} `json:"current"`
	Hourly struct {
		Time        []string  `json:"time"`
		WindSpeedMS []float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
}
