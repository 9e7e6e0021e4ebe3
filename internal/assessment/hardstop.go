package assessment

import (
	"fmt"
	"time"

	"github.com/skyvern-ops/sora-engine/internal/fleet"
)

// Precipitation at or above this rate counts as heavy for the weather rule.
const heavyPrecipitationMM = 5.0

// HardStop is the deterministic veto verdict. When Triggered, the final
// recommendation is no-go no matter what the scoring delegate says.
type HardStop struct {
	Triggered bool     `json:"triggered"`
	Reason    *string  `json:"reason,omitempty"`
	Reasons   []string `json:"reasons,omitempty"`
}

// EvaluateHardStops runs the full rule set over the merged context. All
// rules are evaluated; the reported reason is the most safety-critical one
// (the rules are ordered by criticality). Pure function: no I/O, no clock
// beyond the mission schedule.
func EvaluateHardStops(ctx *Context) HardStop {
	var reasons []string
	t := ctx.Thresholds

	// 1. Weather limits. A skipped or absent snapshot cannot trigger.
	if w := ctx.Weather; w != nil && !w.Skipped {
		if w.WindSpeedMS > t.MaxWindSpeedMS {
			reasons = append(reasons, fmt.Sprintf("vind %.1f m/s over grense %.1f m/s", w.WindSpeedMS, t.MaxWindSpeedMS))
		}
		if w.WindGustMS > t.MaxGustSpeedMS {
			reasons = append(reasons, fmt.Sprintf("vindkast %.1f m/s over grense %.1f m/s", w.WindGustMS, t.MaxGustSpeedMS))
		}
		if w.VisibilityKM > 0 && w.VisibilityKM < t.MinVisibilityKM {
			reasons = append(reasons, fmt.Sprintf("sikt %.1f km under grense %.1f km", w.VisibilityKM, t.MinVisibilityKM))
		}
		if w.PrecipitationMM >= heavyPrecipitationMM {
			reasons = append(reasons, fmt.Sprintf("kraftig nedbør %.1f mm", w.PrecipitationMM))
		}

		// 2. Temperature window.
		if w.TemperatureC < t.MinTemperatureC || w.TemperatureC > t.MaxTemperatureC {
			reasons = append(reasons, fmt.Sprintf("temperatur %.1f°C utenfor vindu %.0f til %.0f°C", w.TemperatureC, t.MinTemperatureC, t.MaxTemperatureC))
		}
	}

	// 3. Asset status. Worst tier is fatal; the mid tier lowers scores but
	// never stops the mission by itself.
	for _, asset := range append(append([]fleet.Asset{}, ctx.Drones...), ctx.Equipment...) {
		if asset.Status == fleet.StatusGrounded {
			reasons = append(reasons, fmt.Sprintf("%s %s har status rød", asset.Kind, asset.Model))
		}
	}

	// 4. Pilot competency: no valid competency anywhere in the crew.
	if len(ctx.Personnel) > 0 {
		total := 0
		for _, p := range ctx.Personnel {
			total += p.ValidCompetencies
		}
		if total == 0 {
			reasons = append(reasons, "ingen gyldige pilotkompetanser blant tildelt personell")
		}
	}

	// 5. Pilot recency: every assigned pilot exceeds the inactivity window.
	if t.MaxPilotInactivity > 0 && len(ctx.Personnel) > 0 {
		allInactive := true
		for _, p := range ctx.Personnel {
			days := p.Statistics.DaysSinceLastFlight
			if days != nil && *days <= t.MaxPilotInactivity {
				allInactive = false
				break
			}
		}
		if allInactive {
			reasons = append(reasons, fmt.Sprintf("alle piloter har vært inaktive lenger enn %d dager", t.MaxPilotInactivity))
		}
	}

	// 6. BVLOS policy.
	if !ctx.PilotInput.IsVLOS && !t.AllowBVLOS {
		reasons = append(reasons, "BVLOS-operasjon er ikke tillatt etter selskapets policy")
	}

	// 7. Night-flight policy.
	if !t.AllowNightFlight && scheduledInDarkness(ctx.Mission.StartTime) {
		reasons = append(reasons, "flyging i mørke er ikke tillatt etter selskapets policy")
	}

	// 8. Population density ceiling.
	if t.MaxPopulationDensity > 0 && ctx.Population != nil && ctx.Population.MaxDensity > t.MaxPopulationDensity {
		reasons = append(reasons, fmt.Sprintf("befolkningstetthet %.0f/km² over grense %.0f/km²", ctx.Population.MaxDensity, t.MaxPopulationDensity))
	}

	// 9. Mandatory equipment declared by policy.
	if t.RequireBackupBattery && !ctx.PilotInput.HasBackupBattery {
		reasons = append(reasons, "reservebatteri er påkrevd men ikke meldt")
	}
	if t.RequireObserver && ctx.PilotInput.ObserverCount == 0 {
		reasons = append(reasons, "dedikert observatør er påkrevd men ikke meldt")
	}

	// 10. Altitude ceiling.
	if t.MaxAltitudeAGLM > 0 && ctx.PilotInput.FlightAltitudeM > t.MaxAltitudeAGLM {
		reasons = append(reasons, fmt.Sprintf("flyhøyde %.0f m over grense %.0f m AGL", ctx.PilotInput.FlightAltitudeM, t.MaxAltitudeAGLM))
	}

	if len(reasons) == 0 {
		return HardStop{}
	}

	reason := reasons[0]
	return HardStop{
		Triggered: true,
		Reason:    &reason,
		Reasons:   reasons,
	}
}

// scheduledInDarkness approximates darkness as the hours outside 06-21 local
// time. Without a sunrise service this errs on the conservative side in
// summer and is refined by the delegate narrative, never relaxed.
func scheduledInDarkness(start time.Time) bool {
	hour := start.Hour()
	return hour < 6 || hour >= 21
}
