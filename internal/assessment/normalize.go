package assessment

import "math"

// NormalizeScore maps a delegate-returned score onto the 1-10 integer scale.
// Values in (0,1) are a known delegate failure mode (fraction-of-ten) and
// are rescaled by ×10 before rounding; everything is clamped to [1,10].
// Normalizing an already-normalized score is a no-op.
func NormalizeScore(value float64) int {
	if value > 0 && value < 1 {
		value *= 10
	}

	score := int(math.Round(value))
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	return score
}
