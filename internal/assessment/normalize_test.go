package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected int
	}{
		{"in range", 5, 5},
		{"rounds up", 6.6, 7},
		{"rounds down", 6.4, 6},
		{"fraction of ten rescaled", 0.5, 5},
		{"fraction near one rescaled", 0.95, 10},
		{"zero clamps to floor", 0, 1},
		{"negative clamps to floor", -3, 1},
		{"above ceiling clamps", 14, 10},
		{"exactly one stays one", 1, 1},
		{"exactly ten stays ten", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeScore(tt.value))
		})
	}
}

func TestNormalizeScoreIdempotent(t *testing.T) {
	for raw := -2.0; raw <= 12.0; raw += 0.25 {
		once := NormalizeScore(raw)
		twice := NormalizeScore(float64(once))
		assert.Equal(t, once, twice, "raw=%v", raw)
	}
}
