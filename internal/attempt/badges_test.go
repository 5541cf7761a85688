package attempt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateBadges(t *testing.T) {
	cases := []struct {
		name         string
		accuracy     float64
		timeRatio    float64
		zeroMistakes bool
		streak       int
		want         []string
	}{
		{"nothing earned", 50, 0.9, false, 0, []string{}},
		{"accuracy over threshold", 91, 0.9, false, 0, []string{"accuracy-ace"}},
		{"accuracy at threshold not awarded", 90, 0.9, false, 0, []string{}},
		{"fast finish", 80, 0.49, false, 0, []string{"speed-runner"}},
		{"half time not awarded", 80, 0.5, false, 0, []string{}},
		{"flawless", 100, 0.9, true, 0, []string{"accuracy-ace", "flawless"}},
		{"streak of four", 10, 0.9, false, 4, []string{"streak-4"}},
		{"streak below four", 10, 0.9, false, 3, []string{}},
		{"streak embeds count", 10, 0.9, false, 7, []string{"streak-7"}},
		{"everything at once", 95, 0.2, true, 5, []string{"accuracy-ace", "speed-runner", "flawless", "streak-5"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EvaluateBadges(tc.accuracy, tc.timeRatio, tc.zeroMistakes, tc.streak))
		})
	}
}

func TestEvaluateBadgesDeterministic(t *testing.T) {
	first := EvaluateBadges(95, 0.3, true, 6)
	second := EvaluateBadges(95, 0.3, true, 6)
	assert.Equal(t, first, second)
}
