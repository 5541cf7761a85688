package attempt

import "fmt"

// Badge tags awarded after an attempt.
const (
	BadgeAccuracyAce = "accuracy-ace"
	BadgeSpeedRunner = "speed-runner"
	BadgeFlawless    = "flawless"
)

// EvaluateBadges derives achievement tags from one attempt's outcome.
// Pure and deterministic; several tags may fire at once. The streak tag
// embeds the current count (streak-4, streak-5, ...).
func EvaluateBadges(accuracy float64, timeRatio float64, zeroMistakes bool, streak int) []string {
	tags := []string{}
	if accuracy > 90 {
		tags = append(tags, BadgeAccuracyAce)
	}
	if timeRatio < 0.5 {
		tags = append(tags, BadgeSpeedRunner)
	}
	if zeroMistakes {
		tags = append(tags, BadgeFlawless)
	}
	if streak >= 4 {
		tags = append(tags, fmt.Sprintf("streak-%d", streak))
	}
	return tags
}
