package attempt

// ScoreResult is the outcome of local grading, indexed in original
// question order.
type ScoreResult struct {
	Percentage float64
	Correct    []int
	Wrong      []int
	Skipped    int
}

// Score grades a flat answer array against the original question list.
// answers[i] is the chosen option index for the question originally at
// index i; -1 (or a missing trailing entry) means skipped. Marks and
// penalty default to 1 and 0. The percentage is clamped at zero so heavy
// negative marking cannot go below it. An empty question list scores 0%
// with zero counts.
func Score(questions []Question, answers []int, marksPerQuestion, negativeMarking float64) ScoreResult {
	result := ScoreResult{Correct: []int{}, Wrong: []int{}}
	if len(questions) == 0 {
		return result
	}
	if marksPerQuestion <= 0 {
		marksPerQuestion = 1
	}
	if negativeMarking < 0 {
		negativeMarking = 0
	}

	raw := 0.0
	for i, q := range questions {
		answer := -1
		if i < len(answers) {
			answer = answers[i]
		}
		switch {
		case answer < 0:
			result.Skipped++
		case answer == q.CorrectOption:
			result.Correct = append(result.Correct, i)
			raw += marksPerQuestion
		default:
			result.Wrong = append(result.Wrong, i)
			raw -= negativeMarking
		}
	}
	if raw < 0 {
		raw = 0
	}

	result.Percentage = raw / (marksPerQuestion * float64(len(questions))) * 100
	return result
}
