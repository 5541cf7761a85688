package attempt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func twoQuestionSet() []Question {
	return []Question{
		{Prompt: "first", Options: []string{"a", "b"}, CorrectOption: 0},
		{Prompt: "second", Options: []string{"a", "b"}, CorrectOption: 1},
	}
}

func TestScoreAllCorrect(t *testing.T) {
	for _, params := range []struct{ marks, negative float64 }{
		{1, 0}, {2, 1}, {0.5, 0.25}, {4, 10},
	} {
		result := Score(twoQuestionSet(), []int{0, 1}, params.marks, params.negative)
		assert.Equal(t, 100.0, result.Percentage)
		assert.Equal(t, []int{0, 1}, result.Correct)
		assert.Empty(t, result.Wrong)
		assert.Equal(t, 0, result.Skipped)
	}
}

func TestScoreOneWrongOneSkipped(t *testing.T) {
	result := Score(twoQuestionSet(), []int{1, -1}, 1, 0)

	assert.Equal(t, 0.0, result.Percentage)
	assert.Empty(t, result.Correct)
	assert.Equal(t, []int{0}, result.Wrong)
	assert.Equal(t, 1, result.Skipped)
}

func TestScoreAllSkipped(t *testing.T) {
	result := Score(twoQuestionSet(), []int{-1, -1}, 1, 5)

	assert.Equal(t, 0.0, result.Percentage)
	assert.Equal(t, 2, result.Skipped)
	assert.Empty(t, result.Correct)
	assert.Empty(t, result.Wrong)
}

func TestScoreShortAnswerArrayTreatsMissingAsSkipped(t *testing.T) {
	result := Score(twoQuestionSet(), []int{0}, 1, 0)

	assert.Equal(t, 50.0, result.Percentage)
	assert.Equal(t, []int{0}, result.Correct)
	assert.Equal(t, 1, result.Skipped)
}

func TestScoreNegativeMarkingClampedAtZero(t *testing.T) {
	// One wrong answer penalized harder than a correct answer earns must
	// not drive the percentage negative.
	result := Score(twoQuestionSet(), []int{1, 1}, 1, 5)

	assert.Equal(t, 0.0, result.Percentage)
	assert.Equal(t, []int{1}, result.Correct)
	assert.Equal(t, []int{0}, result.Wrong)
}

func TestScorePartialWithNegativeMarking(t *testing.T) {
	questions := []Question{
		{Options: []string{"a", "b"}, CorrectOption: 0},
		{Options: []string{"a", "b"}, CorrectOption: 0},
		{Options: []string{"a", "b"}, CorrectOption: 0},
		{Options: []string{"a", "b"}, CorrectOption: 0},
	}
	// 2 correct (4), 1 wrong (-1), 1 skipped = 3 of 8 = 37.5%
	result := Score(questions, []int{0, 0, 1, -1}, 2, 1)

	assert.InDelta(t, 37.5, result.Percentage, 1e-9)
	assert.Equal(t, []int{0, 1}, result.Correct)
	assert.Equal(t, []int{2}, result.Wrong)
	assert.Equal(t, 1, result.Skipped)
}

func TestScoreDefaultsMarksToOne(t *testing.T) {
	result := Score(twoQuestionSet(), []int{0, -1}, 0, -3)

	assert.Equal(t, 50.0, result.Percentage)
}

func TestScoreEmptyQuestionList(t *testing.T) {
	result := Score(nil, nil, 1, 1)

	assert.Equal(t, 0.0, result.Percentage)
	assert.Empty(t, result.Correct)
	assert.Empty(t, result.Wrong)
	assert.Equal(t, 0, result.Skipped)
}
