package model

import (
	"time"

	"github.com/google/uuid"
)

// Submission is one learner's graded standard attempt of a weekly test.
// There is at most one row per (test, user); replays are discarded.
type Submission struct {
	ID             uuid.UUID `json:"id"`
	TestID         uuid.UUID `json:"test_id"`
	UserID         int       `json:"user_id"`
	Score          float64   `json:"score"`
	TimeSpent      int       `json:"time_spent"`
	TotalQuestions int       `json:"total_questions"`
	CorrectAnswers int       `json:"correct_answers"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// SubmitTestRequest is the payload posted by the attempt engine.
// Answers are zero-based option indices in the test's canonical question
// order; -1 marks a skipped question.
type SubmitTestRequest struct {
	TestID    uuid.UUID `json:"testId" binding:"required"`
	Answers   []int     `json:"answers" binding:"required"`
	TimeSpent int       `json:"timeSpent" binding:"min=0"`
}

// SubmitTestResult is returned to the engine after server-side grading.
type SubmitTestResult struct {
	Score          float64 `json:"score"`
	TimeSpent      int     `json:"timeSpent"`
	TotalQuestions int     `json:"totalQuestions"`
	CorrectAnswers int     `json:"correctAnswers"`
}
