package model

import (
	"time"

	"github.com/google/uuid"
)

// TestStatus enumerates the possible states of a weekly test.
type TestStatus string

const (
	TestStatusDraft     TestStatus = "DRAFT"
	TestStatusPublished TestStatus = "PUBLISHED"
	TestStatusArchived  TestStatus = "ARCHIVED"
)

// Test represents a weekly test entity. A published test is immutable;
// edits require unpublishing back to DRAFT, which invalidates the cache.
type Test struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	Topic            string     `json:"topic"`
	Week             int        `json:"week"`
	TimeLimitMinutes int        `json:"time_limit_minutes"`
	MarksPerQuestion float64    `json:"marks_per_question"`
	NegativeMarking  float64    `json:"negative_marking"`
	AuthorID         int        `json:"author_id"`
	QuestionCount    int        `json:"question_count"`
	Status           TestStatus `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Question represents a single multiple-choice question owned by a test.
// CorrectOption is a zero-based index into Options.
type Question struct {
	ID            uuid.UUID `json:"id"`
	TestID        uuid.UUID `json:"test_id"`
	Prompt        string    `json:"prompt"`
	Options       []string  `json:"options"`
	CorrectOption int       `json:"correct_option"`
	Explanation   string    `json:"explanation,omitempty"`
	OrderNum      int       `json:"order_num"`
}

// TestPayload is the Redis-cached document served to learners. It carries
// everything the attempt engine needs except correct answers and explanations.
type TestPayload struct {
	TestID           uuid.UUID            `json:"id"`
	Title            string               `json:"title"`
	Topic            string               `json:"topic"`
	Week             int                  `json:"week"`
	TimeLimitMinutes int                  `json:"time_limit_minutes"`
	MarksPerQuestion float64              `json:"marks_per_question"`
	NegativeMarking  float64              `json:"negative_marking"`
	Questions        []QuestionForLearner `json:"questions"`
}

// QuestionForLearner is a question stripped of its answer key.
type QuestionForLearner struct {
	ID       uuid.UUID `json:"id"`
	Prompt   string    `json:"prompt"`
	Options  []string  `json:"options"`
	OrderNum int       `json:"order_num"`
}

// AnswerKey is the Redis-cached grading document for one published test.
// Correct[i] is the correct option index of the i-th question in order.
type AnswerKey struct {
	Correct          []int   `json:"correct"`
	MarksPerQuestion float64 `json:"marks_per_question"`
	NegativeMarking  float64 `json:"negative_marking"`
}

// CreateTestRequest is the payload for creating a new weekly test.
type CreateTestRequest struct {
	Title            string  `json:"title" binding:"required,min=3,max=255"`
	Topic            string  `json:"topic" binding:"required,min=2,max=100"`
	Week             int     `json:"week" binding:"required,min=1,max=104"`
	TimeLimitMinutes int     `json:"time_limit_minutes" binding:"required,min=1,max=480"`
	MarksPerQuestion float64 `json:"marks_per_question" binding:"omitempty,gt=0"`
	NegativeMarking  float64 `json:"negative_marking" binding:"omitempty,min=0"`
}

// UpdateTestRequest is the payload for updating an existing draft test.
type UpdateTestRequest struct {
	Title            string   `json:"title" binding:"omitempty,min=3,max=255"`
	Topic            string   `json:"topic" binding:"omitempty,min=2,max=100"`
	Week             *int     `json:"week" binding:"omitempty,min=1,max=104"`
	TimeLimitMinutes *int     `json:"time_limit_minutes" binding:"omitempty,min=1,max=480"`
	MarksPerQuestion *float64 `json:"marks_per_question" binding:"omitempty,gt=0"`
	NegativeMarking  *float64 `json:"negative_marking" binding:"omitempty,min=0"`
}

// AddQuestionRequest is the payload for one question in a bulk replace.
type AddQuestionRequest struct {
	Prompt        string   `json:"prompt" binding:"required,min=1,max=2000"`
	Options       []string `json:"options" binding:"required,min=2,max=8,dive,required,max=500"`
	CorrectOption int      `json:"correct_option" binding:"min=0"`
	Explanation   string   `json:"explanation" binding:"omitempty,max=2000"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing a draft's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}
