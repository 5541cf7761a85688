// Package attempt implements the weekly-test attempt engine: question and
// option randomization, local scoring, badge evaluation, the attempt state
// machine, and an offline submission queue. The engine talks to its host
// through small capability ports (Clock, Store, Submitter) so it runs the
// same way inside a CLI, a test, or a server-side session host.
package attempt

import (
	"context"
	"fmt"
	"time"
)

// Clock abstracts wall-clock time so the state machine is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the real wall clock.
var SystemClock Clock = systemClock{}

// Store is a namespaced best-effort key-value port over device storage.
// A missing or corrupt entry reads as absent; writes never report errors
// to the caller. Implementations: MemoryStore, FileStore, RedisStore.
type Store interface {
	// Get unmarshals the stored value into v and reports whether a usable
	// value existed.
	Get(key string, v any) bool
	Set(key string, v any)
	Delete(key string)
}

// SubmitRequest is the wire payload posted to the submission endpoint.
type SubmitRequest struct {
	TestID    string `json:"testId"`
	Answers   []int  `json:"answers"`
	TimeSpent int    `json:"timeSpent"`
}

// SubmitResult is the server's authoritative grading outcome.
type SubmitResult struct {
	Score          float64 `json:"score"`
	TimeSpent      int     `json:"timeSpent"`
	TotalQuestions int     `json:"totalQuestions"`
	CorrectAnswers int     `json:"correctAnswers"`
}

// Submitter posts a completed standard attempt for server-side grading.
// A *RejectedError return means the server understood and refused the
// submission; any other error is treated as a transport failure and the
// attempt is queued for offline retry.
type Submitter interface {
	Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error)
}

// RejectedError is a definitive server-side refusal (4xx). Retrying the
// identical payload will not change the outcome.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("submission rejected (%d): %s", e.StatusCode, e.Message)
}

// Question is the engine's snapshot of one multiple-choice question.
// CorrectOption is -1 when the host withholds the answer key (standard
// mode against a hardened server); local scoring then only counts
// answered questions it can verify.
type Question struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Test is the engine's snapshot of one weekly test, immutable for the
// lifetime of an attempt.
type Test struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Topic            string     `json:"topic"`
	Week             int        `json:"week"`
	TimeLimitMinutes int        `json:"time_limit_minutes"`
	MarksPerQuestion float64    `json:"marks_per_question"`
	NegativeMarking  float64    `json:"negative_marking"`
	Questions        []Question `json:"questions"`
}
