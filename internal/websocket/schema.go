package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventSubmission Event = "submission"
	EventPong       Event = "pong"
)

// SubmissionEvent is forwarded to admin monitors whenever a learner's
// graded result lands on the test's Redis channel.
type SubmissionEvent struct {
	Event          Event   `json:"event"`
	TestID         string  `json:"test_id"`
	UserID         int     `json:"user_id"`
	Score          float64 `json:"score"`
	CorrectAnswers int     `json:"correct_answers"`
	TotalQuestions int     `json:"total_questions"`
	TimeSpent      int     `json:"time_spent"`
	SubmittedAt    string  `json:"submitted_at"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
