package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/algolearn/algolearn-backend/internal/config"
	"github.com/algolearn/algolearn-backend/internal/model"
	"github.com/algolearn/algolearn-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrAnswerCountMismatch is returned when the answer array length does not
// match the test's question count.
var ErrAnswerCountMismatch = errors.New("answer array does not match question count")

// SubmissionService grades standard attempts against the Redis answer key
// and hands the result to the persist worker. The client's own score is
// never trusted; the server recomputes everything from the raw answers.
type SubmissionService struct {
	submissionRepo *repository.SubmissionRepository
	testService    *TestService
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	submissionRepo *repository.SubmissionRepository,
	testService *TestService,
	rdb *redis.Client,
	log zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: submissionRepo,
		testService:    testService,
		rdb:            rdb,
		log:            log.With().Str("component", "submission_service").Logger(),
	}
}

// persistPayload is the queue entry consumed by the submission worker.
type persistPayload struct {
	TestID         string  `json:"test_id"`
	UserID         int     `json:"user_id"`
	Score          float64 `json:"score"`
	TimeSpent      int     `json:"time_spent"`
	TotalQuestions int     `json:"total_questions"`
	CorrectAnswers int     `json:"correct_answers"`
	SubmittedAt    int64   `json:"submitted_at"`
}

// monitorEvent is published on the test's monitor channel for admin dashboards.
type monitorEvent struct {
	TestID         string  `json:"test_id"`
	UserID         int     `json:"user_id"`
	Score          float64 `json:"score"`
	CorrectAnswers int     `json:"correct_answers"`
	TotalQuestions int     `json:"total_questions"`
	TimeSpent      int     `json:"time_spent"`
	SubmittedAt    string  `json:"submitted_at"`
}

// Submit grades a learner's answers. Duplicate submissions are idempotent:
// if this user already has a stored result for the test, that result is
// returned unchanged and the new answers are discarded. This is what makes
// a delayed offline-queued replay after an online completion harmless.
func (s *SubmissionService) Submit(ctx context.Context, userID int, req *model.SubmitTestRequest) (*model.SubmitTestResult, error) {
	existing, err := s.submissionRepo.GetByTestAndUser(ctx, req.TestID, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing submission: %w", err)
	}
	if existing != nil {
		return &model.SubmitTestResult{
			Score:          existing.Score,
			TimeSpent:      existing.TimeSpent,
			TotalQuestions: existing.TotalQuestions,
			CorrectAnswers: existing.CorrectAnswers,
		}, nil
	}

	key, err := s.testService.GetAnswerKey(ctx, req.TestID)
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}

	if len(req.Answers) != len(key.Correct) {
		return nil, ErrAnswerCountMismatch
	}

	result := grade(key, req.Answers)
	result.TimeSpent = req.TimeSpent

	now := time.Now()
	payload, _ := json.Marshal(persistPayload{
		TestID:         req.TestID.String(),
		UserID:         userID,
		Score:          result.Score,
		TimeSpent:      result.TimeSpent,
		TotalQuestions: result.TotalQuestions,
		CorrectAnswers: result.CorrectAnswers,
		SubmittedAt:    now.Unix(),
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, payload).Err(); err != nil {
		// The learner already sat the test; losing the grade now is worse
		// than a slow synchronous path, so fall back to logging loudly.
		s.log.Error().Err(err).
			Int("user_id", userID).
			Str("test_id", req.TestID.String()).
			Msg("Failed to queue submission for persistence")
		return nil, fmt.Errorf("queue submission: %w", err)
	}

	s.publishMonitorEvent(ctx, req.TestID, userID, result, now)

	s.log.Info().
		Int("user_id", userID).
		Str("test_id", req.TestID.String()).
		Float64("score", result.Score).
		Int("correct", result.CorrectAnswers).
		Msg("Submission graded")

	return result, nil
}

// grade computes the percentage score from raw answers. A wrong answer
// costs NegativeMarking points; the total is clamped at zero.
func grade(key *model.AnswerKey, answers []int) *model.SubmitTestResult {
	total := len(key.Correct)
	marks := key.MarksPerQuestion
	if marks <= 0 {
		marks = 1
	}

	correct := 0
	raw := 0.0
	for i, correctOpt := range key.Correct {
		switch {
		case answers[i] < 0:
			// skipped
		case answers[i] == correctOpt:
			correct++
			raw += marks
		default:
			raw -= key.NegativeMarking
		}
	}
	if raw < 0 {
		raw = 0
	}

	var score float64
	if total > 0 {
		score = raw / (marks * float64(total)) * 100
	}

	return &model.SubmitTestResult{
		Score:          score,
		TotalQuestions: total,
		CorrectAnswers: correct,
	}
}

func (s *SubmissionService) publishMonitorEvent(ctx context.Context, testID uuid.UUID, userID int, result *model.SubmitTestResult, at time.Time) {
	event, _ := json.Marshal(monitorEvent{
		TestID:         testID.String(),
		UserID:         userID,
		Score:          result.Score,
		CorrectAnswers: result.CorrectAnswers,
		TotalQuestions: result.TotalQuestions,
		TimeSpent:      result.TimeSpent,
		SubmittedAt:    at.UTC().Format(time.RFC3339),
	})
	if err := s.rdb.Publish(ctx, config.CacheKey.SubmissionMonitorChannel(testID.String()), event).Err(); err != nil {
		s.log.Debug().Err(err).Msg("Monitor publish failed")
	}
}

// ListResults retrieves paginated results for one test.
func (s *SubmissionService) ListResults(ctx context.Context, testID uuid.UUID, page, perPage int) ([]repository.SubmissionResult, int64, error) {
	return s.submissionRepo.ListByTest(ctx, testID, page, perPage)
}
