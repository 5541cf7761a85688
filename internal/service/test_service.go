package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/algolearn/algolearn-backend/internal/config"
	"github.com/algolearn/algolearn-backend/internal/model"
	"github.com/algolearn/algolearn-backend/internal/repository"
	"github.com/algolearn/algolearn-backend/internal/response"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain errors.
var (
	ErrNotTestAuthor    = errors.New("not the author of this test")
	ErrNoQuestions      = errors.New("test has no questions, cannot publish")
	ErrTestNotDraft     = errors.New("test status is not DRAFT")
	ErrTestNotPublished = errors.New("test status is not PUBLISHED")
)

// TestService handles weekly test business logic and Redis caching.
// Publishing a test warms the "fast lane": the learner payload and the
// answer key live in Redis so the catalog and grading never touch PostgreSQL
// on the hot path.
type TestService struct {
	testRepo     *repository.TestRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewTestService creates a new TestService.
func NewTestService(
	testRepo *repository.TestRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *TestService {
	return &TestService{
		testRepo:     testRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "test_service").Logger(),
	}
}

// GetByID retrieves a test by its UUID.
func (s *TestService) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return s.testRepo.GetByID(ctx, id)
}

// ListByAuthor retrieves tests, filtered by author if authorID > 0.
func (s *TestService) ListByAuthor(ctx context.Context, authorID, page, perPage int) ([]model.Test, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	limit := perPage
	offset := (page - 1) * perPage

	tests, total, err := s.testRepo.ListByAuthorPaginated(ctx, authorID, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	if tests == nil {
		tests = []model.Test{}
	}

	totalPages := (total + perPage - 1) / perPage

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	}

	return tests, pagination, nil
}

// Create inserts a new test as DRAFT. Scoring params default to 1 mark per
// question and no negative marking when omitted.
func (s *TestService) Create(ctx context.Context, test *model.Test) error {
	test.Status = model.TestStatusDraft
	if test.MarksPerQuestion <= 0 {
		test.MarksPerQuestion = 1
	}
	if test.NegativeMarking < 0 {
		test.NegativeMarking = 0
	}
	return s.testRepo.Create(ctx, test)
}

// Update modifies an existing draft test.
func (s *TestService) Update(ctx context.Context, authorID int, test *model.Test) error {
	existing, err := s.testRepo.GetByID(ctx, test.ID)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if existing.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}
	return s.testRepo.Update(ctx, test)
}

// Delete removes a draft test.
func (s *TestService) Delete(ctx context.Context, id uuid.UUID, authorID int) error {
	existing, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if existing.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}
	return s.testRepo.Delete(ctx, id)
}

// ReplaceQuestions bulk-replaces a draft test's questions.
func (s *TestService) ReplaceQuestions(ctx context.Context, testID uuid.UUID, authorID int, questions []model.Question) error {
	existing, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return err
	}
	if authorID != 0 && existing.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if existing.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}
	return s.questionRepo.ReplaceForTest(ctx, testID, questions)
}

// ListQuestions retrieves a test's questions including answer keys (admin only).
func (s *TestService) ListQuestions(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	return s.questionRepo.ListByTest(ctx, testID)
}

// Publish changes test status to PUBLISHED and caches the payload + answer
// key in Redis. A published test is frozen for learners.
func (s *TestService) Publish(ctx context.Context, testID uuid.UUID, authorID int) error {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return fmt.Errorf("get test: %w", err)
	}

	if authorID != 0 && test.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if test.Status != model.TestStatusDraft {
		return ErrTestNotDraft
	}

	if err := s.WarmTestCache(ctx, test); err != nil {
		return err
	}

	if err := s.testRepo.UpdateStatus(ctx, testID, model.TestStatusPublished); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	s.log.Info().Str("test_id", testID.String()).Int("week", test.Week).Msg("Test published")
	return nil
}

// Archive retires a published test and drops its cache entries.
func (s *TestService) Archive(ctx context.Context, testID uuid.UUID, authorID int) error {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return fmt.Errorf("get test: %w", err)
	}
	if authorID != 0 && test.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if test.Status != model.TestStatusPublished {
		return ErrTestNotPublished
	}

	if err := s.testRepo.UpdateStatus(ctx, testID, model.TestStatusArchived); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.TestPayloadKey(testID.String()))
	pipe.Del(ctx, config.CacheKey.TestAnswerKey(testID.String()))
	pipe.SRem(ctx, config.CacheKey.PublishedTestsKey(), testID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("test_id", testID.String()).Msg("Cache eviction failed")
	}

	s.log.Info().Str("test_id", testID.String()).Msg("Test archived")
	return nil
}

// WarmTestCache loads a test's payload and answer key from PostgreSQL into
// Redis. Used by Publish, RefreshCache, and PrewarmAllCaches.
func (s *TestService) WarmTestCache(ctx context.Context, test *model.Test) error {
	questions, err := s.questionRepo.ListByTest(ctx, test.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	learnerQuestions := make([]model.QuestionForLearner, len(questions))
	correct := make([]int, len(questions))
	for i, q := range questions {
		learnerQuestions[i] = model.QuestionForLearner{
			ID:       q.ID,
			Prompt:   q.Prompt,
			Options:  q.Options,
			OrderNum: q.OrderNum,
		}
		correct[i] = q.CorrectOption
	}

	payload := model.TestPayload{
		TestID:           test.ID,
		Title:            test.Title,
		Topic:            test.Topic,
		Week:             test.Week,
		TimeLimitMinutes: test.TimeLimitMinutes,
		MarksPerQuestion: test.MarksPerQuestion,
		NegativeMarking:  test.NegativeMarking,
		Questions:        learnerQuestions,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	key := model.AnswerKey{
		Correct:          correct,
		MarksPerQuestion: test.MarksPerQuestion,
		NegativeMarking:  test.NegativeMarking,
	}
	keyJSON, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("marshal answer key: %w", err)
	}

	// Cache both atomically via pipeline.
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.TestPayloadKey(test.ID.String()), payloadJSON, 0)
	pipe.Set(ctx, config.CacheKey.TestAnswerKey(test.ID.String()), keyJSON, 0)
	pipe.SAdd(ctx, config.CacheKey.PublishedTestsKey(), test.ID.String())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("test_id", test.ID.String()).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// RefreshCache re-caches the payload + answer key for a published test.
func (s *TestService) RefreshCache(ctx context.Context, testID uuid.UUID, authorID int) error {
	test, err := s.testRepo.GetByID(ctx, testID)
	if err != nil {
		return fmt.Errorf("get test: %w", err)
	}

	if authorID != 0 && test.AuthorID != authorID {
		return ErrNotTestAuthor
	}
	if test.Status != model.TestStatusPublished {
		return ErrTestNotPublished
	}

	if err := s.WarmTestCache(ctx, test); err != nil {
		return err
	}

	s.log.Info().Str("test_id", testID.String()).Msg("Cache refreshed")
	return nil
}

// PrewarmAllCaches loads all published tests into Redis on application
// startup, preventing lazy-load races under thundering herd traffic.
func (s *TestService) PrewarmAllCaches(ctx context.Context) error {
	tests, err := s.testRepo.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published tests: %w", err)
	}

	if len(tests) == 0 {
		s.log.Info().Msg("No published tests to prewarm")
		return nil
	}

	warmed := 0
	for i := range tests {
		if err := s.WarmTestCache(ctx, &tests[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("test_id", tests[i].ID.String()).
				Msg("Failed to warm test, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(tests)).
		Msg("Prewarming complete")
	return nil
}

// GetPayload retrieves the cached learner payload from Redis, falling back
// to a cache warm from PostgreSQL on miss (self-heal after eviction).
func (s *TestService) GetPayload(ctx context.Context, testID uuid.UUID) (*model.TestPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.TestPayloadKey(testID.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		test, dbErr := s.testRepo.GetByID(ctx, testID)
		if dbErr != nil {
			return nil, fmt.Errorf("test not found: %w", dbErr)
		}
		if test.Status != model.TestStatusPublished {
			return nil, ErrTestNotPublished
		}
		if warmErr := s.WarmTestCache(ctx, test); warmErr != nil {
			return nil, warmErr
		}
		data, err = s.rdb.Get(ctx, config.CacheKey.TestPayloadKey(testID.String())).Bytes()
	}
	if err != nil {
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.TestPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// ListPublicPayloads returns the payloads of all published tests, served
// from the Redis fast lane.
func (s *TestService) ListPublicPayloads(ctx context.Context) ([]model.TestPayload, error) {
	tests, err := s.testRepo.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published: %w", err)
	}

	payloads := make([]model.TestPayload, 0, len(tests))
	for i := range tests {
		payload, err := s.GetPayload(ctx, tests[i].ID)
		if err != nil {
			s.log.Warn().Err(err).Str("test_id", tests[i].ID.String()).Msg("Skipping test with unreadable payload")
			continue
		}
		payloads = append(payloads, *payload)
	}
	return payloads, nil
}

// GetAnswerKey retrieves the answer key from Redis for instant grading,
// rewarming from PostgreSQL on a cache miss.
func (s *TestService) GetAnswerKey(ctx context.Context, testID uuid.UUID) (*model.AnswerKey, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.TestAnswerKey(testID.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		test, dbErr := s.testRepo.GetByID(ctx, testID)
		if dbErr != nil {
			return nil, fmt.Errorf("test not found: %w", dbErr)
		}
		if test.Status != model.TestStatusPublished {
			return nil, ErrTestNotPublished
		}
		if warmErr := s.WarmTestCache(ctx, test); warmErr != nil {
			return nil, warmErr
		}
		data, err = s.rdb.Get(ctx, config.CacheKey.TestAnswerKey(testID.String())).Bytes()
	}
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}

	var key model.AnswerKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, fmt.Errorf("unmarshal answer key: %w", err)
	}
	return &key, nil
}
