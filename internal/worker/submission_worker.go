package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/algolearn/algolearn-backend/internal/config"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	SubmissionBatchSize    = 50
	SubmissionBatchTimeout = 2 * time.Second
	SubmissionPollTimeout  = 1 * time.Second
)

// SubmissionWorker drains graded submissions from the Redis queue and
// persists them to Postgres in batches. Grading already happened in the
// request path; this worker only writes rows.
type SubmissionWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewSubmissionWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SubmissionWorker {
	return &SubmissionWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "submission_worker").Logger(),
	}
}

type submissionPayload struct {
	TestID         string  `json:"test_id"`
	UserID         int     `json:"user_id"`
	Score          float64 `json:"score"`
	TimeSpent      int     `json:"time_spent"`
	TotalQuestions int     `json:"total_questions"`
	CorrectAnswers int     `json:"correct_answers"`
	SubmittedAt    int64   `json:"submitted_at"`
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *SubmissionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("SubmissionWorker started")

	batch := make([]*submissionPayload, 0, SubmissionBatchSize)
	lastFlush := time.Now()

	for {
		// Should flush?
		if len(batch) > 0 &&
			(len(batch) >= SubmissionBatchSize || time.Since(lastFlush) >= SubmissionBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, SubmissionPollTimeout, config.WorkerKey.PersistSubmissionsQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var p submissionPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &p)
		}
	}
}

func (w *SubmissionWorker) flushSafe(ctx context.Context, batch []*submissionPayload) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk submission insert failed, using fallback")

		for _, p := range batch {
			if err := w.persistSingle(ctx, p); err != nil {
				w.log.Error().Err(err).Msg("persistSingle failed — requeueing")
				raw, _ := json.Marshal(p)
				w.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, raw)
			}
		}
	}
}

// ----------------------------------------------------------------
// BULK PostgreSQL INSERT using UNNEST
// ----------------------------------------------------------------

// ON CONFLICT DO NOTHING keeps retries and offline replays idempotent:
// the first row for a (test, user) pair wins, later ones are dropped.
func (w *SubmissionWorker) bulkInsert(ctx context.Context, batch []*submissionPayload) error {
	n := len(batch)

	testIDs := make([]uuid.UUID, 0, n)
	userIDs := make([]int, 0, n)
	scores := make([]float64, 0, n)
	timesSpent := make([]int, 0, n)
	totals := make([]int, 0, n)
	corrects := make([]int, 0, n)
	submittedAts := make([]time.Time, 0, n)

	for _, p := range batch {
		tID, err := uuid.Parse(p.TestID)
		if err != nil {
			return err
		}
		testIDs = append(testIDs, tID)
		userIDs = append(userIDs, p.UserID)
		scores = append(scores, p.Score)
		timesSpent = append(timesSpent, p.TimeSpent)
		totals = append(totals, p.TotalQuestions)
		corrects = append(corrects, p.CorrectAnswers)
		submittedAts = append(submittedAts, time.Unix(p.SubmittedAt, 0))
	}

	query := `
		INSERT INTO submissions (test_id, user_id, score, time_spent, total_questions, correct_answers, submitted_at)
		SELECT
			u.test_id,
			u.user_id,
			u.score,
			u.time_spent,
			u.total_questions,
			u.correct_answers,
			u.submitted_at
		FROM UNNEST(
			$1::uuid[],
			$2::int[],
			$3::float8[],
			$4::int[],
			$5::int[],
			$6::int[],
			$7::timestamptz[]
		) AS u (test_id, user_id, score, time_spent, total_questions, correct_answers, submitted_at)
		ON CONFLICT (test_id, user_id) DO NOTHING
	`

	_, err := w.pool.Exec(ctx, query, testIDs, userIDs, scores, timesSpent, totals, corrects, submittedAts)
	return err
}

// ----------------------------------------------------------------
// FALLBACK single insert
// ----------------------------------------------------------------

func (w *SubmissionWorker) persistSingle(ctx context.Context, p *submissionPayload) error {
	tID, err := uuid.Parse(p.TestID)
	if err != nil {
		return err
	}

	_, err = w.pool.Exec(ctx,
		`INSERT INTO submissions (test_id, user_id, score, time_spent, total_questions, correct_answers, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (test_id, user_id) DO NOTHING`,
		tID, p.UserID, p.Score, p.TimeSpent, p.TotalQuestions, p.CorrectAnswers, time.Unix(p.SubmittedAt, 0),
	)

	return err
}
