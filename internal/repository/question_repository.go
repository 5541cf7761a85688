package repository

import (
	"context"

	"github.com/algolearn/algolearn-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByTest retrieves all questions for a given test, ordered by order_num.
func (r *QuestionRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, prompt, options, correct_option, explanation, order_num
		 FROM questions WHERE test_id = $1
		 ORDER BY order_num`, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.TestID, &q.Prompt, &q.Options, &q.CorrectOption, &q.Explanation, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// ReplaceForTest atomically deletes a test's questions and inserts the new set.
func (r *QuestionRepository) ReplaceForTest(ctx context.Context, testID uuid.UUID, questions []model.Question) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE test_id = $1`, testID); err != nil {
			return err
		}
		for i := range questions {
			q := &questions[i]
			err := tx.QueryRow(ctx,
				`INSERT INTO questions (test_id, prompt, options, correct_option, explanation, order_num)
				 VALUES ($1, $2, $3, $4, $5, $6)
				 RETURNING id`,
				testID, q.Prompt, q.Options, q.CorrectOption, q.Explanation, q.OrderNum,
			).Scan(&q.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
