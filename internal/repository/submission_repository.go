package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/algolearn/algolearn-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubmissionResult combines a learner's identity with their graded submission.
type SubmissionResult struct {
	UserID         int       `json:"user_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Score          float64   `json:"score"`
	TimeSpent      int       `json:"time_spent"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// SubmissionRepository handles graded submission data access.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// GetByTestAndUser retrieves a submission for a test-user pair.
func (r *SubmissionRepository) GetByTestAndUser(ctx context.Context, testID uuid.UUID, userID int) (*model.Submission, error) {
	s := &model.Submission{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, user_id, score, time_spent, total_questions, correct_answers, submitted_at
		 FROM submissions
		 WHERE test_id = $1 AND user_id = $2`, testID, userID,
	).Scan(&s.ID, &s.TestID, &s.UserID, &s.Score, &s.TimeSpent, &s.TotalQuestions, &s.CorrectAnswers, &s.SubmittedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListByTest retrieves all learner results for a test, paginated.
func (r *SubmissionRepository) ListByTest(ctx context.Context, testID uuid.UUID, page, perPage int) ([]SubmissionResult, int64, error) {
	offset := (page - 1) * perPage

	baseQuery := `
		FROM submissions s
		JOIN users u ON s.user_id = u.id
		WHERE s.test_id = $1
	`
	args := []any{testID}

	var total int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT u.id, u.name, u.email,
		       s.score, s.time_spent, s.correct_answers, s.total_questions, s.submitted_at
		` + baseQuery + `
		ORDER BY s.score DESC, s.submitted_at ASC
		LIMIT $` + fmt.Sprintf("%d", len(args)+1) + ` OFFSET $` + fmt.Sprintf("%d", len(args)+2) + `
	`
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []SubmissionResult
	for rows.Next() {
		var res SubmissionResult
		if err := rows.Scan(
			&res.UserID, &res.Name, &res.Email,
			&res.Score, &res.TimeSpent, &res.CorrectAnswers, &res.TotalQuestions, &res.SubmittedAt,
		); err != nil {
			return nil, 0, err
		}
		results = append(results, res)
	}

	return results, total, rows.Err()
}
