package repository

import (
	"context"
	"fmt"

	"github.com/algolearn/algolearn-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const testColumns = `id, title, topic, week, time_limit_minutes,
	        marks_per_question, negative_marking, author_id,
	        (SELECT COUNT(*) FROM questions q WHERE q.test_id = tests.id),
	        status, created_at, updated_at`

// TestRepository handles weekly test data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

func scanTest(row interface{ Scan(...any) error }) (*model.Test, error) {
	t := &model.Test{}
	err := row.Scan(&t.ID, &t.Title, &t.Topic, &t.Week, &t.TimeLimitMinutes,
		&t.MarksPerQuestion, &t.NegativeMarking, &t.AuthorID,
		&t.QuestionCount, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByID retrieves a test by its UUID.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	return scanTest(r.pool.QueryRow(ctx,
		`SELECT `+testColumns+` FROM tests WHERE id = $1`, id))
}

// ListByAuthorPaginated retrieves tests filtered by author with pagination.
// Pass authorID=0 to list all tests.
func (r *TestRepository) ListByAuthorPaginated(ctx context.Context, authorID, limit, offset int) ([]model.Test, int, error) {
	countQuery := `SELECT COUNT(*) FROM tests`
	var countArgs []interface{}
	if authorID > 0 {
		countQuery += ` WHERE author_id = $1`
		countArgs = append(countArgs, authorID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + testColumns + ` FROM tests`
	var args []interface{}
	argIdx := 1

	if authorID > 0 {
		query += ` WHERE author_id = $1`
		args = append(args, authorID)
		argIdx++
	}

	query += fmt.Sprintf(` ORDER BY week DESC, created_at DESC LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, 0, err
		}
		tests = append(tests, *t)
	}
	return tests, total, rows.Err()
}

// ListPublished returns all tests with PUBLISHED status, oldest week first.
// Used for the public catalog and cache prewarming on startup.
func (r *TestRepository) ListPublished(ctx context.Context) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+testColumns+` FROM tests WHERE status = $1
		 ORDER BY week ASC, created_at ASC`, model.TestStatusPublished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, *t)
	}
	return tests, rows.Err()
}

// Create inserts a new test.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO tests (title, topic, week, time_limit_minutes, marks_per_question, negative_marking, author_id, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		t.Title, t.Topic, t.Week, t.TimeLimitMinutes,
		t.MarksPerQuestion, t.NegativeMarking, t.AuthorID, t.Status,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// Update modifies a test's editable fields.
func (r *TestRepository) Update(ctx context.Context, t *model.Test) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests
		 SET title = $1, topic = $2, week = $3, time_limit_minutes = $4,
		     marks_per_question = $5, negative_marking = $6, updated_at = NOW()
		 WHERE id = $7`,
		t.Title, t.Topic, t.Week, t.TimeLimitMinutes,
		t.MarksPerQuestion, t.NegativeMarking, t.ID)
	return err
}

// UpdateStatus updates a test's status.
func (r *TestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.TestStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tests SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	return err
}

// Delete removes a test and, via cascade, its questions.
func (r *TestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tests WHERE id = $1`, id)
	return err
}
