package repository

import (
	"context"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const questionColumns = `id, type, subject, chapter, difficulty, content, options,
	correct_answer, default_score, explanation, created_by, created_at`

// QuestionRepository handles question-bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// GetMany retrieves the given questions in one round trip. Missing ids
// are simply absent from the result.
func (r *QuestionRepository) GetMany(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Type, &q.Subject, &q.Chapter, &q.Difficulty,
			&q.Content, &q.Options, &q.CorrectAnswer, &q.DefaultScore,
			&q.Explanation, &q.CreatedBy, &q.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a question. Seeding/administration only.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (id, type, subject, chapter, difficulty, content, options,
		                        correct_answer, default_score, explanation, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at`,
		q.ID, q.Type, q.Subject, q.Chapter, q.Difficulty, q.Content, q.Options,
		q.CorrectAnswer, q.DefaultScore, q.Explanation, q.CreatedBy,
	).Scan(&q.CreatedAt)
}
