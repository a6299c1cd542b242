package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const paperColumns = `id, title, description, subject, total_score, duration_minutes, questions,
	status, allow_retake, window_start, window_end, published_at, created_by, created_at, updated_at`

// PaperRepository handles paper data access. The session core only reads
// papers; writes exist for seeding and administration.
type PaperRepository struct {
	pool *pgxpool.Pool
}

// NewPaperRepository creates a new PaperRepository.
func NewPaperRepository(pool *pgxpool.Pool) *PaperRepository {
	return &PaperRepository{pool: pool}
}

// Get retrieves one paper.
func (r *PaperRepository) Get(ctx context.Context, id uuid.UUID) (*model.Paper, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+paperColumns+` FROM papers WHERE id = $1`, id)
	return scanPaper(row)
}

// ListPublished retrieves all published papers. Used for cache prewarm
// and the student paper listing.
func (r *PaperRepository) ListPublished(ctx context.Context) ([]model.Paper, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+paperColumns+` FROM papers WHERE status = 'published' ORDER BY published_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var papers []model.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		papers = append(papers, *p)
	}
	return papers, rows.Err()
}

// Create inserts a paper. Seeding/administration only.
func (r *PaperRepository) Create(ctx context.Context, p *model.Paper) error {
	questions, err := json.Marshal(p.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO papers (id, title, description, subject, total_score, duration_minutes,
		                     questions, status, allow_retake, window_start, window_end,
		                     published_at, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING created_at, updated_at`,
		p.ID, p.Title, p.Description, p.Subject, p.TotalScore, p.DurationMinutes,
		questions, p.Status, p.AllowRetake, p.WindowStart, p.WindowEnd,
		p.PublishedAt, p.CreatedBy,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func scanPaper(row pgx.Row) (*model.Paper, error) {
	p := &model.Paper{}
	var questions []byte
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Subject, &p.TotalScore,
		&p.DurationMinutes, &questions, &p.Status, &p.AllowRetake,
		&p.WindowStart, &p.WindowEnd, &p.PublishedAt, &p.CreatedBy,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questions, &p.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal paper questions: %w", err)
	}
	return p, nil
}
