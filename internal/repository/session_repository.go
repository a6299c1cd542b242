package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrVersionConflict is returned when a session write loses the
// optimistic-version race and the caller must re-read and retry.
var ErrVersionConflict = errors.New("session version conflict")

// ErrDuplicateActive is returned when an in_progress session already
// exists for the (paper, student) pair being created.
var ErrDuplicateActive = errors.New("active session already exists")

const sessionColumns = `id, paper_id, student_id, started_at, ends_at, submitted_at, status,
	answers, total_score, auto_submitted, cheat_events, tab_switch_count, copy_paste_count,
	version, created_at, updated_at`

// SessionRepository handles exam session data access. Every write goes
// through a compare-and-swap on the version column so concurrent
// read-modify-write cycles on one session never silently overwrite each
// other.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a new session. A partial unique index keeps at most one
// in_progress session per (paper, student); a concurrent start surfaces
// as pgx.ErrNoRows and the caller re-fetches the winner.
func (r *SessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (id, paper_id, student_id, started_at, ends_at, status, answers)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (paper_id, student_id) WHERE status = 'in_progress' DO NOTHING
		 RETURNING version, created_at, updated_at`,
		s.ID, s.PaperID, s.StudentID, s.StartedAt, s.EndsAt, s.Status, answers,
	).Scan(&s.Version, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicateActive
	}
	return err
}

// GetByID retrieves one session.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id)
	return scanSession(row)
}

// GetActive retrieves the in_progress session for a (paper, student)
// pair, if any.
func (r *SessionRepository) GetActive(ctx context.Context, paperID uuid.UUID, studentID int) (*model.ExamSession, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE paper_id = $1 AND student_id = $2 AND status = 'in_progress'`,
		paperID, studentID)
	return scanSession(row)
}

// HasCompleted reports whether a submitted or graded session exists for
// the pair. Used to enforce the no-retake rule.
func (r *SessionRepository) HasCompleted(ctx context.Context, paperID uuid.UUID, studentID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM exam_sessions
			WHERE paper_id = $1 AND student_id = $2 AND status IN ('submitted', 'graded')
		 )`, paperID, studentID).Scan(&exists)
	return exists, err
}

// Update writes the mutable fields back, guarded by the version the
// session was read at. Zero rows affected means another writer won.
func (r *SessionRepository) Update(ctx context.Context, s *model.ExamSession) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	cheats, err := json.Marshal(s.CheatEvents)
	if err != nil {
		return fmt.Errorf("marshal cheat events: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET submitted_at = $1, status = $2, answers = $3, total_score = $4,
		     auto_submitted = $5, cheat_events = $6, tab_switch_count = $7,
		     copy_paste_count = $8, version = version + 1, updated_at = NOW()
		 WHERE id = $9 AND version = $10`,
		s.SubmittedAt, s.Status, answers, s.TotalScore,
		s.AutoSubmitted, cheats, s.TabSwitchCount,
		s.CopyPasteCount, s.ID, s.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}

	s.Version++
	return nil
}

// ListExpired returns in_progress sessions whose deadline has passed,
// oldest first. The deadline sweep feeds these to auto-submission.
func (r *SessionRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE status = 'in_progress' AND ends_at < $1
		 ORDER BY ends_at ASC
		 LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

// ListByStudent retrieves a student's sessions, most recent first.
func (r *SessionRepository) ListByStudent(ctx context.Context, studentID int, page, perPage int) ([]model.ExamSession, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_sessions WHERE student_id = $1`, studentID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions
		 WHERE student_id = $1
		 ORDER BY started_at DESC
		 LIMIT $2 OFFSET $3`, studentID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sessions, err := collectSessions(rows)
	return sessions, total, err
}

// PaperResult is one row of a paper's results listing.
type PaperResult struct {
	SessionID     uuid.UUID           `json:"session_id"`
	StudentID     int                 `json:"student_id"`
	StudentName   string              `json:"student_name"`
	Username      string              `json:"username"`
	Status        model.SessionStatus `json:"status"`
	TotalScore    float64             `json:"total_score"`
	AutoSubmitted bool                `json:"auto_submitted"`
	StartedAt     time.Time           `json:"started_at"`
	SubmittedAt   *time.Time          `json:"submitted_at,omitempty"`
}

// ListByPaper retrieves all students' results for one paper, paginated.
func (r *SessionRepository) ListByPaper(ctx context.Context, paperID uuid.UUID, page, perPage int) ([]PaperResult, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_sessions WHERE paper_id = $1`, paperID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT es.id, es.student_id, u.name, u.username, es.status, es.total_score,
		        es.auto_submitted, es.started_at, es.submitted_at
		 FROM exam_sessions es
		 JOIN users u ON es.student_id = u.id
		 WHERE es.paper_id = $1
		 ORDER BY u.name ASC
		 LIMIT $2 OFFSET $3`, paperID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []PaperResult
	for rows.Next() {
		var pr PaperResult
		if err := rows.Scan(&pr.SessionID, &pr.StudentID, &pr.StudentName, &pr.Username,
			&pr.Status, &pr.TotalScore, &pr.AutoSubmitted, &pr.StartedAt, &pr.SubmittedAt); err != nil {
			return nil, 0, err
		}
		results = append(results, pr)
	}
	return results, total, rows.Err()
}

// CompletedScores returns the total scores of all completed sessions for
// a paper. Used by the score statistics.
func (r *SessionRepository) CompletedScores(ctx context.Context, paperID uuid.UUID) ([]float64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT total_score FROM exam_sessions
		 WHERE paper_id = $1 AND status IN ('submitted', 'graded')`, paperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var s float64
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

func scanSession(row pgx.Row) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	var answers, cheats []byte
	err := row.Scan(&s.ID, &s.PaperID, &s.StudentID, &s.StartedAt, &s.EndsAt, &s.SubmittedAt,
		&s.Status, &answers, &s.TotalScore, &s.AutoSubmitted, &cheats,
		&s.TabSwitchCount, &s.CopyPasteCount, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &s.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	if len(cheats) > 0 {
		if err := json.Unmarshal(cheats, &s.CheatEvents); err != nil {
			return nil, fmt.Errorf("unmarshal cheat events: %w", err)
		}
	}
	return s, nil
}

func collectSessions(rows pgx.Rows) ([]model.ExamSession, error) {
	var sessions []model.ExamSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}
