package service

import (
	"context"
	"time"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/google/uuid"
)

// SessionStore is the storage boundary for exam sessions: a per-session
// register with read-modify-write atomicity. Missing records surface as
// pgx.ErrNoRows; a write against a stale version surfaces as
// repository.ErrVersionConflict. Implementations must be safe for
// concurrent use.
type SessionStore interface {
	Create(ctx context.Context, s *model.ExamSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	GetActive(ctx context.Context, paperID uuid.UUID, studentID int) (*model.ExamSession, error)
	HasCompleted(ctx context.Context, paperID uuid.UUID, studentID int) (bool, error)
	Update(ctx context.Context, s *model.ExamSession) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]model.ExamSession, error)
	ListByStudent(ctx context.Context, studentID, page, perPage int) ([]model.ExamSession, int64, error)
	ListByPaper(ctx context.Context, paperID uuid.UUID, page, perPage int) ([]repository.PaperResult, int64, error)
	CompletedScores(ctx context.Context, paperID uuid.UUID) ([]float64, error)
}

// PaperCatalog is the read-only lookup for papers.
type PaperCatalog interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Paper, error)
	ListPublished(ctx context.Context) ([]model.Paper, error)
}

// QuestionCatalog is the read-only lookup for question definitions.
type QuestionCatalog interface {
	GetMany(ctx context.Context, ids []uuid.UUID) ([]model.Question, error)
}

// UserStore is the account lookup used by authentication.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id int) (*model.User, error)
}
