package model

import (
	"time"

	"github.com/google/uuid"
)

// PaperStatus enumerates paper publication states.
type PaperStatus string

const (
	PaperStatusDraft     PaperStatus = "draft"
	PaperStatusPublished PaperStatus = "published"
)

// PaperQuestion binds a question into a paper with its score and position.
type PaperQuestion struct {
	QuestionID uuid.UUID `json:"question_id"`
	Score      float64   `json:"score"`
	Order      int       `json:"order"`
}

// Paper is an assembled exam template. The core treats it as read-only
// input: scoring rules, timing, and the retake policy all come from here.
type Paper struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	Subject         string          `json:"subject"`
	TotalScore      float64         `json:"total_score"`
	DurationMinutes int             `json:"duration_minutes"`
	Questions       []PaperQuestion `json:"questions"`
	Status          PaperStatus     `json:"status"`
	AllowRetake     bool            `json:"allow_retake"`
	// Optional availability window. Nil bounds are open-ended.
	WindowStart *time.Time `json:"window_start,omitempty"`
	WindowEnd   *time.Time `json:"window_end,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedBy   int        `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PaperQuestionView is one question inside a taker-facing paper payload.
type PaperQuestionView struct {
	QuestionView
	Score float64 `json:"score"`
	Order int     `json:"order"`
}

// PaperPayload is the taker-safe paper representation served to students
// who are sitting the exam. Correct answers are never carried here.
type PaperPayload struct {
	PaperID         uuid.UUID           `json:"paper_id"`
	Title           string              `json:"title"`
	Subject         string              `json:"subject"`
	TotalScore      float64             `json:"total_score"`
	DurationMinutes int                 `json:"duration_minutes"`
	Questions       []PaperQuestionView `json:"questions"`
}

// ScoreFor returns the score this paper assigns to a question, or the
// given fallback when the question carries no per-paper override.
func (p *Paper) ScoreFor(questionID uuid.UUID, fallback float64) float64 {
	for i := range p.Questions {
		if p.Questions[i].QuestionID == questionID {
			return p.Questions[i].Score
		}
	}
	return fallback
}

// WindowOpen reports whether now falls inside the availability window.
func (p *Paper) WindowOpen(now time.Time) bool {
	if p.WindowStart != nil && now.Before(*p.WindowStart) {
		return false
	}
	if p.WindowEnd != nil && now.After(*p.WindowEnd) {
		return false
	}
	return true
}
