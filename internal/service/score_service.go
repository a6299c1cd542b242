package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// passThreshold is the fraction of a paper's total score counted as a pass.
const passThreshold = 0.6

// PaperStats summarizes completed attempts at one paper.
type PaperStats struct {
	PaperID      uuid.UUID `json:"paper_id"`
	Participants int       `json:"participants"`
	Average      float64   `json:"average"`
	Highest      float64   `json:"highest"`
	Lowest       float64   `json:"lowest"`
	PassCount    int       `json:"pass_count"`
	PassRate     float64   `json:"pass_rate"`
}

// ScoreService computes aggregate statistics over completed sessions.
type ScoreService struct {
	sessions SessionStore
	papers   PaperCatalog
	log      zerolog.Logger
}

// NewScoreService creates a new ScoreService.
func NewScoreService(sessions SessionStore, papers PaperCatalog, log zerolog.Logger) *ScoreService {
	return &ScoreService{
		sessions: sessions,
		papers:   papers,
		log:      log.With().Str("component", "score_service").Logger(),
	}
}

// PaperStats computes score statistics for one paper from its submitted
// and graded sessions. A paper with no completed attempts yields zeroed
// stats rather than an error.
func (s *ScoreService) PaperStats(ctx context.Context, paperID uuid.UUID) (*PaperStats, error) {
	paper, err := s.papers.Get(ctx, paperID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaperNotFound
		}
		return nil, fmt.Errorf("get paper: %w", err)
	}

	scores, err := s.sessions.CompletedScores(ctx, paperID)
	if err != nil {
		return nil, fmt.Errorf("completed scores: %w", err)
	}

	stats := &PaperStats{PaperID: paperID, Participants: len(scores)}
	if len(scores) == 0 {
		return stats, nil
	}

	passLine := paper.TotalScore * passThreshold
	sum := 0.0
	stats.Highest = scores[0]
	stats.Lowest = scores[0]
	for _, sc := range scores {
		sum += sc
		if sc > stats.Highest {
			stats.Highest = sc
		}
		if sc < stats.Lowest {
			stats.Lowest = sc
		}
		if sc >= passLine {
			stats.PassCount++
		}
	}

	stats.Average = round2(sum / float64(len(scores)))
	stats.PassRate = round2(float64(stats.PassCount) / float64(len(scores)))
	return stats, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
