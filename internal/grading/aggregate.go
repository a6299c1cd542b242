package grading

import (
	"math"

	"github.com/examhall/examhall-backend/internal/model"
)

// RecomputeTotal sums the score of every answer record, rounds to two
// decimals, and writes the result into the session. This is the single
// path by which TotalScore changes; no other code assigns it.
// Non-finite scores count as zero.
func RecomputeTotal(s *model.ExamSession) float64 {
	var sum float64
	for i := range s.Answers {
		score := s.Answers[i].Score
		if math.IsNaN(score) || math.IsInf(score, 0) {
			continue
		}
		sum += score
	}
	s.TotalScore = math.Round(sum*100) / 100
	return s.TotalScore
}
