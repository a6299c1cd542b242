package grading

import (
	"math"
	"testing"

	"github.com/examhall/examhall-backend/internal/model"
)

func TestRecomputeTotal(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   float64
	}{
		{name: "empty session", scores: nil, want: 0},
		{name: "simple sum", scores: []float64{10, 7, 3}, want: 20},
		{name: "rounds to two decimals", scores: []float64{0.1, 0.2}, want: 0.3},
		{name: "fractional grades", scores: []float64{2.345, 1.005}, want: 3.35},
		{name: "non-finite treated as zero", scores: []float64{5, math.NaN(), math.Inf(1)}, want: 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := &model.ExamSession{}
			for _, sc := range tc.scores {
				s.Answers = append(s.Answers, model.AnswerRecord{Score: sc})
			}

			got := RecomputeTotal(s)
			if got != tc.want {
				t.Errorf("RecomputeTotal() = %v, want %v", got, tc.want)
			}
			if s.TotalScore != tc.want {
				t.Errorf("TotalScore = %v, want %v", s.TotalScore, tc.want)
			}
		})
	}
}
