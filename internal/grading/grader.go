package grading

import (
	"github.com/examhall/examhall-backend/internal/model"
)

// Grade returns the correctness verdict for an objective question.
// It is pure: no I/O, no side effects.
//
// An unanswered candidate (null, empty string, empty list) is wrong, never
// an error. A missing or empty correct answer also grades false so that a
// malformed question cannot hand out free points. Essay questions are not
// comparable and grade false; the session layer keeps them off this path.
func Grade(q *model.Question, candidate model.AnswerValue) bool {
	if !q.Type.Objective() {
		return false
	}
	if candidate.IsEmpty() {
		return false
	}

	key := q.Key()
	if key.IsEmpty() {
		return false
	}

	return Canonical(q.Type, candidate) == Canonical(q.Type, key)
}
