package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionSingle   QuestionType = "single"
	QuestionMultiple QuestionType = "multiple"
	QuestionJudge    QuestionType = "judge"
	QuestionFill     QuestionType = "fill"
	QuestionEssay    QuestionType = "essay"
)

// Objective reports whether answers of this type are auto-gradable.
func (t QuestionType) Objective() bool {
	switch t {
	case QuestionSingle, QuestionMultiple, QuestionJudge, QuestionFill:
		return true
	default:
		return false
	}
}

// Question represents a question-bank entry.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	Type          QuestionType    `json:"type"`
	Subject       string          `json:"subject"`
	Chapter       string          `json:"chapter"`
	Difficulty    string          `json:"difficulty"`
	Content       string          `json:"content"`
	Options       json.RawMessage `json:"options,omitempty"`
	CorrectAnswer json.RawMessage `json:"correct_answer,omitempty"`
	DefaultScore  float64         `json:"default_score"`
	Explanation   string          `json:"explanation,omitempty"`
	CreatedBy     int             `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Key decodes the canonical correct answer.
func (q *Question) Key() AnswerValue {
	return DecodeAnswer(q.CorrectAnswer)
}

// QuestionView is a reader-facing projection of a question. The correct
// answer and explanation are present only when the reader may see them.
type QuestionView struct {
	ID            uuid.UUID       `json:"id"`
	Type          QuestionType    `json:"type"`
	Content       string          `json:"content"`
	Options       json.RawMessage `json:"options,omitempty"`
	CorrectAnswer json.RawMessage `json:"correct_answer,omitempty"`
	Explanation   string          `json:"explanation,omitempty"`
}

// View builds the projection. withKey controls whether the correct answer
// and explanation are included.
func (q *Question) View(withKey bool) QuestionView {
	v := QuestionView{
		ID:      q.ID,
		Type:    q.Type,
		Content: q.Content,
		Options: q.Options,
	}
	if withKey {
		v.CorrectAnswer = q.CorrectAnswer
		v.Explanation = q.Explanation
	}
	return v
}
