package grading

import (
	"encoding/json"
	"testing"

	"github.com/examhall/examhall-backend/internal/model"
)

func question(t model.QuestionType, key string) *model.Question {
	return &model.Question{Type: t, CorrectAnswer: json.RawMessage(key)}
}

func TestGrade_Single(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		candidate model.AnswerValue
		want      bool
	}{
		{name: "exact match", key: `"B"`, candidate: model.TextAnswer("B"), want: true},
		{name: "wrong option", key: `"B"`, candidate: model.TextAnswer("A"), want: false},
		{name: "double-encoded candidate", key: `"B"`, candidate: model.TextAnswer(`"B"`), want: true},
		{name: "padded candidate", key: `"B"`, candidate: model.TextAnswer(" B "), want: true},
		{name: "unanswered null", key: `"B"`, candidate: model.NullAnswer(), want: false},
		{name: "unanswered empty string", key: `"B"`, candidate: model.TextAnswer(""), want: false},
		{name: "empty key never matches", key: `""`, candidate: model.TextAnswer("B"), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := question(model.QuestionSingle, tc.key)
			if got := Grade(q, tc.candidate); got != tc.want {
				t.Errorf("Grade(single key=%s, %v) = %v, want %v", tc.key, tc.candidate, got, tc.want)
			}
		})
	}
}

func TestGrade_Judge(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		candidate model.AnswerValue
		want      bool
	}{
		{name: "boolean candidate against string key", key: `"true"`, candidate: model.BoolAnswer(true), want: true},
		{name: "string candidate against boolean key", key: `false`, candidate: model.TextAnswer("false"), want: true},
		{name: "case-insensitive", key: `"true"`, candidate: model.TextAnswer("True"), want: true},
		{name: "wrong verdict", key: `"true"`, candidate: model.BoolAnswer(false), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := question(model.QuestionJudge, tc.key)
			if got := Grade(q, tc.candidate); got != tc.want {
				t.Errorf("Grade(judge key=%s, %v) = %v, want %v", tc.key, tc.candidate, got, tc.want)
			}
		})
	}
}

func TestGrade_Multiple(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		candidate model.AnswerValue
		want      bool
	}{
		{name: "order-insensitive", key: `["A","C"]`, candidate: model.ListAnswer("C", "A"), want: true},
		{name: "missing one selection", key: `["A","C"]`, candidate: model.ListAnswer("A"), want: false},
		{name: "extra selection", key: `["A","C"]`, candidate: model.ListAnswer("A", "C", "B"), want: false},
		{name: "comma string candidate", key: `["A","C"]`, candidate: model.TextAnswer("C,A"), want: true},
		{name: "comma string key", key: `"A,C"`, candidate: model.ListAnswer("A", "C"), want: true},
		{name: "empty selection", key: `["A","C"]`, candidate: model.ListAnswer(), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := question(model.QuestionMultiple, tc.key)
			if got := Grade(q, tc.candidate); got != tc.want {
				t.Errorf("Grade(multiple key=%s, %v) = %v, want %v", tc.key, tc.candidate, got, tc.want)
			}
		})
	}
}

func TestGrade_Fill(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		candidate model.AnswerValue
		want      bool
	}{
		{name: "case and spacing forgiven", key: `"Newton's Law"`, candidate: model.TextAnswer("newton's   law"), want: true},
		{name: "full-width comma forgiven", key: `"a,b"`, candidate: model.TextAnswer("a，b"), want: true},
		{name: "different text", key: `"mitochondria"`, candidate: model.TextAnswer("ribosome"), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := question(model.QuestionFill, tc.key)
			if got := Grade(q, tc.candidate); got != tc.want {
				t.Errorf("Grade(fill key=%s, %v) = %v, want %v", tc.key, tc.candidate, got, tc.want)
			}
		})
	}
}

func TestGrade_EssayAlwaysFalse(t *testing.T) {
	q := question(model.QuestionEssay, `"model answer"`)
	if Grade(q, model.TextAnswer("model answer")) {
		t.Error("essay questions must never auto-grade true")
	}
}
