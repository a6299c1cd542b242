// Package grading implements answer canonicalization, objective grading,
// and score aggregation for exam sessions.
package grading

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/examhall/examhall-backend/internal/model"
)

// Canonical produces the comparable form of an answer value for the given
// question type. Equal canonical forms mean equal answers. Essay answers
// have no canonical form and always yield "".
func Canonical(t model.QuestionType, v model.AnswerValue) string {
	switch t {
	case model.QuestionSingle:
		return canonicalSingle(v)
	case model.QuestionJudge:
		return canonicalJudge(v)
	case model.QuestionMultiple:
		return canonicalMultiple(v)
	case model.QuestionFill:
		return canonicalFill(v)
	default:
		return ""
	}
}

// canonicalSingle unwraps one layer of JSON string quoting ("\"A\"" vs "A")
// and trims. Papers imported from spreadsheets store the quoted form.
func canonicalSingle(v model.AnswerValue) string {
	s := strings.TrimSpace(scalar(v))
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		var unquoted string
		if err := json.Unmarshal([]byte(s), &unquoted); err == nil {
			s = unquoted
		}
	}
	return strings.TrimSpace(s)
}

func canonicalJudge(v model.AnswerValue) string {
	if v.Kind == model.AnswerBool {
		if v.Bool {
			return "true"
		}
		return "false"
	}
	return strings.ToLower(strings.TrimSpace(scalar(v)))
}

// canonicalMultiple reduces the selection to its token set: sorted
// lexicographically and joined by commas, so order never matters.
func canonicalMultiple(v model.AnswerValue) string {
	tokens := selectionTokens(v)
	sort.Strings(tokens)
	return strings.Join(tokens, ",")
}

// canonicalFill lower-cases, collapses internal whitespace, and folds
// full-width commas into ASCII ones.
func canonicalFill(v model.AnswerValue) string {
	s := strings.ToLower(strings.TrimSpace(scalar(v)))
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "，", ",")
}

// selectionTokens extracts the chosen options of a multiple answer:
// a list as-is, a JSON array encoded as text, or a comma-separated string.
// A bare scalar becomes a singleton.
func selectionTokens(v model.AnswerValue) []string {
	var items []string
	switch v.Kind {
	case model.AnswerList:
		items = v.List
	case model.AnswerText:
		s := strings.TrimSpace(v.Text)
		if parsed := model.DecodeAnswer([]byte(s)); parsed.Kind == model.AnswerList {
			items = parsed.List
		} else {
			items = strings.Split(s, ",")
		}
	case model.AnswerBool:
		items = []string{canonicalJudge(v)}
	}

	tokens := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			tokens = append(tokens, trimmed)
		}
	}
	return tokens
}

// scalar flattens a value to a single string the way loose clients do:
// booleans become "true"/"false", lists join on commas.
func scalar(v model.AnswerValue) string {
	switch v.Kind {
	case model.AnswerText:
		return v.Text
	case model.AnswerBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case model.AnswerList:
		return strings.Join(v.List, ",")
	default:
		return ""
	}
}
