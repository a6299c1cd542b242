package model

import (
	"bytes"
	"encoding/json"
)

// AnswerKind discriminates the representations an answer value can take
// on the wire: absent, a scalar string, a boolean, or a list of tokens.
type AnswerKind int

const (
	AnswerNull AnswerKind = iota
	AnswerText
	AnswerBool
	AnswerList
)

func (k AnswerKind) String() string {
	switch k {
	case AnswerNull:
		return "null"
	case AnswerText:
		return "text"
	case AnswerBool:
		return "bool"
	case AnswerList:
		return "list"
	}
	return "unknown"
}

// AnswerValue is a tagged union for candidate and correct answers.
// Clients historically send answers as raw strings, booleans, arrays, or
// JSON-encoded strings; this type confines that variability to the JSON
// boundary so comparison logic never sniffs encodings itself.
type AnswerValue struct {
	Kind AnswerKind
	Text string
	Bool bool
	List []string
}

func NullAnswer() AnswerValue          { return AnswerValue{Kind: AnswerNull} }
func TextAnswer(s string) AnswerValue  { return AnswerValue{Kind: AnswerText, Text: s} }
func BoolAnswer(b bool) AnswerValue    { return AnswerValue{Kind: AnswerBool, Bool: b} }
func ListAnswer(items ...string) AnswerValue {
	return AnswerValue{Kind: AnswerList, List: items}
}

// IsEmpty reports whether the value counts as unanswered: null, an empty
// string, or an empty list. An explicit false or "0" is a real answer.
func (v AnswerValue) IsEmpty() bool {
	switch v.Kind {
	case AnswerNull:
		return true
	case AnswerText:
		return v.Text == ""
	case AnswerList:
		return len(v.List) == 0
	default:
		return false
	}
}

// MarshalJSON encodes the value in its natural JSON shape.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case AnswerText:
		return json.Marshal(v.Text)
	case AnswerBool:
		return json.Marshal(v.Bool)
	case AnswerList:
		if v.List == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.List)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, booleans, strings, numbers, and arrays.
// Array elements are flattened to their string form, so ["A", 2] becomes
// the tokens "A" and "2".
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = AnswerValue{Kind: AnswerNull}
		return nil
	}

	switch data[0] {
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = AnswerValue{Kind: AnswerBool, Bool: b}
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		list := make([]string, 0, len(raw))
		for _, item := range raw {
			list = append(list, scalarToken(item))
		}
		*v = AnswerValue{Kind: AnswerList, List: list}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = AnswerValue{Kind: AnswerText, Text: s}
	default:
		// Numbers keep their literal text form.
		*v = AnswerValue{Kind: AnswerText, Text: string(data)}
	}
	return nil
}

// DecodeAnswer parses a stored answer field. Legacy rows may hold bare text
// that is not valid JSON; that text is taken verbatim as a scalar.
func DecodeAnswer(raw []byte) AnswerValue {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return NullAnswer()
	}
	var v AnswerValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return TextAnswer(string(raw))
	}
	return v
}

func scalarToken(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
