package websocket

import "encoding/json"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSave   Action = "save"
	ActionSubmit Action = "submit"
	ActionCheat  Action = "cheat"
	ActionPing   Action = "ping"
)

// RequestEnvelope carries every client message. Fields beyond Action are
// populated depending on the action.
type RequestEnvelope struct {
	Action Action `json:"action"`
	// Save
	QuestionID string          `json:"question_id,omitempty"`
	Answer     json.RawMessage `json:"answer,omitempty"`
	// Cheat
	CheatType string `json:"cheat_type,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSaved     Event = "saved"
	EventSubmitted Event = "submitted"
	EventExpired   Event = "expired"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

type SavedResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
}

// SubmittedResponse closes out the attempt. Status is "submitted" when
// essay grading is still pending, "graded" otherwise.
type SubmittedResponse struct {
	Event      Event   `json:"event"`
	Status     string  `json:"status"`
	TotalScore float64 `json:"total_score"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
