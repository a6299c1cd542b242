package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states. Transitions are strictly
// forward: in_progress → submitted → graded. A session with no essay
// questions lands on graded directly at submission time.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionSubmitted  SessionStatus = "submitted"
	SessionGraded     SessionStatus = "graded"
)

// CheatEventType enumerates anomaly kinds reported during an exam.
type CheatEventType string

const (
	CheatTabSwitch CheatEventType = "tab_switch"
	CheatCopy      CheatEventType = "copy"
	CheatPaste     CheatEventType = "paste"
)

// CheatEvent is one recorded anomaly.
type CheatEvent struct {
	Type      CheatEventType `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
}

// AnswerRecord is one question slot in a session. The slot set is fixed at
// session creation; only Answer, Score, IsCorrect, and TeacherComment
// mutate afterwards. IsCorrect stays nil for essay answers until a teacher
// grades them — nil + zero score + empty comment is the ungraded sentinel.
type AnswerRecord struct {
	QuestionID     uuid.UUID   `json:"question_id"`
	Answer         AnswerValue `json:"answer"`
	Score          float64     `json:"score"`
	IsCorrect      *bool       `json:"is_correct"`
	TeacherComment string      `json:"teacher_comment"`
}

// ExamSession is one student's timed attempt at one paper.
type ExamSession struct {
	ID          uuid.UUID      `json:"id"`
	PaperID     uuid.UUID      `json:"paper_id"`
	StudentID   int            `json:"student_id"`
	StartedAt   time.Time      `json:"started_at"`
	EndsAt      time.Time      `json:"ends_at"`
	SubmittedAt *time.Time     `json:"submitted_at,omitempty"`
	Status      SessionStatus  `json:"status"`
	Answers     []AnswerRecord `json:"answers"`
	// TotalScore is derived: always Σ answers[i].score rounded to two
	// decimals. Only the aggregator writes it.
	TotalScore     float64      `json:"total_score"`
	AutoSubmitted  bool         `json:"auto_submitted"`
	CheatEvents    []CheatEvent `json:"cheat_events,omitempty"`
	TabSwitchCount int          `json:"tab_switch_count"`
	CopyPasteCount int          `json:"copy_paste_count"`
	// Version backs the optimistic read-modify-write cycle at the
	// storage boundary.
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnswerFor returns the record for the given question, or nil when the
// question is not part of this session.
func (s *ExamSession) AnswerFor(questionID uuid.UUID) *AnswerRecord {
	for i := range s.Answers {
		if s.Answers[i].QuestionID == questionID {
			return &s.Answers[i]
		}
	}
	return nil
}

// Completed reports whether the session has left in_progress.
func (s *ExamSession) Completed() bool {
	return s.Status != SessionInProgress
}

// Expired reports whether the deadline has passed.
func (s *ExamSession) Expired(now time.Time) bool {
	return now.After(s.EndsAt)
}

// RecordCheat appends the event and maintains the derived counters.
func (s *ExamSession) RecordCheat(ev CheatEvent) {
	s.CheatEvents = append(s.CheatEvents, ev)
	switch ev.Type {
	case CheatTabSwitch:
		s.TabSwitchCount++
	case CheatCopy, CheatPaste:
		s.CopyPasteCount++
	}
}

// ─── Request payloads ───────────────────────────────────────────────

// StartSessionRequest is the payload for starting an exam.
type StartSessionRequest struct {
	PaperID uuid.UUID `json:"paper_id" binding:"required"`
}

// RecordAnswerRequest saves one answer. Answer deliberately has no
// "required" rule: null, false, 0, and "" are legitimate answers.
type RecordAnswerRequest struct {
	QuestionID uuid.UUID   `json:"question_id" binding:"required"`
	Answer     AnswerValue `json:"answer"`
}

// GradeQuestionRequest is a teacher's grade for one answer.
type GradeQuestionRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Score      float64   `json:"score" binding:"min=0"`
	Comment    string    `json:"comment" binding:"max=2000"`
	IsCorrect  *bool     `json:"is_correct"`
}

// CheatReportRequest reports one anomaly event.
type CheatReportRequest struct {
	Type      CheatEventType `json:"type" binding:"required,oneof=tab_switch copy paste"`
	Timestamp *time.Time     `json:"timestamp"`
}
