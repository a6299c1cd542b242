package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/examhall/examhall-backend/internal/grading"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// fallbackQuestionScore applies when a graded question has vanished from
// the bank and the paper carries no override for it.
const fallbackQuestionScore = 10

// ExamSessionService owns the session lifecycle: start, answer intake
// under the deadline, submission with auto-grading, teacher grading, and
// cheat-event recording. All session writes go through bounded
// optimistic-lock retries against the SessionStore.
type ExamSessionService struct {
	sessions  SessionStore
	papers    PaperCatalog
	questions QuestionCatalog
	retries   int
	log       zerolog.Logger
}

// NewExamSessionService creates a new ExamSessionService. retries bounds
// read-modify-write attempts per operation; values below 1 are raised to 1.
func NewExamSessionService(
	sessions SessionStore,
	papers PaperCatalog,
	questions QuestionCatalog,
	retries int,
	log zerolog.Logger,
) *ExamSessionService {
	if retries < 1 {
		retries = 1
	}
	return &ExamSessionService{
		sessions:  sessions,
		papers:    papers,
		questions: questions,
		retries:   retries,
		log:       log.With().Str("component", "exam_session_service").Logger(),
	}
}

// Start begins a student's attempt at a paper. Starting is idempotent
// while a session is in progress: the existing session is resumed, never
// duplicated. A completed attempt blocks a new one unless the paper
// allows retakes.
func (s *ExamSessionService) Start(ctx context.Context, paperID uuid.UUID, studentID int) (*model.ExamSession, error) {
	paper, err := s.papers.Get(ctx, paperID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaperNotFound
		}
		return nil, fmt.Errorf("get paper: %w", err)
	}

	if paper.Status != model.PaperStatusPublished {
		return nil, ErrNotPublished
	}

	now := time.Now()
	if !paper.WindowOpen(now) {
		return nil, ErrOutsideWindow
	}

	// Resume an in-progress attempt if one exists.
	existing, err := s.sessions.GetActive(ctx, paperID, studentID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check active session: %w", err)
	}

	if !paper.AllowRetake {
		done, err := s.sessions.HasCompleted(ctx, paperID, studentID)
		if err != nil {
			return nil, fmt.Errorf("check completed session: %w", err)
		}
		if done {
			return nil, ErrRetakeNotAllowed
		}
	}

	session := &model.ExamSession{
		ID:        uuid.New(),
		PaperID:   paperID,
		StudentID: studentID,
		StartedAt: now,
		EndsAt:    now.Add(time.Duration(paper.DurationMinutes) * time.Minute),
		Status:    model.SessionInProgress,
		Answers:   emptyAnswers(paper),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrDuplicateActive) {
			// Concurrent start: hand back the winner's session.
			winner, fetchErr := s.sessions.GetActive(ctx, paperID, studentID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent start detected, fetch failed: %w", fetchErr)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	return session, nil
}

// RecordAnswer stores one answer in its slot. The clock is authoritative
// over client intent: past the deadline the session is force-submitted
// and the caller gets ErrTimeExpired instead of a saved answer. Null,
// false, 0, and "" are legitimate values and are stored as given.
func (s *ExamSessionService) RecordAnswer(ctx context.Context, sessionID uuid.UUID, requesterID int, questionID uuid.UUID, value model.AnswerValue) (*model.ExamSession, error) {
	for attempt := 0; attempt < s.retries; attempt++ {
		sess, err := s.load(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if sess.StudentID != requesterID {
			return nil, ErrUnauthorized
		}
		if sess.Completed() {
			return nil, ErrAlreadySubmitted
		}

		now := time.Now()
		if sess.Expired(now) {
			if err := s.finalize(ctx, sess, now, true); err != nil {
				if errors.Is(err, repository.ErrVersionConflict) {
					continue
				}
				return nil, err
			}
			return nil, ErrTimeExpired
		}

		rec := sess.AnswerFor(questionID)
		if rec == nil {
			return nil, ErrQuestionNotInSession
		}
		rec.Answer = value

		if err := s.sessions.Update(ctx, sess); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return nil, fmt.Errorf("save answer: %w", err)
		}
		return sess, nil
	}
	return nil, ErrConflict
}

// Submit finishes the attempt on the student's request: every objective
// answer is auto-graded, essay answers stay ungraded at zero, and the
// total is recomputed. Sessions containing essay questions halt at
// submitted awaiting a teacher; purely objective sessions land on graded.
func (s *ExamSessionService) Submit(ctx context.Context, sessionID uuid.UUID, requesterID int) (*model.ExamSession, error) {
	for attempt := 0; attempt < s.retries; attempt++ {
		sess, err := s.load(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if sess.StudentID != requesterID {
			return nil, ErrUnauthorized
		}
		if sess.Completed() {
			return nil, ErrAlreadySubmitted
		}

		if err := s.finalize(ctx, sess, time.Now(), false); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return nil, err
		}
		return sess, nil
	}
	return nil, ErrConflict
}

// AutoSubmit finishes an expired attempt on behalf of the clock. It is
// idempotent: a session that already left in_progress is a no-op, so the
// periodic sweep and a racing client-triggered path cannot double-grade.
func (s *ExamSessionService) AutoSubmit(ctx context.Context, sessionID uuid.UUID) error {
	for attempt := 0; attempt < s.retries; attempt++ {
		sess, err := s.load(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.Completed() {
			return nil
		}

		if err := s.finalize(ctx, sess, time.Now(), true); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return err
		}

		s.log.Info().
			Str("session_id", sess.ID.String()).
			Int("student_id", sess.StudentID).
			Msg("Session auto-submitted past deadline")
		return nil
	}
	return ErrConflict
}

// GradeQuestion applies a teacher's grade to one answer: score, comment,
// and optionally a correctness override. Re-grading overwrites. The total
// is recomputed over every record, never incrementally, and the session
// moves to graded.
func (s *ExamSessionService) GradeQuestion(ctx context.Context, sessionID uuid.UUID, graderID int, req model.GradeQuestionRequest) (*model.ExamSession, error) {
	for attempt := 0; attempt < s.retries; attempt++ {
		sess, err := s.load(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if sess.Status == model.SessionInProgress {
			return nil, ErrExamStillInProgress
		}

		rec := sess.AnswerFor(req.QuestionID)
		if rec == nil {
			return nil, ErrQuestionNotInSession
		}

		maxScore, err := s.maxScoreFor(ctx, sess.PaperID, req.QuestionID)
		if err != nil {
			return nil, err
		}
		if req.Score < 0 || req.Score > maxScore {
			return nil, ErrScoreOutOfRange
		}

		rec.Score = req.Score
		rec.TeacherComment = req.Comment
		if req.IsCorrect != nil {
			rec.IsCorrect = req.IsCorrect
		}

		grading.RecomputeTotal(sess)
		sess.Status = model.SessionGraded

		if err := s.sessions.Update(ctx, sess); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			return nil, fmt.Errorf("save grade: %w", err)
		}

		s.log.Info().
			Str("session_id", sess.ID.String()).
			Str("question_id", req.QuestionID.String()).
			Int("grader_id", graderID).
			Float64("score", req.Score).
			Msg("Question graded")
		return sess, nil
	}
	return nil, ErrConflict
}

// RecordCheatEvent appends an anomaly event to an in-progress session the
// student owns. Recording is best-effort: every failure is logged and
// swallowed so it can never abort an otherwise valid exam flow.
func (s *ExamSessionService) RecordCheatEvent(ctx context.Context, sessionID uuid.UUID, studentID int, ev model.CheatEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	for attempt := 0; attempt < s.retries; attempt++ {
		sess, err := s.sessions.GetByID(ctx, sessionID)
		if err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Cheat event dropped: load failed")
			return
		}
		if sess.StudentID != studentID || sess.Completed() {
			s.log.Debug().Str("session_id", sessionID.String()).Msg("Cheat event ignored")
			return
		}

		sess.RecordCheat(ev)

		if err := s.sessions.Update(ctx, sess); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				continue
			}
			s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Cheat event dropped: save failed")
			return
		}
		return
	}
	s.log.Warn().Str("session_id", sessionID.String()).Msg("Cheat event dropped: write contention")
}

// ----------------------------------------------------------------
// Read side
// ----------------------------------------------------------------

// AnswerView joins an answer record with its question definition.
type AnswerView struct {
	model.AnswerRecord
	Question *model.QuestionView `json:"question,omitempty"`
	// PendingReview flags essay answers no teacher has touched yet.
	PendingReview bool `json:"pending_review,omitempty"`
}

// SessionView is a session joined with question data for one reader.
type SessionView struct {
	model.ExamSession
	Answers []AnswerView `json:"answers"`
}

// GetSession returns a session joined with its questions. Students may
// only read their own sessions, and while the attempt is still in
// progress the correct answers and explanations are redacted.
func (s *ExamSessionService) GetSession(ctx context.Context, sessionID uuid.UUID, requesterID int, role model.UserRole) (*SessionView, error) {
	sess, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if role == model.RoleStudent && sess.StudentID != requesterID {
		return nil, ErrUnauthorized
	}

	questions, err := s.questions.GetMany(ctx, questionIDs(sess))
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	byID := questionMap(questions)

	withKey := !(role == model.RoleStudent && sess.Status == model.SessionInProgress)

	view := &SessionView{ExamSession: *sess}
	view.Answers = make([]AnswerView, 0, len(sess.Answers))
	for _, rec := range sess.Answers {
		av := AnswerView{AnswerRecord: rec}
		if q, ok := byID[rec.QuestionID]; ok {
			qv := q.View(withKey)
			av.Question = &qv
			av.PendingReview = q.Type == model.QuestionEssay &&
				sess.Completed() &&
				rec.IsCorrect == nil && rec.Score == 0 && rec.TeacherComment == ""
		}
		view.Answers = append(view.Answers, av)
	}
	return view, nil
}

// ActiveSession returns the student's in-progress session for a paper,
// or ErrSessionNotFound when none is running.
func (s *ExamSessionService) ActiveSession(ctx context.Context, paperID uuid.UUID, studentID int) (*model.ExamSession, error) {
	sess, err := s.sessions.GetActive(ctx, paperID, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return sess, nil
}

// ListByStudent returns a student's sessions, newest first.
func (s *ExamSessionService) ListByStudent(ctx context.Context, studentID, page, perPage int) ([]model.ExamSession, int64, error) {
	return s.sessions.ListByStudent(ctx, studentID, page, perPage)
}

// PaperResults returns all students' results for one paper.
func (s *ExamSessionService) PaperResults(ctx context.Context, paperID uuid.UUID, page, perPage int) ([]repository.PaperResult, int64, error) {
	return s.sessions.ListByPaper(ctx, paperID, page, perPage)
}

// ----------------------------------------------------------------
// Internals
// ----------------------------------------------------------------

// finalize grades and closes an in-progress session at the given moment.
// auto marks deadline-forced submission. The caller handles version
// conflicts.
func (s *ExamSessionService) finalize(ctx context.Context, sess *model.ExamSession, now time.Time, auto bool) error {
	paper, err := s.papers.Get(ctx, sess.PaperID)
	if err != nil {
		return fmt.Errorf("get paper: %w", err)
	}

	questions, err := s.questions.GetMany(ctx, questionIDs(sess))
	if err != nil {
		return fmt.Errorf("get questions: %w", err)
	}
	byID := questionMap(questions)

	hasEssay := false
	for i := range sess.Answers {
		rec := &sess.Answers[i]
		rec.Score = 0
		rec.IsCorrect = nil

		q, ok := byID[rec.QuestionID]
		if !ok {
			// Question removed from the bank: slot stays, scores zero.
			continue
		}
		if q.Type == model.QuestionEssay {
			hasEssay = true
			continue
		}

		correct := grading.Grade(q, rec.Answer)
		rec.IsCorrect = &correct
		if correct {
			rec.Score = paper.ScoreFor(rec.QuestionID, q.DefaultScore)
		}
	}

	grading.RecomputeTotal(sess)

	submittedAt := now
	sess.SubmittedAt = &submittedAt
	sess.AutoSubmitted = auto
	if hasEssay {
		sess.Status = model.SessionSubmitted
	} else {
		sess.Status = model.SessionGraded
	}

	if err := s.sessions.Update(ctx, sess); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

func (s *ExamSessionService) maxScoreFor(ctx context.Context, paperID, questionID uuid.UUID) (float64, error) {
	paper, err := s.papers.Get(ctx, paperID)
	if err != nil {
		return 0, fmt.Errorf("get paper: %w", err)
	}

	fallback := float64(fallbackQuestionScore)
	questions, err := s.questions.GetMany(ctx, []uuid.UUID{questionID})
	if err != nil {
		return 0, fmt.Errorf("get question: %w", err)
	}
	if len(questions) > 0 {
		fallback = questions[0].DefaultScore
	}
	return paper.ScoreFor(questionID, fallback), nil
}

func (s *ExamSessionService) load(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	sess, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// emptyAnswers allocates one zero-valued slot per paper question, in
// paper order. The slot set never changes afterwards.
func emptyAnswers(paper *model.Paper) []model.AnswerRecord {
	ordered := make([]model.PaperQuestion, len(paper.Questions))
	copy(ordered, paper.Questions)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	answers := make([]model.AnswerRecord, 0, len(ordered))
	for _, pq := range ordered {
		answers = append(answers, model.AnswerRecord{
			QuestionID: pq.QuestionID,
			Answer:     model.NullAnswer(),
		})
	}
	return answers
}

func questionIDs(sess *model.ExamSession) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(sess.Answers))
	for i := range sess.Answers {
		ids = append(ids, sess.Answers[i].QuestionID)
	}
	return ids
}

func questionMap(questions []model.Question) map[uuid.UUID]*model.Question {
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}
	return byID
}
