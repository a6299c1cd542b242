package service

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// ----------------------------------------------------------------
// In-memory fakes
// ----------------------------------------------------------------

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.ExamSession
	// failUpdates injects version conflicts for the next N Update calls.
	failUpdates int
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[uuid.UUID]*model.ExamSession)}
}

func cloneSession(s *model.ExamSession) *model.ExamSession {
	c := *s
	c.Answers = append([]model.AnswerRecord(nil), s.Answers...)
	c.CheatEvents = append([]model.CheatEvent(nil), s.CheatEvents...)
	return &c
}

func (m *memSessionStore) Create(_ context.Context, s *model.ExamSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.sessions {
		if existing.PaperID == s.PaperID && existing.StudentID == s.StudentID &&
			existing.Status == model.SessionInProgress {
			return repository.ErrDuplicateActive
		}
	}
	s.Version = 1
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

func (m *memSessionStore) GetByID(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneSession(s), nil
}

func (m *memSessionStore) GetActive(_ context.Context, paperID uuid.UUID, studentID int) (*model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.PaperID == paperID && s.StudentID == studentID && s.Status == model.SessionInProgress {
			return cloneSession(s), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memSessionStore) HasCompleted(_ context.Context, paperID uuid.UUID, studentID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.PaperID == paperID && s.StudentID == studentID && s.Status != model.SessionInProgress {
			return true, nil
		}
	}
	return false, nil
}

func (m *memSessionStore) Update(_ context.Context, s *model.ExamSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpdates > 0 {
		m.failUpdates--
		return repository.ErrVersionConflict
	}
	stored, ok := m.sessions[s.ID]
	if !ok || stored.Version != s.Version {
		return repository.ErrVersionConflict
	}
	s.Version++
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

func (m *memSessionStore) ListExpired(_ context.Context, now time.Time, limit int) ([]model.ExamSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ExamSession
	for _, s := range m.sessions {
		if s.Status == model.SessionInProgress && now.After(s.EndsAt) {
			out = append(out, *cloneSession(s))
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memSessionStore) ListByStudent(_ context.Context, studentID, page, perPage int) ([]model.ExamSession, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ExamSession
	for _, s := range m.sessions {
		if s.StudentID == studentID {
			out = append(out, *cloneSession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, int64(len(out)), nil
}

func (m *memSessionStore) ListByPaper(_ context.Context, paperID uuid.UUID, page, perPage int) ([]repository.PaperResult, int64, error) {
	return nil, 0, nil
}

func (m *memSessionStore) CompletedScores(_ context.Context, paperID uuid.UUID) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []float64
	for _, s := range m.sessions {
		if s.PaperID == paperID && s.Status != model.SessionInProgress {
			out = append(out, s.TotalScore)
		}
	}
	return out, nil
}

type memPaperCatalog struct {
	papers map[uuid.UUID]*model.Paper
}

func (m *memPaperCatalog) Get(_ context.Context, id uuid.UUID) (*model.Paper, error) {
	p, ok := m.papers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memPaperCatalog) ListPublished(_ context.Context) ([]model.Paper, error) {
	var out []model.Paper
	for _, p := range m.papers {
		if p.Status == model.PaperStatusPublished {
			out = append(out, *p)
		}
	}
	return out, nil
}

type memQuestionCatalog struct {
	questions map[uuid.UUID]model.Question
}

func (m *memQuestionCatalog) GetMany(_ context.Context, ids []uuid.UUID) ([]model.Question, error) {
	var out []model.Question
	seen := make(map[uuid.UUID]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if q, ok := m.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

// ----------------------------------------------------------------
// Fixture
// ----------------------------------------------------------------

type fixture struct {
	store     *memSessionStore
	papers    *memPaperCatalog
	questions *memQuestionCatalog
	svc       *ExamSessionService

	paper    *model.Paper
	qSingle  model.Question
	qMulti   model.Question
	qJudge   model.Question
	qEssay   model.Question
}

func q(t model.QuestionType, key string, score float64) model.Question {
	return model.Question{
		ID:            uuid.New(),
		Type:          t,
		Content:       "q",
		CorrectAnswer: []byte(key),
		DefaultScore:  score,
	}
}

// newFixture builds a published 60-minute paper with one question of
// each type. Paper scores: single 10, multiple 10, judge 5, essay 10.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:     newMemSessionStore(),
		questions: &memQuestionCatalog{questions: make(map[uuid.UUID]model.Question)},
	}

	f.qSingle = q(model.QuestionSingle, `"B"`, 10)
	f.qMulti = q(model.QuestionMultiple, `["A","C"]`, 10)
	f.qJudge = q(model.QuestionJudge, `true`, 5)
	f.qEssay = q(model.QuestionEssay, `null`, 10)
	for _, qu := range []model.Question{f.qSingle, f.qMulti, f.qJudge, f.qEssay} {
		f.questions.questions[qu.ID] = qu
	}

	f.paper = &model.Paper{
		ID:              uuid.New(),
		Title:           "Midterm",
		Subject:         "math",
		TotalScore:      35,
		DurationMinutes: 60,
		Status:          model.PaperStatusPublished,
		Questions: []model.PaperQuestion{
			{QuestionID: f.qSingle.ID, Score: 10, Order: 1},
			{QuestionID: f.qMulti.ID, Score: 10, Order: 2},
			{QuestionID: f.qJudge.ID, Score: 5, Order: 3},
			{QuestionID: f.qEssay.ID, Score: 10, Order: 4},
		},
	}
	f.papers = &memPaperCatalog{papers: map[uuid.UUID]*model.Paper{f.paper.ID: f.paper}}

	f.svc = NewExamSessionService(f.store, f.papers, f.questions, 3, zerolog.Nop())
	return f
}

func (f *fixture) start(t *testing.T, studentID int) *model.ExamSession {
	t.Helper()
	sess, err := f.svc.Start(context.Background(), f.paper.ID, studentID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return sess
}

func (f *fixture) answer(t *testing.T, sess *model.ExamSession, studentID int, qid uuid.UUID, v model.AnswerValue) *model.ExamSession {
	t.Helper()
	out, err := f.svc.RecordAnswer(context.Background(), sess.ID, studentID, qid, v)
	if err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	return out
}

// ----------------------------------------------------------------
// Start
// ----------------------------------------------------------------

func TestStartCreatesOrderedSlots(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)

	if sess.Status != model.SessionInProgress {
		t.Fatalf("status = %s, want in_progress", sess.Status)
	}
	if len(sess.Answers) != 4 {
		t.Fatalf("answers = %d, want 4", len(sess.Answers))
	}
	want := []uuid.UUID{f.qSingle.ID, f.qMulti.ID, f.qJudge.ID, f.qEssay.ID}
	for i, rec := range sess.Answers {
		if rec.QuestionID != want[i] {
			t.Errorf("slot %d = %s, want %s", i, rec.QuestionID, want[i])
		}
		if rec.Answer.Kind != model.AnswerNull {
			t.Errorf("slot %d starts with kind %s, want null", i, rec.Answer.Kind)
		}
	}
	wantEnd := sess.StartedAt.Add(60 * time.Minute)
	if !sess.EndsAt.Equal(wantEnd) {
		t.Errorf("ends_at = %v, want %v", sess.EndsAt, wantEnd)
	}
}

func TestStartResumesActiveSession(t *testing.T) {
	f := newFixture(t)
	first := f.start(t, 1)
	second := f.start(t, 1)
	if first.ID != second.ID {
		t.Fatalf("second start created new session %s, want resume of %s", second.ID, first.ID)
	}
}

func TestStartRejectsUnpublished(t *testing.T) {
	f := newFixture(t)
	f.paper.Status = model.PaperStatusDraft
	if _, err := f.svc.Start(context.Background(), f.paper.ID, 1); !errors.Is(err, ErrNotPublished) {
		t.Fatalf("err = %v, want ErrNotPublished", err)
	}
}

func TestStartRejectsClosedWindow(t *testing.T) {
	f := newFixture(t)
	past := time.Now().Add(-time.Hour)
	f.paper.WindowEnd = &past
	if _, err := f.svc.Start(context.Background(), f.paper.ID, 1); !errors.Is(err, ErrOutsideWindow) {
		t.Fatalf("err = %v, want ErrOutsideWindow", err)
	}
}

func TestStartRetakePolicy(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)
	if _, err := f.svc.Submit(context.Background(), sess.ID, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := f.svc.Start(context.Background(), f.paper.ID, 1); !errors.Is(err, ErrRetakeNotAllowed) {
		t.Fatalf("err = %v, want ErrRetakeNotAllowed", err)
	}

	f.paper.AllowRetake = true
	again, err := f.svc.Start(context.Background(), f.paper.ID, 1)
	if err != nil {
		t.Fatalf("retake start: %v", err)
	}
	if again.ID == sess.ID {
		t.Fatal("retake reused the completed session")
	}
}

func TestStartUnknownPaper(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Start(context.Background(), uuid.New(), 1); !errors.Is(err, ErrPaperNotFound) {
		t.Fatalf("err = %v, want ErrPaperNotFound", err)
	}
}

// ----------------------------------------------------------------
// RecordAnswer
// ----------------------------------------------------------------

func TestRecordAnswerOverwrites(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)

	sess = f.answer(t, sess, 1, f.qSingle.ID, model.TextAnswer("A"))
	sess = f.answer(t, sess, 1, f.qSingle.ID, model.TextAnswer("B"))

	rec := sess.AnswerFor(f.qSingle.ID)
	if rec.Answer.Kind != model.AnswerText || rec.Answer.Text != "B" {
		t.Fatalf("answer = %+v, want text B", rec.Answer)
	}
}

func TestRecordAnswerKeepsFalsyValues(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)

	sess = f.answer(t, sess, 1, f.qJudge.ID, model.BoolAnswer(false))
	if rec := sess.AnswerFor(f.qJudge.ID); rec.Answer.Kind != model.AnswerBool || rec.Answer.Bool {
		t.Fatalf("answer = %+v, want bool false", rec.Answer)
	}

	sess = f.answer(t, sess, 1, f.qSingle.ID, model.NullAnswer())
	if rec := sess.AnswerFor(f.qSingle.ID); rec.Answer.Kind != model.AnswerNull {
		t.Fatalf("answer = %+v, want null", rec.Answer)
	}
}

func TestRecordAnswerUnknownQuestion(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)
	_, err := f.svc.RecordAnswer(context.Background(), sess.ID, 1, uuid.New(), model.TextAnswer("A"))
	if !errors.Is(err, ErrQuestionNotInSession) {
		t.Fatalf("err = %v, want ErrQuestionNotInSession", err)
	}
}

func TestRecordAnswerWrongStudent(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)
	_, err := f.svc.RecordAnswer(context.Background(), sess.ID, 2, f.qSingle.ID, model.TextAnswer("A"))
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestRecordAnswerAfterSubmit(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)
	if _, err := f.svc.Submit(context.Background(), sess.ID, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_, err := f.svc.RecordAnswer(context.Background(), sess.ID, 1, f.qSingle.ID, model.TextAnswer("A"))
	if !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("err = %v, want ErrAlreadySubmitted", err)
	}
}

func TestRecordAnswerPastDeadlineForcesSubmit(t *testing.T) {
	f := newFixture(t)
	f.paper.DurationMinutes = 0
	sess := f.start(t, 1)

	_, err := f.svc.RecordAnswer(context.Background(), sess.ID, 1, f.qSingle.ID, model.TextAnswer("B"))
	if !errors.Is(err, ErrTimeExpired) {
		t.Fatalf("err = %v, want ErrTimeExpired", err)
	}

	stored, err := f.store.GetByID(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status == model.SessionInProgress {
		t.Fatalf("status = %s, want completed", stored.Status)
	}
	if !stored.AutoSubmitted {
		t.Error("auto_submitted = false, want true")
	}
	if rec := stored.AnswerFor(f.qSingle.ID); rec.Answer.Kind != model.AnswerNull {
		t.Errorf("late answer was stored: %+v", rec.Answer)
	}
}

func TestRecordAnswerExhaustsRetries(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)
	f.store.failUpdates = 10
	_, err := f.svc.RecordAnswer(context.Background(), sess.ID, 1, f.qSingle.ID, model.TextAnswer("A"))
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

// ----------------------------------------------------------------
// Submit and grading
// ----------------------------------------------------------------

func TestSubmitGradesObjectiveAndWaitsOnEssay(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)

	f.answer(t, sess, 1, f.qSingle.ID, model.TextAnswer("B"))
	f.answer(t, sess, 1, f.qEssay.ID, model.TextAnswer("long prose"))

	out, err := f.svc.Submit(context.Background(), sess.ID, 1)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if out.Status != model.SessionSubmitted {
		t.Fatalf("status = %s, want submitted", out.Status)
	}
	if out.TotalScore != 10 {
		t.Fatalf("total = %v, want 10", out.TotalScore)
	}
	if out.AutoSubmitted {
		t.Error("auto_submitted = true on explicit submit")
	}
	if out.SubmittedAt == nil {
		t.Error("submitted_at not set")
	}

	single := out.AnswerFor(f.qSingle.ID)
	if single.IsCorrect == nil || !*single.IsCorrect || single.Score != 10 {
		t.Errorf("single = %+v, want correct 10", single)
	}
	essay := out.AnswerFor(f.qEssay.ID)
	if essay.IsCorrect != nil || essay.Score != 0 {
		t.Errorf("essay = %+v, want ungraded 0", essay)
	}
}

func TestSubmitMultipleOrderInsensitive(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)

	f.answer(t, sess, 1, f.qMulti.ID, model.ListAnswer("C", "A"))
	out, err := f.svc.Submit(context.Background(), sess.ID, 1)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	rec := out.AnswerFor(f.qMulti.ID)
	if rec.IsCorrect == nil || !*rec.IsCorrect || rec.Score != 10 {
		t.Fatalf("multi = %+v, want correct 10", rec)
	}
}

func TestSubmitJudgeBoolAgainstStringKey(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)

	f.answer(t, sess, 1, f.qJudge.ID, model.BoolAnswer(true))
	out, err := f.svc.Submit(context.Background(), sess.ID, 1)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	rec := out.AnswerFor(f.qJudge.ID)
	if rec.IsCorrect == nil || !*rec.IsCorrect || rec.Score != 5 {
		t.Fatalf("judge = %+v, want correct 5", rec)
	}
}

func TestSubmitAllObjectiveLandsGraded(t *testing.T) {
	f := newFixture(t)
	// Drop the essay so the paper is purely objective.
	f.paper.Questions = f.paper.Questions[:3]
	sess := f.start(t, 1)

	f.answer(t, sess, 1, f.qSingle.ID, model.TextAnswer("B"))
	out, err := f.svc.Submit(context.Background(), sess.ID, 1)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Status != model.SessionGraded {
		t.Fatalf("status = %s, want graded", out.Status)
	}
}

func TestSubmitTwice(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)
	if _, err := f.svc.Submit(context.Background(), sess.ID, 1); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := f.svc.Submit(context.Background(), sess.ID, 1); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("err = %v, want ErrAlreadySubmitted", err)
	}
}

// ----------------------------------------------------------------
// AutoSubmit
// ----------------------------------------------------------------

func TestAutoSubmitIdempotent(t *testing.T) {
	f := newFixture(t)
	f.paper.DurationMinutes = 0
	sess := f.start(t, 1)
	f.answerDirect(sess.ID, f.qSingle.ID, model.TextAnswer("B"))

	if err := f.svc.AutoSubmit(context.Background(), sess.ID); err != nil {
		t.Fatalf("AutoSubmit: %v", err)
	}
	first, _ := f.store.GetByID(context.Background(), sess.ID)

	if err := f.svc.AutoSubmit(context.Background(), sess.ID); err != nil {
		t.Fatalf("second AutoSubmit: %v", err)
	}
	second, _ := f.store.GetByID(context.Background(), sess.ID)

	if !first.AutoSubmitted || first.Status == model.SessionInProgress {
		t.Fatalf("first pass = %+v, want auto-submitted", first.Status)
	}
	if second.Version != first.Version || !second.SubmittedAt.Equal(*first.SubmittedAt) {
		t.Fatal("second AutoSubmit modified a completed session")
	}
	if second.TotalScore != first.TotalScore {
		t.Fatalf("total changed %v -> %v", first.TotalScore, second.TotalScore)
	}
}

// answerDirect writes an answer into the store bypassing the deadline
// check, simulating an answer saved just before expiry.
func (f *fixture) answerDirect(sessionID, qid uuid.UUID, v model.AnswerValue) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	s := f.store.sessions[sessionID]
	for i := range s.Answers {
		if s.Answers[i].QuestionID == qid {
			s.Answers[i].Answer = v
		}
	}
}

// ----------------------------------------------------------------
// GradeQuestion
// ----------------------------------------------------------------

func TestGradeEssayRecomputesTotal(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)
	f.answer(t, sess, 1, f.qSingle.ID, model.TextAnswer("B"))
	f.answer(t, sess, 1, f.qEssay.ID, model.TextAnswer("prose"))
	if _, err := f.svc.Submit(context.Background(), sess.ID, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	out, err := f.svc.GradeQuestion(context.Background(), sess.ID, 99, model.GradeQuestionRequest{
		QuestionID: f.qEssay.ID,
		Score:      7,
		Comment:    "decent",
	})
	if err != nil {
		t.Fatalf("GradeQuestion: %v", err)
	}
	if out.TotalScore != 17 {
		t.Fatalf("total = %v, want 17", out.TotalScore)
	}
	if out.Status != model.SessionGraded {
		t.Fatalf("status = %s, want graded", out.Status)
	}

	// Re-grading overwrites, never accumulates.
	out, err = f.svc.GradeQuestion(context.Background(), sess.ID, 99, model.GradeQuestionRequest{
		QuestionID: f.qEssay.ID,
		Score:      9,
	})
	if err != nil {
		t.Fatalf("re-grade: %v", err)
	}
	if out.TotalScore != 19 {
		t.Fatalf("total after re-grade = %v, want 19", out.TotalScore)
	}
}

func TestGradeRejectsInProgress(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)
	_, err := f.svc.GradeQuestion(context.Background(), sess.ID, 99, model.GradeQuestionRequest{
		QuestionID: f.qEssay.ID,
		Score:      5,
	})
	if !errors.Is(err, ErrExamStillInProgress) {
		t.Fatalf("err = %v, want ErrExamStillInProgress", err)
	}
}

func TestGradeScoreRange(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)
	if _, err := f.svc.Submit(context.Background(), sess.ID, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	for _, score := range []float64{-1, 11} {
		_, err := f.svc.GradeQuestion(context.Background(), sess.ID, 99, model.GradeQuestionRequest{
			QuestionID: f.qEssay.ID,
			Score:      score,
		})
		if !errors.Is(err, ErrScoreOutOfRange) {
			t.Errorf("score %v: err = %v, want ErrScoreOutOfRange", score, err)
		}
	}
}

func TestGradeOrderIndependent(t *testing.T) {
	run := func(t *testing.T, scores [][2]float64) float64 {
		f := newFixture(t)
		// Two essays for cross-order grading.
		essay2 := q(model.QuestionEssay, `null`, 10)
		f.questions.questions[essay2.ID] = essay2
		f.paper.Questions = append(f.paper.Questions, model.PaperQuestion{QuestionID: essay2.ID, Score: 10, Order: 5})

		sess := f.start(t, 1)
		if _, err := f.svc.Submit(context.Background(), sess.ID, 1); err != nil {
			t.Fatalf("Submit: %v", err)
		}

		targets := []uuid.UUID{f.qEssay.ID, essay2.ID}
		var last *model.ExamSession
		for _, sc := range scores {
			out, err := f.svc.GradeQuestion(context.Background(), sess.ID, 99, model.GradeQuestionRequest{
				QuestionID: targets[int(sc[0])],
				Score:      sc[1],
			})
			if err != nil {
				t.Fatalf("GradeQuestion: %v", err)
			}
			last = out
		}
		return last.TotalScore
	}

	a := run(t, [][2]float64{{0, 7}, {1, 4}})
	b := run(t, [][2]float64{{1, 4}, {0, 7}})
	if a != b {
		t.Fatalf("grading order changed total: %v vs %v", a, b)
	}
	if a != 11 {
		t.Fatalf("total = %v, want 11", a)
	}
}

// ----------------------------------------------------------------
// Cheat events
// ----------------------------------------------------------------

func TestRecordCheatEventCounters(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)

	f.svc.RecordCheatEvent(context.Background(), sess.ID, 1, model.CheatEvent{Type: model.CheatTabSwitch})
	f.svc.RecordCheatEvent(context.Background(), sess.ID, 1, model.CheatEvent{Type: model.CheatCopy})
	f.svc.RecordCheatEvent(context.Background(), sess.ID, 1, model.CheatEvent{Type: model.CheatPaste})
	f.svc.RecordCheatEvent(context.Background(), sess.ID, 1, model.CheatEvent{Type: model.CheatTabSwitch})

	stored, err := f.store.GetByID(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(stored.CheatEvents) != 4 {
		t.Fatalf("events = %d, want 4", len(stored.CheatEvents))
	}
	if stored.TabSwitchCount != 2 {
		t.Errorf("tab_switch_count = %d, want 2", stored.TabSwitchCount)
	}
	if stored.CopyPasteCount != 2 {
		t.Errorf("copy_paste_count = %d, want 2", stored.CopyPasteCount)
	}
}

func TestRecordCheatEventIgnoredAfterSubmit(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)
	if _, err := f.svc.Submit(context.Background(), sess.ID, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	f.svc.RecordCheatEvent(context.Background(), sess.ID, 1, model.CheatEvent{Type: model.CheatCopy})

	stored, _ := f.store.GetByID(context.Background(), sess.ID)
	if len(stored.CheatEvents) != 0 {
		t.Fatalf("events recorded after submit: %d", len(stored.CheatEvents))
	}
}

// ----------------------------------------------------------------
// GetSession views
// ----------------------------------------------------------------

func TestGetSessionRedactsKeyWhileInProgress(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)

	view, err := f.svc.GetSession(context.Background(), sess.ID, 1, model.RoleStudent)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	for _, av := range view.Answers {
		if av.Question == nil {
			t.Fatal("question missing from view")
		}
		if av.Question.CorrectAnswer != nil {
			t.Errorf("correct answer leaked for %s", av.QuestionID)
		}
	}

	// Teacher sees the key regardless.
	view, err = f.svc.GetSession(context.Background(), sess.ID, 99, model.RoleTeacher)
	if err != nil {
		t.Fatalf("teacher GetSession: %v", err)
	}
	if view.Answers[0].Question.CorrectAnswer == nil {
		t.Error("teacher view lost the answer key")
	}
}

func TestGetSessionRevealsKeyAfterSubmit(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)
	if _, err := f.svc.Submit(context.Background(), sess.ID, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	view, err := f.svc.GetSession(context.Background(), sess.ID, 1, model.RoleStudent)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if view.Answers[0].Question.CorrectAnswer == nil {
		t.Error("key still redacted after submit")
	}

	var essay *AnswerView
	for i := range view.Answers {
		if view.Answers[i].QuestionID == f.qEssay.ID {
			essay = &view.Answers[i]
		}
	}
	if essay == nil || !essay.PendingReview {
		t.Error("ungraded essay not flagged pending_review")
	}
}

func TestGetSessionForeignStudent(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)
	if _, err := f.svc.GetSession(context.Background(), sess.ID, 2, model.RoleStudent); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.GetSession(context.Background(), uuid.New(), 1, model.RoleTeacher); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

// ----------------------------------------------------------------
// Lifecycle properties
// ----------------------------------------------------------------

// statusRank orders statuses along the only legal direction of travel.
func statusRank(s model.SessionStatus) int {
	switch s {
	case model.SessionInProgress:
		return 0
	case model.SessionSubmitted:
		return 1
	case model.SessionGraded:
		return 2
	}
	return -1
}

func TestStatusNeverRegresses(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		f := newFixture(t)
		sess := f.start(t, 1)
		prev := statusRank(sess.Status)

		for step := 0; step < 20; step++ {
			switch rng.Intn(5) {
			case 0:
				f.svc.RecordAnswer(context.Background(), sess.ID, 1, f.qSingle.ID, model.TextAnswer("B"))
			case 1:
				f.svc.Submit(context.Background(), sess.ID, 1)
			case 2:
				f.svc.AutoSubmit(context.Background(), sess.ID)
			case 3:
				f.svc.GradeQuestion(context.Background(), sess.ID, 99, model.GradeQuestionRequest{
					QuestionID: f.qEssay.ID,
					Score:      float64(rng.Intn(11)),
				})
			case 4:
				f.svc.RecordCheatEvent(context.Background(), sess.ID, 1, model.CheatEvent{Type: model.CheatTabSwitch})
			}

			stored, err := f.store.GetByID(context.Background(), sess.ID)
			if err != nil {
				t.Fatalf("trial %d step %d: %v", trial, step, err)
			}
			rank := statusRank(stored.Status)
			if rank < prev {
				t.Fatalf("trial %d step %d: status regressed %d -> %d", trial, step, prev, rank)
			}
			prev = rank
		}
	}
}

func TestTotalAlwaysMatchesAnswerSum(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)
	f.answer(t, sess, 1, f.qSingle.ID, model.TextAnswer("B"))
	f.answer(t, sess, 1, f.qJudge.ID, model.BoolAnswer(true))
	if _, err := f.svc.Submit(context.Background(), sess.ID, 1); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.svc.GradeQuestion(context.Background(), sess.ID, 99, model.GradeQuestionRequest{
		QuestionID: f.qEssay.ID,
		Score:      6.5,
	}); err != nil {
		t.Fatalf("GradeQuestion: %v", err)
	}

	stored, _ := f.store.GetByID(context.Background(), sess.ID)
	sum := 0.0
	for _, rec := range stored.Answers {
		sum += rec.Score
	}
	if stored.TotalScore != sum {
		t.Fatalf("total %v != sum %v", stored.TotalScore, sum)
	}
	if stored.TotalScore != 21.5 {
		t.Fatalf("total = %v, want 21.5", stored.TotalScore)
	}
}

func TestConcurrentAnswersAllLand(t *testing.T) {
	f := newFixture(t)
	sess := f.start(t, 1)

	var wg sync.WaitGroup
	targets := []uuid.UUID{f.qSingle.ID, f.qMulti.ID, f.qJudge.ID, f.qEssay.ID}
	for _, qid := range targets {
		wg.Add(1)
		go func(qid uuid.UUID) {
			defer wg.Done()
			// Retries absorb version races between the goroutines.
			for {
				_, err := f.svc.RecordAnswer(context.Background(), sess.ID, 1, qid, model.TextAnswer("x"))
				if err == nil || !errors.Is(err, ErrConflict) {
					return
				}
			}
		}(qid)
	}
	wg.Wait()

	stored, _ := f.store.GetByID(context.Background(), sess.ID)
	for _, qid := range targets {
		if rec := stored.AnswerFor(qid); rec.Answer.Kind != model.AnswerText {
			t.Errorf("answer for %s lost", qid)
		}
	}
}
