package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/examhall/examhall-backend/internal/middleware"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/response"
	"github.com/examhall/examhall-backend/internal/service"
	"github.com/examhall/examhall-backend/internal/validator"
	"github.com/examhall/examhall-backend/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ExamHandler handles student-facing exam endpoints.
type ExamHandler struct {
	sessionService *service.ExamSessionService
	catalogService *service.CatalogService
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(
	sessionService *service.ExamSessionService,
	catalogService *service.CatalogService,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamHandler {
	return &ExamHandler{
		sessionService: sessionService,
		catalogService: catalogService,
		rdb:            rdb,
		log:            log.With().Str("component", "exam_handler").Logger(),
	}
}

// ListPapers godoc
// GET /api/v1/student/papers
// Returns all published papers the student may attempt.
func (h *ExamHandler) ListPapers(c *gin.Context) {
	papers, err := h.catalogService.ListPublished(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if papers == nil {
		papers = []model.Paper{}
	}

	response.Success(c, http.StatusOK, gin.H{"papers": papers})
}

// GetPaperPayload godoc
// GET /api/v1/student/papers/:paper_id/payload
// Returns the cached taker-safe paper, Redis-first.
// Requires an active session so papers cannot be downloaded without
// starting the attempt.
func (h *ExamHandler) GetPaperPayload(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	paperID, err := uuid.Parse(c.Param("paper_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if _, err := h.sessionService.ActiveSession(c.Request.Context(), paperID, claims.UserID); err != nil {
		failFromService(c, err)
		return
	}

	payload, err := h.catalogService.GetPaperPayload(c.Request.Context(), paperID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"paper": payload})
}

// StartSession godoc
// POST /api/v1/student/sessions
// Starts (or resumes) the student's attempt at a paper.
func (h *ExamHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), req.PaperID, claims.UserID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// GetSession godoc
// GET /api/v1/student/sessions/:session_id
// Returns the student's session joined with questions. The answer key is
// redacted while the attempt is in progress.
func (h *ExamHandler) GetSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	view, err := h.sessionService.GetSession(c.Request.Context(), sessionID, claims.UserID, claims.Role)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": view})
}

// RecordAnswer godoc
// PUT /api/v1/student/sessions/:session_id/answers
// Saves one answer. Past the deadline the session is force-submitted and
// TIME_EXPIRED is returned instead.
func (h *ExamHandler) RecordAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.RecordAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.RecordAnswer(c.Request.Context(), sessionID, claims.UserID, req.QuestionID, req.Answer)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"status":  "saved",
		"ends_at": session.EndsAt,
	})
}

// SubmitSession godoc
// POST /api/v1/student/sessions/:session_id/submit
// Finishes the attempt and auto-grades objective answers.
func (h *ExamHandler) SubmitSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.sessionService.Submit(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"status":      session.Status,
		"total_score": session.TotalScore,
	})
}

// ReportCheat godoc
// POST /api/v1/student/sessions/:session_id/cheat-events
// Queues an anomaly report. The response never reveals whether the event
// was actually recorded.
func (h *ExamHandler) ReportCheat(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.CheatReportRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ts := time.Now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	payload, _ := json.Marshal(worker.CheatEventPayload{
		SessionID: sessionID.String(),
		StudentID: claims.UserID,
		Type:      string(req.Type),
		Timestamp: ts.Unix(),
	})
	if err := h.rdb.RPush(c.Request.Context(), config.WorkerKey.CheatEventsQueue, payload).Err(); err != nil {
		h.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Cheat report enqueue failed")
	}

	response.Success(c, http.StatusAccepted, gin.H{"status": "received"})
}

// ListMySessions godoc
// GET /api/v1/student/sessions?page=1&per_page=10
// Returns the student's past and current sessions, newest first.
func (h *ExamHandler) ListMySessions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, perPage := pageParams(c)
	sessions, total, err := h.sessionService.ListByStudent(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if sessions == nil {
		sessions = []model.ExamSession{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"sessions": sessions}, response.NewPagination(page, perPage, total))
}

// pageParams reads and clamps pagination query parameters.
func pageParams(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "10"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
