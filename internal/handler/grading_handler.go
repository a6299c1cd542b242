package handler

import (
	"net/http"

	"github.com/examhall/examhall-backend/internal/middleware"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/examhall/examhall-backend/internal/response"
	"github.com/examhall/examhall-backend/internal/service"
	"github.com/examhall/examhall-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GradingHandler handles teacher-facing grading and results endpoints.
type GradingHandler struct {
	sessionService *service.ExamSessionService
	scoreService   *service.ScoreService
	catalogService *service.CatalogService
}

// NewGradingHandler creates a new GradingHandler.
func NewGradingHandler(
	sessionService *service.ExamSessionService,
	scoreService *service.ScoreService,
	catalogService *service.CatalogService,
) *GradingHandler {
	return &GradingHandler{
		sessionService: sessionService,
		scoreService:   scoreService,
		catalogService: catalogService,
	}
}

// GetSession godoc
// GET /api/v1/teacher/sessions/:session_id
// Returns any session with questions and answer keys for review.
func (h *GradingHandler) GetSession(c *gin.Context) {
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

// GradeQuestion godoc
// PUT /api/v1/teacher/sessions/:session_id/grade
// Applies a score and comment to one answer, recomputing the total.
func (h *GradingHandler) GradeQuestion(c *gin.Context) {
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

	var req model.GradeQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.GradeQuestion(c.Request.Context(), sessionID, claims.UserID, req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"status":      session.Status,
		"total_score": session.TotalScore,
	})
}

// PaperResults godoc
// GET /api/v1/teacher/papers/:paper_id/results?page=1&per_page=10
// Lists every student's result for one paper.
func (h *GradingHandler) PaperResults(c *gin.Context) {
	paperID, err := uuid.Parse(c.Param("paper_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	page, perPage := pageParams(c)
	results, total, err := h.sessionService.PaperResults(c.Request.Context(), paperID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if results == nil {
		results = []repository.PaperResult{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, response.NewPagination(page, perPage, total))
}

// PaperStats godoc
// GET /api/v1/teacher/papers/:paper_id/stats
// Returns aggregate score statistics for one paper.
func (h *GradingHandler) PaperStats(c *gin.Context) {
	paperID, err := uuid.Parse(c.Param("paper_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	stats, err := h.scoreService.PaperStats(c.Request.Context(), paperID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}

// RefreshPaperCache godoc
// POST /api/v1/teacher/papers/:paper_id/refresh-cache
// Rebuilds the Redis payload after question edits.
func (h *GradingHandler) RefreshPaperCache(c *gin.Context) {
	paperID, err := uuid.Parse(c.Param("paper_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	paper, err := h.catalogService.GetPaper(c.Request.Context(), paperID)
	if err != nil {
		failFromService(c, err)
		return
	}
	if paper.Status != model.PaperStatusPublished {
		response.Fail(c, http.StatusConflict, response.ErrPaperNotPublished)
		return
	}

	if err := h.catalogService.WarmPaperCache(c.Request.Context(), paper); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "refreshed"})
}
