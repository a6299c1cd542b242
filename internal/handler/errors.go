package handler

import (
	"errors"
	"net/http"

	"github.com/examhall/examhall-backend/internal/response"
	"github.com/examhall/examhall-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// failFromService translates a service error into the response envelope.
// Unknown errors become a 500 without leaking internals.
func failFromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrPaperNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotPublished):
		response.Fail(c, http.StatusConflict, response.ErrPaperNotPublished)
	case errors.Is(err, service.ErrOutsideWindow):
		response.Fail(c, http.StatusConflict, response.ErrOutsideWindow)
	case errors.Is(err, service.ErrRetakeNotAllowed):
		response.Fail(c, http.StatusConflict, response.ErrRetakeNotAllowed)
	case errors.Is(err, service.ErrTimeExpired):
		response.Fail(c, http.StatusConflict, response.ErrTimeExpired)
	case errors.Is(err, service.ErrQuestionNotInSession):
		response.Fail(c, http.StatusBadRequest, response.ErrQuestionNotInSession)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrExamStillInProgress):
		response.Fail(c, http.StatusConflict, response.ErrExamInProgress)
	case errors.Is(err, service.ErrScoreOutOfRange):
		response.Fail(c, http.StatusBadRequest, response.ErrScoreOutOfRange)
	case errors.Is(err, service.ErrUnauthorized):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrConflict):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	case errors.Is(err, service.ErrPayloadNotCached):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrPaperNotCached)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
