package service

import "errors"

// Domain errors surfaced to callers. All are recoverable rejections of
// the requested action except ErrConflict, which marks exhausted
// optimistic-lock retries at the storage boundary.
var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrPaperNotFound        = errors.New("paper not found")
	ErrNotPublished         = errors.New("paper is not published")
	ErrOutsideWindow        = errors.New("paper is outside its availability window")
	ErrRetakeNotAllowed     = errors.New("retake is not allowed for this paper")
	ErrTimeExpired          = errors.New("exam time has expired")
	ErrQuestionNotInSession = errors.New("question is not part of this session")
	ErrAlreadySubmitted     = errors.New("session has already been submitted")
	ErrExamStillInProgress  = errors.New("session is still in progress")
	ErrScoreOutOfRange      = errors.New("score is out of range")
	ErrUnauthorized         = errors.New("requester does not own this session")
	ErrConflict             = errors.New("session was modified concurrently")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)
