package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrLoginActive        ErrCode = "LOGIN_ALREADY_ACTIVE"
	ErrLoginInvalidated   ErrCode = "LOGIN_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam lifecycle ────────────────────────────────────────────────
	ErrPaperNotPublished    ErrCode = "PAPER_NOT_PUBLISHED"
	ErrOutsideWindow        ErrCode = "OUTSIDE_EXAM_WINDOW"
	ErrRetakeNotAllowed     ErrCode = "RETAKE_NOT_ALLOWED"
	ErrTimeExpired          ErrCode = "TIME_EXPIRED"
	ErrQuestionNotInSession ErrCode = "QUESTION_NOT_IN_SESSION"
	ErrAlreadySubmitted     ErrCode = "ALREADY_SUBMITTED"
	ErrExamInProgress       ErrCode = "EXAM_STILL_IN_PROGRESS"
	ErrScoreOutOfRange      ErrCode = "SCORE_OUT_OF_RANGE"
	ErrPaperNotCached       ErrCode = "PAPER_NOT_CACHED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Username or password is incorrect."
	case ErrLoginActive:
		return "You are already logged in on another device."
	case ErrLoginInvalidated:
		return "Your login has expired. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrTeacherAccessOnly:
		return "This resource is restricted to teachers."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "The resource was modified concurrently. Please retry."

	// ─── Exam lifecycle ────────────────────────────────────────────────
	case ErrPaperNotPublished:
		return "This paper has not been published."
	case ErrOutsideWindow:
		return "This exam is not currently open."
	case ErrRetakeNotAllowed:
		return "You have already completed this exam and retakes are not allowed."
	case ErrTimeExpired:
		return "Time is up. Your exam has been submitted automatically."
	case ErrQuestionNotInSession:
		return "This question does not belong to your exam."
	case ErrAlreadySubmitted:
		return "This exam has already been submitted."
	case ErrExamInProgress:
		return "This exam is still in progress and cannot be graded yet."
	case ErrScoreOutOfRange:
		return "The score is outside the allowed range for this question."
	case ErrPaperNotCached:
		return "This paper is not available right now. Please try again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
