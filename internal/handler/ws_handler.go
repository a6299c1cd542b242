package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/examhall/examhall-backend/internal/middleware"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/service"
	ws "github.com/examhall/examhall-backend/internal/websocket"
	"github.com/examhall/examhall-backend/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the exam-taking loop: answer autosave, cheat
// reports, and submission over one socket.
type WSHandler struct {
	sessionService *service.ExamSessionService
	rdb            *redis.Client
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, rdb *redis.Client, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		rdb:            rdb,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/student/sessions/:session_id/stream
// Upgrades to WebSocket for real-time answer saving and cheat reporting.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	// Ownership is checked before the upgrade so a hijacked session ID
	// never even gets a socket.
	sess, err := h.sessionService.GetSession(c.Request.Context(), sessionID, claims.UserID, claims.Role)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "no access to this session"})
		return
	}
	if sess.Completed() {
		c.JSON(http.StatusConflict, gin.H{"error": "session already completed"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	studentID := claims.UserID
	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("session_id", sessionID.String()).
		Logger()
	wsLog.Info().Msg("Student connected")

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		switch msg.Action {
		case ws.ActionSave:
			h.handleSave(conn, wsLog, sessionID, studentID, &msg)
		case ws.ActionSubmit:
			if h.handleSubmit(conn, wsLog, sessionID, studentID) {
				return
			}
		case ws.ActionCheat:
			h.handleCheat(conn, sessionID, studentID, &msg)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "UNKNOWN_ACTION", "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) handleSave(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, studentID int, msg *ws.RequestEnvelope) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		ws.WriteError(conn, "INVALID_ID", "invalid question_id format")
		return
	}

	value := model.DecodeAnswer(msg.Answer)

	_, err = h.sessionService.RecordAnswer(context.Background(), sessionID, studentID, questionID, value)
	if err != nil {
		if errors.Is(err, service.ErrTimeExpired) {
			ws.WriteTyped(conn, ws.SubmittedResponse{Event: ws.EventExpired})
			return
		}
		wsLog.Warn().Err(err).Str("question_id", msg.QuestionID).Msg("Save failed")
		ws.WriteError(conn, "SAVE_FAILED", "answer not saved")
		return
	}

	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, QuestionID: msg.QuestionID})
}

// handleSubmit finishes the attempt. Returns true when the socket should
// close because the session left in_progress.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, studentID int) bool {
	sess, err := h.sessionService.Submit(context.Background(), sessionID, studentID)
	if err != nil {
		if errors.Is(err, service.ErrAlreadySubmitted) {
			ws.WriteError(conn, "ALREADY_SUBMITTED", "session already submitted")
			return true
		}
		wsLog.Error().Err(err).Msg("Submit failed")
		ws.WriteError(conn, "SUBMIT_FAILED", "submission failed")
		return false
	}

	wsLog.Info().
		Float64("total_score", sess.TotalScore).
		Str("status", string(sess.Status)).
		Msg("Session submitted over WebSocket")

	ws.WriteTyped(conn, ws.SubmittedResponse{
		Event:      ws.EventSubmitted,
		Status:     string(sess.Status),
		TotalScore: sess.TotalScore,
	})
	return true
}

// handleCheat queues the event for the batch worker. No acknowledgement
// carries recording details back to the client.
func (h *WSHandler) handleCheat(conn *websocket.Conn, sessionID uuid.UUID, studentID int, msg *ws.RequestEnvelope) {
	switch model.CheatEventType(msg.CheatType) {
	case model.CheatTabSwitch, model.CheatCopy, model.CheatPaste:
	default:
		ws.WriteError(conn, "INVALID_PAYLOAD", "unknown cheat_type")
		return
	}

	payload, _ := json.Marshal(worker.CheatEventPayload{
		SessionID: sessionID.String(),
		StudentID: studentID,
		Type:      msg.CheatType,
		Timestamp: time.Now().Unix(),
	})
	h.rdb.RPush(context.Background(), config.WorkerKey.CheatEventsQueue, payload)
}
