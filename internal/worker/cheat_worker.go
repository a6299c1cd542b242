package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/examhall/examhall-backend/internal/service"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	CheatBatchSize    = 50
	CheatBatchTimeout = 2 * time.Second
	CheatPollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
	// cheatApplyRetries bounds version-conflict retries per session flush.
	cheatApplyRetries = 5
)

// CheatEventPayload is the queue wire format for one reported anomaly.
// WebSocket and HTTP intake push these; the worker drains them.
type CheatEventPayload struct {
	SessionID string `json:"session_id"`
	StudentID int    `json:"student_id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// CheatWorker drains reported cheat events from the Redis queue and
// persists them onto their sessions in batches, so a burst of tab-switch
// spam from a whole classroom never turns into per-event writes.
type CheatWorker struct {
	sessions service.SessionStore
	rdb      *redis.Client
	log      zerolog.Logger
}

func NewCheatWorker(sessions service.SessionStore, rdb *redis.Client, log zerolog.Logger) *CheatWorker {
	return &CheatWorker{
		sessions: sessions,
		rdb:      rdb,
		log:      log.With().Str("component", "cheat_worker").Logger(),
	}
}

func (w *CheatWorker) Start(ctx context.Context) {
	w.log.Info().Msg("CheatWorker started")

	buffer := make([]*CheatEventPayload, 0, CheatBatchSize)
	lastFlush := time.Now()

	for {
		// 1. Check flush conditions (time or size)
		if len(buffer) > 0 {
			if len(buffer) >= CheatBatchSize || time.Since(lastFlush) >= CheatBatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0] // Clear buffer, keep capacity
				lastFlush = time.Now()
			}
		}

		// 2. Check context (graceful shutdown)
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
			// Continue
		}

		// 3. Fetch from Redis. BLPop blocks for 1 second, returns
		// immediately if data exists.
		result, err := w.rdb.BLPop(ctx, CheatPollTimeout, config.WorkerKey.CheatEventsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check flush timer
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var payload CheatEventPayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &payload)
	}
}

// flushSafe applies the batch grouped per session, requeueing whatever
// could not be persisted.
func (w *CheatWorker) flushSafe(ctx context.Context, batch []*CheatEventPayload) {
	bySession := make(map[string][]*CheatEventPayload)
	for _, p := range batch {
		bySession[p.SessionID] = append(bySession[p.SessionID], p)
	}

	var requeueList []*CheatEventPayload
	for sessionID, events := range bySession {
		if err := w.applySession(ctx, sessionID, events); err != nil {
			w.log.Error().Err(err).Str("session_id", sessionID).Int("events", len(events)).Msg("Apply failed, requeueing")
			requeueList = append(requeueList, events...)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

// applySession appends all of one session's buffered events in a single
// write, retrying on version conflicts with concurrent answer saves.
func (w *CheatWorker) applySession(ctx context.Context, sessionID string, events []*CheatEventPayload) error {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		// Bad UUID can never succeed. Drop it.
		w.log.Error().Str("session_id", sessionID).Msg("Dropping cheat events with invalid session UUID")
		return nil
	}

	for attempt := 0; attempt < cheatApplyRetries; attempt++ {
		sess, err := w.sessions.GetByID(ctx, id)
		if err != nil {
			return err
		}

		applied := 0
		for _, p := range events {
			if sess.StudentID != p.StudentID || sess.Completed() {
				continue
			}
			sess.RecordCheat(model.CheatEvent{
				Type:      model.CheatEventType(p.Type),
				Timestamp: time.Unix(p.Timestamp, 0),
			})
			applied++
		}
		if applied == 0 {
			return nil
		}

		err = w.sessions.Update(ctx, sess)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return err
		}
	}
	return repository.ErrVersionConflict
}

func (w *CheatWorker) requeue(ctx context.Context, items []*CheatEventPayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range items {
		data, _ := json.Marshal(p)
		pipe.RPush(ctx, config.WorkerKey.CheatEventsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Sleep a bit to avoid thrashing if the DB is down hard
	time.Sleep(2 * time.Second)
}

func (w *CheatWorker) shutdown(buffer []*CheatEventPayload) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
