package worker

import (
	"context"
	"time"

	"github.com/examhall/examhall-backend/internal/service"
	"github.com/rs/zerolog"
)

// deadlineSweepLimit caps sessions closed per sweep so one tick never
// holds a huge working set.
const deadlineSweepLimit = 200

// DeadlineWorker periodically force-submits in-progress sessions whose
// deadline has passed. It backs up the lazy expiry check on the answer
// path: a student who walks away mid-exam still gets graded.
type DeadlineWorker struct {
	sessions service.SessionStore
	exams    *service.ExamSessionService
	interval time.Duration
	log      zerolog.Logger
}

func NewDeadlineWorker(sessions service.SessionStore, exams *service.ExamSessionService, interval time.Duration, log zerolog.Logger) *DeadlineWorker {
	return &DeadlineWorker{
		sessions: sessions,
		exams:    exams,
		interval: interval,
		log:      log.With().Str("component", "deadline_worker").Logger(),
	}
}

func (w *DeadlineWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("DeadlineWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("DeadlineWorker stopping")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep closes every expired session it finds. AutoSubmit is idempotent,
// so racing with a client-triggered submission is harmless.
func (w *DeadlineWorker) sweep(ctx context.Context) {
	expired, err := w.sessions.ListExpired(ctx, time.Now(), deadlineSweepLimit)
	if err != nil {
		w.log.Error().Err(err).Msg("List expired sessions failed")
		return
	}
	if len(expired) == 0 {
		return
	}

	closed := 0
	for i := range expired {
		if err := w.exams.AutoSubmit(ctx, expired[i].ID); err != nil {
			w.log.Warn().
				Err(err).
				Str("session_id", expired[i].ID.String()).
				Msg("Auto-submit failed, will retry next sweep")
			continue
		}
		closed++
	}

	w.log.Info().Int("closed", closed).Int("found", len(expired)).Msg("Deadline sweep complete")
}
