package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrPayloadNotCached is returned when a paper's taker payload is not in
// Redis. Published papers are always warmed, so this means the paper is
// either unpublished or the cache was lost and needs a refresh.
var ErrPayloadNotCached = errors.New("paper payload not cached")

// CatalogService serves paper and question definitions and keeps the
// taker-facing paper payload hot in Redis.
type CatalogService struct {
	papers    PaperCatalog
	questions QuestionCatalog
	rdb       *redis.Client
	log       zerolog.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(papers PaperCatalog, questions QuestionCatalog, rdb *redis.Client, log zerolog.Logger) *CatalogService {
	return &CatalogService{
		papers:    papers,
		questions: questions,
		rdb:       rdb,
		log:       log.With().Str("component", "catalog_service").Logger(),
	}
}

// GetPaper retrieves a paper by ID.
func (s *CatalogService) GetPaper(ctx context.Context, id uuid.UUID) (*model.Paper, error) {
	paper, err := s.papers.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaperNotFound
		}
		return nil, fmt.Errorf("get paper: %w", err)
	}
	return paper, nil
}

// ListPublished retrieves all published papers.
func (s *CatalogService) ListPublished(ctx context.Context) ([]model.Paper, error) {
	return s.papers.ListPublished(ctx)
}

// WarmPaperCache builds the taker-safe payload for a paper and stores it
// in Redis alongside the paper's duration.
func (s *CatalogService) WarmPaperCache(ctx context.Context, paper *model.Paper) error {
	ids := make([]uuid.UUID, 0, len(paper.Questions))
	for _, pq := range paper.Questions {
		ids = append(ids, pq.QuestionID)
	}

	questions, err := s.questions.GetMany(ctx, ids)
	if err != nil {
		return fmt.Errorf("get questions: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	views := make([]model.PaperQuestionView, 0, len(paper.Questions))
	for _, pq := range paper.Questions {
		q, ok := byID[pq.QuestionID]
		if !ok {
			s.log.Warn().
				Str("paper_id", paper.ID.String()).
				Str("question_id", pq.QuestionID.String()).
				Msg("Paper references missing question, skipping")
			continue
		}
		views = append(views, model.PaperQuestionView{
			QuestionView: q.View(false),
			Score:        pq.Score,
			Order:        pq.Order,
		})
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].Order < views[j].Order })

	payload := model.PaperPayload{
		PaperID:         paper.ID,
		Title:           paper.Title,
		Subject:         paper.Subject,
		TotalScore:      paper.TotalScore,
		DurationMinutes: paper.DurationMinutes,
		Questions:       views,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.PaperPayloadKey(paper.ID.String()), payloadJSON, 0)
	pipe.Set(ctx, config.CacheKey.PaperDurationKey(paper.ID.String()), paper.DurationMinutes, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("paper_id", paper.ID.String()).
		Int("questions", len(views)).
		Msg("Paper cache warmed")
	return nil
}

// PrewarmAll loads every published paper's payload into Redis. Runs on
// startup so the first wave of takers never hits PostgreSQL for papers.
func (s *CatalogService) PrewarmAll(ctx context.Context) error {
	papers, err := s.papers.ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("list published papers: %w", err)
	}

	if len(papers) == 0 {
		s.log.Info().Msg("No published papers to prewarm")
		return nil
	}

	warmed := 0
	for i := range papers {
		if err := s.WarmPaperCache(ctx, &papers[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("paper_id", papers[i].ID.String()).
				Msg("Failed to warm paper, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(papers)).
		Msg("Paper prewarming complete")
	return nil
}

// GetPaperPayload retrieves the cached taker payload, falling back to a
// warm-on-miss so a flushed cache heals itself.
func (s *CatalogService) GetPaperPayload(ctx context.Context, paperID uuid.UUID) (*model.PaperPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.PaperPayloadKey(paperID.String())).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("get payload: %w", err)
		}

		paper, err := s.GetPaper(ctx, paperID)
		if err != nil {
			return nil, err
		}
		if paper.Status != model.PaperStatusPublished {
			return nil, ErrNotPublished
		}
		if err := s.WarmPaperCache(ctx, paper); err != nil {
			return nil, err
		}
		data, err = s.rdb.Get(ctx, config.CacheKey.PaperPayloadKey(paperID.String())).Bytes()
		if err != nil {
			return nil, ErrPayloadNotCached
		}
	}

	var payload model.PaperPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}
