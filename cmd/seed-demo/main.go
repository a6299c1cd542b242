package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/examhall/examhall-backend/internal/database"
	"github.com/examhall/examhall-backend/internal/logger"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// seedQuestion is one demo question definition before insertion.
type seedQuestion struct {
	qtype   model.QuestionType
	content string
	options []string
	key     string
	score   float64
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	paperRepo := repository.NewPaperRepository(pool)

	fmt.Println("=== Seeding Demo Data ===")

	// ─── Accounts ──────────────────────────────────────────────────────
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	teacher := &model.User{Username: "demo_teacher", Name: "Demo Teacher", Role: model.RoleTeacher, PasswordHash: string(hash)}
	if err := userRepo.Create(ctx, teacher); err != nil {
		log.Fatal().Err(err).Msg("Failed to create teacher")
	}
	fmt.Printf("Teacher: demo_teacher / password123 (ID %d)\n", teacher.ID)

	for i := 1; i <= 5; i++ {
		student := &model.User{
			Username:     fmt.Sprintf("demo_student_%d", i),
			Name:         fmt.Sprintf("Demo Student %d", i),
			Role:         model.RoleStudent,
			PasswordHash: string(hash),
		}
		if err := userRepo.Create(ctx, student); err != nil {
			log.Fatal().Err(err).Msg("Failed to create student")
		}
	}
	fmt.Println("Students: demo_student_1..5 / password123")

	// ─── Questions ─────────────────────────────────────────────────────
	seeds := []seedQuestion{
		{model.QuestionSingle, "2 + 2 = ?", []string{"3", "4", "5", "6"}, `"B"`, 10},
		{model.QuestionSingle, "The capital of France is?", []string{"Berlin", "Madrid", "Paris", "Rome"}, `"C"`, 10},
		{model.QuestionMultiple, "Which of these are prime numbers?", []string{"2", "4", "5", "9"}, `["A","C"]`, 10},
		{model.QuestionJudge, "The Earth orbits the Sun.", nil, `true`, 5},
		{model.QuestionFill, "Water is made of hydrogen and ____.", nil, `"oxygen"`, 5},
		{model.QuestionEssay, "Explain why the sky is blue.", nil, `null`, 20},
	}

	paperQuestions := make([]model.PaperQuestion, 0, len(seeds))
	total := 0.0
	for i, s := range seeds {
		var options json.RawMessage
		if s.options != nil {
			options, _ = json.Marshal(s.options)
		}

		q := &model.Question{
			ID:            uuid.New(),
			Type:          s.qtype,
			Subject:       "general",
			Chapter:       "demo",
			Difficulty:    "easy",
			Content:       s.content,
			Options:       options,
			CorrectAnswer: json.RawMessage(s.key),
			DefaultScore:  s.score,
			CreatedBy:     teacher.ID,
		}
		if err := questionRepo.Create(ctx, q); err != nil {
			log.Fatal().Err(err).Msg("Failed to create question")
		}

		paperQuestions = append(paperQuestions, model.PaperQuestion{
			QuestionID: q.ID,
			Score:      s.score,
			Order:      i + 1,
		})
		total += s.score
	}
	fmt.Printf("Questions: %d created\n", len(seeds))

	// ─── Paper ─────────────────────────────────────────────────────────
	now := time.Now()
	paper := &model.Paper{
		ID:              uuid.New(),
		Title:           "Demo Exam",
		Description:     "Seeded paper covering every question type.",
		Subject:         "general",
		TotalScore:      total,
		DurationMinutes: 30,
		Questions:       paperQuestions,
		Status:          model.PaperStatusPublished,
		AllowRetake:     true,
		PublishedAt:     &now,
		CreatedBy:       teacher.ID,
	}
	if err := paperRepo.Create(ctx, paper); err != nil {
		log.Fatal().Err(err).Msg("Failed to create paper")
	}

	fmt.Printf("Paper: %s (%s), total score %.0f\n", paper.Title, paper.ID, total)
	fmt.Println("Done.")
}
