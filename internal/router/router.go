package router

import (
	"net/http"
	"time"

	"github.com/examhall/examhall-backend/internal/config"
	"github.com/examhall/examhall-backend/internal/handler"
	"github.com/examhall/examhall-backend/internal/middleware"
	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/response"
	"github.com/examhall/examhall-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Exam    *handler.ExamHandler
	Grading *handler.GradingHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so every response carries metadata, then brotli
	// for the large paper payloads.
	router.Use(response.RequestID())
	router.Use(middleware.Brotli(0))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Handler())
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/me", middleware.RequireAuth(authService), handlers.Auth.Me)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireAuth(authService, model.RoleStudent),
		middleware.CheckSingleDeviceLogin(authService),
	)
	{
		studentAPI.GET("/papers", handlers.Exam.ListPapers)
		studentAPI.GET("/papers/:paper_id/payload",
			middleware.CacheControl(60),
			handlers.Exam.GetPaperPayload,
		)
		studentAPI.POST("/sessions", handlers.Exam.StartSession)
		studentAPI.GET("/sessions", handlers.Exam.ListMySessions)
		studentAPI.GET("/sessions/:session_id", handlers.Exam.GetSession)
		studentAPI.PUT("/sessions/:session_id/answers", handlers.Exam.RecordAnswer)
		studentAPI.POST("/sessions/:session_id/submit", handlers.Exam.SubmitSession)
		studentAPI.POST("/sessions/:session_id/cheat-events", handlers.Exam.ReportCheat)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Teacher Group (JWT, teacher or admin) ──────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireAuth(authService, model.RoleTeacher, model.RoleAdmin))
	{
		teacherAPI.GET("/sessions/:session_id", handlers.Grading.GetSession)
		teacherAPI.PUT("/sessions/:session_id/grade", handlers.Grading.GradeQuestion)
		teacherAPI.GET("/papers/:paper_id/results", handlers.Grading.PaperResults)
		teacherAPI.GET("/papers/:paper_id/stats", handlers.Grading.PaperStats)
		teacherAPI.POST("/papers/:paper_id/refresh-cache", handlers.Grading.RefreshPaperCache)
		teacherAPI.POST("/students/:student_id/reset-login", handlers.Auth.ResetStudentLogin)
	}

	return router
}
