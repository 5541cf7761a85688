package router

import (
	"net/http"
	"time"

	"github.com/algolearn/algolearn-backend/internal/config"
	"github.com/algolearn/algolearn-backend/internal/handler"
	"github.com/algolearn/algolearn-backend/internal/middleware"
	"github.com/algolearn/algolearn-backend/internal/response"
	"github.com/algolearn/algolearn-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Test      *handler.TestHandler
	AdminTest *handler.AdminTestHandler
	Monitor   *handler.MonitorHandler
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

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireLearnerJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireLearnerJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Learner Test API ───────────────────────────────────────────
	// The catalog is public so the client can cache tests for offline use
	// before login; submission always requires a learner token.
	tests := router.Group("/api/tests")
	{
		tests.GET("/public", middleware.OptionalJWT(authService), handlers.Test.ListPublic)
		tests.GET("/public/:id", middleware.OptionalJWT(authService), handlers.Test.GetPublic)
		tests.POST("/submit",
			middleware.RequireLearnerJWT(authService),
			middleware.CheckSingleDeviceSession(authService),
			handlers.Test.Submit,
		)
	}

	// ─── 3. WebSocket Group (Admin WS Auth) ────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireAdminWSAuth(authService))
	{
		ws.GET("/admin/tests/:id/monitor", handlers.Monitor.MonitorTest)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/tests", handlers.AdminTest.ListTests)
		adminAPI.POST("/tests", handlers.AdminTest.CreateTest)
		adminAPI.GET("/tests/:id", handlers.AdminTest.GetTest)
		adminAPI.PUT("/tests/:id", handlers.AdminTest.UpdateTest)
		adminAPI.DELETE("/tests/:id", handlers.AdminTest.DeleteTest)
		adminAPI.GET("/tests/:id/questions", handlers.AdminTest.ListQuestions)
		adminAPI.PUT("/tests/:id/questions", handlers.AdminTest.ReplaceQuestions)
		adminAPI.POST("/tests/:id/publish", handlers.AdminTest.PublishTest)
		adminAPI.POST("/tests/:id/archive", handlers.AdminTest.ArchiveTest)
		adminAPI.POST("/tests/:id/refresh-cache", handlers.AdminTest.RefreshTestCache)
		adminAPI.GET("/tests/:id/results", handlers.AdminTest.GetTestResults)
	}

	return router
}
