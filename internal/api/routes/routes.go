package routes

import (
	"tokflow/internal/api/handlers"
	"tokflow/internal/api/middleware"
	"tokflow/internal/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(cfg *config.Config) *gin.Engine {
	router := gin.Default()

	// Global middleware
	router.Use(middleware.CORSMiddleware())
	router.Use(gin.Recovery())

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public routes (no auth required)
		auth := v1.Group("/auth")
		{
			auth.POST("/login", handlers.Login)
			auth.POST("/register", handlers.Register)
		}

		// Health check
		v1.GET("/health", handlers.HealthCheck)

		// WebSocket event stream (no auth middleware for WebSocket)
		v1.GET("/ws/events", handlers.EventsWebSocket)

		// Protected routes (auth required)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User management
			users := protected.Group("/users")
			{
				users.GET("/profile", handlers.GetProfile)
				users.PUT("/profile", handlers.UpdateProfile)
				users.PUT("/:id/password", handlers.AdminChangePassword) // Admin only
			}

			// TikTok accounts
			accounts := protected.Group("/accounts")
			{
				accounts.GET("", handlers.GetAccounts)
				accounts.POST("", handlers.CreateAccount)
				accounts.PUT("/:id", handlers.UpdateAccount)
				accounts.DELETE("/:id", handlers.DeleteAccount)
			}

			// Post tasks
			tasks := protected.Group("/tasks")
			{
				tasks.GET("", handlers.GetTasks)
				tasks.POST("", handlers.CreateTask)
				tasks.GET("/:id", handlers.GetTask)
				tasks.POST("/:id/run", handlers.RunTask)
				tasks.DELETE("/:id", handlers.DeleteTask)
			}

			// Live automation surface
			automation := protected.Group("/automation")
			{
				automation.GET("/ping", handlers.Ping)
				automation.GET("/page-info", handlers.GetPageInfo)
				automation.GET("/login-status", handlers.GetLoginStatus)
				automation.GET("/presence", handlers.GetPresence)
				automation.GET("/user-identity", handlers.GetUserIdentity)
				automation.POST("/fetch", handlers.RelayFetch)
				automation.POST("/cookies", handlers.SetCookies)
				automation.POST("/window/open", handlers.OpenWindow)
				automation.POST("/window/close", handlers.CloseWindow)
				automation.POST("/action", handlers.RunAction)
			}
		}
	}

	return router
}
