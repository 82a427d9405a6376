package router

import (
	"net/http"
	"time"

	"gitrdun/backend/internal/handlers"
	"gitrdun/backend/internal/logger"
	"gitrdun/backend/internal/middleware"
	"gitrdun/backend/internal/monitoring"
	"gitrdun/backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	Auth   *handlers.AuthHandler
	Lists  *handlers.ListHandler
	Tasks  *handlers.TaskHandler
	Access *handlers.AccessHandler
	Users  *handlers.UserHandler
}

type Options struct {
	Sessions       services.SessionService
	Users          services.UserService
	Monitor        *monitoring.Monitor
	CookieName     string
	AllowedOrigins []string
	Logger         *zap.Logger
}

func New(h Handlers, opts Options) *gin.Engine {
	log := logger.OrNop(opts.Logger)

	r := gin.New()
	r.Use(middleware.RecoveryWithLog(log))
	r.Use(middleware.RequestLogger(log))
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if opts.Monitor != nil {
		r.Use(opts.Monitor.Middleware())
		r.GET("/health", opts.Monitor.HealthHandler())
		r.GET("/health/ready", opts.Monitor.ReadinessHandler())
		r.GET("/health/live", opts.Monitor.LivenessHandler())
		r.GET("/metrics", opts.Monitor.MetricsHandler())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "API is running"})
	})

	requireAuth := middleware.RequireAuth(opts.Sessions, opts.CookieName, log)

	auth := r.Group("/auth")
	{
		auth.GET("/google", h.Auth.GoogleLogin)
		auth.GET("/google/callback", h.Auth.GoogleCallback)
		auth.POST("/login", h.Auth.Login)
		auth.GET("/me", requireAuth, h.Auth.Me)
	}
	r.GET("/logout", h.Auth.Logout)

	lists := r.Group("/lists", requireAuth)
	{
		lists.POST("", h.Lists.CreateList)
		lists.GET("", h.Lists.GetLists)
		lists.GET("/:id", h.Lists.GetList)
		lists.PATCH("/:id", h.Lists.UpdateList)
		lists.DELETE("/:id", h.Lists.DeleteList)
	}

	tasks := r.Group("/tasks", requireAuth)
	{
		tasks.POST("", h.Tasks.CreateTask)
		tasks.GET("", h.Tasks.GetTasks)
		tasks.GET("/:id", h.Tasks.GetTaskByID)
		tasks.PATCH("/:id", h.Tasks.UpdateTask)
		tasks.DELETE("/:id", h.Tasks.DeleteTask)
	}

	access := r.Group("/access", requireAuth)
	{
		access.POST("", h.Access.CreateGrant)
		access.GET("", h.Access.GetGrants)
		access.PATCH("/:id", h.Access.UpdateGrant)
		access.DELETE("/:id", h.Access.DeleteGrant)
	}

	users := r.Group("/users", requireAuth, middleware.RequireAdmin(opts.Users))
	{
		users.POST("", h.Users.CreateUser)
		users.GET("", h.Users.GetUsers)
		users.GET("/:id", h.Users.GetUser)
		users.PATCH("/:id", h.Users.UpdateUser)
		users.DELETE("/:id", h.Users.DeleteUser)
	}

	return r
}
