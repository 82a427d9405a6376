package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitrdun/backend/internal/cache"
	"gitrdun/backend/internal/config"
	"gitrdun/backend/internal/database"
	"gitrdun/backend/internal/handlers"
	"gitrdun/backend/internal/logger"
	"gitrdun/backend/internal/monitoring"
	"gitrdun/backend/internal/repositories"
	"gitrdun/backend/internal/router"
	"gitrdun/backend/internal/services"
	"gitrdun/backend/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	defer zapLogger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	pool, err := openDatabase(cfg)
	if err != nil {
		zapLogger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Migrate(); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	redisClient := newRedisClient(cfg)
	defer redisClient.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), cfg.Redis.DialTimeout)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		zapLogger.Warn("redis is not reachable yet", zap.Error(err))
	}
	cancelPing()

	listRepo := repositories.NewListRepository(pool.DB)
	taskRepo := repositories.NewTaskRepository(pool.DB)
	accessRepo := repositories.NewAccessRepository(pool.DB)
	userRepo := repositories.NewUserRepository(pool.DB)
	auditRepo := repositories.NewAuditRepository(pool.DB)
	sessionRepo := repositories.NewSessionRepository(redisClient, cfg.Auth.SessionTTL)

	userCache := cache.NewMultiLevelCache(cache.NewRedisCache(redisClient, "cache:"), cache.MultiLevelConfig{
		L1TTL:        cfg.Cache.L1TTL,
		L1MaxEntries: cfg.Cache.L1MaxEntries,
		Breaker: cache.BreakerConfig{
			MaxFailures: cfg.Cache.BreakerFailures,
			Cooldown:    cfg.Cache.BreakerCooldown,
		},
	}, zapLogger)

	jobs := worker.NewJobQueue(redisClient, worker.DefaultQueue, cfg.Worker.MaxTries)

	authz := services.NewAuthorizationService(listRepo, accessRepo, auditRepo, zapLogger)
	userService := services.NewCachedUserService(
		services.NewUserService(userRepo, cfg.Auth.BCryptCost),
		userCache,
		cfg.Cache.UserTTL,
		zapLogger,
	)
	sessionService := services.NewSessionService(sessionRepo, cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	listService := services.NewListService(listRepo, accessRepo, authz, jobs, zapLogger)
	taskService := services.NewTaskService(taskRepo, listRepo, accessRepo, authz)
	accessService := services.NewAccessService(accessRepo, listRepo, userRepo, authz)

	var provider services.IdentityProvider
	if cfg.GoogleEnabled() {
		provider = services.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	} else {
		zapLogger.Warn("google oauth is not configured; only password login is available")
	}

	monitor := monitoring.NewMonitor(5 * time.Second)
	monitor.RegisterHealthCheck("database", pool.Health)
	monitor.RegisterHealthCheck("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	monitor.RegisterStats("database", pool.Stats)
	monitor.RegisterStats("user_cache", userCache.Stats)

	cookie := handlers.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Domain: cfg.Auth.CookieDomain,
		Secure: cfg.Auth.CookieSecure,
		TTL:    cfg.Auth.SessionTTL,
	}
	engine := router.New(router.Handlers{
		Auth:   handlers.NewAuthHandler(provider, userService, sessionService, cookie, cfg.Auth.SuccessRedirect, zapLogger),
		Lists:  handlers.NewListHandler(listService, zapLogger),
		Tasks:  handlers.NewTaskHandler(taskService, zapLogger),
		Access: handlers.NewAccessHandler(accessService, zapLogger),
		Users:  handlers.NewUserHandler(userService, zapLogger),
	}, router.Options{
		Sessions:       sessionService,
		Users:          userService,
		Monitor:        monitor,
		CookieName:     cfg.Auth.CookieName,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         zapLogger,
	})

	appCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var jobWorker *worker.Worker
	if cfg.Worker.Enabled {
		auditor := services.NewOrphanAuditor(taskRepo, accessRepo, zapLogger)
		jobWorker = worker.NewWorker(worker.WorkerConfig{
			RedisClient:  redisClient,
			PollInterval: cfg.Worker.PollInterval,
			JobTimeout:   cfg.Worker.JobTimeout,
			Queues:       cfg.Worker.Queues,
			Logger:       zapLogger,
		})
		jobWorker.RegisterHandler(worker.JobTypeListOrphanAudit, auditor.HandleJob)
		jobWorker.Start(appCtx, cfg.Worker.Concurrency)
	}

	server := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", server.Addr),
			zap.String("environment", cfg.Server.Environment),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	<-appCtx.Done()
	zapLogger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
	if jobWorker != nil {
		jobWorker.Stop()
	}
}

func openDatabase(cfg *config.Config) (*database.DatabasePool, error) {
	poolConfig := database.DefaultPoolConfig()
	poolConfig.Driver = cfg.Database.Driver
	poolConfig.DSN = cfg.GetDatabaseDSN()
	poolConfig.MaxOpenConns = cfg.Database.MaxOpenConns
	poolConfig.MaxIdleConns = cfg.Database.MaxIdleConns
	poolConfig.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.ConnMaxIdleTime = cfg.Database.ConnMaxIdleTime
	return database.NewDatabasePool(poolConfig)
}

func newRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
}
