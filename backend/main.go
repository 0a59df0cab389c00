package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Jancy0713/jancy-template-end/backend/internal/cache"
	"github.com/Jancy0713/jancy-template-end/backend/internal/config"
	"github.com/Jancy0713/jancy-template-end/backend/internal/database"
	"github.com/Jancy0713/jancy-template-end/backend/internal/handlers"
	"github.com/Jancy0713/jancy-template-end/backend/internal/middleware"
	"github.com/Jancy0713/jancy-template-end/backend/internal/monitoring"
	"github.com/Jancy0713/jancy-template-end/backend/internal/repositories"
	"github.com/Jancy0713/jancy-template-end/backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Application holds all application dependencies and state
type Application struct {
	Config  *config.Config
	Pool    *database.Pool
	DB      *gorm.DB
	Cache   cache.Cache
	Redis   *redis.Client
	Sweeper *cache.Sweeper
	Router  *gin.Engine
	Server  *http.Server

	// Services
	TaskService     services.TaskService
	TagService      services.TagService
	StatsService    services.StatsService
	AuthService     services.AuthService
	RegisterService services.RegisterService
	UserService     services.UserService
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize application: %v", err)
	}

	app.setupRoutes()
	app.startServer()
}

func initializeApplication(cfg *config.Config) (*Application, error) {
	app := &Application{
		Config: cfg,
	}

	log.Println("🚀 Initializing Todo Backend...")
	log.Printf("📋 Environment: %s", cfg.Server.Environment)

	logLevel := logger.Warn
	if !cfg.IsProduction() {
		logLevel = logger.Info
	}

	pool, err := database.NewPool(&cfg.Database, cfg.GetDSN(), logLevel)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	app.Pool = pool
	app.DB = pool.DB

	log.Println("✅ Database connected and configured")

	migrationConfig := &repositories.MigrationConfig{
		MigrationsPath: "file://migrations",
		DBName:         cfg.Database.Name,
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
	}
	if err := repositories.RunMigrations(app.DB, migrationConfig); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️  Redis unavailable: %v (continuing with memory cache only)", err)
		redisClient = nil
	} else {
		app.Redis = redisClient
		log.Println("✅ Redis connected")
	}

	if redisClient != nil {
		app.Cache = cache.NewRedisCache(redisClient)
		log.Println("✅ Redis cache initialized (token blacklist + stats)")
	} else {
		app.Cache = cache.NewMemoryCache()
		log.Println("✅ Memory cache initialized (fallback mode)")
	}

	// Expired refresh tokens and stale blacklist rows get swept in the
	// background; the tables stay bounded without any request-path work.
	app.Sweeper = cache.NewSweeper(app.DB, time.Hour, cfg.JWT.AccessTTL)
	app.Sweeper.Start()

	app.TaskService = services.NewTaskService()
	app.TagService = services.NewTagService()
	app.StatsService = services.NewStatsService()
	app.AuthService = services.NewAuthService(&cfg.JWT, app.Cache)
	app.RegisterService = services.NewRegisterService()
	app.UserService = services.NewUserService()

	log.Println("✅ All services initialized")

	return app, nil
}

func (app *Application) setupRoutes() {
	r := gin.New()

	// Global middleware stack (order matters!)
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(monitoring.MetricsMiddleware())
	r.Use(middleware.RecoveryWithLog())
	r.Use(middleware.SecureHeader())

	rateLimit := rate.Limit(float64(app.Config.RateLimit.RequestsPerMin) / 60.0)
	r.Use(middleware.RateLimiter(rateLimit, app.Config.RateLimit.BurstSize))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://host.docker.internal"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health and monitoring endpoints (no auth required)
	r.GET("/health", app.healthHandler())
	r.GET("/ready", app.readinessHandler())
	r.GET("/metrics", monitoring.MetricsHandler())

	v1 := r.Group("/api/v1")

	// Public authentication routes
	authHandler := handlers.NewAuthHandler(app.DB, app.AuthService, app.RegisterService)
	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/refresh", authHandler.Refresh)
	}

	// Protected routes (require authentication)
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(&app.Config.JWT, func(c *gin.Context, token string) (bool, error) {
		return app.AuthService.IsBlacklisted(c.Request.Context(), app.DB, token)
	}))
	{
		protected.POST("/auth/logout", authHandler.Logout)

		taskHandler := handlers.NewTaskHandler(app.DB, app.TaskService)
		taskRoutes := protected.Group("/tasks")
		{
			taskRoutes.GET("", taskHandler.GetTasks)
			taskRoutes.POST("", taskHandler.CreateTask)
			taskRoutes.POST("/batch", taskHandler.BatchMutate)
			taskRoutes.PUT("/reorder", taskHandler.ReorderTasks)
			taskRoutes.GET("/:id", taskHandler.GetTaskByID)
			taskRoutes.PUT("/:id", taskHandler.UpdateTask)
			taskRoutes.DELETE("/:id", taskHandler.DeleteTask)
			taskRoutes.GET("/:id/history", taskHandler.GetTaskHistory)
		}

		tagHandler := handlers.NewTagHandler(app.DB, app.TagService)
		tagRoutes := protected.Group("/tags")
		{
			tagRoutes.GET("", tagHandler.GetTags)
			tagRoutes.POST("", tagHandler.CreateTag)
			tagRoutes.PUT("/:id", tagHandler.UpdateTag)
			tagRoutes.DELETE("/:id", tagHandler.DeleteTag)
		}

		statsHandler := handlers.NewStatsHandler(app.DB, app.StatsService, app.Cache)
		statsRoutes := protected.Group("/stats")
		{
			statsRoutes.GET("", statsHandler.GetStats)
			statsRoutes.GET("/priority", statsHandler.GetPriorityStats)
			statsRoutes.GET("/timeline", statsHandler.GetTimeline)
			statsRoutes.GET("/completion-rate", statsHandler.GetCompletionRate)
		}

		userHandler := handlers.NewUserHandler(app.DB, app.UserService)
		userRoutes := protected.Group("/users")
		{
			userRoutes.GET("/profile", userHandler.GetProfile)
			userRoutes.PUT("/profile", userHandler.UpdateProfile)
			userRoutes.DELETE("/:user_id", userHandler.DeleteUser)
		}
	}

	app.Router = r
}

func (app *Application) startServer() {
	addr := app.Config.GetServerAddr()

	app.Server = &http.Server{
		Addr:         addr,
		Handler:      app.Router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("🛑 Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.Server.Shutdown(ctx); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}

		app.cleanup()
		log.Println("✅ Server stopped gracefully")
	}()

	log.Printf("🚀 Server starting on %s", addr)
	log.Printf("📊 Metrics available at http://%s/metrics", addr)
	log.Printf("💚 Health check at http://%s/health", addr)

	if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("❌ Server failed to start: %v", err)
	}
}

func (app *Application) cleanup() {
	log.Println("🧹 Cleaning up resources...")

	if app.Sweeper != nil {
		app.Sweeper.Stop()
	}

	if app.Cache != nil {
		if err := app.Cache.Close(); err != nil {
			log.Printf("⚠️  Error closing cache: %v", err)
		}
	}

	if app.Pool != nil {
		if err := app.Pool.Close(); err != nil {
			log.Printf("⚠️  Error closing database: %v", err)
		}
	}

	log.Println("✅ Cleanup complete")
}

func (app *Application) healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		health := map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   "todo-backend",
		}

		if err := app.Pool.Health(); err != nil {
			health["status"] = "unhealthy"
			health["database"] = "down"
			c.JSON(http.StatusServiceUnavailable, health)
			return
		}
		health["database"] = "up"

		if app.Redis != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := app.Redis.Ping(ctx).Err(); err != nil {
				health["redis"] = "down"
			} else {
				health["redis"] = "up"
			}
		}

		c.JSON(http.StatusOK, health)
	}
}

func (app *Application) readinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := app.Pool.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"reason": "database not ready",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ready": true,
		})
	}
}
