// Package server contains the HTTP handlers for the question and answer API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"devflow/internal/config"
	"devflow/internal/featureflags"
	"devflow/internal/middleware"
	"devflow/internal/models"
	"devflow/internal/repository"
	"devflow/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	featureFlags   *featureflags.Manager
	store          *repository.Store
	recorder       *service.Recorder

	questionService   *service.QuestionService
	answerService     *service.AnswerService
	voteService       *service.VoteService
	collectionService *service.CollectionService
	tagService        *service.TagService
	recommendationSvc *service.RecommendationService
}

// NewServerWithDeps creates a Server using already-initialized dependencies,
// normally those established by bootstrap.InitRuntime. redisClient may be
// nil, which disables the vote rate limit.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server: config and db are required")
	}
	middleware.InitMiddleware(cfg)

	store := repository.NewStore(db)
	flags := featureflags.NewManager(cfg.FeatureFlags)
	recorder := service.NewRecorder(store, service.RecorderConfig{
		Workers:   cfg.InteractionWorkers,
		QueueSize: cfg.InteractionQueueSize,
	})

	tags := service.NewTagService(store, flags)
	recs := service.NewRecommendationService(store)

	return &Server{
		config:            cfg,
		db:                db,
		redis:             redisClient,
		promMiddleware:    middleware.InitMetrics("devflow-api"),
		featureFlags:      flags,
		store:             store,
		recorder:          recorder,
		questionService:   service.NewQuestionService(store, tags, recs, flags, recorder),
		answerService:     service.NewAnswerService(store, recorder),
		voteService:       service.NewVoteService(store, recorder),
		collectionService: service.NewCollectionService(store, recorder),
		tagService:        tags,
		recommendationSvc: recs,
	}, nil
}

// globalRequestsPerMinute caps each client IP across all routes. Votes carry
// their own tighter per-user limit.
const globalRequestsPerMinute = 300

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Propagate request and user ids into the request context
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        globalRequestsPerMinute,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error:     "Too many requests, please try again later.",
				Retryable: true,
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")

	questions := api.Group("/questions")
	// Literal segments before /:id
	questions.Get("/", middleware.OptionalAuth, s.ListQuestions)
	questions.Get("/hot", s.ListHotQuestions)
	questions.Get("/recommended", middleware.OptionalAuth, s.ListRecommended)
	questions.Post("/", middleware.AuthRequired, s.CreateQuestion)
	questions.Get("/:id", s.GetQuestion)
	questions.Put("/:id", middleware.AuthRequired, s.EditQuestion)
	questions.Delete("/:id", middleware.AuthRequired, s.DeleteQuestion)
	questions.Post("/:id/views", middleware.OptionalAuth, s.IncrementViews)
	questions.Get("/:id/answers", s.ListAnswers)
	questions.Post("/:id/answers", middleware.AuthRequired, s.CreateAnswer)
	questions.Post("/:id/save", middleware.AuthRequired, s.ToggleSaved)
	questions.Get("/:id/saved", middleware.OptionalAuth, s.GetSavedState)

	api.Delete("/answers/:id", middleware.AuthRequired, s.DeleteAnswer)

	votes := api.Group("/votes")
	limit := s.config.VoteRateLimitPerMinute
	if limit <= 0 {
		limit = 60
	}
	votes.Post("/", middleware.AuthRequired,
		middleware.RateLimit(s.redis, limit, time.Minute, "vote"), s.CastVote)
	votes.Get("/", middleware.OptionalAuth, s.GetVoteState)

	api.Get("/collections", middleware.AuthRequired, s.ListSavedQuestions)

	api.Get("/tags", s.ListTags)
	api.Get("/tags/:id/questions", s.ListTagQuestions)

	api.Get("/flags", middleware.OptionalAuth, s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: the
// API serves without a cache, so only the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// GetFeatureFlags reports the flags evaluated for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(s.featureFlags.Snapshot(middleware.UserID(c)))
}

// App builds the fiber application with middleware and routes. Repeated
// calls return the same instance.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}

	app := fiber.New(fiber.Config{
		AppName:      "DevFlow API",
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	return respondError(c, err)
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests and flushes pending interaction events.
// The database and Redis connections belong to the caller.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.app != nil {
		if err = s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if rerr := s.recorder.Close(ctx); rerr != nil {
		middleware.Logger.Warn("interaction recorder did not drain", slog.String("error", rerr.Error()))
		if err == nil {
			err = rerr
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return err
}
