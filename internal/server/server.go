// Package server contains the HTTP handlers and routing for the forum API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	_ "forum/docs" // swagger docs
	"forum/internal/bootstrap"
	"forum/internal/config"
	"forum/internal/database"
	"forum/internal/events"
	"forum/internal/featureflags"
	"forum/internal/middleware"
	"forum/internal/models"
	"forum/internal/repository"
	"forum/internal/service"
	"forum/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "forum-api"

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// httpMetrics registers the HTTP collectors once per process.
func httpMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() { prom = middleware.InitMetrics(serviceName) })
	return prom
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	auth           *middleware.TokenAuth
	limiter        *middleware.RateLimiter
	featureFlags   *featureflags.Manager
	events         events.Publisher
	files          *storage.Local

	userService      *service.UserService
	communityService *service.CommunityService
	postService      *service.PostService
	commentService   *service.CommentService
	voteService      *service.VoteService
	saveService      *service.SaveService
	searchService    *service.SearchService
	uploadService    *service.UploadService
}

// NewServer connects to the database and Redis described by cfg, prepares
// the startup data and builds a Server on them.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; rate limiting then fails open, logout cannot
// revoke tokens and the redis events backend degrades to a no-op.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	files, err := storage.NewLocal(cfg.UploadDir, cfg.UploadBaseURL)
	if err != nil {
		return nil, err
	}
	pub, err := events.NewPublisher(events.Options{
		Backend:      cfg.EventsBackend,
		NATSURL:      cfg.NATSURL,
		KafkaBrokers: cfg.KafkaBrokerList(),
		KafkaTopic:   cfg.KafkaTopic,
	}, redisClient)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	communityRepo := repository.NewCommunityRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	flags := featureflags.NewManager(cfg.FeatureFlags)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: httpMetrics(),
		auth:           middleware.NewTokenAuth(cfg.JWTSecret, cfg.JWTTTL(), redisClient),
		limiter:        middleware.NewRateLimiter(redisClient, cfg.Env),
		featureFlags:   flags,
		events:         pub,
		files:          files,
	}
	s.userService = service.NewUserService(userRepo)
	s.communityService = service.NewCommunityService(communityRepo, repository.NewMembershipRepository(db), userRepo, pub)
	s.postService = service.NewPostService(postRepo, communityRepo, userRepo, files, pub)
	s.commentService = service.NewCommentService(commentRepo, postRepo, userRepo, pub)
	s.voteService = service.NewVoteService(repository.NewVoteRepository(db), userRepo, pub)
	s.saveService = service.NewSaveService(repository.NewSaveRepository(db), postRepo, userRepo)
	s.searchService = service.NewSearchService(postRepo, commentRepo, userRepo, communityRepo, flags)
	s.uploadService = service.NewUploadService(files, s.userService, s.postService, flags, cfg.AvatarMaxBytes, cfg.AttachmentMaxBytes)
	return s, nil
}

// NewApp returns a fiber app with the API error handler and body limit.
func (s *Server) NewApp() *fiber.App {
	bodyLimit := int(s.config.AttachmentMaxBytes) * 5
	if bodyLimit <= 0 {
		bodyLimit = 50 << 20
	}
	return fiber.New(fiber.Config{
		AppName:   "Forum API",
		BodyLimit: bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.Tracing())
	// Propagates request and trace IDs into the context-aware logger.
	app.Use(middleware.ContextMiddleware())
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected browser requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// Per-route limits, as requests per window.
var (
	limitRegister = routeLimit{"register", 3, 10 * time.Minute}
	limitLogin    = routeLimit{"login", 10, 5 * time.Minute}
	limitPost     = routeLimit{"create_post", 5, time.Minute}
	limitComment  = routeLimit{"create_comment", 20, time.Minute}
	limitVote     = routeLimit{"vote", 60, time.Minute}
	limitSearch   = routeLimit{"search", 30, time.Minute}
	limitUpload   = routeLimit{"upload", 10, time.Minute}
)

type routeLimit struct {
	resource string
	max      int
	window   time.Duration
}

func (s *Server) rateLimit(l routeLimit) fiber.Handler {
	return s.limiter.Limit(l.resource, l.max, l.window, middleware.FailOpen)
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Static(s.config.UploadBaseURL, s.files.Root(), fiber.Static{ByteRange: true})

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	required := s.auth.Required()
	optional := s.auth.Optional()

	auth := api.Group("/auth")
	auth.Post("/register", s.rateLimit(limitRegister), s.Register)
	auth.Post("/login", s.rateLimit(limitLogin), s.Login)
	auth.Post("/logout", required, s.Logout)

	users := api.Group("/users")
	users.Get("/me", required, s.GetMyProfile)
	users.Put("/me", required, s.UpdateMyProfile)
	users.Post("/me/avatar", required, s.rateLimit(limitUpload), s.UploadAvatar)
	users.Get("/me/communities", required, s.GetMyCommunities)
	users.Get("/me/saved", required, s.GetMySavedPosts)
	users.Get("/:username", s.GetUserProfile)
	users.Get("/:username/posts", s.GetUserPosts)

	posts := api.Group("/posts")
	posts.Get("/", optional, s.GetPosts)
	posts.Post("/", required, s.rateLimit(limitPost), s.CreatePost)
	// Specific /:id/:resource routes before the generic /:id routes.
	posts.Post("/:id/upvote", required, s.rateLimit(limitVote), s.votePost(models.Upvote))
	posts.Post("/:id/downvote", required, s.rateLimit(limitVote), s.votePost(models.Downvote))
	posts.Post("/:id/save", required, s.SavePost)
	posts.Delete("/:id/save", required, s.UnsavePost)
	posts.Post("/:id/attachments", required, s.rateLimit(limitUpload), s.UploadAttachments)
	posts.Delete("/:id/attachments", required, s.RemoveAttachment)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/comments", required, s.rateLimit(limitComment), s.CreateComment)
	posts.Post("/:id/comments/:commentId/replies", required, s.rateLimit(limitComment), s.ReplyToComment)
	posts.Get("/:id", optional, s.GetPost)
	posts.Put("/:id", required, s.UpdatePost)
	posts.Delete("/:id", required, s.DeletePost)

	comments := api.Group("/comments", required)
	comments.Post("/:id/upvote", s.rateLimit(limitVote), s.voteComment(models.Upvote))
	comments.Post("/:id/downvote", s.rateLimit(limitVote), s.voteComment(models.Downvote))
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	communities := api.Group("/communities")
	communities.Get("/", s.GetCommunities)
	communities.Post("/", required, s.CreateCommunity)
	communities.Get("/:name/posts", s.GetCommunityPosts)
	communities.Post("/:name/join", required, s.JoinCommunity)
	communities.Post("/:name/leave", required, s.LeaveCommunity)
	communities.Get("/:name", optional, s.GetCommunity)

	search := api.Group("/search", s.rateLimit(limitSearch))
	search.Get("/", s.Search)
	search.Get("/posts", s.SearchPosts)
	search.Get("/comments", s.SearchComments)
	search.Get("/users", s.SearchUsers)
	search.Get("/suggestions", s.SearchSuggestions)

	admin := api.Group("/admin", required, s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional, so
// only a configured but unreachable Redis fails readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status, overall := fiber.StatusOK, "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status, overall = fiber.StatusServiceUnavailable, "unhealthy"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AdminRequired rejects callers without ROLE_ADMIN. It must run after the
// auth middleware.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		admin, err := s.userService.IsAdmin(c.UserContext(), middleware.Username(c))
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return respond(c, err)
		}
		if !admin {
			return respond(c, models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	s.app = s.NewApp()
	s.SetupMiddleware(s.app)
	s.SetupRoutes(s.app)

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			middleware.Logger.Error("error closing event publisher", slog.String("error", err.Error()))
		}
	}
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
