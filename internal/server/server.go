// Package server contains the HTTP handlers and wiring for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "quill/docs" // swagger docs
	"quill/internal/auth"
	"quill/internal/cache"
	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/imagehost"
	"quill/internal/middleware"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const maxUploadBytes = 10 << 20

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	images         imagehost.Host
	tokenService   *service.TokenService
	userService    *service.UserService
	postService    *service.PostService
}

// NewServer connects to the database, Redis and the image host and builds a server on them.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.InitRedis(cfg.RedisURL)

	images, err := imagehost.New(ctx, ImageHostConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("image host setup failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, redisClient, images)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB and Redis itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, images imagehost.Host) (*Server, error) {
	if cfg.UploadDir != "" {
		if err := os.MkdirAll(cfg.UploadDir, 0o750); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)

	tokenService := service.NewTokenService(userRepo,
		auth.NewSigner(cfg.AccessTokenSecret, cfg.AccessTokenExpiry, cfg.TokenIssuer, auth.TokenTypeAccess),
		auth.NewSigner(cfg.RefreshTokenSecret, cfg.RefreshTokenExpiry, cfg.TokenIssuer, auth.TokenTypeRefresh),
	)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("quill-api"),
		images:         images,
		tokenService:   tokenService,
		userService:    service.NewUserService(userRepo, tokenService),
		postService:    service.NewPostService(postRepo, images),
	}
	s.app = s.newApp()
	return s, nil
}

// ImageHostConfig extracts the image host settings from cfg.
func ImageHostConfig(cfg *config.Config) imagehost.Config {
	return imagehost.Config{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		Bucket:        cfg.S3Bucket,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		Folder:        cfg.S3Folder,
		PublicBaseURL: cfg.S3PublicBaseURL,
		UsePathStyle:  cfg.S3UsePathStyle,
	}
}

func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Quill API",
		BodyLimit: maxUploadBytes,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if models.StatusFor(err) >= fiber.StatusInternalServerError {
				middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			}
			return models.RespondWithError(c, err)
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// App returns the configured fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Logging runs after requestid and context middleware so records carry their ids.
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))
}

// SetupRoutes registers every route under /api/v1 plus health and static files.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	api := app.Group("/api/v1")
	api.Get("/hello", s.Hello)

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	users := api.Group("/users")
	users.Post("/register", s.Register)
	users.Post("/login", s.Login)
	users.Post("/refresh-token", s.RefreshToken)
	users.Post("/logout", s.AuthRequired(), s.Logout)
	users.Get("/get-current-user", s.AuthRequired(), s.GetCurrentUser)
	users.Get("/id/:userId", s.AuthRequired(), s.GetUserByID)

	posts := api.Group("/posts", s.AuthRequired())
	posts.Post("/create", s.CreatePost)
	posts.Get("/all/posts", s.ListPosts)
	posts.Get("/user/:userId", s.ListUserPosts)
	posts.Get("/:slug", s.GetPost)
	posts.Patch("/:slug", s.UpdatePost)
	posts.Delete("/:slug", s.DeletePost)

	if s.config.PublicDir != "" {
		app.Static("/", s.config.PublicDir, fiber.Static{Browse: false})
	}
}

// AuthRequired returns the session middleware backed by the token service.
func (s *Server) AuthRequired() fiber.Handler {
	return middleware.Session(s.tokenService)
}

// Hello handles GET /api/v1/hello
// @Summary Greeting
// @Tags meta
// @Produce json
// @Success 200 {object} object{message=string,advice=string}
// @Router /hello [get]
func (s *Server) Hello(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Hello User",
		"advice":  "Go write something worth reading.",
	})
}

// LivenessCheck reports that the process is serving requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "alive",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings the database and Redis. Redis being down degrades the
// cache but does not make the service unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
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
	} else if redisStatus != "healthy" {
		overallStatus = "degraded"
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

// Start listens on the configured port until the app is shut down.
func (s *Server) Start() error {
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	err := s.app.Listen(":" + s.config.Port)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and closes the database and Redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
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
