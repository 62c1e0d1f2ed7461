package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/himanishpuri/AutoChord/pkg/autochord"
)

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service  autochord.Service
	jobs     JobQueue
	limiter  *RateLimiter
	validate *validator.Validate
	config   *ServerConfig
	log      Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	DBPath          string
	TempDir         string
	SampleRate      int
	AllowedOrigins  string
	APIKey          string
	JWTSecret       string
	MaxUploadMB     int
	RateLimitPerMin int
	AccessLog       io.Writer // nil disables request logging
	Debug           bool
}

// NewServer creates a new server instance. jobs and limiter may be nil.
func NewServer(service autochord.Service, jobs JobQueue, limiter *RateLimiter, config *ServerConfig, log Logger) *Server {
	return &Server{
		service:  service,
		jobs:     jobs,
		limiter:  limiter,
		validate: validator.New(),
		config:   config,
		log:      log,
	}
}

// App builds the fiber application with all routes and middleware.
func (s *Server) App() *fiber.App {
	maxUpload := s.config.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 50
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler,
		BodyLimit:             maxUpload * 1024 * 1024,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	if s.config.AccessLog != nil {
		format := "[${time}] ${status} - ${latency} ${method} ${path}\n"
		if s.config.Debug {
			format = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${reqHeaders}\n"
		}
		app.Use(fiberlogger.New(fiberlogger.Config{Format: format, Output: s.config.AccessLog}))
	}

	origins := strings.TrimSpace(s.config.AllowedOrigins)
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/health", s.handleHealth)

	auth := APIKeyAuth(s.config.APIKey, s.config.JWTSecret)
	limit := s.rateLimit("analysis")

	app.Post("/", auth, limit, s.handleAnalyze)

	api := app.Group("/api", auth)
	api.Get("/health/metrics", s.handleMetrics)
	api.Get("/analyses", s.handleListAnalyses)
	api.Post("/analyses/youtube", limit, s.handleAnalyzeYouTube)
	api.Get("/analyses/:id", s.handleGetAnalysis)
	api.Delete("/analyses/:id", s.handleDeleteAnalysis)
	api.Post("/jobs", limit, s.handleCreateJob)
	api.Get("/jobs/:id", s.handleGetJob)

	return app
}

func (s *Server) rateLimit(prefix string) fiber.Handler {
	if s.limiter == nil || s.config.RateLimitPerMin <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return s.limiter.Limit(prefix, s.config.RateLimitPerMin, time.Minute)
}

// Start listens on the configured port until the app is shut down.
func (s *Server) Start(app *fiber.App) error {
	addr := ":" + s.config.Port
	s.log.Infof("AutoChord server starting on %s", addr)
	s.log.Infof("   Database: %s", s.config.DBPath)
	s.log.Infof("   Sample Rate: %d Hz", s.config.SampleRate)
	s.log.Infof("   CORS Origins: %s", s.config.AllowedOrigins)
	s.log.Infof("   Background jobs: %v", s.jobs != nil)
	s.log.Infof("Endpoints:")
	s.log.Infof("   GET    /health                  - Health check")
	s.log.Infof("   POST   /                        - Analyze uploaded audio")
	s.log.Infof("   GET    /api/health/metrics      - Server metrics")
	s.log.Infof("   GET    /api/analyses            - List analyses")
	s.log.Infof("   POST   /api/analyses/youtube    - Analyze YouTube audio")
	s.log.Infof("   GET    /api/analyses/:id        - Get analysis")
	s.log.Infof("   DELETE /api/analyses/:id        - Delete analysis")
	s.log.Infof("   POST   /api/jobs                - Queue analysis of uploaded audio")
	s.log.Infof("   GET    /api/jobs/:id            - Job status")

	return app.Listen(addr)
}

const shutdownTimeout = 30 * time.Second

// serve runs listen until a signal arrives on quit. It then shuts the app
// down, waiting for in-flight requests, calls stop and returns. A listen
// error before any signal is returned as is.
func serve(app *fiber.App, listen func(*fiber.App) error, quit <-chan os.Signal, stop func(), log Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(app)
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Infof("Received %v, shutting down server...", sig)
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	}
	if stop != nil {
		stop()
	}
	log.Infof("Server stopped")
	return nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}
	return respondError(c, code, message)
}

func respondError(c *fiber.Ctx, status int, detail string) error {
	return c.Status(status).JSON(ErrorResponse{Detail: detail})
}
