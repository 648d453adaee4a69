package bootstrap

import (
	"strings"
	"time"

	"tracker_server/adapter/in/http"
	"tracker_server/config"
	"tracker_server/infra/middleware"
	"tracker_server/pkg/logger"
	"tracker_server/pkg/ratelimit"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "tracker-api",
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize dependencies")
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),
		Prefork:               false,

		ReadBufferSize:  16384,
		WriteBufferSize: 16384,

		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit:   10 * 1024 * 1024,
		Concurrency: 256 * 1024,

		ServerHeader:       "",
		DisableDefaultDate: true,

		StreamRequestBody: true,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// CORS. AllowCredentials requires explicit origins, never "*".
	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	allowCredentials := true
	if allowOrigins == "" || allowOrigins == "*" {
		if cfg.IsProduction() {
			allowOrigins = ""
			allowCredentials = false
		} else {
			allowOrigins = "http://localhost:3000,http://localhost:5173"
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,X-User-ID,X-Request-ID",
		ExposeHeaders:    "X-Request-ID,Retry-After",
		AllowCredentials: allowCredentials,
		MaxAge:           86400,
	}))

	// Health check (no auth required)
	healthHandler := http.NewHealthHandler(deps.DB, deps.Redis, deps.MongoDB)
	healthHandler.Register(app)

	if cfg.IsDevelopment() {
		RegisterDevRoutes(app, deps)
		logger.Info("Development debug routes enabled")
	}

	// API routes (rate limited, identity required)
	api := app.Group("/api/v1")

	limiter := ratelimit.NewSlidingWindowLimiter(deps.Redis, cfg.RateLimitPerMinute, time.Minute, cfg.RateLimitBurst)
	api.Use(middleware.RateLimit(limiter))
	api.Use(middleware.RequireUser())

	http.NewApplicationHandler(deps.Tracker, deps.Pipeline).Register(api)
	http.NewEventHandler(deps.Tracker).Register(api)

	// typed nil would make the interface non-nil inside the handler
	var publisher http.MessagePublisher
	if deps.Producer != nil {
		publisher = deps.Producer
	}
	http.NewMessageHandler(deps.Pipeline, publisher).Register(api)

	return app, cleanup, nil
}
