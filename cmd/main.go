package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/time/rate"

	"github.com/bilgisen/letterpress/internal/ai"
	"github.com/bilgisen/letterpress/internal/api"
	"github.com/bilgisen/letterpress/internal/config"
	"github.com/bilgisen/letterpress/internal/dispatch"
	"github.com/bilgisen/letterpress/internal/export"
	"github.com/bilgisen/letterpress/internal/extract"
	"github.com/bilgisen/letterpress/internal/logger"
	"github.com/bilgisen/letterpress/internal/mail"
	"github.com/bilgisen/letterpress/internal/middleware"
	"github.com/bilgisen/letterpress/internal/render"
	"github.com/bilgisen/letterpress/internal/storage"
	"github.com/bilgisen/letterpress/internal/subscriber"
)

func main() {
	// Load and validate configuration
	cfg := config.Load()

	// Initialize logger
	output := cfg.LogFile
	if output == "" {
		output = "stdout"
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: output,
		Pretty: cfg.IsDevelopment(),
	}); err != nil {
		panic(err)
	}

	log := logger.Get()
	log.Info().Str("env", cfg.Env).Msg("Starting application...")

	// Newsletter persistence
	backend, err := storage.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to open newsletter store")
	}
	defer func() {
		log.Info().Msg("Closing newsletter store...")
		if err := backend.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing newsletter store")
		}
	}()
	newsletters := storage.NewStore(backend)

	// Subscribers
	var subscribers subscriber.Store
	if cfg.DatabaseURL != "" {
		pg, err := subscriber.Connect(context.Background(), cfg.DatabaseURL, logger.Component("subscriber"))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to subscriber database")
		}
		subscribers = pg
	} else {
		log.Warn().Msg("DATABASE_URL not set, subscribers are kept in memory")
		subscribers = subscriber.NewMemoryStore()
	}
	defer subscribers.Close()

	// Mail is optional at startup; requests report the missing credentials.
	sender, err := mail.FromConfig(cfg, logger.Component("mail"))
	if err != nil {
		log.Warn().Err(err).Str("driver", cfg.MailDriver).Msg("Mail sending disabled")
	}

	renderer := render.New(render.Options{
		FooterName: cfg.FooterName,
		FooterURL:  cfg.FooterURL,
	})

	gemini := ai.NewGeminiClient(ai.GeminiOptions{
		Model:   cfg.AIModel,
		BaseURL: cfg.AIBaseURL,
		Timeout: cfg.AITimeout,
	})

	extractLog := logger.Component("extract")
	extractor := extract.NewExtractor(extract.Options{
		Timeout:    cfg.FetchTimeout,
		UserAgent:  cfg.FetchUserAgent,
		RetryCount: cfg.FetchRetries,
		Logger:     &extractLog,
	})

	var limiter *rate.Limiter
	if cfg.BulkRatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.BulkRatePerSec), 1)
	}
	bulk := dispatch.New(subscribers, sender, renderer, dispatch.Options{
		Concurrency: cfg.BulkConcurrency,
		Backoff:     dispatch.FixedBackoff{Success: cfg.BulkSuccessDelay, Failure: cfg.BulkFailureDelay},
		Limiter:     limiter,
		Logger:      logger.Component("dispatch"),
	})

	deps := api.Deps{
		Extractor:   extractor,
		Summarizer:  ai.NewSummarizer(gemini, cfg.AIMaxInputChars),
		Styler:      ai.NewStyler(gemini),
		Renderer:    renderer,
		Mail:        sender,
		Bulk:        bulk,
		Subscribers: subscribers,
		Newsletters: newsletters,
		Logger:      logger.Component("api"),
	}

	// Export is optional as well.
	if cfg.R2Configured() {
		uploader, err := export.NewR2Uploader(context.Background(), cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize export storage")
		}
		deps.Uploader = uploader
	} else {
		log.Warn().Msg("R2 credentials not set, export disabled")
	}

	// Create Fiber app with custom config
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    8 * 1024 * 1024,
		ErrorHandler: middleware.ErrorHandler,
	})

	// Global middleware. The request logger goes first so recovered panics
	// are logged with the 500 they produce.
	app.Use(middleware.RequestLogger())
	app.Use(recover.New()) // Recover from panics

	// Setup API routes
	api.SetupRoutes(app, api.NewHandlers(deps))

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Create a deadline for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Shutdown the server
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
