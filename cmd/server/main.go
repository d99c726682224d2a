package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/Meru-dog/study-group-bot/internal/config"
	"github.com/Meru-dog/study-group-bot/internal/engine"
	"github.com/Meru-dog/study-group-bot/internal/handlers"
	"github.com/Meru-dog/study-group-bot/internal/jobs"
	"github.com/Meru-dog/study-group-bot/internal/logging"
	"github.com/Meru-dog/study-group-bot/internal/middleware"
	"github.com/Meru-dog/study-group-bot/internal/services"
	"github.com/Meru-dog/study-group-bot/internal/sheets"
	"github.com/Meru-dog/study-group-bot/internal/slack"
	"github.com/Meru-dog/study-group-bot/internal/state"
	"github.com/Meru-dog/study-group-bot/internal/templates"
	"github.com/Meru-dog/study-group-bot/pkg/googleauth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Study Group Bot...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Printf("❌ Configuration error: %v", err)
		serveDegraded(cfg.Port, err)
		return
	}
	log.Printf("📋 Configuration loaded (Port: %s, Channel: %s, TZ: %s)", cfg.Port, cfg.SlackChannelID, cfg.Timezone)

	location, err := cfg.Location()
	if err != nil {
		log.Printf("❌ Failed to load timezone: %v", err)
		serveDegraded(cfg.Port, err)
		return
	}

	// Day-state store (Redis when configured, local JSON file otherwise)
	var store state.Store
	if cfg.RedisURL != "" {
		log.Println("🔗 Connecting to Redis...")
		store, err = state.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Printf("❌ Failed to connect to Redis: %v", err)
			serveDegraded(cfg.Port, err)
			return
		}
		log.Println("✅ Redis state store connected")
	} else {
		store, err = state.NewFileStore(cfg.StatePath)
		if err != nil {
			log.Printf("❌ Failed to open state file: %v", err)
			serveDegraded(cfg.Port, err)
			return
		}
		log.Printf("✅ File state store ready (%s)", cfg.StatePath)
	}
	defer store.Close()

	// Restore today's record if one survived a restart
	rec, err := store.Load(context.Background())
	if err != nil {
		log.Printf("⚠️ Could not restore saved day state: %v (starting fresh)", err)
	} else if rec != nil {
		log.Printf("✅ Restored day state for %s", rec.Date)
	}
	eng := engine.New(store, rec)

	// Attendance sheet backend
	var repo sheets.Repository
	switch cfg.SheetBackend {
	case config.SheetBackendGoogle:
		tokens, err := googleauth.NewTokenSource([]byte(cfg.GoogleServiceAccountJSON), sheets.SpreadsheetScope)
		if err != nil {
			log.Printf("❌ Invalid service account credentials: %v", err)
			serveDegraded(cfg.Port, err)
			return
		}
		repo = sheets.NewGoogleRepository(cfg.GoogleSpreadsheetID, tokens)
		log.Printf("✅ Google Sheets sync enabled (spreadsheet: %s, account: %s)", cfg.GoogleSpreadsheetID, tokens.Email())
	case config.SheetBackendWorkbook:
		repo = sheets.NewWorkbookRepository(cfg.WorkbookPath)
		log.Printf("✅ Local workbook sync enabled (%s)", cfg.WorkbookPath)
	default:
		repo = sheets.NewNoopRepository()
		log.Println("⚠️ Attendance sheet sync disabled")
	}

	// Message templates with optional YAML overrides
	tmpl := templates.NewService(cfg.MessagesPath)
	tmpl.StartWatcher()

	// Slack Web API client. A bad token should surface here, not on the
	// first scheduled post.
	client := slack.NewClient(cfg.SlackBotToken)
	authCtx, authCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = client.AuthTest(authCtx)
	authCancel()
	if err != nil {
		log.Printf("❌ Slack authentication failed: %v", err)
		serveDegraded(cfg.Port, err)
		return
	}
	log.Println("✅ Slack token verified")
	slackVerifiedAt := time.Now()

	connManager := services.NewConnectionManager()

	// Initialize Prometheus metrics
	metrics := services.InitMetrics(connManager, func() int {
		return len(eng.Snapshot().Presenters)
	})
	log.Println("✅ Prometheus metrics initialized")

	bot := services.NewBotService(
		eng,
		engine.NewNormalizer(),
		client,
		repo,
		tmpl,
		connManager,
		metrics,
		cfg.SlackChannelID,
		cfg.MeetURL,
		location,
	)

	// Provision the worksheet before the first row lands
	sheetCtx, sheetCancel := context.WithTimeout(context.Background(), 30*time.Second)
	bot.EnsureSheetReady(sheetCtx)
	sheetCancel()

	// Daily tick scheduler
	scheduler, err := jobs.NewScheduler(bot, jobs.Schedule{
		AnnounceCron: cfg.AnnounceCron,
		SummaryCron:  cfg.SummaryCron,
		StartCron:    cfg.StartCron,
		Location:     location,
		CatchUpEvery: cfg.CatchUpEvery,
	})
	if err != nil {
		log.Printf("❌ Invalid schedule configuration: %v", err)
		serveDegraded(cfg.Port, err)
		return
	}
	scheduler.Start()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Study Group Bot v1.0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())

	// Prometheus metrics middleware
	prometheus := fiberprometheus.New("studybot")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(store, repo, connManager)
	healthHandler.SetTickSource(scheduler)
	healthHandler.SetSlackVerified(slackVerifiedAt)
	eventsHandler := handlers.NewSlackEventsHandler(bot)
	todayHandler := handlers.NewTodayHandler(bot)
	boardHandler := handlers.NewBoardHandler(connManager, bot, metrics)

	// Routes
	app.Post("/slack/events", middleware.VerifySlackSignature(cfg.SlackSigningSecret), eventsHandler.Handle)
	app.Get("/healthz", healthHandler.Handle)
	app.Get("/api/today", todayHandler.Handle)

	// Live attendance board
	app.Use("/ws/board", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/board", websocket.New(boardHandler.Handle))

	// Start server
	log.Printf("✅ Server ready on port %s", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/healthz", cfg.Port)
	log.Printf("🔗 Board endpoint: ws://localhost:%s/ws/board", cfg.Port)
	log.Printf("🕐 Daily ticks: announce %q, summary %q, start %q (%s)",
		cfg.AnnounceCron, cfg.SummaryCron, cfg.StartCron, cfg.Timezone)

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		if err := scheduler.Stop(); err != nil {
			log.Printf("⚠️ Error stopping scheduler: %v", err)
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// serveDegraded keeps the HTTP surface alive after a failed startup so
// the platform health check reports the reason instead of a dead port.
// Event deliveries are refused until the configuration is fixed and the
// process restarts.
func serveDegraded(port string, initErr error) {
	app := fiber.New(fiber.Config{AppName: "Study Group Bot (degraded)"})
	app.Use(recover.New())

	app.Post("/slack/events", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusServiceUnavailable).SendString(initErr.Error())
	})
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusInternalServerError).SendString(initErr.Error())
	})

	log.Printf("🚑 Serving degraded endpoints on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
