package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Agustinnra/turicanje-bot/internal/analytics"
	"github.com/Agustinnra/turicanje-bot/internal/bot"
	"github.com/Agustinnra/turicanje-bot/internal/config"
	"github.com/Agustinnra/turicanje-bot/internal/database"
	"github.com/Agustinnra/turicanje-bot/internal/handlers"
	"github.com/Agustinnra/turicanje-bot/internal/intent"
	"github.com/Agustinnra/turicanje-bot/internal/logger"
	"github.com/Agustinnra/turicanje-bot/internal/middleware"
	"github.com/Agustinnra/turicanje-bot/internal/openai"
	"github.com/Agustinnra/turicanje-bot/internal/search"
	"github.com/Agustinnra/turicanje-bot/internal/services"
	"github.com/Agustinnra/turicanje-bot/internal/session"
	"github.com/Agustinnra/turicanje-bot/internal/telemetry"
	"github.com/Agustinnra/turicanje-bot/internal/whatsapp"
)

const serviceName = "turicanje-bot"

func main() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.GetLogger("main")

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracerShutdown, err := telemetry.InitTracer(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Warnf("failed to initialize tracer: %v", err)
	} else {
		defer func() {
			if err := tracerShutdown(context.Background()); err != nil {
				log.Warnf("error shutting down tracer: %v", err)
			}
		}()
	}

	meterShutdown, err := telemetry.InitMeter(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Warnf("failed to initialize metrics: %v", err)
	} else {
		defer func() {
			if err := meterShutdown(context.Background()); err != nil {
				log.Warnf("error shutting down metrics: %v", err)
			}
		}()
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Analytics rides a separate pgx pool; the bot runs fine without it
	var events analytics.Recorder
	if writer, err := analytics.New(ctx, &cfg.DB); err != nil {
		log.Warnf("analytics disabled: %v", err)
	} else {
		events = writer
		defer writer.Close()
	}

	var classifier intent.Classifier
	var greeter bot.Greeter
	var expander search.Expander
	if ai := openai.New(cfg.OpenAIAPIKey); ai != nil {
		classifier = ai
		greeter = ai
		expander = ai
	} else {
		log.Warn("OPENAI_API_KEY not set, using heuristic intent and no expansion")
	}

	store := session.NewStore(cfg.Bot.IdleReset)
	engine := search.NewEngine(services.NewCatalogService(db), expander)
	sender := whatsapp.New(cfg.WhatsApp.Token, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.SendEnabled)
	b := bot.New(cfg, store, engine, classifier, greeter, sender, events)

	sweeper := session.NewSweeper(store, cfg.Bot.SweepInterval, b.Farewell)
	go sweeper.Run(ctx)
	go database.StartConnectionPoolMetricsCollector(ctx, db.DB, cfg.Bot.SweepInterval)
	go func() {
		ticker := time.NewTicker(cfg.Bot.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				middleware.SetActiveSessions(store.Len())
			}
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:      "Turicanje Bot",
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     `{"time":"${time}","status":${status},"latency":"${latency}","ip":"${ip}","method":"${method}","path":"${path}","user_agent":"${ua}","error":"${error}"}` + "\n",
		TimeFormat: "2006-01-02T15:04:05Z07:00",
		TimeZone:   cfg.Bot.Timezone,
	}))
	app.Use(telemetry.New(telemetry.Config{
		ServiceName: serviceName,
	}))
	app.Use(middleware.PrometheusMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET, POST, OPTIONS",
		AllowHeaders: "Accept, Content-Type, X-Hub-Signature-256",
	}))

	setupRoutes(app, cfg, db, store, b)

	go func() {
		<-ctx.Done()
		log.Info("shutting down server")
		if err := app.Shutdown(); err != nil {
			log.Warnf("error shutting down server: %v", err)
		}
	}()

	log.Infof("server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
		os.Exit(1)
	}
}

func setupRoutes(app *fiber.App, cfg *config.Config, db *database.DB, store *session.Store, b *bot.Bot) {
	app.Get("/healthz", handlers.LivenessCheck)
	app.Get("/health", handlers.HealthCheck(cfg, store))
	app.Get("/readiness", handlers.ReadinessCheck(db))

	app.Get("/metrics", middleware.PrometheusHandler())

	app.Get("/webhook", handlers.VerifyWebhook(cfg))
	app.Post("/webhook", handlers.ReceiveWebhook(cfg, b))
}
