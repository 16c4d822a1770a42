package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/uniportal-api/internal/config"
	"github.com/noah-isme/uniportal-api/internal/database"
	"github.com/noah-isme/uniportal-api/internal/handler"
	"github.com/noah-isme/uniportal-api/internal/middleware"
	"github.com/noah-isme/uniportal-api/internal/models"
	"github.com/noah-isme/uniportal-api/internal/repository"
	"github.com/noah-isme/uniportal-api/internal/router"
	"github.com/noah-isme/uniportal-api/internal/service"
	"github.com/noah-isme/uniportal-api/pkg/ai"
	"github.com/noah-isme/uniportal-api/pkg/portal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	localStorage, err := openLocalStorage(cfg, redisClient)
	if err != nil {
		log.Fatalf("failed to open local storage: %v", err)
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, evaluation events limited to redis")
		} else {
			defer natsConn.Close()
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	portalClient := portal.New(portal.Config{
		BaseURL: cfg.PortalAPIURL,
		Timeout: cfg.PortalTimeout,
	}, logger)

	evaluator := ai.NewOpenRouterEvaluator(ai.OpenRouterConfig{
		APIKey:      cfg.OpenRouterAPIKey,
		BaseURL:     cfg.OpenRouterBaseURL,
		Model:       cfg.OpenRouterModel,
		Referer:     cfg.PublicURL,
		Title:       cfg.OpenRouterTitle,
		MaxTokens:   cfg.OpenRouterMaxToken,
		Temperature: &cfg.OpenRouterTemp,
		Logger:      logger,
	})
	if !evaluator.Configured() {
		logger.Warn().Msg("openrouter api key missing, submissions receive mock evaluations")
	}

	catalog := service.NewCourseCatalog(portalClient, redisClient, cfg.CatalogCacheTTL, logger)
	feedbackStore := service.NewFeedbackStore(portalClient, localStorage, logger)
	events := service.NewEvaluationEvents(redisClient, natsConn, cfg.EventsChannel, logger)
	coordinator := service.NewSubmissionCoordinator(
		portalClient,
		evaluator,
		service.NewContentExtractor(logger),
		feedbackStore,
		events,
		catalog,
		validate,
		service.SubmissionCoordinatorConfig{
			MaxUploadBytes: cfg.UploadMaxBytes(),
			MockDelay:      cfg.MockEvaluationWait,
		},
		logger,
	)

	submissionHandler := handler.NewSubmissionHandler(coordinator, feedbackStore, logger)
	courseHandler := handler.NewCourseHandler(catalog, feedbackStore, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(cfg.UploadMaxBytes()) + 1024*1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: []string{cfg.PublicURL},
	})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler: submissionHandler,
		CourseHandler:     courseHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
		SubmitLimiter:     middleware.RateLimit("submissions", 5, time.Minute),
		AIConfigured:      evaluator.Configured(),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func openLocalStorage(cfg config.Config, redisClient *redis.Client) (repository.LocalStorage, error) {
	if cfg.StorageDriver == config.StorageDriverRedis {
		return repository.NewRedisLocalStorage(redisClient), nil
	}

	var (
		db  *gorm.DB
		err error
	)
	if cfg.StorageDriver == config.StorageDriverPostgres {
		db, err = database.ConnectPostgres(cfg.DatabaseURL)
	} else {
		db, err = database.ConnectSQLite(cfg.SQLitePath)
	}
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.LocalStorageEntry{}); err != nil {
		return nil, err
	}

	return repository.NewGormLocalStorage(db), nil
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
