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
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lti-bridge-api/internal/config"
	"github.com/noah-isme/lti-bridge-api/internal/database"
	"github.com/noah-isme/lti-bridge-api/internal/events"
	"github.com/noah-isme/lti-bridge-api/internal/handler"
	"github.com/noah-isme/lti-bridge-api/internal/middleware"
	"github.com/noah-isme/lti-bridge-api/internal/models"
	"github.com/noah-isme/lti-bridge-api/internal/repository"
	"github.com/noah-isme/lti-bridge-api/internal/router"
	"github.com/noah-isme/lti-bridge-api/internal/service"
	"github.com/noah-isme/lti-bridge-api/internal/tokenstore"
	"github.com/noah-isme/lti-bridge-api/internal/web"
	"github.com/noah-isme/lti-bridge-api/pkg/sessionprovider"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// Assistant, Conversation and ConversationMessage tables are owned by
	// the admin surface and the conversation store; they are not migrated
	// here.
	if err := db.AutoMigrate(
		&models.Activity{},
		&models.ActivityAssistantLink{},
		&models.ActivityMember{},
		&models.IdentityLink{},
		&models.CredentialRecord{},
		&models.Tenant{},
		&models.LaunchEvent{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var tokens tokenstore.Store
	if cfg.TokenStoreBackend == "redis" {
		if redisClient == nil {
			log.Fatal("token store backend is redis but no redis url is configured")
		}
		tokens = tokenstore.NewRedisStore(redisClient)
	} else {
		tokens = tokenstore.NewMemoryStore()
	}
	defer tokens.Close()

	publisher, err := events.Connect(cfg.NATSURL, logger)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer publisher.Close()

	provider, err := sessionprovider.New(sessionprovider.Config{
		BaseURL: cfg.SessionProviderURL,
		APIKey:  cfg.SessionProviderAPIKey,
		Timeout: cfg.SessionProviderTimeout,
		Logger:  logger,
	})
	if err != nil {
		log.Fatalf("failed to create session provider client: %v", err)
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		log.Fatalf("failed to build page renderer: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	activityRepo := repository.NewActivityRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	identityLinkRepo := repository.NewIdentityLinkRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	assistantRepo := repository.NewAssistantRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	launchEventRepo := repository.NewLaunchEventRepository(db)

	launchService := service.NewLaunchService(
		activityRepo, memberRepo, identityLinkRepo, launchEventRepo,
		tokens, provider, publisher, cfg.PlatformDomain,
		service.TokenTTLs{
			Setup:     cfg.SetupTokenTTL,
			Dashboard: cfg.DashboardTokenTTL,
			Consent:   cfg.ConsentTokenTTL,
		},
		logger,
	)
	setupService := service.NewSetupService(activityRepo, assistantRepo, validate, logger)
	dashboardService := service.NewDashboardService(activityRepo, memberRepo, assistantRepo, conversationRepo, redisClient, cfg.DashboardCacheTTL, logger)
	consentService := service.NewConsentService(activityRepo, memberRepo, launchService, dashboardService, publisher, logger)
	adminService := service.NewAdminService(activityRepo, validate, logger)

	launchHandler := handler.NewLaunchHandler(
		cfg, launchService, assistantRepo,
		service.NewGlobalSecretResolver(credentialRepo, cfg.LTIConsumerKey, cfg.LTIConsumerSecret),
		service.NewTenantSecretResolver(credentialRepo),
		service.NewResourceSecretResolver(assistantRepo),
		renderer, logger,
	)
	setupHandler := handler.NewSetupHandler(cfg, setupService, tokens, renderer, logger)
	consentHandler := handler.NewConsentHandler(consentService, tokens, renderer, logger)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, activityRepo, tokens, renderer, logger)
	adminHandler := handler.NewAdminHandler(adminService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		LaunchHandler:    launchHandler,
		SetupHandler:     setupHandler,
		ConsentHandler:   consentHandler,
		DashboardHandler: dashboardHandler,
		AdminHandler:     adminHandler,
		TokenStore:       tokens,
		JWTMiddleware:    middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
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
