package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"resilience-registry/handlers"
	"resilience-registry/lifecycle"
	"resilience-registry/middleware"
	"resilience-registry/models"
	"resilience-registry/services"
	"resilience-registry/storage"
	"resilience-registry/utils"
	"resilience-registry/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // 20MB — logo uploads, nothing bigger
	})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	// TranslateError so duplicate-key inserts surface as
	// gorm.ErrDuplicatedKey (the bounty store depends on it).
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Project{},
		&models.Realm{},
		&models.Bounty{},
		&models.BountyEvent{},
		&models.Proposal{},
		&models.RoadmapItem{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	engine := lifecycle.NewEngine(storage.NewBountyStore(db), storage.NewRealmResolver(db))

	projectService := services.NewProjectService(db)
	bountyService := services.NewBountyService(db, engine)
	proposalService := services.NewProposalService(db)
	roadmapService := services.NewRoadmapService(db)

	// --- Governance indexer config for the realm mirror ---
	indexerURL := os.Getenv("GOVERNANCE_INDEXER_URL")
	if indexerURL == "" {
		log.Fatal("GOVERNANCE_INDEXER_URL environment variable not set")
	}
	serviceToken := os.Getenv("REGISTRY_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("REGISTRY_SERVICE_TOKEN environment variable not set")
	}

	realmWorker := workers.NewRealmSyncWorker(db, indexerURL, "/api/v1/public/realms", serviceToken)
	scoreClient := workers.NewScoreSyncClient(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go workers.PollScores(ctx, scoreClient, 1*time.Minute)
	go func() {
		log.Println("Starting Realm Sync Worker...")
		realmWorker.Start(ctx)
	}()

	projectService.StartScoreStalenessScheduler(24 * time.Hour)

	handlers.SetupProjectRoutes(app, projectService, roadmapService)
	handlers.SetupBountyRoutes(app, bountyService)
	handlers.SetupProposalRoutes(app, proposalService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Realm Sync Worker running")
	log.Println("✅ Score polling running (every 1m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
