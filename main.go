package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"prediction-bet-system/handlers"
	"prediction-bet-system/models"
	"prediction-bet-system/services"
	"prediction-bet-system/utils"
	"prediction-bet-system/workers"

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
		BodyLimit: 1 * 1024 * 1024, // 1MB — nothing here accepts uploads
	})

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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.WalletSession{},
		&models.PaymentQuote{},
		&models.Bet{},
		&models.AIPrediction{},
		&models.TokenMarket{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	jwtSecret := os.Getenv("SESSION_JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("SESSION_JWT_SECRET environment variable not set — cannot mint session tokens")
	}

	signatureVerifier := services.NewSignatureVerifier()
	sessionService := services.NewWalletSessionService(db, signatureVerifier, jwtSecret)
	quoteService := services.NewPaymentQuoteService(db)
	predictionService := services.NewPredictionService(db)
	paymentVerifier := services.NewPaymentVerifier(signatureVerifier)
	betService := services.NewBetService(db, paymentVerifier, predictionService)
	marketService := services.NewMarketService(db)
	strategyService := services.NewStrategyService()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	priceWorker := workers.NewPriceSyncWorker(db, services.NewMarketDataClient())
	go workers.PollMarkets(ctx, priceWorker, 60*time.Second)
	go workers.PollSettlementReports(ctx, db, 24*time.Hour)

	services.StartMaintenanceScheduler(db, predictionService)

	handlers.SetupWalletRoutes(app, sessionService)
	handlers.SetupPaymentRoutes(app, quoteService, sessionService)
	handlers.SetupBetRoutes(app, betService, sessionService)
	handlers.SetupMarketRoutes(app, marketService, predictionService, strategyService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Market price polling running (every 60s)")
	log.Println("✅ Maintenance scheduler running")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
