package app

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"weel-backend/internal/cache"
	"weel-backend/internal/config"
	"weel-backend/internal/handlers"
	"weel-backend/internal/ratelimiter"
	"weel-backend/internal/repositories"
	"weel-backend/internal/routes"
	"weel-backend/internal/services"
	"weel-backend/internal/upay"
	"weel-backend/internal/utils"
)

// Отправки SMS ограничены на номер.
const (
	smsRateLimit  = 2
	smsRateWindow = time.Minute
)

func Run() {
	cfg := config.LoadConfig()

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to open database: ", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	}()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: ", err)
	}

	// === Redis ===
	store, err := cache.NewRedisStore(&cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis: ", err)
	}
	defer store.Close()

	// === Repos ===
	userRepo := repositories.NewUserRepository(db)
	cardRepo := repositories.NewCardRepository(db)

	// === Services ===
	authService := services.NewAuthService(&cfg.JWT, userRepo)

	eskizClient := utils.NewEskizClient(&cfg.Eskiz, store)
	smsLimiter := ratelimiter.NewFixedWindow(store, smsRateLimit, smsRateWindow)
	verificationService := services.NewVerificationService(store, eskizClient, smsLimiter)

	upayClient := upay.NewClient(&cfg.Upay)
	cardHasher := utils.NewCardHasher(cfg.Security.CardHashKey)
	paymentService := services.NewPaymentService(store, upayClient, cardRepo, cardHasher)

	// === Handlers ===
	authHandler := handlers.NewAuthHandler(verificationService, authService, userRepo)
	superuserHandler := handlers.NewSuperuserHandler(authService, userRepo, cfg.Security.APIKey)
	cardHandler := handlers.NewCardHandler(paymentService)

	// === Gin ===
	// gin.Default уже включает Logger и Recovery
	router := gin.Default()
	router.Use(corsMiddleware())

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	routes.SetupRoutes(router, authService, authHandler, superuserHandler, cardHandler)

	// === Run ===
	listenAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Server listening on %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-API-Key")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
