package main

import (
	"fmt"
	"net/http"
	"os"

	"stepcity/internal/cache"
	"stepcity/internal/catalog"
	"stepcity/internal/config"
	"stepcity/internal/database"
	"stepcity/internal/events"
	"stepcity/internal/handlers"
	"stepcity/internal/logger"
	"stepcity/internal/middleware"
	"stepcity/internal/services"
	"stepcity/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "stepcity/internal/docs" // Import swagger docs
)

// @title           Stepcity API
// @version         1.0
// @description     Stepcity is the backend for a step-powered city builder: real-world steps become coins, coins become buildings, decorations, and skins.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Load product and achievement catalogs
	catalogs, err := catalog.Load(appConfig.CatalogDir)
	if err != nil {
		return fmt.Errorf("failed to load catalogs: %w", err)
	}

	// Optional Redis balance cache
	var rdb *redis.Client
	if appConfig.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
		})
	}
	balanceCache := cache.NewBalanceCache(rdb, 0)

	// Unlock event bus
	bus := events.NewBus()
	defer bus.Close()

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	ledgerService := services.NewLedgerService(db, balanceCache)
	achievementService := services.NewAchievementService(db, catalogs, ledgerService, bus)
	syncService := services.NewSyncService(ledgerService, achievementService, catalogs)
	shopService := services.NewShopService(db, catalogs, ledgerService, achievementService)
	worldService := services.NewWorldService(db, shopService, achievementService)

	worldSaver := services.NewWorldSaver(worldService, appConfig.WorldSaveDebounce)
	defer worldSaver.Close()

	// Log unlocks so operators can follow reward activity
	unlocks, cancelUnlocks := bus.Subscribe(64)
	defer cancelUnlocks()
	go func() {
		for u := range unlocks {
			log.Infow("achievement unlocked",
				"user_id", u.UserID,
				"achievement_id", u.AchievementID,
				"reward", u.Reward,
			)
		}
	}()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, ledgerService)
	walletHandler := handlers.NewWalletHandler(ledgerService, syncService, auditService)
	achievementHandler := handlers.NewAchievementHandler(achievementService, auditService)
	shopHandler := handlers.NewShopHandler(shopService, catalogs, auditService)
	worldHandler := handlers.NewWorldHandler(worldService, worldSaver)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// Player profile
	protected.GET("/profile", authHandler.GetProfile)

	// Wallet and step sync routes
	protected.GET("/wallet", walletHandler.GetWallet)
	protected.POST("/steps/sync", walletHandler.SyncSteps)
	protected.GET("/days/:day", walletHandler.GetDailyMetric)
	protected.POST("/days/:day/disaster", walletHandler.ApplyDisaster)

	// Achievement routes
	achievements := protected.Group("/achievements")
	achievements.GET("", achievementHandler.ListAchievements)
	achievements.POST("/events", achievementHandler.MarkEvent)
	achievements.POST("/:id/claim", achievementHandler.Claim)

	// Shop routes
	shop := protected.Group("/shop")
	shop.GET("/products", shopHandler.ListProducts)
	shop.POST("/purchase", shopHandler.Purchase)
	shop.GET("/inventory", shopHandler.GetInventory)
	shop.GET("/purchases", shopHandler.ListPurchases)

	// Skin routes
	skins := protected.Group("/skins")
	skins.GET("", shopHandler.GetSkins)
	skins.POST("/purchase", shopHandler.PurchaseSkin)
	skins.POST("/equip", shopHandler.EquipSkin)

	// World routes
	protected.GET("/world", worldHandler.GetWorld)
	protected.PUT("/world", worldHandler.SaveWorld)

	log.Infof("Starting Stepcity backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
