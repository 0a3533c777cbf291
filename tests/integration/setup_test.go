package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"stepcity/internal/cache"
	"stepcity/internal/catalog"
	"stepcity/internal/events"
	"stepcity/internal/handlers"
	"stepcity/internal/logger"
	"stepcity/internal/middleware"
	"stepcity/internal/models"
	"stepcity/internal/services"
	"stepcity/internal/validator"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Saver  *services.WorldSaver
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Account{},
		&models.DailyMetric{},
		&models.AchievementRecord{},
		&models.Purchase{},
		&models.InventoryEntry{},
		&models.WorldState{},
		&models.SkinState{},
		&models.AuditLog{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)
	catalogs := catalog.Default()

	bus := events.NewBus()
	t.Cleanup(bus.Close)

	// Services
	userService := services.NewUserService(db)
	auditService := services.NewAuditService(db)
	ledgerService := services.NewLedgerService(db, cache.NewBalanceCache(nil, 0))
	achievementService := services.NewAchievementService(db, catalogs, ledgerService, bus)
	syncService := services.NewSyncService(ledgerService, achievementService, catalogs)
	shopService := services.NewShopService(db, catalogs, ledgerService, achievementService)
	worldService := services.NewWorldService(db, shopService, achievementService)

	worldSaver := services.NewWorldSaver(worldService, 20*time.Millisecond)
	t.Cleanup(worldSaver.Close)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, ledgerService)
	walletHandler := handlers.NewWalletHandler(ledgerService, syncService, auditService)
	achievementHandler := handlers.NewAchievementHandler(achievementService, auditService)
	shopHandler := handlers.NewShopHandler(shopService, catalogs, auditService)
	worldHandler := handlers.NewWorldHandler(worldService, worldSaver)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	protected.GET("/wallet", walletHandler.GetWallet)
	protected.POST("/steps/sync", walletHandler.SyncSteps)
	protected.GET("/days/:day", walletHandler.GetDailyMetric)
	protected.POST("/days/:day/disaster", walletHandler.ApplyDisaster)

	achievements := protected.Group("/achievements")
	achievements.GET("", achievementHandler.ListAchievements)
	achievements.POST("/events", achievementHandler.MarkEvent)
	achievements.POST("/:id/claim", achievementHandler.Claim)

	shop := protected.Group("/shop")
	shop.GET("/products", shopHandler.ListProducts)
	shop.POST("/purchase", shopHandler.Purchase)
	shop.GET("/inventory", shopHandler.GetInventory)
	shop.GET("/purchases", shopHandler.ListPurchases)

	skins := protected.Group("/skins")
	skins.GET("", shopHandler.GetSkins)
	skins.POST("/purchase", shopHandler.PurchaseSkin)
	skins.POST("/equip", shopHandler.EquipSkin)

	protected.GET("/world", worldHandler.GetWorld)
	protected.PUT("/world", worldHandler.SaveWorld)

	return &testApp{DB: db, Router: router, Saver: worldSaver}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new player and returns the access token, refresh token, and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, refreshToken, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"display_name":"Test Player"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), result["refresh_token"].(string), user["id"].(string)
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}
