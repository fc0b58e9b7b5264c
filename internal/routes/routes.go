package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/example/freshcorner/internal/config"
	"github.com/example/freshcorner/internal/handlers"
	"github.com/example/freshcorner/internal/middleware"
	"github.com/example/freshcorner/internal/models"
	"github.com/example/freshcorner/internal/services"
)

// Deps are the collaborators the HTTP layer is built from. Redis is optional.
type Deps struct {
	DB     *gorm.DB
	Config *config.Config
	Log    *zap.Logger
	Redis  *redis.Client
	SMS    services.SMSSender
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Deps) {
	cfg := deps.Config

	sms := deps.SMS
	if sms == nil {
		sms = services.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, deps.Log)
	}
	telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, deps.Log)
	ledger := services.NewStockLedger()

	identity := services.NewIdentityService(
		deps.DB,
		sms,
		services.NewOTPThrottle(deps.Redis, cfg.OTPResendInterval),
		services.IdentityConfig{JWTSecret: cfg.JWTSecret, TokenTTL: cfg.TokenExpires},
		deps.Log,
	)
	catalog := services.NewCatalogService(deps.DB, ledger)

	authHandler := handlers.NewAuthHandler(identity)
	productHandler := handlers.NewProductHandler(catalog)
	catalogHandler := handlers.NewCatalogHandler(catalog)
	cartHandler := handlers.NewCartHandler(services.NewCartService(deps.DB))
	orderHandler := handlers.NewOrderHandler(services.NewOrderService(deps.DB, ledger, telegram, deps.Log))
	profileHandler := handlers.NewProfileHandler(services.NewProfileService(deps.DB), services.NewAddressService(deps.DB))
	warehouseHandler := handlers.NewWarehouseHandler(services.NewWarehouseService(deps.DB, ledger))
	adminHandler := handlers.NewAdminHandler(services.NewAdminService(deps.DB))

	authenticated := middleware.AuthMiddleware(cfg.JWTSecret)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	otpLimiter := middleware.NewRateLimiter(rate.Every(time.Minute/10), 5, 10*time.Minute)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "status": "ok"})
	})

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/request-otp", otpLimiter.Handler(), authHandler.RequestOTP)
	auth.Post("/verify-otp", otpLimiter.Handler(), authHandler.VerifyOTP)
	auth.Get("/me", authenticated, authHandler.Me)

	// Products
	products := api.Group("/products")
	productHandler.RegisterProductRoutes(products)

	cart := api.Group("/cart", authenticated)
	cart.Get("/", cartHandler.GetCart)
	cart.Post("/", cartHandler.AddItem)
	cart.Delete("/", cartHandler.Clear)
	cart.Put("/:itemId", cartHandler.UpdateItem)
	cart.Delete("/:itemId", cartHandler.RemoveItem)

	orders := api.Group("/orders", authenticated)
	orders.Post("/place", orderHandler.PlaceOrder)
	orders.Get("/my-orders", orderHandler.ListOrders)
	orders.Get("/:id", orderHandler.GetOrder)

	profile := api.Group("/profile", authenticated)
	profile.Get("/", profileHandler.GetProfile)
	profile.Put("/", profileHandler.UpdateProfile)

	addresses := api.Group("/addresses", authenticated)
	addresses.Get("/", profileHandler.ListAddresses)
	addresses.Post("/", profileHandler.CreateAddress)
	addresses.Put("/:id", profileHandler.UpdateAddress)
	addresses.Delete("/:id", profileHandler.DeleteAddress)
	addresses.Patch("/:id/default", profileHandler.SetDefaultAddress)

	warehouses := api.Group("/warehouses", authenticated, adminOnly)
	warehouses.Get("/", warehouseHandler.ListWarehouses)
	warehouses.Get("/alerts/expiry", warehouseHandler.ExpiryAlerts)
	warehouses.Get("/alerts/low-stock", warehouseHandler.LowStock)
	warehouses.Get("/:id/inventory", warehouseHandler.ListInventory)

	// Admin routes
	admin := api.Group("/admin", authenticated, adminOnly)
	admin.Get("/stats", adminHandler.DashboardStats)

	admin.Get("/products", productHandler.AdminListProducts)
	admin.Post("/products", productHandler.CreateProduct)
	admin.Put("/products/:id", productHandler.UpdateProduct)
	admin.Delete("/products/:id", productHandler.DeleteProduct)

	admin.Post("/categories", catalogHandler.CreateCategory)
	admin.Put("/categories/:id", catalogHandler.UpdateCategory)
	admin.Delete("/categories/:id", catalogHandler.DeleteCategory)

	admin.Get("/orders", orderHandler.AdminListOrders)
	admin.Patch("/orders/:id/status", orderHandler.UpdateStatus)

	admin.Get("/users", adminHandler.ListUsers)
	admin.Patch("/users/:id/toggle", adminHandler.ToggleUser)

	admin.Put("/warehouses/:warehouseId/stock/:productId", warehouseHandler.AdjustStock)
	admin.Post("/warehouses/alerts/refresh", warehouseHandler.RefreshAlerts)
	admin.Patch("/warehouses/alerts/:id/resolve", warehouseHandler.ResolveAlert)
}
