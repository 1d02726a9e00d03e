package router

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// EngineConfig configures the global middleware chain
type EngineConfig struct {
	ServiceName      string
	Logger           *zap.Logger
	TracingEnabled   bool
	ProfilingEnabled bool
	Meter            metric.Meter
	CORSOrigins      []string
	MaxBodyBytes     int64
}

// NewEngine builds a gin engine with the global middleware chain. Request id
// comes first so every later log line and span can carry it.
func NewEngine(cfg EngineConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Tracing(cfg.ServiceName, cfg.TracingEnabled),
		middleware.SpanEnricher(),
		middleware.HTTPMetrics(cfg.Meter, log),
		middleware.Profiling(cfg.ProfilingEnabled),
		middleware.Secure(),
		middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)),
	)
	if cfg.MaxBodyBytes > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	}
	return engine
}

// Handlers are the storefront HTTP handlers
type Handlers struct {
	Catalog      *handler.CatalogHandler
	AdminCatalog *handler.AdminCatalogHandler
	Cart         *handler.CartHandler
	Checkout     *handler.CheckoutHandler
	Orders       *handler.OrderHandler
	AdminOrders  *handler.AdminOrderHandler
	Account      *handler.AccountHandler
	Webhook      *handler.WebhookHandler
	Health       *handler.HealthHandler
}

// Guards are the per-group middleware. Nil guards are skipped.
type Guards struct {
	Auth          gin.HandlerFunc
	Admin         gin.HandlerFunc
	CheckoutLimit gin.HandlerFunc
	ReviewLimit   gin.HandlerFunc
	// Docs guards /swagger. Without it the docs are not mounted.
	Docs gin.HandlerFunc
}

// Mount registers the storefront API on the engine: /health and /swagger at
// the root and everything else under /api/v1
func Mount(engine *gin.Engine, h Handlers, g Guards) {
	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}
	if g.Docs != nil {
		engine.GET("/swagger/*any", g.Docs, ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	NewRouter(engine, WithAPIVersion("v1")).
		Register(StorefrontGroups(h, g)...).
		Setup()
}

// StorefrontGroups returns the public, customer and admin route groups
func StorefrontGroups(h Handlers, g Guards) []RouteRegistrar {
	public := NewDomainGroup("public", "")
	public.GET("/products", h.Catalog.ListProducts)
	public.GET("/products/:id", h.Catalog.GetProduct)
	public.GET("/products/:id/reviews", h.Catalog.ListReviews)
	public.GET("/categories", h.Catalog.ListCategories)
	public.POST("/payments/webhook", h.Webhook.Handle)

	customer := NewDomainGroup("customer", "").Use(guards(g.Auth)...)
	customer.GET("/me", h.Account.Me)
	customer.POST("/products/:id/reviews", with(g.ReviewLimit, h.Catalog.CreateReview)...)

	cart := customer.Group("cart", "/cart")
	cart.GET("", h.Cart.Get)
	cart.DELETE("", h.Cart.Clear)
	cart.POST("/items", h.Cart.AddItem)
	cart.PUT("/items/:product_id", h.Cart.UpdateItem)
	cart.DELETE("/items/:product_id", h.Cart.RemoveItem)

	customer.POST("/checkout", with(g.CheckoutLimit, h.Checkout.Checkout)...)

	orders := customer.Group("orders", "/orders")
	orders.GET("", h.Orders.List)
	orders.GET("/:id", h.Orders.Get)
	orders.POST("/:id/pay", with(g.CheckoutLimit, h.Checkout.RetryPayment)...)

	addresses := customer.Group("addresses", "/addresses")
	addresses.GET("", h.Account.ListAddresses)
	addresses.POST("", h.Account.AddAddress)
	addresses.DELETE("/:id", h.Account.DeleteAddress)

	wishlist := customer.Group("wishlist", "/wishlist")
	wishlist.GET("", h.Account.ListWishlist)
	wishlist.POST("/:product_id", h.Account.AddToWishlist)
	wishlist.DELETE("/:product_id", h.Account.RemoveFromWishlist)

	admin := NewDomainGroup("admin", "/admin").Use(guards(g.Auth, g.Admin)...)
	admin.GET("/dashboard", h.AdminOrders.Dashboard)

	adminOrders := admin.Group("orders", "/orders")
	adminOrders.GET("", h.AdminOrders.List)
	adminOrders.GET("/:id", h.AdminOrders.Get)
	adminOrders.PUT("/:id/status", h.AdminOrders.UpdateStatus)
	adminOrders.POST("/:id/mark-paid", h.AdminOrders.MarkPaid)

	adminProducts := admin.Group("products", "/products")
	adminProducts.POST("", h.AdminCatalog.CreateProduct)
	adminProducts.PUT("/:id", h.AdminCatalog.UpdateProduct)
	adminProducts.PUT("/:id/stock", h.AdminCatalog.SetStock)
	adminProducts.DELETE("/:id", h.AdminCatalog.DeleteProduct)

	adminCategories := admin.Group("categories", "/categories")
	adminCategories.POST("", h.AdminCatalog.CreateCategory)
	adminCategories.PUT("/:id", h.AdminCatalog.UpdateCategory)
	adminCategories.DELETE("/:id", h.AdminCatalog.DeleteCategory)

	return []RouteRegistrar{public, customer, admin}
}

func guards(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

func with(guard gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	return append(guards(guard), h)
}
