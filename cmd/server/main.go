package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/storefront/backend/docs"
	cartapp "github.com/storefront/backend/internal/application/cart"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	customerapp "github.com/storefront/backend/internal/application/customer"
	"github.com/storefront/backend/internal/application/notification"
	orderapp "github.com/storefront/backend/internal/application/order"
	paymentapp "github.com/storefront/backend/internal/application/payment"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/email"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/storefront/backend/internal/infrastructure/persistence"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const (
	checkoutBurst  = 5
	checkoutWindow = time.Minute
	reviewBurst    = 10
	reviewWindow   = time.Hour
)

//go:generate swag init -g cmd/server/main.go -d ../../ -o ../../docs --parseInternal --overridesFile ../../.swaggo

//	@title			Storefront API
//	@version		1.0
//	@description	Storefront backend: catalog, session cart, checkout with Stripe or cash, order desk and customer accounts.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Identity provider access token. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
		ExportInterval:    cfg.Telemetry.ExportInterval,
	}

	// Logs go first so the bridged logger is used by everything after it
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log = telemetry.BridgeLogger(log, loggerProvider, cfg.Telemetry.ServiceName, zapcore.InfoLevel)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Profiling.Enabled,
		ServerAddress:   cfg.Profiling.ServerAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	stores, err := cache.NewStores(ctx, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	)
	if err != nil {
		log.Fatal("Failed to initialize cart store", zap.Error(err))
	}

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	reviewRepo := persistence.NewGormReviewRepository(db.DB)
	addressRepo := persistence.NewGormAddressRepository(db.DB)
	wishlistRepo := persistence.NewGormWishlistRepository(db.DB)
	profileRepo := persistence.NewGormProfileRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)

	// Event bus and subscribers
	eventBus := event.NewInMemoryEventBus(log)

	mailer, err := email.NewMailer(email.Config{
		Provider:     cfg.Email.Provider,
		APIKey:       cfg.Email.APIKey,
		From:         cfg.Email.From,
		AdminAddress: cfg.Email.AdminAddress,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize mailer", zap.Error(err))
	}
	emailHandler := notification.NewOrderEmailHandler(orderRepo, mailer, email.NewRenderer(), log).
		WithAdminCopy(cfg.Email.AdminAddress)
	eventBus.Subscribe(event.NewIdempotentHandler(emailHandler, stores.Processed, log,
		event.WithKeyFunc(event.OutcomeKey),
	))

	var forwarder *event.KafkaForwarder
	if cfg.Kafka.Enabled {
		client, err := event.NewKafkaClient(cfg.Kafka)
		if err != nil {
			log.Fatal("Failed to connect to Kafka", zap.Error(err))
		}
		serializer := event.NewEventSerializer()
		event.RegisterOrderEvents(serializer)
		forwarder = event.NewKafkaForwarder(client, cfg.Kafka.Topic, serializer, log)
		eventBus.Subscribe(forwarder)
		log.Info("Forwarding order events to Kafka",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Payment gateway
	stripeCfg := &payment.StripeConfig{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Currency:      cfg.Stripe.Currency,
		SuccessURL:    cfg.Stripe.SuccessURL,
		CancelURL:     cfg.Stripe.CancelURL,
	}
	gateway, err := payment.NewStripeCheckout(stripeCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize payment gateway", zap.Error(err))
	}

	// Application services
	productService := catalogapp.NewProductService(productRepo, categoryRepo, eventBus, log)
	categoryService := catalogapp.NewCategoryService(categoryRepo)
	reviewService := catalogapp.NewReviewService(reviewRepo, productRepo)
	cartService := cartapp.NewCartService(stores.Carts, productRepo)
	addressService := customerapp.NewAddressService(addressRepo, log)
	wishlistService := customerapp.NewWishlistService(wishlistRepo, productRepo)
	profileService := customerapp.NewProfileService(profileRepo)

	placementService := orderapp.NewPlacementService(orderapp.PlacementServiceConfig{
		Carts:        stores.Carts,
		AddressRepo:  addressRepo,
		ProductRepo:  productRepo,
		OrderRepo:    orderRepo,
		Placement:    orderRepo,
		PaymentStore: orderRepo,
		Gateway:      gateway,
		EventBus:     eventBus,
		Currency:     cfg.Stripe.Currency,
		Logger:       log,
	})
	queryService := orderapp.NewQueryService(orderRepo)
	adminService := orderapp.NewAdminService(orderapp.AdminServiceConfig{
		OrderRepo:    orderRepo,
		StatusStore:  orderRepo,
		PaymentStore: orderRepo,
		ProductRepo:  productRepo,
		EventBus:     eventBus,
		Logger:       log,
	})
	webhookService := paymentapp.NewWebhookService(paymentapp.WebhookServiceConfig{
		Config:       stripeCfg,
		OrderRepo:    orderRepo,
		PaymentStore: orderRepo,
		Processed:    stores.Processed,
		EventBus:     eventBus,
		Logger:       log,
	})

	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)
	storeMetrics, err := telemetry.NewStoreMetrics(telemetry.StoreMetricsConfig{Meter: meter, Logger: log})
	if err != nil {
		log.Warn("Store metrics disabled", zap.Error(err))
	} else {
		placementService.SetStoreMetrics(storeMetrics)
		adminService.SetStoreMetrics(storeMetrics)
		webhookService.SetStoreMetrics(storeMetrics)
	}

	// HTTP
	checkoutLimiter := middleware.NewRateLimiter(checkoutBurst, checkoutWindow)
	reviewLimiter := middleware.NewRateLimiter(reviewBurst, reviewWindow)
	defer checkoutLimiter.Stop()
	defer reviewLimiter.Stop()

	engine := router.NewEngine(router.EngineConfig{
		ServiceName:      cfg.Telemetry.ServiceName,
		Logger:           log,
		TracingEnabled:   cfg.Telemetry.Enabled,
		ProfilingEnabled: profiler.IsEnabled(),
		Meter:            meter,
		CORSOrigins:      cfg.HTTP.CORSAllowOrigins,
		MaxBodyBytes:     cfg.HTTP.MaxBodySize,
	})
	jwtAuth := middleware.JWTAuth(auth.NewJWTService(cfg.JWT), log)
	router.Mount(engine, router.Handlers{
		Catalog:      handler.NewCatalogHandler(productService, categoryService, reviewService),
		AdminCatalog: handler.NewAdminCatalogHandler(productService, categoryService),
		Cart:         handler.NewCartHandler(cartService),
		Checkout:     handler.NewCheckoutHandler(placementService),
		Orders:       handler.NewOrderHandler(queryService),
		AdminOrders:  handler.NewAdminOrderHandler(adminService),
		Account:      handler.NewAccountHandler(profileService, addressService, wishlistService),
		Webhook:      handler.NewWebhookHandler(webhookService),
		Health: handler.NewHealthHandler(version, map[string]handler.Pinger{
			"database": db,
			"cache":    stores,
		}),
	}, router.Guards{
		Auth:          jwtAuth,
		Admin:         middleware.RequireAdmin(profileService, log),
		CheckoutLimit: middleware.RateLimit(checkoutLimiter, middleware.UserOrIPKey),
		ReviewLimit:   middleware.RateLimit(reviewLimiter, middleware.UserOrIPKey),
		Docs: middleware.DocsGuard(middleware.DocsConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, jwtAuth),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// In-flight requests are done; drain publishers before closing their sinks
	closeAll(shutdownCtx, log, eventBus, forwarder, stores, db, profiler, meterProvider, tracerProvider, loggerProvider)
	log.Info("Server exited gracefully")
}

// closeAll releases resources in dependency order, logging failures
func closeAll(
	ctx context.Context,
	log *zap.Logger,
	bus shared.EventBus,
	forwarder *event.KafkaForwarder,
	stores *cache.Stores,
	db *persistence.Database,
	profiler *telemetry.Profiler,
	meterProvider *telemetry.MeterProvider,
	tracerProvider *telemetry.TracerProvider,
	loggerProvider *telemetry.LoggerProvider,
) {
	if err := bus.Stop(ctx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if forwarder != nil {
		forwarder.Close()
	}
	if err := stores.Close(); err != nil {
		log.Error("Error closing cache", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := loggerProvider.Shutdown(ctx); err != nil {
		log.Error("Error shutting down log provider", zap.Error(err))
	}
}
