package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/gin-gonic/gin"
	_ "github.com/storefront/backend/docs"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	NewRouter(engine, WithAPIVersion("v2")).Register(group).Setup()

	w := serve(engine, http.MethodGet, "/api/v2/test/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/test/ping", nil).Code)
}

func TestDomainGroup(t *testing.T) {
	t.Run("name and prefix", func(t *testing.T) {
		g := NewDomainGroup("catalog", "/catalog")
		assert.Equal(t, "catalog", g.Name())
		assert.Equal(t, "/catalog", g.Prefix())
	})

	t.Run("methods", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/items")
		ok := func(c *gin.Context) { c.Status(http.StatusOK) }
		g.GET("", ok).POST("", ok).PUT("/:id", ok).DELETE("/:id", ok).Handle(http.MethodPatch, "/:id", ok)
		g.RegisterRoutes(engine.Group("/api/v1"))

		for _, tc := range []struct{ method, path string }{
			{http.MethodGet, "/api/v1/items"},
			{http.MethodPost, "/api/v1/items"},
			{http.MethodPut, "/api/v1/items/1"},
			{http.MethodDelete, "/api/v1/items/1"},
			{http.MethodPatch, "/api/v1/items/1"},
		} {
			assert.Equal(t, http.StatusOK, serve(engine, tc.method, tc.path, nil).Code, tc.method+" "+tc.path)
		}
	})

	t.Run("middleware reaches subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("outer", "/outer").Use(func(c *gin.Context) {
			c.Header("X-Outer", "1")
			c.Next()
		})
		g.Group("inner", "/inner").GET("/leaf", func(c *gin.Context) { c.Status(http.StatusOK) })
		g.RegisterRoutes(engine.Group(""))

		w := serve(engine, http.MethodGet, "/outer/inner/leaf", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "1", w.Header().Get("X-Outer"))
	})
}

func newStorefrontEngine() *gin.Engine {
	engine := NewEngine(EngineConfig{ServiceName: "storefront-test", MaxBodyBytes: 1 << 20})
	handlers := Handlers{
		Catalog:      handler.NewCatalogHandler(nil, nil, nil),
		AdminCatalog: handler.NewAdminCatalogHandler(nil, nil),
		Cart:         handler.NewCartHandler(nil),
		Checkout:     handler.NewCheckoutHandler(nil),
		Orders:       handler.NewOrderHandler(nil),
		AdminOrders:  handler.NewAdminOrderHandler(nil),
		Account:      handler.NewAccountHandler(nil, nil, nil),
		Webhook:      handler.NewWebhookHandler(nil),
		Health:       handler.NewHealthHandler("test", nil),
	}
	guards := Guards{
		Auth: func(c *gin.Context) {
			if c.GetHeader("Authorization") == "" {
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
			c.Next()
		},
		Admin: func(c *gin.Context) {
			if c.GetHeader("X-Test-Admin") == "" {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
		},
		CheckoutLimit: func(c *gin.Context) {
			c.AbortWithStatus(http.StatusTooManyRequests)
		},
	}
	Mount(engine, handlers, guards)
	return engine
}

func TestMount_Routes(t *testing.T) {
	engine := newStorefrontEngine()

	var got []string
	for _, r := range engine.Routes() {
		got = append(got, r.Method+" "+r.Path)
	}
	sort.Strings(got)

	want := []string{
		"DELETE /api/v1/addresses/:id",
		"DELETE /api/v1/admin/categories/:id",
		"DELETE /api/v1/admin/products/:id",
		"DELETE /api/v1/cart",
		"DELETE /api/v1/cart/items/:product_id",
		"DELETE /api/v1/wishlist/:product_id",
		"GET /api/v1/addresses",
		"GET /api/v1/admin/dashboard",
		"GET /api/v1/admin/orders",
		"GET /api/v1/admin/orders/:id",
		"GET /api/v1/cart",
		"GET /api/v1/categories",
		"GET /api/v1/me",
		"GET /api/v1/orders",
		"GET /api/v1/orders/:id",
		"GET /api/v1/products",
		"GET /api/v1/products/:id",
		"GET /api/v1/products/:id/reviews",
		"GET /api/v1/wishlist",
		"GET /health",
		"POST /api/v1/addresses",
		"POST /api/v1/admin/categories",
		"POST /api/v1/admin/orders/:id/mark-paid",
		"POST /api/v1/admin/products",
		"POST /api/v1/cart/items",
		"POST /api/v1/checkout",
		"POST /api/v1/orders/:id/pay",
		"POST /api/v1/payments/webhook",
		"POST /api/v1/products/:id/reviews",
		"POST /api/v1/wishlist/:product_id",
		"PUT /api/v1/admin/categories/:id",
		"PUT /api/v1/admin/orders/:id/status",
		"PUT /api/v1/admin/products/:id",
		"PUT /api/v1/admin/products/:id/stock",
		"PUT /api/v1/cart/items/:product_id",
	}
	assert.Equal(t, want, got)
}

func TestMount_Docs(t *testing.T) {
	engine := NewEngine(EngineConfig{ServiceName: "storefront-test"})
	Mount(engine, Handlers{
		Catalog:      handler.NewCatalogHandler(nil, nil, nil),
		AdminCatalog: handler.NewAdminCatalogHandler(nil, nil),
		Cart:         handler.NewCartHandler(nil),
		Checkout:     handler.NewCheckoutHandler(nil),
		Orders:       handler.NewOrderHandler(nil),
		AdminOrders:  handler.NewAdminOrderHandler(nil),
		Account:      handler.NewAccountHandler(nil, nil, nil),
		Webhook:      handler.NewWebhookHandler(nil),
	}, Guards{
		Docs: middleware.DocsGuard(middleware.DocsConfig{Enabled: true}, nil),
	})

	t.Run("ui is served", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/swagger/index.html", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "swagger-ui")
	})

	t.Run("doc lists the storefront routes", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/swagger/doc.json", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var doc struct {
			BasePath string                    `json:"basePath"`
			Paths    map[string]map[string]any `json:"paths"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
		assert.Equal(t, "/api/v1", doc.BasePath)
		assert.Contains(t, doc.Paths["/checkout"], "post")
		assert.Contains(t, doc.Paths["/payments/webhook"], "post")
		assert.Contains(t, doc.Paths["/admin/orders/{id}/status"], "put")
	})

	t.Run("disabled docs answer 404", func(t *testing.T) {
		engine := gin.New()
		Mount(engine, Handlers{
			Catalog:      handler.NewCatalogHandler(nil, nil, nil),
			AdminCatalog: handler.NewAdminCatalogHandler(nil, nil),
			Cart:         handler.NewCartHandler(nil),
			Checkout:     handler.NewCheckoutHandler(nil),
			Orders:       handler.NewOrderHandler(nil),
			AdminOrders:  handler.NewAdminOrderHandler(nil),
			Account:      handler.NewAccountHandler(nil, nil, nil),
			Webhook:      handler.NewWebhookHandler(nil),
		}, Guards{Docs: middleware.DocsGuard(middleware.DocsConfig{}, nil)})
		assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/swagger/index.html", nil).Code)
	})
}

func TestMount_Guards(t *testing.T) {
	engine := newStorefrontEngine()
	signedIn := map[string]string{"Authorization": "Bearer t"}

	t.Run("customer routes need auth", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodGet, "/api/v1/cart", nil).Code)
		assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodPost, "/api/v1/products/x/reviews", nil).Code)
	})

	t.Run("admin routes need the admin role", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(engine, http.MethodGet, "/api/v1/admin/dashboard", nil).Code)
		assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodGet, "/api/v1/admin/dashboard", signedIn).Code)
	})

	t.Run("checkout is rate limited", func(t *testing.T) {
		assert.Equal(t, http.StatusTooManyRequests, serve(engine, http.MethodPost, "/api/v1/checkout", signedIn).Code)
		assert.Equal(t, http.StatusTooManyRequests, serve(engine, http.MethodPost, "/api/v1/orders/x/pay", signedIn).Code)
	})

	t.Run("webhook is public", func(t *testing.T) {
		w := serve(engine, http.MethodPost, "/api/v1/payments/webhook", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "rejected for the missing signature, not for auth")
	})

	t.Run("health", func(t *testing.T) {
		w := serve(engine, http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	})
}
