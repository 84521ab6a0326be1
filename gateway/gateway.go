package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/example/hottubshop/pkg/cart"
	"github.com/example/hottubshop/pkg/checkout"
	"github.com/example/hottubshop/pkg/config"
	"github.com/example/hottubshop/pkg/models"
	"github.com/example/hottubshop/pkg/repository"
	"github.com/example/hottubshop/pkg/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// OrderHistory lists the orders of an owner key, newest first.
type OrderHistory interface {
	ListOrders(ctx context.Context, ownerKey string) ([]models.OrderRecord, error)
}

// AuditLog records and reads back admin and checkout events.
type AuditLog interface {
	Record(ctx context.Context, action repository.AuditAction, entityID, ownerKey string, data map[string]interface{}) error
	Trail(ctx context.Context, entityID string, limit int64) ([]*repository.AuditEntry, error)
}

// Services are the collaborators behind the HTTP routes. Audit and Images are optional.
type Services struct {
	Catalog  *repository.CatalogRepository
	Carts    *cart.Service
	Orders   OrderHistory
	Checkout *checkout.Service
	Sessions session.Store
	Audit    AuditLog
	Images   afero.Fs
	Registry *prometheus.Registry
}

type Gateway struct {
	config   *config.Config
	svc      Services
	logger   *zap.Logger
	router   *gin.Engine
	server   *http.Server
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewGateway(cfg *config.Config, logger *zap.Logger, svc Services) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	if svc.Registry == nil {
		svc.Registry = prometheus.NewRegistry()
	}

	g := &Gateway{
		config: cfg,
		svc:    svc,
		logger: logger,
		router: router,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hottub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hottub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	svc.Registry.MustRegister(g.requests, g.latency)
	router.Use(g.metricsMiddleware())
	return g
}

func (g *Gateway) SetupRoutes() {
	g.router.GET("/health", g.health)
	g.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g.svc.Registry, promhttp.HandlerOpts{})))
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if g.svc.Images != nil {
		g.router.StaticFS("/img", afero.NewHttpFs(g.svc.Images))
	}

	v1 := g.router.Group("/api/v1")
	v1.Use(
		identityMiddleware(g.config.Auth.JWTSecret, g.logger),
		sessionMiddleware(g.svc.Sessions, &g.config.Session),
	)
	{
		products := v1.Group("/products")
		{
			products.GET("", g.listProducts)
			products.GET("/:id", g.getProduct)
			products.POST("/:id/configure", g.configureProduct)
		}

		carts := v1.Group("/cart")
		{
			carts.GET("", g.getCart)
			carts.POST("", g.addToCart)
			carts.DELETE("", g.clearCart)
			carts.DELETE("/items/:index", g.removeCartItem)
		}

		v1.POST("/checkout", g.submitCheckout)
		v1.GET("/orders", requireAuth(), g.listOrders)

		admin := v1.Group("/admin", requireRole(g.config.Auth.AdminRole))
		{
			admin.GET("/products", g.adminListProducts)
			admin.POST("/products", g.adminCreateProduct)
			admin.PUT("/products/:id", g.adminUpdateProduct)
			admin.DELETE("/products/:id", g.adminDeleteProduct)

			admin.GET("/products/:id/groups", g.adminListGroups)
			admin.PUT("/products/:id/groups/:group", g.adminSetGroupRequired)

			admin.POST("/products/:id/options", g.adminCreateOption)
			admin.PUT("/products/:id/options/:optionId", g.adminUpdateOption)
			admin.DELETE("/products/:id/options/:optionId", g.adminDeleteOption)

			admin.POST("/images", g.adminUploadImage)
			admin.GET("/audit/:entityId", g.adminAuditTrail)
		}
	}
}

// Handler exposes the router, mainly for tests.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) Start() error {
	addr := g.config.Server.Addr()
	g.server = &http.Server{
		Addr:              addr,
		Handler:           g.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.logger.Info("Gateway starting", zap.String("address", addr))
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}

func (g *Gateway) health(c *gin.Context) {
	if err := g.svc.Catalog.Check(c.Request.Context()); err != nil {
		g.logger.Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (g *Gateway) audit(c *gin.Context, action repository.AuditAction, entityID string, data map[string]interface{}) {
	if g.svc.Audit == nil {
		return
	}
	var ownerKey string
	if o := owner(c); o.Authenticated() {
		ownerKey = o.Key()
	}
	if err := g.svc.Audit.Record(c.Request.Context(), action, entityID, ownerKey, data); err != nil {
		g.logger.Warn("Failed to record audit entry",
			zap.String("action", string(action)),
			zap.String("id", entityID),
			zap.Error(err))
	}
}

func (g *Gateway) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		g.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		g.latency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
