package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/hottubshop/gateway"
	"github.com/example/hottubshop/pkg/cart"
	"github.com/example/hottubshop/pkg/checkout"
	"github.com/example/hottubshop/pkg/config"
	"github.com/example/hottubshop/pkg/discovery"
	shopgrpc "github.com/example/hottubshop/pkg/grpc"
	"github.com/example/hottubshop/pkg/mail"
	"github.com/example/hottubshop/pkg/models"
	"github.com/example/hottubshop/pkg/repository"
	"github.com/example/hottubshop/pkg/session"
	"github.com/example/hottubshop/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

type orderStore interface {
	AppendOrder(ctx context.Context, ownerKey string, record models.OrderRecord) error
	ListOrders(ctx context.Context, ownerKey string) ([]models.OrderRecord, error)
}

func newLogger(cfg *config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(cfg.Level); err == nil {
		zc.Level = lvl
	}
	if cfg.Encoding != "" {
		zc.Encoding = cfg.Encoding
	}
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}
	return zc.Build()
}

// openStorage falls back to data.fallback_dir when data.dir cannot be created, e.g. on a
// read-only deployment.
func openStorage(cfg *config.DataConfig, logger *zap.Logger) (*storage.Files, error) {
	files, err := storage.NewOS(cfg.Dir)
	if err == nil || cfg.FallbackDir == "" {
		return files, err
	}
	logger.Warn("Data directory unusable, using fallback",
		zap.String("dir", cfg.Dir),
		zap.String("fallback", cfg.FallbackDir),
		zap.Error(err))
	return storage.NewOS(cfg.FallbackDir)
}

func openImages(dir string) (afero.Fs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return afero.NewBasePathFs(afero.NewOsFs(), dir), nil
}

func advertisedHost(host string) string {
	if host != "" && host != "0.0.0.0" && host != "::" {
		return host
	}
	if name, err := os.Hostname(); err == nil {
		return name
	}
	return "localhost"
}

func main() {
	configPath := os.Getenv("HOTTUB_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := newLogger(&cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting hottub shop",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("orders", cfg.Storage.Orders),
		zap.String("sessions", cfg.Session.Store))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	files, err := openStorage(&cfg.Data, logger)
	if err != nil {
		logger.Fatal("Failed to open data directory", zap.Error(err))
	}

	catalog, err := repository.NewCatalogRepository(files, logger.Named("catalog"))
	if err != nil {
		logger.Fatal("Failed to open catalog", zap.Error(err))
	}
	if n, err := catalog.RemoveProducts(ctx, cfg.Shop.LegacySeeds...); err != nil {
		logger.Warn("Failed to remove legacy seed products", zap.Error(err))
	} else if n > 0 {
		logger.Info("Removed legacy seed products", zap.Int("count", n))
	}

	checks := map[string]shopgrpc.Checker{"catalog": catalog}

	var orders orderStore
	switch cfg.Storage.Orders {
	case "mysql":
		sqlOrders, err := repository.NewSQLOrderRepository(&cfg.MySQL, logger.Named("orders"))
		if err != nil {
			logger.Fatal("Failed to open order database", zap.Error(err))
		}
		defer sqlOrders.Close()
		orders = sqlOrders
	default:
		orders = repository.NewOrderRepository(files, logger.Named("orders"))
	}

	var sessions session.Store = session.NewMemoryStore()
	if cfg.Session.Store == "redis" {
		redisSessions := repository.NewRedisSessionStore(&cfg.Redis, cfg.Session.TTL)
		if err := redisSessions.Ping(ctx); err != nil {
			logger.Warn("Failed to connect to redis, continuing with in-memory sessions", zap.Error(err))
		} else {
			defer redisSessions.Close()
			sessions = redisSessions
			checks["sessions"] = shopgrpc.CheckerFunc(redisSessions.Ping)
		}
	}

	carts := cart.NewService(repository.NewCartRepository(files, logger.Named("carts")), logger.Named("carts"))

	dispatcher := mail.NewDispatcher(mail.NewSMTPSender(&cfg.Mail, logger.Named("smtp")), cfg.Mail.Timeout, logger)
	defer dispatcher.Stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	opts := []checkout.Option{checkout.WithMetrics(checkout.NewMetrics(registry))}

	var audit gateway.AuditLog
	if cfg.MongoDB.URI != "" {
		auditRepo, err := repository.NewAuditRepository(&cfg.MongoDB)
		if err != nil {
			logger.Warn("Failed to connect to MongoDB, continuing without audit log", zap.Error(err))
		} else {
			defer auditRepo.Close(context.Background())
			if err := auditRepo.Ping(ctx); err != nil {
				logger.Warn("MongoDB not reachable, audit entries may be lost", zap.Error(err))
			}
			audit = auditRepo
			opts = append(opts, checkout.WithAuditor(auditRepo))
		}
	}

	checkoutSvc := checkout.NewService(carts, orders, dispatcher,
		decimal.NewFromFloat(cfg.Shop.VATRate), logger.Named("checkout"), opts...)

	images, err := openImages(cfg.Shop.ImageDir)
	if err != nil {
		logger.Warn("Image directory unusable, uploads disabled", zap.Error(err))
	}

	gw := gateway.NewGateway(cfg, logger.Named("gateway"), gateway.Services{
		Catalog:  catalog,
		Carts:    carts,
		Orders:   orders,
		Checkout: checkoutSvc,
		Sessions: sessions,
		Audit:    audit,
		Images:   images,
		Registry: registry,
	})
	gw.SetupRoutes()

	errCh := make(chan error, 2)
	go func() {
		if err := gw.Start(); err != nil {
			errCh <- fmt.Errorf("gateway: %w", err)
		}
	}()

	var health *shopgrpc.HealthServer
	if cfg.GRPC.Enabled {
		health = shopgrpc.NewHealthServer(&cfg.GRPC, logger.Named("health"), checks)
		go func() {
			if err := health.Start(); err != nil {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
		go health.Watch(ctx, 15*time.Second)
	}

	// Setup service discovery
	var sd *discovery.ServiceDiscovery
	instance := &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Host: advertisedHost(cfg.Server.Host),
		Port: cfg.Server.Port,
	}
	if len(cfg.Etcd.Endpoints) > 0 {
		sd, err = discovery.NewServiceDiscovery(&cfg.Etcd, logger.Named("discovery"))
		if err != nil {
			logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else if err := sd.Register(ctx, instance); err != nil {
			logger.Warn("Failed to register service", zap.Error(err))
		} else if peers, err := sd.Discover(ctx, instance.Name); err == nil {
			logger.Info("Service instances discovered", zap.Int("count", len(peers)))
		}
	}

	logger.Info("Shop started successfully")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		logger.Error("Server error", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()

	if sd != nil {
		if err := sd.Deregister(shutdownCtx, instance); err != nil {
			logger.Warn("Failed to deregister service", zap.Error(err))
		}
		sd.Close()
	}
	if health != nil {
		health.Stop()
	}
	if err := gw.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Gateway shutdown", zap.Error(err))
	}

	logger.Info("Shop stopped")
}
