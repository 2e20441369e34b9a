package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/order-dashboard/internal/api/http"
	"github.com/spec-kit/order-dashboard/internal/api/http/handlers"
	"github.com/spec-kit/order-dashboard/internal/config"
	"github.com/spec-kit/order-dashboard/internal/domain"
	"github.com/spec-kit/order-dashboard/internal/events"
	"github.com/spec-kit/order-dashboard/internal/gateway"
	"github.com/spec-kit/order-dashboard/internal/observability"
	"github.com/spec-kit/order-dashboard/internal/persistence"
	"github.com/spec-kit/order-dashboard/internal/repository"
	"github.com/spec-kit/order-dashboard/internal/repository/localstore"
	"github.com/spec-kit/order-dashboard/internal/service"
	"github.com/spec-kit/order-dashboard/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	local, err := persistence.NewSqlite(cfg.Fallback, logger)
	if err != nil {
		logger.Fatal("failed to open local fallback store", zap.Error(err))
	}
	defer local.Close()

	metrics := observability.NewMetrics()

	deps := gateway.Dependencies{
		LocalOrders:      localstore.NewOrderStore(local.DB),
		LocalDepartments: localstore.NewDepartmentStore(local.DB),
		LocalCategories:  localstore.NewCategoryStore(local.DB),
		Pool:             pool,
		Logger:           logger,
		Metrics:          metrics,
	}
	if pool != nil {
		deps.RemoteOrders = repository.NewOrderRepository(pool)
		deps.RemoteDepartments = repository.NewDepartmentRepository(pool)
		deps.RemoteCategories = repository.NewCategoryRepository(pool)
	}

	gw := gateway.New(deps)
	if err := gw.Initialize(ctx); err != nil {
		logger.Fatal("gateway initialization failed", zap.Error(err))
	}
	defer gw.Dispose()

	dispatcher := events.NewInMemoryDispatcher()

	orderService := service.NewOrderService(service.OrderDependencies{
		Store:      gw,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	departmentService := service.NewDepartmentService(gw, dispatcher, logger)
	categoryService := service.NewCategoryService(gw)
	statsService := service.NewStatsService(gw, redis.Client, cfg.Stats.CacheTTL(), logger)

	worker.StartStatsWorker(dispatcher, statsService, logger)

	if cancelOrders, err := gw.SubscribeOrders(orderService.Reconcile); err != nil {
		logger.Warn("order change feed unavailable", zap.Error(err))
	} else {
		defer cancelOrders()
	}
	cancelDepts, err := gw.SubscribeDepartments(func([]domain.Department) {
		if err := statsService.RecomputeAgentCounters(ctx); err != nil {
			logger.Warn("recompute agent counters after department change", zap.Error(err))
		}
	})
	if err != nil {
		logger.Warn("department change feed unavailable", zap.Error(err))
	} else {
		defer cancelDepts()
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, local, gw),
		Orders:   handlers.NewOrdersHandler(orderService, gw),
		Settings: handlers.NewSettingsHandler(departmentService, categoryService),
		Stats:    handlers.NewStatsHandler(statsService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
