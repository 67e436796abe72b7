package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/glowline/glowline-backend/internal/app"
	"github.com/glowline/glowline-backend/internal/branches"
	"github.com/glowline/glowline-backend/internal/fulfillment"
	"github.com/glowline/glowline-backend/internal/identity"
	"github.com/glowline/glowline-backend/internal/inventory"
	"github.com/glowline/glowline-backend/internal/observability"
	"github.com/glowline/glowline-backend/internal/platform/cache"
	"github.com/glowline/glowline-backend/internal/platform/db"
	"github.com/glowline/glowline-backend/internal/purchasing"
	"github.com/glowline/glowline-backend/internal/requests"
	"github.com/glowline/glowline-backend/internal/shared"
	"github.com/glowline/glowline-backend/internal/transfers"
	"github.com/glowline/glowline-backend/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	reviewTrail := shared.NewReviewTrail(pool, logger)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	userRepo := identity.NewRepository(pool)
	identityService := identity.NewService(userRepo)
	tokenStore := identity.NewTokenStore(redisClient, cfg.TokenTTL)
	authHandler := identity.NewHandler(logger, identityService, tokenStore)
	authMiddleware := identity.Middleware{Tokens: tokenStore, Service: identityService, Logger: logger}

	branchRepo := branches.NewRepository(pool)
	branchService := branches.NewService(branchRepo)
	branchHandler := branches.NewHandler(logger, branchService)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger).WithMetrics(metrics)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	fulfillmentRepo := fulfillment.NewRepository(pool)
	executor := fulfillment.NewExecutor(logger, fulfillmentRepo, metrics)
	planner := fulfillment.NewPlanner(logger, inventoryRepo, redisClient, cfg.PlanCacheTTL)

	requestRepo := requests.NewRepository(pool)
	requestService := requests.NewService(requests.ServiceDeps{
		Logger:   logger,
		Repo:     requestRepo,
		Executor: executor,
		Planner:  planner,
		Trail:    reviewTrail,
		Audit:    auditLogger,
		Jobs:     jobsClient,
	})
	requestHandler := requests.NewHandler(logger, requestService).WithIdempotency(idempotencyStore)

	transferRepo := transfers.NewRepository(pool)
	transferService := transfers.NewService(logger, transferRepo)
	transferHandler := transfers.NewHandler(logger, transferService)

	purchasingRepo := purchasing.NewRepository(pool)
	purchasingService := purchasing.NewService(logger, purchasingRepo, auditLogger)
	purchasingHandler := purchasing.NewHandler(logger, purchasingService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AuthHandler:       authHandler,
		AuthMiddleware:    authMiddleware,
		BranchHandler:     branchHandler,
		InventoryHandler:  inventoryHandler,
		RequestHandler:    requestHandler,
		TransferHandler:   transferHandler,
		PurchasingHandler: purchasingHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
