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

	"github.com/socdesk/socdesk/internal/app"
	"github.com/socdesk/socdesk/internal/auth"
	"github.com/socdesk/socdesk/internal/groups"
	"github.com/socdesk/socdesk/internal/observability"
	"github.com/socdesk/socdesk/internal/platform/cache"
	"github.com/socdesk/socdesk/internal/platform/db"
	"github.com/socdesk/socdesk/internal/rbac"
	"github.com/socdesk/socdesk/internal/roles"
	"github.com/socdesk/socdesk/internal/shared"
	"github.com/socdesk/socdesk/internal/tickets"
	"github.com/socdesk/socdesk/internal/users"
	"github.com/socdesk/socdesk/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	navigation, err := shared.LoadNavigation(cfg.NavigationFile)
	if err != nil {
		logger.Error("load navigation", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	tokenStore := shared.NewTokenStore(redisClient, cfg.SessionSecret, cfg.SessionTTL)
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	locker := shared.NewRedisLocker(redisClient)

	rbacService := rbac.NewService(rbac.NewRepository(dbpool), rbac.NewSubjectCache(redisClient, cfg.SessionTTL), logger)
	rbacMiddleware := rbac.Middleware{Resolver: rbacService, Tokens: tokenStore, Logger: logger, Metrics: metrics}

	authService := auth.NewService(auth.NewRepository(dbpool), tokenStore, logger)
	authHandler := auth.NewHandler(logger, authService, cfg.LoginRateLimitPerMinute)

	groupService := groups.NewService(groups.NewRepository(dbpool))
	userService := users.NewService(users.NewRepository(dbpool), groupService, navigation)
	roleService := roles.NewService(roles.NewRepository(dbpool), rbacService, auditLogger, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	ticketService := tickets.NewService(tickets.Deps{
		Repo:        tickets.NewRepository(dbpool),
		Groups:      groupService,
		Users:       userService,
		Locker:      locker,
		Idempotency: idempotencyStore,
		Audit:       auditLogger,
		Jobs:        jobClient,
		Policy:      cfg.AccessPolicy(),
		Logger:      logger,
	})

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		RBACMiddleware:     rbacMiddleware,
		AuthHandler:        authHandler,
		UsersHandler:       users.NewHandler(logger, userService, rbacMiddleware),
		RolesHandler:       roles.NewHandler(logger, roleService, rbacMiddleware),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware),
		GroupsHandler:      groups.NewHandler(logger, groupService, rbacMiddleware),
		TicketsHandler:     tickets.NewHandler(logger, ticketService),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
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
