package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/club-coordinator/backend"
	"github.com/Dosada05/club-coordinator/broker"
	"github.com/Dosada05/club-coordinator/config"
	"github.com/Dosada05/club-coordinator/db"
	"github.com/Dosada05/club-coordinator/handlers"
	"github.com/Dosada05/club-coordinator/hub"
	"github.com/Dosada05/club-coordinator/repositories"
	api "github.com/Dosada05/club-coordinator/routes"
	"github.com/Dosada05/club-coordinator/services"
	"github.com/Dosada05/club-coordinator/storage"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("backend", cfg.Backend.BaseURL))
	logger.Debug("backend client config", slog.String("config", cfg.Backend.String()))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	apiClient, err := backend.New(cfg.Backend, nil, logger.With(slog.String("component", "backend")))
	if err != nil {
		logger.Error("failed to create backend client", slog.Any("error", err))
		os.Exit(1)
	}

	// Журнал назначений капитанов (необязательно)
	var auditRepo repositories.AssignmentRepository
	if cfg.DatabaseURL != "" {
		dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		}()
		if err = db.EnsureSchema(ctx, dbConn); err != nil {
			logger.Error("failed to prepare database schema", slog.Any("error", err))
			os.Exit(1)
		}
		auditRepo = repositories.NewPostgresAssignmentRepository(dbConn)
		logger.Info("database connection established")
	} else {
		logger.Info("DATABASE_URL not set, captain assignment log disabled")
	}

	// Сброс кэша результатов между экземплярами (необязательно)
	var invalidations broker.Broker = broker.Noop{}
	if cfg.RedisURL != "" {
		redisBroker, err := broker.NewRedisBroker(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisBroker.Close()
		invalidations = redisBroker
		logger.Info("redis broker connected")
	}

	// Выгрузка результатов в Cloudflare R2 (необязательно)
	var uploader storage.FileUploader
	if cfg.R2.Complete() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, cfg.R2)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	}

	// Инициализация WebSocket Hub
	wsHub := hub.NewHub(logger.With(slog.String("component", "hub")))
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	// Инициализация репозиториев
	eventRepo := repositories.NewRemoteEventRepository(apiClient)
	teamRepo := repositories.NewRemoteTeamRepository(apiClient)
	enrollmentRepo := repositories.NewRemoteEnrollmentRepository(apiClient)
	captainRepo := repositories.NewRemoteCaptainRepository(apiClient)
	resultRepo := repositories.NewRemoteMatchResultRepository(apiClient)
	profileRepo := repositories.NewRemoteProfileRepository(apiClient)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	guard := services.NewMembershipGuard(teamRepo, enrollmentRepo, eventRepo)
	teamService := services.NewTeamService(teamRepo, profileRepo, guard, logger)
	enrollmentService := services.NewEnrollmentService(enrollmentRepo, eventRepo, logger)
	captainService := services.NewCaptainService(eventRepo, enrollmentRepo, captainRepo, auditRepo, wsHub, logger)
	resultsCache := services.NewResultsCache(resultRepo, teamRepo, eventRepo, invalidations, logger)
	resultsService := services.NewResultsService(resultRepo, captainRepo, resultsCache, wsHub, logger)
	exportService := services.NewExportService(resultsCache, uploader, logger)
	logger.Info("Services initialized")

	if err = resultsCache.Listen(ctx); err != nil {
		logger.Error("failed to subscribe to results invalidation", slog.Any("error", err))
		os.Exit(1)
	}

	// Периодическая очистка журнала назначений
	if auditRepo != nil && cfg.AuditPruneInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.AuditPruneInterval)
			defer ticker.Stop()
			logger.Info("assignment log pruning scheduler started",
				slog.Duration("interval", cfg.AuditPruneInterval),
				slog.Int("keep", cfg.AuditKeep),
			)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					removed, err := captainService.PruneAssignments(ctx, cfg.AuditKeep)
					if err != nil {
						logger.Error("Scheduler: assignment log pruning failed", slog.Any("error", err))
						continue
					}
					if removed > 0 {
						logger.Info("Scheduler: assignment log pruned", slog.Int64("removed", removed))
					}
				}
			}
		}()
	}

	// Инициализация обработчиков HTTP
	teamHandler := handlers.NewTeamHandler(teamService, logger)
	enrollmentHandler := handlers.NewEnrollmentHandler(enrollmentService, logger)
	captainHandler := handlers.NewCaptainHandler(captainService, logger)
	resultsHandler := handlers.NewResultsHandler(resultsService, exportService, logger)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, cfg.AllowedOrigins, logger)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		api.Options{
			JWTSecret:      cfg.JWTSecretKey,
			AllowedOrigins: cfg.AllowedOrigins,
			Logger:         logger,
		},
		teamHandler,
		enrollmentHandler,
		captainHandler,
		resultsHandler,
		webSocketHandler,
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			stop()
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		// Hub закрывает websocket-соединения, которые Shutdown не отслеживает.
		stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		captainService.Wait()
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
