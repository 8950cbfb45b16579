// cmd/main.go
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lmittmann/tint"
	"github.com/rs/cors"

	"course_progress_engine/internal/cache"
	"course_progress_engine/internal/config"
	"course_progress_engine/internal/handlers"
	"course_progress_engine/internal/middleware"
	"course_progress_engine/internal/model"
	"course_progress_engine/internal/repository"
	"course_progress_engine/internal/service"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	// 設定ファイル読み込み用の一時的なロガー設定
	tempLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(tempLogger)

	if err := config.LoadConfig("configs"); err != nil {
		slog.Error("Error loading configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// === 設定に基づいて slog ロガーを初期化 ===
	logLevel := new(slog.LevelVar)
	switch strings.ToLower(config.Cfg.Log.Level) {
	case "debug":
		logLevel.Set(slog.LevelDebug)
	case "info":
		logLevel.Set(slog.LevelInfo)
	case "warn", "warning":
		logLevel.Set(slog.LevelWarn)
	case "error":
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
		slog.Warn("Unknown log level specified in config, defaulting to INFO", slog.String("level", config.Cfg.Log.Level))
	}

	var handler slog.Handler
	appEnv := os.Getenv("APP_ENV")
	if strings.ToLower(appEnv) == "dev" {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.RFC3339,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("Application starting...", slog.String("app", config.AppName), slog.String("version", config.AppVersion))

	// 2. Initialize Database Connection (GORM)
	db, err := repository.NewDB(config.Cfg.Database.URL, logger)
	if err != nil {
		slog.Error("Error initializing database", slog.Any("error", err))
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("Error getting underlying sql.DB from GORM", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Error closing database connection", slog.Any("error", err))
		} else {
			slog.Info("Database connection closed.")
		}
	}()

	if err := db.AutoMigrate(&model.Course{}, &model.Unit{}, &model.ProgressRecord{}, &model.Certificate{}); err != nil {
		slog.Error("Error migrating database schema", slog.Any("error", err))
		os.Exit(1)
	}

	// ローカルキャッシュ: Redisが有効ならRedis、無効ならインメモリ
	var store cache.Store
	if config.Cfg.Redis.Enabled {
		redisStore, err := cache.NewRedisStore(&config.Cfg.Redis)
		if err != nil {
			slog.Error("Error initializing redis cache", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisStore.Close()
		store = redisStore
		slog.Info("Using redis cache store", slog.String("addr", config.Cfg.Redis.Addr))
	} else {
		store = cache.NewMemoryStore()
		slog.Info("Using in-memory cache store")
	}

	var mailer service.Mailer
	if config.Cfg.Mail.Provider == "ses" {
		mailer = service.NewSESMailer(&config.Cfg)
	} else {
		mailer = &service.LogMailer{}
	}

	// 3. Dependency Injection
	progressRepo := repository.NewGormProgressRepository()
	courseRepo := repository.NewGormCourseRepository()
	certRepo := repository.NewGormCertificateRepository()

	aggService := service.NewAggregationService()
	certService := service.NewCertificateService(&config.Cfg)
	syncService := service.NewSyncService()
	orchestrator := service.NewOrchestratorService(
		db, progressRepo, courseRepo, certRepo,
		aggService, certService, syncService,
		store, mailer, &config.Cfg,
	)

	progressHandler := handlers.NewProgressHandler(orchestrator)
	certHandler := handlers.NewCertificateHandler(orchestrator)

	// 4. Setup Router
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.LoggingMiddleware(logger))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   config.Cfg.CORS.AllowedOrigins,
		AllowedMethods:   config.Cfg.CORS.AllowedMethods,
		AllowedHeaders:   config.Cfg.CORS.AllowedHeaders,
		ExposedHeaders:   config.Cfg.CORS.ExposedHeaders,
		AllowCredentials: config.Cfg.CORS.AllowCredentials,
		MaxAge:           config.Cfg.CORS.MaxAge,
	})
	r.Use(corsHandler.Handler)

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// API Routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuthMiddleware(&config.Cfg))

			r.Get("/progress", progressHandler.GetOverallProgress)

			r.Route("/courses/{course_id}", func(r chi.Router) {
				r.Get("/progress", progressHandler.GetCourseProgress)
				r.Delete("/progress", progressHandler.ResetCourseProgress)
				r.Put("/units/{unit_id}/progress", progressHandler.UpdateUnitProgress)
				r.Post("/units/{unit_id}/quiz", progressHandler.CompleteQuiz)
				r.Post("/certificate", certHandler.UpdateCertificate)
			})

			r.Post("/session/logout", progressHandler.Logout)
		})
	})

	// Health Check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := sqlDB.PingContext(ctx); err != nil {
			slog.ErrorContext(ctx, "Health check failed: could not ping DB", slog.Any("error", err))
			http.Error(w, "Health check failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// 5. Start Server
	server := &http.Server{
		Addr:         config.Cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", slog.String("port", config.Cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", slog.String("port", config.Cfg.Server.Port), slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", slog.Any("error", err))
	}

	log.Println("Server exiting")
}
