package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ljimmex/NexArenav2-sub001/brackets"
	"github.com/Ljimmex/NexArenav2-sub001/config"
	"github.com/Ljimmex/NexArenav2-sub001/db"
	"github.com/Ljimmex/NexArenav2-sub001/handlers"
	"github.com/Ljimmex/NexArenav2-sub001/repositories"
	api "github.com/Ljimmex/NexArenav2-sub001/routes"
	"github.com/Ljimmex/NexArenav2-sub001/services"
	"github.com/Ljimmex/NexArenav2-sub001/storage"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
)

const migrationsSourceURL = "file://migrations"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(dbConn, migrationsSourceURL); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations applied")

	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 storage is not configured, logo uploads are disabled")
	}

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("websocket hub started")

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	clock := clockwork.NewRealClock()

	authService := services.NewAuthService(userRepo, logger)
	tournamentService := services.NewTournamentService(tournamentRepo, participantRepo, uploader, logger)
	participantService := services.NewParticipantService(participantRepo, tournamentRepo, uploader, logger)
	bracketService := services.NewBracketService(dbConn, tournamentRepo, participantRepo, matchRepo, wsHub, rng, logger)
	matchService := services.NewMatchService(dbConn, matchRepo, tournamentRepo, wsHub, clock, logger)
	logger.Info("services initialized")

	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	participantHandler := handlers.NewParticipantHandler(participantService)
	bracketHandler := handlers.NewBracketHandler(bracketService)
	matchHandler := handlers.NewMatchHandler(matchService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub, logger)

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		tournamentHandler,
		participantHandler,
		bracketHandler,
		matchHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
