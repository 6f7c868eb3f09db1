package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/reelworks/reelworks-api/internal/config"
	"github.com/reelworks/reelworks-api/internal/domain/auth"
	"github.com/reelworks/reelworks-api/internal/domain/credit"
	"github.com/reelworks/reelworks-api/internal/domain/payment"
	"github.com/reelworks/reelworks-api/internal/domain/user"
	"github.com/reelworks/reelworks-api/internal/domain/video"
	"github.com/reelworks/reelworks-api/internal/middleware"
	"github.com/reelworks/reelworks-api/internal/pkg/byteplus"
	"github.com/reelworks/reelworks-api/internal/pkg/database"
	"github.com/reelworks/reelworks-api/internal/pkg/jwt"
	"github.com/reelworks/reelworks-api/internal/pkg/logger"
	"github.com/reelworks/reelworks-api/internal/pkg/paygate"
	"github.com/reelworks/reelworks-api/internal/pkg/response"
	"github.com/reelworks/reelworks-api/internal/pkg/storage"
)

func main() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
	})

	log.Info().Str("env", cfg.Env).Str("port", cfg.Port).Msg("Starting API server")

	// Infrastructure
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.ClosePostgres(db)

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to redis")
	}
	defer database.CloseRedis(redisClient)

	objectStore, err := storage.NewS3Storage(storage.Config{
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Endpoint:  cfg.S3Endpoint,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init object storage")
	}

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	arkClient := byteplus.NewClient(cfg.BytePlusBaseURL, cfg.BytePlusAPIKey, cfg.BytePlusModel, cfg.BytePlusTimeout)

	providers := paygate.NewRegistry()
	providers.Register(paygate.NewMockProvider(paygate.ProviderStripe))
	providers.Register(paygate.NewMockProvider(paygate.ProviderPayPal))

	// Repositories
	userRepo := user.NewRepository(db)
	creditRepo := credit.NewRepository(db)
	paymentRepo := payment.NewRepository(db, creditRepo)
	videoRepo := video.NewRepository(db, creditRepo)

	// Services
	authService := auth.NewService(userRepo, creditRepo, jwtService, redisClient)
	creditService := credit.NewService(creditRepo)
	paymentService := payment.NewService(paymentRepo, providers, cfg.GkashSignatureKey)
	videoService := video.NewService(videoRepo, creditRepo, arkClient, objectStore, cfg.PresignTTL)

	// Handlers
	authHandler := auth.NewHandler(authService)
	creditHandler := credit.NewHandler(creditService)
	paymentHandler := payment.NewHandler(paymentService, cfg.ClientURL)
	videoHandler := video.NewHandler(videoService)

	// Background poller resolving outstanding generation jobs
	poller := video.NewPoller(videoRepo, arkClient, objectStore, video.PollerConfig{
		Interval:     cfg.VideoPollInterval,
		Timeout:      cfg.VideoTimeout,
		PendingGrace: cfg.VideoPendingGrace,
	})
	poller.Start()
	defer poller.Stop()

	// Router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		response.OK(w, map[string]interface{}{
			"status": "ok",
			"time":   time.Now().UTC(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", auth.Routes(authHandler, jwtService))
		r.Mount("/credit", credit.Routes(creditHandler, jwtService))
		r.Mount("/payment", payment.Routes(paymentHandler, jwtService))
		r.Mount("/video", video.Routes(videoHandler, jwtService))

		// the purchase flow lives with payments but is addressed as a
		// credit operation
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(jwtService))
			r.Post("/credit/purchase", paymentHandler.Purchase)
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
