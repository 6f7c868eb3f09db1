package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/reelworks/reelworks-api/internal/config"
	"github.com/reelworks/reelworks-api/internal/domain/credit"
	"github.com/reelworks/reelworks-api/internal/domain/video"
	"github.com/reelworks/reelworks-api/internal/pkg/byteplus"
	"github.com/reelworks/reelworks-api/internal/pkg/database"
	"github.com/reelworks/reelworks-api/internal/pkg/logger"
	"github.com/reelworks/reelworks-api/internal/pkg/storage"
)

// Standalone poller for deployments that want job reconciliation out
// of the API process. Runs the same sweep loop the API embeds; the
// status guards in the repository keep concurrent observers safe.
func main() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
	})

	log.Info().Str("env", cfg.Env).Msg("Starting video worker")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.ClosePostgres(db)

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

	arkClient := byteplus.NewClient(cfg.BytePlusBaseURL, cfg.BytePlusAPIKey, cfg.BytePlusModel, cfg.BytePlusTimeout)

	creditRepo := credit.NewRepository(db)
	videoRepo := video.NewRepository(db, creditRepo)

	poller := video.NewPoller(videoRepo, arkClient, objectStore, video.PollerConfig{
		Interval:     cfg.VideoPollInterval,
		Timeout:      cfg.VideoTimeout,
		PendingGrace: cfg.VideoPendingGrace,
	})
	poller.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down video worker")
	poller.Stop()
	log.Info().Msg("Video worker stopped")
}
