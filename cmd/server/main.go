package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"apartmentiq/server/config"
	"apartmentiq/server/internal/alerts"
	"apartmentiq/server/internal/api"
	"apartmentiq/server/internal/database"
	"apartmentiq/server/internal/engine"
	"apartmentiq/server/internal/geocoding"
	"apartmentiq/server/internal/processor"
	"apartmentiq/server/internal/queue"
	"apartmentiq/server/internal/scheduler"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dbPath := cfg.Server.DBPath
	if !filepath.IsAbs(dbPath) {
		currentDir, err := os.Getwd()
		if err != nil {
			logger.WithError(err).Fatal("Failed to get current directory")
		}
		dbPath = filepath.Join(currentDir, dbPath)
	}
	logger.Infof("Using database at: %s", dbPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.WithError(err).Fatal("Failed to create database directory")
	}

	// Initialize database
	db, err := database.NewDatabase(dbPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Run database migrations
	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	// Backfill coordinates for properties that never got geocoded
	cacheDir := filepath.Join(os.TempDir(), "apartmentiq", "geocode_cache")
	geocoder := geocoding.NewGeocoder(logger, cacheDir)
	logger.Info("Starting geocoding backfill for properties without coordinates...")
	if filled, err := db.FillMissingCoordinates(geocoder); err != nil {
		logger.WithError(err).Error("Geocoding backfill failed")
	} else if filled > 0 {
		logger.Infof("Geocoded %d properties", filled)
	}

	// The ingest write path goes through gorm against the same file
	gormDB, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		logger.WithError(err).Fatal("Failed to open database for ingest")
	}

	// Ingest pipeline: queue plus batch processors
	listingQueue := queue.NewListingQueue(cfg.BatchProcessing.MaxBatchSize, logger)
	batchProcessor := processor.NewBatchProcessor(gormDB, listingQueue, cfg, logger)
	batchProcessor.Start()
	defer batchProcessor.Stop()
	listingQueue.Start()
	defer listingQueue.Close()

	// Scoring engine and alerting
	eng := engine.NewEngine(cfg, logger)
	alertService := alerts.NewService(logger, alerts.Config{
		Enabled:             cfg.Alerts.Enabled,
		BotToken:            cfg.Alerts.BotToken,
		ChatID:              cfg.Alerts.ChatID,
		MinNegotiationScore: cfg.Alerts.MinNegotiationScore,
	})

	// Periodic rescore pass
	rescoreScheduler := scheduler.NewScheduler(db, eng, alertService, cfg, logger)
	rescoreScheduler.Start()
	defer rescoreScheduler.Stop()

	// HTTP API
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
	}))

	handler := api.NewHandler(db, eng, listingQueue, alertService, logger)
	api.SetupRoutes(router, handler)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Infof("Starting server on port %d", cfg.Server.Port)
		if err := router.Run(addr); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")
}
