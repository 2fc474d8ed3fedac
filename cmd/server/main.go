package main

import (
	"context"
	"log"
	"os"
	"time"

	"framesync/internal/cache"
	"framesync/internal/config"
	"framesync/internal/database"
	"framesync/internal/handler"
	"framesync/internal/redis"
	"framesync/internal/render"
	"framesync/internal/repository"
	"framesync/internal/service"
	transporthttp "framesync/internal/transport/http"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	for _, dir := range []string{cfg.DataDir, cfg.UploadDir, cfg.ThumbnailDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	db, err := database.Connect(cfg.DBPath, cfg.DBPoolSize)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Display state lives in Redis when configured, otherwise in memory.
	// In-memory state resets on restart; the rotation picker tolerates that.
	var displayState cache.DisplayState = cache.NewMemoryDisplayState()
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to create redis client: %v", err)
		}
		if err := client.Ping(context.Background()); err != nil {
			log.Fatalf("Failed to reach redis: %v", err)
		}
		defer client.Close()
		displayState = cache.NewRedisDisplayState(client.Client)
		log.Println("[Server] using redis display state")
	}

	userRepo := repository.NewUserRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	imageRepo := repository.NewImageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	statsRepo := repository.NewStatsRepository(db, cfg.DBPath)

	storageService := service.NewStorageService(cfg.UploadDir, cfg.ThumbnailDir, cfg.QuotaBytes, cfg.WarningThreshold)
	imageService := service.NewImageService(db, imageRepo, userRepo, storageService, displayState, service.ImageServiceConfig{
		UploadDir:         cfg.UploadDir,
		ThumbnailDir:      cfg.ThumbnailDir,
		AllowedExtensions: cfg.AllowedExtensions,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		ThumbnailWidth:    cfg.ThumbnailWidth,
		ThumbnailHeight:   cfg.ThumbnailHeight,
		ThumbnailQuality:  cfg.ThumbnailQuality,
		BulkItemCap:       cfg.BulkItemCap,
	})
	selectorService := service.NewSelectorService(deviceRepo, imageRepo, displayState)
	notificationService := service.NewNotificationService(notificationRepo, deviceRepo,
		time.Duration(cfg.NotificationTTLHours)*time.Hour)
	renderer := render.NewExecRenderer(cfg.DisplayCommand, cfg.DisplayTimeout)
	displayService := service.NewDisplayService(deviceRepo, imageRepo, displayState, renderer, cfg.UploadDir)

	// The notification sweep runs in the background for the life of the
	// process; a failed sweep only logs and tries again next tick.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := notificationService.Sweep(context.Background()); err != nil {
				log.Printf("[Server] notification sweep: %v", err)
			}
		}
	}()

	router := transporthttp.NewRouter(transporthttp.RouterConfig{
		ImageHandler:        handler.NewImageHandler(imageService),
		DeviceHandler:       handler.NewDeviceHandler(deviceRepo, selectorService),
		UserHandler:         handler.NewUserHandler(userRepo),
		NotificationHandler: handler.NewNotificationHandler(notificationService),
		DisplayHandler:      handler.NewDisplayHandler(displayService),
		SystemHandler:       handler.NewSystemHandler(storageService, statsRepo),
	})

	if err := transporthttp.Run(cfg.ServerPort, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
