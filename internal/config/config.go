package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DataDir      string
	UploadDir    string
	ThumbnailDir string
	DBPath       string

	ServerPort string

	AllowedExtensions []string
	MaxUploadBytes    int64
	ThumbnailWidth    int
	ThumbnailHeight   int
	ThumbnailQuality  int

	QuotaBytes       int64
	WarningThreshold float64

	NotificationTTLHours int
	SweepInterval        time.Duration
	BulkItemCap          int

	DBPoolSize int

	DisplayCommand string
	DisplayTimeout time.Duration

	RedisURL string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = filepath.Join(dataDir, "uploads")
	}

	thumbnailDir := os.Getenv("THUMBNAIL_DIR")
	if thumbnailDir == "" {
		thumbnailDir = filepath.Join(uploadDir, "thumbnails")
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "framesync.db")
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	extensions := []string{".png", ".jpg", ".jpeg", ".gif", ".bmp"}
	if raw := os.Getenv("ALLOWED_EXTENSIONS"); raw != "" {
		extensions = extensions[:0]
		for _, ext := range strings.Split(raw, ",") {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			extensions = append(extensions, ext)
		}
	}

	return &Config{
		DataDir:      dataDir,
		UploadDir:    uploadDir,
		ThumbnailDir: thumbnailDir,
		DBPath:       dbPath,

		ServerPort: serverPort,

		AllowedExtensions: extensions,
		MaxUploadBytes:    envInt64("MAX_UPLOAD_BYTES", 16*1024*1024),
		ThumbnailWidth:    envInt("THUMBNAIL_WIDTH", 200),
		ThumbnailHeight:   envInt("THUMBNAIL_HEIGHT", 200),
		ThumbnailQuality:  envInt("THUMBNAIL_QUALITY", 85),

		QuotaBytes:       envInt64("QUOTA_BYTES", 10*1024*1024*1024),
		WarningThreshold: envFloat("WARNING_THRESHOLD", 0.90),

		NotificationTTLHours: envInt("NOTIFICATION_TTL_HOURS", 72),
		SweepInterval:        time.Duration(envInt("SWEEP_INTERVAL_MINUTES", 60)) * time.Minute,
		BulkItemCap:          envInt("BULK_ITEM_CAP", 100),

		DBPoolSize: envInt("DB_POOL_SIZE", 8),

		DisplayCommand: os.Getenv("DISPLAY_COMMAND"),
		DisplayTimeout: time.Duration(envInt("DISPLAY_TIMEOUT_SECONDS", 30)) * time.Second,

		RedisURL: os.Getenv("REDIS_URL"),
	}, nil
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
