package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendRemote = "remote"
	BackendMemory = "memory"
)

type Config struct {
	AppName         string
	Port            string
	BaseURL         string
	StorageBackend  string
	MongoURI        string
	MongoDB         string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool
	JWTSecret       string
	AdminEmail      string
	AdminPassword   string
	TokenTTL        time.Duration
	MaxFileSize     int64
	Expiration      time.Duration
	CleanupInterval time.Duration
	CleanupWorkers  int
	RateLimitMax    int
	LogFile         string
	LogLevel        string
}

func Load() *Config {
	return &Config{
		AppName:         getEnv("APP_NAME", "TransferApp"),
		Port:            getEnv("PORT", "8080"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
		StorageBackend:  strings.ToLower(getEnv("STORAGE_BACKEND", BackendRemote)),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017/secure_files"),
		MongoDB:         getEnv("MONGO_DB", "secure_files"),
		MinioEndpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:  getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey:  getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:     getEnv("MINIO_BUCKET", "securedrop"),
		MinioUseSSL:     getEnvBool("MINIO_USE_SSL", false),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		AdminEmail:      getEnv("ADMIN_EMAIL", ""),
		AdminPassword:   getEnv("ADMIN_PASSWORD", ""),
		TokenTTL:        getEnvDuration("TOKEN_TTL_HOURS", 4*time.Hour),
		MaxFileSize:     getEnvInt64("MAX_FILE_SIZE", 100*1024*1024), // 100MB
		Expiration:      getEnvDuration("EXPIRATION_HOURS", 24*time.Hour),
		CleanupInterval: getEnvDuration("CLEANUP_INTERVAL_HOURS", 1*time.Hour),
		CleanupWorkers:  getEnvInt("CLEANUP_WORKERS", 4),
		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 20),
		LogFile:         getEnv("LOG_FILE", "logs/securedrop.log"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt64 only accepts positive values.
func getEnvInt64(key string, fallback int64) int64 {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration reads a positive number of hours; fractions are allowed.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		hours, err := strconv.ParseFloat(val, 64)
		if err == nil && hours > 0 {
			if d := time.Duration(hours * float64(time.Hour)); d > 0 {
				return d
			}
		}
	}
	return fallback
}
