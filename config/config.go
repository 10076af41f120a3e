package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Values come from the environment (optionally via a .env file) with
// working local defaults.
type Config struct {
	// HTTP control surface
	HTTPAddr string

	// Catalog API
	CatalogAPIURL string

	// MinIO content store
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// Redis persistence
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Playback device
	MPVPath   string
	MPVSocket string

	// Downloads
	ExportDir      string
	DefaultQuality string

	// Logging
	LogLevel  string
	LogPath   string
	LogMaxAge int
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	return &Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		CatalogAPIURL: getEnv("CATALOG_API_URL", "http://127.0.0.1:3000"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "sausico-downloads"),
		MinioRegion:    getEnv("MINIO_REGION", ""),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MPVPath:   getEnv("MPV_PATH", "mpv"),
		MPVSocket: getEnv("MPV_SOCKET", "/tmp/sausico-mpv.sock"),

		ExportDir:      getEnv("EXPORT_DIR", "exports"),
		DefaultQuality: getEnv("DEFAULT_QUALITY", "MEDIUM"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPath:   getEnv("LOG_PATH", ""),
		LogMaxAge: getEnvInt("LOG_MAX_AGE", 7),
	}
}

// RedisAddr returns the host:port address for the Redis client.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}
