package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultBackendURL is used when no backend base URL is configured
const DefaultBackendURL = "https://ai-valuation-backend-1.onrender.com"

// Config holds all configuration for the application
type Config struct {
	Backend BackendConfig
	Server  ServerConfig
	State   StateConfig
	Maps    MapsConfig
	Images  ImagesConfig
	Logging LoggingConfig
	Lang    string
}

// BackendConfig holds the prediction service configuration
type BackendConfig struct {
	BaseURL string
	Timeout int // seconds
}

// ServerConfig holds dashboard server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// StateConfig holds the client-state store configuration
type StateConfig struct {
	Driver string // sqlite or postgres
	DSN    string
}

// MapsConfig holds map and geolocation configuration
type MapsConfig struct {
	APIKey      string // Google Maps key, enables server-side geolocation
	TileURL     string
	Attribution string
}

// ImagesConfig holds image attachment limits
type ImagesConfig struct {
	MaxBytes int64
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Backend: BackendConfig{
			// first non-empty wins
			BaseURL: strings.TrimRight(getEnv("BACKEND_URL", getEnv("API_URL", getEnv("API_BASE_URL", DefaultBackendURL))), "/"),
			Timeout: getEnvAsInt("BACKEND_TIMEOUT", 30),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		State: StateConfig{
			Driver: getEnv("STATE_DRIVER", "sqlite"),
			DSN:    getEnv("STATE_DSN", getEnv("DATABASE_URL", "file:dashboard_state.db")),
		},
		Maps: MapsConfig{
			APIKey:      getEnv("GOOGLE_MAPS_API_KEY", ""),
			TileURL:     getEnv("MAP_TILE_URL", "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"),
			Attribution: getEnv("MAP_TILE_ATTRIBUTION", "&copy; OpenStreetMap contributors"),
		},
		Images: ImagesConfig{
			MaxBytes: int64(getEnvAsInt("MAX_IMAGE_BYTES", 10<<20)),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Lang: getEnv("DASHBOARD_LANG", "en"),
	}

	switch cfg.State.Driver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported STATE_DRIVER %q (want sqlite or postgres)", cfg.State.Driver)
	}

	return cfg, nil
}

// EndpointURL joins the backend base URL with a domain path
func (c *BackendConfig) EndpointURL(path string) string {
	return c.BaseURL + path
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}
