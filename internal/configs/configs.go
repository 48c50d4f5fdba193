/*
Package configs is responsible for loading and parsing the client's configuration settings.

Settings are read from operating system environment variables, optionally seeded
from a .env file. They cover the API base URL, the view server (environment,
port, CORS allowed origins), token persistence, the drafts database and the
optional S3-compatible export bucket.
*/
package configs

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	TokenStoreFile   = "file"
	TokenStoreRedis  = "redis"
	TokenStoreMemory = "memory"
)

// AppConfig contains all configuration parameters required for the client to run.
type AppConfig struct {
	// API Settings
	APIBaseURL     string
	RequestTimeout time.Duration

	// View Server Settings
	Environment    string
	Port           int
	AllowedOrigins []string

	// Token Persistence Settings
	TokenStore    string
	TokenFile     string
	RedisAddr     string
	RedisPassword string

	// Drafts Settings
	DraftsDSN string

	// S3 Export Settings
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
}

// IsDevelopment reports whether the client runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadEnvFile seeds the environment from path (".env" when empty). Variables
// that are already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	return nil
}

// LoadConfig reads and parses the configuration from environment variables.
// It provides default values for each configuration item and performs the
// necessary type conversions and validation.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- API Settings ---
	cfg.APIBaseURL = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:5001/api/v1"
	}
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid API_BASE_URL %q: want an absolute http(s) URL", cfg.APIBaseURL)
	}

	timeoutStr := os.Getenv("REQUEST_TIMEOUT")
	if timeoutStr == "" {
		timeoutStr = "15s"
	}
	cfg.RequestTimeout, err = time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT environment variable: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", cfg.RequestTimeout)
	}

	// --- View Server Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "3000"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT environment variable: %w", err)
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	cfg.AllowedOrigins = []string{}
	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	// --- Token Persistence Settings ---
	cfg.TokenStore = strings.ToLower(os.Getenv("TOKEN_STORE"))
	if cfg.TokenStore == "" {
		cfg.TokenStore = TokenStoreFile
	}

	switch cfg.TokenStore {
	case TokenStoreFile:
		cfg.TokenFile = os.Getenv("TOKEN_FILE")
		if cfg.TokenFile == "" {
			dir, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("TOKEN_FILE is not set and no user config directory is available: %w", err)
			}
			cfg.TokenFile = filepath.Join(dir, "blogctl", "token")
		}

	case TokenStoreRedis:
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR environment variable is required when TOKEN_STORE is redis")
		}
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	case TokenStoreMemory:

	default:
		return nil, fmt.Errorf("invalid TOKEN_STORE %q: want file, redis or memory", cfg.TokenStore)
	}

	// --- Drafts Settings ---
	cfg.DraftsDSN = os.Getenv("DRAFTS_DSN")
	if cfg.DraftsDSN == "" {
		cfg.DraftsDSN = "sqlite://blogctl-drafts.db"
	}

	// --- S3 Export Settings ---
	// Export is disabled without a bucket; the rest is then ignored.
	cfg.S3BucketName = os.Getenv("S3_BUCKET_NAME")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	cfg.S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")
	cfg.S3Region = os.Getenv("S3_REGION")

	if cfg.S3BucketName != "" && (cfg.S3AccessKeyID == "") != (cfg.S3SecretAccessKey == "") {
		return nil, fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
	}

	return cfg, nil
}
