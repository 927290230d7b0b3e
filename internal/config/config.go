package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// Newsletter persistence
	StoreDriver string `json:"store_driver"` // memory, file or redis
	StoragePath string `json:"storage_path"`
	RedisURL    string `json:"redis_url"`
	RedisPrefix string `json:"redis_prefix"`

	// Subscriber database
	DatabaseURL string `json:"-"`

	// CloudFlare R2 Configuration
	R2Endpoint  string `json:"r2_endpoint"`
	R2AccessKey string `json:"-"`
	R2SecretKey string `json:"-"`
	R2Bucket    string `json:"r2_bucket"`
	R2AccountID string `json:"r2_account_id"`
	R2PublicURL string `json:"r2_public_url"`

	// AI Configuration. The provider key is supplied per request, never here.
	AIModel         string        `json:"ai_model"`
	AIBaseURL       string        `json:"ai_base_url"`
	AITimeout       time.Duration `json:"ai_timeout"`
	AIMaxInputChars int           `json:"ai_max_input_chars"`

	// Content extraction
	FetchTimeout   time.Duration `json:"fetch_timeout"`
	FetchUserAgent string        `json:"fetch_user_agent"`
	FetchRetries   int           `json:"fetch_retries"`

	// Mail
	MailDriver         string `json:"mail_driver"` // gmail, postmark or log
	GoogleClientID     string `json:"-"`
	GoogleClientSecret string `json:"-"`
	GoogleRedirectURI  string `json:"google_redirect_uri"`
	GoogleRefreshToken string `json:"-"`
	PostmarkServerTok  string `json:"-"`
	PostmarkAccountTok string `json:"-"`
	MailFrom           string `json:"mail_from"`
	MailLogDir         string `json:"mail_log_dir"`

	// Bulk dispatch
	BulkConcurrency  int           `json:"bulk_concurrency"`
	BulkSuccessDelay time.Duration `json:"bulk_success_delay"`
	BulkFailureDelay time.Duration `json:"bulk_failure_delay"`
	BulkRatePerSec   float64       `json:"bulk_rate_per_sec"`

	// Rendering
	FooterName string `json:"footer_name"`
	FooterURL  string `json:"footer_url"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
}

// Load loads configuration from environment variables and validates it
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg := FromEnv()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	return cfg
}

// FromEnv reads the configuration from the process environment without
// loading .env or validating.
func FromEnv() *Config {
	return &Config{
		// Server configuration
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 120*time.Second),

		// Newsletter persistence
		StoreDriver: getEnv("STORE_DRIVER", "file"),
		StoragePath: getEnv("STORAGE_PATH", "./data/newsletters"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPrefix: getEnv("REDIS_PREFIX", "newsletter:"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		// CloudFlare R2 Configuration
		R2Endpoint:  getEnv("R2_ENDPOINT", ""),
		R2AccessKey: getEnv("R2_ACCESS_KEY", ""),
		R2SecretKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:    getEnv("R2_BUCKET", "newsletters"),
		R2AccountID: getEnv("CLOUDFLARE_ACCOUNT_ID", ""),
		R2PublicURL: getEnv("R2_PUBLIC_URL", ""),

		// AI Configuration
		AIModel:         getEnv("AI_MODEL", "gemini-1.5-flash"),
		AIBaseURL:       getEnv("AI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/models"),
		AITimeout:       getEnvAsDuration("AI_TIMEOUT", 60*time.Second),
		AIMaxInputChars: getEnvAsInt("AI_MAX_INPUT_CHARS", 30000),

		FetchTimeout:   getEnvAsDuration("FETCH_TIMEOUT", 20*time.Second),
		FetchUserAgent: getEnv("FETCH_USER_AGENT", ""),
		FetchRetries:   getEnvAsInt("FETCH_RETRIES", 2),

		// Mail
		MailDriver:         getEnv("MAIL_DRIVER", "gmail"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:3000"),
		GoogleRefreshToken: getEnv("GOOGLE_REFRESH_TOKEN", ""),
		PostmarkServerTok:  getEnv("POSTMARK_SERVER_TOKEN", ""),
		PostmarkAccountTok: getEnv("POSTMARK_ACCOUNT_TOKEN", ""),
		MailFrom:           getEnv("MAIL_FROM", ""),
		MailLogDir:         getEnv("MAIL_LOG_DIR", "./data/outbox"),

		// Bulk dispatch
		BulkConcurrency:  getEnvAsInt("BULK_CONCURRENCY", 1),
		BulkSuccessDelay: getEnvAsDuration("BULK_SUCCESS_DELAY", 200*time.Millisecond),
		BulkFailureDelay: getEnvAsDuration("BULK_FAILURE_DELAY", time.Second),
		BulkRatePerSec:   getEnvAsFloat("BULK_RATE_PER_SEC", 0),

		FooterName: getEnv("NEWSLETTER_FOOTER_NAME", "Your Company"),
		FooterURL:  getEnv("NEWSLETTER_FOOTER_URL", "#"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.MailDriver {
	case "gmail", "postmark", "log":
	default:
		return fmt.Errorf("unknown MAIL_DRIVER %q", c.MailDriver)
	}
	if c.BulkConcurrency < 1 {
		return fmt.Errorf("BULK_CONCURRENCY must be at least 1, got %d", c.BulkConcurrency)
	}
	if c.BulkSuccessDelay < 0 || c.BulkFailureDelay < 0 {
		return fmt.Errorf("bulk delays must not be negative")
	}
	if c.BulkRatePerSec < 0 {
		return fmt.Errorf("BULK_RATE_PER_SEC must not be negative")
	}
	if c.FetchRetries < 0 {
		return fmt.Errorf("FETCH_RETRIES must not be negative")
	}
	if c.AIMaxInputChars <= 0 {
		return fmt.Errorf("AI_MAX_INPUT_CHARS must be positive")
	}
	return nil
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// R2Configured reports whether export uploads can be made.
func (c *Config) R2Configured() bool {
	return c.R2AccessKey != "" && c.R2SecretKey != "" && c.R2Bucket != "" &&
		(c.R2Endpoint != "" || c.R2AccountID != "")
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultVal int) int {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %d", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsFloat(name string, defaultVal float64) float64 {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
