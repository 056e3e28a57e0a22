package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	AppBaseURL      string
	LogMode         string
	SessionDuration time.Duration
	CSRFSecret      string

	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	EmailProvider string
	EmailFrom     string
	EmailFromName string
	EmailDebug    bool
	AWSRegion     string
	ResendAPIKey  string

	IdentityJWKSURL    string
	IdentityIssuer     string
	IdentityAudience   string
	IdentityHMACSecret string

	GoogleClientID       string
	GoogleClientSecret   string
	OAuthRedirectBaseURL string

	RedisAddr    string
	RedisChannel string

	CronSecret         string
	AdminAPIKey        string
	DiagnosticsEnabled bool
	DigestEnabled      bool
	ForecastDays       int
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present; real
// environment variables take precedence over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:      getEnv("PORT", "8080"),
		AppBaseURL:      strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		LogMode:         getEnv("LOG_MODE", "dev"),
		SessionDuration: getEnvDuration("SESSION_DURATION", 24*time.Hour),
		CSRFSecret:      getEnv("CSRF_SECRET", "dev-csrf-secret-change-me"),

		DatabaseType: getEnv("DB_TYPE", "sqlite"),
		DatabasePath: getEnv("DB_PATH", "./learnsprout.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		EmailProvider: strings.ToLower(getEnv("EMAIL_PROVIDER", "noop")),
		EmailFrom:     getEnv("EMAIL_FROM", ""),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "LearnSprout"),
		EmailDebug:    getEnvBool("EMAIL_DEBUG", false),
		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		ResendAPIKey:  getEnv("RESEND_API_KEY", ""),

		IdentityJWKSURL:    getEnv("IDENTITY_JWKS_URL", ""),
		IdentityIssuer:     getEnv("IDENTITY_ISSUER", ""),
		IdentityAudience:   getEnv("IDENTITY_AUDIENCE", ""),
		IdentityHMACSecret: getEnv("IDENTITY_HMAC_SECRET", ""),

		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", "http://localhost:8080"),

		RedisAddr:    getEnv("REDIS_ADDR", ""),
		RedisChannel: getEnv("REDIS_CHANNEL", "learnsprout-events"),

		CronSecret:         getEnv("CRON_SECRET", ""),
		AdminAPIKey:        getEnv("ADMIN_API_KEY", ""),
		DiagnosticsEnabled: getEnvBool("DIAGNOSTICS_ENABLED", true),
		DigestEnabled:      getEnvBool("DIGEST_ENABLED", false),
		ForecastDays:       getEnvInt("FORECAST_DAYS", 90),
	}
}

// Validate reports configuration combinations the server cannot start with
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.DatabaseType) {
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for DB_TYPE=%s", c.DatabaseType))
		}
	case "sqlite", "sqlite3", "":
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_TYPE %q", c.DatabaseType))
	}

	switch c.EmailProvider {
	case "ses":
		if c.EmailFrom == "" {
			errs = append(errs, errors.New("EMAIL_FROM is required for EMAIL_PROVIDER=ses"))
		}
	case "resend":
		if c.ResendAPIKey == "" {
			errs = append(errs, errors.New("RESEND_API_KEY is required for EMAIL_PROVIDER=resend"))
		}
	case "noop", "":
	default:
		errs = append(errs, fmt.Errorf("unsupported EMAIL_PROVIDER %q", c.EmailProvider))
	}

	if c.ForecastDays <= 0 {
		errs = append(errs, errors.New("FORECAST_DAYS must be positive"))
	}

	return errors.Join(errs...)
}

// IdentityEnabled reports whether bearer tokens from an identity provider are accepted
func (c *Config) IdentityEnabled() bool {
	return c.IdentityJWKSURL != "" || c.IdentityHMACSecret != ""
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
