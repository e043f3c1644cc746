package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port string

	// Database
	DatabaseURL string

	// Tokens
	JWTSecret            string
	JWTRefreshSecret     string
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
	CookieSecure         bool
	RefreshPurgeSchedule string

	// Frontend origin for CORS and OAuth redirects
	FrontendURL string

	// GitHub
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
	GitHubAPIURL       string
	GitHubCacheTTL     time.Duration

	// Optional read cache
	RedisURL string

	LogLevel string

	// Rate limits
	RateLimitGlobal int
	RateLimitAuth   int
	RateLimitWindow time.Duration
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file, continuing with system environment variables")
	}

	return &Config{
		Env:  getEnv("APP_ENV", EnvDevelopment),
		Port: getEnv("PORT", "8080"),

		DatabaseURL: getEnv("DB_CONNECTION_STRING", ""),

		JWTSecret:            getEnv("JWT_SECRET", ""),
		JWTRefreshSecret:     getEnv("JWT_REFRESH_SECRET", ""),
		AccessTokenTTL:       getEnvDuration("JWT_EXPIRE", 15*time.Minute),
		RefreshTokenTTL:      getEnvDuration("JWT_REFRESH_EXPIRE", 7*24*time.Hour),
		CookieSecure:         getEnvBool("COOKIE_SECURE", false),
		RefreshPurgeSchedule: getEnv("REFRESH_PURGE_SCHEDULE", "@every 1h"),

		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),

		GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
		GitHubCallbackURL:  getEnv("GITHUB_CALLBACK_URL", ""),
		GitHubAPIURL:       strings.TrimRight(getEnv("GITHUB_API_URL", "https://api.github.com"), "/"),
		GitHubCacheTTL:     getEnvDuration("GITHUB_CACHE_TTL", 2*time.Minute),

		RedisURL: getEnv("REDIS_URL", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		RateLimitGlobal: getEnvInt("RATE_LIMIT_GLOBAL", 1000),
		RateLimitAuth:   getEnvInt("RATE_LIMIT_AUTH", 500),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// SecureCookies reports whether auth cookies carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return c.IsProduction() || c.CookieSecure
}

// Validate collects every configuration problem into a single error.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		problems = append(problems, fmt.Sprintf("invalid APP_ENV '%s': must be %s or %s", c.Env, EnvDevelopment, EnvProduction))
	}

	if c.DatabaseURL == "" {
		problems = append(problems, "missing DB_CONNECTION_STRING")
	}
	if c.JWTSecret == "" {
		problems = append(problems, "missing JWT_SECRET")
	}
	if c.JWTRefreshSecret == "" {
		problems = append(problems, "missing JWT_REFRESH_SECRET")
	}
	if c.JWTSecret != "" && c.JWTSecret == c.JWTRefreshSecret {
		problems = append(problems, "JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		problems = append(problems, "token lifetimes must be positive")
	}

	if _, err := url.ParseRequestURI(c.FrontendURL); err != nil {
		problems = append(problems, fmt.Sprintf("invalid FRONTEND_URL '%s': %v", c.FrontendURL, err))
	}
	if _, err := url.ParseRequestURI(c.GitHubAPIURL); err != nil {
		problems = append(problems, fmt.Sprintf("invalid GITHUB_API_URL '%s': %v", c.GitHubAPIURL, err))
	}

	if c.RateLimitGlobal <= 0 || c.RateLimitAuth <= 0 || c.RateLimitWindow <= 0 {
		problems = append(problems, "rate limits must be positive")
	}

	if len(problems) > 0 {
		return errors.New("configuration validation failed: " + strings.Join(problems, "; "))
	}
	return nil
}

// GitHubOAuthEnabled reports whether account linking can be offered.
func (c *Config) GitHubOAuthEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration also accepts the "7d" shorthand.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if strings.HasSuffix(value, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(value, "d")); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}
