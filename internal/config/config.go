package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Session tokens issued after social login
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Identity providers
	GoogleClientIDWeb string
	GoogleClientIDIOS string
	AppleBundleID     string
	AppleJWKSURL      string
	AppleJWKSTTL      time.Duration

	// Billing
	RevenueCatWebhookAuth string

	// Object storage
	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string

	// Catalog cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Admin
	AdminEmails    string
	AdminTokenHash string

	// Server
	Port             string
	CORSOrigins      string
	BodyLimitMB      int
	LogRetentionDays int

	// Error tracking
	SentryDSN string
	AppEnv    string
}

// Load reads configuration from the environment. An optional dotenv file
// (ENV_FILE, default ".env") is loaded first; real environment variables win.
func Load() *Config {
	envFile := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load env file", "path", envFile, "error", err)
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "scitore"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m"), 15*time.Minute),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "720h"), 720*time.Hour),

		GoogleClientIDWeb: getEnv("GOOGLE_CLIENT_ID_WEB", ""),
		GoogleClientIDIOS: getEnv("GOOGLE_CLIENT_ID_IOS", ""),
		AppleBundleID:     getEnv("APPLE_BUNDLE_ID", "com.thousandways.scitore"),
		AppleJWKSURL:      getEnv("APPLE_JWKS_URL", "https://appleid.apple.com/auth/keys"),
		AppleJWKSTTL:      parseDuration(getEnv("APPLE_JWKS_TTL", "24h"), 24*time.Hour),

		RevenueCatWebhookAuth: getEnv("REVENUECAT_WEBHOOK_AUTH", ""),

		SupabaseURL:    getEnv("SUPABASE_URL", ""),
		SupabaseKey:    getEnv("SUPABASE_KEY", ""),
		SupabaseBucket: getEnv("SUPABASE_BUCKET", "audio"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       atoi(getEnv("REDIS_DB", "0"), 0),
		CacheTTL:      parseDuration(getEnv("CACHE_TTL", "30s"), 30*time.Second),

		AdminEmails:    getEnv("ADMIN_EMAILS", ""),
		AdminTokenHash: getEnv("ADMIN_TOKEN_HASH", ""),

		Port:             getEnv("PORT", "8080"),
		CORSOrigins:      getEnv("CORS_ORIGINS", "*"),
		BodyLimitMB:      atoi(getEnv("BODY_LIMIT_MB", "100"), 100),
		LogRetentionDays: atoi(getEnv("LOG_RETENTION_DAYS", "30"), 30),

		SentryDSN: getEnv("SENTRY_DSN", ""),
		AppEnv:    getEnv("APP_ENV", "development"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// StorageEnabled reports whether audio uploads can be served.
func (c *Config) StorageEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func atoi(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
