package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName          string
	AppVersion       string
	Environment      string
	HTTPAddr         string
	PublicOrigin     string
	AuthCookieSecure bool
	SessionTTL       time.Duration

	OTLPEndpoint string

	Identity   IdentityConfig
	Redis      RedisConfig
	Changefeed ChangefeedConfig
	TMDB       TMDBConfig
	Stripe     StripeConfig
	RateLimit  RateLimitConfig
	Checkout   CheckoutConfig
	Sweeper    SweeperConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
}

// IdentityConfig configures verification of identity provider tokens.
type IdentityConfig struct {
	JWTSecret string
	Issuer    string
	Audience  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// ChangefeedConfig selects how projection changes fan out between instances.
type ChangefeedConfig struct {
	Driver  string
	Channel string
}

type TMDBConfig struct {
	APIKey   string
	BaseURL  string
	Language string
	Timeout  time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	APIBaseURL    string
}

type RateLimitConfig struct {
	Enabled       bool
	CheckoutRate  float64
	CheckoutBurst int
}

type CheckoutConfig struct {
	AwaitTimeout time.Duration
	PendingTTL   time.Duration
}

type SweeperConfig struct {
	Enabled        bool
	ExpireSchedule string
	WarmSchedule   string
	LockTTL        time.Duration
}

const (
	ChangefeedMemory   = "memory"
	ChangefeedRedis    = "redis"
	ChangefeedPostgres = "postgres"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	cfg := Config{
		AppName:          getenv("APP_SERVICE", "streamgate"),
		AppVersion:       getenv("APP_VERSION", "0.1.0"),
		Environment:      environment,
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		PublicOrigin:     strings.TrimRight(strings.TrimSpace(getenv("PUBLIC_ORIGIN", "http://localhost:3000")), "/"),
		AuthCookieSecure: authCookieSecure,
		SessionTTL:       getenvDuration("AUTH_SESSION_TTL", 14*24*time.Hour),
		OTLPEndpoint:     getenv("OTLP_ENDPOINT", "localhost:4317"),
		Identity: IdentityConfig{
			JWTSecret: strings.TrimSpace(getenv("IDENTITY_JWT_SECRET", "")),
			Issuer:    strings.TrimSpace(getenv("IDENTITY_JWT_ISSUER", "")),
			Audience:  strings.TrimSpace(getenv("IDENTITY_JWT_AUDIENCE", "")),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Changefeed: ChangefeedConfig{
			Driver:  normalizeChangefeedDriver(getenv("CHANGEFEED_DRIVER", ChangefeedMemory)),
			Channel: getenv("CHANGEFEED_CHANNEL", "streamgate_changes"),
		},
		TMDB: TMDBConfig{
			APIKey:   strings.TrimSpace(getenv("TMDB_API_KEY", "")),
			BaseURL:  strings.TrimRight(getenv("TMDB_BASE_URL", "https://api.themoviedb.org/3"), "/"),
			Language: getenv("TMDB_LANGUAGE", "en-US"),
			Timeout:  getenvDuration("TMDB_TIMEOUT", 10*time.Second),
		},
		Stripe: StripeConfig{
			SecretKey:     strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			WebhookSecret: strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			APIBaseURL:    strings.TrimRight(getenv("STRIPE_API_BASE_URL", "https://api.stripe.com"), "/"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getenvBool("RATE_LIMIT_ENABLED", true),
			CheckoutRate:  getenvFloat("RATE_LIMIT_CHECKOUT_RATE", 0.2),
			CheckoutBurst: getenvInt("RATE_LIMIT_CHECKOUT_BURST", 3),
		},
		Checkout: CheckoutConfig{
			AwaitTimeout: getenvDuration("CHECKOUT_AWAIT_TIMEOUT", 20*time.Second),
			PendingTTL:   getenvDuration("CHECKOUT_PENDING_TTL", 10*time.Minute),
		},
		Sweeper: SweeperConfig{
			Enabled:        getenvBool("SWEEPER_ENABLED", true),
			ExpireSchedule: getenv("SWEEPER_EXPIRE_SCHEDULE", "@every 1m"),
			WarmSchedule:   getenv("SWEEPER_WARM_SCHEDULE", "@every 15m"),
			LockTTL:        getenvDuration("SWEEPER_LOCK_TTL", 50*time.Second),
		},
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "streamgate"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func normalizeChangefeedDriver(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case ChangefeedRedis, ChangefeedPostgres:
		return value
	default:
		return ChangefeedMemory
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
