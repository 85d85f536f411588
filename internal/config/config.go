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

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Points       PointsConfig
	Storage      StorageConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	BaseURL               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Development bool
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	EmailDomain           string
	GoogleClientID        string
	GoogleClientSecret    string
	GoogleRedirectURL     string
}

// PointsConfig holds the limits of the points domain.
type PointsConfig struct {
	PageSize               int
	TransferExpiryHours    int
	MinTaskPoints          int
	MaxTaskPoints          int
	MinDescriptionLength   int
	MaxDescriptionLength   int
	LeaderboardCacheTTLSec int
	SubmitRateLimit        int
	SubmitRateWindowSec    int
}

// StorageConfig configures the S3 bucket used for proof uploads. An empty Bucket disables uploads.
type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
	MaxUploadBytes  int64
}

// NotificationConfig configures event fan-out. An empty NATSURL keeps events in process.
type NotificationConfig struct {
	NATSURL       string
	SubjectPrefix string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "points-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			BaseURL:               strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:5173"), "/"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnv("APP_ENV", "development") == "development",
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			EmailDomain:           strings.ToLower(getEnv("AUTH_EMAIL_DOMAIN", "@bestis.ro")),
			GoogleClientID:        os.Getenv("GOOGLE_CLIENT_ID"),
			GoogleClientSecret:    os.Getenv("GOOGLE_CLIENT_SECRET"),
			GoogleRedirectURL:     getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),
		},
		Points: PointsConfig{
			PageSize:               getEnvAsInt("REQUESTS_PAGE_SIZE", 15),
			TransferExpiryHours:    getEnvAsInt("TRANSFER_EXPIRY_HOURS", 24),
			MinTaskPoints:          getEnvAsInt("TASK_MIN_POINTS", 1),
			MaxTaskPoints:          getEnvAsInt("TASK_MAX_POINTS", 1000),
			MinDescriptionLength:   getEnvAsInt("TASK_MIN_DESCRIPTION_LENGTH", 3),
			MaxDescriptionLength:   getEnvAsInt("TASK_MAX_DESCRIPTION_LENGTH", 200),
			LeaderboardCacheTTLSec: getEnvAsInt("LEADERBOARD_CACHE_TTL_SECONDS", 300),
			SubmitRateLimit:        getEnvAsInt("SUBMIT_RATE_LIMIT", 20),
			SubmitRateWindowSec:    getEnvAsInt("SUBMIT_RATE_WINDOW_SECONDS", 3600),
		},
		Storage: StorageConfig{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			PublicBaseURL:   strings.TrimRight(os.Getenv("S3_PUBLIC_BASE_URL"), "/"),
			MaxUploadBytes:  int64(getEnvAsInt("UPLOAD_MAX_BYTES", 5<<20)),
		},
		Notification: NotificationConfig{
			NATSURL:       os.Getenv("NATS_URL"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "points"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	p := c.Points
	if p.PageSize <= 0 {
		errs = append(errs, errors.New("REQUESTS_PAGE_SIZE must be positive"))
	}
	if p.TransferExpiryHours <= 0 {
		errs = append(errs, errors.New("TRANSFER_EXPIRY_HOURS must be positive"))
	}
	if p.MinTaskPoints < 1 || p.MaxTaskPoints < p.MinTaskPoints {
		errs = append(errs, fmt.Errorf("invalid task points range [%d, %d]", p.MinTaskPoints, p.MaxTaskPoints))
	}
	if p.MinDescriptionLength < 1 || p.MaxDescriptionLength < p.MinDescriptionLength {
		errs = append(errs, fmt.Errorf("invalid description length range [%d, %d]", p.MinDescriptionLength, p.MaxDescriptionLength))
	}
	if !strings.HasPrefix(c.Auth.EmailDomain, "@") {
		errs = append(errs, errors.New("AUTH_EMAIL_DOMAIN must start with @"))
	}
	if c.Env() == "production" && c.Auth.JWTSecret == "dev-secret" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be set in production"))
	}
	return errors.Join(errs...)
}

// Env returns the normalized application environment.
func (c *Config) Env() string {
	return strings.ToLower(c.App.Env)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the lifetime of issued session tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// GoogleEnabled reports whether Google sign-in is configured.
func (a AuthConfig) GoogleEnabled() bool {
	return a.GoogleClientID != "" && a.GoogleClientSecret != ""
}

// TransferExpiry returns how long a transfer link stays valid.
func (p PointsConfig) TransferExpiry() time.Duration {
	return time.Duration(p.TransferExpiryHours) * time.Hour
}

// LeaderboardCacheTTL returns how long computed leaderboards are cached.
func (p PointsConfig) LeaderboardCacheTTL() time.Duration {
	return time.Duration(p.LeaderboardCacheTTLSec) * time.Second
}

// SubmitRateWindow returns the window of the submission rate limiter.
func (p PointsConfig) SubmitRateWindow() time.Duration {
	return time.Duration(p.SubmitRateWindowSec) * time.Second
}

// Enabled reports whether proof uploads are configured.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
