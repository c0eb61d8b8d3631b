package config

import (
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
	Webhook      WebhookConfig
	Notification NotificationConfig
	Ingest       IngestConfig
	Worker       WorkerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
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
	Level string
}

// AuthConfig defines bearer token parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// WebhookConfig guards the inbound monitoring endpoints. An empty TokenHash
// leaves them open.
type WebhookConfig struct {
	TokenHash string
}

// SlackConfig configures the Slack incoming webhook sender.
type SlackConfig struct {
	Enabled    bool
	WebhookURL string
	Channel    string
	Username   string
}

// TeamsConfig configures the Microsoft Teams connector sender.
type TeamsConfig struct {
	Enabled    bool
	WebhookURL string
}

// EmailConfig configures the Resend email sender.
type EmailConfig struct {
	Enabled bool
	APIKey  string
	From    string
}

// NotificationConfig holds sender settings and dispatch limits.
type NotificationConfig struct {
	Slack              SlackConfig
	Teams              TeamsConfig
	Email              EmailConfig
	SendTimeoutSeconds int
	DispatchWorkers    int
	OperatorIDs        []string
}

// IngestConfig tunes webhook ingestion.
type IngestConfig struct {
	DedupTTLMinutes int
	MaxPayloadBytes int
}

// WorkerConfig controls the notification retry sweeper.
type WorkerConfig struct {
	RetryIntervalSeconds int
	RetryBatch           int
	LeaseSeconds         int
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

	redisAddr := getEnv("REDIS_ADDR", "127.0.0.1:6379")
	if !getEnvAsBool("REDIS_ENABLED", true) {
		redisAddr = ""
	}

	slackURL := os.Getenv("NOTIFY_SLACK_WEBHOOK_URL")
	teamsURL := os.Getenv("NOTIFY_TEAMS_WEBHOOK_URL")
	resendKey := os.Getenv("RESEND_API_KEY")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "incident-hub"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
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
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Webhook: WebhookConfig{
			TokenHash: os.Getenv("WEBHOOK_TOKEN_HASH"),
		},
		Notification: NotificationConfig{
			Slack: SlackConfig{
				Enabled:    getEnvAsBool("NOTIFY_SLACK_ENABLED", slackURL != ""),
				WebhookURL: slackURL,
				Channel:    os.Getenv("NOTIFY_SLACK_CHANNEL"),
				Username:   getEnv("NOTIFY_SLACK_USERNAME", "incident-hub"),
			},
			Teams: TeamsConfig{
				Enabled:    getEnvAsBool("NOTIFY_TEAMS_ENABLED", teamsURL != ""),
				WebhookURL: teamsURL,
			},
			Email: EmailConfig{
				Enabled: getEnvAsBool("NOTIFY_EMAIL_ENABLED", resendKey != ""),
				APIKey:  resendKey,
				From:    getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			},
			SendTimeoutSeconds: getEnvAsInt("NOTIFY_SEND_TIMEOUT_SECONDS", 10),
			DispatchWorkers:    getEnvAsInt("NOTIFY_DISPATCH_CONCURRENCY", 4),
			OperatorIDs:        getEnvAsList("NOTIFY_OPERATOR_IDS"),
		},
		Ingest: IngestConfig{
			DedupTTLMinutes: getEnvAsInt("INGEST_DEDUP_TTL_MINUTES", 1440),
			MaxPayloadBytes: getEnvAsInt("INGEST_MAX_PAYLOAD_BYTES", 1<<20),
		},
		Worker: WorkerConfig{
			RetryIntervalSeconds: getEnvAsInt("WORKER_RETRY_INTERVAL_SECONDS", 60),
			RetryBatch:           getEnvAsInt("WORKER_RETRY_BATCH", 50),
			LeaseSeconds:         getEnvAsInt("WORKER_LEASE_SECONDS", 55),
		},
	}

	return cfg, nil
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

// SendTimeout bounds a single outbound delivery.
func (n NotificationConfig) SendTimeout() time.Duration {
	if n.SendTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n.SendTimeoutSeconds) * time.Second
}

// DedupTTL returns how long a correlation key stays in the fast-path cache.
func (i IngestConfig) DedupTTL() time.Duration {
	return time.Duration(i.DedupTTLMinutes) * time.Minute
}

// RetryInterval returns the sweep period; zero disables the sweeper.
func (w WorkerConfig) RetryInterval() time.Duration {
	if w.RetryIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(w.RetryIntervalSeconds) * time.Second
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

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
