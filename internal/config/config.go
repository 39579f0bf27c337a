package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values read from the environment.
type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret      string
	AccessTokenTTL time.Duration
	CookieSecure   bool

	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	CORSOrigins []string

	UploadRoot    string
	PublicBaseURL string

	RabbitMQURL string
	RedisAddr   string
	RedisPass   string

	MailRelayURL    string
	MailRelayAPIKey string
	MailFrom        string

	LogLevel  string
	LogFormat string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int

	OTPTTL         time.Duration
	OTPMaxAttempts int

	ResetWindow   time.Duration
	ResetMaxInWin int
	ResetCooldown time.Duration
}

// Load reads configs/.env (if present) and then the process environment.
func Load() Config {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	cfg := Config{
		Env:  envStr("APP_ENV", defaultEnv()),
		Port: envStr("PORT", "8080"),

		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envStr("DB_PORT", "5432"),
		DBUser:     envStr("DB_USER", "postgres"),
		DBPassword: envStr("DB_PASSWORD", "postgres"),
		DBName:     envStr("DB_NAME", "postgres"),
		DBSSLMode:  envStr("DB_SSLMODE", "disable"),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		AccessTokenTTL: envDur("ACCESS_TOKEN_TTL", 24*time.Hour),
		CookieSecure:   envBool("COOKIE_SECURE", false),

		BootstrapAdminEmail:    envStr("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword: envStr("BOOTSTRAP_ADMIN_PASSWORD", ""),

		CORSOrigins: envList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),

		UploadRoot:    envStr("UPLOAD_ROOT", "uploads"),
		PublicBaseURL: envStr("PUBLIC_BASE_URL", "http://localhost:8080"),

		RabbitMQURL: envStr("RABBITMQ_URL", ""),
		RedisAddr:   envStr("REDIS_ADDR", ""),
		RedisPass:   envStr("REDIS_PASSWORD", ""),

		MailRelayURL:    envStr("MAIL_RELAY_URL", ""),
		MailRelayAPIKey: envStr("MAIL_RELAY_API_KEY", ""),
		MailFrom:        envStr("MAIL_FROM", "no-reply@tourdesk.local"),

		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "json"),

		OutboxPollInterval: envDur("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    envInt("OUTBOX_BATCH_SIZE", 20),
		OutboxMaxAttempts:  envInt("OUTBOX_MAX_ATTEMPTS", 8),

		OTPTTL:         envDur("OTP_TTL", 10*time.Minute),
		OTPMaxAttempts: envInt("OTP_MAX_ATTEMPTS", 5),

		ResetWindow:   envDur("RESET_RATE_WINDOW", 15*time.Minute),
		ResetMaxInWin: envInt("RESET_RATE_MAX", 3),
		ResetCooldown: envDur("RESET_RATE_COOLDOWN", time.Minute),
	}
	if err := cfg.resolveSecret(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	return cfg
}

// Production gates both gin release mode and the JWT secret requirement.
func (c Config) Production() bool {
	return c.Env == "production"
}

// defaultEnv lets GIN_MODE=release imply production when APP_ENV is unset.
func defaultEnv() string {
	if os.Getenv("GIN_MODE") == "release" {
		return "production"
	}
	return "dev"
}

// DSN builds the postgres connection string.
func (c Config) DSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

const devJWTSecret = "default_super_secret_key"

// resolveSecret applies the development fallback; production must set JWT_SECRET.
func (c *Config) resolveSecret() error {
	if c.JWTSecret != "" {
		return nil
	}
	if c.Production() {
		return errors.New("JWT_SECRET environment variable is required in production")
	}
	c.JWTSecret = devJWTSecret
	return nil
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}

func envList(k string, d []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
