package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig holds the Postgres connection settings shared by both binaries
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the settings as a libpq keyword/value connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
	Channel  string
}

type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

type Config struct {
	HTTPPort      int
	GRPCPort      int
	MetricsPort   int
	Database      DatabaseConfig
	Redis         RedisConfig
	Razorpay      RazorpayConfig
	JWTSecret     string
	ReceiptPrefix string
	Currency      string
	EventBuffer   int
}

// LoadEnv reads a .env file into the process environment when one exists
func LoadEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// RegisterDatabaseFlags binds database flags to fs with defaults taken from the environment
func RegisterDatabaseFlags(fs *flag.FlagSet) *DatabaseConfig {
	d := &DatabaseConfig{}
	fs.StringVar(&d.Host, "db-host", envString("DB_HOST", "localhost"), "Database host")
	fs.IntVar(&d.Port, "db-port", envInt("DB_PORT", 5432), "Database port")
	fs.StringVar(&d.User, "db-user", envString("DB_USER", "admin"), "Database user")
	fs.StringVar(&d.Password, "db-pass", envString("DB_PASSWORD", ""), "Database password")
	fs.StringVar(&d.Name, "db-name", envString("DB_NAME", "rent_payments"), "Database name")
	fs.StringVar(&d.SSLMode, "db-sslmode", envString("DB_SSLMODE", "disable"), "Database sslmode")
	return d
}

// Load parses the server flags in args. Environment variables, optionally from .env, supply the defaults.
func Load(args []string) (*Config, error) {
	LoadEnv()

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg := &Config{}
	fs.IntVar(&cfg.HTTPPort, "port", envInt("HTTP_PORT", 8080), "Port for the HTTP API")
	fs.IntVar(&cfg.GRPCPort, "grpc-port", envInt("GRPC_PORT", 50051), "Port for gRPC health checks")
	fs.IntVar(&cfg.MetricsPort, "metrics-port", envInt("METRICS_PORT", 8081), "Port for /metrics and /health")
	db := RegisterDatabaseFlags(fs)

	fs.StringVar(&cfg.Redis.Addr, "redis-addr", envString("REDIS_ADDR", "localhost:6379"), "Redis address")
	fs.StringVar(&cfg.Redis.Password, "redis-pass", envString("REDIS_PASSWORD", ""), "Redis password")
	fs.IntVar(&cfg.Redis.DB, "redis-db", envInt("REDIS_DB", 0), "Redis database")
	fs.DurationVar(&cfg.Redis.CacheTTL, "cache-ttl", envDuration("PAYMENT_CACHE_TTL", time.Hour), "Payment cache TTL")
	fs.StringVar(&cfg.Redis.Channel, "events-channel", envString("PAYMENT_EVENTS_CHANNEL", "payments.events"), "Redis channel for payment events")

	fs.StringVar(&cfg.Razorpay.KeyID, "razorpay-key-id", envString("RAZORPAY_KEY_ID", ""), "Razorpay key id")
	fs.StringVar(&cfg.Razorpay.KeySecret, "razorpay-key-secret", envString("RAZORPAY_KEY_SECRET", ""), "Razorpay key secret")
	fs.StringVar(&cfg.Razorpay.WebhookSecret, "razorpay-webhook-secret", envString("RAZORPAY_WEBHOOK_SECRET", ""), "Razorpay webhook secret")

	fs.StringVar(&cfg.JWTSecret, "jwt-secret", envString("JWT_SECRET", ""), "HS256 secret for bearer tokens")
	fs.StringVar(&cfg.ReceiptPrefix, "receipt-prefix", envString("RECEIPT_PREFIX", "rent_"), "Prefix for gateway receipts")
	fs.StringVar(&cfg.Currency, "currency", envString("PAYMENT_CURRENCY", "INR"), "Default payment currency")
	fs.IntVar(&cfg.EventBuffer, "event-buffer", envInt("EVENT_BUFFER", 100), "Payment event queue size")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Database = *db
	cfg.Currency = strings.ToUpper(cfg.Currency)
	return cfg, nil
}

// Validate rejects configurations the server cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.Razorpay.KeyID == "" {
		errs = append(errs, errors.New("razorpay key id is required"))
	}
	if c.Razorpay.KeySecret == "" {
		errs = append(errs, errors.New("razorpay key secret is required"))
	}
	if c.Razorpay.WebhookSecret == "" {
		errs = append(errs, errors.New("razorpay webhook secret is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	if len(c.Currency) != 3 {
		errs = append(errs, fmt.Errorf("currency %q is not an ISO code", c.Currency))
	}
	if c.EventBuffer <= 0 {
		errs = append(errs, errors.New("event buffer must be positive"))
	}
	return errors.Join(errs...)
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
