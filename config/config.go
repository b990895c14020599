package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Payment  PaymentConfig  `yaml:"payment"`
	Auth     AuthConfig     `yaml:"auth"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address"`
	SwaggerDir     string   `yaml:"swagger_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

// PaymentMode selects how the payment step of the wizard works.
type PaymentMode string

const (
	PaymentModeHostedCheckout PaymentMode = "hosted_checkout"
	PaymentModeCardForm       PaymentMode = "card_form"
)

type BookingConfig struct {
	TaxRateBP           int64       `yaml:"tax_rate_bp"`
	ServiceFeeRateBP    int64       `yaml:"service_fee_rate_bp"`
	Currency            string      `yaml:"currency"`
	PendingTTLMinutes   int         `yaml:"pending_ttl_minutes"`
	ItemCacheTTLSeconds int         `yaml:"item_cache_ttl_seconds"`
	DraftTTLHours       int         `yaml:"draft_ttl_hours"`
	PaymentMode         PaymentMode `yaml:"payment_mode"`
}

func (b BookingConfig) PendingTTL() time.Duration {
	return time.Duration(b.PendingTTLMinutes) * time.Minute
}

func (b BookingConfig) ItemCacheTTL() time.Duration {
	return time.Duration(b.ItemCacheTTLSeconds) * time.Second
}

func (b BookingConfig) DraftTTL() time.Duration {
	return time.Duration(b.DraftTTLHours) * time.Hour
}

type PaymentConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
	CallbackToken  string `yaml:"callback_token"`
}

func (p PaymentConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type WorkerConfig struct {
	ExpirationSweepMinutes int `yaml:"expiration_sweep_minutes"`
}

type LogConfig struct {
	Level     string `yaml:"level"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

func LoadConfig(path string) (*Config, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML, applies env overrides and fills defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("PAYMENT_CALLBACK_TOKEN"); v != "" {
		c.Payment.CallbackToken = v
	}
	if v := os.Getenv("PAYMENT_BASE_URL"); v != "" {
		c.Payment.BaseURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.Booking.TaxRateBP == 0 {
		c.Booking.TaxRateBP = 1100
	}
	if c.Booking.ServiceFeeRateBP == 0 {
		c.Booking.ServiceFeeRateBP = 500
	}
	if c.Booking.Currency == "" {
		c.Booking.Currency = "IDR"
	}
	if c.Booking.PendingTTLMinutes == 0 {
		c.Booking.PendingTTLMinutes = 60
	}
	if c.Booking.ItemCacheTTLSeconds == 0 {
		c.Booking.ItemCacheTTLSeconds = 300
	}
	if c.Booking.DraftTTLHours == 0 {
		c.Booking.DraftTTLHours = 72
	}
	if c.Booking.PaymentMode == "" {
		c.Booking.PaymentMode = PaymentModeHostedCheckout
	}
	if c.Payment.TimeoutSeconds == 0 {
		c.Payment.TimeoutSeconds = 10
	}
	if c.Payment.MaxRetries == 0 {
		c.Payment.MaxRetries = 3
	}
	if c.Worker.ExpirationSweepMinutes == 0 {
		c.Worker.ExpirationSweepMinutes = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
}

func (c *Config) validate() error {
	switch c.Booking.PaymentMode {
	case PaymentModeHostedCheckout, PaymentModeCardForm:
	default:
		return fmt.Errorf("unknown booking.payment_mode %q", c.Booking.PaymentMode)
	}
	if c.Booking.TaxRateBP < 0 || c.Booking.ServiceFeeRateBP < 0 {
		return fmt.Errorf("booking rates must not be negative")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (set it or JWT_SECRET)")
	}
	return nil
}
