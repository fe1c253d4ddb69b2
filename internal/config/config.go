package config

import (
	"os"
	"strconv"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for signature images.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StripeConfig holds checkout provider credentials.
// WebhookSecret is the endpoint signing secret used to verify inbound events.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// ResendConfig holds transactional email settings.
type ResendConfig struct {
	APIKey string
	From   string
}

// SignatureConfig holds signature session and OTP settings.
type SignatureConfig struct {
	// BaseURL is the public origin used to build capability links,
	// e.g. https://app.example.com (link: {BaseURL}/signature/{token}).
	BaseURL        string
	OTPTTLMinutes  int
	OTPMaxAttempts int
	// OTPRequired gates signing on a verified one-time code. Tenants that
	// want a lighter flow can turn the identity step off.
	OTPRequired bool
}

// BillingConfig holds payment defaults.
type BillingConfig struct {
	Currency              string
	DefaultDepositPercent int
}

// WorkerConfig holds background worker intervals.
type WorkerConfig struct {
	MailerIntervalSec int
	OutboxIntervalSec int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost   string
	Port      string
	Database  DatabaseConfig
	MinIO     MinIOConfig
	Stripe    StripeConfig
	Resend    ResendConfig
	Signature SignatureConfig
	Billing   BillingConfig
	Workers   WorkerConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			SuccessURL:    getEnv("STRIPE_SUCCESS_URL", ""),
			CancelURL:     getEnv("STRIPE_CANCEL_URL", ""),
		},
		Resend: ResendConfig{
			APIKey: getEnv("RESEND_API_KEY", ""),
			From:   getEnv("RESEND_FROM", ""),
		},
		Signature: SignatureConfig{
			BaseURL:        getEnv("SIGNATURE_BASE_URL", "http://localhost:8080"),
			OTPTTLMinutes:  getEnvInt("SIGNATURE_OTP_TTL_MINUTES", 10),
			OTPMaxAttempts: getEnvInt("SIGNATURE_OTP_MAX_ATTEMPTS", 5),
			OTPRequired:    getEnvBool("SIGNATURE_OTP_REQUIRED", true),
		},
		Billing: BillingConfig{
			Currency:              getEnv("BILLING_CURRENCY", "eur"),
			DefaultDepositPercent: getEnvInt("BILLING_DEFAULT_DEPOSIT_PERCENT", 30),
		},
		Workers: WorkerConfig{
			MailerIntervalSec: getEnvInt("MAILER_INTERVAL_SEC", 30),
			OutboxIntervalSec: getEnvInt("OUTBOX_INTERVAL_SEC", 5),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
