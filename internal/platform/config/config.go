// Package config loads service configuration from environment variables via
// viper so main stays lean. Defaults are development-safe: in-memory stores,
// sandbox OTP provider, no external brokers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	pstrings "veristay/pkg/platform/strings"
)

// Config is the root configuration for the verification engine.
type Config struct {
	HTTP     HTTPConfig
	Log      LogConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	OTP      OTPConfig
	Email    EmailConfig
	SMTP     SMTPConfig
	Notify   NotifyConfig
	Audit    AuditConfig
}

type HTTPConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
	AdminJWTSecret  string
}

type LogConfig struct {
	Level  string
	Pretty bool
}

type PostgresConfig struct {
	// DSN empty means in-memory stores; set for production.
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	// URL empty means the in-memory OTP challenge store.
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type OTPConfig struct {
	// Provider selects the identity-OTP backend from the registry.
	// Unknown values fall back to the disabled stub with a warning.
	Provider     string
	ChallengeTTL time.Duration
}

type EmailConfig struct {
	TokenTTL time.Duration
	// AllowedDomains are exact academic domains that auto-approve.
	AllowedDomains []string
	// AcademicSuffixes are domain suffixes (".ac.in", ".edu") that
	// auto-approve. Empty allow-list and suffixes disable classification.
	AcademicSuffixes []string
	// ConfirmBaseURL is prefixed to tokens when building verification links.
	ConfirmBaseURL string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type NotifyConfig struct {
	// AdminEmails receive escalation notifications when mail delivery is
	// configured.
	AdminEmails []string
}

type AuditConfig struct {
	// KafkaBrokers enables the optional Kafka audit sink when non-empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from the environment. Every key has a VERISTAY_
// prefix, e.g. VERISTAY_HTTP_ADDR, VERISTAY_OTP_PROVIDER.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VERISTAY")
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("HTTP_SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("HTTP_ADMIN_JWT_SECRET", "dev-secret-change-in-production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("POSTGRES_MAX_OPEN_CONNS", 20)
	v.SetDefault("POSTGRES_MAX_IDLE_CONNS", 5)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_POOL_SIZE", 10)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")
	v.SetDefault("REDIS_READ_TIMEOUT", "3s")
	v.SetDefault("REDIS_WRITE_TIMEOUT", "3s")
	v.SetDefault("OTP_PROVIDER", "sandbox")
	v.SetDefault("OTP_CHALLENGE_TTL", "5m")
	v.SetDefault("EMAIL_TOKEN_TTL", "24h")
	v.SetDefault("EMAIL_ALLOWED_DOMAINS", "")
	v.SetDefault("EMAIL_ACADEMIC_SUFFIXES", ".ac.in,.edu,.edu.in")
	v.SetDefault("EMAIL_CONFIRM_BASE_URL", "http://localhost:8080/college-email/confirm")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "no-reply@veristay.in")
	v.SetDefault("AUDIT_KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "veristay.audit")

	cfg := Config{
		HTTP: HTTPConfig{
			Addr:            v.GetString("HTTP_ADDR"),
			ShutdownTimeout: v.GetDuration("HTTP_SHUTDOWN_TIMEOUT"),
			AdminJWTSecret:  v.GetString("HTTP_ADMIN_JWT_SECRET"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Pretty: v.GetBool("LOG_PRETTY"),
		},
		Postgres: PostgresConfig{
			DSN:          v.GetString("POSTGRES_DSN"),
			MaxOpenConns: v.GetInt("POSTGRES_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("POSTGRES_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("REDIS_URL"),
			PoolSize:     v.GetInt("REDIS_POOL_SIZE"),
			DialTimeout:  v.GetDuration("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  v.GetDuration("REDIS_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("REDIS_WRITE_TIMEOUT"),
		},
		OTP: OTPConfig{
			Provider:     v.GetString("OTP_PROVIDER"),
			ChallengeTTL: v.GetDuration("OTP_CHALLENGE_TTL"),
		},
		Email: EmailConfig{
			TokenTTL:         v.GetDuration("EMAIL_TOKEN_TTL"),
			AllowedDomains:   pstrings.DedupeLower(splitCSV(v.GetString("EMAIL_ALLOWED_DOMAINS"))),
			AcademicSuffixes: pstrings.DedupeLower(splitCSV(v.GetString("EMAIL_ACADEMIC_SUFFIXES"))),
			ConfirmBaseURL:   v.GetString("EMAIL_CONFIRM_BASE_URL"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		Notify: NotifyConfig{
			AdminEmails: pstrings.DedupeLower(splitCSV(v.GetString("NOTIFY_ADMIN_EMAILS"))),
		},
		Audit: AuditConfig{
			KafkaBrokers: splitCSV(v.GetString("AUDIT_KAFKA_BROKERS")),
			KafkaTopic:   v.GetString("AUDIT_KAFKA_TOPIC"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.OTP.ChallengeTTL <= 0 {
		return fmt.Errorf("config: OTP challenge TTL must be positive, got %s", c.OTP.ChallengeTTL)
	}
	if c.Email.TokenTTL <= 0 {
		return fmt.Errorf("config: email token TTL must be positive, got %s", c.Email.TokenTTL)
	}
	return nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
