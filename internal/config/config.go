// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Env         string
	InstanceID  string
	DatabaseURL string
	SentryDSN   string

	API     APIConfig
	Cache   CacheConfig
	Console ConsoleConfig
	Breaker BreakerConfig
	Kafka   KafkaConfig
	Log     LogConfig
	Mock    MockConfig
}

type APIConfig struct {
	URL     string        `validate:"required,url"`
	Timeout time.Duration `validate:"gt=0"`
}

type CacheConfig struct {
	TTL           time.Duration `validate:"gt=0"`
	Retention     time.Duration `validate:"gtefield=TTL"`
	RedisAddr     string
	RedisPassword string
	RedisDB       int `validate:"gte=0"`
}

type ConsoleConfig struct {
	Port          string `validate:"required,numeric"`
	AllowedOrigin string
	CookieSecure  bool
	StaticDir     string
}

type BreakerConfig struct {
	Enabled     bool
	MaxFailures int           `validate:"gt=0"`
	Timeout     time.Duration `validate:"gt=0"`
}

type KafkaConfig struct {
	Brokers string
	GroupID string
}

func (k KafkaConfig) Enabled() bool {
	return strings.TrimSpace(k.Brokers) != ""
}

type LogConfig struct {
	Level string
	File  string
}

type MockConfig struct {
	Port      string
	JWTSecret string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "dev")
	v.SetDefault("API_TIMEOUT", "10s")
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("CACHE_RETENTION", "30m")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CONSOLE_PORT", "8080")
	v.SetDefault("ALLOWED_ORIGIN", "http://localhost:3000")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("BREAKER_ENABLED", true)
	v.SetDefault("BREAKER_MAX_FAILURES", 5)
	v.SetDefault("BREAKER_TIMEOUT", "30s")
	v.SetDefault("KAFKA_GROUP_ID", "lectio-console")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MOCK_PORT", "8000")
	v.SetDefault("MOCK_JWT_SECRET", "lectio-dev-secret")
}

// Load reads every setting from the environment. Call Validate for the
// sections the binary actually needs.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Env:         v.GetString("ENV"),
		InstanceID:  v.GetString("INSTANCE_ID"),
		DatabaseURL: v.GetString("DATABASE_URL"),
		SentryDSN:   v.GetString("SENTRY_DSN"),
		API: APIConfig{
			URL:     strings.TrimRight(v.GetString("LECTIO_API_URL"), "/"),
			Timeout: v.GetDuration("API_TIMEOUT"),
		},
		Cache: CacheConfig{
			TTL:           v.GetDuration("CACHE_TTL"),
			Retention:     v.GetDuration("CACHE_RETENTION"),
			RedisAddr:     v.GetString("REDIS_ADDR"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
		},
		Console: ConsoleConfig{
			Port:          v.GetString("CONSOLE_PORT"),
			AllowedOrigin: v.GetString("ALLOWED_ORIGIN"),
			CookieSecure:  v.GetBool("COOKIE_SECURE"),
			StaticDir:     v.GetString("STATIC_DIR"),
		},
		Breaker: BreakerConfig{
			Enabled:     v.GetBool("BREAKER_ENABLED"),
			MaxFailures: v.GetInt("BREAKER_MAX_FAILURES"),
			Timeout:     v.GetDuration("BREAKER_TIMEOUT"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetString("KAFKA_BROKERS"),
			GroupID: v.GetString("KAFKA_GROUP_ID"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
			File:  v.GetString("LOG_FILE"),
		},
		Mock: MockConfig{
			Port:      v.GetString("MOCK_PORT"),
			JWTSecret: v.GetString("MOCK_JWT_SECRET"),
		},
	}

	if cfg.InstanceID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "console"
		}
		cfg.InstanceID = host
	}
	return cfg, nil
}

var validate = validator.New()

// ValidateConsole checks the settings the console service cannot start without.
func (c *Config) ValidateConsole() error {
	for name, section := range map[string]any{
		"LECTIO_API_URL/API_TIMEOUT":   c.API,
		"CACHE_TTL/CACHE_RETENTION":    c.Cache,
		"CONSOLE_PORT":                 c.Console,
		"BREAKER_MAX_FAILURES/TIMEOUT": c.Breaker,
	} {
		if err := validate.Struct(section); err != nil {
			return fmt.Errorf("invalid %s: %w", name, describe(err))
		}
	}
	return nil
}

// ValidateAuditMonitor checks the settings of the audit consumer.
func (c *Config) ValidateAuditMonitor() error {
	if !c.Kafka.Enabled() {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	return nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}
