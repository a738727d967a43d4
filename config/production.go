// Package config provides configuration management and environment variable handling for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database  DatabaseConfig  `json:"database"`
	Server    ServerConfig    `json:"server"`
	Redis     RedisConfig     `json:"redis"`
	Queue     QueueConfig     `json:"queue"`
	Telegram  TelegramConfig  `json:"telegram"`
	Arkama    ArkamaConfig    `json:"arkama"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Delivery  DeliveryConfig  `json:"delivery"`
	Rotation  RotationConfig  `json:"rotation"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

// DSN renders the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
}

// RedisConfig covers both the runtime flag store and the asynq broker
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

type QueueConfig struct {
	Concurrency        int           `json:"concurrency"`
	MaxRetry           int           `json:"max_retry"`
	CompletedRetention time.Duration `json:"completed_retention"`
	FailedRetention    time.Duration `json:"failed_retention"`
}

type TelegramConfig struct {
	BotToken    string        `json:"bot_token"`
	SyncDelay   time.Duration `json:"sync_delay"`
	SendTimeout time.Duration `json:"send_timeout"`
}

// ArkamaConfig configures the PIX payment gateway client and webhook
// verification
type ArkamaConfig struct {
	BaseURL       string        `json:"base_url"`
	APIKey        string        `json:"api_key"`
	WebhookSecret string        `json:"webhook_secret"`
	StrictWebhook bool          `json:"strict_webhook"`
	Timeout       time.Duration `json:"timeout"`
}

type SchedulerConfig struct {
	TickInterval         time.Duration `json:"tick_interval"`
	SubscriptionInterval time.Duration `json:"subscription_interval"`
	AnalyticsInterval    time.Duration `json:"analytics_interval"`
}

// DeliveryConfig holds the buyer-facing message copy. Empty fields fall back
// to the built-in defaults.
type DeliveryConfig struct {
	IntroMessage        string `json:"intro_message"`
	ConfirmationMessage string `json:"confirmation_message"`
	FollowUpLabel       string `json:"follow_up_label"`
	FollowUpURL         string `json:"follow_up_url"`
}

type RotationConfig struct {
	DefaultGroupCooldown time.Duration `json:"default_group_cooldown"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "boitata"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 1*1024*1024),
		},
		Redis: RedisConfig{
			Addr:     getEnvString("REDIS_ADDR", "localhost:6379"),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Prefix:   getEnvString("REDIS_PREFIX", "boitata:"),
		},
		Queue: QueueConfig{
			Concurrency:        getEnvInt("QUEUE_CONCURRENCY", 5),
			MaxRetry:           getEnvInt("QUEUE_MAX_RETRY", 3),
			CompletedRetention: getEnvDuration("QUEUE_COMPLETED_RETENTION", 24*time.Hour),
			FailedRetention:    getEnvDuration("QUEUE_FAILED_RETENTION", 7*24*time.Hour),
		},
		Telegram: TelegramConfig{
			BotToken:    getEnvString("TELEGRAM_BOT_TOKEN", ""),
			SyncDelay:   getEnvDuration("TELEGRAM_SYNC_DELAY", 500*time.Millisecond),
			SendTimeout: getEnvDuration("TELEGRAM_SEND_TIMEOUT", 30*time.Second),
		},
		Arkama: ArkamaConfig{
			BaseURL:       getEnvString("ARKAMA_BASE_URL", "https://api.arkama.com.br"),
			APIKey:        getEnvString("ARKAMA_API_KEY", ""),
			WebhookSecret: getEnvString("ARKAMA_WEBHOOK_SECRET", ""),
			StrictWebhook: getEnvBool("ARKAMA_STRICT_WEBHOOK", false),
			Timeout:       getEnvDuration("ARKAMA_TIMEOUT", 30*time.Second),
		},
		Scheduler: SchedulerConfig{
			TickInterval:         getEnvDuration("SCHEDULER_TICK_INTERVAL", 1*time.Minute),
			SubscriptionInterval: getEnvDuration("SCHEDULER_SUBSCRIPTION_INTERVAL", 10*time.Minute),
			AnalyticsInterval:    getEnvDuration("SCHEDULER_ANALYTICS_INTERVAL", 5*time.Minute),
		},
		Delivery: DeliveryConfig{
			IntroMessage:        getEnvString("DELIVERY_INTRO_MESSAGE", ""),
			ConfirmationMessage: getEnvString("DELIVERY_CONFIRMATION_MESSAGE", ""),
			FollowUpLabel:       getEnvString("DELIVERY_FOLLOW_UP_LABEL", ""),
			FollowUpURL:         getEnvString("DELIVERY_FOLLOW_UP_URL", ""),
		},
		Rotation: RotationConfig{
			DefaultGroupCooldown: getEnvDuration("ROTATION_DEFAULT_GROUP_COOLDOWN", 30*time.Minute),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Output:     getEnvString("LOG_OUTPUT", "both"),
			FilePath:   getEnvString("LOG_FILE_PATH", "data/app.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}
	if cfg.Database.Password == "" {
		errors = append(errors, "DB_PASSWORD is required")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Server.IdleTimeout <= 0 {
		errors = append(errors, "SERVER_IDLE_TIMEOUT must be positive")
	}

	// Validate redis configuration
	if cfg.Redis.Addr == "" {
		errors = append(errors, "REDIS_ADDR is required")
	}

	// Validate telegram configuration
	if cfg.Telegram.BotToken == "" {
		errors = append(errors, "TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.Telegram.SyncDelay < 0 {
		errors = append(errors, "TELEGRAM_SYNC_DELAY must not be negative")
	}

	// Validate arkama configuration
	if cfg.Arkama.BaseURL == "" {
		errors = append(errors, "ARKAMA_BASE_URL is required")
	}
	if cfg.Arkama.APIKey == "" {
		errors = append(errors, "ARKAMA_API_KEY is required")
	}
	if cfg.Arkama.StrictWebhook && cfg.Arkama.WebhookSecret == "" {
		errors = append(errors, "ARKAMA_WEBHOOK_SECRET is required when strict webhook mode is enabled")
	}

	// Validate queue configuration
	if cfg.Queue.Concurrency <= 0 {
		errors = append(errors, "QUEUE_CONCURRENCY must be positive")
	}
	if cfg.Queue.MaxRetry < 0 {
		errors = append(errors, "QUEUE_MAX_RETRY must not be negative")
	}

	// Validate scheduler configuration
	if cfg.Scheduler.TickInterval <= 0 {
		errors = append(errors, "SCHEDULER_TICK_INTERVAL must be positive")
	}

	// Validate logging configuration
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		valid := false
		for _, level := range validLevels {
			if cfg.Logging.Level == level {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}

	// Return validation errors if any
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
